package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/logging"
)

// addLoggingFlags registers the flags shared by both tools.
func addLoggingFlags(fs *pflag.FlagSet) {
	fs.String(config.KeyLogLevel, config.DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.String(config.KeyLogFile, "", "Also write a rotating JSON log to this file")
}

// setup loads configuration with flags applied and builds the logger.
func setup(env *Env, flags *pflag.FlagSet) (config.Config, *zap.Logger, error) {
	cfg, err := env.ConfigLoader.Load(flags)
	if err != nil {
		return cfg, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Stderr: env.Stderr,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// checkCommand prints help and returns ErrInvalidCommand when name is not
// one of valid.
func checkCommand(cmd *cobra.Command, name string, valid []string) error {
	if slices.Contains(valid, name) {
		return nil
	}
	_ = cmd.Help()
	return fmt.Errorf("%w %q, expected one of: %s", ErrInvalidCommand, name, strings.Join(valid, ", "))
}

// commandUsage renders the -c flag help text.
func commandUsage(valid []string) string {
	return "Command among: " + strings.Join(valid, " ")
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys. Command-line flags with the same name override them.
const (
	KeyPrefix          = "prefix"
	KeyTolerance       = "tolerance-s"
	KeyIncludeFloor    = "include-floor"
	KeyTimeout         = "timeout"
	KeyDownloadTimeout = "download-timeout"
	KeyDevicePort      = "device-port"
	KeyStreamTimeout   = "stream-timeout"
	KeyLogLevel        = "log-level"
	KeyLogFile         = "log-file"
	KeyFFmpegPath      = "ffmpeg-path"
)

// EnvPrefix is prepended to environment overrides: AVREMOTE_TOLERANCE_S, ...
const EnvPrefix = "AVREMOTE"

// EnvConfigFile points at an explicit config file instead of the default location.
const EnvConfigFile = "AVREMOTE_CONFIG"

// Defaults.
const (
	DefaultToleranceS      = 30
	DefaultTimeout         = 30 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultDevicePort      = 50915
	DefaultStreamTimeout   = 5 * time.Second
	DefaultLogLevel        = "info"
)

// Config holds user configuration merged from defaults, the config file,
// AVREMOTE_* environment variables and command-line flags.
type Config struct {
	Prefix          string        `mapstructure:"prefix"`
	ToleranceS      int           `mapstructure:"tolerance-s" validate:"gte=0"`
	IncludeFloor    bool          `mapstructure:"include-floor"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DownloadTimeout time.Duration `mapstructure:"download-timeout" validate:"gt=0"`
	DevicePort      int           `mapstructure:"device-port" validate:"gte=1,lte=65535"`
	StreamTimeout   time.Duration `mapstructure:"stream-timeout" validate:"gt=0"`
	LogLevel        string        `mapstructure:"log-level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFile         string        `mapstructure:"log-file"`
	FFmpegPath      string        `mapstructure:"ffmpeg-path"`
}

// Tolerance returns the correlation tolerance as a duration.
func (c Config) Tolerance() time.Duration {
	return time.Duration(c.ToleranceS) * time.Second
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/avremote.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "avremote"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "avremote"), nil
}

// Load merges configuration sources. flags may be nil; when given, every
// flag whose name matches a config key is bound so that an explicitly set
// flag wins over file and environment values.
// A missing config file is not an error.
func Load(flags *pflag.FlagSet) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)

	if explicit := os.Getenv(EnvConfigFile); explicit != "" {
		v.SetConfigFile(ExpandPath(explicit))
	} else {
		d, err := dir()
		if err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(d)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range keys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LogFile = ExpandPath(cfg.LogFile)
	cfg.FFmpegPath = ExpandPath(cfg.FFmpegPath)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// keys lists every supported configuration key.
var keys = []string{
	KeyPrefix,
	KeyTolerance,
	KeyIncludeFloor,
	KeyTimeout,
	KeyDownloadTimeout,
	KeyDevicePort,
	KeyStreamTimeout,
	KeyLogLevel,
	KeyLogFile,
	KeyFFmpegPath,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPrefix, "")
	v.SetDefault(KeyTolerance, DefaultToleranceS)
	v.SetDefault(KeyIncludeFloor, false)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyDownloadTimeout, DefaultDownloadTimeout)
	v.SetDefault(KeyDevicePort, DefaultDevicePort)
	v.SetDefault(KeyStreamTimeout, DefaultStreamTimeout)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyFFmpegPath, "")
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path (exported for testing).
func Dir() (string, error) {
	return dir()
}

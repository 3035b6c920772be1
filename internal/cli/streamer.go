package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/streaming"
)

// Streaming commands, in help order.
const (
	cmdStartStreaming    = "start_streaming"
	cmdStopStreaming     = "stop_streaming"
	cmdGetStreamingState = "get_streaming_state"
)

var streamCommands = []string{
	cmdStartStreaming,
	cmdStopStreaming,
	cmdGetStreamingState,
}

// streamHandler runs one streaming command on an open connection.
type streamHandler func(ctx context.Context, env *Env, c StreamController) error

var streamHandlers = map[string]streamHandler{
	cmdStartStreaming:    startStreaming,
	cmdStopStreaming:     stopStreaming,
	cmdGetStreamingState: streamingState,
}

// streamOptions holds the validated options for streamctl.
type streamOptions struct {
	Command  string `flag:"command" validate:"required"`
	DeviceIP string `flag:"device-ip" validate:"required,ip|hostname"`
}

// StreamCmd creates the streamctl root command.
// The env parameter provides injectable dependencies for testing.
func StreamCmd(env *Env) *cobra.Command {
	var opts streamOptions

	cmd := &cobra.Command{
		Use:   "streamctl",
		Short: "Toggle a camera unit's streaming mode over its TCP control port",
		Example: `  streamctl -d 192.168.1.30 -c get_streaming_state
  streamctl -d 192.168.1.30 -c start_streaming`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCommand(cmd, opts.Command, streamCommands); err != nil {
				return err
			}
			if err := config.Validate(opts); err != nil {
				return err
			}
			return runStream(cmd.Context(), env, opts, cmd.Flags())
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)

	fs := cmd.Flags()
	fs.StringVarP(&opts.Command, "command", "c", "", commandUsage(streamCommands))
	fs.StringVarP(&opts.DeviceIP, "device-ip", "d", "", "Camera device IP")
	fs.IntP(config.KeyDevicePort, "p", streaming.DefaultPort, "Camera device TCP port")
	fs.Duration(config.KeyTimeout, streaming.DefaultTimeout, "Deadline for connecting and for each exchange")
	addLoggingFlags(fs)

	_ = cmd.MarkFlagRequired("command")
	_ = cmd.MarkFlagRequired("device-ip")

	return cmd
}

// runStream opens the connection, runs opts.Command and closes it.
func runStream(ctx context.Context, env *Env, opts streamOptions, flags *pflag.FlagSet) error {
	cfg, logger, err := setup(env, flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// --timeout is shared with recorderctl's HTTP timeout key; for
	// streamctl it overrides stream-timeout only when given explicitly.
	timeout := cfg.StreamTimeout
	if flags.Changed(config.KeyTimeout) {
		timeout, err = flags.GetDuration(config.KeyTimeout)
		if err != nil {
			return err
		}
	}

	handler, ok := streamHandlers[opts.Command]
	if !ok {
		return fmt.Errorf("%w %q", ErrInvalidCommand, opts.Command)
	}

	c, err := env.StreamDialer.Dial(ctx, streaming.Address(opts.DeviceIP, cfg.DevicePort), timeout, logger)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return handler(ctx, env, c)
}

func streamingState(ctx context.Context, env *Env, c StreamController) error {
	on, err := c.IsStreaming(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "Streaming status: %t\n", on)
	return nil
}

func startStreaming(ctx context.Context, env *Env, c StreamController) error {
	outcome, err := c.Start(ctx)
	if err != nil {
		return err
	}
	if outcome == streaming.AlreadyInState {
		fmt.Fprintln(env.Stdout, "Already streaming")
		return nil
	}
	fmt.Fprintf(env.Stdout, "Streaming started successfully, check %s\n", c.StreamURL())
	return nil
}

func stopStreaming(ctx context.Context, env *Env, c StreamController) error {
	outcome, err := c.Stop(ctx)
	if err != nil {
		return err
	}
	if outcome == streaming.AlreadyInState {
		fmt.Fprintln(env.Stdout, "Stream already stopped")
		return nil
	}
	fmt.Fprintln(env.Stdout, "Streaming stopped successfully")
	return nil
}

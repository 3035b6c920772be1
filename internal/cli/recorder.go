package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/apierr"
	"github.com/alnah/avremote/internal/cocon"
	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/format"
	"github.com/alnah/avremote/internal/recording"
)

// Recorder commands, in help order.
const (
	cmdStartRecording    = "start_recording"
	cmdStopRecording     = "stop_recording"
	cmdGetRecordingState = "get_recording_state"
	cmdListFiles         = "list_files"
)

var recorderCommands = []string{
	cmdStartRecording,
	cmdStopRecording,
	cmdGetRecordingState,
	cmdListFiles,
}

// recorderHandler runs one recorder command.
type recorderHandler func(r *recorderRun, ctx context.Context) error

var recorderHandlers = map[string]recorderHandler{
	cmdStartRecording:    (*recorderRun).startRecording,
	cmdStopRecording:     (*recorderRun).stopRecording,
	cmdGetRecordingState: (*recorderRun).recordingState,
	cmdListFiles:         (*recorderRun).listFiles,
}

// recorderOptions holds the validated options for recorderctl.
type recorderOptions struct {
	Command     string `flag:"command" validate:"required"`
	DeviceIP    string `flag:"device-ip" validate:"required,ip|hostname"`
	MediaFolder string `flag:"media_folder" validate:"omitempty,dir"`
}

// RecorderCmd creates the recorderctl root command.
// The env parameter provides injectable dependencies for testing.
func RecorderCmd(env *Env) *cobra.Command {
	var opts recorderOptions

	cmd := &cobra.Command{
		Use:   "recorderctl [media_folder]",
		Short: "Control a conference recorder and collect its channel recordings",
		Long: `Start, stop and inspect recordings on a conference recorder over its HTTP API.

When stop_recording is given a media folder, the folder is locked, the
per-channel MP3 files matching the folder's metadata.json creation time
are downloaded into it, and muxed with the folder's MP4 into a
multi-track video that replaces the original (kept as .bak).`,
		Example: `  recorderctl -d 192.168.1.20 -c start_recording
  recorderctl -d 192.168.1.20 -c stop_recording -p RoomA /data/media/1234
  recorderctl -d 192.168.1.20 -c list_files -f`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.MediaFolder = args[0]
			}

			if opts.Command == cmdStopRecording && opts.MediaFolder == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Media folder is mandatory for stopping a recording, exiting")
				return nil
			}
			if err := checkCommand(cmd, opts.Command, recorderCommands); err != nil {
				return err
			}
			if err := config.Validate(opts); err != nil {
				return err
			}

			return runRecorder(cmd.Context(), env, opts, cmd.Flags())
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)

	fs := cmd.Flags()
	fs.StringVarP(&opts.Command, "command", "c", "", commandUsage(recorderCommands))
	fs.StringVarP(&opts.DeviceIP, "device-ip", "d", "", "Recorder device IP")
	fs.BoolP(config.KeyIncludeFloor, "f", false, "Include floor channel")
	fs.StringP(config.KeyPrefix, "p", "", "Prefix to look for when downloading files, e.g. RoomA (RoomA_2020-06-17_15h22m56s_Floor.mp3)")
	fs.IntP(config.KeyTolerance, "t", config.DefaultToleranceS, "Tolerance offset in seconds")
	fs.Duration(config.KeyTimeout, config.DefaultTimeout, "HTTP request timeout")
	fs.Duration(config.KeyDownloadTimeout, config.DefaultDownloadTimeout, "Per-file download timeout")
	addLoggingFlags(fs)

	_ = cmd.MarkFlagRequired("command")
	_ = cmd.MarkFlagRequired("device-ip")

	return cmd
}

// recorderRun is the state of one recorderctl invocation.
type recorderRun struct {
	env    *Env
	opts   recorderOptions
	cfg    config.Config
	logger *zap.Logger
	device RecorderDevice
	lock   *recording.Lock
}

// runRecorder dispatches opts.Command. Whatever happens, a lock taken by
// the command is released before returning.
func runRecorder(ctx context.Context, env *Env, opts recorderOptions, flags *pflag.FlagSet) error {
	cfg, logger, err := setup(env, flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r := &recorderRun{
		env:    env,
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		device: env.DeviceFactory.NewDevice(opts.DeviceIP, cfg, logger),
	}
	defer r.releaseLock()

	handler, ok := recorderHandlers[opts.Command]
	if !ok {
		return fmt.Errorf("%w %q", ErrInvalidCommand, opts.Command)
	}
	return handler(r, ctx)
}

func (r *recorderRun) printf(msg string, args ...any) {
	fmt.Fprintf(r.env.Stdout, msg+"\n", args...)
}

func (r *recorderRun) startRecording(ctx context.Context) error {
	state, err := r.device.StartRecording(ctx)
	if err != nil {
		return err
	}
	if state != cocon.StateActive {
		r.printf("Failed to start recording on %s", r.opts.DeviceIP)
		return fmt.Errorf("%w: recording state on %s is %q, want %q", apierr.ErrStateMismatch, r.opts.DeviceIP, state, cocon.StateActive)
	}
	r.printf("Recording started on %s", r.opts.DeviceIP)
	return nil
}

func (r *recorderRun) recordingState(ctx context.Context) error {
	state, err := r.device.RecordingState(ctx)
	if err != nil {
		return err
	}
	r.printf("Recording state on %s is %s", r.opts.DeviceIP, state)
	return nil
}

func (r *recorderRun) listFiles(ctx context.Context) error {
	selected, err := r.correlator().Find(ctx, r.device, nil)
	if err != nil {
		return err
	}

	r.printf("Found: %d file(s)", len(selected))
	tw := tabwriter.NewWriter(r.env.Stdout, 0, 0, 2, ' ', 0)
	for _, ch := range selected.Channels() {
		f := selected[ch]
		stamp := "-"
		if f.Time != nil {
			stamp = recording.FormatStamp(*f.Time)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ch, stamp, f.URL)
	}
	return tw.Flush()
}

// stopRecording stops the device and, since a media folder is required
// here, collects and muxes the channel recordings under the folder lock.
// FFmpeg and the session metadata are checked before the device is
// touched.
func (r *recorderRun) stopRecording(ctx context.Context) error {
	folder := r.opts.MediaFolder

	ffmpegPath, err := r.env.FFmpegResolver.Resolve(ctx, r.cfg.FFmpegPath)
	if err != nil {
		return err
	}
	r.env.FFmpegResolver.CheckVersion(ctx, ffmpegPath, r.logger)

	session, err := recording.LoadSession(folder)
	if err != nil {
		return err
	}

	r.lock = recording.NewLock(folder, r.logger)
	if err := r.lock.Acquire(); err != nil {
		r.lock = nil
		return err
	}
	defer r.releaseLock()

	state, err := r.device.StopRecording(ctx)
	if err != nil {
		return err
	}
	if state != cocon.StateIdle {
		r.printf("Failed to stop recording on %s", r.opts.DeviceIP)
		return fmt.Errorf("%w: recording state on %s is %q, want %q", apierr.ErrStateMismatch, r.opts.DeviceIP, state, cocon.StateIdle)
	}
	r.printf("Recording stopped on %s", r.opts.DeviceIP)

	paths, err := recording.DownloadSession(ctx, session, r.device, r.correlator(),
		recording.Downloader{Opener: r.device, Logger: r.logger})
	if err != nil {
		if errors.Is(err, recording.ErrNoFiles) {
			r.printf("No files found")
		}
		return err
	}

	tracks, err := recording.Inspect(ctx, paths, r.logger)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		r.printf("Downloaded %s (%s)", filepath.Base(t.Path), format.Duration(t.Duration))
	}

	muxer := r.env.MuxerFactory.NewMuxer(ffmpegPath, r.logger)
	plan, err := muxer.Prepare(ctx, folder)
	if err != nil {
		return err
	}
	if err := muxer.Run(ctx, plan); err != nil {
		return err
	}

	r.releaseLock()
	r.printf("Finished")
	return nil
}

// releaseLock releases the folder lock once; later calls are no-ops.
func (r *recorderRun) releaseLock() {
	if r.lock == nil {
		return
	}
	r.lock.Release()
	r.lock = nil
}

func (r *recorderRun) correlator() recording.Correlator {
	return recording.Correlator{
		Prefix:       r.cfg.Prefix,
		IncludeFloor: r.cfg.IncludeFloor,
		Tolerance:    r.cfg.Tolerance(),
		Resolver:     r.device,
		Logger:       r.logger,
	}
}

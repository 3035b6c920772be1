package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/cocon"
	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/ffmpeg"
	"github.com/alnah/avremote/internal/mux"
	"github.com/alnah/avremote/internal/streaming"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have defaults via DefaultEnv(). Tests override specific
// fields with the With* options.
type Env struct {
	// I/O. Results go to Stdout, diagnostics to Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Factories for domain objects
	ConfigLoader   ConfigLoader
	DeviceFactory  DeviceFactory
	StreamDialer   StreamDialer
	FFmpegResolver FFmpegResolver
	MuxerFactory   MuxerFactory
}

// ConfigLoader loads configuration, letting set flags override it.
type ConfigLoader interface {
	Load(flags *pflag.FlagSet) (config.Config, error)
}

// RecorderDevice is the recording appliance API used by recorderctl.
type RecorderDevice interface {
	StartRecording(ctx context.Context) (cocon.State, error)
	StopRecording(ctx context.Context) (cocon.State, error)
	RecordingState(ctx context.Context) (cocon.State, error)
	RecordingFiles(ctx context.Context) ([]cocon.FileInfo, error)
	FileURL(name string) (string, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// DeviceFactory creates recorder device clients.
type DeviceFactory interface {
	NewDevice(host string, cfg config.Config, logger *zap.Logger) RecorderDevice
}

// StreamController is an open camera control connection.
type StreamController interface {
	IsStreaming(ctx context.Context) (bool, error)
	Start(ctx context.Context) (streaming.Outcome, error)
	Stop(ctx context.Context) (streaming.Outcome, error)
	StreamURL() string
	Close() error
}

// StreamDialer opens camera control connections.
type StreamDialer interface {
	Dial(ctx context.Context, addr string, timeout time.Duration, logger *zap.Logger) (StreamController, error)
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context, configured string) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string, logger *zap.Logger)
}

// MediaMuxer plans and runs the audio/video mux of a media folder.
type MediaMuxer interface {
	Prepare(ctx context.Context, folder string) (mux.Plan, error)
	Run(ctx context.Context, p mux.Plan) error
}

// MuxerFactory creates muxers bound to an FFmpeg binary.
type MuxerFactory interface {
	NewMuxer(ffmpegPath string, logger *zap.Logger) MediaMuxer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithDeviceFactory sets the recorder device factory.
func WithDeviceFactory(f DeviceFactory) EnvOption {
	return func(e *Env) {
		e.DeviceFactory = f
	}
}

// WithStreamDialer sets the camera dialer.
func WithStreamDialer(d StreamDialer) EnvOption {
	return func(e *Env) {
		e.StreamDialer = d
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithMuxerFactory sets the muxer factory.
func WithMuxerFactory(f MuxerFactory) EnvOption {
	return func(e *Env) {
		e.MuxerFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		ConfigLoader:   &defaultConfigLoader{},
		DeviceFactory:  &defaultDeviceFactory{},
		StreamDialer:   &defaultStreamDialer{},
		FFmpegResolver: &defaultFFmpegResolver{},
		MuxerFactory:   &defaultMuxerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(flags *pflag.FlagSet) (config.Config, error) {
	return config.Load(flags)
}

// defaultDeviceFactory implements DeviceFactory with the CoCon client.
type defaultDeviceFactory struct{}

func (defaultDeviceFactory) NewDevice(host string, cfg config.Config, logger *zap.Logger) RecorderDevice {
	return cocon.New(host,
		cocon.WithTimeout(cfg.Timeout),
		cocon.WithDownloadTimeout(cfg.DownloadTimeout),
		cocon.WithLogger(logger),
	)
}

// defaultStreamDialer implements StreamDialer over TCP.
type defaultStreamDialer struct{}

func (defaultStreamDialer) Dial(ctx context.Context, addr string, timeout time.Duration, logger *zap.Logger) (StreamController, error) {
	return streaming.Dial(ctx, addr, streaming.WithTimeout(timeout), streaming.WithLogger(logger))
}

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context, configured string) (string, error) {
	return ffmpeg.NewResolver(ffmpeg.WithConfiguredPath(configured)).Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string, logger *zap.Logger) {
	ffmpeg.NewVersionChecker(nil, logger).Check(ctx, ffmpegPath)
}

// defaultMuxerFactory implements MuxerFactory with an ffmpeg Executor.
type defaultMuxerFactory struct{}

func (defaultMuxerFactory) NewMuxer(ffmpegPath string, logger *zap.Logger) MediaMuxer {
	return mux.Muxer{FFmpegPath: ffmpegPath, Runner: ffmpeg.NewExecutor(), Logger: logger}
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ DeviceFactory    = (*defaultDeviceFactory)(nil)
	_ StreamDialer     = (*defaultStreamDialer)(nil)
	_ FFmpegResolver   = (*defaultFFmpegResolver)(nil)
	_ MuxerFactory     = (*defaultMuxerFactory)(nil)
	_ RecorderDevice   = (*cocon.Client)(nil)
	_ StreamController = (*streaming.Client)(nil)
	_ MediaMuxer       = mux.Muxer{}
)

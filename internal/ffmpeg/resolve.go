package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// binaryName is the base name of the ffmpeg binary.
	binaryName = "ffmpeg"

	// envFFmpegPath overrides the binary location.
	envFFmpegPath = "FFMPEG_PATH"

	// minFFmpegMajorVersion is the oldest release with reliable
	// per-stream metadata and the native AAC encoder.
	minFFmpegMajorVersion = 4
)

// Resolver finds the FFmpeg binary.
type Resolver struct {
	configured string
	env        envProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfiguredPath sets the path from the ffmpeg-path configuration key.
func WithConfiguredPath(p string) ResolverOption {
	return func(r *Resolver) { r.configured = p }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{env: osEnvProvider{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. ffmpeg-path configuration (error if set but invalid)
//  2. FFMPEG_PATH environment variable (error if set but invalid)
//  3. System PATH
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if r.configured != "" {
		if _, err := r.env.Stat(r.configured); err != nil {
			return "", fmt.Errorf("%w: ffmpeg-path is set to %q but binary not found", ErrNotFound, r.configured)
		}
		return r.configured, nil
	}

	if envPath := r.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := r.env.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := r.env.LookPath(binaryName); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: install ffmpeg (e.g. apt install ffmpeg, brew install ffmpeg) or set %s", ErrNotFound, envFFmpegPath)
}

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	logger   *zap.Logger
}

// NewVersionChecker creates a VersionChecker.
func NewVersionChecker(executor *Executor, logger *zap.Logger) *VersionChecker {
	if executor == nil {
		executor = NewExecutor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionChecker{executor: executor, logger: logger}
}

// Check logs a warning if ffmpeg is older than the supported minimum.
// Returns the detected major version, or 0 if it could not be parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) int {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-hide_banner", "-version"})
	if err != nil && output == "" {
		return 0
	}

	major := parseMajorVersion(output)
	if major == 0 {
		return 0
	}
	if major < minFFmpegMajorVersion {
		vc.logger.Warn("ffmpeg is older than recommended",
			zap.Int("detected", major), zap.Int("recommended", minFFmpegMajorVersion))
	}
	return major
}

// parseMajorVersion reads "ffmpeg version 6.1.1 ..." or "ffmpeg version n6.1.1 ...".
func parseMajorVersion(output string) int {
	first, _, _ := strings.Cut(output, "\n")
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major
	}
	return 0
}

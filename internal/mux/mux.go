package mux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
)

// audioStreamPattern matches an audio stream line of `ffmpeg -i` output,
// e.g. "  Stream #0:1[0x2](und): Audio: aac (LC) ...".
var audioStreamPattern = regexp.MustCompile(`(?m)^\s*Stream #0:\d+.*: Audio: `)

// Runner executes ffmpeg. Satisfied by *ffmpeg.Executor.
type Runner interface {
	Run(ctx context.Context, ffmpegPath string, args []string) error
	RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error)
}

// Muxer runs mux plans with a resolved ffmpeg binary.
type Muxer struct {
	FFmpegPath string
	Runner     Runner
	Logger     *zap.Logger
}

// Prepare discovers the files in folder and returns a plan for them,
// including the number of audio streams already in the video.
func (m Muxer) Prepare(ctx context.Context, folder string) (Plan, error) {
	video, audio, err := Discover(folder)
	if err != nil {
		return Plan{}, err
	}

	p := NewPlan(video, audio, m.logger())
	p.OriginalAudio, err = m.probeAudio(ctx, video)
	if err != nil {
		return Plan{}, err
	}
	return p, nil
}

// probeAudio counts the audio streams of video. `ffmpeg -i` without an
// output always exits non-zero, so only an empty report is an error.
func (m Muxer) probeAudio(ctx context.Context, video string) (int, error) {
	out, err := m.Runner.RunOutput(ctx, m.FFmpegPath, []string{"-hide_banner", "-i", video})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if out == "" && err != nil {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(video), err)
	}
	return len(audioStreamPattern.FindAllString(out, -1)), nil
}

// Run executes p, then swaps the files: Input becomes Input+".bak" and
// Output takes Input's name. A failed or canceled run removes the partial
// output and leaves Input untouched.
func (m Muxer) Run(ctx context.Context, p Plan) error {
	logger := m.logger()
	logger.Info("muxing files",
		zap.String("video", filepath.Base(p.Input)),
		zap.Int("tracks", len(p.Tracks)),
		zap.Int("original_audio", p.OriginalAudio))

	if err := m.Runner.Run(ctx, m.FFmpegPath, p.Args()); err != nil {
		if rmErr := os.Remove(p.Output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("cannot remove partial output", zap.String("file", p.Output), zap.Error(rmErr))
		}
		return fmt.Errorf("mux %s: %w", filepath.Base(p.Input), err)
	}
	logger.Info("muxing finished")

	return swap(p.Input, p.Output, logger)
}

// swap renames input to its backup and output to input.
func swap(input, output string, logger *zap.Logger) error {
	logger.Info("renaming files", zap.String("backup", filepath.Base(input)+BackupSuffix))

	backup := input + BackupSuffix
	if err := os.Rename(input, backup); err != nil {
		return fmt.Errorf("%w: backup: %w", ErrSwap, err)
	}
	if err := os.Rename(output, input); err != nil {
		if restoreErr := os.Rename(backup, input); restoreErr != nil {
			logger.Error("cannot restore original video", zap.String("backup", backup), zap.Error(restoreErr))
		}
		return fmt.Errorf("%w: %w", ErrSwap, err)
	}
	return nil
}

func (m Muxer) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

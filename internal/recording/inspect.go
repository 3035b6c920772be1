package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tcolgate/mp3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxInspectWorkers bounds concurrent MP3 decoding.
const maxInspectWorkers = 4

// Track describes a downloaded audio file.
type Track struct {
	Path     string
	Duration time.Duration
	Frames   int
}

// Inspect decodes every MP3 frame header of paths concurrently and returns
// the tracks in input order. Undecodable files are reported with zero
// duration and a warning; only context cancellation is an error.
func Inspect(ctx context.Context, paths []string, logger *zap.Logger) ([]Track, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tracks := make([]Track, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInspectWorkers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dur, frames, err := mp3Duration(p)
			tracks[i] = Track{Path: p, Duration: dur, Frames: frames}
			if err != nil {
				logger.Warn("cannot decode audio track", zap.String("file", filepath.Base(p)), zap.Error(err))
				return nil
			}
			if frames == 0 {
				logger.Warn("audio track has no MP3 frames", zap.String("file", filepath.Base(p)))
				return nil
			}
			logger.Debug("audio track", zap.String("file", filepath.Base(p)), zap.Duration("duration", dur), zap.Int("frames", frames))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// mp3Duration sums frame durations, stopping at the first undecodable
// frame after at least one good one.
func mp3Duration(p string) (time.Duration, int, error) {
	f, err := os.Open(p) // #nosec G304 -- file in the user's media folder
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	decoder := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return total, frames, nil
			}
			if frames > 0 {
				return total, frames, nil
			}
			return 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
		}
		total += frame.Duration()
		frames++
	}
}

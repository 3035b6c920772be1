package recording_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/avremote/internal/recording"
)

func TestInspect_NonAudioIsReportedNotFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("not really audio"), 0644))
		paths = append(paths, p)
	}

	tracks, err := recording.Inspect(context.Background(), paths, nil)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	for i, tr := range tracks {
		assert.Equal(t, paths[i], tr.Path)
		assert.Zero(t, tr.Frames)
	}
}

func TestInspect_MissingFileIsReportedNotFatal(t *testing.T) {
	t.Parallel()

	tracks, err := recording.Inspect(context.Background(), []string{filepath.Join(t.TempDir(), "gone.mp3")}, nil)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Zero(t, tracks[0].Duration)
}

func TestInspect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := recording.Inspect(ctx, []string{"x.mp3"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/alnah/avremote/internal/cocon"
)

// Lister returns the device's recording file listing.
type Lister interface {
	RecordingFiles(ctx context.Context) ([]cocon.FileInfo, error)
}

// Find lists the device files and selects them against ref (nil: no time filter).
func (c Correlator) Find(ctx context.Context, l Lister, ref *time.Time) (Selection, error) {
	files, err := l.RecordingFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recording files: %w", err)
	}
	return c.Select(files, ref)
}

// DownloadSession downloads, one at a time, every device file correlated
// with s into s.Folder and returns the local paths in channel order.
// ErrNoFiles is returned when nothing matches.
func DownloadSession(ctx context.Context, s Session, l Lister, c Correlator, d Downloader) ([]string, error) {
	ref := s.Reference()
	selected, err := c.Find(ctx, l, &ref)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("session %s (tolerance %s): %w", s.Stamp(), c.Tolerance, ErrNoFiles)
	}

	paths := make([]string, 0, len(selected))
	for _, ch := range selected.Channels() {
		p, err := d.Fetch(ctx, selected[ch].URL, s.Folder)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/apierr"
	"github.com/alnah/avremote/internal/format"
)

// chunkSize is the copy buffer size for downloads.
const chunkSize = 8192

// Opener starts an HTTP download.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Downloader retrieves device files into a local folder.
type Downloader struct {
	Opener Opener
	Logger *zap.Logger
}

// Fetch downloads fileURL into folder and returns the local path.
// An empty result is an apierr.ErrIntegrity failure and the file is removed.
func (d Downloader) Fetch(ctx context.Context, fileURL, folder string) (string, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	name, err := localName(fileURL)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(folder, name)
	logger.Info("downloading", zap.String("url", fileURL), zap.String("dest", dest))

	body, err := d.Opener.Open(ctx, fileURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	size, err := writeChunks(body, dest)
	if err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("download %s: %w", fileURL, err)
	}
	if size == 0 {
		_ = os.Remove(dest)
		return "", fmt.Errorf("file %s was empty: %w", fileURL, apierr.ErrIntegrity)
	}

	logger.Info("download finished", zap.String("url", fileURL), zap.String("size", format.Size(size)))
	return dest, nil
}

// writeChunks copies r to dest in chunkSize reads, skipping empty reads,
// and returns the on-disk size after close.
func writeChunks(r io.Reader, dest string) (int64, error) {
	f, err := os.Create(dest) // #nosec G304 -- dest is inside the user's media folder
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				_ = f.Close()
				return 0, fmt.Errorf("write %s: %w", dest, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = f.Close()
			return 0, fmt.Errorf("read body: %w: %w", readErr, apierr.ErrTransport)
		}
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", dest, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// localName returns the last path element of fileURL.
func localName(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", fileURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url %q has no file name", fileURL)
	}
	return name, nil
}

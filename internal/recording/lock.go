package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LockFile is the marker telling the recorder's housekeeping that the
// media folder is being processed.
const LockFile = "recording_stopped_script_running"

// Lock is an advisory marker file in a media folder.
// It is not create-exclusive: concurrent runs on one folder are not guarded.
type Lock struct {
	Path   string
	Logger *zap.Logger
}

// NewLock returns the lock for folder.
func NewLock(folder string, logger *zap.Logger) *Lock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lock{Path: filepath.Join(folder, LockFile), Logger: logger}
}

// Acquire creates the marker (or refreshes it if present).
func (l *Lock) Acquire() error {
	l.Logger.Info("locking media folder", zap.String("folder", filepath.Dir(l.Path)))

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_WRONLY, 0644) // #nosec G302 G304 -- marker in user folder
	if err != nil {
		return fmt.Errorf("create lock marker: %w", err)
	}
	return f.Close()
}

// Release removes the marker. A missing marker is logged, not returned:
// release runs on every exit path and must never mask the original error.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.Logger.Info("unlocking media folder", zap.String("folder", filepath.Dir(l.Path)))

	err := os.Remove(l.Path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		l.Logger.Warn("cannot unlock media folder: marker not found", zap.String("path", l.Path))
	default:
		l.Logger.Error("cannot unlock media folder", zap.String("path", l.Path), zap.Error(err))
	}
}

// Held reports whether the marker currently exists.
func (l *Lock) Held() bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

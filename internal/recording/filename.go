package recording

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// StampLayout is the device's filename time format, e.g. 2020-06-17_15h22m56s.
const StampLayout = "2006-01-02_15h04m05s"

// UnknownChannel labels entries whose filename could not be parsed.
const UnknownChannel = "Unknown"

// ParseFilename extracts the capture time and channel label from a device
// file name or URL of the form <prefix_>YYYY-MM-DD_HHhMMmSSs_<channel>.mp3.
//
// The channel keeps any further underscores (01-FR_01). On failure the
// returned time is nil, the channel is UnknownChannel and err describes the
// problem; callers treat it as a diagnostic, not a failure.
func ParseFilename(name, prefix string) (*time.Time, string, error) {
	stem := strings.TrimSuffix(path.Base(name), ".mp3")
	if prefix != "" {
		stem = strings.Replace(stem, prefix+"_", "", 1)
	}

	fields := strings.SplitN(stem, "_", 3)
	if len(fields) != 3 || fields[2] == "" {
		return nil, UnknownChannel, fmt.Errorf("%s: expected <date>_<time>_<channel>, got %q: %w", name, stem, ErrFilename)
	}

	t, err := time.ParseInLocation(StampLayout, fields[0]+"_"+fields[1], time.Local)
	if err != nil {
		return nil, UnknownChannel, fmt.Errorf("%s: %v: %w", name, err, ErrFilename)
	}
	return &t, fields[2], nil
}

// FormatStamp renders t in the device's filename time format.
func FormatStamp(t time.Time) string {
	return t.Format(StampLayout)
}

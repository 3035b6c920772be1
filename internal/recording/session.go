package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataFile is the session metadata record written next to the video.
const MetadataFile = "metadata.json"

// creationLayouts are the ISO-8601 forms accepted for "creation". Zone-less
// values are interpreted in local time, like the device clock.
var creationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Session is one recording session stored in a media folder.
type Session struct {
	Folder   string
	Creation time.Time
}

type metadata struct {
	Creation string `json:"creation"`
}

// LoadSession reads <folder>/metadata.json.
func LoadSession(folder string) (Session, error) {
	p := filepath.Join(folder, MetadataFile)
	data, err := os.ReadFile(p) // #nosec G304 -- media folder is user-specified
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %v: %w", p, err, ErrMetadata)
	}

	var m metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Session{}, fmt.Errorf("decode %s: %v: %w", p, err, ErrMetadata)
	}
	if m.Creation == "" {
		return Session{}, fmt.Errorf("%s: creation missing: %w", p, ErrMetadata)
	}

	creation, err := ParseCreation(m.Creation)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", p, err)
	}
	return Session{Folder: folder, Creation: creation}, nil
}

// ParseCreation parses an ISO-8601 timestamp.
func ParseCreation(s string) (time.Time, error) {
	for _, layout := range creationLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("creation %q is not an ISO-8601 timestamp: %w", s, ErrMetadata)
}

// Stamp returns the creation time in the device's filename format.
func (s Session) Stamp() string {
	return FormatStamp(s.Creation)
}

// Reference returns the correlation time: the creation wall clock read
// back in local time, the way the device stamps its filenames.
func (s Session) Reference() time.Time {
	t, err := time.ParseInLocation(StampLayout, s.Stamp(), time.Local)
	if err != nil {
		return s.Creation
	}
	return t
}

package recording

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/cocon"
	"github.com/alnah/avremote/internal/format"
)

// floorMarker identifies the floor (room mix) channel.
const floorMarker = "Floor"

// RemoteFile is one channel's recording on the device.
type RemoteFile struct {
	Name    string
	Channel string
	// Time is nil when the filename could not be parsed.
	Time *time.Time
	URL  string
}

// Selection maps channel labels to the file kept for that channel.
type Selection map[string]RemoteFile

// URLs returns the selected file URLs in channel order.
func (s Selection) URLs() []string {
	urls := make([]string, 0, len(s))
	for _, ch := range s.Channels() {
		urls = append(urls, s[ch].URL)
	}
	return urls
}

// Channels returns the channel labels sorted lexically.
func (s Selection) Channels() []string {
	channels := make([]string, 0, len(s))
	for ch := range s {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	return channels
}

// URLResolver turns a listing name into a download URL.
type URLResolver interface {
	FileURL(name string) (string, error)
}

// Correlator matches device files against a recording session.
type Correlator struct {
	Prefix       string
	IncludeFloor bool
	Tolerance    time.Duration
	Resolver     URLResolver
	Logger       *zap.Logger
}

// Select filters the listing. With ref == nil every parsed entry is kept;
// otherwise only entries whose time is within Tolerance of ref. In both
// cases the last listed entry wins for a given channel, the device lists
// files oldest first.
func (c Correlator) Select(files []cocon.FileInfo, ref *time.Time) (Selection, error) {
	logger := c.logger()
	selected := make(Selection)

	for _, f := range files {
		t, channel, err := ParseFilename(f.Name, c.Prefix)
		if err != nil {
			logger.Warn("failed to parse filename, check that the prefix is correct and that hourly file splitting is disabled on the device",
				zap.String("file", f.Name), zap.Error(err))
		}

		if strings.Contains(channel, floorMarker) && !c.IncludeFloor {
			logger.Debug("skipping floor channel", zap.String("file", f.Name))
			continue
		}

		if ref != nil {
			if t == nil || !c.within(*t, *ref) {
				continue
			}
			logger.Debug("file matches session", zap.String("file", f.Name), zap.String("offset", format.Offset(t.Sub(*ref))))
		}

		u, err := c.Resolver.FileURL(f.Name)
		if err != nil {
			return nil, err
		}
		selected[channel] = RemoteFile{Name: f.Name, Channel: channel, Time: t, URL: u}
	}

	if len(selected) == 0 {
		stamp := "<none>"
		if ref != nil {
			stamp = FormatStamp(*ref)
		}
		logger.Warn(fmt.Sprintf("no audio files found for start timestamp %s, check clock sync or increase tolerance", stamp),
			zap.Duration("tolerance", c.Tolerance))
	} else {
		logger.Info("found files", zap.Strings("urls", selected.URLs()))
	}
	return selected, nil
}

// within reports whether |t-ref| <= Tolerance.
func (c Correlator) within(t, ref time.Time) bool {
	diff := t.Sub(ref)
	if diff < 0 {
		diff = -diff
	}
	return diff <= c.Tolerance
}

func (c Correlator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

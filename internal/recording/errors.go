package recording

import "errors"

var (
	// ErrNoFiles indicates no device file matched the recording session.
	ErrNoFiles = errors.New("no audio files found")

	// ErrMetadata indicates the session metadata record is missing or unreadable.
	ErrMetadata = errors.New("invalid session metadata")

	// ErrFilename indicates a device filename does not follow the
	// <prefix_>YYYY-MM-DD_HHhMMmSSs_<channel>.mp3 convention.
	ErrFilename = errors.New("unrecognized recording filename")
)

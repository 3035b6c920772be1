package cli

import "errors"

// CLI-specific sentinel errors.
// These are usage errors that don't belong to domain packages.

var (
	// ErrInvalidCommand indicates -c named no known command.
	ErrInvalidCommand = errors.New("invalid command")
)

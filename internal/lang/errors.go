package lang

import "errors"

// ErrInvalid indicates a language code could not be mapped to ISO 639-2/T.
var ErrInvalid = errors.New("invalid language code")

// ErrNotFound indicates no language hint was present.
var ErrNotFound = errors.New("no language hint")

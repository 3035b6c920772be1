// Package lang detects the language of interpretation channels.
//
// Channel recordings carry an ISO 639-1 hint in their filename
// (RoomA_2020-06-17_15h22m56s_01-FR_01.mp3 is French). Container
// metadata wants ISO 639-2/T codes ("fra"), so hints are mapped through
// golang.org/x/text/language.
package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// ISO639T maps an ISO 639-1 code ("fr") or an ISO 639-2/3 code ("fra",
// "fre") to its ISO 639-2 terminology code ("fra").
func ISO639T(code string) (string, error) {
	normalized := Normalize(strings.TrimSpace(code))
	if len(normalized) != 2 && len(normalized) != 3 {
		return "", fmt.Errorf("language code %q must have 2 or 3 letters: %w", code, ErrInvalid)
	}

	base, err := language.ParseBase(normalized)
	if err != nil {
		return "", fmt.Errorf("language code %q: %v: %w", code, err, ErrInvalid)
	}

	iso3 := base.ISO3()
	if len(iso3) != 3 {
		return "", fmt.Errorf("language code %q has no ISO 639-2 equivalent: %w", code, ErrInvalid)
	}
	return iso3, nil
}

// FromFilename extracts the language hint of a channel recording.
// The hint follows the first hyphen of the second-to-last underscore
// segment (..._01-FR_01.mp3); the last segment is tried as a fallback
// (..._01-FR.mp3). Returns ErrNotFound when no segment carries a hint.
func FromFilename(name string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	segments := strings.Split(stem, "_")

	var candidates []string
	if n := len(segments); n >= 2 {
		candidates = append(candidates, segments[n-2])
	}
	candidates = append(candidates, segments[len(segments)-1])

	var lastErr error
	for _, seg := range candidates {
		_, hint, ok := strings.Cut(seg, "-")
		if !ok || hint == "" {
			continue
		}
		code, err := ISO639T(hint)
		if err == nil {
			return code, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(name), lastErr)
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(name), ErrNotFound)
}

// FromFile reads the ID3v2 TLAN frame of an audio file.
func FromFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- file in the user's media folder
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", fmt.Errorf("%s: read tags: %v: %w", filepath.Base(path), err, ErrNotFound)
	}

	raw, _ := meta.Raw()["TLAN"].(string)
	raw = strings.TrimSpace(strings.Trim(raw, "\x00"))
	if raw == "" {
		return "", fmt.Errorf("%s: no TLAN frame: %w", filepath.Base(path), ErrNotFound)
	}
	return ISO639T(raw)
}

// Detect returns the ISO 639-2/T code for an audio track, trying the
// filename first and the file's tags second. When code is empty, diag
// explains why; diag may also be non-nil alongside a code obtained from
// the fallback.
func Detect(path string) (code string, diag error) {
	code, nameErr := FromFilename(path)
	if nameErr == nil {
		return code, nil
	}

	code, tagErr := FromFile(path)
	if tagErr == nil {
		return code, nameErr
	}
	return "", fmt.Errorf("%w; %w", nameErr, tagErr)
}

// DisplayName returns the English name of an ISO 639 code, or the code itself.
func DisplayName(code string) string {
	tag, err := language.Parse(Normalize(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

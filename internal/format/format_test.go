package format_test

import (
	"testing"
	"time"

	"github.com/alnah/avremote/internal/format"
)

// ---------------------------------------------------------------------------
// TestDuration - Formats duration as HH:MM:SS or MM:SS
// ---------------------------------------------------------------------------

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "00:00"},
		{name: "boundary: 59 seconds", input: 59 * time.Second, want: "00:59"},
		{name: "mixed minutes and seconds", input: 5*time.Minute + 30*time.Second, want: "05:30"},
		{name: "boundary: exactly 1 hour", input: time.Hour, want: "01:00:00"},
		{name: "long session", input: 3*time.Hour + 7*time.Minute + 9*time.Second, want: "03:07:09"},
		{name: "sub-second truncated", input: 1500 * time.Millisecond, want: "00:01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Duration(tt.input); got != tt.want {
				t.Errorf("Duration(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestOffset - Formats signed clock differences
// ---------------------------------------------------------------------------

func TestOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "+0s"},
		{12 * time.Second, "+12s"},
		{-3*time.Second - 400*time.Millisecond, "-3s"},
		{-90 * time.Second, "-1m30s"},
	}

	for _, tt := range tests {
		if got := format.Offset(tt.input); got != tt.want {
			t.Errorf("Offset(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestSize - Formats bytes for display
// ---------------------------------------------------------------------------

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{name: "zero", input: 0, want: "0 bytes"},
		{name: "boundary: 1023 bytes", input: 1023, want: "1023 bytes"},
		{name: "boundary: 1 KB", input: 1024, want: "1 KB"},
		{name: "typical mp3 chunk", input: 8192, want: "8 KB"},
		{name: "boundary: 1 MB", input: 1024 * 1024, want: "1 MB"},
		{name: "boundary: 1 GB", input: 1024 * 1024 * 1024, want: "1.0 GB"},
		{name: "recording video", input: 2560 * 1024 * 1024, want: "2.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Size(tt.input); got != tt.want {
				t.Errorf("Size(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func FuzzSize(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(1024))
	f.Add(int64(1 << 40))

	f.Fuzz(func(t *testing.T, n int64) {
		if n < 0 {
			t.Skip()
		}
		if format.Size(n) == "" {
			t.Errorf("Size(%d) returned empty string", n)
		}
	})
}

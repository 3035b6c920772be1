// Package mux combines a recorded video with per-channel audio tracks.
//
// The output keeps the video stream and any original audio untouched,
// appends each channel MP3 re-encoded to AAC, and tags every added track
// with its ISO 639-2/T language when one can be detected.
package mux

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/lang"
)

const (
	// OutputSuffix replaces ".mp4" in the intermediate output name.
	OutputSuffix = "_multitrack.mp4"

	// BackupSuffix is appended to the original video once muxing succeeds.
	BackupSuffix = ".bak"

	// audioCodec is the encoder for added channel tracks.
	audioCodec = "aac"
)

// Track is one audio file to add. Language is empty when untagged.
type Track struct {
	Path     string
	Language string
}

// Plan describes one mux run.
type Plan struct {
	Input  string
	Output string
	Tracks []Track
	// OriginalAudio is the number of audio streams already in Input.
	// They are copied ahead of the added tracks.
	OriginalAudio int
}

// Discover finds the recording video and channel audio in folder.
// Exactly one .mp4 is required; outputs of a previous run are ignored.
// Audio paths are sorted lexically and may be empty.
func Discover(folder string) (video string, audio []string, err error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", nil, fmt.Errorf("read media folder: %w", err)
	}

	var videos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp4":
			if strings.HasSuffix(name, OutputSuffix) {
				continue
			}
			videos = append(videos, filepath.Join(folder, name))
		case ".mp3":
			audio = append(audio, filepath.Join(folder, name))
		}
	}

	switch len(videos) {
	case 0:
		return "", nil, fmt.Errorf("%w: %s", ErrNoVideo, folder)
	case 1:
	default:
		slices.Sort(videos)
		return "", nil, fmt.Errorf("%w: %s", ErrAmbiguousVideo, strings.Join(baseNames(videos), ", "))
	}

	slices.Sort(audio)
	return videos[0], audio, nil
}

// NewPlan builds a plan for video and audio, detecting each track's
// language. Detection failures are logged and leave the track untagged.
func NewPlan(video string, audio []string, logger *zap.Logger) Plan {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := Plan{
		Input:  video,
		Output: OutputPath(video),
		Tracks: make([]Track, 0, len(audio)),
	}
	for _, a := range audio {
		code, diag := lang.Detect(a)
		switch {
		case code == "":
			logger.Warn("failed to extract language", zap.String("file", filepath.Base(a)), zap.Error(diag))
		case diag != nil:
			logger.Info("detected language from tags", zap.String("file", filepath.Base(a)),
				zap.String("language", code), zap.String("name", lang.DisplayName(code)))
		default:
			logger.Info("detected language", zap.String("file", filepath.Base(a)),
				zap.String("language", code), zap.String("name", lang.DisplayName(code)))
		}
		p.Tracks = append(p.Tracks, Track{Path: a, Language: code})
	}
	return p
}

// OutputPath returns the intermediate output path for video.
func OutputPath(video string) string {
	ext := filepath.Ext(video)
	return strings.TrimSuffix(video, ext) + OutputSuffix
}

// Args returns the ffmpeg arguments for the plan.
//
// Input 0 is the video; input i+1 is Tracks[i]. Original audio streams
// keep output indexes 0..OriginalAudio-1, added tracks follow.
func (p Plan) Args() []string {
	args := []string{"-hide_banner", "-y", "-i", p.Input}
	for _, t := range p.Tracks {
		args = append(args, "-i", t.Path)
	}

	args = append(args, "-map", "0:v")
	if p.OriginalAudio > 0 {
		args = append(args, "-map", "0:a")
	}
	for i := range p.Tracks {
		args = append(args, "-map", strconv.Itoa(i+1)+":a:0")
	}

	args = append(args, "-c:v", "copy")
	for i := 0; i < p.OriginalAudio; i++ {
		args = append(args, "-c:a:"+strconv.Itoa(i), "copy")
	}
	for i, t := range p.Tracks {
		n := strconv.Itoa(p.OriginalAudio + i)
		args = append(args, "-c:a:"+n, audioCodec)
		if t.Language != "" {
			args = append(args, "-metadata:s:a:"+n, "language="+t.Language)
		}
	}

	return append(args, "-f", "mp4", p.Output)
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

package mux

import "errors"

// ErrNoVideo indicates the media folder holds no recording video.
var ErrNoVideo = errors.New("no video file in media folder")

// ErrAmbiguousVideo indicates more than one candidate video in the media folder.
var ErrAmbiguousVideo = errors.New("more than one video file in media folder")

// ErrSwap indicates the muxed output could not replace the original video.
var ErrSwap = errors.New("cannot replace original video")

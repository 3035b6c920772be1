// Package streaming toggles the streaming mode of a camera unit over its
// TCP control port.
//
// The protocol is a fixed set of binary frames. Each request gets exactly
// one fixed-length response on the same connection:
//
//	08 CB20 00     -> 08 CB20 01 01 (streaming) | 08 CB20 01 00 (idle)
//	09 CB20 01 0X  -> 09 CB20 00    (ack)
package streaming

import (
	"encoding/hex"
	"strings"
)

// DefaultPort is the camera's control port.
const DefaultPort = 50915

// Frame is a raw protocol message.
type Frame []byte

// String renders the frame as lowercase hex, e.g. "08cb2000".
func (f Frame) String() string {
	return hex.EncodeToString(f)
}

// Equal reports whether f and other carry the same bytes.
func (f Frame) Equal(other Frame) bool {
	return string(f) == string(other)
}

// mustFrame decodes a spaced hex literal such as "08 CB20 00".
func mustFrame(s string) Frame {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic("streaming: invalid frame literal " + s)
	}
	return b
}

// Requests.
var (
	QueryState = mustFrame("08 CB20 00")
	SetOn      = mustFrame("09 CB20 01 01")
	SetOff     = mustFrame("09 CB20 01 00")
)

// Responses.
var (
	StateOn  = mustFrame("08 CB20 01 01")
	StateOff = mustFrame("08 CB20 01 00")
	Ack      = mustFrame("09 CB20 00")
)

const (
	stateLen = 5
	ackLen   = 4
)

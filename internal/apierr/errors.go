// Package apierr provides the error taxonomy shared by the device clients
// and the dial retry helper used by the raw TCP client.
//
// Clients classify failures into these sentinels at the boundary using
// fmt.Errorf("%s: %w", msg, sentinel). Callers check with errors.Is.
package apierr

import "errors"

// Sentinel errors for device interaction failures.
var (
	// ErrStateMismatch indicates the device did not reach the expected state
	// after a command (e.g. recording still "active" after a stop).
	ErrStateMismatch = errors.New("device state mismatch")

	// ErrTransport indicates the request could not be carried out
	// (connection refused, non-2xx status, broken socket).
	ErrTransport = errors.New("transport failure")

	// ErrProtocol indicates the device answered with a payload we cannot
	// interpret (invalid JSON envelope, unexpected byte pattern).
	ErrProtocol = errors.New("protocol error")

	// ErrIntegrity indicates a retrieved artifact failed verification
	// (e.g. a downloaded file is empty).
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTimeout indicates a device call did not complete in time.
	ErrTimeout = errors.New("device timeout")
)

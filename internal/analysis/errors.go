// SPDX-License-Identifier: MIT
package analysis

import "errors"

// ErrConfiguration is wrapped by every error returned while building or
// reconfiguring an analyzer. A configuration error is fatal to the analyzer
// instance it was reported for.
var ErrConfiguration = errors.New("analysis: invalid configuration")

// ErrInputShape is wrapped by every per-call rejection. The caller should
// skip the visual update for that buffer and carry on.
var ErrInputShape = errors.New("analysis: input shape mismatch")

// Per-call errors are preallocated so that rejecting a buffer on the audio
// thread never allocates.
var (
	ErrBufferLength   error = &shapeError{"buffer length does not match transform size"}
	ErrChannelCount   error = &shapeError{"channel count does not match buffer"}
	ErrMissingChannel error = &shapeError{"missing channel data"}
	ErrSampleRate     error = &shapeError{"sample rate does not match configuration"}
	ErrFrameShape     error = &shapeError{"destination frame has the wrong shape"}
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("analysis: analyzer is closed")

type shapeError struct {
	msg string
}

func (e *shapeError) Error() string { return "analysis: " + e.msg }

func (e *shapeError) Unwrap() error { return ErrInputShape }

/*
NAME
  avderr.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package avderr defines the error taxonomy returned by the decoder,
// allocator and DPB/RLM packages.
package avderr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a decode-time failure.
type Kind int

const (
	// UnsupportedStream marks bitstream features outside the
	// hardware's capability: interlaced H.264, differing luma/chroma
	// bit depth, pic_order_cnt_type != 0, long-term reference
	// reordering in H.264, frame-num gaps.
	UnsupportedStream Kind = iota
	// MalformedStream marks a pre-parser rejection: NAL, IVF or
	// tile-size math inconsistent.
	MalformedStream
	// DimensionUnsupported marks width/height outside [64, 4096], or
	// not a multiple of 2 (H.265) / not 16-align-compatible (H.264).
	DimensionUnsupported
	// DPBExhausted marks a failed slot acquisition in GetFreePic.
	// Fatal: the caller must abort the decode.
	DPBExhausted
)

func (k Kind) String() string {
	switch k {
	case UnsupportedStream:
		return "unsupported stream"
	case MalformedStream:
		return "malformed stream"
	case DimensionUnsupported:
		return "dimension unsupported"
	case DPBExhausted:
		return "dpb exhausted"
	default:
		return "unknown"
	}
}

// Error is the error type returned for Kind-classified failures.
// Categories 1-4 (everything this type represents) abort the current
// decode call and leave the context unchanged: no access_idx bump.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("avd: %s: %s", e.Kind, e.msg)
}

// New constructs an Error of the given kind with a formatted message.
func New(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches stack context to err and classifies it under k,
// matching codec/h264/h264dec's errors.Wrap convention.
func Wrap(err error, k Kind, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&Error{Kind: k, msg: msg}, err.Error())
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == k
}

// ReferenceMissingAddr and ReferenceMissingFlags are the synthetic
// placeholder values substituted for a reference picture that could
// not be found in the DPB after list construction (spec category 5).
// Unlike the Kind values above, ReferenceMissing is not surfaced as an
// error: the caller receives a placeholder picture and decoding
// continues, matching macOS fault-tolerant behavior.
const (
	ReferenceMissingAddr  = 0xdead
	ReferenceMissingFlags = 0
)

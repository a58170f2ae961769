/*
NAME
  instruction.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package instruction implements the append-only 32-bit word stream
// emitted by a HAL, and the FpField tag enum used to mirror each word
// into a FrameParams sink.
package instruction

// FpField names a FrameParams field an Instruction mirrors into. It
// replaces the string instruction tags of the reference implementation
// this module is grounded on: a typed enum plus a per-codec
// to-field-offset mapping keeps the named-tag testing contract intact
// without runtime reflection.
type FpField int

// Instruction is one 32-bit word written to the hardware FIFO,
// together with the bookkeeping needed to mirror it into a FrameParams
// blob for differential testing.
type Instruction struct {
	Val  uint32 // the word written to the hardware FIFO.
	Name FpField
	Idx  int  // index into an array-valued FrameParams field, or -1.
	Pos  int  // monotonic position in the stream.
}

// NoIndex marks an Instruction whose Name field is scalar, not array
// valued.
const NoIndex = -1

// Sink receives a mirrored field write. A codec's FrameParams type
// implements Sink so the HAL emitter can update it in lockstep with
// the instruction stream (spec invariant P2).
type Sink interface {
	SetField(name FpField, idx int, val uint32)
}

// Stream is the append-only instruction sequence produced by one
// decode call.
type Stream struct {
	insts []Instruction
	sink  Sink
}

// NewStream returns a Stream that mirrors every emitted instruction
// into sink. sink may be nil, in which case mirroring is skipped (used
// by tests that only care about the raw word stream).
func NewStream(sink Sink) *Stream {
	return &Stream{sink: sink}
}

// Emit appends a scalar-field instruction and mirrors it into the
// sink.
func (s *Stream) Emit(val uint32, name FpField) {
	s.emit(val, name, NoIndex)
}

// EmitIndexed appends an array-field instruction at idx and mirrors it
// into the sink.
func (s *Stream) EmitIndexed(val uint32, name FpField, idx int) {
	s.emit(val, name, idx)
}

func (s *Stream) emit(val uint32, name FpField, idx int) {
	pos := len(s.insts)
	s.insts = append(s.insts, Instruction{Val: val, Name: name, Idx: idx, Pos: pos})
	if s.sink != nil {
		s.sink.SetField(name, idx, val)
	}
}

// Instructions returns the full instruction slice in emission order.
// The caller must not mutate it.
func (s *Stream) Instructions() []Instruction { return s.insts }

// Words flattens the stream to the raw []uint32 sequence that is
// written to the hardware FIFO.
func (s *Stream) Words() []uint32 {
	out := make([]uint32, len(s.insts))
	for i, inst := range s.insts {
		out[i] = inst.Val
	}
	return out
}

// Len returns the number of instructions emitted so far.
func (s *Stream) Len() int { return len(s.insts) }

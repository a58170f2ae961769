/*
NAME
  annexb.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package bitstream implements the pre-parser adaptor (spec §4.5): it
// consumes an already-demuxed NAL/IVF bitstream and produces the
// normalized NAL-unit and tile records the per-codec packages build
// SliceHeader/SPS/PPS values from. It does not parse slice-header
// syntax elements itself; a caller-supplied parser is assumed to do
// that (spec §1, out of scope), this package only locates NAL/tile
// boundaries and applies the hardware's payload framing conventions.
package bitstream

import (
	"bufio"
	"io"

	"github.com/avdstream/avd/avderr"
)

// Scanner locates Annex-B start codes in an H.264/H.265 byte stream.
// Adapted from codecutil.ByteScanner: a small buffered reader with a
// ScanUntil-style cursor, specialized here to the 3/4-byte start-code
// alphabet instead of a single delimiter byte.
type Scanner struct {
	r   *bufio.Reader
	buf []byte
	// synced records that the last read already consumed the start code
	// in front of the next NAL unit.
	synced bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// NALUnit is one classified Annex-B NAL unit.
type NALUnit struct {
	RefIdc byte   // nal_ref_idc (H.264) / unused (H.265).
	Type   int    // nal_unit_type.
	RBSP   []byte // raw NAL payload, start code stripped, emulation
	// prevention bytes NOT removed (left to the caller's slice-header
	// parser, which already handles unescaping).
}

// Next reads the next NAL unit from the stream, skipping leading start
// codes. It returns io.EOF when the stream is exhausted.
func (s *Scanner) Next() (NALUnit, error) {
	if !s.synced {
		if err := s.syncToStartCode(); err != nil {
			return NALUnit{}, err
		}
	}
	s.synced = false
	payload, err := s.readUntilNextStartCode()
	if err != nil && err != io.EOF {
		return NALUnit{}, avderr.New(avderr.MalformedStream, "bitstream: annex-b scan: %v", err)
	}
	if len(payload) == 0 {
		return NALUnit{}, io.EOF
	}
	header := payload[0]
	return NALUnit{
		RefIdc: (header >> 5) & 0x3,
		Type:   int(header & 0x1f),
		RBSP:   payload[1:],
	}, nil
}

// syncToStartCode advances s past leading zero bytes up to and
// including the next 0x01 marker byte of a 00 00 01 / 00 00 00 01
// start code.
func (s *Scanner) syncToStartCode() error {
	zeros := 0
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == 0x00:
			zeros++
		case b == 0x01 && zeros >= 2:
			return nil
		default:
			zeros = 0
		}
	}
}

// readUntilNextStartCode reads bytes into s.buf until it encounters
// the next start code or EOF, and returns the accumulated bytes. A start
// code that ends the read is consumed and recorded in s.synced, so the
// next call to Next does not sync again.
func (s *Scanner) readUntilNextStartCode() ([]byte, error) {
	s.buf = s.buf[:0]
	zeros := 0
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return s.buf, io.EOF
			}
			return s.buf, err
		}
		if b == 0x00 {
			zeros++
			s.buf = append(s.buf, b)
			continue
		}
		if b == 0x01 && zeros >= 2 {
			// Found the next start code: trim the 00 00 (00) prefix we
			// already appended and record that the start code has been
			// consumed.
			n := 2
			if zeros >= 3 {
				n = 3
			}
			s.buf = s.buf[:len(s.buf)-n]
			s.synced = true
			return s.buf, nil
		}
		zeros = 0
		s.buf = append(s.buf, b)
	}
}

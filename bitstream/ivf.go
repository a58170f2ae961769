/*
NAME
  ivf.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package bitstream

import (
	"encoding/binary"
	"io"

	"github.com/avdstream/avd/avderr"
)

// IVFHeader is the 32-byte IVF container header.
type IVFHeader struct {
	FourCC      string
	Width       uint16
	Height      uint16
	FrameRate   uint32
	FrameScale  uint32
	FrameCount  uint32
}

// IVFFrame is one demuxed IVF frame payload.
type IVFFrame struct {
	Payload   []byte
	Timestamp uint64
}

// IVFDemuxer reads an IVF container frame by frame (spec §4.5: "For
// VP9: demux IVF"). Grounded on the reference implementation's
// IVFDemuxer, which reads the whole file up front; this version
// streams from an io.Reader instead since file I/O is a caller
// concern here.
type IVFDemuxer struct {
	r      io.Reader
	Header IVFHeader
}

// NewIVFDemuxer reads and validates the IVF header from r.
func NewIVFDemuxer(r io.Reader) (*IVFDemuxer, error) {
	var raw [32]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, avderr.New(avderr.MalformedStream, "bitstream: short IVF header: %v", err)
	}
	if string(raw[0:4]) != "DKIF" {
		return nil, avderr.New(avderr.MalformedStream, "bitstream: bad IVF signature %q", raw[0:4])
	}
	version := binary.LittleEndian.Uint16(raw[4:6])
	length := binary.LittleEndian.Uint16(raw[6:8])
	if version != 0 || length != 32 {
		return nil, avderr.New(avderr.MalformedStream, "bitstream: unsupported IVF header version/length")
	}
	h := IVFHeader{
		FourCC:     string(raw[8:12]),
		Width:      binary.LittleEndian.Uint16(raw[12:14]),
		Height:     binary.LittleEndian.Uint16(raw[14:16]),
		FrameRate:  binary.LittleEndian.Uint32(raw[16:20]),
		FrameScale: binary.LittleEndian.Uint32(raw[20:24]),
		FrameCount: binary.LittleEndian.Uint32(raw[24:28]),
	}
	if h.FourCC != "VP90" {
		return nil, avderr.New(avderr.UnsupportedStream, "bitstream: unsupported IVF fourcc %q", h.FourCC)
	}
	return &IVFDemuxer{r: r, Header: h}, nil
}

// ReadFrame reads the next IVF frame. It returns io.EOF when the
// stream is exhausted.
func (d *IVFDemuxer) ReadFrame() (IVFFrame, error) {
	var fh [12]byte
	if _, err := io.ReadFull(d.r, fh[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return IVFFrame{}, io.EOF
		}
		return IVFFrame{}, avderr.New(avderr.MalformedStream, "bitstream: short IVF frame header: %v", err)
	}
	size := binary.LittleEndian.Uint32(fh[0:4])
	ts := binary.LittleEndian.Uint64(fh[4:12])
	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return IVFFrame{}, avderr.New(avderr.MalformedStream, "bitstream: short IVF frame payload: %v", err)
	}
	return IVFFrame{Payload: payload, Timestamp: ts}, nil
}

// Tile is one VP9 tile's byte range within a frame's payload.
type Tile struct {
	Row, Col int
	Size     int
	Offset   int
}

// SplitTiles splits a VP9 frame payload into per-tile byte ranges
// using the in-band tile-size headers (spec §4.5), after the
// uncompressed and compressed frame headers. Every tile but the last
// is preceded by a 4-byte big-endian size; the last tile's size is
// whatever bytes remain.
func SplitTiles(payload []byte, headerSize int, tileRowsLog2, tileColsLog2 int) ([]Tile, error) {
	numRows := 1 << tileRowsLog2
	numCols := 1 << tileColsLog2
	offset := headerSize
	remaining := len(payload) - headerSize
	if remaining < 0 {
		return nil, avderr.New(avderr.MalformedStream, "bitstream: VP9 header size %d exceeds payload %d", headerSize, len(payload))
	}
	var tiles []Tile
	for row := 0; row < numRows; row++ {
		for col := 0; col < numCols; col++ {
			last := row == numRows-1 && col == numCols-1
			var size int
			if last {
				size = remaining
			} else {
				if offset+4 > len(payload) {
					return nil, avderr.New(avderr.MalformedStream, "bitstream: truncated VP9 tile-size header at offset %d", offset)
				}
				size = int(uint32(payload[offset])<<24 | uint32(payload[offset+1])<<16 | uint32(payload[offset+2])<<8 | uint32(payload[offset+3]))
				offset += 4
				remaining -= 4
			}
			if offset+size > len(payload) {
				return nil, avderr.New(avderr.MalformedStream, "bitstream: VP9 tile row %d col %d size %d exceeds payload", row, col, size)
			}
			tiles = append(tiles, Tile{Row: row, Col: col, Size: size, Offset: offset})
			offset += size
			remaining -= size
		}
	}
	return tiles, nil
}

/*
NAME
  slice.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"github.com/avdstream/avd/bitstream"
	"github.com/avdstream/avd/picture"
)

// Frame is the normalized, typed view of one VP9 uncompressed header
// plus tile list a caller-supplied parser must produce (spec §1, §3).
type Frame struct {
	Idx                        int
	FrameType                  int
	FrameWidth, FrameHeight    int
	BaseQIdx                   int
	LoopFilterLevel            int
	TxfmMode                   int
	IsFilterSwitchable         bool
	RawInterpolationFilterType int

	RefFrameIdx       [RefsPerFrame]int
	RefreshFrameFlags uint8

	Tiles []bitstream.Tile

	// Pic is the current picture, set by the DPB manager's InitSlice.
	Pic *picture.Picture
	// Refs holds the three RefFrameMap entries RefFrameIdx resolves to,
	// set by the DPB manager's InitSlice.
	Refs [RefsPerFrame]*picture.Picture
}

// PayloadSize returns the total tile-data byte length, the VP9
// analogue of h264/h265's SliceHeader.PayloadSize.
func (f *Frame) PayloadSize() int {
	var n int
	for _, t := range f.Tiles {
		n += t.Size
	}
	return n
}

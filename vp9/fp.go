/*
NAME
  fp.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"encoding/binary"

	"github.com/avdstream/avd/instruction"
)

// FrameParamsSize is the VP9 frame-parameter blob size (spec §6: "VP9
// uses ~0x1c4"); past 0x178 it carries the CM3/tile scratch fields the
// reference implementation's debug dict tracks under ad hoc names with
// no fixed struct slot of their own.
const FrameParamsSize = 0x200

type FpField = instruction.FpField

const (
	FieldHdr28HeightWidthShift3 FpField = iota
	FieldHdr2cTxfmMode
	FieldHdr30CmdStartHdr
	FieldHdr34Const20
	FieldHdr38HeightWidth
	FieldHdr3cZero
	FieldHdr40Flags1Pt1
	FieldHdr44Flags1Pt2
	FieldHdr48LoopFilterLevel
	FieldHdr4cBaseQIdx
	FieldHdr50
	FieldHdr70RefHeightWidth
	FieldHdr7cRefSize
	FieldHdr88
	FieldHdr8c
	FieldHdr90
	FieldHdrA0
	FieldHdrE0Const240
	FieldHdrE4
	FieldHdrE8AddrLSB8
	FieldHdr11cAddrLSB8
	FieldHdr12cPad
	FieldHdr138Ef0AddrLSB8
	FieldHdr144Ef1AddrLSB8
	FieldHdr150Ef2AddrLSB8
	FieldHdr15cEf3AddrLSB8
	FieldHdr168YAddrLSB8
	FieldHdr16cUVAddrLSB8
	FieldHdr170WidthAlign
	FieldHdr174WidthAlign
	FieldHdr178Zero

	// Fields below have no fixed slot in the construct-parsed reference
	// struct; the reference HAL tags them by ad hoc debug name instead
	// of a struct offset. They are given their own mirror slots here so
	// that every emitted instruction still round-trips through
	// FrameParams (spec §8 P2), even where the reference implementation
	// itself only ever used the tag for console display.
	FieldCM3CmdInstFIFOStart
	FieldCM3DmaConfig0
	FieldCM3DmaConfig1
	FieldCM3DmaConfig2
	FieldCM3DmaConfig3
	FieldCM3DmaConfig4
	FieldCM3DmaConfig5
	FieldCM3DmaConfig6
	FieldCM3DmaConfig7
	FieldCM3DmaConfig8
	FieldCM3DmaConfig9
	FieldCM3HeightWidth
	FieldHdrE8SPS0TileAddrLSB8
	FieldHdrF4SPS1TileAddrLSB8
	FieldHdr9cRef100
	FieldCM3CmdSetSliceData
	FieldTilAb4TileAddrLow
	FieldTilAb8TileSize
	FieldTilAc0TileDims
	FieldTilMarker
	FieldCM3CmdInstFIFOEnd
)

type fieldSpec struct {
	offset int
	count  int
}

var fieldSpecs = map[FpField]fieldSpec{
	FieldHdr28HeightWidthShift3: {0x28, 1},
	FieldHdr2cTxfmMode:          {0x2c, 1},
	FieldHdr30CmdStartHdr:       {0x30, 1},
	FieldHdr34Const20:           {0x34, 1},
	FieldHdr38HeightWidth:       {0x38, 1},
	FieldHdr3cZero:              {0x3c, 1},
	FieldHdr40Flags1Pt1:         {0x40, 1},
	FieldHdr44Flags1Pt2:         {0x44, 1},
	FieldHdr48LoopFilterLevel:   {0x48, 1},
	FieldHdr4cBaseQIdx:          {0x4c, 1},
	FieldHdr50:                  {0x50, 8},
	FieldHdr70RefHeightWidth:    {0x70, 3},
	FieldHdr7cRefSize:           {0x7c, 3},
	FieldHdr88:                  {0x88, 1},
	FieldHdr8c:                  {0x8c, 1},
	FieldHdr90:                  {0x90, 4},
	FieldHdrA0:                  {0xa0, 16},
	FieldHdrE0Const240:          {0xe0, 1},
	FieldHdrE4:                  {0xe4, 1},
	// hdr_e8_addr_lsb8's 13 slots also carry, by real offset arithmetic,
	// the probs-table pointer (index 7: 0xe8+7*4=0x104) and the four
	// pps1-tile pointers (indices 8..11: 0x108..0x114) and the pps0-tile
	// pointer (index 12: 0x118), matching halv3.py's "hdr_104"/"hdr_108"/
	// "hdr_118"-prefixed tags.
	FieldHdrE8AddrLSB8:    {0xe8, 13},
	FieldHdr11cAddrLSB8:   {0x11c, 4},
	FieldHdr12cPad:        {0x12c, 3},
	FieldHdr138Ef0AddrLSB8: {0x138, 3},
	FieldHdr144Ef1AddrLSB8: {0x144, 3},
	FieldHdr150Ef2AddrLSB8: {0x150, 3},
	FieldHdr15cEf3AddrLSB8: {0x15c, 3},
	FieldHdr168YAddrLSB8:   {0x168, 1},
	FieldHdr16cUVAddrLSB8:  {0x16c, 1},
	FieldHdr170WidthAlign:  {0x170, 1},
	FieldHdr174WidthAlign:  {0x174, 1},
	FieldHdr178Zero:        {0x178, 1},

	FieldCM3CmdInstFIFOStart:  {0x180, 1},
	FieldCM3DmaConfig0:        {0x184, 1},
	FieldCM3DmaConfig1:        {0x188, 1},
	FieldCM3DmaConfig2:        {0x18c, 1},
	FieldCM3DmaConfig3:        {0x190, 1},
	FieldCM3DmaConfig4:        {0x194, 1},
	FieldCM3DmaConfig5:        {0x198, 1},
	FieldCM3DmaConfig6:        {0x19c, 1},
	FieldCM3DmaConfig7:        {0x1a0, 1},
	FieldCM3DmaConfig8:        {0x1a4, 1},
	FieldCM3DmaConfig9:        {0x1a8, 1},
	FieldCM3HeightWidth:       {0x1ac, 1},
	FieldHdrE8SPS0TileAddrLSB8: {0x1b0, 3},
	FieldHdrF4SPS1TileAddrLSB8: {0x1bc, 4},
	FieldHdr9cRef100:          {0x1cc, 3},
	FieldCM3CmdSetSliceData:   {0x1d8, 1},
	FieldTilAb4TileAddrLow:    {0x1dc, 1},
	FieldTilAb8TileSize:       {0x1e0, 1},
	FieldTilAc0TileDims:       {0x1e4, 1},
	FieldTilMarker:            {0x1e8, 1},
	FieldCM3CmdInstFIFOEnd:    {0x1ec, 1},
}

// FrameParams mirrors the VP9 frame-parameter blob, offset-compatible
// with AvdVP9V3FrameParams for the fields the construct schema names,
// plus the scratch fields above (spec §6).
type FrameParams struct {
	buf [FrameParamsSize]byte
}

func NewFrameParams() *FrameParams { return &FrameParams{} }

// SetField writes val into field f at element idx, matching an
// instruction.Sink.
func (fp *FrameParams) SetField(f FpField, idx int, val uint32) {
	spec, ok := fieldSpecs[f]
	if !ok {
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= spec.count {
		idx = spec.count - 1
	}
	off := spec.offset + idx*4
	binary.LittleEndian.PutUint32(fp.buf[off:off+4], val)
}

// Field reads field f at element idx.
func (fp *FrameParams) Field(f FpField, idx int) uint32 {
	spec, ok := fieldSpecs[f]
	if !ok {
		return 0
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= spec.count {
		idx = spec.count - 1
	}
	off := spec.offset + idx*4
	return binary.LittleEndian.Uint32(fp.buf[off : off+4])
}

// Bytes returns the underlying blob.
func (fp *FrameParams) Bytes() []byte { return fp.buf[:] }

/*
NAME
  fp.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

import (
	"encoding/binary"

	"github.com/avdstream/avd/instruction"
)

// FrameParamsSize is the H.264 frame-parameter blob size (spec §6).
const FrameParamsSize = 0x8c4c0

// Field tags. Per spec §9's metaclass-binding redesign, these are a
// typed enum (not the reference implementation's string tags); the
// constant's numeric suffix in its Go name mirrors the reference
// implementation's own naming convention of embedding the byte offset
// in the field name (e.g. "hdr_34_cmd_start_hdr" lives at byte 0x34).
type FpField = instruction.FpField

const (
	FieldHdr28HeightWidthShift3 FpField = iota
	FieldHdr2cSPSParam
	FieldHdr30SeqScalingListDims
	FieldHdr34CmdStartHdr
	FieldHdr38Mode
	FieldHdr3cHeightWidth
	FieldHdr40Zero
	FieldHdr44Flags
	FieldHdr48ChromaQPIndexOffset
	FieldHdr4cPicScalingListDims
	FieldHdr54HeightWidth
	FieldHdr58Const3a
	FieldHdr9cPPSTileAddrLSB8 // array[8]
	FieldHdrBcSPSTileAddrLSB8
	FieldHdrC0CurrRefAddrLSB7 // array[4]
	FieldHdrD0RefHdr          // array[16]
	FieldHdr110Ref0AddrLSB7   // array[16]
	FieldHdr150Ref1AddrLSB7   // array[16]
	FieldHdr190Ref2AddrLSB7   // array[16]
	FieldHdr1d0Ref3AddrLSB7   // array[16]
	FieldHdr210YAddrLSB8
	FieldHdr214UVAddrLSB8
	FieldHdr218WidthAlign
	FieldHdr21cWidthAlign
	FieldScl28cSeqScalingMatrix4x4 // array[24]
	FieldScl2ecSeqScalingMatrix8x8 // array[96]
	FieldScl46cPicScalingMatrix4x4 // array[24]
	FieldScl4ccPicScalingMatrix8x8 // array[96]
	FieldSlc6e4CmdRefType
	FieldSlc6e8CmdRefList0 // array[32]
	FieldSlc76cCmdWeightsDenom
	FieldSlc770CmdWeightsWeights // array[64]
	FieldSlc8f0CmdWeightsOffsets // array[64]
	FieldSlcA70CmdQuantParam
	FieldSlcA74CmdDeblockingFilter
	FieldSlcA78SPSTileAddr2LSB8
	FieldSlcA7cCmdSetCodedSlice
	FieldSlcA84SliceAddrLow
	FieldSlcA88SliceHdrSize
	// Scratch fields: CM3 DMA configuration and command words with no
	// spec-documented mirror offset. Mirrored for P2-style round-trip
	// testing consistency, not for byte-for-byte layout fidelity.
	FieldCM3DmaConfig1
	FieldCM3DmaConfig2
	FieldCM3DmaConfig3
	FieldCM3DmaConfig4
	FieldCM3DmaConfig5
	FieldCM3DmaConfig6
	FieldCM3DmaConfig7
	FieldCM3DmaConfig8
	FieldCM3DmaConfig9
	FieldCM3DmaConfigA
	FieldCM3MarkEndSection
	FieldCM3MarkEndSectionScl
	FieldCM3CmdExecMBVP
	FieldCM3CmdSetMBDims
	FieldCM3SetMBDims
	FieldCM3CmdInstFIFOStart
	FieldCM3CmdInstFIFOEnd
	fieldCount
)

type fieldSpec struct {
	offset int
	count  int // 1 for scalar.
}

var fieldSpecs = map[FpField]fieldSpec{
	FieldHdr28HeightWidthShift3:    {0x28, 1},
	FieldHdr2cSPSParam:             {0x2c, 1},
	FieldHdr30SeqScalingListDims:   {0x30, 1},
	FieldHdr34CmdStartHdr:          {0x34, 1},
	FieldHdr38Mode:                 {0x38, 1},
	FieldHdr3cHeightWidth:          {0x3c, 1},
	FieldHdr40Zero:                 {0x40, 1},
	FieldHdr44Flags:                {0x44, 1},
	FieldHdr48ChromaQPIndexOffset:  {0x48, 1},
	FieldHdr4cPicScalingListDims:   {0x4c, 1},
	FieldHdr54HeightWidth:          {0x54, 1},
	FieldHdr58Const3a:              {0x58, 1},
	FieldHdr9cPPSTileAddrLSB8:      {0x9c, 8},
	FieldHdrBcSPSTileAddrLSB8:      {0xbc, 1},
	FieldHdrC0CurrRefAddrLSB7:      {0xc0, 4},
	FieldHdrD0RefHdr:               {0xd0, 16},
	FieldHdr110Ref0AddrLSB7:        {0x110, 16},
	FieldHdr150Ref1AddrLSB7:        {0x150, 16},
	FieldHdr190Ref2AddrLSB7:        {0x190, 16},
	FieldHdr1d0Ref3AddrLSB7:        {0x1d0, 16},
	FieldHdr210YAddrLSB8:           {0x210, 1},
	FieldHdr214UVAddrLSB8:          {0x214, 1},
	FieldHdr218WidthAlign:          {0x218, 1},
	FieldHdr21cWidthAlign:          {0x21c, 1},
	FieldScl28cSeqScalingMatrix4x4: {0x28c, 24},
	FieldScl2ecSeqScalingMatrix8x8: {0x2ec, 96},
	FieldScl46cPicScalingMatrix4x4: {0x46c, 24},
	FieldScl4ccPicScalingMatrix8x8: {0x4cc, 96},
	FieldSlc6e4CmdRefType:          {0x6e4, 1},
	FieldSlc6e8CmdRefList0:         {0x6e8, 32},
	FieldSlc76cCmdWeightsDenom:     {0x76c, 1},
	FieldSlc770CmdWeightsWeights:   {0x770, 64},
	FieldSlc8f0CmdWeightsOffsets:   {0x8f0, 64},
	FieldSlcA70CmdQuantParam:       {0xa70, 1},
	FieldSlcA74CmdDeblockingFilter: {0xa74, 1},
	FieldSlcA78SPSTileAddr2LSB8:    {0xa78, 1},
	FieldSlcA7cCmdSetCodedSlice:    {0xa7c, 1},
	FieldSlcA84SliceAddrLow:        {0xa84, 1},
	FieldSlcA88SliceHdrSize:        {0xa88, 1},
	FieldCM3DmaConfig1:             {0xb000, 1},
	FieldCM3DmaConfig2:             {0xb004, 1},
	FieldCM3DmaConfig3:             {0xb008, 1},
	FieldCM3DmaConfig4:             {0xb00c, 1},
	FieldCM3DmaConfig5:             {0xb010, 1},
	FieldCM3DmaConfig6:             {0xb014, 1},
	FieldCM3DmaConfig7:             {0xb018, 1},
	FieldCM3DmaConfig8:             {0xb01c, 1},
	FieldCM3DmaConfig9:             {0xb020, 1},
	FieldCM3DmaConfigA:             {0xb024, 1},
	FieldCM3MarkEndSection:         {0xb028, 1},
	FieldCM3MarkEndSectionScl:      {0xb02c, 1},
	FieldCM3CmdExecMBVP:            {0xb030, 1},
	FieldCM3CmdSetMBDims:           {0xb034, 1},
	FieldCM3SetMBDims:              {0xb038, 1},
	FieldCM3CmdInstFIFOStart:       {0xb03c, 1},
	FieldCM3CmdInstFIFOEnd:         {0xb040, 1},
}

// FrameParams is the H.264 declarative FrameParams blob: a fixed byte
// buffer addressed by field tag, implementing instruction.Sink so the
// HAL can mirror every emitted word in lockstep (spec invariant P2).
type FrameParams struct {
	buf [FrameParamsSize]byte
}

// NewFrameParams returns a zeroed FrameParams.
func NewFrameParams() *FrameParams { return &FrameParams{} }

// SetField implements instruction.Sink.
func (fp *FrameParams) SetField(name FpField, idx int, val uint32) {
	spec, ok := fieldSpecs[name]
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

// Field reads back the word mirrored at name[idx], for round-trip
// testing (spec's FrameParams round-trip law).
func (fp *FrameParams) Field(name FpField, idx int) uint32 {
	spec, ok := fieldSpecs[name]
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

// Bytes returns the raw blob, ready for DMA to the hardware's known
// IOVA.
func (fp *FrameParams) Bytes() []byte { return fp.buf[:] }

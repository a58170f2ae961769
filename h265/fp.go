/*
NAME
  fp.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

import (
	"encoding/binary"

	"github.com/avdstream/avd/instruction"
)

// FrameParamsSize is the H.265 frame-parameter blob size (spec §6),
// sized past the CM3 scratch region's highest field (0xd050).
const FrameParamsSize = 0xe000

// FpField is the H.265 field tag enum; numeric suffixes in the
// constant names mirror the reference implementation's own
// offset-embedded field naming.
type FpField = instruction.FpField

const (
	FieldHdr28HeightWidthShift3 FpField = iota
	FieldHdr2cSPSTxfm
	FieldHdr30SPSPcm
	FieldHdr34SPSFlags
	FieldHdr4cCmdStartHdr
	FieldHdr7cPPSSclDims
	FieldHdr38SPSSclDims
	FieldHdr50Mode
	FieldHdr54HeightWidth
	FieldHdr58PixfmtZero
	FieldHdr5cPPSFlags
	FieldHdr60PPSQP
	FieldHdr64Zero
	FieldHdr68Zero
	FieldHdr6cZero
	FieldHdr70Zero
	FieldHdr74Zero
	FieldHdr78Zero
	FieldHdr98Const30
	FieldHdrDcPPSTileAddrLSB8 // array[10]
	FieldHdr104CurrRefAddrLSB7 // array[4]
	FieldHdr1b4YAddrLSB8
	FieldHdr1b8UVAddrLSB8
	FieldHdr1bcWidthAlign
	FieldHdr1c0WidthAlign
	FieldHdrBcSPSTileAddrLSB8
	FieldHdr114RefHdr           // array[16]
	FieldHdr134Ref0AddrLSB7     // array[16]
	FieldHdr154Ref1AddrLSB7     // array[16]
	FieldHdr174Ref2AddrLSB7     // array[16]
	FieldHdr194Ref3AddrLSB7     // array[16]
	FieldScl22cSeqScalingMatrix4x4   // array[24]
	FieldScl28cSeqScalingMatrix8x8   // array[96]
	FieldScl40cSeqScalingMatrix16x16 // array[96]
	FieldScl58cSeqScalingMatrix32x32 // array[32]
	FieldScl610PicScalingMatrix4x4
	FieldScl670PicScalingMatrix8x8
	FieldScl7f0PicScalingMatrix16x16
	FieldScl970PicScalingMatrix32x32
	FieldSlcA8cCmdRefType
	FieldSlcA90CmdRefList // array[32]
	FieldSlcBccCmdQuantization
	FieldSlcBd0CmdDeblockingFilter
	FieldSlcBd4SPSTileAddr2LSB8
	FieldSlcB08CmdWeightsDenom
	FieldSlcB0cCmdWeightsWeights  // array[64]
	FieldSlcB6cCmdWeightsOffsets  // array[64]
	FieldSlcBd8SliceAddr
	FieldSlcBdcSliceSize
	FieldCM3CmdSetCodedSlice
	FieldCM3CmdSetCabacXY
	FieldCM3CmdSetCtbXY
	FieldCM3SetCtbXY
	FieldCM3SetMvXY
	FieldCM3CmdSetTileAX
	FieldCM3SetTileAX
	FieldCM3SetTileBX
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
	FieldCM3CmdInstFIFOStart
	FieldCM3CmdInstFIFOEnd
)

type fieldSpec struct {
	offset int
	count  int
}

var fieldSpecs = map[FpField]fieldSpec{
	FieldHdr28HeightWidthShift3:      {0x28, 1},
	FieldHdr2cSPSTxfm:                {0x2c, 1},
	FieldHdr30SPSPcm:                 {0x30, 1},
	FieldHdr34SPSFlags:               {0x34, 1},
	FieldHdr38SPSSclDims:             {0x38, 1},
	FieldHdr4cCmdStartHdr:            {0x4c, 1},
	FieldHdr7cPPSSclDims:             {0x7c, 1},
	FieldHdr50Mode:                   {0x50, 1},
	FieldHdr54HeightWidth:            {0x54, 1},
	FieldHdr58PixfmtZero:             {0x58, 1},
	FieldHdr5cPPSFlags:               {0x5c, 1},
	FieldHdr60PPSQP:                  {0x60, 1},
	FieldHdr64Zero:                   {0x64, 1},
	FieldHdr68Zero:                   {0x68, 1},
	FieldHdr6cZero:                   {0x6c, 1},
	FieldHdr70Zero:                   {0x70, 1},
	FieldHdr74Zero:                   {0x74, 1},
	FieldHdr78Zero:                   {0x78, 1},
	FieldHdr98Const30:                {0x98, 1},
	FieldHdrDcPPSTileAddrLSB8:        {0xdc, 10},
	FieldHdr104CurrRefAddrLSB7:       {0x104, 4},
	FieldHdr1b4YAddrLSB8:             {0x1b4, 1},
	FieldHdr1b8UVAddrLSB8:            {0x1b8, 1},
	FieldHdr1bcWidthAlign:            {0x1bc, 1},
	FieldHdr1c0WidthAlign:            {0x1c0, 1},
	FieldHdrBcSPSTileAddrLSB8:        {0xbc, 1},
	FieldHdr114RefHdr:                {0x114, 16},
	FieldHdr134Ref0AddrLSB7:          {0x134, 16},
	FieldHdr154Ref1AddrLSB7:          {0x154, 16},
	FieldHdr174Ref2AddrLSB7:          {0x174, 16},
	FieldHdr194Ref3AddrLSB7:          {0x194, 16},
	FieldScl22cSeqScalingMatrix4x4:   {0x22c, 24},
	FieldScl28cSeqScalingMatrix8x8:   {0x28c, 96},
	FieldScl40cSeqScalingMatrix16x16: {0x40c, 96},
	FieldScl58cSeqScalingMatrix32x32: {0x58c, 32},
	FieldScl610PicScalingMatrix4x4:   {0x610, 24},
	FieldScl670PicScalingMatrix8x8:   {0x670, 96},
	FieldScl7f0PicScalingMatrix16x16: {0x7f0, 96},
	FieldScl970PicScalingMatrix32x32: {0x970, 32},
	FieldSlcA8cCmdRefType:            {0xa8c, 1},
	FieldSlcA90CmdRefList:            {0xa90, 32},
	FieldSlcBccCmdQuantization:       {0xbcc, 1},
	FieldSlcBd0CmdDeblockingFilter:   {0xbd0, 1},
	FieldSlcBd4SPSTileAddr2LSB8:      {0xbd4, 1},
	FieldSlcB08CmdWeightsDenom:       {0xb08, 1},
	FieldSlcB0cCmdWeightsWeights:     {0xb0c, 64},
	FieldSlcB6cCmdWeightsOffsets:     {0xb6c, 64},
	FieldSlcBd8SliceAddr:             {0xbd8, 1},
	FieldSlcBdcSliceSize:             {0xbdc, 1},
	FieldCM3CmdSetCodedSlice:         {0xd000, 1},
	FieldCM3CmdSetCabacXY:            {0xd004, 1},
	FieldCM3CmdSetCtbXY:              {0xd008, 1},
	FieldCM3SetCtbXY:                 {0xd00c, 1},
	FieldCM3SetMvXY:                  {0xd010, 1},
	FieldCM3CmdSetTileAX:             {0xd014, 1},
	FieldCM3SetTileAX:                {0xd018, 1},
	FieldCM3SetTileBX:                {0xd01c, 1},
	FieldCM3DmaConfig1:               {0xd020, 1},
	FieldCM3DmaConfig2:               {0xd024, 1},
	FieldCM3DmaConfig3:               {0xd028, 1},
	FieldCM3DmaConfig4:               {0xd02c, 1},
	FieldCM3DmaConfig5:               {0xd030, 1},
	FieldCM3DmaConfig6:               {0xd034, 1},
	FieldCM3DmaConfig7:               {0xd038, 1},
	FieldCM3DmaConfig8:               {0xd03c, 1},
	FieldCM3DmaConfig9:               {0xd040, 1},
	FieldCM3DmaConfigA:               {0xd044, 1},
	FieldCM3MarkEndSection:           {0xd048, 1},
	FieldCM3CmdInstFIFOStart:         {0xd04c, 1},
	FieldCM3CmdInstFIFOEnd:           {0xd050, 1},
}

// FrameParams is the H.265 declarative FrameParams blob.
type FrameParams struct {
	buf [FrameParamsSize]byte
}

func NewFrameParams() *FrameParams { return &FrameParams{} }

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

func (fp *FrameParams) Bytes() []byte { return fp.buf[:] }

/*
NAME
  hal.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

import (
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/instruction"
)

// Decode is the H.265 HAL's pure opcode-emitter contract (spec §4.3),
// covering both the single-segment, non-tiled path and multi-tile/
// entry-point slices via setSlices' per-segment loop.
func Decode(ctx *Context, sl *SliceHeader, sink instruction.Sink) (*instruction.Stream, error) {
	s := instruction.NewStream(sink)
	h := &halEmitter{ctx: ctx, sl: sl, s: s}
	if err := h.setHeader(); err != nil {
		return nil, err
	}
	if err := h.setSlices(); err != nil {
		return nil, err
	}
	return s, nil
}

type halEmitter struct {
	ctx *Context
	sl  *SliceHeader
	s   *instruction.Stream
}

func (h *halEmitter) setRefs() error {
	ctx, sl := h.ctx, h.sl
	h.s.Emit(0x4020002, FieldCM3DmaConfig6)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[1]>>8), FieldHdrDcPPSTileAddrLSB8, 6)

	n := sl.Pic.Idx
	h.s.Emit(uint32(ctx.SPSTileAddrs[n]>>8), FieldHdrBcSPSTileAddrLSB8)

	h.s.Emit(0x70007, FieldCM3DmaConfig7)
	h.s.Emit(0x70007, FieldCM3DmaConfig8)
	h.s.Emit(0x70007, FieldCM3DmaConfig9)
	h.s.Emit(0x70007, FieldCM3DmaConfigA)

	pred := sl.Pic.POC
	for n, pic := range ctx.DPBList {
		deltaBase := 0
		if n > 0 {
			deltaBase = ctx.DPBList[n-1].POC
		}
		delta := deltaBase - pic.POC
		pred += delta
		x := uint32(len(ctx.DPBList)-1)<<28 | 0x1000000 | uint32(avd.SWrap(pred, 0x20000))
		h.s.EmitIndexed(x, FieldHdr114RefHdr, n)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(0))>>7), FieldHdr134Ref0AddrLSB7, n)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(1))>>7), FieldHdr154Ref1AddrLSB7, n)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(2))>>7), FieldHdr174Ref2AddrLSB7, n)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(3))>>7), FieldHdr194Ref3AddrLSB7, n)
	}
	return nil
}

func (h *halEmitter) setFlags() error {
	ctx, sl := h.ctx, h.sl
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	var x uint32
	if sps.PCMEnabledFlag {
		x |= 0x1000
		x |= uint32(sps.PCMSampleBitDepthLumaMinus1) << 4
		x |= uint32(sps.PCMSampleBitDepthChromaMinus1) << 8
		x |= uint32(sps.Log2DiffMaxMinPCMLumaCodingBlockSize)
	}
	h.s.Emit(x, FieldHdr30SPSPcm)

	x = avd.SetBit(3, 1)
	if sps.SPSStrongIntraSmoothingEnableFlag {
		x |= avd.SetBit(9, 1)
	}
	h.s.Emit(x, FieldHdr34SPSFlags)

	x = avd.SetBit(3, 1) | avd.SetBit(4, 1)
	if pps.LogParallelMergeLevel == 3 {
		x |= avd.SetBit(9, 1)
	}
	if pps.EntropyCodingSyncEnabledFlag {
		x |= avd.SetBit(12, 1)
	}
	if pps.TilesEnabledFlag {
		x |= avd.SetBit(13, 1)
	}
	if pps.DiffCuQpDeltaDepth != 1 && pps.DiffCuQpDeltaDepth != 3 {
		x |= avd.SetBit(15, 1)
	}
	if pps.DiffCuQpDeltaDepth != 3 {
		x |= avd.SetBit(16, 1)
	}
	if pps.CuQpDeltaEnabledFlag {
		x |= avd.SetBit(17, 1)
	}
	if pps.TransformSkipEnabledFlag {
		x |= avd.SetBit(18, 1)
	}
	if pps.ConstrainedIntraPredFlag {
		x |= avd.SetBit(19, 1)
	}
	if pps.SignDataHidingEnabledFlag {
		x |= avd.SetBit(20, 1)
	}
	if !IsIDR2(sl.NALUnitType) && h.getCond() {
		x |= avd.SetBit(21, 1)
	}
	h.s.Emit(x, FieldHdr5cPPSFlags)

	h.s.Emit(uint32(pps.PPSCbQPOffset)<<5|uint32(pps.PPSCrQPOffset), FieldHdr60PPSQP)
	h.s.Emit(0, FieldHdr64Zero)
	h.s.Emit(0, FieldHdr68Zero)
	h.s.Emit(0, FieldHdr6cZero)
	h.s.Emit(0, FieldHdr70Zero)
	h.s.Emit(0, FieldHdr74Zero)
	h.s.Emit(0, FieldHdr78Zero)
	return nil
}

// getCond mirrors AVDH265HalV3.get_cond in its single-segment, no-tiles
// form: true exactly for B slices. Tiling and slice-segment state are
// not considered.
func (h *halEmitter) getCond() bool {
	return h.sl.SliceType == SliceTypeB
}

func (h *halEmitter) setScalingLists() error {
	ctx, sl := h.ctx, h.sl
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}
	if !sps.ScalingListEnableFlag && !pps.PPSScalingListDataPresentFlag {
		h.s.Emit(0, FieldCM3MarkEndSection)
		return nil
	}
	if pps.PPSScalingListDataPresentFlag {
		h.s.Emit(0x127ffff, FieldHdr7cPPSSclDims)
	} else {
		h.s.Emit(0x127b377, FieldHdr38SPSSclDims)
	}
	return nil
}

func (h *halEmitter) setHeader() error {
	ctx, sl := h.ctx, h.sl
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	h.s.Emit(0x2b000000|0x100|uint32(ctx.InstFIFOIdx*0x10), FieldCM3CmdInstFIFOStart)

	var x uint32 = 0x1000
	if IsIDR2(sl.NALUnitType) || (isSliceNAL(sl.NALUnitType) && sl.SliceType == SliceTypeI) {
		x |= 0x2000
	}
	x |= 0x2e0
	h.s.Emit(0x2db00000|x, FieldHdr4cCmdStartHdr)

	h.s.Emit(0, FieldHdr50Mode)
	h.s.Emit((uint32(ctx.Height-1)&0xffff)<<16|uint32(ctx.Width-1)&0xffff, FieldHdr54HeightWidth)
	h.s.Emit(0, FieldHdr58PixfmtZero)
	h.s.Emit((uint32(ctx.Height-1)>>3)<<16|uint32(ctx.Width-1)>>3, FieldHdr28HeightWidthShift3)

	x = uint32(sps.ChromaFormatIDC) << 24
	x |= uint32(sps.Log2DiffMaxMinCodingBlockSize) << 11
	x |= uint32(sps.Log2DiffMaxMinTransformBlockSize) << 7
	x |= uint32(sps.MaxTransformHierarchyDepthInter) << 4
	x |= uint32(sps.MaxTransformHierarchyDepthIntra) << 1
	if sps.AmpEnabledFlag {
		x |= 1
	}
	h.s.Emit(x, FieldHdr2cSPSTxfm)

	if err := h.setFlags(); err != nil {
		return err
	}
	h.s.Emit(0x300000, FieldHdr98Const30)
	h.s.Emit(0x4020002, FieldCM3DmaConfig1)
	h.s.Emit(0x20002, FieldCM3DmaConfig2)
	h.s.Emit(0, FieldCM3MarkEndSection)

	h.s.Emit(0x4020002, FieldCM3DmaConfig3)
	h.s.Emit(0x4020002, FieldCM3DmaConfig4)
	h.s.Emit(0, FieldCM3MarkEndSection)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[0]>>8), FieldHdrDcPPSTileAddrLSB8, 0)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[2]>>8), FieldHdrDcPPSTileAddrLSB8, 1)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[3]>>8), FieldHdrDcPPSTileAddrLSB8, 2)
	if pps.TilesEnabledFlag && len(ctx.PPSTileAddrs) > 7 {
		h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[4]>>8), FieldHdrDcPPSTileAddrLSB8, 3)
		h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[5]>>8), FieldHdrDcPPSTileAddrLSB8, 4)
		h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[6]>>8), FieldHdrDcPPSTileAddrLSB8, 8)
		h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[7]>>8), FieldHdrDcPPSTileAddrLSB8, 9)
	} else {
		h.s.EmitIndexed(0, FieldHdrDcPPSTileAddrLSB8, 3)
		h.s.EmitIndexed(0, FieldHdrDcPPSTileAddrLSB8, 4)
		h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[4]>>8), FieldHdrDcPPSTileAddrLSB8, 8)
		h.s.EmitIndexed(0, FieldHdrDcPPSTileAddrLSB8, 9)
	}

	h.s.Emit(0x70007, FieldCM3DmaConfig5)
	addr := sl.Pic.Addr
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(0))>>7), FieldHdr104CurrRefAddrLSB7, 0)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(1))>>7), FieldHdr104CurrRefAddrLSB7, 1)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(2))>>7), FieldHdr104CurrRefAddrLSB7, 2)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(3))>>7), FieldHdr104CurrRefAddrLSB7, 3)
	h.s.Emit(0, FieldCM3MarkEndSection)

	h.s.Emit(uint32(ctx.YAddr>>8), FieldHdr1b4YAddrLSB8)
	h.s.Emit(uint32(avd.RoundUp(ctx.Width, 64)>>4), FieldHdr1bcWidthAlign)
	h.s.Emit(uint32(ctx.UVAddr>>8), FieldHdr1b8UVAddrLSB8)
	h.s.Emit(uint32(avd.RoundUp(ctx.Width, 64)>>4), FieldHdr1c0WidthAlign)
	h.s.Emit(0, FieldCM3MarkEndSection)
	h.s.Emit((uint32(ctx.Height-1)&0xffff)<<16|uint32(ctx.Width-1)&0xffff, FieldHdr54HeightWidth)

	isIntra := IsIDR(sl.NALUnitType) || (isSliceNAL(sl.NALUnitType) && sl.SliceType == SliceTypeI)
	if !isIntra {
		if err := h.setRefs(); err != nil {
			return err
		}
	}
	return h.setScalingLists()
}

func (h *halEmitter) setWeights() error {
	ctx, sl := h.ctx, h.sl
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	var x uint32 = 0x2dd00000
	if !sl.HasLumaWeights {
		h.s.Emit(x, FieldSlcB08CmdWeightsDenom)
		return nil
	}
	switch {
	case sl.SliceType == SliceTypeP && pps.WeightedPredFlag:
		x |= 0x40
	case sl.SliceType == SliceTypeB && pps.WeightedBipredFlag == 1:
		x |= 0x40
	case sl.SliceType == SliceTypeB && pps.WeightedBipredFlag == 0:
		x |= 0xad
	}
	x |= uint32(sl.LumaLog2WeightDenom)<<3 | uint32(sl.ChromaLog2WeightDenom)
	h.s.Emit(x, FieldSlcB08CmdWeightsDenom)

	num := 0
	emit := func(lx int, i int, lumaFlag bool, luma int, lumaOff int, chromaFlag bool, chroma [2]int, chromaOff [2]int) {
		if lumaFlag {
			h.s.EmitIndexed(0x2de00000|1<<14|uint32(lx)<<13|uint32(i)<<9|uint32(luma), FieldSlcB0cCmdWeightsWeights, num)
			h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(lumaOff, 0x10000)), FieldSlcB6cCmdWeightsOffsets, num)
			num++
		}
		if chromaFlag {
			h.s.EmitIndexed(0x2de00000|2<<14|uint32(lx)<<13|uint32(i)<<9|uint32(chroma[0]), FieldSlcB0cCmdWeightsWeights, num)
			h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(chromaOff[0], 0x10000)), FieldSlcB6cCmdWeightsOffsets, num)
			num++
			h.s.EmitIndexed(0x2de00000|3<<14|uint32(lx)<<13|uint32(i)<<9|uint32(chroma[1]), FieldSlcB0cCmdWeightsWeights, num)
			h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(chromaOff[1], 0x10000)), FieldSlcB6cCmdWeightsOffsets, num)
			num++
		}
	}
	for i := 0; i <= sl.NumRefIdxL0ActiveMinus1 && i < len(sl.LumaWeightL0Flag); i++ {
		emit(0, i, sl.LumaWeightL0Flag[i], sl.LumaWeightL0[i], sl.LumaOffsetL0[i],
			i < len(sl.ChromaWeightL0Flag) && sl.ChromaWeightL0Flag[i], sl.ChromaWeightL0[i], sl.ChromaOffsetL0[i])
	}
	if sl.SliceType == SliceTypeB {
		for i := 0; i <= sl.NumRefIdxL1ActiveMinus1 && i < len(sl.LumaWeightL1Flag); i++ {
			emit(1, i, sl.LumaWeightL1Flag[i], sl.LumaWeightL1[i], sl.LumaOffsetL1[i],
				i < len(sl.ChromaWeightL1Flag) && sl.ChromaWeightL1Flag[i], sl.ChromaWeightL1[i], sl.ChromaOffsetL1[i])
		}
	}
	return nil
}

func (h *halEmitter) setSliceDQTBlk() error {
	ctx, sl := h.ctx, h.sl
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	x := (uint32(26+pps.PicInitQPMinus26+sl.SliceQPDelta) << 10) & 0x1fc00
	x |= uint32(avd.SWrap(pps.PPSCbQPOffset+sl.SliceCbQPOffset, 32)) << 5
	x |= uint32(avd.SWrap(pps.PPSCrQPOffset+sl.SliceCrQPOffset, 32))
	h.s.Emit(0x2d900000|x, FieldSlcBccCmdQuantization)

	x = 0
	if sl.SliceSaoChromaFlag {
		x |= 1 << 6
	}
	if sl.SliceSaoLumaFlag {
		x |= 1 << 7
	}
	x |= uint32(avd.SWrap(sl.SliceTcOffsetDiv2, 16)) << 8
	x |= uint32(avd.SWrap(sl.SliceBetaOffsetDiv2, 16)) << 12
	if sps.SPSStrongIntraSmoothingEnableFlag {
		x |= avd.SetBit(16, 1)
	}
	if sl.SliceLoopFilterAcrossSlicesEnabledFlag {
		x |= avd.SetBit(17, 1)
	}
	if !pps.TilesEnabledFlag || pps.LoopFilterAcrossTilesEnabledFlag {
		x |= avd.SetBit(18, 1)
	}
	if sps.PCMEnabledFlag && !sps.PCMLoopFilterDisabledFlag {
		x |= avd.SetBit(19, 1)
	}
	h.s.Emit(0x2da00000|x, FieldSlcBd0CmdDeblockingFilter)

	if sl.SliceType == SliceTypeP || sl.SliceType == SliceTypeB {
		num := 0
		for i, p := range sl.Reflist[0] {
			pos := posOf(ctx.DPBList, p)
			h.s.EmitIndexed(0x2dc00000|0<<8|uint32(i)<<4|uint32(pos), FieldSlcA90CmdRefList, num)
			num++
		}
		if sl.SliceType == SliceTypeB {
			for i, p := range sl.Reflist[1] {
				pos := posOf(ctx.DPBList, p)
				h.s.EmitIndexed(0x2dc00000|1<<8|uint32(i)<<4|uint32(pos), FieldSlcA90CmdRefList, num)
				num++
			}
		}
		return h.setWeights()
	}
	return nil
}

func posOf(list []*Pic, target *Pic) int {
	for i, p := range list {
		if p.POC == target.POC {
			return i
		}
	}
	return 0
}

// segmentSizes splits sl's payload into one byte range per coded-slice
// descriptor: entry_point_offset[i] gives segment i's size for every
// segment but the last, which takes the remainder, grounded on
// AVDH265HalV3.set_slice's offset/size bookkeeping.
func (h *halEmitter) segmentSizes() []int {
	sl := h.sl
	n := sl.NumEntryPointOffsets + 1
	sizes := make([]int, n)
	sum := 0
	for i := 0; i < n-1 && i < len(sl.EntryPointOffset); i++ {
		sizes[i] = sl.EntryPointOffset[i]
		sum += sizes[i]
	}
	sizes[n-1] = sl.PayloadSize() - sum
	return sizes
}

// codedSliceType picks the "t" descriptor kind for segment (0 = first
// in the slice): only segment 0 depends on first/dependent-segment and
// tiling state; every later segment in the same slice is a plain tile
// continuation (t=1), grounded on AVDH265HalV3.set_slice.
func (h *halEmitter) codedSliceType(segment int, hasTiles bool) uint32 {
	if segment > 0 {
		return 1
	}
	sl := h.sl
	switch {
	case sl.FirstSliceSegmentInPicFlag:
		return 3
	case sl.DependentSliceSegmentFlag:
		return 0
	case !hasTiles:
		return 2
	default:
		return 3
	}
}

// tilePos maps a sequential tile/entry-point index to (row, col) in
// the PPS tile grid, row-major. Untiled pictures have a single column,
// so pos is just the row.
func tilePos(pps *PPS, pos int) (row, col int) {
	if !pps.TilesEnabledFlag || pps.NumTileColumns == 0 {
		return pos, 0
	}
	return pos / pps.NumTileColumns, pos % pps.NumTileColumns
}

// windowWord computes the CABAC/CTB search-window coordinate for tile
// (row, col): the tile boundary-table offset when tiles are enabled,
// else the legacy pos<<13 encoding (AVDH265HalV3.set_slice's mx).
func windowWord(pps *PPS, row, col, pos int, tiled bool) uint32 {
	if tiled && pps.TilesEnabledFlag {
		return uint32(pps.RowBd[row]&0xffff)<<12 | uint32(pps.ColBd[col]&0xffff)
	}
	return uint32(pos) << 13
}

// tileExtent computes the tile's bottom-right CTB bound word (the
// "set_ctb_xy"/"set_tile_bx" payload), grounded on
// AVDH265HalV3.set_slice.
func tileExtent(sps *SPS, pps *PPS, row, col int) uint32 {
	if pps.TilesEnabledFlag {
		return uint32(col)<<24 | uint32((pps.RowBd[row+1]-1)&0xffff)<<12 | uint32((pps.ColBd[col+1]-1)&0xffff)
	}
	return uint32(col)<<24 | uint32((sps.CtbHeight-1)&0xffff)<<12 | uint32((sps.CtbWidth-1)&0xffff)
}

// quadrantHint derives the hflip/vflip bits of spec §4.3's CTB-quadrant
// bookkeeping for a tile at (row, col): hflip marks the tile
// immediately below the last emitted CTB row; vflip marks a tile below
// and at-or-right of the last row/column, or below and at-or-left of
// the last hflip-marked (Q1) tile.
func quadrantHint(row, col, lastRow, lastCol, lastQ1Row, lastQ1Col int) (hflip, vflip bool) {
	if lastRow < 0 {
		// No tile has been emitted yet this picture; there is no "last
		// slice row" to compare against.
		return false, false
	}
	hflip = row == lastRow+1
	belowLast := row > lastRow && col >= lastCol
	belowQ1 := lastQ1Row >= 0 && row > lastQ1Row && col <= lastQ1Col
	vflip = belowLast || belowQ1
	return hflip, vflip
}

// refTypeBits computes the ref-type/slice-kind word (spec opcode
// 0x2d000000) and the reference picture its bidirectional-ness bits
// depend on, grounded on AVDH265HalV3.set_slice_mv. isDep marks a
// dependent slice segment continuing a prior independent one.
func (h *halEmitter) refTypeBits(isDep bool) (x uint32, ref *Pic, pushAddr bool) {
	ctx, sl := h.ctx, h.sl

	cond := h.getCond() && !ctx.LastIntra
	cond = cond || sl.SliceType == SliceTypeB
	cond = cond && !isDep
	cond = cond && sl.FirstSliceSegmentInPicFlag

	switch sl.SliceType {
	case SliceTypeI:
		x |= 0x20000
	case SliceTypeP:
		x |= 0x10000
	}
	if sl.SliceType != SliceTypeP && sl.SliceType != SliceTypeB {
		return x, nil, false
	}

	x |= uint32(sl.MaxNumMergeCand) << 1
	n := 0
	if sl.SliceType == SliceTypeB {
		if !sl.CollocatedFromL0Flag {
			x |= avd.SetBit(4, 1)
			n = 1
		}
		if !sl.MvdL1ZeroFlag {
			x |= avd.SetBit(6, 1)
		}
		x |= uint32(sl.NumRefIdxL1ActiveMinus1) << 7
	}
	x |= uint32(sl.NumRefIdxL0ActiveMinus1) << 11

	if h.getCond() || isDep {
		x |= avd.SetBit(15, 1)
	}
	if n < len(sl.Reflist) && len(sl.Reflist[n]) > 0 {
		ref = sl.Reflist[n][0]
		if !ref.RASL && cond {
			x |= avd.SetBit(18, 1)
			pushAddr = true
		}
	}
	return x, ref, pushAddr
}

// setSlices emits every coded-slice descriptor sl carries (one plus
// one per additional entry point) and the per-tile CABAC/CTB/MV window
// words between them, threading the CTB-quadrant hint across tiles and
// across slice segments of the same picture (spec §4.3 "Scheduling
// inside a frame" steps 6-7). Grounded on AVDH265HalV3.set_slices/
// set_slice.
func (h *halEmitter) setSlices() error {
	ctx, sl := h.ctx, h.sl
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}

	// hasTiles is HAS_TILES(sl): this slice segment itself carries extra
	// entry points, used to pick the coded-slice "t" descriptor. tiled
	// is broader: the picture's PPS has a tile grid at all, which gates
	// whether the CTB/tile window commands and quadrant hint apply even
	// to a slice segment occupying a single tile.
	hasTiles := pps.TilesEnabledFlag && sl.NumEntryPointOffsets > 0
	tiled := pps.TilesEnabledFlag
	sizes := h.segmentSizes()

	pos := 0
	if sl.DependentSliceSegmentFlag && pps.NumTileColumns > 0 {
		pos = ctx.LastCtxRow*pps.NumTileColumns + ctx.LastCtxCol + 1
	}

	lastQ1Row, lastQ1Col := -1, -1
	offset := 0
	for n, size := range sizes {
		t := h.codedSliceType(n, hasTiles)
		h.s.Emit(0x2d800000|t<<13, FieldCM3CmdSetCodedSlice)
		h.s.Emit(uint32(ctx.SliceDataAddr)+uint32(sl.PayloadOffset())+uint32(offset), FieldSlcBd8SliceAddr)
		h.s.Emit(uint32(size), FieldSlcBdcSliceSize)
		offset += size

		row, col := tilePos(pps, pos)
		mx := windowWord(pps, row, col, pos, tiled)
		if tiled {
			hflip, vflip := quadrantHint(row, col, ctx.LastCtxRow, ctx.LastCtxCol, lastQ1Row, lastQ1Col)
			var hint uint32
			if hflip {
				hint |= 1 << 2
				lastQ1Row, lastQ1Col = row, col
			}
			if vflip {
				hint |= 1 << 3
			}
			mx |= hint << 28
		}

		cx := mx
		if sl.DependentSliceSegmentFlag && n == 0 {
			cx = windowWord(pps, ctx.LastCtxRow, ctx.LastCtxCol, pos-1, tiled)
		}
		h.s.Emit(0x2c000000|cx, FieldCM3CmdSetCabacXY)

		if err := h.setSliceDQTBlk(); err != nil {
			return err
		}

		if n == 0 {
			if tiled {
				h.s.Emit(0x2a000000|cx, FieldCM3CmdSetCtbXY)
				h.s.Emit(tileExtent(sps, pps, row, col), FieldCM3SetCtbXY)
			}
			x, ref, pushAddr := h.refTypeBits(sl.DependentSliceSegmentFlag)
			h.s.Emit(0x2d000000|x, FieldSlcA8cCmdRefType)
			if pushAddr && ref != nil && ref.Idx < len(ctx.SPSTileAddrs) {
				h.s.Emit(uint32(ctx.SPSTileAddrs[ref.Idx]>>8), FieldSlcBd4SPSTileAddr2LSB8)
			}
			h.s.Emit(0x01000000|mx, FieldCM3SetMvXY)
		} else {
			ax := mx // carries this tile's quadrant hint (set above).
			bx := tileExtent(sps, pps, row, col)
			h.s.Emit(0x2a000000|ax, FieldCM3CmdSetTileAX)
			h.s.Emit(bx, FieldCM3SetTileBX)
			h.s.Emit(0x01000000|ax, FieldCM3SetTileAX)
		}

		ctx.LastCtxRow, ctx.LastCtxCol = row, col
		pos++
	}

	h.s.Emit(0x2b000000|0x400, FieldCM3CmdInstFIFOEnd)
	return nil
}

/*
NAME
  hal.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

import (
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/instruction"
)

// defaultScalingList8x8Intra/Inter are the hardware's fallback scaling
// lists used when a PPS carries transform_8x8_mode_flag but no
// explicit scaling matrix.
var defaultScalingList8x8Intra = []uint32{
	0x060a0d10, 0x0a0b1012, 0x0d101217, 0x10121719,
	0x1217191b, 0x17191b1d, 0x191b1d1f, 0x1b1d1f21,
	0x1217191b, 0x17191b1d, 0x191b1d1f, 0x1b1d1f21,
	0x1d1f2124, 0x1f212426, 0x21242628, 0x2426282a,
}

var defaultScalingList8x8Inter = []uint32{
	0x090d0f11, 0x0d0d1113, 0x0f111315, 0x11131516,
	0x13151618, 0x15161819, 0x1618191b, 0x18191b1c,
	0x13151618, 0x15161819, 0x1618191b, 0x18191b1c,
	0x191b1c1e, 0x1b1c1e20, 0x1c1e2021, 0x1e202123,
}

// Decode is the HAL's pure opcode-emitter contract (spec §4.3): given
// a read-only ctx and a DPB-initialized pic, it produces the
// instruction stream for one slice. It consults no mutable state
// beyond what ctx exposes.
func Decode(ctx *Context, sl *SliceHeader, pic *Pic, sink instruction.Sink) (*instruction.Stream, error) {
	s := instruction.NewStream(sink)
	h := &halEmitter{ctx: ctx, sl: sl, pic: pic, s: s}
	if err := h.setHeader(); err != nil {
		return nil, err
	}
	if err := h.setSlice(); err != nil {
		return nil, err
	}
	return s, nil
}

type halEmitter struct {
	ctx *Context
	sl  *SliceHeader
	pic *Pic
	s   *instruction.Stream
}

func (h *halEmitter) setRefs() error {
	ctx, sl := h.ctx, h.sl
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	h.s.Emit(0x4020002, FieldCM3DmaConfig6)
	h.s.EmitIndexed(uint32(pps.pps4TileAddr(ctx)>>8), FieldHdr9cPPSTileAddrLSB8, 7)
	h.s.Emit(uint32(ctx.SPSTileAddr+ctx.SPSTileSize*uint64(h.pic.SPSIdx))>>8, FieldHdrBcSPSTileAddrLSB8)

	h.s.Emit(0x70007, FieldCM3DmaConfig7)
	h.s.Emit(0x70007, FieldCM3DmaConfig8)
	h.s.Emit(0x70007, FieldCM3DmaConfig9)
	h.s.Emit(0x70007, FieldCM3DmaConfigA)

	pred := h.pic.POC
	for n, p := range ctx.DPBList {
		deltaBase := 0
		if n > 0 {
			deltaBase = ctx.DPBList[n-1].POC
		}
		delta := deltaBase - p.POC
		pred += delta
		x := uint32(len(ctx.DPBList)-1)<<28 | 0x1000000
		x |= avd.SetBit(17, boolInt(p.Type == RefLT)) | uint32(avd.SWrap(pred, 1<<17))
		h.s.EmitIndexed(x, FieldHdrD0RefHdr, n)
		h.s.EmitIndexed(uint32((p.Addr+ctx.RVRAOffset(0))>>7), FieldHdr110Ref0AddrLSB7, n)
		h.s.EmitIndexed(uint32((p.Addr+ctx.RVRAOffset(1))>>7), FieldHdr150Ref1AddrLSB7, n)
		h.s.EmitIndexed(uint32((p.Addr+ctx.RVRAOffset(2))>>7), FieldHdr190Ref2AddrLSB7, n)
		h.s.EmitIndexed(uint32((p.Addr+ctx.RVRAOffset(3))>>7), FieldHdr1d0Ref3AddrLSB7, n)
	}
	return nil
}

// pps4TileAddr returns the 5th (index 4) PPS tile work-buffer address.
func (pps *PPS) pps4TileAddr(ctx *Context) uint64 {
	return ctx.PPSTileAddr + ctx.PPSTileSize*4
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (h *halEmitter) setScalingList() error {
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
	if pps.PicScalingMatrixPresentFlag || sps.SeqScalingMatrixPresentFlag {
		x |= 0x1000000
	} else {
		h.s.Emit(x, FieldCM3MarkEndSectionScl)
		return nil
	}

	if sps.SeqScalingMatrixPresentFlag && sps.SeqScalingMatrixPresentMask {
		x |= uint32((64/4)<<5) | uint32((16/4)<<5) - 1
	}
	if sps.SeqScalingMatrixPresentFlag {
		h.s.Emit(x, FieldHdr30SeqScalingListDims)
	}

	if sps.SeqScalingMatrixPresentFlag && sps.SeqScalingMatrixPresentMask {
		for i := 0; i < 6; i++ {
			if !sps.SeqScalingListPresentFlag[i] {
				continue
			}
			for j := 0; j < 16/4; j++ {
				y := j * 4
				l := sps.SeqScalingList4x4[i]
				v := uint32(l[y])<<24 | uint32(l[y+1])<<16 | uint32(l[y+2])<<8 | uint32(l[y+3])
				h.s.EmitIndexed(v, FieldScl28cSeqScalingMatrix4x4, i*(16/4)+j)
			}
		}
		for i := 0; i < 6; i++ {
			if !sps.SeqScalingListPresentFlag[i+6] {
				continue
			}
			for j := 0; j < 64/4; j++ {
				y := j * 4
				l := sps.SeqScalingList8x8[i]
				v := uint32(l[y])<<24 | uint32(l[y+1])<<16 | uint32(l[y+2])<<8 | uint32(l[y+3])
				h.s.EmitIndexed(v, FieldScl2ecSeqScalingMatrix8x8, i*(64/4)+j)
			}
		}
	}

	if pps.PicScalingMatrixPresentFlag {
		x |= uint32((64/4)<<5) | uint32((16/4)<<5) - 1
		h.s.Emit(x, FieldHdr4cPicScalingListDims)

		for i := 0; i < 6; i++ {
			for j := 0; j < 16/4; j++ {
				y := j * 4
				l := pps.PicScalingList4x4[i]
				v := uint32(l[y])<<24 | uint32(l[y+1])<<16 | uint32(l[y+2])<<8 | uint32(l[y+3])
				h.s.EmitIndexed(v, FieldScl46cPicScalingMatrix4x4, i*(16/4)+j)
			}
		}
		if pps.Transform8x8ModeFlag {
			for i := 0; i < 6; i++ {
				if !pps.PicScalingListPresentFlag[i+6] {
					continue
				}
				for j := 0; j < 64/4; j++ {
					y := j * 4
					l := pps.PicScalingList8x8[i]
					v := uint32(l[y])<<24 | uint32(l[y+1])<<16 | uint32(l[y+2])<<8 | uint32(l[y+3])
					h.s.EmitIndexed(v, FieldScl4ccPicScalingMatrix8x8, i*(64/4)+j)
				}
			}
		} else {
			for i, v := range defaultScalingList8x8Intra {
				h.s.EmitIndexed(v, FieldScl4ccPicScalingMatrix8x8, i)
			}
			for i, v := range defaultScalingList8x8Inter {
				h.s.EmitIndexed(v, FieldScl4ccPicScalingMatrix8x8, len(defaultScalingList8x8Intra)+i)
			}
		}
	}
	return nil
}

func (h *halEmitter) setHeader() error {
	ctx, sl, pic := h.ctx, h.sl, h.pic
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
	if sl.NALUnitType == NALSliceIDR {
		x |= 0x2000
	}
	x |= 0x2e0
	h.s.Emit(0x2db00000|x, FieldHdr34CmdStartHdr)

	h.s.Emit(0x1000000, FieldHdr38Mode)
	h.s.Emit((uint32(ctx.Height-1)&0xffff)<<16|uint32(ctx.Width-1)&0xffff, FieldHdr3cHeightWidth)
	h.s.Emit(0x0, FieldHdr40Zero)
	h.s.Emit((uint32(ctx.Height-1)>>3)<<16|uint32(ctx.Width-1)>>3, FieldHdr28HeightWidthShift3)

	x = uint32(sps.ChromaFormatIDC)*0x1000000 | 0x2000 | 0x800
	if pps.Transform8x8ModeFlag {
		x |= 1 << 7
	}
	if sps.Direct8x8InferenceFlag {
		x |= 1
	}
	h.s.Emit(x, FieldHdr2cSPSParam)

	x = 0
	if pps.EntropyCodingModeFlag {
		x |= avd.SetBit(20, 1)
	}
	if sl.NALUnitType != NALSliceIDR {
		x |= avd.SetBit(21, 1)
	}
	h.s.Emit(x, FieldHdr44Flags)

	x = uint32(avd.SWrap(pps.ChromaQPIndexOffset, 32))<<5 | uint32(avd.SWrap(pps.SecondChromaQPIndexOffset, 32))
	h.s.Emit(x, FieldHdr48ChromaQPIndexOffset)
	h.s.Emit(0x30000a, FieldHdr58Const3a)
	h.s.Emit(0x4020002, FieldCM3DmaConfig1)
	h.s.Emit(0x20002, FieldCM3DmaConfig2)
	h.s.Emit(0x0, FieldCM3MarkEndSection)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddr>>8), FieldHdr9cPPSTileAddrLSB8, 0)

	h.s.Emit(0x4020002, FieldCM3DmaConfig3)
	h.s.Emit(0x4020002, FieldCM3DmaConfig4)
	h.s.Emit(0x0, FieldCM3MarkEndSection)
	h.s.EmitIndexed(uint32((ctx.PPSTileAddr+ctx.PPSTileSize)>>8), FieldHdr9cPPSTileAddrLSB8, 1)
	h.s.EmitIndexed(uint32((ctx.PPSTileAddr+ctx.PPSTileSize*2)>>8), FieldHdr9cPPSTileAddrLSB8, 2)
	h.s.EmitIndexed(uint32((ctx.PPSTileAddr+ctx.PPSTileSize*3)>>8), FieldHdr9cPPSTileAddrLSB8, 3)
	h.s.Emit(0x70007, FieldCM3DmaConfig5)

	h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(0))>>7), FieldHdrC0CurrRefAddrLSB7, 0)
	h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(1))>>7), FieldHdrC0CurrRefAddrLSB7, 1)
	h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(2))>>7), FieldHdrC0CurrRefAddrLSB7, 2)
	h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(3))>>7), FieldHdrC0CurrRefAddrLSB7, 3)

	h.s.Emit(uint32(ctx.YAddr>>8), FieldHdr210YAddrLSB8)
	h.s.Emit(uint32(avd.RoundUp(ctx.Width, 64)>>4), FieldHdr218WidthAlign)
	h.s.Emit(uint32(ctx.UVAddr>>8), FieldHdr214UVAddrLSB8)
	h.s.Emit(uint32(avd.RoundUp(ctx.Width, 64)>>4), FieldHdr21cWidthAlign)
	h.s.Emit(0x0, FieldCM3MarkEndSection)
	h.s.Emit((uint32(ctx.Height-1)&0xffff)<<16|uint32(ctx.Width-1)&0xffff, FieldHdr54HeightWidth)

	if sl.NALUnitType != NALSliceIDR {
		if err := h.setRefs(); err != nil {
			return err
		}
	}
	return h.setScalingList()
}

func (h *halEmitter) setWeights() error {
	ctx, sl := h.ctx, h.sl
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	var x uint32 = 0x2dd00000
	switch {
	case sl.SliceType == SliceTypeP && pps.WeightedPredFlag:
		x |= 0x40
	case sl.SliceType == SliceTypeB && pps.WeightedBipredIDC == 1:
		x |= 0xad
	default:
		if sl.SliceType == SliceTypeB && pps.WeightedBipredIDC == 2 {
			x |= 0xad
		}
		h.s.Emit(x, FieldSlc76cCmdWeightsDenom)
		return nil
	}
	x |= uint32(sl.LumaLog2WeightDenom)<<3 | uint32(sl.ChromaLog2WeightDenom)
	h.s.Emit(x, FieldSlc76cCmdWeightsDenom)

	num := 0
	emitList := func(weights []PredWeight) {
		for i, w := range weights {
			if w.LumaWeightFlag {
				h.s.EmitIndexed(0x2de00000|1<<14|uint32(i)<<9|uint32(w.LumaWeight), FieldSlc770CmdWeightsWeights, num)
				h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(w.LumaOffset, 0x10000)), FieldSlc8f0CmdWeightsOffsets, num)
				num++
			}
			if w.ChromaWeightFlag {
				h.s.EmitIndexed(0x2de00000|2<<14|uint32(i)<<9|uint32(w.ChromaWeight[0]), FieldSlc770CmdWeightsWeights, num)
				h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(w.ChromaOffset[0], 0x10000)), FieldSlc8f0CmdWeightsOffsets, num)
				num++
				h.s.EmitIndexed(0x2de00000|3<<14|uint32(i)<<9|uint32(w.ChromaWeight[1]), FieldSlc770CmdWeightsWeights, num)
				h.s.EmitIndexed(0x2df00000|uint32(avd.SWrap(w.ChromaOffset[1], 0x10000)), FieldSlc8f0CmdWeightsOffsets, num)
				num++
			}
		}
	}
	emitList(sl.WeightL0)
	if sl.SliceType == SliceTypeB {
		emitList(sl.WeightL1)
	}
	return nil
}

func (h *halEmitter) setSlice() error {
	ctx, sl, pic := h.ctx, h.sl, h.pic
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return err
	}

	var x uint32
	if !pps.EntropyCodingModeFlag {
		x = uint32(sl.SliceHeaderSize % 8)
	}
	h.s.Emit(0x2d800000|x<<15, FieldSlcA7cCmdSetCodedSlice)
	h.s.Emit(uint32(ctx.SliceDataAddr)+uint32(sl.PayloadOffset()), FieldSlcA84SliceAddrLow)
	h.s.Emit(uint32(sl.PayloadSize()), FieldSlcA88SliceHdrSize)
	h.s.Emit(0x2c000000, FieldCM3CmdExecMBVP)

	h.s.Emit(0x2d900000|uint32((26+pps.PicInitQPMinus26+sl.SliceQPDelta)*0x400), FieldSlcA70CmdQuantParam)

	x = 0
	if sl.DisableDeblockingFilterIDC == 0 {
		x |= avd.SetBit(17, 1)
	}
	if sl.DisableDeblockingFilterIDC != 1 {
		x |= avd.SetBit(16, 1)
		x |= uint32(avd.SWrap(sl.SliceBetaOffsetDiv2, 16)) << 12
		x |= uint32(avd.SWrap(sl.SliceAlphaC0OffsetDiv2, 16)) << 8
	}
	h.s.Emit(0x2da00000|x, FieldSlcA74CmdDeblockingFilter)

	if sl.SliceType == SliceTypeP || sl.SliceType == SliceTypeB {
		posOf := func(picNum int) int {
			for i, p := range ctx.DPBList {
				if p.PicNum == picNum {
					return i
				}
			}
			return 0
		}
		for i, p := range pic.List0 {
			pos := posOf(p.PicNum)
			h.s.EmitIndexed(0x2dc00000|0<<8|uint32(i)<<4|uint32(pos), FieldSlc6e8CmdRefList0, i)
		}
		if sl.SliceType == SliceTypeB {
			for i, p := range pic.List1 {
				pos := posOf(p.PicNum)
				h.s.EmitIndexed(0x2dc00000|1<<8|uint32(i)<<4|uint32(pos), FieldSlc6e8CmdRefList0, i+len(pic.List0))
			}
			if err := h.setWeights(); err != nil {
				return err
			}
		} else {
			if err := h.setWeights(); err != nil {
				return err
			}
		}
	}

	h.s.Emit(0x2a000000, FieldCM3CmdSetMBDims)
	h.s.Emit((uint32(ctx.Height-1)>>4)<<12|uint32(ctx.Width-1)>>4, FieldCM3SetMBDims)

	x = 0x2d000000
	switch sl.SliceType {
	case SliceTypeI:
		x |= 0x20000
	case SliceTypeP:
		x |= 0x10000
	case SliceTypeB:
		x |= 0x40000
	}
	if sl.SliceType == SliceTypeP || sl.SliceType == SliceTypeB {
		x |= uint32(sl.NumRefIdxL0ActiveMinus1) << 11
		if sl.SliceType == SliceTypeB {
			x |= uint32(sl.NumRefIdxL1ActiveMinus1) << 7
			if !sl.DirectSpatialMBPredFlag {
				x |= 16 << 11
			}
		}
		if pps.EntropyCodingModeFlag {
			x |= uint32(sl.CabacInitIDC) << 5
		}
	}
	h.s.Emit(x, FieldSlc6e4CmdRefType)

	if sl.SliceType == SliceTypeB && len(pic.List1) > 0 {
		h.s.Emit(uint32(ctx.SPSTileAddr+ctx.SPSTileSize*uint64(pic.List1[0].SPSIdx))>>8, FieldSlcA78SPSTileAddr2LSB8)
	}

	h.s.Emit(0x2b000000|0x400, FieldCM3CmdInstFIFOEnd)
	return nil
}

/*
NAME
  hal.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/instruction"
)

// Decode is the VP9 HAL's pure opcode-emitter contract (spec §4.3),
// grounded on AVDVP9HalV3.set_header/set_tiles.
func Decode(ctx *Context, f *Frame, sink instruction.Sink) (*instruction.Stream, error) {
	s := instruction.NewStream(sink)
	h := &halEmitter{ctx: ctx, f: f, s: s}
	h.setHeader()
	h.setTiles()
	return s, nil
}

type halEmitter struct {
	ctx *Context
	f   *Frame
	s   *instruction.Stream
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// setRefs emits the three reference-slot descriptors, resolving each
// against f.Refs (filled in by the DPB manager from RefFrameMap), the
// general ref_frame_idx mechanism in place of the captured heuristic
// that picks a dpb history entry by sl.idx // 10 (see DESIGN.md).
func (h *halEmitter) setRefs() {
	ctx, f := h.ctx, h.f

	h.s.Emit(0x70007, FieldCM3DmaConfig7)
	h.s.Emit(0x70007, FieldCM3DmaConfig8)
	h.s.Emit(0x70007, FieldCM3DmaConfig9)

	hw := (uint32(f.FrameHeight-1)&0xffff)<<16 | uint32(f.FrameWidth-1)&0xffff

	for refidx := 0; refidx < RefsPerFrame; refidx++ {
		h.s.EmitIndexed(0x1000000, FieldHdr9cRef100, refidx)
		h.s.EmitIndexed(hw, FieldHdr70RefHeightWidth, refidx)
		h.s.EmitIndexed(0x40004000, FieldHdr7cRefSize, refidx)

		pic := f.Refs[refidx]
		if pic == nil {
			pic = f.Pic
		}
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(0))>>7), FieldHdr138Ef0AddrLSB8, refidx)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(1))>>7), FieldHdr144Ef1AddrLSB8, refidx)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(2))>>7), FieldHdr150Ef2AddrLSB8, refidx)
		h.s.EmitIndexed(uint32((pic.Addr+ctx.RVRAOffset(3))>>7), FieldHdr15cEf3AddrLSB8, refidx)
	}
}

// makeFlags1 ports AVDVP9HalV3.make_flags1, including its unexplained
// "???"-commented kidx-driven bits 8/9/4/5; kidx is the per-stream
// frame counter reset at every keyframe (Context.KIdx).
func (h *halEmitter) makeFlags1() uint32 {
	f, ctx := h.f, h.ctx
	var x uint32

	x |= avd.SetBit(0, 1)
	x |= avd.SetBit(14, 1)
	x |= avd.SetBit(15, 1)

	if f.FrameType != FrameTypeKey {
		x |= avd.SetBit(19, 1) // has ref #1
		if ctx.KIdx > 0 {
			x |= avd.SetBit(21, 1) // has ref #2
		}
		x |= avd.SetBit(18, b2i(f.IsFilterSwitchable))
		if !f.IsFilterSwitchable {
			switch f.RawInterpolationFilterType {
			case InterpEightTap:
				x |= avd.SetBit(16, 1)
			case InterpEightTapSharp:
				x |= avd.SetBit(17, 1)
			}
		}
	}

	if ctx.KIdx < 1 || ctx.KIdx >= 10 {
		x |= avd.SetBit(8, 1)
	}
	if ctx.KIdx > 0 {
		x |= avd.SetBit(9, 1)
	}
	if ctx.KIdx%10 == 0 {
		x |= avd.SetBit(4, 1)
	} else {
		x |= avd.SetBit(5, 1)
	}
	return x
}

func (h *halEmitter) setHeader() {
	ctx, f := h.ctx, h.f

	h.s.Emit(0x2bfff100+uint32(ctx.InstFIFOIdx)*0x10, FieldCM3CmdInstFIFOStart)

	x := uint32(0x2db012e0)
	if f.FrameType == FrameTypeKey {
		x |= 0x2000
	}
	h.s.Emit(x, FieldHdr30CmdStartHdr)

	h.s.Emit(0x2000000, FieldHdr34Const20)
	hw := (uint32(f.FrameHeight-1)&0xffff)<<16 | uint32(f.FrameWidth-1)&0xffff
	h.s.Emit(hw, FieldHdr28HeightWidthShift3)
	h.s.Emit(0, FieldCM3DmaConfig0)
	h.s.Emit(hw, FieldHdr38HeightWidth)

	x = 0x1000000
	x |= 0x1800 | uint32(min(f.TxfmMode, 3))<<7
	h.s.Emit(x|uint32(b2i(f.TxfmMode == 4)), FieldHdr2cTxfmMode)

	h.s.Emit(h.makeFlags1(), FieldHdr40Flags1Pt1)

	for n := 0; n < 8; n++ {
		h.s.EmitIndexed(0, FieldHdr50, n)
	}

	h.s.Emit(0x20000, FieldCM3DmaConfig1)
	h.s.Emit(0x4020002, FieldCM3DmaConfig2)
	h.s.Emit(0x2020202, FieldCM3DmaConfig3)
	h.s.Emit(0x240, FieldHdrE0Const240)

	h.s.EmitIndexed(uint32(ctx.ProbsAddr>>8), FieldHdrE8AddrLSB8, 7)

	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[0]>>8), FieldHdrE8AddrLSB8, 12)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[1]>>8), FieldHdrE8AddrLSB8, 8)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[1]>>8), FieldHdrE8AddrLSB8, 9)

	var n, m int
	switch {
	case f.FrameType == FrameTypeKey:
		n, m = 2, 2
	case ctx.AccessIdx%2 == 0:
		n, m = 2, 3
	default:
		n, m = 3, 2
	}
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[n]>>8), FieldHdrE8AddrLSB8, 10)
	h.s.EmitIndexed(uint32(ctx.PPSTileAddrs[m]>>8), FieldHdrE8AddrLSB8, 11)

	h.s.Emit(uint32(f.BaseQIdx)*0x8000, FieldHdr4cBaseQIdx)
	h.s.Emit(0b1000000011111111111111, FieldHdr44Flags1Pt2)
	h.s.Emit(uint32(f.LoopFilterLevel)*0x4000, FieldHdr48LoopFilterLevel)

	h.s.Emit(0x4020002, FieldCM3DmaConfig4)
	h.s.Emit(0x4020002, FieldCM3DmaConfig5)
	h.s.Emit(0, FieldCM3DmaConfig6)

	spsSize := uint64(0x8000) >> 8
	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+0*spsSize)>>8), FieldHdrE8SPS0TileAddrLSB8, 0)
	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+1*spsSize)>>8), FieldHdrE8SPS0TileAddrLSB8, 1)
	h.s.EmitIndexed(0, FieldHdrE8SPS0TileAddrLSB8, 2)
	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+3*spsSize)>>8), FieldHdrF4SPS1TileAddrLSB8, 0)
	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+4*spsSize)>>8), FieldHdrF4SPS1TileAddrLSB8, 1)
	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+6*spsSize)>>8), FieldHdrF4SPS1TileAddrLSB8, 3)

	h.s.Emit(0x70007, FieldCM3DmaConfig7)
	addr := f.Pic.Addr
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(0))>>7), FieldHdr11cAddrLSB8, 0)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(1))>>7), FieldHdr11cAddrLSB8, 1)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(2))>>7), FieldHdr11cAddrLSB8, 2)
	h.s.EmitIndexed(uint32((addr+ctx.RVRAOffset(3))>>7), FieldHdr11cAddrLSB8, 3)

	h.s.EmitIndexed(uint32((ctx.SPSTileBaseAddr+5*spsSize)>>8), FieldHdrF4SPS1TileAddrLSB8, 2)

	h.s.Emit(uint32(ctx.YAddr>>8), FieldHdr168YAddrLSB8)
	h.s.Emit(uint32(ctx.HeightWidthAlign), FieldHdr170WidthAlign)
	h.s.Emit(uint32(ctx.UVAddr>>8), FieldHdr16cUVAddrLSB8)
	h.s.Emit(uint32(ctx.HeightWidthAlign), FieldHdr174WidthAlign)
	h.s.Emit(0, FieldHdr178Zero)
	h.s.Emit(hw, FieldCM3HeightWidth)

	if f.FrameType != FrameTypeKey {
		h.setRefs()
	}
}

func (h *halEmitter) setTiles() {
	ctx := h.ctx
	for i, tile := range h.f.Tiles {
		h.s.Emit(0x2d800000, FieldCM3CmdSetSliceData)
		h.s.Emit(uint32(ctx.SliceDataAddr)+uint32(tile.Offset), FieldTilAb4TileAddrLow)
		h.s.Emit(uint32(tile.Size), FieldTilAb8TileSize)
		h.s.Emit(0x2a000000|uint32(i)*4, FieldTilMarker)

		var dims uint32 = 1
		if len(h.f.Tiles) != 1 {
			dims = uint32(i)<<24 | uint32((tile.Row+1)*8-1)<<12 | uint32((tile.Col+1)*4-1)
		}
		h.s.Emit(dims, FieldTilAc0TileDims)

		if i < len(h.f.Tiles)-1 {
			h.s.Emit(0x2bfff000, FieldCM3CmdInstFIFOEnd)
		} else {
			h.s.Emit(0x2b000400, FieldCM3CmdInstFIFOEnd)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

/*
NAME
  context.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

import (
	"github.com/ausocean/utils/logging"
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/allocator"
	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/bitstream"
	"github.com/avdstream/avd/picture"
)

// Pic is one H.264 DPB entry: the shared picture.Picture fields plus
// the codec-specific bookkeeping the reference-list construction and
// MMCO processing need.
type Pic struct {
	picture.Picture
	FrameNum     int
	POCLsb       int
	POCMsb       int
	Field        int
	Type         int // RefST or RefLT.
	ShortRefs    []*Pic
	List0, List1 []*Pic
}

// Context is the per-stream mutable decode state (spec §3 Context).
type Context struct {
	Log logging.Logger
	A   *allocator.Allocator

	SPS *bitstream.ParamSetTable[*SPS]
	PPS *bitstream.ParamSetTable[*PPS]

	Width, Height int
	MaxFrameNum   int
	MaxPicNum     int
	MaxDPBFrames  int

	AccessIdx      uint64
	PrevPOCLsb     int
	PrevPOCMsb     int
	LastPSpsTileIdx int

	DPBList    []*Pic
	UnusedRefs []*Pic
	DrainList  []*Pic

	RVRAPoolCount int
	RVRACount     int

	InstFIFOIdx   int
	InstFIFOCount int

	// Allocator-derived addresses (spec §6 "indicative" dims, §4.1).
	RVRA0Addr      uint64
	RVRA1Addr      uint64
	RVRATotalSize  uint64
	RVRASize0      uint64
	RVRASize1      uint64
	RVRASize2      uint64
	RVRASize3      uint64
	YAddr          uint64
	UVAddr         uint64
	SliceDataAddr  uint64
	SliceDataSize  uint64
	SPSTileAddr    uint64
	SPSTileSize    uint64
	SPSTileCount   int
	PPSTileAddr    uint64
	PPSTileSize    uint64
	PPSTileCount   int

	ActiveSPS *SPS
	ActivePPS *PPS

	ActiveSlice *SliceHeader
}

// NewContext constructs a Context from the stream's first-activated
// SPS/PPS, running the allocator the way AVDH264Decoder.setup/allocate
// do.
func NewContext(log logging.Logger, a *allocator.Allocator, sps *SPS) (*Context, error) {
	width := ((sps.PicWidthInMBsMinus1 + 1) * 16) - sps.FrameCropRightOffset*2 - sps.FrameCropLeftOffset*2
	heightMult := 2
	if sps.FrameMBSOnlyFlag {
		heightMult = 1
	}
	height := (heightMult * (sps.PicHeightInMapUnitsMinus1 + 1) * 16) - sps.FrameCropBottomOffset*2 - sps.FrameCropTopOffset*2

	if width < 64 || width > 4096 || height < 64 || height > 4096 {
		return nil, avderr.New(avderr.DimensionUnsupported, "h264: %dx%d outside [64,4096]", width, height)
	}
	if width%16 != 0 || height%16 != 0 {
		return nil, avderr.New(avderr.DimensionUnsupported, "h264: %dx%d not 16-aligned", width, height)
	}
	if sps.PicOrderCntType != 0 {
		return nil, avderr.New(avderr.UnsupportedStream, "h264: pic_order_cnt_type %d unsupported", sps.PicOrderCntType)
	}

	maxDPB := MaxDPBFrames
	widthMBs := (width + 15) / 16
	heightMBs := (height + 15) / 16
	for _, lvl := range Levels {
		if lvl.LevelIDC == sps.LevelIDC {
			if d := lvl.MaxDpbMbs / (widthMBs * heightMBs); d < maxDPB {
				maxDPB = d
			}
			break
		}
	}

	ctx := &Context{
		Log:           log,
		A:             a,
		SPS:           bitstream.NewParamSetTable[*SPS](MaxSPSCount),
		PPS:           bitstream.NewParamSetTable[*PPS](MaxPPSCount),
		Width:         width,
		Height:        height,
		MaxFrameNum:   1 << (sps.Log2MaxFrameNumMinus4 + 4),
		MaxDPBFrames:  maxDPB,
		InstFIFOCount: 6,
	}
	ctx.SPS.Activate(sps.ID, sps)
	ctx.ActiveSPS = sps
	ctx.allocate()
	return ctx, nil
}

// allocate lays out the allocator map for the current dimensions,
// grounded on AVDH264Decoder.allocate: canonical presets get the
// exact captured sizes, other dimensions use the approximate formula
// noted as an accepted Open Question in DESIGN.md.
func (ctx *Context) allocate() {
	a := ctx.A
	a.Reset()

	ctx.PPSTileCount = 5
	ctx.PPSTileSize = 0x8000
	ctx.SPSTileCount = 24
	ctx.RVRA0Addr = 0x734000

	switch {
	case ctx.Width == 128 && ctx.Height == 64:
		ctx.SliceDataSize = 0x8000
		ctx.SPSTileSize = 0x8000
		ctx.RVRATotalSize = 0x8000
	case ctx.Width == 1024 && ctx.Height == 512:
		ctx.SliceDataSize = 0x44000
		ctx.SPSTileSize = 0x24000
		ctx.RVRATotalSize = 0xfc000
	default:
		ctx.SliceDataSize = 0x10000
		ctx.SPSTileSize = 0x40000
		ctx.RVRATotalSize = 0x1000000
	}

	ctx.YAddr = ctx.RVRA0Addr + ctx.RVRATotalSize + 0x100

	scale := avd.Pow2Div(ctx.Height)
	if w := avd.Pow2Div(ctx.Width); w < scale {
		scale = w
	}
	var lumaSize int
	if scale >= 32 {
		lumaSize = ctx.Height * ctx.Width
	} else {
		lumaSize = avd.RoundUp(ctx.Width, 64) * avd.RoundUp(ctx.Height, 64)
	}
	ctx.UVAddr = ctx.YAddr + uint64(lumaSize)

	var chromaSize int
	if scale >= 32 {
		chromaSize = ctx.Height * ctx.Width / 2
	} else {
		chromaSize = avd.RoundUp(ctx.Height*ctx.Width/2, 0x4000)
	}
	sliceDataAddr := uint64(avd.RoundUp(int(ctx.UVAddr)+chromaSize, 0x4000)) + 0x4000
	a.BumpTo(sliceDataAddr)
	ctx.SliceDataAddr, _ = a.Alloc(ctx.SliceDataSize, 0, 0, 0, "slice_data")

	ctx.SPSTileAddr = ctx.SliceDataAddr + ctx.SliceDataSize
	ctx.PPSTileAddr = ctx.SPSTileAddr + ctx.SPSTileSize*uint64(ctx.SPSTileCount)
	ctx.RVRA1Addr = ctx.PPSTileAddr + ctx.PPSTileSize*uint64(ctx.PPSTileCount)

	ws := uint64(avd.RoundUp(ctx.Height, 32)) * uint64(avd.RoundUp(ctx.Width, 32))
	ctx.RVRASize0 = ws + ws/4
	ctx.RVRASize2 = ctx.RVRASize0 / 2
	ctx.RVRASize1 = uint64(avd.NextPow2(uint32(ctx.Height))/32) * uint64(avd.NextPow2(uint32(ctx.Width)))
	ctx.RVRASize3 = ctx.RVRATotalSize - ctx.RVRASize2 - ctx.RVRASize1 - ctx.RVRASize0

	ctx.RVRACount = ctx.MaxDPBFrames + 1 + 1

	a.BumpTo(ctx.PPSTileAddr + ctx.PPSTileSize*uint64(ctx.PPSTileCount) + ctx.RVRATotalSize*uint64(ctx.RVRACount))
}

// GetSPS and GetPPS resolve the active parameter sets for a slice.
func (ctx *Context) GetPPS(sl *SliceHeader) (*PPS, error) {
	return ctx.PPS.Get(sl.PicParameterSetID)
}

func (ctx *Context) GetSPS(sl *SliceHeader) (*SPS, error) {
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return nil, err
	}
	return ctx.SPS.Get(pps.SeqParameterSetID)
}

// RVRAOffset returns the byte offset of RVRA plane idx (0..3) within
// one RVRA allocation.
func (ctx *Context) RVRAOffset(idx int) uint64 {
	switch idx {
	case 0:
		return 0
	case 1:
		return ctx.RVRASize0
	case 2:
		return ctx.RVRASize0 + ctx.RVRASize1
	default:
		return ctx.RVRASize0 + ctx.RVRASize1 + ctx.RVRASize2
	}
}

// RVRAAddr returns the RVRA base address for pool slot idx.
func (ctx *Context) RVRAAddr(idx int) uint64 {
	if idx%ctx.RVRACount == 0 {
		return ctx.RVRA0Addr
	}
	return ctx.RVRA1Addr + uint64((idx%ctx.RVRACount)-1)*ctx.RVRATotalSize
}

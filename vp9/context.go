/*
NAME
  context.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"github.com/ausocean/utils/logging"
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/allocator"
	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/config"
	"github.com/avdstream/avd/picture"
)

// poolSize is the number of physical frame-buffer slots backing
// RefFrameMap, grounded on AVDVP9Decoder's frame_bufs[VP9_FRAME_BUFFERS]
// two-phase ref-counted pool: one slot per named reference plus one for
// the frame currently being decoded.
const poolSize = RefFrames + 1

// Context is the per-stream mutable decode state for one fixed
// dimension preset (spec §3 Context; §4.2 VP9 specifics).
//
// Unlike H.264/H.265 there is no POC or MMCO bookkeeping: the eight
// named slots of RefFrameMap are updated wholesale from
// RefreshFrameFlags after every frame, and the physical buffer backing
// each slot is drawn from Pool, the free frame-buffer pool.
type Context struct {
	Log logging.Logger
	A   *allocator.Allocator

	Width, Height int

	AccessIdx uint64
	// KIdx is the odometer-style frame counter make_flags1 keys its
	// "???"-commented flag bits off; reset to zero on every keyframe.
	KIdx int

	InstFIFOCount int
	InstFIFOIdx   int
	InstFIFOAddrs []uint64

	YAddr, UVAddr    uint64
	HeightWidthAlign uint64
	SliceDataAddr    uint64
	SliceDataSize    uint64

	SPSTileBaseAddr uint64
	PPSTileAddrs    []uint64
	ProbsAddr       uint64

	RVRASize0, RVRASize1, RVRASize2, RVRASize3 uint64
	RVRATotalSize                               uint64

	Pool        *FramePool
	RefFrameMap [RefFrames]*picture.Picture
	CurrPic     *picture.Picture
}

// NewContext lays out the instruction FIFO, the tile/probability
// scratch buffers and the reference-frame pool for one width×height
// preset, generalizing AVDVP9Decoder.setup's hardcoded 128×64 "m1n1
// compat" addresses to an allocator-derived layout for arbitrary
// dimensions.
func NewContext(log logging.Logger, a *allocator.Allocator, width, height int) (*Context, error) {
	if width < 64 || width > 4096 || height < 64 || height > 4096 {
		return nil, avderr.New(avderr.DimensionUnsupported, "vp9: %dx%d outside [64,4096]", width, height)
	}

	ctx := &Context{
		Log:    log,
		A:      a,
		Width:  width,
		Height: height,
		KIdx:   0,
	}

	a.Reset()
	ctx.allocateFIFO()
	if err := ctx.allocateBuffers(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (ctx *Context) allocateFIFO() {
	a := ctx.A
	ctx.InstFIFOCount = 6
	ctx.InstFIFOIdx = 0
	ctx.InstFIFOAddrs = make([]uint64, ctx.InstFIFOCount)
	a.BumpTo(config.InstFIFOBaseVP9)
	for n := 0; n < ctx.InstFIFOCount; n++ {
		addr, _ := a.Alloc(0x100000, 1, 0, 0x4000, fifoName(n))
		ctx.InstFIFOAddrs[n] = addr
	}
}

func fifoName(n int) string {
	const hex = "0123456789abcdef"
	return "inst_fifo" + string(hex[n])
}

// allocateBuffers lays out the display planes, slice-data ring, the
// SPS/PPS tile scratch regions, the probability-table snapshot and the
// reference-frame pool, generalizing the fixed addresses
// AVDVP9Decoder.setup assigns for its one canonical preset.
func (ctx *Context) allocateBuffers() error {
	a := ctx.A

	lumaSize := uint64(ctx.Width) * uint64(ctx.Height)
	ctx.YAddr, _ = a.Alloc(lumaSize, 1, 0, 0, "disp_y")
	chromaSize := lumaSize / 2
	ctx.UVAddr, _ = a.Alloc(chromaSize, 1, 0, 0, "disp_uv")
	ctx.HeightWidthAlign = uint64((avd.RoundUp(ctx.Height, 32) << 16) | avd.RoundUp(ctx.Width, 32))

	n := (avd.RoundUp(ctx.Width, 32) - 1) * (avd.RoundUp(ctx.Height, 32) - 1) / 0x8000
	n += 2
	if n > 0xff {
		n = 0xff
	}
	ctx.SliceDataSize = uint64(n) * 0x4000
	ctx.SliceDataAddr, _ = a.Alloc(ctx.SliceDataSize, 0x4000, 0x4000, 0, "slice_data")

	// Seven 0x8000-byte sub-slots, matching halv3.py's set_header,
	// which addresses sps_tile_base_addr + n*(0x8000>>8) for n in 0..6.
	ctx.SPSTileBaseAddr, _ = a.Alloc(7*0x8000, 1, 0, 0, "sps_tile")

	ctx.PPSTileAddrs = make([]uint64, 4)
	for i := range ctx.PPSTileAddrs {
		ctx.PPSTileAddrs[i], _ = a.Alloc(0x8000, 1, 0, 0, "pps_tile")
	}

	ctx.ProbsAddr, _ = a.Alloc(0x8000, 1, 0, 0, "probs")

	ctx.calcRVRA()
	ctx.Pool = NewFramePool(poolSize, func(i int) uint64 {
		addr, _ := a.Alloc(ctx.RVRATotalSize, 1, 0, 0, "rvra")
		return addr
	})

	a.DumpRanges()
	return nil
}

// calcRVRA derives the four RVRA plane sizes from the picture
// dimensions, following the same ws+ws/4, ws/8, next-pow2 shape as the
// H.264/H.265 RVRA estimators; RVRASize3 is an approximation of the
// fourth (motion-vector/coefficient scratch) plane in the absence of a
// captured reference value outside the one canonical preset (Open
// Question, documented in DESIGN.md).
func (ctx *Context) calcRVRA() {
	ws := uint64(avd.RoundUp(ctx.Height, 32)) * uint64(avd.RoundUp(ctx.Width, 32))
	ctx.RVRASize0 = ws + ws/4
	ctx.RVRASize2 = ctx.RVRASize0 / 2
	ctx.RVRASize1 = uint64(avd.NextPow2(uint32(ctx.Height))/32) * uint64(avd.NextPow2(uint32(ctx.Width)))
	ctx.RVRASize3 = ctx.RVRASize0 / 16
	ctx.RVRATotalSize = ctx.RVRASize0 + ctx.RVRASize1 + ctx.RVRASize2 + ctx.RVRASize3
}

// RVRAOffset returns the byte offset of RVRA plane idx (0..3) within
// one pool slot's allocation.
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

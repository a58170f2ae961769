/*
NAME
  context.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

import (
	"github.com/ausocean/utils/logging"
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/allocator"
	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/bitstream"
	"github.com/avdstream/avd/picture"
)

// Pic is one H.265 DPB pool entry.
type Pic struct {
	picture.Picture
	Type  int // RefST or RefLT.
	RASL  bool
}

// Context is the per-stream mutable decode state (spec §3 Context).
type Context struct {
	Log logging.Logger
	A   *allocator.Allocator

	SPS *bitstream.ParamSetTable[*SPS]
	PPS *bitstream.ParamSetTable[*PPS]

	Width, Height         int
	OrigWidth, OrigHeight int
	InWidth, InHeight     int

	AccessIdx        uint64
	POC              int
	LastIntraNALType int
	LastIntra        bool
	LastPSpsTileIdx  int

	// LastCtxRow/Col are the tile coordinates of the most recently
	// emitted CTB window, carried across slice segments of a picture
	// for the CTB-quadrant hint (spec §4.3). Reset to -1 at the first
	// slice segment of each picture.
	LastCtxRow int
	LastCtxCol int

	DPBPool  []*Pic
	DPBList  []*Pic
	RefLst   [NBRPSType][]*Pic
	CurSPSID int

	InstFIFOCount int
	InstFIFOIdx   int
	InstFIFOAddrs []uint64

	RVRACount     int
	RVRABaseAddrs []uint64
	RVRASize0     uint64
	RVRASize1     uint64
	RVRASize2     uint64

	LumaSize, ChromaSize   int
	YAddr, UVAddr          uint64
	SliceDataAddr          uint64
	SliceDataSize          int
	SPSTileCount           int
	SPSTileAddrs           []uint64
	PPSTileAddrs           []uint64

	ActiveSPS *SPS
	ActivePPS *PPS
}

// NewContext constructs a Context, laying out the instruction FIFO and
// the frame buffers for sps's dimensions, grounded on
// AVDH265Decoder.allocate_fifo/allocate_buffers/refresh_sps.
func NewContext(log logging.Logger, a *allocator.Allocator, sps *SPS, pps *PPS) (*Context, error) {
	ctx := &Context{
		Log:              log,
		A:                a,
		SPS:              bitstream.NewParamSetTable[*SPS](MaxSPSCount),
		PPS:              bitstream.NewParamSetTable[*PPS](MaxPPSCount),
		CurSPSID:         -1,
		POC:              -1,
		LastIntraNALType: -1,
		LastCtxRow:       -1,
		LastCtxCol:       -1,
	}
	ctx.SPS.Activate(sps.ID, sps)
	ctx.PPS.Activate(pps.ID, pps)
	ctx.RefreshPPS(pps)
	ctx.allocateFIFO()
	if err := ctx.refreshSPS(sps, pps); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (ctx *Context) allocateFIFO() {
	a := ctx.A
	a.Reset()
	ctx.InstFIFOCount = 7
	ctx.InstFIFOIdx = 0
	ctx.InstFIFOAddrs = make([]uint64, ctx.InstFIFOCount)
	a.BumpTo(0x18000)
	for n := 0; n < ctx.InstFIFOCount; n++ {
		addr, _ := a.Alloc(0x100000, 1, 0, 0x4000, fifoName(n))
		ctx.InstFIFOAddrs[n] = addr
	}
}

func fifoName(n int) string {
	const hex = "0123456789abcdef"
	return "inst_fifo" + string(hex[n])
}

// refreshSPS derives the runtime picture geometry the way
// AVDH265Decoder.refresh_sps does, and lays out the frame buffers on
// the first reference to a new SPS.
func (ctx *Context) refreshSPS(sps *SPS, pps *PPS) error {
	sps.Width = sps.PicWidthInLumaSamples
	sps.Height = sps.PicHeightInLumaSamples
	sps.Log2CtbSize = sps.Log2MinCbSize + sps.Log2DiffMaxMinCodingBlockSize
	sps.Log2MinPUSize = sps.Log2MinCbSize - 1
	sps.CtbWidth = (sps.Width + (1<<sps.Log2CtbSize - 1)) >> sps.Log2CtbSize
	sps.CtbHeight = (sps.Height + (1<<sps.Log2CtbSize - 1)) >> sps.Log2CtbSize
	sps.CtbSize = sps.CtbWidth * sps.CtbHeight

	if sps.ID == ctx.CurSPSID {
		return nil
	}

	width := sps.PicWidthInLumaSamples
	height := sps.PicHeightInLumaSamples
	ctx.OrigWidth, ctx.OrigHeight = width, height
	if width&1 != 0 {
		width = avd.RoundUp(width, 2)
	}
	if height&1 != 0 {
		height = avd.RoundUp(height, 2)
	}
	ctx.Width, ctx.Height = width, height

	if width < 64 || width > 4096 || height < 64 || height > 4096 {
		return avderr.New(avderr.DimensionUnsupported, "h265: %dx%d outside [64,4096]", width, height)
	}
	if width&1 != 0 || height&1 != 0 {
		return avderr.New(avderr.DimensionUnsupported, "h265: %dx%d not even", width, height)
	}

	ctx.InWidth = (avd.RoundUp(ctx.Width, 64) >> 4) << 4
	ctx.InHeight = ctx.Height
	ctx.CurSPSID = sps.ID

	return ctx.allocateBuffers(sps, pps)
}

func (ctx *Context) allocateBuffers(sps *SPS, pps *PPS) error {
	a := ctx.A
	rvraTotal := calcRVRA(ctx, sps)
	a.BumpTo(0x734000)
	ctx.RVRACount = 6
	ctx.RVRABaseAddrs = make([]uint64, ctx.RVRACount)
	addr, err := a.Alloc(uint64(rvraTotal), 1, 0, 0x100, "rvra0")
	if err != nil {
		return err
	}
	ctx.RVRABaseAddrs[0] = addr

	ctx.LumaSize = ctx.InWidth * ctx.InHeight
	ctx.YAddr, _ = a.Alloc(uint64(ctx.LumaSize), 1, 0, 0, "disp_y")
	ctx.ChromaSize = ctx.InWidth * avd.RoundUp(ctx.Height, 16)
	if sps.ChromaFormatIDC == ChromaIDC420 {
		ctx.ChromaSize /= 2
	}
	ctx.UVAddr, _ = a.Alloc(uint64(ctx.ChromaSize), 1, 0, 0, "disp_uv")

	n := (avd.RoundUp(ctx.Width, 32) - 1) * (avd.RoundUp(ctx.Height, 32) - 1) / 0x8000
	n += 2
	if n > 0xff {
		n = 0xff
	}
	ctx.SliceDataSize = n * 0x4000
	ctx.SliceDataAddr, _ = a.Alloc(uint64(ctx.SliceDataSize), 0x4000, 0x4000, 0, "slice_data")

	ctx.SPSTileCount = 16
	ctx.SPSTileAddrs = make([]uint64, ctx.SPSTileCount)
	spsN := avd.RoundDiv(ctx.Height*ctx.Width, 0x40000)
	if spsN < 1 {
		spsN = 1
	}
	spsTileSize := uint64(spsN+1) * 0x4000
	for n := 0; n < ctx.SPSTileCount; n++ {
		ctx.SPSTileAddrs[n], _ = a.Alloc(spsTileSize, 1, 0, 0, "sps_tile")
	}

	ppsTileCount := 5
	if pps.TilesEnabledFlag {
		ppsTileCount = 8
	}
	ctx.PPSTileAddrs = make([]uint64, ppsTileCount)
	for n := 0; n < ppsTileCount; n++ {
		ctx.PPSTileAddrs[n], _ = a.Alloc(0x8000, 1, 0, 0, "pps_tile")
	}
	if pps.TilesEnabledFlag {
		a.BumpTo(a.Top() + 0x20000)
	}

	for n := 0; n < ctx.RVRACount-1; n++ {
		ctx.RVRABaseAddrs[n+1], _ = a.Alloc(uint64(rvraTotal), 1, 0, 0, "rvra1")
	}
	a.DumpRanges()

	ctx.DPBPool = make([]*Pic, ctx.RVRACount)
	for i := range ctx.DPBPool {
		p := &Pic{}
		p.Idx = i
		p.Addr = ctx.RVRABaseAddrs[i]
		p.POC = -1
		ctx.DPBPool[i] = p
	}
	return nil
}

// calcRVRA estimates the per-slot RVRA plane allocation from the
// picture's chroma format and dimensions, storing the individual plane
// sizes on ctx for RVRAOffset to consume (Open Question, documented in
// DESIGN.md: exact hardware plane layout is approximated by the
// reference implementation's own calc_rvra helper).
func calcRVRA(ctx *Context, sps *SPS) int {
	ws := avd.RoundUp(ctx.Height, 32) * avd.RoundUp(ctx.Width, 32)
	ctx.RVRASize0 = uint64(ws) + uint64(ws)/4
	ctx.RVRASize2 = ctx.RVRASize0 / 2
	ctx.RVRASize1 = uint64(avd.NextPow2(uint32(ctx.Height))/32) * uint64(avd.NextPow2(uint32(ctx.Width)))
	total := ctx.RVRASize0 + ctx.RVRASize1 + ctx.RVRASize2
	return int(total)
}

// RVRAOffset mirrors AVDH265Ctx.rvra_offset's nonstandard index order:
// plane 0 sits after plane 1, not at offset zero.
func (ctx *Context) RVRAOffset(idx int) uint64 {
	switch idx {
	case 0:
		return ctx.RVRASize0
	case 1:
		return 0
	case 2:
		return ctx.RVRASize0 + ctx.RVRASize1 + ctx.RVRASize2
	default:
		return ctx.RVRASize0 + ctx.RVRASize1
	}
}

func (ctx *Context) GetPPS(sl *SliceHeader) (*PPS, error) {
	return ctx.PPS.Get(sl.PicParameterSetID)
}

func (ctx *Context) GetSPS(sl *SliceHeader) (*SPS, error) {
	pps, err := ctx.GetPPS(sl)
	if err != nil {
		return nil, err
	}
	return ctx.SPS.Get(pps.SPSID)
}

// RefreshPPS builds the tile boundary tables once per PPS activation,
// grounded on AVDH265Decoder.refresh_pps.
func (ctx *Context) RefreshPPS(pps *PPS) {
	if !pps.TilesEnabledFlag {
		return
	}
	pps.ColBd = make([]int, pps.NumTileColumns+1)
	pps.RowBd = make([]int, pps.NumTileRows+1)
	for i := 0; i < pps.NumTileColumns; i++ {
		pps.ColBd[i+1] = pps.ColBd[i] + pps.ColumnWidth[i]
	}
	for i := 0; i < pps.NumTileRows; i++ {
		pps.RowBd[i+1] = pps.RowBd[i] + pps.RowHeight[i]
	}
}

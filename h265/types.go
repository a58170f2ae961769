/*
NAME
  types.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package h265 implements the H.265/HEVC DPB/RPS manager, HAL opcode
// emitter and FrameParams schema.
package h265

// NAL unit type constants (Table 7-1).
const (
	NALTrailN       = 0
	NALTrailR       = 1
	NALTSAN         = 2
	NALTSAR         = 3
	NALSTSAN        = 4
	NALSTSAR        = 5
	NALRADLN        = 6
	NALRADLR        = 7
	NALRASLN        = 8
	NALRASLR        = 9
	NALBLAWLP       = 16
	NALBLAWRADL     = 17
	NALBLANLP       = 18
	NALIDRWRADL     = 19
	NALIDRNLP       = 20
	NALCRANUT       = 21
	NALRSVIRAPVCL23 = 23
	NALVPS          = 32
	NALSPS          = 33
	NALPPS          = 34
	NALAUD          = 35
)

// Slice type constants (7.4.7.1).
const (
	SliceTypeB = 0
	SliceTypeP = 1
	SliceTypeI = 2
)

// Reference-picture-set buckets (spec §4.2, A.4.2).
const (
	STCurrBef = 0
	STCurrAft = 1
	STFoll    = 2
	LTCurr    = 3
	LTFoll    = 4
	NBRPSType = 5
)

const (
	RefST = 0
	RefLT = 1
)

// Chroma format constants (Table 6-1).
const (
	ChromaIDC400 = 0
	ChromaIDC420 = 1
	ChromaIDC422 = 2
	ChromaIDC444 = 3
)

// Frame flag bits, mirroring HEVC_FRAME_FLAG_* (spec §3).
const (
	FrameFlagOutput   = 1 << 0
	FrameFlagShortRef = 1 << 1
	FrameFlagLongRef  = 1 << 2
	FrameFlagBumping  = 1 << 3
)

const (
	MaxVPSCount = 16
	MaxSPSCount = 16
	MaxPPSCount = 64
	MaxDPBSize  = 16
	MaxRefs     = MaxDPBSize
)

// IsIDR reports whether nalType is an IDR slice.
func IsIDR(nalType int) bool { return nalType == NALIDRWRADL || nalType == NALIDRNLP }

// IsBLA reports whether nalType is a broken-link-access slice.
func IsBLA(nalType int) bool {
	return nalType == NALBLAWRADL || nalType == NALBLAWLP || nalType == NALBLANLP
}

// IsIRAP reports whether nalType is an intra-random-access-point slice.
func IsIRAP(nalType int) bool { return nalType >= NALBLAWLP && nalType <= NALRSVIRAPVCL23 }

// IsIDR2 additionally treats a CRA NAL unit as IDR-like for reset
// purposes, matching the reference decoder's IS_IDR2.
func IsIDR2(nalType int) bool { return IsIDR(nalType) || nalType == NALCRANUT }

// SPS is the seq-parameter-set subset the allocator and HAL consume.
type SPS struct {
	ID                                   int
	ChromaFormatIDC                      int
	PicWidthInLumaSamples                int
	PicHeightInLumaSamples               int
	Log2MinCbSize                        int
	Log2DiffMaxMinCodingBlockSize        int
	Log2MinTbSize                        int
	Log2DiffMaxMinTransformBlockSize     int
	MaxTransformHierarchyDepthInter      int
	MaxTransformHierarchyDepthIntra      int
	AmpEnabledFlag                       bool
	PCMEnabledFlag                       bool
	PCMSampleBitDepthLumaMinus1          int
	PCMSampleBitDepthChromaMinus1        int
	Log2DiffMaxMinPCMLumaCodingBlockSize int
	SPSStrongIntraSmoothingEnableFlag    bool
	ScalingListEnableFlag                bool
	PCMLoopFilterDisabledFlag            bool

	// Width through CtbSize are derived by refreshSPS; the MinCb, MinTb
	// and MinPU fields are not set by this package.
	Width, Height                 int
	Log2CtbSize, Log2MinPUSize    int
	CtbWidth, CtbHeight, CtbSize  int
	MinCbWidth, MinCbHeight       int
	MinTbWidth, MinTbHeight       int
	MinPUWidth, MinPUHeight       int
}

// PPS is the pic-parameter-set subset the allocator and HAL consume.
type PPS struct {
	ID                               int
	SPSID                            int
	DependentSliceSegmentsEnabled    bool
	TilesEnabledFlag                 bool
	EntropyCodingSyncEnabledFlag     bool
	NumTileColumns                   int
	NumTileRows                      int
	ColumnWidth                      []int
	RowHeight                        []int
	LoopFilterAcrossTilesEnabledFlag bool
	LogParallelMergeLevel            int
	DiffCuQpDeltaDepth               int
	CuQpDeltaEnabledFlag             bool
	TransformSkipEnabledFlag         bool
	ConstrainedIntraPredFlag         bool
	SignDataHidingEnabledFlag        bool
	PicInitQPMinus26                int
	PPSCbQPOffset                   int
	PPSCrQPOffset                   int
	WeightedPredFlag                bool
	WeightedBipredFlag               int
	PPSScalingListDataPresentFlag    bool

	// Derived by RefreshPPS.
	ColBd []int
	RowBd []int
}

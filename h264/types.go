/*
NAME
  types.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package h264 implements the H.264 DPB/reference-list manager, HAL
// opcode emitter and FrameParams schema.
package h264

// NAL unit type constants (Annex B, Table 7-1).
const (
	NALSliceNonIDR  = 1
	NALSlicePartA   = 2
	NALSlicePartB   = 3
	NALSlicePartC   = 4
	NALSliceIDR     = 5
	NALSEI          = 6
	NALSPS          = 7
	NALPPS          = 8
	NALAccessDelim  = 9
	NALEndSeq       = 10
	NALEndStream    = 11
	NALFillerData   = 12
	NALSPSExt       = 13
	NALPrefix       = 14
	NALSubsetSPS    = 15
	NALSliceAux     = 19
	NALSliceExt     = 20
)

// IsSlice reports whether a NAL unit type carries slice data.
func IsSlice(nalType int) bool {
	switch nalType {
	case NALSliceNonIDR, NALSlicePartA, NALSlicePartB, NALSlicePartC, NALSliceIDR, NALSliceAux, NALSliceExt:
		return true
	default:
		return false
	}
}

// Slice type constants (Table 7-6).
const (
	SliceTypeP  = 0
	SliceTypeB  = 1
	SliceTypeI  = 2
	SliceTypeSP = 3
	SliceTypeSI = 4
)

// Reference picture type, mirroring H264_REF_ST/H264_REF_LT.
const (
	RefST = 0
	RefLT = 1
)

// Field coding constants.
const (
	FieldFrame  = 0
	FieldTop    = 1
	FieldBottom = 2
)

// Chroma format constants (Table 8-1).
const (
	ChromaIDC400 = 0
	ChromaIDC420 = 1
	ChromaIDC422 = 2
	ChromaIDC444 = 3
)

// Reference-picture-list-modification operation codes (8.4.2.1).
const (
	RPLMSub      = 0
	RPLMAdd      = 1
	RPLMLongTerm = 2
	RPLMEnd      = 3
)

// Memory-management-control-operation codes (7.4.3.3).
const (
	MMCOEnd            = 0
	MMCOShort2Unused   = 1
	MMCOForgetLong     = 2
	MMCOShortToLong    = 3
	MMCOForgetLongMany = 4
	MMCOForgetAll      = 5
	MMCOThisToLong     = 6
)

const (
	MaxSPSCount = 32
	MaxPPSCount = 256
	MaxDPBFrames = 16
)

// LevelLimits is one row of Table A-1: MaxDpbMbs bounds max_dpb_frames.
type LevelLimits struct {
	Name      string
	LevelIDC  int
	Constraint3 int
	MaxMBPS   int
	MaxFS     int
	MaxDpbMbs int
	MaxBR     int
	MaxCPB    int
	MaxVmvR   int
	MinCR     int
	MaxMvsPer2Mb int
}

// Levels is Table A-1, used to derive max_dpb_frames from level_idc
// and picture size (spec §4.2's max_num_ref_frames ceiling).
var Levels = []LevelLimits{
	{"1", 10, 0, 1485, 99, 396, 64, 175, 64, 2, 0},
	{"1b", 11, 1, 1485, 99, 396, 128, 350, 64, 2, 0},
	{"1.1", 11, 0, 3000, 396, 900, 192, 500, 128, 2, 0},
	{"1.2", 12, 0, 6000, 396, 2376, 384, 1000, 128, 2, 0},
	{"1.3", 13, 0, 11880, 396, 2376, 768, 2000, 128, 2, 0},
	{"2", 20, 0, 11880, 396, 2376, 2000, 2000, 128, 2, 0},
	{"2.1", 21, 0, 19800, 792, 4752, 4000, 4000, 256, 2, 0},
	{"2.2", 22, 0, 20250, 1620, 8100, 4000, 4000, 256, 2, 0},
	{"3", 30, 0, 40500, 1620, 8100, 10000, 10000, 256, 2, 32},
	{"3.1", 31, 0, 108000, 3600, 18000, 14000, 14000, 512, 4, 16},
	{"3.2", 32, 0, 216000, 5120, 20480, 20000, 20000, 512, 4, 16},
	{"4", 40, 0, 245760, 8192, 32768, 20000, 25000, 512, 4, 16},
	{"4.1", 41, 0, 245760, 8192, 32768, 50000, 62500, 512, 2, 16},
	{"4.2", 42, 0, 522240, 8704, 34816, 50000, 62500, 512, 2, 16},
	{"5", 50, 0, 589824, 22080, 110400, 135000, 135000, 512, 2, 16},
	{"5.1", 51, 0, 983040, 36864, 184320, 240000, 240000, 512, 2, 16},
	{"5.2", 52, 0, 2073600, 36864, 184320, 240000, 240000, 512, 2, 16},
	{"6", 60, 0, 4177920, 139264, 696320, 240000, 240000, 8192, 2, 16},
	{"6.1", 61, 0, 8355840, 139264, 696320, 480000, 480000, 8192, 2, 16},
	{"6.2", 62, 0, 16711680, 139264, 696320, 800000, 800000, 8192, 2, 16},
}

// SPS is the seq-parameter-set subset the allocator and HAL consume.
type SPS struct {
	ID                                int
	ProfileIDC                        int
	LevelIDC                          int
	ChromaFormatIDC                   int
	PicWidthInMBsMinus1               int
	PicHeightInMapUnitsMinus1         int
	FrameMBSOnlyFlag                  bool
	FrameCropLeftOffset               int
	FrameCropRightOffset              int
	FrameCropTopOffset                int
	FrameCropBottomOffset             int
	Log2MaxFrameNumMinus4             int
	PicOrderCntType                   int
	Log2MaxPicOrderCntLsbMinus4       int
	MaxNumRefFrames                   int
	GapsInFrameNumValueAllowedFlag    bool
	DirectSpatialMBPredFlagSupported  bool
	Direct8x8InferenceFlag            bool
	SeqScalingMatrixPresentFlag       bool
	SeqScalingMatrixPresentMask       bool
	SeqScalingListPresentFlag         [12]bool
	SeqScalingList4x4                 [6][16]int
	SeqScalingList8x8                 [6][64]int
}

// PPS is the pic-parameter-set subset the allocator and HAL consume.
type PPS struct {
	ID                        int
	SeqParameterSetID         int
	EntropyCodingModeFlag     bool
	PicInitQPMinus26          int
	ChromaQPIndexOffset       int
	SecondChromaQPIndexOffset int
	WeightedPredFlag          bool
	WeightedBipredIDC         int
	Transform8x8ModeFlag      bool
	PicScalingMatrixPresentFlag bool
	PicScalingListPresentFlag   [12]bool
	PicScalingList4x4           [6][16]int
	PicScalingList8x8           [6][64]int
}

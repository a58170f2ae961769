/*
NAME
  slice.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

// ShortTermRPS is one decoded short_term_ref_pic_set (7.3.7).
type ShortTermRPS struct {
	NumDeltaPocs    int
	NumNegativePics int
	Poc             []int
	Used            []bool
}

// PredWeight mirrors one reference index's weighted-prediction entry.
type PredWeight struct {
	LumaWeightFlag   bool
	LumaWeight       int
	LumaOffset       int
	ChromaWeightFlag bool
	ChromaWeight     [2]int
	ChromaOffset     [2]int
}

// SliceHeader is the normalized, typed view of one slice segment's
// syntax elements (spec §1, §3).
type SliceHeader struct {
	Idx                            int
	NALUnitType                    int
	PicParameterSetID              int
	FirstSliceSegmentInPicFlag     bool
	DependentSliceSegmentFlag      bool
	SliceSegmentAddress            int
	SliceType                      int
	PicOrderCnt                    int
	PicOutputFlag                  bool

	NumRefIdxL0ActiveMinus1 int
	NumRefIdxL1ActiveMinus1 int

	STRPS ShortTermRPS

	SliceQPDelta              int
	SliceCbQPOffset           int
	SliceCrQPOffset           int
	SliceSaoLumaFlag          bool
	SliceSaoChromaFlag        bool
	SliceTcOffsetDiv2         int
	SliceBetaOffsetDiv2       int
	SliceLoopFilterAcrossSlicesEnabledFlag bool

	MaxNumMergeCand          int
	CollocatedFromL0Flag     bool
	MvdL1ZeroFlag            bool

	HasLumaWeights          bool
	LumaLog2WeightDenom      int
	ChromaLog2WeightDenom    int
	LumaWeightL0Flag, LumaWeightL1Flag     []bool
	LumaWeightL0, LumaWeightL1             []int
	LumaOffsetL0, LumaOffsetL1             []int
	ChromaWeightL0Flag, ChromaWeightL1Flag []bool
	ChromaWeightL0, ChromaWeightL1         [][2]int
	ChromaOffsetL0, ChromaOffsetL1         [][2]int

	NumEntryPointOffsets int
	EntryPointOffset     []int

	SliceHeaderSize int // bits.

	Payload []byte

	// Reflist is filled by constructRefList: [0]=L0, [1]=L1.
	Reflist [2][]*Pic
	// Pic is the current picture, set by the DPB manager's InitSlice.
	Pic *Pic
}

// PayloadOffset returns the byte offset into Payload where slice data
// begins.
func (s *SliceHeader) PayloadOffset() int {
	return (s.SliceHeaderSize+7)/8 + 4
}

// PayloadSize returns the slice-data byte length.
func (s *SliceHeader) PayloadSize() int {
	return len(s.Payload) - s.PayloadOffset()
}

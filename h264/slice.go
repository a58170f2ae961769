/*
NAME
  slice.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

// RefPicListMod is one ref_pic_list_modification operation (8.4.2.1).
type RefPicListMod struct {
	Op               int // RPLMSub, RPLMAdd, RPLMLongTerm, RPLMEnd.
	AbsDiffPicNumM1  int
	LongTermPicNum   int
}

// PredWeight holds one reference index's weighted-prediction entries
// for one component, mirroring the slice-header luma/chroma weight
// tables (7.3.3.2).
type PredWeight struct {
	LumaWeightFlag bool
	LumaWeight     int
	LumaOffset     int
	ChromaWeightFlag bool
	ChromaWeight   [2]int
	ChromaOffset   [2]int
}

// SliceHeader is the normalized, typed view of one slice's syntax
// elements a caller-supplied parser must produce (spec §1, §3). It
// replaces the reference implementation's string-indexed dotdict
// access with explicit typed fields, per the dynamic-attribute-access
// redesign (spec §9).
type SliceHeader struct {
	Idx                   int
	NALUnitType           int
	NALRefIDC             int
	PicParameterSetID     int
	FrameNum              int
	FieldPicFlag          bool
	BottomFieldFlag       bool
	SliceType             int
	PicOrderCntLsb        int

	SliceQPDelta             int
	DisableDeblockingFilterIDC int
	SliceAlphaC0OffsetDiv2   int
	SliceBetaOffsetDiv2      int

	CabacInitIDC            int
	DirectSpatialMBPredFlag bool

	NumRefIdxL0ActiveMinus1 int
	NumRefIdxL1ActiveMinus1 int

	RefPicListModificationFlagL0 bool
	RefPicListModificationFlagL1 bool
	ModificationL0               []RefPicListMod
	ModificationL1               []RefPicListMod

	AdaptiveRefPicMarkingModeFlag bool
	MMCOForgetShort               []int // pic_num_diff per 8.2.5.4.2, -1-terminated slices treated as absent.

	LumaLog2WeightDenom   int
	ChromaLog2WeightDenom int
	WeightL0              []PredWeight
	WeightL1              []PredWeight

	SliceHeaderSize int // bits.

	// Payload is the framed RBSP bytes (post bitstream.FramePayload).
	Payload []byte
}

// NumRefIdxActive returns the active reference count for list lx (0 or
// 1), replacing the reference implementation's
// `ctx[f"num_ref_idx_l{lx}_active_minus1"]` string-indexed access.
func (s *SliceHeader) NumRefIdxActive(lx int) int {
	if lx == 0 {
		return s.NumRefIdxL0ActiveMinus1 + 1
	}
	return s.NumRefIdxL1ActiveMinus1 + 1
}

// PayloadOffset returns ceil(header_size_bits/8) + 4, the byte offset
// into Payload where slice data begins.
func (s *SliceHeader) PayloadOffset() int {
	return (s.SliceHeaderSize+7)/8 + 4
}

// PayloadSize returns the slice-data byte length.
func (s *SliceHeader) PayloadSize() int {
	return len(s.Payload) - s.PayloadOffset()
}

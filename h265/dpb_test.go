/*
NAME
  dpb_test.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

import (
	"testing"

	"github.com/avdstream/avd/allocator"
)

func newTestManager(t *testing.T) (*Manager, *Context) {
	t.Helper()
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS(), basePPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return NewManager(ctx), ctx
}

func TestInitFinishSliceIDR(t *testing.T) {
	m, ctx := newTestManager(t)

	idr := &SliceHeader{
		NALUnitType:                NALIDRWRADL,
		PicParameterSetID:          0,
		FirstSliceSegmentInPicFlag: true,
		SliceType:                  SliceTypeI,
		PicOrderCnt:                0,
		PicOutputFlag:              true,
	}
	pic, err := m.InitSlice(idr)
	if err != nil {
		t.Fatalf("InitSlice(idr): %v", err)
	}
	if pic.POC != 0 {
		t.Errorf("pic.POC = %d, want 0", pic.POC)
	}
	if !pic.HasFlag(1 << 1) { // picture.ShortRef
		t.Error("IDR pic missing ShortRef flag")
	}
	if err := m.FinishSlice(idr); err != nil {
		t.Fatalf("FinishSlice(idr): %v", err)
	}
	if !ctx.LastIntra {
		t.Error("LastIntra = false after an IDR slice")
	}
	if ctx.AccessIdx != 1 {
		t.Errorf("AccessIdx = %d, want 1", ctx.AccessIdx)
	}
}

// TestDoFrameRPSBuildsCurrBef exercises an inter P slice referencing the
// prior frame's POC through its decoded short-term RPS, and confirms
// constructRefList drains that candidate into Reflist[0].
func TestDoFrameRPSBuildsCurrBef(t *testing.T) {
	m, ctx := newTestManager(t)

	idr := &SliceHeader{
		NALUnitType:                NALIDRWRADL,
		PicParameterSetID:          0,
		FirstSliceSegmentInPicFlag: true,
		SliceType:                  SliceTypeI,
		PicOrderCnt:                0,
		PicOutputFlag:              true,
	}
	if _, err := m.InitSlice(idr); err != nil {
		t.Fatalf("InitSlice(idr): %v", err)
	}
	if err := m.FinishSlice(idr); err != nil {
		t.Fatalf("FinishSlice(idr): %v", err)
	}

	p := &SliceHeader{
		NALUnitType:                NALTrailR,
		PicParameterSetID:          0,
		FirstSliceSegmentInPicFlag: true,
		SliceType:                  SliceTypeP,
		PicOrderCnt:                4,
		PicOutputFlag:              true,
		NumRefIdxL0ActiveMinus1:    0,
		STRPS: ShortTermRPS{
			NumDeltaPocs:    1,
			NumNegativePics: 1,
			Poc:             []int{0},
			Used:            []bool{true},
		},
	}
	pPic, err := m.InitSlice(p)
	if err != nil {
		t.Fatalf("InitSlice(p): %v", err)
	}
	if pPic.POC != 4 {
		t.Errorf("pPic.POC = %d, want 4", pPic.POC)
	}
	if len(ctx.RefLst[STCurrBef]) != 1 || ctx.RefLst[STCurrBef][0].POC != 0 {
		t.Fatalf("RefLst[STCurrBef] = %+v, want one entry with POC 0", ctx.RefLst[STCurrBef])
	}
	if len(p.Reflist[0]) != 1 || p.Reflist[0][0].POC != 0 {
		t.Fatalf("Reflist[0] = %+v, want one entry with POC 0", p.Reflist[0])
	}
	if err := m.FinishSlice(p); err != nil {
		t.Fatalf("FinishSlice(p): %v", err)
	}
	if ctx.LastIntra {
		t.Error("LastIntra = true after a P slice")
	}
}

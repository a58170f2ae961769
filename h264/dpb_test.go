/*
NAME
  dpb_test.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

import (
	"testing"

	"github.com/avdstream/avd/allocator"
)

func newTestManager(t *testing.T) (*Manager, *Context) {
	t.Helper()
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if err := ctx.PPS.Activate(0, &PPS{ID: 0, SeqParameterSetID: 0}); err != nil {
		t.Fatalf("Activate PPS: %v", err)
	}
	return NewManager(ctx), ctx
}

func TestInitFinishSliceIDRThenP(t *testing.T) {
	m, _ := newTestManager(t)

	idr := &SliceHeader{
		NALUnitType:       NALSliceIDR,
		NALRefIDC:         1,
		PicParameterSetID: 0,
		SliceType:         SliceTypeI,
	}
	idrPic, err := m.InitSlice(idr)
	if err != nil {
		t.Fatalf("InitSlice(idr): %v", err)
	}
	if err := m.FinishSlice(idr, idrPic); err != nil {
		t.Fatalf("FinishSlice(idr): %v", err)
	}

	p := &SliceHeader{
		NALUnitType:             NALSliceNonIDR,
		NALRefIDC:               1,
		PicParameterSetID:       0,
		SliceType:               SliceTypeP,
		FrameNum:                1,
		PicOrderCntLsb:          2,
		NumRefIdxL0ActiveMinus1: 0,
	}
	pPic, err := m.InitSlice(p)
	if err != nil {
		t.Fatalf("InitSlice(p): %v", err)
	}
	if len(pPic.List0) != 1 {
		t.Fatalf("len(List0) = %d, want 1", len(pPic.List0))
	}
	if pPic.List0[0].PicNum != idrPic.PicNum {
		t.Errorf("List0[0].PicNum = %d, want %d", pPic.List0[0].PicNum, idrPic.PicNum)
	}
	if err := m.FinishSlice(p, pPic); err != nil {
		t.Fatalf("FinishSlice(p): %v", err)
	}
}

func TestFinishSliceMMCOForgetShort(t *testing.T) {
	m, ctx := newTestManager(t)

	idr := &SliceHeader{NALUnitType: NALSliceIDR, NALRefIDC: 1, PicParameterSetID: 0, SliceType: SliceTypeI}
	idrPic, err := m.InitSlice(idr)
	if err != nil {
		t.Fatalf("InitSlice(idr): %v", err)
	}
	if err := m.FinishSlice(idr, idrPic); err != nil {
		t.Fatalf("FinishSlice(idr): %v", err)
	}

	p := &SliceHeader{
		NALUnitType:                   NALSliceNonIDR,
		NALRefIDC:                     1,
		PicParameterSetID:             0,
		SliceType:                     SliceTypeP,
		FrameNum:                      1,
		PicOrderCntLsb:                2,
		AdaptiveRefPicMarkingModeFlag: true,
		MMCOForgetShort:               []int{0}, // forgets pic_num (1-0-1)=0, the IDR.
	}
	pPic, err := m.InitSlice(p)
	if err != nil {
		t.Fatalf("InitSlice(p): %v", err)
	}
	if err := m.FinishSlice(p, pPic); err != nil {
		t.Fatalf("FinishSlice(p): %v", err)
	}
	for _, d := range ctx.DPBList {
		if d.PicNum == idrPic.PicNum {
			t.Fatalf("MMCO forget_short left pic_num %d in DPBList", idrPic.PicNum)
		}
	}
}

func TestConstructRefListBFrame(t *testing.T) {
	m, _ := newTestManager(t)

	idr := &SliceHeader{NALUnitType: NALSliceIDR, NALRefIDC: 1, PicParameterSetID: 0, SliceType: SliceTypeI, PicOrderCntLsb: 0}
	idrPic, err := m.InitSlice(idr)
	if err != nil {
		t.Fatalf("InitSlice(idr): %v", err)
	}
	if err := m.FinishSlice(idr, idrPic); err != nil {
		t.Fatalf("FinishSlice(idr): %v", err)
	}

	fwd := &SliceHeader{NALUnitType: NALSliceNonIDR, NALRefIDC: 1, PicParameterSetID: 0, SliceType: SliceTypeP, FrameNum: 1, PicOrderCntLsb: 4}
	fwdPic, err := m.InitSlice(fwd)
	if err != nil {
		t.Fatalf("InitSlice(fwd): %v", err)
	}
	if err := m.FinishSlice(fwd, fwdPic); err != nil {
		t.Fatalf("FinishSlice(fwd): %v", err)
	}

	b := &SliceHeader{
		NALUnitType:             NALSliceNonIDR,
		NALRefIDC:               0,
		PicParameterSetID:       0,
		SliceType:               SliceTypeB,
		FrameNum:                2,
		PicOrderCntLsb:          2,
		NumRefIdxL0ActiveMinus1: 0,
		NumRefIdxL1ActiveMinus1: 0,
	}
	bPic, err := m.InitSlice(b)
	if err != nil {
		t.Fatalf("InitSlice(b): %v", err)
	}
	if len(bPic.List0) != 1 || bPic.List0[0].POC != idrPic.POC {
		t.Errorf("List0 = %+v, want the IDR (lower POC)", bPic.List0)
	}
	if len(bPic.List1) != 1 || bPic.List1[0].POC != fwdPic.POC {
		t.Errorf("List1 = %+v, want the forward pic (higher POC)", bPic.List1)
	}
}

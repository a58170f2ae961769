/*
NAME
  hal_test.go

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

func TestDecodeIDRMirrorsFrameParams(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if err := ctx.PPS.Activate(0, &PPS{ID: 0, SeqParameterSetID: 0}); err != nil {
		t.Fatalf("Activate PPS: %v", err)
	}

	m := NewManager(ctx)
	sl := &SliceHeader{
		NALUnitType:       NALSliceIDR,
		NALRefIDC:         1,
		PicParameterSetID: 0,
		SliceType:         SliceTypeI,
		SliceHeaderSize:   32,
		Payload:           make([]byte, 64),
	}
	pic, err := m.InitSlice(sl)
	if err != nil {
		t.Fatalf("InitSlice: %v", err)
	}

	fp := NewFrameParams()
	stream, err := Decode(ctx, sl, pic, fp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stream.Len() == 0 {
		t.Fatal("Decode produced no instructions")
	}

	words := stream.Words()
	wantFIFOStart := uint32(0x2b000000 | 0x100 | uint32(ctx.InstFIFOIdx*0x10))
	if words[0] != wantFIFOStart {
		t.Errorf("first word = 0x%x, want 0x%x", words[0], wantFIFOStart)
	}

	// Spec invariant P2: every emitted word must also be readable back
	// from the mirrored FrameParams at the same field/index.
	for _, inst := range stream.Instructions() {
		if got := fp.Field(inst.Name, max(inst.Idx, 0)); got != inst.Val {
			t.Errorf("field %v[%d] = 0x%x, want mirrored value 0x%x", inst.Name, inst.Idx, got, inst.Val)
		}
	}

	wantHW := (uint32(ctx.Height-1)&0xffff)<<16 | uint32(ctx.Width-1)&0xffff
	if got := fp.Field(FieldHdr3cHeightWidth, 0); got != wantHW {
		t.Errorf("FieldHdr3cHeightWidth = 0x%x, want 0x%x", got, wantHW)
	}

	if err := m.FinishSlice(sl, pic); err != nil {
		t.Fatalf("FinishSlice: %v", err)
	}
}

/*
NAME
  hal_test.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"testing"

	"github.com/avdstream/avd/allocator"
	"github.com/avdstream/avd/bitstream"
)

func TestDecodeKeyFrameMirrorsFrameParams(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, 128, 64)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	m := NewManager(ctx)
	f := &Frame{
		FrameType:   FrameTypeKey,
		FrameWidth:  128,
		FrameHeight: 64,
		BaseQIdx:    32,
		Tiles: []bitstream.Tile{
			{Row: 0, Col: 0, Offset: 0, Size: 64},
		},
	}
	if _, err := m.InitSlice(f); err != nil {
		t.Fatalf("InitSlice: %v", err)
	}

	fp := NewFrameParams()
	stream, err := Decode(ctx, f, fp)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stream.Len() == 0 {
		t.Fatal("Decode produced no instructions")
	}

	words := stream.Words()
	wantFIFOStart := uint32(0x2bfff100 + uint32(ctx.InstFIFOIdx)*0x10)
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

	wantHW := (uint32(f.FrameHeight-1)&0xffff)<<16 | uint32(f.FrameWidth-1)&0xffff
	if got := fp.Field(FieldHdr38HeightWidth, 0); got != wantHW {
		t.Errorf("FieldHdr38HeightWidth = 0x%x, want 0x%x", got, wantHW)
	}

	if err := m.FinishSlice(f); err != nil {
		t.Fatalf("FinishSlice: %v", err)
	}
}

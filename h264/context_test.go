/*
NAME
  context_test.go

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

type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

func baseSPS() *SPS {
	return &SPS{
		ID:                         0,
		ProfileIDC:                 66,
		LevelIDC:                   10,
		ChromaFormatIDC:            ChromaIDC420,
		PicWidthInMBsMinus1:        7,  // (7+1)*16 = 128
		PicHeightInMapUnitsMinus1: 3,  // (3+1)*16 = 64
		FrameMBSOnlyFlag:           true,
		Log2MaxFrameNumMinus4:      4,
		Log2MaxPicOrderCntLsbMinus4: 4,
		MaxNumRefFrames:             4,
	}
}

func TestNewContext128x64(t *testing.T) {
	a := allocator.New(dumbLogger{})
	sps := baseSPS()
	ctx, err := NewContext(dumbLogger{}, a, sps)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if ctx.Width != 128 || ctx.Height != 64 {
		t.Fatalf("dims = %dx%d, want 128x64", ctx.Width, ctx.Height)
	}
	if ctx.SliceDataSize != 0x8000 {
		t.Errorf("SliceDataSize = 0x%x, want 0x8000", ctx.SliceDataSize)
	}
	if ctx.RVRATotalSize != 0x8000 {
		t.Errorf("RVRATotalSize = 0x%x, want 0x8000", ctx.RVRATotalSize)
	}
	if ctx.RVRA0Addr != 0x734000 {
		t.Errorf("RVRA0Addr = 0x%x, want 0x734000", ctx.RVRA0Addr)
	}
	if !a.Disjoint() {
		t.Error("allocator ranges not disjoint")
	}
}

func TestNewContextDimensionUnsupported(t *testing.T) {
	a := allocator.New(dumbLogger{})
	sps := baseSPS()
	sps.PicWidthInMBsMinus1 = 0 // 16px wide: below the 64px floor.
	if _, err := NewContext(dumbLogger{}, a, sps); err == nil {
		t.Fatal("expected DimensionUnsupported error, got nil")
	}
}

func TestRVRAOffsetOrdering(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if got := ctx.RVRAOffset(0); got != 0 {
		t.Errorf("RVRAOffset(0) = 0x%x, want 0", got)
	}
	if got, want := ctx.RVRAOffset(1), ctx.RVRASize0; got != want {
		t.Errorf("RVRAOffset(1) = 0x%x, want 0x%x", got, want)
	}
}

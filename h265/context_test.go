/*
NAME
  context_test.go

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
		ID:                      0,
		ChromaFormatIDC:         ChromaIDC420,
		PicWidthInLumaSamples:   128,
		PicHeightInLumaSamples:  64,
		Log2MinCbSize:           3,
		Log2DiffMaxMinCodingBlockSize: 3,
		Log2MinTbSize:           2,
		Log2DiffMaxMinTransformBlockSize: 3,
	}
}

func basePPS() *PPS {
	return &PPS{ID: 0, SPSID: 0}
}

func TestNewContext128x64(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS(), basePPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if ctx.Width != 128 || ctx.Height != 64 {
		t.Fatalf("dims = %dx%d, want 128x64", ctx.Width, ctx.Height)
	}
	if len(ctx.DPBPool) != ctx.RVRACount {
		t.Errorf("len(DPBPool) = %d, want RVRACount %d", len(ctx.DPBPool), ctx.RVRACount)
	}
	if !a.Disjoint() {
		t.Error("allocator ranges not disjoint")
	}
}

func TestNewContextDimensionUnsupported(t *testing.T) {
	a := allocator.New(dumbLogger{})
	sps := baseSPS()
	sps.PicWidthInLumaSamples = 16
	if _, err := NewContext(dumbLogger{}, a, sps, basePPS()); err == nil {
		t.Fatal("expected DimensionUnsupported error, got nil")
	}
}

func TestRVRAOffsetNonstandardOrder(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, baseSPS(), basePPS())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	// Plane 1 sits at offset 0, plane 0 after it (spec's nonstandard order).
	if got := ctx.RVRAOffset(1); got != 0 {
		t.Errorf("RVRAOffset(1) = 0x%x, want 0", got)
	}
	if got := ctx.RVRAOffset(0); got != ctx.RVRASize0 {
		t.Errorf("RVRAOffset(0) = 0x%x, want RVRASize0 0x%x", got, ctx.RVRASize0)
	}
}

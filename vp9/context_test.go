/*
NAME
  context_test.go

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
)

type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestNewContext128x64(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, 128, 64)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if ctx.Width != 128 || ctx.Height != 64 {
		t.Fatalf("dims = %dx%d, want 128x64", ctx.Width, ctx.Height)
	}
	if ctx.Pool.Len() != poolSize {
		t.Errorf("Pool.Len() = %d, want %d", ctx.Pool.Len(), poolSize)
	}
	if !a.Disjoint() {
		t.Error("allocator ranges not disjoint")
	}
}

func TestNewContextDimensionUnsupported(t *testing.T) {
	a := allocator.New(dumbLogger{})
	if _, err := NewContext(dumbLogger{}, a, 16, 16); err == nil {
		t.Fatal("expected DimensionUnsupported error, got nil")
	}
}

func TestRVRAOffsetOrdering(t *testing.T) {
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, 128, 64)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if got := ctx.RVRAOffset(0); got != 0 {
		t.Errorf("RVRAOffset(0) = 0x%x, want 0", got)
	}
	if got, want := ctx.RVRAOffset(1), ctx.RVRASize0; got != want {
		t.Errorf("RVRAOffset(1) = 0x%x, want 0x%x", got, want)
	}
	if got, want := ctx.RVRAOffset(3), ctx.RVRASize0+ctx.RVRASize1+ctx.RVRASize2; got != want {
		t.Errorf("RVRAOffset(3) = 0x%x, want 0x%x", got, want)
	}
}

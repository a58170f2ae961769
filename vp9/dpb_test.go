/*
NAME
  dpb_test.go

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

func newTestManager(t *testing.T) (*Manager, *Context) {
	t.Helper()
	a := allocator.New(dumbLogger{})
	ctx, err := NewContext(dumbLogger{}, a, 128, 64)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return NewManager(ctx), ctx
}

func TestKeyFrameRefreshesAllSlots(t *testing.T) {
	m, ctx := newTestManager(t)

	key := &Frame{FrameType: FrameTypeKey}
	pic, err := m.InitSlice(key)
	if err != nil {
		t.Fatalf("InitSlice(key): %v", err)
	}
	if !pic.HasFlag(1) { // picture.Output
		t.Error("key frame pic missing Output flag")
	}
	if err := m.FinishSlice(key); err != nil {
		t.Fatalf("FinishSlice(key): %v", err)
	}
	for i, p := range ctx.RefFrameMap {
		if p != pic {
			t.Errorf("RefFrameMap[%d] = %v, want the key frame's pic", i, p)
		}
	}
	if ctx.KIdx != 0 {
		t.Errorf("KIdx = %d, want 0 after a key frame", ctx.KIdx)
	}
	if ctx.AccessIdx != 1 {
		t.Errorf("AccessIdx = %d, want 1", ctx.AccessIdx)
	}
}

// TestInterFrameSequenceUpdatesRefFrameMap decodes a key frame followed
// by ten inter frames, each refreshing only slot 0, and confirms each
// frame's ref_frame_idx resolution against RefFrameMap picks up the
// immediately preceding frame's picture.
func TestInterFrameSequenceUpdatesRefFrameMap(t *testing.T) {
	m, ctx := newTestManager(t)

	key := &Frame{FrameType: FrameTypeKey}
	keyPic, err := m.InitSlice(key)
	if err != nil {
		t.Fatalf("InitSlice(key): %v", err)
	}
	if err := m.FinishSlice(key); err != nil {
		t.Fatalf("FinishSlice(key): %v", err)
	}

	prevPic := keyPic
	for n := 0; n < 10; n++ {
		f := &Frame{
			FrameType:         FrameTypeNonKey,
			RefFrameIdx:       [RefsPerFrame]int{0, 0, 0},
			RefreshFrameFlags: 1, // slot 0 only.
		}
		pic, err := m.InitSlice(f)
		if err != nil {
			t.Fatalf("InitSlice(inter %d): %v", n, err)
		}
		if f.Refs[0] != prevPic {
			t.Errorf("frame %d: Refs[0] = %v, want previous frame's pic %v", n, f.Refs[0], prevPic)
		}
		if err := m.FinishSlice(f); err != nil {
			t.Fatalf("FinishSlice(inter %d): %v", n, err)
		}
		if ctx.RefFrameMap[0] != pic {
			t.Errorf("frame %d: RefFrameMap[0] = %v, want %v", n, ctx.RefFrameMap[0], pic)
		}
		for i := 1; i < RefFrames; i++ {
			if ctx.RefFrameMap[i] != keyPic {
				t.Errorf("frame %d: RefFrameMap[%d] = %v, want untouched key pic", n, i, ctx.RefFrameMap[i])
			}
		}
		prevPic = pic
	}
	if ctx.KIdx != 10 {
		t.Errorf("KIdx = %d, want 10 after 10 inter frames", ctx.KIdx)
	}
}

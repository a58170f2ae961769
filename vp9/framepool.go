/*
NAME
  framepool.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import (
	"sort"

	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/picture"
)

// FramePool is the two-phase ref-counted frame buffer pool backing
// RefFrameMap, grounded on libvpx's frame_bufs[VP9_FRAME_BUFFERS]/
// ref_cnt mechanism that original_source/avid/vp9/decoder.py names
// (VP9_FRAME_BUFFERS) but elides: a slot is free for Acquire only once
// every holder of a reference to it has Released, not merely once it
// is absent from RefFrameMap for one frame.
//
// picture.Picture itself stays flag-based (Output/ShortRef) for the
// H.264/H.265 managers, which never share a slot across frames the way
// VP9's named reference slots do; FramePool layers ref counting on top
// for that one codec.
type FramePool struct {
	pool   *picture.Pool
	refCnt []int
}

// NewFramePool returns a FramePool of n slots, addresses assigned by
// addrOf(idx).
func NewFramePool(n int, addrOf func(idx int) uint64) *FramePool {
	return &FramePool{
		pool:   picture.NewPool(n, addrOf),
		refCnt: make([]int, n),
	}
}

// Len returns the number of slots in the pool.
func (fp *FramePool) Len() int { return fp.pool.Len() }

// RefCount returns pic's current reference count (test/debug use).
func (fp *FramePool) RefCount(pic *picture.Picture) int {
	return fp.refCnt[pic.Idx]
}

// Acquire returns a slot with zero references and gives it one
// reference on behalf of the caller (the in-progress decode), matching
// libvpx's vp9_get_frame_buffer incrementing ref_cnt to 1 on handout.
// Preference is: any slot that has never been handed out or has since
// dropped to zero references; failing that, the slot with the lowest
// POC among those still at zero references (closest analogue of
// picture.Pool's Output-based eviction, adapted to ref counting).
// isReset clears every other slot's pool-level flags, matching
// AVDVP9Decoder's keyframe reset (it does not touch reference counts:
// a slot still held by a live RefFrameMap entry is not force-freed by
// a keyframe, since VP9 keyframes don't reference-reset other decoders'
// frame stores the way an H.264/H.265 IDR does).
func (fp *FramePool) Acquire(isReset bool) (*picture.Picture, error) {
	all := fp.pool.All()
	for _, pic := range all {
		if fp.refCnt[pic.Idx] == 0 {
			fp.refCnt[pic.Idx] = 1
			pic.ClearFlag(picture.Unused)
			if isReset {
				fp.resetOthers(pic)
			}
			return pic, nil
		}
	}

	ordered := make([]*picture.Picture, len(all))
	copy(ordered, all)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].POC < ordered[j].POC })
	for _, pic := range ordered {
		if fp.refCnt[pic.Idx] == 0 {
			fp.refCnt[pic.Idx] = 1
			pic.ClearFlag(picture.Unused)
			if isReset {
				fp.resetOthers(pic)
			}
			return pic, nil
		}
	}
	return nil, avderr.New(avderr.DPBExhausted, "vp9: no free frame buffer in pool of %d", fp.Len())
}

func (fp *FramePool) resetOthers(pic *picture.Picture) {
	for _, p := range fp.pool.All() {
		if p == pic {
			continue
		}
		p.ClearFlag(picture.Output | picture.ShortRef | picture.LongRef)
	}
}

// AddRef gives pic an additional reference: every RefFrameMap slot
// retargeted to the same newly-decoded picture in one FinishSlice call
// holds its own reference.
func (fp *FramePool) AddRef(pic *picture.Picture) {
	fp.refCnt[pic.Idx]++
}

// Release drops one reference from pic. The slot becomes eligible for
// Acquire again once its count reaches zero; it is marked Unused so it
// is also visible as free to any flag-based inspection.
func (fp *FramePool) Release(pic *picture.Picture) {
	if fp.refCnt[pic.Idx] == 0 {
		return
	}
	fp.refCnt[pic.Idx]--
	if fp.refCnt[pic.Idx] == 0 {
		pic.SetFlag(picture.Unused)
	}
}

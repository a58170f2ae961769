/*
NAME
  dpb.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package vp9

import "github.com/avdstream/avd/picture"

// Manager owns the reference-frame-store state for one Context: the
// eight named RefFrameMap slots and the free frame-buffer pool they
// draw from (spec §4.2 VP9 specifics).
//
// This is a generalization of AVDVP9HalV3.set_refs's captured
// behavior, which instead walks a flat per-frame history list indexed
// by a clip-specific GOP-period heuristic (sl.idx // 10). That
// heuristic only reproduces one capture's fixed 10-frame group
// structure; RefFrameMap/RefreshFrameFlags is the actual VP9 bitstream
// mechanism and generalizes to any stream (documented in DESIGN.md).
type Manager struct {
	Ctx *Context
}

func NewManager(ctx *Context) *Manager { return &Manager{Ctx: ctx} }

// InitSlice acquires the current frame's pool slot (taking the
// transient decode reference FinishSlice later drops) and resolves the
// three ref_frame_idx entries against RefFrameMap into f.Refs, matching
// AVDVP9Decoder.init_slice plus the reference-selection halv3.py folds
// into set_refs.
func (m *Manager) InitSlice(f *Frame) (*picture.Picture, error) {
	ctx := m.Ctx
	isKey := f.FrameType == FrameTypeKey

	pic, err := ctx.Pool.Acquire(isKey)
	if err != nil {
		return nil, err
	}
	if isKey {
		pic.SetFlag(picture.Output | picture.ShortRef)
	} else {
		pic.SetFlag(picture.ShortRef)
	}
	ctx.CurrPic = pic
	f.Pic = pic

	if !isKey {
		for i, idx := range f.RefFrameIdx {
			f.Refs[i] = ctx.RefFrameMap[idx]
		}
	}
	return pic, nil
}

// FinishSlice applies RefreshFrameFlags to RefFrameMap (every bit set
// retargets that named slot at the current picture, releasing whatever
// picture it previously held and taking a fresh reference on the
// current one), then releases the transient decode reference InitSlice
// took: the only references keeping ctx.CurrPic's slot alive past this
// call are the ones now held by RefFrameMap. Advances access_idx and
// the kidx odometer, grounded on AVDVP9Decoder.finish_slice plus the
// implicit refresh_frame_flags = 0xFF behavior spec §4.2 ascribes to
// key frames.
func (m *Manager) FinishSlice(f *Frame) error {
	ctx := m.Ctx

	flags := f.RefreshFrameFlags
	if f.FrameType == FrameTypeKey {
		flags = 0xff
	}
	for i := 0; i < RefFrames; i++ {
		if flags&(1<<i) == 0 {
			continue
		}
		if prev := ctx.RefFrameMap[i]; prev != nil && prev != ctx.CurrPic {
			ctx.Pool.Release(prev)
		}
		if ctx.RefFrameMap[i] != ctx.CurrPic {
			ctx.Pool.AddRef(ctx.CurrPic)
		}
		ctx.RefFrameMap[i] = ctx.CurrPic
	}
	ctx.Pool.Release(ctx.CurrPic)

	if f.FrameType == FrameTypeKey {
		ctx.KIdx = 0
	} else {
		ctx.KIdx++
	}
	ctx.AccessIdx++
	return nil
}

/*
NAME
  dpb.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h265

import (
	"github.com/avdstream/avd/picture"
)

// Manager owns the DPB/RPS state for one Context, grounded on
// AVDH265Decoder's do_frame_rps/construct_ref_list/init_slice/
// finish_slice.
type Manager struct {
	Ctx *Context
}

func NewManager(ctx *Context) *Manager { return &Manager{Ctx: ctx} }

// getFreePic returns the first pool slot without ShortRef set. The
// reference decoder notes this refill policy diverges from the
// firmware's own bookkeeping but is behaviorally equivalent for
// instruction-stream purposes.
func (m *Manager) getFreePic() *Pic {
	ctx := m.Ctx
	for _, p := range ctx.DPBPool {
		if !p.HasFlag(picture.ShortRef) {
			p.SetFlag(picture.ShortRef)
			return p
		}
	}
	// Pool exhaustion is not expected once every slot has cycled through
	// finish_slice's unref; fall back to the first slot.
	p := ctx.DPBPool[0]
	p.SetFlag(picture.ShortRef)
	return p
}

func (m *Manager) findRefByPOC(poc int) *Pic {
	ctx := m.Ctx
	for _, p := range ctx.DPBList {
		if p.POC == poc {
			return p
		}
	}
	return nil
}

func (m *Manager) addCandidateRef(t int, poc int, flags picture.Flag) {
	ctx := m.Ctx
	ref := m.findRefByPOC(poc)
	if ref == nil {
		ref = m.getFreePic()
		ref.POC = poc
		ctx.DPBList = append(ctx.DPBList, ref)
	}
	ref.SetFlag(flags)
	ctx.RefLst[t] = append(ctx.RefLst[t], ref)
}

// doFrameRPS rebuilds the five RPS buckets from the slice's decoded
// short-term RPS, grounded on do_frame_rps.
func (m *Manager) doFrameRPS(sl *SliceHeader) {
	ctx := m.Ctx

	if !IsIDR(sl.NALUnitType) {
		for _, p := range ctx.DPBList {
			if p.Idx == sl.Pic.Idx {
				continue
			}
			p.ClearFlag(picture.ShortRef)
		}
		for t := 0; t < NBRPSType; t++ {
			ctx.RefLst[t] = nil
		}

		for i := 0; i < sl.STRPS.NumDeltaPocs; i++ {
			poc := sl.STRPS.Poc[i]
			var t int
			switch {
			case !sl.STRPS.Used[i]:
				t = STFoll
			case i < sl.STRPS.NumNegativePics:
				t = STCurrBef
			default:
				t = STCurrAft
			}
			m.addCandidateRef(t, poc, picture.ShortRef)
		}
	}

	if sl.NALUnitType == NALCRANUT {
		for i, ref := range ctx.RefLst[STFoll] {
			if i < len(sl.STRPS.Poc) {
				ref.POC = sl.STRPS.Poc[i]
			}
			ref.ClearFlag(picture.Output)
		}
	}
}

// setNewRef allocates the current picture's pool slot, grounded on
// set_new_ref.
func (m *Manager) setNewRef(sl *SliceHeader) *Pic {
	ctx := m.Ctx
	ref := m.getFreePic()
	ref.Type = RefST
	ref.POC = ctx.POC
	if sl.PicOutputFlag {
		ref.SetFlag(picture.Output | picture.ShortRef)
	} else {
		ref.SetFlag(picture.ShortRef)
	}
	ref.RASL = IsIDR(sl.NALUnitType) || IsBLA(sl.NALUnitType) || sl.NALUnitType == NALCRANUT
	ref.AccessIdx = ctx.AccessIdx
	sl.Pic = ref
	return ref
}

// constructRefList builds sl.Reflist by round-robin-draining the
// ST_CURR_AFT/BEF and LT_CURR buckets, grounded on construct_ref_list.
func (m *Manager) constructRefList(sl *SliceHeader) {
	ctx := m.Ctx
	lxCount := 2
	if sl.SliceType == SliceTypeP {
		lxCount = 1
	}
	var dpbList []*Pic
	seen := map[*Pic]bool{}
	for lx := 0; lx < lxCount; lx++ {
		numActive := sl.NumRefIdxL0ActiveMinus1 + 1
		if lx == 1 {
			numActive = sl.NumRefIdxL1ActiveMinus1 + 1
		}
		var candLists [3]int
		if lx == 0 {
			candLists = [3]int{STCurrAft, STCurrBef, LTCurr}
		} else {
			candLists = [3]int{STCurrBef, STCurrAft, LTCurr}
		}
		var out []*Pic
		for len(out) < numActive {
			progressed := false
			for _, bucket := range candLists {
				for _, p := range ctx.RefLst[bucket] {
					if len(out) >= numActive {
						break
					}
					out = append(out, p)
					progressed = true
				}
			}
			if !progressed {
				break
			}
		}
		sl.Reflist[lx] = out
		for _, p := range out {
			if !seen[p] {
				seen[p] = true
				dpbList = append(dpbList, p)
			}
		}
	}
	ctx.DPBList = dpbList
}

// InitSlice derives POC, acquires the current picture's pool slot,
// rebuilds the RPS buckets on the first segment of a picture, and
// constructs the reference lists. Grounded on AVDH265Decoder.init_slice.
func (m *Manager) InitSlice(sl *SliceHeader) (*Pic, error) {
	ctx := m.Ctx
	ctx.POC = sl.PicOrderCnt
	pic := m.setNewRef(sl)

	if sl.FirstSliceSegmentInPicFlag {
		m.doFrameRPS(sl)
		ctx.LastCtxRow, ctx.LastCtxCol = -1, -1
	}
	if !sl.DependentSliceSegmentFlag && sl.SliceType != SliceTypeI {
		m.constructRefList(sl)
	}
	return pic, nil
}

// FinishSlice advances access_idx and the last-intra bookkeeping,
// grounded on finish_slice.
func (m *Manager) FinishSlice(sl *SliceHeader) error {
	ctx := m.Ctx
	if IsIDR2(sl.NALUnitType) {
		ctx.LastIntraNALType = sl.NALUnitType
	}
	ctx.LastIntra = IsIDR(sl.NALUnitType) || (isSliceNAL(sl.NALUnitType) && sl.SliceType == SliceTypeI)
	ctx.AccessIdx++
	return nil
}

func isSliceNAL(nalType int) bool {
	switch nalType {
	case NALTrailR, NALTrailN, NALTSAN, NALTSAR, NALSTSAN, NALSTSAR,
		NALBLAWLP, NALBLAWRADL, NALBLANLP, NALIDRWRADL, NALIDRNLP, NALCRANUT,
		NALRADLN, NALRADLR, NALRASLN, NALRASLR:
		return true
	default:
		return false
	}
}

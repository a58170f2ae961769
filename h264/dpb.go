/*
NAME
  dpb.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

package h264

import (
	"sort"

	"github.com/avdstream/avd/avderr"
	"github.com/avdstream/avd/picture"
)

// Manager owns the DPB/RLM state for one Context and implements the
// §4.2 reference-list construction, MMCO processing and slot-pool
// policy for H.264. Grounded on AVDH264Decoder's
// init_slice/finish_slice/construct_ref_list*/modify_ref_list/
// get_next_rvra.
type Manager struct {
	Ctx *Context
}

// NewManager returns a Manager for ctx.
func NewManager(ctx *Context) *Manager { return &Manager{Ctx: ctx} }

// InitSlice prepares sl.pic: picture numbering, POC derivation
// (prev_poc_lsb/msb wrap detection), RVRA slot acquisition and
// reference-list construction. It must run before the HAL emits
// anything for sl.
func (m *Manager) InitSlice(sl *SliceHeader) (*Pic, error) {
	ctx := m.Ctx
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return nil, err
	}
	if sl.FieldPicFlag {
		return nil, avderr.New(avderr.UnsupportedStream, "h264: field coding not supported")
	}

	pic := &Pic{Type: RefST, Field: FieldFrame}
	pic.PicNum = sl.FrameNum
	pic.FrameNum = sl.FrameNum
	pic.FrameNumWrap = sl.FrameNum
	ctx.MaxPicNum = 1 << (sps.Log2MaxFrameNumMinus4 + 4)

	if sps.GapsInFrameNumValueAllowedFlag {
		return nil, avderr.New(avderr.UnsupportedStream, "h264: gaps_in_frame_num_value_allowed_flag not supported")
	}

	pocLsb := sl.PicOrderCntLsb
	maxPocLsb := 1 << (sps.Log2MaxPicOrderCntLsbMinus4 + 4)
	var pocMsb int
	switch {
	case pocLsb < ctx.PrevPOCLsb && ctx.PrevPOCLsb-pocLsb >= maxPocLsb/2:
		pocMsb = ctx.PrevPOCMsb + maxPocLsb
	case pocLsb > ctx.PrevPOCLsb && ctx.PrevPOCLsb-pocLsb < -maxPocLsb/2:
		pocMsb = ctx.PrevPOCMsb - maxPocLsb
	default:
		pocMsb = ctx.PrevPOCMsb
	}
	pic.POCLsb = pocLsb
	pic.POCMsb = pocMsb
	pic.POC = pocMsb + pocLsb
	pic.AccessIdx = ctx.AccessIdx
	pic.SPSIdx = int(ctx.AccessIdx) % ctx.SPSTileCount

	idx, err := m.getNextRVRA(sl)
	if err != nil {
		return nil, err
	}
	pic.Idx = idx
	pic.Addr = ctx.RVRAAddr(idx)

	ctx.ActiveSlice = sl

	if err := m.constructRefList(sl, pic); err != nil {
		return nil, err
	}
	return pic, nil
}

// getNextRVRA implements the RVRA pooling algorithm: fill the pool at
// init, then on IDR gather unused+dpb pictures and pick the lowest-POC
// one (draining the rest in POC order over subsequent frames),
// otherwise drain from drain_list or pick the lowest-POC unused slot.
func (m *Manager) getNextRVRA(sl *SliceHeader) (int, error) {
	ctx := m.Ctx
	if ctx.RVRAPoolCount < ctx.RVRACount {
		idx := ctx.RVRAPoolCount
		ctx.RVRAPoolCount++
		return idx, nil
	}
	if sl.NALUnitType == NALSliceIDR {
		pool := append(append([]*Pic{}, ctx.UnusedRefs...), ctx.DPBList...)
		if len(pool) == 0 {
			return 0, avderr.New(avderr.DPBExhausted, "h264: no candidates at IDR")
		}
		sort.Slice(pool, func(i, j int) bool { return pool[i].POC < pool[j].POC })
		cand := pool[0]
		rest := make([]*Pic, 0, len(pool)-1)
		for _, p := range pool {
			if p != cand {
				rest = append(rest, p)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].POC < rest[j].POC })
		ctx.DrainList = rest
		ctx.DPBList = nil
		return cand.Idx, nil
	}
	if len(ctx.DrainList) > 0 {
		cand := ctx.DrainList[0]
		ctx.DrainList = ctx.DrainList[1:]
		out := ctx.UnusedRefs[:0]
		for _, p := range ctx.UnusedRefs {
			if p != cand {
				out = append(out, p)
			}
		}
		ctx.UnusedRefs = out
		return cand.Idx, nil
	}
	if len(ctx.UnusedRefs) == 0 {
		return 0, avderr.New(avderr.DPBExhausted, "h264: no unused RVRA slots")
	}
	sort.Slice(ctx.UnusedRefs, func(i, j int) bool { return ctx.UnusedRefs[i].POC < ctx.UnusedRefs[j].POC })
	cand := ctx.UnusedRefs[0]
	ctx.UnusedRefs = ctx.UnusedRefs[1:]
	return cand.Idx, nil
}

func getShortRefByNum(lst []*Pic, picNum int) (*Pic, error) {
	var found *Pic
	count := 0
	for _, p := range lst {
		if p != nil && p.PicNum == picNum {
			found = p
			count++
		}
	}
	if count != 1 {
		return nil, avderr.New(avderr.MalformedStream, "h264: expected exactly one short ref with pic_num %d, found %d", picNum, count)
	}
	return found, nil
}

// modifyRefList applies ref_pic_list_modification per 8.4.2.1. Only
// ops 0 (subtract), 1 (add) and 3 (end) are supported; op 2 (long-term
// reorder) is not implemented and fails cleanly with UnsupportedStream.
func (m *Manager) modifyRefList(lst []*Pic, pic *Pic, mods []RefPicListMod, numActive int) ([]*Pic, error) {
	ctx := m.Ctx
	pred := pic.PicNum
	out := append([]*Pic{}, lst...)
	for index, mod := range mods {
		if mod.Op == RPLMEnd {
			break
		}
		switch mod.Op {
		case RPLMSub, RPLMAdd:
			absDiff := mod.AbsDiffPicNumM1 + 1
			if absDiff > ctx.MaxPicNum {
				return nil, avderr.New(avderr.MalformedStream, "h264: abs_diff_pic_num %d exceeds max_pic_num", absDiff)
			}
			if mod.Op == RPLMSub {
				pred -= absDiff
			} else {
				pred += absDiff
			}
			pred &= ctx.MaxPicNum - 1

			sref, err := getShortRefByNum(pic.ShortRefs, pred)
			if err != nil {
				return nil, err
			}
			for len(out) < numActive+1 {
				out = append(out, nil)
			}
			for i := numActive; i > index; i-- {
				out[i] = out[i-1]
			}
			out[index] = sref
			nidx := index + 1
			for i := index + 1; i < numActive+1; i++ {
				if out[i] == nil || out[i].PicNum != pred {
					out[nidx] = out[i]
					nidx++
				}
			}
		case RPLMLongTerm:
			return nil, avderr.New(avderr.UnsupportedStream, "h264: long-term ref_pic_list_modification not supported")
		}
	}
	if numActive > len(out) {
		numActive = len(out)
	}
	return out[:numActive], nil
}

func (m *Manager) constructRefList(sl *SliceHeader, pic *Pic) error {
	ctx := m.Ctx
	switch sl.SliceType {
	case SliceTypeP, SliceTypeSP:
		shortRefs := filterType(ctx.DPBList, RefST)
		sort.Slice(shortRefs, func(i, j int) bool { return shortRefs[i].FrameNumWrap > shortRefs[j].FrameNumWrap })
		pic.ShortRefs = shortRefs
		list0 := shortRefs
		if sl.RefPicListModificationFlagL0 {
			var err error
			list0, err = m.modifyRefList(list0, pic, sl.ModificationL0, sl.NumRefIdxActive(0))
			if err != nil {
				return err
			}
		} else if len(list0) > sl.NumRefIdxActive(0) {
			list0 = list0[:sl.NumRefIdxActive(0)]
		}
		pic.List0 = padMissing(list0, sl.NumRefIdxActive(0))
	case SliceTypeB:
		shortRefs := filterType(ctx.DPBList, RefST)
		sort.Slice(shortRefs, func(i, j int) bool { return shortRefs[i].POC > shortRefs[j].POC })
		pic.ShortRefs = shortRefs

		var list0, list1 []*Pic
		for _, p := range shortRefs {
			if p.POC < pic.POC {
				list0 = append(list0, p)
			}
		}
		sort.Slice(list0, func(i, j int) bool { return list0[i].POC > list0[j].POC })
		for _, p := range shortRefs {
			if p.POC > pic.POC {
				list1 = append(list1, p)
			}
		}
		sort.Slice(list1, func(i, j int) bool { return list1[i].POC < list1[j].POC })

		if sl.RefPicListModificationFlagL0 {
			var err error
			list0, err = m.modifyRefList(list0, pic, sl.ModificationL0, sl.NumRefIdxActive(0))
			if err != nil {
				return err
			}
		} else if len(list0) > sl.NumRefIdxActive(0) {
			list0 = list0[:sl.NumRefIdxActive(0)]
		}
		if sl.RefPicListModificationFlagL1 {
			var err error
			list1, err = m.modifyRefList(list1, pic, sl.ModificationL1, sl.NumRefIdxActive(1))
			if err != nil {
				return err
			}
		} else if len(list1) > sl.NumRefIdxActive(1) {
			list1 = list1[:sl.NumRefIdxActive(1)]
		}
		pic.List0 = padMissing(list0, sl.NumRefIdxActive(0))
		pic.List1 = padMissing(list1, sl.NumRefIdxActive(1))
	}
	return nil
}

// padMissing pads a short reference list out to n entries with
// synthetic ReferenceMissing placeholders (spec category 5).
func padMissing(lst []*Pic, n int) []*Pic {
	for len(lst) < n {
		ph := picture.Placeholder()
		lst = append(lst, &Pic{Picture: ph})
	}
	return lst
}

func filterType(lst []*Pic, typ int) []*Pic {
	var out []*Pic
	for _, p := range lst {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// FinishSlice commits pic into the DPB, applies MMCO or the implicit
// sliding-window eviction, and advances access_idx. It must run after
// the HAL has emitted pic's instructions.
func (m *Manager) FinishSlice(sl *SliceHeader, pic *Pic) error {
	ctx := m.Ctx
	sps, err := ctx.GetSPS(sl)
	if err != nil {
		return err
	}

	if sl.NALUnitType == NALSliceIDR || sl.NALRefIDC != 0 {
		ctx.DPBList = append(ctx.DPBList, pic)
		out := ctx.UnusedRefs[:0]
		for _, p := range ctx.UnusedRefs {
			if p.Addr != pic.Addr {
				out = append(out, p)
			}
		}
		ctx.UnusedRefs = out
	}
	if sl.NALUnitType != NALSliceIDR && sl.NALRefIDC == 0 {
		ctx.UnusedRefs = append(ctx.UnusedRefs, pic)
	}

	if sl.NALUnitType == NALSliceIDR || !sl.AdaptiveRefPicMarkingModeFlag {
		if len(ctx.DPBList) > sps.MaxNumRefFrames {
			sort.Slice(ctx.DPBList, func(i, j int) bool { return ctx.DPBList[i].AccessIdx < ctx.DPBList[j].AccessIdx })
			oldest := ctx.DPBList[0]
			ctx.DPBList = ctx.DPBList[1:]
			ctx.UnusedRefs = append(ctx.UnusedRefs, oldest)
		}
	} else {
		for _, diff := range sl.MMCOForgetShort {
			picNum := (pic.PicNum - (diff + 1)) & (ctx.MaxFrameNum - 1)
			idx := -1
			for i, p := range ctx.DPBList {
				if p.PicNum == picNum {
					idx = i
					break
				}
			}
			if idx < 0 {
				return avderr.New(avderr.MalformedStream, "h264: MMCO forget_short: no DPB picture with pic_num %d", picNum)
			}
			evicted := ctx.DPBList[idx]
			ctx.DPBList = append(ctx.DPBList[:idx], ctx.DPBList[idx+1:]...)
			ctx.UnusedRefs = append(ctx.UnusedRefs, evicted)
		}
	}

	ctx.PrevPOCLsb = pic.POCLsb
	ctx.PrevPOCMsb = pic.POCMsb

	if sl.SliceType == SliceTypeP {
		ctx.LastPSpsTileIdx = int(ctx.AccessIdx) % ctx.SPSTileCount
	}
	ctx.AccessIdx++
	return nil
}

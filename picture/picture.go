/*
NAME
  picture.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package picture implements the DPB entry type and the fixed-size
// picture pool shared by all three codec DPB/RLM managers, including
// the codec-agnostic slot-acquisition algorithm.
package picture

import (
	"sort"

	"github.com/avdstream/avd/avderr"
)

// Flag is a Picture state bit.
type Flag uint8

const (
	// Output is set while the picture is present in the DPB output
	// list.
	Output Flag = 1 << iota
	// ShortRef marks a short-term reference picture.
	ShortRef
	// LongRef marks a long-term reference picture. Mutually exclusive
	// with ShortRef.
	LongRef
	// Unused marks a pool slot with no live picture. Cleared the
	// moment a slot is handed out by GetFreePic.
	Unused
)

// ID is an arena index into a Pool, replacing the cyclic
// picture<->pool references of the reference implementation this pool
// is grounded on.
type ID int

// None is the zero value of ID meaning "no picture".
const None ID = -1

// Picture is one DPB entry (spec §3).
type Picture struct {
	Idx           int    // slot index into the DPB pool.
	Addr          uint64 // IOVA of the 4-plane RVRA buffer.
	PicNum        int    // codec-specific picture number.
	POC           int    // picture order count.
	FrameNumWrap  int    // wrapped frame number (H.264 only).
	Flags         Flag
	AccessIdx     uint64 // monotonic sequence number at allocation time.
	SPSIdx        int    // slot in the SPS-tile ring buffer.
	RVRAOffsets   [4]uint64
}

// HasFlag reports whether all bits of f are set on p.
func (p *Picture) HasFlag(f Flag) bool { return p.Flags&f == f }

// SetFlag sets the bits of f on p.
func (p *Picture) SetFlag(f Flag) { p.Flags |= f }

// ClearFlag clears the bits of f on p.
func (p *Picture) ClearFlag(f Flag) { p.Flags &^= f }

// Pool is a fixed-size arena of Picture slots, one per RVRA
// allocation, all initialized with Unused set.
type Pool struct {
	slots []Picture
}

// NewPool returns a Pool of n slots, addresses assigned by addrOf(idx).
func NewPool(n int, addrOf func(idx int) uint64) *Pool {
	p := &Pool{slots: make([]Picture, n)}
	for i := range p.slots {
		p.slots[i] = Picture{Idx: i, Flags: Unused}
		if addrOf != nil {
			p.slots[i].Addr = addrOf(i)
		}
	}
	return p
}

// Len returns the number of slots in the pool.
func (p *Pool) Len() int { return len(p.slots) }

// At returns a pointer to the slot at idx.
func (p *Pool) At(idx int) *Picture { return &p.slots[idx] }

// All returns every slot in the pool, in slot-index order.
func (p *Pool) All() []*Picture {
	out := make([]*Picture, len(p.slots))
	for i := range p.slots {
		out[i] = &p.slots[i]
	}
	return out
}

// GetFreePic implements the codec-shared slot-acquisition algorithm
// (spec §4.2):
//  1. If any slot still has Unused set, return it and clear Unused.
//  2. Otherwise sort the pool by POC ascending and return the
//     lowest-POC slot that does not have Output set.
//  3. On isReset (IDR/keyframe/IRAP), after selecting the slot, mark
//     every other slot Unused and let the caller clear its dpb_list.
//
// Failing step 2 is fatal (avderr.DPBExhausted).
func (p *Pool) GetFreePic(isReset bool) (*Picture, error) {
	for i := range p.slots {
		if p.slots[i].HasFlag(Unused) {
			pic := &p.slots[i]
			pic.ClearFlag(Unused)
			p.resetOthers(pic, isReset)
			return pic, nil
		}
	}

	ordered := make([]*Picture, len(p.slots))
	for i := range p.slots {
		ordered[i] = &p.slots[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].POC < ordered[j].POC })

	for _, pic := range ordered {
		if !pic.HasFlag(Output) {
			p.resetOthers(pic, isReset)
			return pic, nil
		}
	}
	return nil, avderr.New(avderr.DPBExhausted, "picture: no free slot in pool of %d", len(p.slots))
}

// resetOthers clears every slot but pic when isReset is true, matching
// the IDR/keyframe/IRAP reset behavior: all other pool slots become
// Unused and the caller is expected to empty its dpb_list alongside
// this call.
func (p *Pool) resetOthers(pic *Picture, isReset bool) {
	if !isReset {
		return
	}
	for i := range p.slots {
		if &p.slots[i] == pic {
			continue
		}
		p.slots[i] = Picture{Idx: p.slots[i].Idx, Addr: p.slots[i].Addr, Flags: Unused}
	}
}

// Placeholder returns the synthetic reference picture substituted when
// a referenced picture is missing from the DPB (spec category 5,
// ReferenceMissing): addr=0xdead, flags=0, so decoding may continue
// without surfacing an error.
func Placeholder() Picture {
	return Picture{Addr: avderr.ReferenceMissingAddr, Flags: Flag(avderr.ReferenceMissingFlags)}
}

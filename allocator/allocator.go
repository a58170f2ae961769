/*
NAME
  allocator.go

AUTHOR
  AVD Stream Contributors

LICENSE
  Copyright (C) 2026 the AVD Stream Contributors.

  Licensed under the MIT License.
*/

// Package allocator implements the deterministic IOVA bump allocator
// used to lay out working memory, reference pictures, tile buffers and
// display planes for one SPS-activation epoch.
package allocator

import (
	"fmt"

	"github.com/ausocean/utils/logging"
	"github.com/avdstream/avd"
	"github.com/avdstream/avd/avderr"
)

// Range is one named (iova, size) allocation.
type Range struct {
	IOVA uint64
	Size uint64
	Name string
}

func (r Range) String() string {
	return fmt.Sprintf("[iova: 0x%07x size: 0x%07x name: %-11s]", r.IOVA, r.Size, r.Name)
}

// Allocator is a bump allocator over named IOVA ranges. Allocations
// within one epoch are strictly monotonically increasing; Free is a
// logical removal from the map, it does not reclaim the iova within
// the current epoch. Naming is informational except for "slice_data",
// the only range the allocator explicitly re-does when a slice's RBSP
// outgrows its current capacity.
type Allocator struct {
	log      logging.Logger
	lastIOVA uint64
	used     []Range
}

// New returns an Allocator logging through log. A nil log is replaced
// with a suppressed logger.
func New(log logging.Logger) *Allocator {
	if log == nil {
		log = logging.New(logging.Error, nil, true)
	}
	return &Allocator{log: log}
}

// Reset clears the allocator back to an empty map at iova 0, starting
// a new epoch.
func (a *Allocator) Reset() {
	a.lastIOVA = 0
	a.used = a.used[:0]
}

// Top returns the current bump cursor: the iova the next Alloc call
// with no padb4/align would use.
func (a *Allocator) Top() uint64 { return a.lastIOVA }

// BumpTo moves the cursor directly to start, used to jump over a
// region (e.g. the instruction FIFO) whose size is fixed by hardware
// rather than computed from the running allocations. start must be at
// or after the current cursor.
func (a *Allocator) BumpTo(start uint64) error {
	if start < a.lastIOVA {
		return avderr.New(avderr.MalformedStream,
			"allocator: BumpTo(0x%x) precedes current top 0x%x", start, a.lastIOVA)
	}
	a.lastIOVA = start
	return nil
}

// Alloc reserves size bytes for a range named name, after applying
// align (rounding the current cursor up to a power-of-two boundary)
// and padBefore (a fixed offset added after alignment), and returns
// the resulting iova. padAfter bytes are reserved after the range but
// not included in its recorded Size. align and padAfter, when
// nonzero, must be powers of two.
func (a *Allocator) Alloc(size uint64, align, padBefore, padAfter uint64, name string) (uint64, error) {
	if align != 0 && !avd.IsPow2(int(align)) {
		return 0, avderr.New(avderr.MalformedStream, "allocator: align 0x%x is not a power of two", align)
	}
	iova := a.lastIOVA
	if align != 0 {
		iova = uint64(avd.RoundUp(int(iova), int(align)))
	}
	iova += padBefore
	if name == "" {
		name = fmt.Sprintf("range_%d", len(a.used))
	}
	a.used = append(a.used, Range{IOVA: iova, Size: size, Name: name})
	a.lastIOVA = iova + size + padAfter
	return iova, nil
}

// Free removes the named range from the map. It does not move the
// cursor: the freed iova is not reused within the current epoch,
// matching the reference allocator's range_free.
func (a *Allocator) Free(name string) {
	kept := a.used[:0]
	for _, r := range a.used {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	a.used = kept
}

// Ranges returns the current ordered list of live ranges. The slice
// must not be mutated by the caller.
func (a *Allocator) Ranges() []Range { return a.used }

// Find returns the range named name and whether it exists.
func (a *Allocator) Find(name string) (Range, bool) {
	for _, r := range a.used {
		if r.Name == name {
			return r, true
		}
	}
	return Range{}, false
}

// DumpRanges logs the current allocator map at debug level, one line
// per range plus a final cursor line, matching the reference
// implementation's dump_ranges.
func (a *Allocator) DumpRanges() {
	for i, r := range a.used {
		line := fmt.Sprintf("[%2d] %s", i, r)
		a.log.Debug(line)
	}
	a.log.Debug(fmt.Sprintf("last iova: 0x%08x", a.lastIOVA))
}

// ReallocSliceData re-does the "slice_data" range when size exceeds
// the range's previously recorded capacity, freeing the old range and
// allocating a new one 0x4000-aligned at the current top. It returns
// the (possibly new) iova and the (possibly unchanged) capacity.
func (a *Allocator) ReallocSliceData(size uint64, prevCap uint64) (uint64, uint64) {
	if size <= prevCap {
		r, ok := a.Find("slice_data")
		if ok {
			return r.IOVA, prevCap
		}
	}
	a.Free("slice_data")
	iova, _ := a.Alloc(size, 0x4000, 0, 0, "slice_data")
	return iova, size
}

// Disjoint reports whether the current ranges are pairwise disjoint
// and sorted by iova (spec invariant P5), provided in case a caller
// wants to assert it in a test.
func (a *Allocator) Disjoint() bool {
	for i := 1; i < len(a.used); i++ {
		prev, cur := a.used[i-1], a.used[i]
		if cur.IOVA < prev.IOVA+prev.Size {
			return false
		}
	}
	return true
}

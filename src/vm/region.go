package vm

import (
	"defs"
	"mem"
)

// RangeKind distinguishes how a VM-range's pages are populated on first
// fault (spec 4.2).
type RangeKind int

const (
	// RangeAnon pages are zero-filled on demand (BSS, stack, new_pages).
	RangeAnon RangeKind = iota
	// RangeBacked pages are copied from a read-only backing slice (an ELF
	// segment resident in the ramdisk) on first fault, then become
	// ordinary private anonymous pages.
	RangeBacked
	// RangeGuard carries no mapping; touching it is always a fault. Nothing
	// in this kernel installs one: the page below the lowest stack page is
	// left without a range and handled by fault's stack-growth check.
	RangeGuard
)

// Vminfo_t is one entry in a task's VM-range list: a page-aligned span of
// virtual address space plus how it should be backed when first touched.
type Vminfo_t struct {
	Pgn     uintptr  // first page number covered
	Pglen   int      // number of pages
	Perms   mem.Pa_t // PTE_U, optionally PTE_W; applied once a page is faulted in
	Kind    RangeKind
	Backing []uint8 // RangeBacked only: source bytes, read-only, owned by the ramdisk
}

func (v *Vminfo_t) end() uintptr { return v.Pgn + uintptr(v.Pglen) }
func (v *Vminfo_t) contains(pgn uintptr) bool {
	return pgn >= v.Pgn && pgn < v.end()
}

// Vmregion_t is the per-task list of installed VM-ranges. new_pages is
// allowed to install overlapping ranges (spec 9 open question); Lookup
// favors the most recently installed range covering an address, and
// AS_t.UninstallRange only unmaps pages not still covered by some other
// surviving range, so two overlapping new_pages calls never strand each other's
// mapping (documented in DESIGN.md).
type Vmregion_t struct {
	ranges []*Vminfo_t
}

// Insert records a new range. Overlap with existing ranges is permitted.
func (vr *Vmregion_t) Insert(v *Vminfo_t) {
	vr.ranges = append(vr.ranges, v)
}

// Lookup returns the range covering page pgn, preferring the
// most-recently-installed one when ranges overlap.
func (vr *Vmregion_t) Lookup(pgn uintptr) (*Vminfo_t, bool) {
	for i := len(vr.ranges) - 1; i >= 0; i-- {
		if vr.ranges[i].contains(pgn) {
			return vr.ranges[i], true
		}
	}
	return nil, false
}

// RangePresent reports whether every page in [pgn, pgn+pglen) is covered
// by some installed range; scall's buffer-bounds checks use this before
// trusting a user-supplied pointer range.
func (vr *Vmregion_t) RangePresent(pgn uintptr, pglen int) bool {
	for i := 0; i < pglen; i++ {
		if _, ok := vr.Lookup(pgn + uintptr(i)); !ok {
			return false
		}
	}
	return true
}

// IsRangeRO reports whether the range covering pgn forbids writes.
func (vr *Vmregion_t) IsRangeRO(pgn uintptr) bool {
	v, ok := vr.Lookup(pgn)
	if !ok {
		return true
	}
	return v.Perms&mem.PTE_W == 0
}

// Remove drops the range that exactly matches [pgn, pgn+pglen) -- the same
// span a prior Insert installed -- and returns it, or false if no such
// exact range is installed. Matching proc.RemovePages expects to remove
// precisely what a prior new_pages call added, per spec's set_status-style
// symmetric add/remove contract.
func (vr *Vmregion_t) Remove(pgn uintptr, pglen int) (*Vminfo_t, bool) {
	for i, v := range vr.ranges {
		if v.Pgn == pgn && v.Pglen == pglen {
			vr.ranges = append(vr.ranges[:i], vr.ranges[i+1:]...)
			return v, true
		}
	}
	return nil, false
}

// StillCovered reports whether some remaining range still covers pgn;
// used while reclaiming a removed range's pages so a page shared by two
// overlapping new_pages spans is not unmapped out from under the other.
func (vr *Vmregion_t) StillCovered(pgn uintptr) bool {
	_, ok := vr.Lookup(pgn)
	return ok
}

// SetRangeAttrs updates the permission bits future faults in the given
// range will install (spec's set_range_attrs); it does not retroactively
// fix up PTEs already faulted in.
func (vr *Vmregion_t) SetRangeAttrs(pgn uintptr, pglen int, perms mem.Pa_t) defs.Err_t {
	for i := 0; i < pglen; {
		v, ok := vr.Lookup(pgn + uintptr(i))
		if !ok {
			return defs.AddressNotPresent
		}
		v.Perms = perms
		i += v.Pglen - int(pgn+uintptr(i)-v.Pgn)
	}
	return 0
}

// Clear empties the range list; called when a task's address space is
// torn down.
func (vr *Vmregion_t) Clear() {
	vr.ranges = nil
}

// BackedRanges returns every RangeBacked entry, used by back_all_ranges
// and unback_all_ranges to eagerly install or roll back an exec'd image's
// segments.
func (vr *Vmregion_t) BackedRanges() []*Vminfo_t {
	var out []*Vminfo_t
	for _, v := range vr.ranges {
		if v.Kind == RangeBacked {
			out = append(out, v)
		}
	}
	return out
}

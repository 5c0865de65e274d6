package vm

import (
	"testing"

	"mem"
)

func TestLookupPrefersMostRecentOverlap(t *testing.T) {
	var vr Vmregion_t
	older := &Vminfo_t{Pgn: 10, Pglen: 4, Kind: RangeAnon}
	newer := &Vminfo_t{Pgn: 12, Pglen: 4, Kind: RangeAnon}
	vr.Insert(older)
	vr.Insert(newer)

	got, ok := vr.Lookup(13)
	if !ok || got != newer {
		t.Fatalf("Lookup(13) = (%v, %v), want the most recently installed overlapping range", got, ok)
	}

	got, ok = vr.Lookup(10)
	if !ok || got != older {
		t.Fatalf("Lookup(10) = (%v, %v), want the only range covering page 10", got, ok)
	}
}

func TestRangePresent(t *testing.T) {
	var vr Vmregion_t
	vr.Insert(&Vminfo_t{Pgn: 0, Pglen: 4})

	if !vr.RangePresent(0, 4) {
		t.Fatal("expected a fully covered range to be present")
	}
	if vr.RangePresent(0, 5) {
		t.Fatal("expected a range extending past installed pages to be absent")
	}
	if vr.RangePresent(4, 1) {
		t.Fatal("expected the first page past the installed range to be absent")
	}
}

func TestIsRangeRO(t *testing.T) {
	var vr Vmregion_t
	vr.Insert(&Vminfo_t{Pgn: 0, Pglen: 1, Perms: mem.PTE_U | mem.PTE_W})
	vr.Insert(&Vminfo_t{Pgn: 1, Pglen: 1, Perms: mem.PTE_U})

	if vr.IsRangeRO(0) {
		t.Fatal("expected the writable range to report not read-only")
	}
	if !vr.IsRangeRO(1) {
		t.Fatal("expected the range without PTE_W to report read-only")
	}
	if !vr.IsRangeRO(99) {
		t.Fatal("expected an address with no installed range to report read-only")
	}
}

func TestRemoveExactMatch(t *testing.T) {
	var vr Vmregion_t
	v := &Vminfo_t{Pgn: 5, Pglen: 3}
	vr.Insert(v)

	if _, ok := vr.Remove(5, 2); ok {
		t.Fatal("expected Remove with a non-matching length to fail")
	}
	got, ok := vr.Remove(5, 3)
	if !ok || got != v {
		t.Fatalf("Remove(5, 3) = (%v, %v), want the exact range removed", got, ok)
	}
	if _, ok := vr.Lookup(5); ok {
		t.Fatal("expected the removed range to no longer be found")
	}
}

func TestStillCoveredAcrossOverlap(t *testing.T) {
	var vr Vmregion_t
	a := &Vminfo_t{Pgn: 0, Pglen: 4}
	b := &Vminfo_t{Pgn: 2, Pglen: 4}
	vr.Insert(a)
	vr.Insert(b)

	vr.Remove(0, 4)

	if !vr.StillCovered(2) {
		t.Fatal("expected page 2 to remain covered by the surviving overlapping range")
	}
	if vr.StillCovered(1) {
		t.Fatal("expected page 1 (only covered by the removed range) to no longer be covered")
	}
}

func TestSetRangeAttrs(t *testing.T) {
	var vr Vmregion_t
	vr.Insert(&Vminfo_t{Pgn: 0, Pglen: 4, Perms: mem.PTE_U})

	if err := vr.SetRangeAttrs(0, 4, mem.PTE_U|mem.PTE_W); err != 0 {
		t.Fatalf("SetRangeAttrs returned error %v", err)
	}
	if vr.IsRangeRO(0) {
		t.Fatal("expected SetRangeAttrs to have cleared read-only status")
	}
}

func TestSetRangeAttrsMissingRange(t *testing.T) {
	var vr Vmregion_t
	if err := vr.SetRangeAttrs(0, 1, mem.PTE_U); err == 0 {
		t.Fatal("expected SetRangeAttrs over an uninstalled range to report an error")
	}
}

func TestBackedRanges(t *testing.T) {
	var vr Vmregion_t
	vr.Insert(&Vminfo_t{Pgn: 0, Pglen: 1, Kind: RangeAnon})
	backed := &Vminfo_t{Pgn: 1, Pglen: 1, Kind: RangeBacked}
	vr.Insert(backed)

	got := vr.BackedRanges()
	if len(got) != 1 || got[0] != backed {
		t.Fatalf("BackedRanges() = %v, want exactly the one RangeBacked entry", got)
	}
}

func TestClear(t *testing.T) {
	var vr Vmregion_t
	vr.Insert(&Vminfo_t{Pgn: 0, Pglen: 1})
	vr.Clear()
	if _, ok := vr.Lookup(0); ok {
		t.Fatal("expected Clear to empty the range list")
	}
}

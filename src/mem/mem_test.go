package mem

import "testing"

func TestPDEPTEIndex(t *testing.T) {
	specs := []struct {
		va       uintptr
		wantPDE  uint32
		wantPTE  uint32
	}{
		{0x00000000, 0, 0},
		{0x00400000, 1, 0},
		{0x00401000, 1, 1},
		{0xffc00000, 1023, 0},
		{0xfffff000, 1023, 1023},
	}
	for i, s := range specs {
		if got := PDEIndex(s.va); got != s.wantPDE {
			t.Errorf("[spec %d] PDEIndex(0x%x) = %d, want %d", i, s.va, got, s.wantPDE)
		}
		if got := PTEIndex(s.va); got != s.wantPTE {
			t.Errorf("[spec %d] PTEIndex(0x%x) = %d, want %d", i, s.va, got, s.wantPTE)
		}
	}
}

func TestPg2bytesRoundtrip(t *testing.T) {
	var pg Pg_t
	pg[0] = 0x04030201
	bpg := Pg2bytes(&pg)

	if bpg[0] != 0x01 || bpg[1] != 0x02 || bpg[2] != 0x03 || bpg[3] != 0x04 {
		t.Fatalf("Pg2bytes little-endian view wrong: %x %x %x %x", bpg[0], bpg[1], bpg[2], bpg[3])
	}

	back := Bytepg2pg(bpg)
	if back[0] != pg[0] {
		t.Fatalf("Bytepg2pg roundtrip = 0x%x, want 0x%x", back[0], pg[0])
	}
}

// newTestFrameTable builds a Physmem_t over n frames without calling
// Phys_init (which allocates Zeropg via refpg_new_scan and Derefs it --
// unsafe over a fabricated physical address on a host test). Refcnt/
// Refup/Refdown only index Pgs, so they're exercisable directly.
func newTestFrameTable(n int) *Physmem_t {
	return &Physmem_t{Pgs: make([]Physpg_t, n), startn: 0}
}

func TestRefupRefdownRefcnt(t *testing.T) {
	phys := newTestFrameTable(4)
	pa := Pa_t(0) // frame 0, page-aligned

	if got := phys.Refcnt(pa); got != 0 {
		t.Fatalf("fresh frame Refcnt = %d, want 0", got)
	}

	phys.Refup(pa)
	phys.Refup(pa)
	if got := phys.Refcnt(pa); got != 2 {
		t.Fatalf("Refcnt after two Refup = %d, want 2", got)
	}

	if down := phys.Refdown(pa); down {
		t.Fatal("Refdown should not report zero after only one decrement of a refcount-2 frame")
	}
	if down := phys.Refdown(pa); !down {
		t.Fatal("Refdown should report zero once the refcount reaches it")
	}
}

func TestRefdownGivesBackAFreeFrameAtZero(t *testing.T) {
	phys := newTestFrameTable(2)
	phys.Free.Given(2)
	pa := Pa_t(0)

	phys.Refup(pa)
	if phys.FreeFrames() != 2 {
		t.Fatalf("FreeFrames() after Refup alone = %d, want 2 (Refup doesn't touch Free)", phys.FreeFrames())
	}

	if !phys.Refdown(pa) {
		t.Fatal("Refdown should report zero for a refcount-1 frame")
	}
	if phys.FreeFrames() != 3 {
		t.Fatalf("FreeFrames() after Refdown-to-zero = %d, want 3 (Give credited one back)", phys.FreeFrames())
	}
}

func TestRefdownBelowZeroPanics(t *testing.T) {
	phys := newTestFrameTable(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected Refdown of an already-zero frame to panic")
		}
	}()
	phys.Refdown(0)
}

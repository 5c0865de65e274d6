// Package mem implements the kernel's physical-frame allocator: a flat
// array of per-frame reference counts and a linear-scan free-frame search,
// the model spec.md's uniprocessor design calls for in place of the
// teacher's per-CPU free lists.
package mem

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"limits"
)

// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks the offset within a page.
const PGOFFSET Pa_t = 0xfff

// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

// PTE/PDE bit layout for IA-32 two-level paging (spec 3).
const (
	PTE_P   Pa_t = 1 << 0 // present
	PTE_W   Pa_t = 1 << 1 // writable
	PTE_U   Pa_t = 1 << 2 // user accessible
	PTE_PWT Pa_t = 1 << 3 // write-through
	PTE_PCD Pa_t = 1 << 4 // cache disable
	PTE_A   Pa_t = 1 << 5 // accessed
	PTE_D   Pa_t = 1 << 6 // dirty (PTEs only)
	PTE_G   Pa_t = 1 << 8 // global

	// PTE_ADDR extracts the 20-bit frame number from a PDE/PTE.
	PTE_ADDR Pa_t = PGMASK
)

// Pa_t is a 32-bit physical address.
type Pa_t uint32

// Bytepg_t is a byte-addressed page.
type Bytepg_t [PGSIZE]uint8

// Pg_t is a page viewed as an array of words.
type Pg_t [PGSIZE / 4]uint32

// Pmap_t is a page table or page directory page: 1024 32-bit entries.
type Pmap_t [1024]Pa_t

// Page_i abstracts physical frame allocation so packages that only need to
// allocate and share frames (circbuf, vm) don't import the allocator
// directly.
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Deref(Pa_t) *Pg_t
	Refup(Pa_t)
	Refdown(Pa_t) bool
}

// Pg2bytes converts a word-addressed page to a byte-addressed page.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

// Bytepg2pg converts a byte-addressed page back to a word-addressed page.
func Bytepg2pg(pg *Bytepg_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(pg))
}

func pg2pmap(pg *Pg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}

func pg2pgn(p_pg Pa_t) uint32 {
	return uint32(p_pg) >> PGSHIFT
}

// Physpg_t tracks one physical frame: only a reference count. Unlike the
// teacher's Physpg_t, there is no per-CPU TLB-shootdown mask (uniprocessor)
// and no free-list link (the allocator scans rather than threading a list,
// per spec 4.1).
type Physpg_t struct {
	Refcnt int32
}

// Physmem_t is the global frame allocator: a flat table of frame refcounts
// covering all physical memory below the kernel window's top, searched
// linearly for a free frame. A single mutex is enough on a uniprocessor
// kernel; the teacher's per-CPU sharding exists only to avoid contention
// across real SMP cores, which this kernel never has (Non-goals).
type Physmem_t struct {
	sync.Mutex
	Pgs    []Physpg_t
	startn uint32
	// nextscan remembers where the last linear scan left off so repeated
	// allocations don't all restart at frame zero.
	nextscan uint32
	inited   bool

	// Free tracks the number of frames with refcount zero in
	// limits.Sysatomic_t's atomic counter, readable through FreeFrames
	// without taking phys's lock; refpg_new_scan does not consult it.
	Free limits.Sysatomic_t
}

// Refaddr returns the refcount pointer for the frame backing p_pg.
func (phys *Physmem_t) Refaddr(p_pg Pa_t) *int32 {
	idx := pg2pgn(p_pg) - phys.startn
	return &phys.Pgs[idx].Refcnt
}

// Refcnt returns the current reference count of a frame.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	return int(atomic.LoadInt32(phys.Refaddr(p_pg)))
}

// Refup increments the reference count of a frame.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	c := atomic.AddInt32(phys.Refaddr(p_pg), 1)
	if c <= 0 {
		panic("wut")
	}
}

// Refdown decrements the reference count of a frame and reports whether it
// reached zero.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	c := atomic.AddInt32(phys.Refaddr(p_pg), -1)
	if c < 0 {
		panic("wut")
	}
	if c == 0 {
		phys.Free.Give()
		return true
	}
	return false
}

// Zeropg is a zero-filled page used to initialize fresh frames, and
// ZeropgPa its physical address -- the frame vm.AS_t.ResolveAnon maps,
// read-only, for a touched page of a RangeAnon range without PTE_W.
// Writable RangeAnon ranges (the stack, new_pages) get a fresh frame
// instead.
var Zeropg *Pg_t
var ZeropgPa Pa_t

// Refpg_new allocates a zeroed frame with refcount zero; the caller is
// expected to Refup it once installed in a mapping.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys.refpg_new_scan()
	if !ok {
		return nil, 0, false
	}
	*pg = *Zeropg
	return pg, p_pg, true
}

// Refpg_new_nozero allocates a frame without zeroing it, used when the
// caller is about to overwrite the whole frame anyway (the COW copy path).
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	return phys.refpg_new_scan()
}

// refpg_new_scan performs the linear scan spec.md 4.1 describes: walk the
// frame table from where the last scan stopped, wrapping once, looking for
// a frame with refcount zero.
func (phys *Physmem_t) refpg_new_scan() (*Pg_t, Pa_t, bool) {
	phys.Lock()
	defer phys.Unlock()

	n := uint32(len(phys.Pgs))
	for i := uint32(0); i < n; i++ {
		idx := (phys.nextscan + i) % n
		if atomic.LoadInt32(&phys.Pgs[idx].Refcnt) == 0 {
			phys.nextscan = (idx + 1) % n
			phys.Free.Take()
			p_pg := Pa_t(idx+phys.startn) << PGSHIFT
			return phys.Deref(p_pg), p_pg, true
		}
	}
	return nil, 0, false
}

// FreeFrames reports the number of frames currently at refcount zero,
// read from the Free counter without walking the frame table.
func (phys *Physmem_t) FreeFrames() int64 {
	return int64(phys.Free)
}

// Deref returns the kernel-virtual pointer for a physical frame. Physical
// memory below USER_MEM_START is identity-mapped (the kernel window, spec
// 3), so dereferencing a frame is a direct cast rather than a lookup
// through a direct-map window; the teacher's 512GB Dmap slot has no
// counterpart in a 32-bit address space (see DESIGN.md).
func (phys *Physmem_t) Deref(p Pa_t) *Pg_t {
	return (*Pg_t)(unsafe.Pointer(uintptr(p)))
}

// Derefbytes returns a byte slice view of the frame starting at the
// in-page offset of p.
func (phys *Physmem_t) Derefbytes(p Pa_t) []uint8 {
	pg := phys.Deref(p & PGMASK)
	off := p & PGOFFSET
	bpg := Pg2bytes(pg)
	return bpg[off:]
}

// Physmem is the global frame allocator instance.
var Physmem = &Physmem_t{}

// Phys_init initializes the global frame allocator over the physical
// memory range [start, start+npages*PGSIZE), all of which must already lie
// inside the kernel window. frame 0 of that range is reserved for Zeropg.
func Phys_init(start Pa_t, npages int) *Physmem_t {
	phys := Physmem
	phys.Pgs = make([]Physpg_t, npages)
	phys.startn = pg2pgn(start)
	phys.nextscan = 0
	phys.Free.Given(uint(npages))

	var ok bool
	Zeropg, ZeropgPa, ok = phys.refpg_new_scan()
	if !ok {
		panic("oom reserving zero page during mem init")
	}
	for i := range Zeropg {
		Zeropg[i] = 0
	}
	phys.Refup(ZeropgPa)
	phys.inited = true
	fmt.Printf("mem: %d frames (%dMB) available\n", npages, npages/256)
	return phys
}

// assert the allocator satisfies Page_i used by circbuf and vm.
var _ Page_i = (*Physmem_t)(nil)

// pdeIndex and pteIndex split a 32-bit virtual address into its page
// directory and page table indices (spec 3: 10/10/12 split).
func pdeIndex(va uint32) uint32 { return (va >> 22) & 0x3ff }
func pteIndex(va uint32) uint32 { return (va >> 12) & 0x3ff }

// PDEIndex and PTEIndex are the exported forms used by vm.
func PDEIndex(va uintptr) uint32 { return pdeIndex(uint32(va)) }
func PTEIndex(va uintptr) uint32 { return pteIndex(uint32(va)) }

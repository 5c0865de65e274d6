// Package vm implements per-task address spaces: the page-directory/page
// table pair, the VM-range list describing what should back each page, and
// the mechanics copy-on-write, on-demand backing, and stack growth all
// share. The page-fault cause classification that decides which of these
// mechanics to invoke lives in package fault; vm only knows how to resolve
// a fault once its cause is known.
package vm

import (
	"sync"

	"defs"
	"mem"
	"util"
)

// AS_t is a task's address space: its page directory plus the VM-range
// list describing how each range should be populated. The mutex is the
// "pmap lock" spec 5 refers to: it serializes page-table edits against
// concurrent faults and syscalls from other threads of the same task.
type AS_t struct {
	sync.Mutex
	Regions Vmregion_t
	Pmap    *mem.Pmap_t
	P_pmap  mem.Pa_t

	kwinPDEs  int
	pgfltaken bool
}

// KwinPDEs returns how many kernel-window PDEs this address space was
// built with, so exec can size a replacement address space identically.
func (as *AS_t) KwinPDEs() int {
	return as.kwinPDEs
}

// Lock_pmap acquires the address-space lock and marks a fault as in
// progress, matching the teacher's pgfltaken bookkeeping used to catch
// double-locking bugs during development.
func (as *AS_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

// Unlock_pmap releases the address-space lock.
func (as *AS_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

// Lockassert_pmap panics if called without the address-space lock held.
func (as *AS_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pmap lock must be held")
	}
}

// NewAddressSpace allocates a fresh page directory with the kernel window
// installed and an empty range list.
func NewAddressSpace(kwinPDEs int) (*AS_t, defs.Err_t) {
	pmap, p_pmap, err := Pmap_new(kwinPDEs)
	if err != 0 {
		return nil, err
	}
	mem.Physmem.Refup(p_pmap)
	return &AS_t{Pmap: pmap, P_pmap: p_pmap, kwinPDEs: kwinPDEs}, 0
}

// Fork builds a child address space that COW-shares every page mapped in
// as: the VM-range list is cloned verbatim (both tasks agree on what
// backs each range) and every present user PTE is shared between parent
// and child with the page marked read-only/COW in both, so neither copies
// a byte until one side writes (spec 4.6's fork). Grounded on the
// teacher's fork path (vm/as.go's pmap handling called from proc.Fork in
// the original biscuit kernel).
func (as *AS_t) Fork() (*AS_t, defs.Err_t) {
	child, err := NewAddressSpace(as.kwinPDEs)
	if err != 0 {
		return nil, err
	}

	as.Lock_pmap()
	defer as.Unlock_pmap()

	for _, v := range as.Regions.ranges {
		cp := *v
		child.Regions.Insert(&cp)
	}
	if err := CopyUserPtes(child.Pmap, as.Pmap, as.kwinPDEs); err != 0 {
		child.Destroy()
		return nil, err
	}
	return child, 0
}

// InstallRange adds a VM-range to the address space. start and len are
// byte addresses/lengths; both must be page aligned (spec 4.2 requires
// new_pages's caller to align, install_range panics otherwise, same
// discipline the teacher's _mkvmi used).
func (as *AS_t) InstallRange(start, length uintptr, perms mem.Pa_t, kind RangeKind, backing []uint8) *Vminfo_t {
	if (start|length)&uintptr(mem.PGOFFSET) != 0 {
		panic("start and len must be page aligned")
	}
	vmi := &Vminfo_t{
		Pgn:     start >> mem.PGSHIFT,
		Pglen:   int(length) >> mem.PGSHIFT,
		Perms:   perms,
		Kind:    kind,
		Backing: backing,
	}
	as.Regions.Insert(vmi)
	return vmi
}

// UninstallRange removes the range starting at start spanning length
// bytes and unmaps any of its pages not still covered by a surviving
// overlapping range (the fix for the stranding defect spec 9 flags as
// open; see DESIGN.md).
func (as *AS_t) UninstallRange(start, length uintptr) defs.Err_t {
	pgn := start >> mem.PGSHIFT
	pglen := int(length) >> mem.PGSHIFT
	v, ok := as.Regions.Remove(pgn, pglen)
	if !ok {
		return defs.AddressNotPresent
	}
	for i := 0; i < v.Pglen; i++ {
		p := v.Pgn + uintptr(i)
		if as.Regions.StillCovered(p) {
			continue
		}
		as.PageRemove(p << mem.PGSHIFT)
	}
	return 0
}

// GetPDE returns a pointer to the page-directory entry covering va; the
// entry itself is zero if no page table is installed there.
func (as *AS_t) GetPDE(va uintptr) *mem.Pa_t {
	pdi := mem.PDEIndex(va)
	return &as.Pmap[pdi]
}

// GetPTE returns the PTE for va, creating intermediate page tables when
// create is true.
func (as *AS_t) GetPTE(va uintptr, create bool) (*mem.Pa_t, defs.Err_t) {
	return pmap_walk(as.Pmap, va, create, mem.PTE_U|mem.PTE_W)
}

// RangePresent and IsAddressRO forward to the range list; scall's
// parameter-checking helpers call these before trusting a user pointer.
func (as *AS_t) RangePresent(va uintptr, length int) bool {
	pgn := va >> mem.PGSHIFT
	pglen := util.Roundup(length, mem.PGSIZE) >> mem.PGSHIFT
	return as.Regions.RangePresent(pgn, pglen)
}

func (as *AS_t) IsAddressRO(va uintptr) bool {
	return as.Regions.IsRangeRO(va >> mem.PGSHIFT)
}

// RangeMapped reports whether any page in [start, start+length) already has
// a present PTE. new_pages must refuse to install a range over a live
// mapping rather than silently overlaying it.
func (as *AS_t) RangeMapped(start, length uintptr) bool {
	as.Lockassert_pmap()
	pgn := start >> mem.PGSHIFT
	pglen := int(length) >> mem.PGSHIFT
	for i := 0; i < pglen; i++ {
		va := (pgn + uintptr(i)) << mem.PGSHIFT
		pte := Pmap_lookup(as.Pmap, va)
		if pte != nil && *pte&mem.PTE_P != 0 {
			return true
		}
	}
	return false
}

// IsAddressCOW reports whether the PTE mapping va is currently marked
// copy-on-write, the distinction analyse_fault draws between a COW write
// fault (claim or copy) and an ordinary write to a genuinely read-only
// range (kill).
func (as *AS_t) IsAddressCOW(va uintptr) bool {
	pte := Pmap_lookup(as.Pmap, va)
	return pte != nil && *pte&PTE_COW != 0
}

// PageInsert maps p_pg at va with perms, replacing any present mapping.
// It returns whether TLB invalidation is required (a mapping already
// existed there) and whether the insertion failed for lack of a page
// table page.
func (as *AS_t) PageInsert(va uintptr, p_pg mem.Pa_t, perms mem.Pa_t, refup bool) (inval bool, ok bool) {
	as.Lockassert_pmap()
	pte, err := as.GetPTE(va, true)
	if err != 0 {
		return false, false
	}
	if refup {
		mem.Physmem.Refup(p_pg)
	}
	if *pte&mem.PTE_P != 0 {
		mem.Physmem.Refdown(*pte & mem.PTE_ADDR)
		inval = true
	}
	*pte = p_pg | perms | mem.PTE_P
	return inval, true
}

// PageRemove unmaps va, if present, dropping the frame's reference.
func (as *AS_t) PageRemove(va uintptr) bool {
	as.Lockassert_pmap()
	pte := Pmap_lookup(as.Pmap, va)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return false
	}
	mem.Physmem.Refdown(*pte & mem.PTE_ADDR)
	*pte = 0
	return true
}

// ResolveCOW handles a write fault against a copy-on-write page: if the
// frame's refcount shows this address space is the sole remaining owner,
// the fault is resolved by reusing the frame in place (no copy); otherwise
// a fresh frame is allocated and the source copied into it. Grounded on
// the teacher's Sys_pgfault COW branch (vm/as.go), narrowed to this
// kernel's simpler single-owner-or-shared model (no file-backed shared
// mappings).
func (as *AS_t) ResolveCOW(vmi *Vminfo_t, faultaddr uintptr) defs.Err_t {
	as.Lockassert_pmap()
	pte, err := as.GetPTE(faultaddr, true)
	if err != 0 {
		return err
	}
	if *pte&PTE_COW == 0 {
		// already resolved by a racing fault on another thread of the
		// same task
		return 0
	}
	phys := *pte & mem.PTE_ADDR
	if mem.Physmem.Refcnt(phys) == 1 {
		*pte = (*pte &^ PTE_COW) | mem.PTE_W | PTE_WASCOW
		return 0
	}
	pg, p_pg, ok := mem.Physmem.Refpg_new_nozero()
	if !ok {
		return defs.OutOfMemory
	}
	*pg = *mem.Physmem.Deref(phys)
	mem.Physmem.Refdown(phys)
	mem.Physmem.Refup(p_pg)
	*pte = p_pg | mem.PTE_P | mem.PTE_U | mem.PTE_W | PTE_WASCOW
	return 0
}

// ResolveBacking handles a fault against a RangeBacked page: copy the
// corresponding slice of the range's backing bytes into a freshly
// allocated frame and install it, read-only if the range itself is
// read-only (ELF text/rodata), read-write otherwise (ELF data).
func (as *AS_t) ResolveBacking(vmi *Vminfo_t, faultaddr uintptr) defs.Err_t {
	as.Lockassert_pmap()
	pgn := faultaddr >> mem.PGSHIFT
	pgoff := int(pgn-vmi.Pgn) * mem.PGSIZE

	pg, p_pg, ok := mem.Physmem.Refpg_new()
	if !ok {
		return defs.OutOfMemory
	}
	bpg := mem.Pg2bytes(pg)[:]
	if pgoff < len(vmi.Backing) {
		src := vmi.Backing[pgoff:]
		if len(src) > len(bpg) {
			src = src[:len(bpg)]
		}
		copy(bpg, src)
	}
	perms := mem.PTE_P | mem.PTE_U
	if vmi.Perms&mem.PTE_W != 0 {
		perms |= mem.PTE_W
	}
	if _, ok := as.PageInsert(faultaddr&^uintptr(mem.PGOFFSET), p_pg, perms, true); !ok {
		mem.Physmem.Refdown(p_pg)
		return defs.OutOfMemory
	}
	return 0
}

// ResolveAnon handles a fault against a fresh RangeAnon page: map the
// shared Zeropg read-only, or a freshly allocated zeroed frame
// when the range is already writable and has never been touched.
func (as *AS_t) ResolveAnon(vmi *Vminfo_t, faultaddr uintptr) defs.Err_t {
	as.Lockassert_pmap()
	perms := mem.PTE_P | mem.PTE_U
	var p_pg mem.Pa_t
	if vmi.Perms&mem.PTE_W == 0 {
		p_pg = mem.ZeropgPa
	} else {
		pg, np, ok := mem.Physmem.Refpg_new()
		if !ok {
			return defs.OutOfMemory
		}
		_ = pg
		p_pg = np
		perms |= mem.PTE_W
	}
	if _, ok := as.PageInsert(faultaddr&^uintptr(mem.PGOFFSET), p_pg, perms, true); !ok {
		mem.Physmem.Refdown(p_pg)
		return defs.OutOfMemory
	}
	return 0
}

// GrowStack extends the stack range downward by one page to cover
// faultaddr, provided faultaddr falls immediately below the stack's
// current low page and the page below that remains unclaimed by any other
// range (otherwise it would silently grow into a neighboring mapping).
// Grounded on original_source/kern/faulthandlers/faulthandlers.c's
// stack-growth case; the classification of a fault as stack-growth
// (rather than an ordinary segfault) is package fault's job.
func (as *AS_t) GrowStack(stack *Vminfo_t, faultaddr uintptr) defs.Err_t {
	as.Lockassert_pmap()
	faultpg := faultaddr >> mem.PGSHIFT
	if faultpg != stack.Pgn-1 {
		return defs.PageErr
	}
	if as.Regions.StillCovered(faultpg) {
		return defs.PageErr
	}
	stack.Pgn--
	stack.Pglen++
	return as.ResolveAnon(stack, faultaddr&^uintptr(mem.PGOFFSET))
}

// BackAllRanges eagerly faults in every RangeBacked page. The loader calls
// this right after installing an ELF image's segments so a fully-loaded
// task never takes a backing fault for its own text/data -- only COW and
// stack-growth faults happen once a task is running (spec 4.7).
func (as *AS_t) BackAllRanges() defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for _, vmi := range as.Regions.BackedRanges() {
		for i := 0; i < vmi.Pglen; i++ {
			va := (vmi.Pgn + uintptr(i)) << mem.PGSHIFT
			if err := as.ResolveBacking(vmi, va); err != 0 {
				return err
			}
		}
	}
	return 0
}

// UnbackAllRanges frees every page of every RangeBacked range, leaving the
// ranges themselves installed. Nothing in this kernel calls it: exec's
// rollback path (elf.Load, proc.Exec) discards a half-built address space
// with Destroy instead.
func (as *AS_t) UnbackAllRanges() {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for _, vmi := range as.Regions.BackedRanges() {
		for i := 0; i < vmi.Pglen; i++ {
			va := (vmi.Pgn + uintptr(i)) << mem.PGSHIFT
			as.PageRemove(va)
		}
	}
}

// Destroy frees every user page and the page directory itself. Called by
// proc.Wait when it reaps a zombie child, by proc.Exec for the replaced
// address space, and on the failure paths of exec, elf.Load and fork.
func (as *AS_t) Destroy() {
	as.Lock_pmap()
	FreeUserPtes(as.Pmap, as.kwinPDEs)
	as.Regions.Clear()
	as.Unlock_pmap()
	mem.Physmem.Refdown(as.P_pmap)
}

// Userdmap8 maps the user address va for access, taking a COW/backing/
// growth fault if necessary, and returns a byte slice of the containing
// page starting at va's offset. k2u requests write access (the kernel is
// about to write through this slice on the user's behalf, e.g. argv copy
// during exec).
func (as *AS_t) Userdmap8(va uintptr, k2u bool) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()
	vmi, ok := as.Regions.Lookup(va >> mem.PGSHIFT)
	if !ok {
		return nil, defs.AddressNotPresent
	}
	pte, err := as.GetPTE(va, true)
	if err != 0 {
		return nil, err
	}
	present := *pte&mem.PTE_P != 0
	if k2u {
		cow := *pte&PTE_COW != 0
		if !present || cow {
			if err := as.resolveFault(vmi, va); err != 0 {
				return nil, err
			}
			pte, _ = as.GetPTE(va, false)
		}
	} else if !present {
		if err := as.resolveFault(vmi, va); err != 0 {
			return nil, err
		}
		pte, _ = as.GetPTE(va, false)
	}
	pg := mem.Physmem.Deref(*pte & mem.PTE_ADDR)
	bpg := mem.Pg2bytes(pg)
	return bpg[va&uintptr(mem.PGOFFSET):], 0
}

func (as *AS_t) resolveFault(vmi *Vminfo_t, va uintptr) defs.Err_t {
	pte, _ := as.GetPTE(va, false)
	if pte != nil && *pte&PTE_COW != 0 {
		return as.ResolveCOW(vmi, va)
	}
	switch vmi.Kind {
	case RangeBacked:
		return as.ResolveBacking(vmi, va)
	case RangeGuard:
		return defs.AddressNotPresent
	default:
		return as.ResolveAnon(vmi, va)
	}
}

// Userreadn and Userwriten copy small (<=8 byte) fixed-size values between
// kernel and user space; scall's syscall packet decode uses these, not a
// streaming buffer abstraction -- this kernel's syscalls never copy more
// than a few machine words per call, so the teacher's resumable
// Userbuf_t/Useriovec_t streaming-copy machinery has no caller here (see
// DESIGN.md).
func (as *AS_t) Userreadn(va uintptr, n int) (int, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	if n > 8 {
		panic("large n")
	}
	var ret int
	for i := 0; i < n; {
		src, err := as.Userdmap8(va+uintptr(i), false)
		if err != 0 {
			return 0, err
		}
		l := n - i
		if len(src) < l {
			l = len(src)
		}
		ret |= util.Readn(src, l, 0) << (8 * uint(i))
		i += l
	}
	return ret, 0
}

func (as *AS_t) Userwriten(va uintptr, n, val int) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	if n > 8 {
		panic("large n")
	}
	for i := 0; i < n; {
		v := val >> (8 * uint(i))
		dst, err := as.Userdmap8(va+uintptr(i), true)
		if err != 0 {
			return err
		}
		l := n - i
		if len(dst) < l {
			l = len(dst)
		}
		util.Writen(dst, l, 0, v)
		i += l
	}
	return 0
}

// K2user copies src into user memory at uva, taking faults as needed.
func (as *AS_t) K2user(src []uint8, uva uintptr) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	cnt := 0
	for cnt != len(src) {
		dst, err := as.Userdmap8(uva+uintptr(cnt), true)
		if err != 0 {
			return err
		}
		c := copy(dst, src[cnt:])
		cnt += c
	}
	return 0
}

// User2k copies len(dst) bytes from user memory at uva into dst.
func (as *AS_t) User2k(dst []uint8, uva uintptr) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	cnt := 0
	for cnt != len(dst) {
		src, err := as.Userdmap8(uva+uintptr(cnt), false)
		if err != 0 {
			return err
		}
		c := copy(dst[cnt:], src)
		cnt += c
	}
	return 0
}

// Userstr copies a NUL-terminated string of at most lenmax bytes from user
// memory starting at uva.
func (as *AS_t) Userstr(uva uintptr, lenmax int) ([]byte, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	var s []byte
	i := 0
	for {
		chunk, err := as.Userdmap8(uva+uintptr(i), false)
		if err != 0 {
			return nil, err
		}
		for j, c := range chunk {
			if c == 0 {
				return append(s, chunk[:j]...), 0
			}
		}
		s = append(s, chunk...)
		i += len(chunk)
		if len(s) >= lenmax {
			return nil, defs.BadSysParam
		}
	}
}

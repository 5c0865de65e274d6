package vm

import (
	"unsafe"

	"defs"
	"mem"
)

// Extra PTE bits beyond the hardware-defined ones in mem: bits 9-11 of a
// PTE are ignored by the MMU and available to software. PTE_COW marks a
// page shared read-only by more than one address space pending a write
// fault; PTE_WASCOW marks a page that used to be COW and was claimed
// without copying because it was the sole owner at fault time (so a later
// fork must still treat it as shareable, not assume it is exclusively
// owned).
const (
	PTE_COW    mem.Pa_t = 1 << 9
	PTE_WASCOW mem.Pa_t = 1 << 10
)

// pmap_walk returns the PTE for va in pmap, allocating intermediate page
// tables as needed when create is true. It does not check va against the
// kernel window; callers only walk user addresses (kernel window PDEs are
// installed once at address-space creation and never walked per-fault).
func pmap_walk(pmap *mem.Pmap_t, va uintptr, create bool, ptePerms mem.Pa_t) (*mem.Pa_t, defs.Err_t) {
	pdi := mem.PDEIndex(va)
	pde := &pmap[pdi]
	var pt *mem.Pmap_t
	if *pde&mem.PTE_P == 0 {
		if !create {
			return nil, 0
		}
		npg, p_pg, ok := mem.Physmem.Refpg_new()
		if !ok {
			return nil, defs.OutOfMemory
		}
		mem.Physmem.Refup(p_pg)
		*pde = p_pg | mem.PTE_P | mem.PTE_W | mem.PTE_U
		pt = (*mem.Pmap_t)(unsafe.Pointer(npg))
	} else {
		pt = (*mem.Pmap_t)(unsafe.Pointer(mem.Physmem.Deref(*pde & mem.PTE_ADDR)))
	}
	pti := mem.PTEIndex(va)
	return &pt[pti], 0
}

// Pmap_lookup returns the PTE for va without creating missing page tables,
// or nil if none exists.
func Pmap_lookup(pmap *mem.Pmap_t, va uintptr) *mem.Pa_t {
	pte, err := pmap_walk(pmap, va, false, 0)
	if err != 0 {
		return nil
	}
	return pte
}

// Pmap_new allocates a fresh page directory and installs the kernel
// window: every physical frame below USER_MEM_START is identity-mapped so
// the kernel can dereference any frame regardless of which address space
// is current, mirroring what the boot loader already set up for the
// initial task.
func Pmap_new(kwinPDEs int) (*mem.Pmap_t, mem.Pa_t, defs.Err_t) {
	pg, p_pg, ok := mem.Physmem.Refpg_new()
	if !ok {
		return nil, 0, defs.OutOfMemory
	}
	mem.Physmem.Refup(p_pg)
	pmap := (*mem.Pmap_t)(unsafe.Pointer(pg))
	const fourMB = mem.Pa_t(1) << 22
	for i := 0; i < kwinPDEs; i++ {
		pmap[i] = fourMB*mem.Pa_t(i) | mem.PTE_P | mem.PTE_W | mem.PTE_G
	}
	return pmap, p_pg, 0
}

// CopyUserPtes walks every present user PTE in src and shares it into dst.
// A writable page is marked copy-on-write in both copies, spec 4.6's
// child-starts-out-sharing-until-a-write-fault discipline. A page that was
// already read-only (loader-installed text/rodata) is shared as plain
// read-only instead: it needs no COW bit, and giving it one would let
// classify's COW branch (fault.go) mistake a genuine write-to-RO violation
// for a COW claim and hand back PTE_W, defeating page-level RO enforcement.
func CopyUserPtes(dst, src *mem.Pmap_t, kwinPDEs int) defs.Err_t {
	for pdi := kwinPDEs; pdi < len(src); pdi++ {
		spde := src[pdi]
		if spde&mem.PTE_P == 0 {
			continue
		}
		spt := (*mem.Pmap_t)(unsafe.Pointer(mem.Physmem.Deref(spde & mem.PTE_ADDR)))
		for pti := range spt {
			spte := &spt[pti]
			if *spte&mem.PTE_P == 0 {
				continue
			}
			va := uintptr(pdi)<<22 | uintptr(pti)<<12
			dpte, err := pmap_walk(dst, va, true, mem.PTE_U|mem.PTE_W)
			if err != 0 {
				return err
			}
			phys := *spte & mem.PTE_ADDR
			mem.Physmem.Refup(phys)

			var flags mem.Pa_t
			if *spte&mem.PTE_W != 0 {
				flags = (*spte &^ mem.PTE_W) | PTE_COW
				*spte = flags
			} else {
				flags = *spte
			}
			*dpte = phys | (flags & (mem.PTE_P | mem.PTE_U | mem.PTE_A | PTE_COW | PTE_WASCOW))
		}
	}
	return 0
}

// FreeUserPtes walks every present user PTE, drops the frame's refcount,
// and frees every user page-table page. Called only by AS_t.Destroy.
func FreeUserPtes(pmap *mem.Pmap_t, kwinPDEs int) {
	for pdi := kwinPDEs; pdi < len(pmap); pdi++ {
		pde := &pmap[pdi]
		if *pde&mem.PTE_P == 0 {
			continue
		}
		pt := (*mem.Pmap_t)(unsafe.Pointer(mem.Physmem.Deref(*pde & mem.PTE_ADDR)))
		for pti := range pt {
			pte := &pt[pti]
			if *pte&mem.PTE_P == 0 {
				continue
			}
			mem.Physmem.Refdown(*pte & mem.PTE_ADDR)
			*pte = 0
		}
		mem.Physmem.Refdown(*pde & mem.PTE_ADDR)
		*pde = 0
	}
}

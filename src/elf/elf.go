// Package elf loads a RAM-disk-resident ELF binary into a fresh address
// space: parse the program headers, install one backed VM-range per
// PT_LOAD segment plus a user stack, and hand back the entry point and
// initial stack pointer. Grounded on original_source/kern/loader.c
// (loader_install_ranges, load_elf) but using stdlib debug/elf to parse
// the header and program table instead of the original's own hand-rolled
// elf_410.h reader -- the one piece of this kernel's domain stack that
// leans entirely on the standard library rather than a teacher/example
// dependency; DESIGN.md grounds it on biscuit's chentry.go build tool,
// which uses debug/elf the same way, and a real ELF reader is exactly what
// Go's own debug/elf is for.
package elf

import (
	"bytes"
	stdelf "debug/elf"

	"defs"
	"limits"
	"mem"
	"ramdisk"
	"vm"
)

// Image is the outcome of loading a binary: everything exec needs to set
// up the new thread's initial register state.
type Image struct {
	AS     *vm.AS_t
	Entry  uintptr
	UStack uintptr
}

// Load parses name's bytes out of rd, builds a brand-new address space
// with every PT_LOAD segment installed as a RangeBacked range and a
// RangeAnon user stack, and returns it without touching any currently
// running task -- the "build" half of exec's build-then-swap discipline
// (spec 9's open question; see DESIGN.md). The caller commits the result
// with proc.Task.SwapAddressSpace only after this succeeds.
func Load(rd *ramdisk.Ramdisk_t, name string, kwinPDEs int) (*Image, defs.Err_t) {
	data, err := rd.Lookup(name)
	if err != 0 {
		return nil, err
	}

	ef, perr := stdelf.NewFile(bytes.NewReader(data))
	if perr != nil {
		return nil, defs.NotAnElf
	}
	if err := checkHeader(&ef.FileHeader); err != 0 {
		return nil, err
	}

	as, aerr := vm.NewAddressSpace(kwinPDEs)
	if aerr != 0 {
		return nil, aerr
	}

	for _, prog := range ef.Progs {
		if prog.Type != stdelf.PT_LOAD {
			continue
		}
		if err := installSegment(as, prog, data); err != 0 {
			as.Destroy()
			return nil, err
		}
	}

	ustackTop := installStack(as)

	if err := as.BackAllRanges(); err != 0 {
		as.Destroy()
		return nil, err
	}

	return &Image{AS: as, Entry: uintptr(ef.Entry), UStack: ustackTop}, 0
}

// checkHeader validates that data describes a 32-bit little-endian x86
// executable, the same checks chentry.go applies before trusting a
// kernel image's own header.
func checkHeader(eh *stdelf.FileHeader) defs.Err_t {
	if eh.Class != stdelf.ELFCLASS32 {
		return defs.NotAnElf
	}
	if eh.Data != stdelf.ELFDATA2LSB {
		return defs.NotAnElf
	}
	if eh.Type != stdelf.ET_EXEC {
		return defs.NotAnElf
	}
	if eh.Machine != stdelf.EM_386 {
		return defs.NotAnElf
	}
	return 0
}

// installSegment installs one PT_LOAD segment as a RangeBacked range,
// page-aligning its virtual start and padding the backing slice so the
// first byte of Backing always corresponds to the range's first page,
// matching what vm.AS_t.ResolveBacking assumes.
func installSegment(as *vm.AS_t, prog *stdelf.Prog, image []byte) defs.Err_t {
	vaddr := uintptr(prog.Vaddr)
	memsz := uintptr(prog.Memsz)
	filesz := uintptr(prog.Filesz)

	pageStart := vaddr &^ uintptr(limits.PGSIZE-1)
	skew := vaddr - pageStart
	length := roundup(skew+memsz, limits.PGSIZE)

	backing := make([]uint8, roundup(skew+filesz, limits.PGSIZE))
	if filesz > 0 {
		off := uintptr(prog.Off)
		if off+filesz > uintptr(len(image)) {
			return defs.NotAnElf
		}
		copy(backing[skew:], image[off:off+filesz])
	}

	perms := mem.PTE_U
	if prog.Flags&stdelf.PF_W != 0 {
		perms |= mem.PTE_W
	}

	as.Lock_pmap()
	as.InstallRange(pageStart, length, perms, vm.RangeBacked, backing)
	as.Unlock_pmap()
	return 0
}

// installStack installs the fixed-size user stack every task gets,
// original_source's .stack range, and returns its top (the initial
// user ESP before argv is pushed).
func installStack(as *vm.AS_t) uintptr {
	length := uintptr(limits.USTACK_PAGES * limits.PGSIZE)
	start := limits.KernelVirtBase - length // ends just below limits.KernelVirtBase
	as.Lock_pmap()
	as.InstallRange(start, length, mem.PTE_U|mem.PTE_W, vm.RangeAnon, nil)
	as.Unlock_pmap()
	return start + length
}

func roundup(n uintptr, to uintptr) uintptr {
	return (n + to - 1) &^ (to - 1)
}

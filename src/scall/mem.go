package scall

import (
	"defs"
	"limits"
	"mem"
	"proc"
)

func init() {
	register(NewPagesInt, "new_pages", nil, newPagesHandler)
	register(RemovePagesInt, "remove_pages", nil, removePagesHandler)
}

// newPagesHandler decodes { base*, len } from esi and installs a fresh
// anonymous range, original_source's syscall_newpages.c. Alignment and
// quota checks live in proc.NewPages itself.
func newPagesHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	base, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	length, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}

	perr := proc.NewPages(t, uintptr(base), length, mem.PTE_U|mem.PTE_W)
	if perr != 0 {
		return 0, perr
	}
	return 0, 0
}

// removePagesHandler implements remove_pages(base): esi is the scalar base
// address of a range previously installed by new_pages. The length a
// range was installed with is recovered from the address space's own
// range bookkeeping, not re-passed by the caller, so the packet is a bare
// pointer rather than a {base, len} pair.
func removePagesHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	t.AS.Lock_pmap()
	vmi, ok := t.AS.Regions.Lookup(esi / limits.PGSIZE)
	t.AS.Unlock_pmap()
	if !ok || vmi.Pgn != esi/limits.PGSIZE {
		return 0, defs.AddressNotPresent
	}
	length := vmi.Pglen * limits.PGSIZE

	perr := proc.RemovePages(t, esi, length)
	if perr != 0 {
		return 0, perr
	}
	return 0, 0
}

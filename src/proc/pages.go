package proc

import (
	"defs"
	"limits"
	"mem"
	"vm"
)

// NewPages installs a page-aligned anonymous range of the given length at
// addr in t's address space, charging length bytes against the task's
// ALLOC_MEM_QUOTA before touching the address space so accounting and
// mappings never disagree (spec 4.6, P8). Pages are not actually
// allocated until first touched; vm.AS_t.ResolveAnon does that lazily.
func NewPages(t *Task, addr uintptr, length int, perms mem.Pa_t) defs.Err_t {
	if length <= 0 || addr%limits.PGSIZE != 0 || length%limits.PGSIZE != 0 {
		return defs.BadSysParam
	}
	if addr < limits.USER_MEM_START {
		return defs.VmCannotMap
	}

	t.AS.Lock_pmap()
	mapped := t.AS.RangeMapped(addr, uintptr(length))
	t.AS.Unlock_pmap()
	if mapped {
		return defs.PageErr
	}

	if !t.Acct.Reserve(int64(length)) {
		return defs.OutOfMemory
	}

	t.AS.Lock_pmap()
	t.AS.InstallRange(addr, uintptr(length), perms, vm.RangeAnon, nil)
	t.AS.Unlock_pmap()

	return 0
}

// RemovePages reverses a prior NewPages call covering exactly [addr,
// addr+length), unmapping any pages not still covered by some other
// surviving range and releasing the quota charge.
func RemovePages(t *Task, addr uintptr, length int) defs.Err_t {
	if length <= 0 || addr%limits.PGSIZE != 0 || length%limits.PGSIZE != 0 {
		return defs.BadSysParam
	}

	t.AS.Lock_pmap()
	err := t.AS.UninstallRange(addr, uintptr(length))
	t.AS.Unlock_pmap()
	if err != 0 {
		return err
	}

	t.Acct.Unreserve(int64(length))
	return 0
}

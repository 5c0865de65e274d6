// Package fault classifies a page fault's cause and drives the repair,
// the kernel's single page_fault_handler. Grounded on
// original_source/kern/faulthandlers/faulthandlers.c's analyse_fault plus
// the FAULT_ACTION_* switch in page_fault_handler; the actual mechanics
// (COW claim-or-copy, backing, anon, stack growth) already live on
// vm.AS_t, so this package is purely the dispatch and the KILL path.
package fault

import (
	"caller"
	"defs"
	"klog"
	"mem"
	"proc"
	"vm"
)

// action mirrors original_source's FAULT_ACTION_* enum.
type action int

const (
	actionKill action = iota
	actionCOW
	actionBack
	actionGrowStack
)

// PageFault handles a page fault taken by me at linear while running in
// its task's address space. write reports whether the faulting access was
// a write (the processor's error-code bit 1). Returns true if the fault
// was repaired and execution can resume, false if the thread was killed.
func PageFault(me *proc.Thread, linear uintptr, write, present bool) bool {
	t := me.Task
	as := t.AS

	as.Lock_pmap()
	act, vmi := classify(as, linear, write, present)

	var err defs.Err_t
	switch act {
	case actionGrowStack:
		err = as.GrowStack(vmi, linear)
	case actionCOW:
		err = as.ResolveCOW(vmi, linear)
	case actionBack:
		if vmi.Kind == vm.RangeBacked {
			err = as.ResolveBacking(vmi, linear)
		} else {
			err = as.ResolveAnon(vmi, linear)
		}
	default:
		err = defs.AddressNotPresent
	}
	as.Unlock_pmap()

	if act == actionKill || err != 0 {
		kill(me, linear, err)
		return false
	}
	return true
}

// classify mirrors analyse_fault's decision order: a write to a mapping
// that is actually read-only is fatal unless the PTE is marked COW, in
// which case it is a claim-or-copy; an address with no installed range is
// fatal unless it is the guard page just below the stack, in which case
// the stack grows; an installed-but-unmapped page gets backed in (from
// its file image or freshly zeroed); a present, non-COW page that still
// reaches here (not a write-to-RO case above) is some other fault this
// kernel does not repair.
func classify(as *vm.AS_t, linear uintptr, write, present bool) (action, *vm.Vminfo_t) {
	pgn := linear >> mem.PGSHIFT
	vmi, ok := as.Regions.Lookup(pgn)

	if present && write && as.IsAddressRO(linear) {
		if ok && as.IsAddressCOW(linear) {
			return actionCOW, vmi
		}
		return actionKill, nil
	}

	if !ok {
		if guard, gok := stackGuard(as, pgn); gok {
			return actionGrowStack, guard
		}
		return actionKill, nil
	}

	if !present {
		return actionBack, vmi
	}

	if as.IsAddressCOW(linear) {
		return actionCOW, vmi
	}

	return actionKill, vmi
}

// stackGuard reports whether pgn is the page immediately below the task's
// current lowest stack page, original_source's check against
// vm_stack_start - 1, and returns that stack range so GrowStack knows
// which one to extend.
func stackGuard(as *vm.AS_t, pgn uintptr) (*vm.Vminfo_t, bool) {
	stack, ok := as.Regions.Lookup(pgn + 1)
	if !ok || stack.Kind != vm.RangeAnon || stack.Pgn != pgn+1 {
		return nil, false
	}
	return stack, true
}

// kill terminates the faulting thread and logs one diagnostic line with a
// call-stack dump, spec 7's "prints a single diagnostic... before calling
// schedule" and original_source's DUMP+putbytes pair in the KILL path.
func kill(me *proc.Thread, linear uintptr, err defs.Err_t) {
	klog.Printf("fault: killing tid %d at 0x%x: %s\n", me.Tid, linear, err)
	caller.Callerdump(1)
	proc.Vanish(me)
}

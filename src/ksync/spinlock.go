// Package ksync provides the kernel's two concurrency primitives:
// interrupt-disable spinlocks and FIFO counting semaphores. Both are
// grounded on original_source/kern/inc/sync.h and kern/sched/sync.c
// (spinlock_ifsave/spinlock_ifrestore, sem_wait/sem_signal): a
// uniprocessor kernel only needs to keep interrupts off for the duration
// of a critical section, not a real atomic-exchange lock, so this has no
// teacher counterpart -- biscuit is multiprocessor and uses goroutines
// plus stdlib sync, which assumes the very scheduler model spec.md
// excludes (see DESIGN.md).
package ksync

import "arch"

// Spinlock_t disables interrupts for its critical section. held catches
// double-locking bugs during development; on real uniprocessor hardware
// with interrupts off, nothing else could be racing to set it anyway.
type Spinlock_t struct {
	held bool
}

// Lock disables interrupts and returns the previous EFLAGS value, which
// the caller must pass back to Unlock. Nesting is supported the same way
// the C original's spinlock_ifsave/spinlock_ifrestore pair is: each
// acquisition saves its own caller's flags on its own stack frame.
func (l *Spinlock_t) Lock() uint32 {
	f := arch.SaveFlagsCLI()
	if l.held {
		panic("recursive spinlock")
	}
	l.held = true
	return f
}

// Unlock releases the lock and restores the interrupt state Lock saved.
func (l *Spinlock_t) Unlock(flags uint32) {
	if !l.held {
		panic("unlock of unheld spinlock")
	}
	l.held = false
	arch.RestoreFlags(flags)
}

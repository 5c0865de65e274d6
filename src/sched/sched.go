// Package sched owns the preemptive uniprocessor run queue and the
// mechanics of switching from one thread's kernel stack to another's.
// Grounded on original_source/kern/sched/sched.c (schedule,
// scheduler_add/remove, scheduler_timer_callback) and kern/inc/sched.h.
// biscuit has no direct counterpart: it schedules Go goroutines onto real
// OS threads and never switches a raw stack pointer itself, which is
// exactly the piece spec.md's scheduler needs built from scratch (see
// DESIGN.md).
package sched

import (
	"arch"
	"klog"
	"ksync"
	"proc"
)

// TimeQuantum is how many timer ticks a thread runs before scheduler_timer_callback
// forces a reschedule, original_source's TIME_QUANTUM.
const TimeQuantum = 1

// TickSourceFunc adapts a plain jiffies accessor (Ticks itself) to the
// single-method interface con.Device wants for get_ticks, without con
// needing to import sched directly.
type TickSourceFunc func() uint64

func (f TickSourceFunc) Ticks() uint64 { return f() }

// scheduler is the single run-queue instance; a uniprocessor kernel needs
// exactly one, mirroring original_source's file-scope kern_scheduler.
type scheduler struct {
	lock     ksync.Spinlock_t
	runQueue proc.ThreadQueue_t
	sleepers proc.ThreadQueue_t
	idle     *proc.Thread
	ticks    int
	jiffies  uint64
}

var sch scheduler

// Init installs idle as the thread run when nothing else is runnable and
// wires proc's scheduler hooks to this package's Schedule/Wake, the boot
// step original_source does inside sched_init. Must run once, before any
// call to proc.Reschedule or proc.Wake.
func Init(idle *proc.Thread) {
	sch.idle = idle
	proc.SetScheduler(Schedule, Wake)
	klog.Boot("scheduler initialized, idle tid %d", idle.Tid)
}

// DisablePreemption stops the run queue from changing under the caller and
// returns the saved interrupt flags, spinlock_ifsave(&kern_scheduler.scheduler_lock).
func DisablePreemption() uint32 {
	return sch.lock.Lock()
}

// EnablePreemption restores the interrupt state DisablePreemption saved.
func EnablePreemption(flags uint32) {
	sch.lock.Unlock(flags)
}

// Add places t at the tail of the run queue, scheduler_add.
func Add(t *proc.Thread) {
	f := DisablePreemption()
	sch.runQueue.PushBack(t)
	EnablePreemption(f)
}

// Remove force-unlinks t from the run queue if it is on it, scheduler_remove.
// A no-op if t is queued elsewhere (a semaphore wait queue) or nowhere --
// task_vanish calls this unconditionally on every sibling thread it kills,
// and not every sibling is necessarily runnable.
func Remove(t *proc.Thread) {
	f := DisablePreemption()
	if t.Queue == &sch.runQueue {
		sch.runQueue.Remove(t)
	}
	EnablePreemption(f)
}

// Wake moves a thread that was blocked on something else (a semaphore) back
// onto the run queue. Called through proc.Wake by ksync.Sem_t.Signal.
func Wake(t *proc.Thread) {
	t.State = proc.Runnable
	Add(t)
}

// Schedule picks the next thread to run and switches to it, original_source's
// schedule(isCurrentRunnable). isCurrentRunnable being false means the
// calling thread has already parked itself on some other wait queue (a
// semaphore) and must not be re-added to the run queue here.
func Schedule(isCurrentRunnable bool) {
	this := proc.Current()

	f := DisablePreemption()

	// a thread doomed via cas2i_runflag while still queued is not torn
	// down here -- it only vanishes itself, once its kernel stack unwinds
	// far enough to notice. Rotate it to the tail instead of dropping it:
	// dropping would lose it permanently if its run flag is later
	// restored, since nothing else would ever re-enqueue it.
	next := sch.runQueue.PopFront()
	if next != nil && next.RunFlag < 0 {
		sch.runQueue.PushBack(next)
		next = nil
	}

	if next == nil {
		next = sch.idle
	}

	if next != this {
		if this != sch.idle && isCurrentRunnable {
			sch.runQueue.PushBack(this)
		}
		contextSwitch(this, next)
	}

	EnablePreemption(f)
}

// contextSwitch saves this's stack pointer, loads next's address space if
// it differs, and switches the live stack to next's, original_source's
// context_switch plus _set_esp0.
func contextSwitch(this, next *proc.Thread) {
	this.State = proc.Runnable
	next.State = proc.Running

	if this.Task != next.Task {
		arch.LoadCR3(uint32(next.Task.AS.P_pmap))
	}

	resumeSP := next.SavedSP
	if resumeSP == 0 {
		resumeSP = next.KStackTop
	}
	arch.ContextSwitch(&this.SavedSP, resumeSP)

	proc.SetCurrent(next)
}

// Sleep parks the calling thread on the sleepers list for the given number
// of ticks and reschedules, original_source's sys_sleep plus the sleepers
// half of scheduler_timer_callback (spec 4.6's sleep(ticks)). A
// non-positive ticks returns immediately without blocking.
func Sleep(me *proc.Thread, ticks int) {
	if ticks <= 0 {
		return
	}

	f := DisablePreemption()
	me.SleepTicks = ticks
	sch.sleepers.PushBack(me)
	EnablePreemption(f)

	Schedule(false)
}

// Ticks returns the timer ISR's jiffies counter, get_ticks's backing store.
func Ticks() uint64 {
	f := DisablePreemption()
	j := sch.jiffies
	EnablePreemption(f)
	return j
}

// TimerCallback runs on every timer tick: it advances jiffies, decrements
// every sleeper's remaining ticks and wakes whichever reach zero, then
// forces a reschedule that keeps the interrupted thread runnable once per
// TimeQuantum ticks, scheduler_timer_callback.
func TimerCallback() {
	f := DisablePreemption()
	sch.jiffies++
	sch.ticks++

	var done []*proc.Thread
	for n := sch.sleepers.Len(); n > 0; n-- {
		t := sch.sleepers.PopFront()
		t.SleepTicks--
		if t.SleepTicks <= 0 {
			done = append(done, t)
		} else {
			sch.sleepers.PushBack(t)
		}
	}
	forceResched := sch.ticks%TimeQuantum == 0
	EnablePreemption(f)

	for _, t := range done {
		t.State = proc.Runnable
		Add(t)
	}

	if forceResched {
		Schedule(true)
	}
}

// Yield gives up the remainder of the calling thread's quantum voluntarily,
// the syscall.yield entry point (spec 4.6).
func Yield() {
	Schedule(true)
}

package proc

// proc owns Thread/Task/ThreadQueue_t but must not import sched or ksync:
// sched needs proc (to manipulate Thread/ThreadQueue_t directly) and ksync
// needs proc (a semaphore's wait queue is a proc.ThreadQueue_t), so the
// dependency can only run one way. Task lifecycle operations in this
// package (wait, vanish, new_pages under memory pressure) still need to
// ask the scheduler to block the current thread or wake another one.
// Resolved the same way the teacher's vm.AS_t decouples from a CPU/APIC
// package it can't import: a package-level hook, installed once at boot.
//
// sched.Init calls SetScheduler; cmd/kernel's init sequence runs
// sched.Init before any thread can call Reschedule or Wake.

var scheduleFn func(resched bool)
var wakeFn func(t *Thread)
var newSemFn func(val int) Sem_i

// SetScheduler installs the scheduler hooks. Called exactly once, during
// boot wiring, by the package that owns the run queue (sched.Init).
func SetScheduler(schedule func(resched bool), wake func(t *Thread)) {
	scheduleFn = schedule
	wakeFn = wake
}

// Reschedule asks the scheduler to run, optionally keeping the calling
// thread runnable (resched true) the way original_source's schedule()
// takes an isCurrentRunnable argument. Panics if called before
// SetScheduler -- a task operation has no business blocking before boot
// has wired up a scheduler.
func Reschedule(resched bool) {
	if scheduleFn == nil {
		panic("proc.Reschedule called before SetScheduler")
	}
	scheduleFn(resched)
}

// Wake moves t from wherever it is waiting back onto the run queue.
func Wake(t *Thread) {
	if wakeFn == nil {
		panic("proc.Wake called before SetScheduler")
	}
	wakeFn(t)
}

// SetSemFactory installs the constructor task lifecycle code uses to build
// ForkLock/Vultures semaphores without proc importing ksync directly.
// Called once during boot wiring alongside SetScheduler.
func SetSemFactory(f func(val int) Sem_i) {
	newSemFn = f
}

// NewSem constructs a counting semaphore through the installed factory.
func NewSem(val int) Sem_i {
	if newSemFn == nil {
		panic("proc.NewSem called before SetSemFactory")
	}
	return newSemFn(val)
}

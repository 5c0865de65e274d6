package proc

import (
	"accnt"
	"defs"
	"limits"
)

// Fork duplicates the calling thread's task: a COW-shared address space
// (vm.AS_t.Fork) and one new thread whose saved register state is a copy
// of the parent's, except Eax, which the child sees as 0 so the syscall
// boundary's "child tid to parent; 0 to child" contract holds without the
// child needing to know it is the child (spec 4.1, original_source's
// syscall_fork.c). ForkLock serializes concurrent forks of the same task
// the way task_fork_lock/unlock bracket the original.
func Fork(parent *Thread) (*Task, defs.Err_t) {
	pt := parent.Task

	pt.ForkLock.Wait()
	defer pt.ForkLock.Signal()

	childAS, err := pt.AS.Fork()
	if err != 0 {
		return nil, err
	}

	child := &Task{
		AS:       childAS,
		Acct:     accnt.MkAccnt(limits.ALLOC_MEM_QUOTA),
		ForkLock: NewSem(1),
		Vultures: NewSem(0),
		Parent:   pt,
	}

	th := child.newThread()
	child.Pid = defs.Pid_t(th.Tid)
	th.Regs = parent.Regs
	th.Regs.Eax = 0

	pt.addChild(child)
	Wake(th)

	return child, 0
}

// ThreadFork creates a new thread inside the calling thread's own task,
// sharing its address space, original_source's syscall_threadfork.c. The
// new thread's register state starts as a copy of the caller's so a
// user-level thread library can repoint Eip/UserEsp for it after the
// syscall returns.
func ThreadFork(parent *Thread) (*Thread, defs.Err_t) {
	t := parent.Task

	t.ForkLock.Wait()
	defer t.ForkLock.Signal()

	th := t.newThread()
	th.Regs = parent.Regs
	th.Regs.Eax = 0

	Wake(th)
	return th, 0
}

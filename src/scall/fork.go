package scall

import (
	"defs"
	"proc"
)

func init() {
	register(ForkInt, "fork", nil, forkHandler)
	register(ThreadForkInt, "thread_fork", nil, threadForkHandler)
}

// forkHandler implements fork: the parent sees the child's pid; proc.Fork
// already arranges for the child thread itself to see 0 in Eax once it
// runs (spec 4.1, original_source's syscall_fork.c).
func forkHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	child, err := proc.Fork(me)
	if err != 0 {
		return 0, err
	}
	return int(child.Pid), 0
}

// threadForkHandler implements thread_fork: the new thread's tid goes back
// to the caller, original_source's syscall_threadfork.c.
func threadForkHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	th, err := proc.ThreadFork(me)
	if err != 0 {
		return 0, err
	}
	return int(th.Tid), 0
}

package proc

// Vanish terminates only the calling thread, original_source's
// syscall_vanish.c: it is doomed (RunFlag<0), forced off whatever queue
// currently holds it, and dropped from its task's thread list. Once the
// last thread of a task vanishes, the task becomes a zombie and signals
// Vultures so a blocked wait() wakes up. Never returns to its caller.
func Vanish(me *Thread) {
	t := me.Task

	t.ForkLock.Wait()

	me.RunFlag = -1
	if me.Queue != nil {
		me.Queue.Remove(me)
	}
	t.removeThread(me)

	if t.NumThreads() == 0 {
		t.Lock()
		t.Zombie = true
		t.Unlock()
		if t.Parent != nil {
			t.Parent.Vultures.Signal()
		}
	}

	t.ForkLock.Signal()

	Reschedule(false)
	panic("vanished thread resumed")
}

// TaskVanish force-kills every thread in the calling thread's task, not
// just the caller, original_source's syscall_taskvanish.c: each sibling is
// marked doomed and unlinked from whatever queue it is parked on (the run
// queue, or some semaphore's wait queue) without waiting for it to
// cooperate. Never returns to its caller.
func TaskVanish(me *Thread) {
	t := me.Task

	t.ForkLock.Wait()

	t.Lock()
	siblings := append([]*Thread(nil), t.Threads...)
	t.Threads = nil
	t.Unlock()

	tidTableLock.Lock()
	for _, th := range siblings {
		th.RunFlag = -1
		if th.Queue != nil {
			th.Queue.Remove(th)
		}
		delete(tidTable, th.Tid)
	}
	tidTableLock.Unlock()

	t.Zombie = true
	if t.Parent != nil {
		t.Parent.Vultures.Signal()
	}

	t.ForkLock.Signal()

	Reschedule(false)
	panic("vanished task resumed")
}

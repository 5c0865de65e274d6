package ksync

import "proc"

// Sem_t is a counting semaphore with a FIFO wait queue, grounded on
// original_source's sem_wait/sem_signal (kern/sched/sync.c). count can go
// negative; -count is the number of threads parked in waiters. The wait
// queue is a proc.ThreadQueue_t because a blocked thread has to be
// reachable from task_vanish's force-kill walk the same way a run-queue
// entry is (spec 9): whichever queue currently holds a thread, ThreadQueue_t.Remove
// can pull it off without that thread's cooperation.
type Sem_t struct {
	lock    Spinlock_t
	count   int
	waiters proc.ThreadQueue_t
}

// MkSem returns a semaphore initialized to val, the SEMAPHORE_INIT count.
func MkSem(val int) *Sem_t {
	return &Sem_t{count: val}
}

// Wait decrements count and blocks the calling thread if the result is
// negative, mirroring sem_wait: the thread is parked on the semaphore's
// own wait queue (not the run queue) before the spinlock is released, so
// a concurrent Signal can never miss it.
func (s *Sem_t) Wait() {
	f := s.lock.Lock()
	s.count--
	if s.count >= 0 {
		s.lock.Unlock(f)
		return
	}

	me := proc.Current()
	s.waiters.PushBack(me)
	s.lock.Unlock(f)

	// Not eligible to run again until some Signal moves me back to the
	// run queue; the false here is schedule(0) in the C original.
	proc.Reschedule(false)
}

// Signal increments count and, if any thread is waiting, wakes the
// longest-waiting one, mirroring sem_signal.
func (s *Sem_t) Signal() {
	f := s.lock.Lock()
	s.count++
	if s.count > 0 {
		s.lock.Unlock(f)
		return
	}

	woken := s.waiters.PopFront()
	s.lock.Unlock(f)

	if woken != nil {
		proc.Wake(woken)
	}
}

// Waiters reports how many threads are currently parked, sem_waiters.
func (s *Sem_t) Waiters() int {
	f := s.lock.Lock()
	n := s.waiters.Len()
	s.lock.Unlock(f)
	return n
}

var _ proc.Sem_i = (*Sem_t)(nil)

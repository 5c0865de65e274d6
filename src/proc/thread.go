// Package proc implements the kernel's task and thread model: the
// task/thread control blocks, their lifecycle (fork, thread_fork, exec,
// wait, vanish, task_vanish, set_status), and the per-task memory-quota
// accounting behind new_pages/remove_pages. Grounded on
// original_source/kern/ps/task.c and kern/inc/task.h; biscuit's own proc
// package ships only an empty go.mod in the retrieved pack, so this
// package completes what the teacher scaffolded but never filled in (see
// DESIGN.md).
package proc

import (
	"sync"
	"sync/atomic"

	"accnt"
	"arch"
	"defs"
	"klog"
	"limits"
	"vm"
)

// ThreadState mirrors original_source's kthread_state.
type ThreadState int

const (
	Runnable ThreadState = iota
	Running
	Waiting
	Dead
)

// Thread is a kernel thread control block. On real hardware it would live
// at the low end of its own KSTACK_SIZE-aligned kernel stack so
// CURRENT_THREAD can be recovered by masking a live stack pointer (spec 3,
// 9); see tcb.go for how this kernel models that without hand-written
// stack-switching assembly. Next/Prev make Thread an intrusive queue node:
// a thread sits on at most one of {the scheduler run queue, a semaphore's
// FIFO wait queue} at a time, and Queue records which so task_vanish can
// unlink a sibling thread from whichever queue currently holds it (spec 9).
type Thread struct {
	Tid  defs.Tid_t
	Task *Task

	State   ThreadState
	RunFlag int32 // >0 runnable/running, 0 blocked, <0 doomed (spec's cas2i_runflag target)

	Regs arch.Regs_t

	KStack    []byte
	KStackTop uintptr
	SavedSP   uintptr // kernel stack pointer at the last context switch away from this thread

	SleepTicks int

	Next, Prev *Thread
	Queue      *ThreadQueue_t
}

// ThreadQueue_t is a plain intrusive FIFO list of threads. It carries no
// lock of its own -- callers hold whatever spinlock guards the queue
// (sched's run-queue lock, or a semaphore's own lock) -- matching the
// teacher's style of small, unsynchronized helper types composed under an
// explicit lock rather than embedding one.
type ThreadQueue_t struct {
	head, tail *Thread
	len        int
}

// Len returns the number of threads currently queued.
func (q *ThreadQueue_t) Len() int { return q.len }

// PushBack enqueues t at the tail. t must not already be on a queue.
func (q *ThreadQueue_t) PushBack(t *Thread) {
	if t.Queue != nil {
		panic("thread already on a queue")
	}
	t.Next, t.Prev = nil, q.tail
	if q.tail != nil {
		q.tail.Next = t
	} else {
		q.head = t
	}
	q.tail = t
	t.Queue = q
	q.len++
}

// PopFront dequeues and returns the head of the queue, or nil if empty.
func (q *ThreadQueue_t) PopFront() *Thread {
	t := q.head
	if t == nil {
		return nil
	}
	q.Remove(t)
	return t
}

// Remove unlinks t from whichever position it occupies in this queue.
// task_vanish calls this (via Remove on whatever queue a doomed sibling's
// Queue field names) to force a thread off a semaphore wait queue or the
// run queue without waiting for it to wake up on its own.
func (q *ThreadQueue_t) Remove(t *Thread) {
	if t.Queue != q {
		panic("remove from queue that doesn't hold this thread")
	}
	if t.Prev != nil {
		t.Prev.Next = t.Next
	} else {
		q.head = t.Next
	}
	if t.Next != nil {
		t.Next.Prev = t.Prev
	} else {
		q.tail = t.Prev
	}
	t.Next, t.Prev, t.Queue = nil, nil, nil
	q.len--
}

// Task is a task control block: an address space, its threads, its
// parent/child links, and the accounting and synchronization state fork,
// wait, and vanish need. Grounded on original_source's struct ktask.
type Task struct {
	sync.Mutex

	Pid  defs.Pid_t
	AS   *vm.AS_t
	Acct accnt.Accnt_t

	Threads []*Thread // all live threads belonging to this task; membership list, not a run/wait queue

	ForkLock Sem_i // binary semaphore guarding concurrent fork (wired by ksync)
	Vultures Sem_i // parent blocks here in wait() until a child is reaped

	Parent   *Task
	Children []*Task // sibling list task_vanish walks to force-kill

	Status  int
	Zombie  bool
	MemUsed uint64 // bytes reserved against limits.ALLOC_MEM_QUOTA
}

// Sem_i is the narrow semaphore interface proc needs (Wait/Signal); the
// concrete type is ksync.Sem_t, injected so this package never imports
// ksync directly (ksync imports proc for Thread/ThreadQueue_t, so the
// dependency can only run one way -- see sched_hooks.go).
type Sem_i interface {
	Wait()
	Signal()
}

// CasRunFlag atomically compares-and-swaps RunFlag, a single-pair form of
// the compare-and-set cas2i_runflag performs; the syscall itself goes
// through Cas2iRunflag below (spec 4.6, original_source's
// syscall_cas2irunflag.c).
func (t *Thread) CasRunFlag(old, new int32) bool {
	return atomic.CompareAndSwapInt32(&t.RunFlag, old, new)
}

// Cas2iRunflag implements cas2i_runflag's two-way compare-and-set: read
// RunFlag, then apply whichever of (ev1,nv1)/(ev2,nv2) matches (both are
// checked; in practice a caller arranges for at most one to). Lets a
// user-level thread library express "sleep while atomically releasing a
// lock" as a single kernel primitive instead of two syscalls racing each
// other (spec 4.6, original_source's syscall_cas2irunflag.c).
func (t *Thread) Cas2iRunflag(ev1, nv1, ev2, nv2 int32) int32 {
	for {
		old := atomic.LoadInt32(&t.RunFlag)
		next := old
		if old == ev1 {
			next = nv1
		}
		if old == ev2 {
			next = nv2
		}
		if next == old {
			return old
		}
		if atomic.CompareAndSwapInt32(&t.RunFlag, old, next) {
			return old
		}
	}
}

func allocKStack() ([]byte, uintptr) {
	// over-allocate so the stack can be aligned up to a KSTACK_SIZE
	// boundary, mirroring the alignment the masking trick (tcb.go)
	// depends on.
	raw := make([]byte, limits.KSTACK_SIZE*2)
	base := uintptr(0)
	if len(raw) > 0 {
		// alignedBase rounds the slice's backing address up via unsafe;
		// see tcb.go.
		base = alignedBase(raw)
	}
	return raw, base
}

func init() {
	klog.Printf("proc: thread control block size accounted (stack %d bytes)\n", limits.KSTACK_SIZE)
}

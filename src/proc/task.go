package proc

import (
	"sync"
	"sync/atomic"

	"accnt"
	"defs"
	"limits"
	"vm"
)

var nextTid int64
var nextPid int64

var tidTableLock sync.Mutex
var tidTable = map[defs.Tid_t]*Thread{}

func allocTid() defs.Tid_t { return defs.Tid_t(atomic.AddInt64(&nextTid, 1)) }

// ByTid returns the live thread with the given tid, or nil. cas2i_runflag
// is the only caller that needs a thread by identifier rather than by
// direct pointer (spec 4.6, 4.9); yield checks its target against the
// caller's own task's Threads instead.
func ByTid(tid defs.Tid_t) *Thread {
	tidTableLock.Lock()
	defer tidTableLock.Unlock()
	return tidTable[tid]
}

// NewTask builds a task with a freshly allocated address space, a
// ALLOC_MEM_QUOTA byte quota, and one runnable thread. parent is nil for
// the tasks cmd/kernel builds at boot (the idle task and the first user
// task); every other task is created by fork, which wires Parent/Children
// itself via addChild.
func NewTask(parent *Task, kwinPDEs int) (*Task, *Thread, defs.Err_t) {
	as, err := vm.NewAddressSpace(kwinPDEs)
	if err != 0 {
		return nil, nil, err
	}

	t := &Task{
		AS:       as,
		Acct:     accnt.MkAccnt(limits.ALLOC_MEM_QUOTA),
		ForkLock: NewSem(1),
		Vultures: NewSem(0),
		Parent:   parent,
	}

	th := t.newThread()
	t.Pid = defs.Pid_t(th.Tid)

	if parent != nil {
		parent.addChild(t)
	}

	return t, th, 0
}

// newThread allocates a kernel stack and thread control block for t,
// appending it to t's thread membership list. Separate from the run
// queue: a thread only enters the run queue via sched.Add, typically
// right after this call returns.
func (t *Task) newThread() *Thread {
	stack, top := allocKStack()
	th := &Thread{
		Tid:       allocTid(),
		Task:      t,
		State:     Runnable,
		RunFlag:   1,
		KStack:    stack,
		KStackTop: top,
	}

	t.Lock()
	t.Threads = append(t.Threads, th)
	t.Unlock()

	tidTableLock.Lock()
	tidTable[th.Tid] = th
	tidTableLock.Unlock()

	return th
}

// addChild records child under t, task_vanish's sibling walk and wait's
// reaping both rely on Children being complete and current.
func (t *Task) addChild(child *Task) {
	t.Lock()
	t.Children = append(t.Children, child)
	t.Unlock()
}

// removeChild drops child from t.Children once it has been reaped.
func (t *Task) removeChild(child *Task) {
	t.Lock()
	defer t.Unlock()
	for i, c := range t.Children {
		if c == child {
			t.Children = append(t.Children[:i], t.Children[i+1:]...)
			return
		}
	}
}

// removeThread drops th from t's thread membership list, called once th
// has fully exited (thread_exit/vanish).
func (t *Task) removeThread(th *Thread) {
	t.Lock()
	for i, x := range t.Threads {
		if x == th {
			t.Threads = append(t.Threads[:i], t.Threads[i+1:]...)
			break
		}
	}
	t.Unlock()

	tidTableLock.Lock()
	delete(tidTable, th.Tid)
	tidTableLock.Unlock()
}

// NumThreads reports how many threads are currently live in t.
func (t *Task) NumThreads() int {
	t.Lock()
	defer t.Unlock()
	return len(t.Threads)
}

// Gettid returns the tid of the calling thread, the gettid syscall.
func Gettid() defs.Tid_t {
	return Current().Tid
}

// SetStatus records the exit status a task will report to wait once it
// vanishes, spec 4.6's set_status.
func SetStatus(t *Task, status int) {
	t.Lock()
	t.Status = status
	t.Unlock()
}

// SwapAddressSpace installs newAS as t's live address space and returns
// the one it replaced. exec builds a whole new address space off to the
// side (loading segments, growing the stack) before calling this, so a
// load failure never touches the task that is still running -- the
// rollback half of the build-then-swap discipline spec 9's exec open
// question resolves to (see DESIGN.md). The caller is responsible for
// destroying whichever AS_t ends up unused: the new one on a load
// failure, the old one on success.
func (t *Task) SwapAddressSpace(newAS *vm.AS_t) *vm.AS_t {
	t.Lock()
	old := t.AS
	t.AS = newAS
	t.Unlock()
	return old
}

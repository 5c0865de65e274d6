package proc

import "testing"

func TestThreadQueueFIFOOrder(t *testing.T) {
	var q ThreadQueue_t
	a, b, c := &Thread{Tid: 1}, &Thread{Tid: 2}, &Thread{Tid: 3}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := q.PopFront(); got != a {
		t.Fatalf("PopFront() = %v, want %v", got, a)
	}
	if got := q.PopFront(); got != b {
		t.Fatalf("PopFront() = %v, want %v", got, b)
	}
	if got := q.PopFront(); got != c {
		t.Fatalf("PopFront() = %v, want %v", got, c)
	}
	if got := q.PopFront(); got != nil {
		t.Fatalf("PopFront() on an empty queue = %v, want nil", got)
	}
}

func TestThreadQueuePushBackPanicsIfAlreadyQueued(t *testing.T) {
	var q ThreadQueue_t
	th := &Thread{Tid: 1}
	q.PushBack(th)

	defer func() {
		if recover() == nil {
			t.Fatal("PushBack of an already-queued thread did not panic")
		}
	}()
	q.PushBack(th)
}

func TestThreadQueueRemoveFromMiddle(t *testing.T) {
	var q ThreadQueue_t
	a, b, c := &Thread{Tid: 1}, &Thread{Tid: 2}, &Thread{Tid: 3}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	q.Remove(b)
	if q.Len() != 2 {
		t.Fatalf("Len() after Remove = %d, want 2", q.Len())
	}
	if got := q.PopFront(); got != a {
		t.Fatalf("PopFront() = %v, want %v", got, a)
	}
	if got := q.PopFront(); got != c {
		t.Fatalf("PopFront() after removing the middle entry = %v, want %v", got, c)
	}
}

func TestThreadQueueRemoveOfWrongQueuePanics(t *testing.T) {
	var q1, q2 ThreadQueue_t
	th := &Thread{Tid: 1}
	q1.PushBack(th)

	defer func() {
		if recover() == nil {
			t.Fatal("Remove from a queue that doesn't hold the thread did not panic")
		}
	}()
	q2.Remove(th)
}

func TestCasRunFlag(t *testing.T) {
	th := &Thread{RunFlag: 1}
	if !th.CasRunFlag(1, 0) {
		t.Fatal("CasRunFlag(1, 0) on a RunFlag=1 thread should succeed")
	}
	if th.CasRunFlag(1, -1) {
		t.Fatal("CasRunFlag(1, -1) on a RunFlag=0 thread should fail")
	}
}

func TestCas2iRunflagAppliesMatchingTransition(t *testing.T) {
	th := &Thread{RunFlag: 1}
	old := th.Cas2iRunflag(1, 0, 2, -1)
	if old != 1 {
		t.Fatalf("Cas2iRunflag returned old = %d, want 1", old)
	}
	if th.RunFlag != 0 {
		t.Fatalf("RunFlag after Cas2iRunflag = %d, want 0", th.RunFlag)
	}
}

func TestCas2iRunflagLeavesUnmatchedValueAlone(t *testing.T) {
	th := &Thread{RunFlag: 5}
	old := th.Cas2iRunflag(1, 0, 2, -1)
	if old != 5 || th.RunFlag != 5 {
		t.Fatalf("Cas2iRunflag on an unmatched RunFlag = (old %d, now %d), want (5, 5) unchanged", old, th.RunFlag)
	}
}

func TestCas2iRunflagSecondPairWins(t *testing.T) {
	th := &Thread{RunFlag: 2}
	old := th.Cas2iRunflag(1, 0, 2, -1)
	if old != 2 || th.RunFlag != -1 {
		t.Fatalf("Cas2iRunflag matching the second pair = (old %d, now %d), want (2, -1)", old, th.RunFlag)
	}
}

package proc

import "testing"

func TestRescheduleBeforeSetSchedulerPanics(t *testing.T) {
	savedSchedule, savedWake := scheduleFn, wakeFn
	scheduleFn, wakeFn = nil, nil
	defer func() {
		scheduleFn, wakeFn = savedSchedule, savedWake
		if recover() == nil {
			t.Fatal("Reschedule did not panic before SetScheduler was called")
		}
	}()
	Reschedule(true)
}

func TestRescheduleDelegatesToInstalledHook(t *testing.T) {
	savedSchedule, savedWake := scheduleFn, wakeFn
	defer func() { scheduleFn, wakeFn = savedSchedule, savedWake }()

	var gotResched bool
	var called bool
	SetScheduler(func(resched bool) { called, gotResched = true, resched }, func(t *Thread) {})

	Reschedule(true)
	if !called || !gotResched {
		t.Fatal("Reschedule did not call through to the installed schedule hook with the right argument")
	}
}

func TestWakeDelegatesToInstalledHook(t *testing.T) {
	savedSchedule, savedWake := scheduleFn, wakeFn
	defer func() { scheduleFn, wakeFn = savedSchedule, savedWake }()

	var woken *Thread
	SetScheduler(func(resched bool) {}, func(t *Thread) { woken = t })

	th := &Thread{Tid: 3}
	Wake(th)
	if woken != th {
		t.Fatalf("Wake delegated with %v, want %v", woken, th)
	}
}

func TestNewSemBeforeSetSemFactoryPanics(t *testing.T) {
	saved := newSemFn
	newSemFn = nil
	defer func() {
		newSemFn = saved
		if recover() == nil {
			t.Fatal("NewSem did not panic before SetSemFactory was called")
		}
	}()
	NewSem(1)
}

type fakeSem struct{ val int }

func (f *fakeSem) Wait()   {}
func (f *fakeSem) Signal() {}

func TestNewSemDelegatesToInstalledFactory(t *testing.T) {
	saved := newSemFn
	defer func() { newSemFn = saved }()

	SetSemFactory(func(val int) Sem_i { return &fakeSem{val: val} })

	s := NewSem(4)
	if s.(*fakeSem).val != 4 {
		t.Fatalf("NewSem(4) built a semaphore with val %d, want 4", s.(*fakeSem).val)
	}
}

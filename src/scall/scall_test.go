package scall

import (
	"testing"

	"defs"
	"proc"
	"sched"
)

func TestDispatchUnknownVectorIsInvalidSyscall(t *testing.T) {
	ret := Dispatch(&proc.Thread{}, 0x999, 0)
	if ret != -int(defs.InvalidSyscall) {
		t.Fatalf("Dispatch(unknown) = %d, want %d", ret, -int(defs.InvalidSyscall))
	}
}

func TestDispatchRunsCheckBeforeHandler(t *testing.T) {
	const testVec = -1 // never a real syscall vector, safe to claim for this test
	called := false
	register(testVec, "test", func(me *proc.Thread, esi uintptr) defs.Err_t {
		return defs.BadSysParam
	}, func(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
		called = true
		return 0, 0
	})
	defer delete(table, testVec)

	ret := Dispatch(&proc.Thread{}, testVec, 0)
	if ret != -int(defs.BadSysParam) {
		t.Fatalf("Dispatch with a failing check = %d, want %d", ret, -int(defs.BadSysParam))
	}
	if called {
		t.Fatal("Dispatch ran the handler despite a failing check")
	}
}

func TestDispatchPassesThroughHandlerValue(t *testing.T) {
	const testVec = -2
	register(testVec, "test", nil, func(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
		return 42, 0
	})
	defer delete(table, testVec)

	ret := Dispatch(&proc.Thread{}, testVec, 0)
	if ret != 42 {
		t.Fatalf("Dispatch = %d, want 42", ret)
	}
}

func TestDispatchNegatesHandlerError(t *testing.T) {
	const testVec = -3
	register(testVec, "test", nil, func(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
		return 0, defs.TaskNotFound
	})
	defer delete(table, testVec)

	ret := Dispatch(&proc.Thread{}, testVec, 0)
	if ret != -int(defs.TaskNotFound) {
		t.Fatalf("Dispatch = %d, want %d", ret, -int(defs.TaskNotFound))
	}
}

func TestYieldHandlerRejectsUnknownTargetTid(t *testing.T) {
	task := &proc.Task{}
	me := &proc.Thread{Tid: 1, Task: task}
	task.Threads = []*proc.Thread{me}

	_, err := yieldHandler(me, uintptr(99))
	if err != defs.TaskNotFound {
		t.Fatalf("yieldHandler with an unknown target tid = %v, want TaskNotFound", err)
	}
}

func TestYieldHandlerAcceptsSiblingTid(t *testing.T) {
	task := &proc.Task{}
	me := &proc.Thread{Tid: 1, Task: task}
	sib := &proc.Thread{Tid: 2, Task: task}
	task.Threads = []*proc.Thread{me, sib}
	sched.Init(me)
	proc.SetCurrent(me)

	if _, err := yieldHandler(me, uintptr(2)); err != 0 {
		t.Fatalf("yieldHandler with a live sibling tid returned %v, want no error", err)
	}
}

func TestYieldHandlerAcceptsMinusOneWithoutLookup(t *testing.T) {
	task := &proc.Task{}
	me := &proc.Thread{Tid: 1, Task: task}
	task.Threads = []*proc.Thread{me}
	sched.Init(me)
	proc.SetCurrent(me)

	if _, err := yieldHandler(me, uintptr(0xFFFFFFFF)); err != 0 { // -1 as uintptr(int32(-1))
		t.Fatalf("yieldHandler(-1) returned %v, want no error", err)
	}
}

func TestGettidHandlerReturnsCurrentTid(t *testing.T) {
	me := &proc.Thread{Tid: 7}
	proc.SetCurrent(me)

	ret, err := gettidHandler(me, 0)
	if err != 0 || ret != 7 {
		t.Fatalf("gettidHandler = (%d, %v), want (7, 0)", ret, err)
	}
}

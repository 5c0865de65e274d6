package proc

import (
	"testing"

	"defs"
)

func TestAddChildRemoveChild(t *testing.T) {
	parent := &Task{}
	child := &Task{Pid: 5}

	parent.addChild(child)
	if len(parent.Children) != 1 || parent.Children[0] != child {
		t.Fatalf("addChild did not record the child")
	}

	parent.removeChild(child)
	if len(parent.Children) != 0 {
		t.Fatalf("removeChild left %d children, want 0", len(parent.Children))
	}
}

func TestRemoveChildOfMissingChildIsNoop(t *testing.T) {
	parent := &Task{}
	other := &Task{}
	parent.removeChild(other) // must not panic
}

func TestNewThreadAssignsDistinctTidsAndRegistersInTidTable(t *testing.T) {
	task := &Task{}
	a := task.newThread()
	b := task.newThread()

	if a.Tid == b.Tid {
		t.Fatal("newThread assigned the same tid twice")
	}
	if task.NumThreads() != 2 {
		t.Fatalf("NumThreads() = %d, want 2", task.NumThreads())
	}
	if ByTid(a.Tid) != a || ByTid(b.Tid) != b {
		t.Fatal("newThread did not register its thread in the tid table")
	}
}

func TestRemoveThreadDropsMembershipAndTidTableEntry(t *testing.T) {
	task := &Task{}
	th := task.newThread()
	tid := th.Tid

	task.removeThread(th)
	if task.NumThreads() != 0 {
		t.Fatalf("NumThreads() after removeThread = %d, want 0", task.NumThreads())
	}
	if ByTid(tid) != nil {
		t.Fatal("removeThread did not clear the tid table entry")
	}
}

func TestSetStatusRecordsStatus(t *testing.T) {
	task := &Task{}
	SetStatus(task, 7)
	if task.Status != 7 {
		t.Fatalf("Status = %d, want 7", task.Status)
	}
}

func TestSwapAddressSpaceReturnsPrevious(t *testing.T) {
	task := &Task{}
	old := task.AS
	swapped := task.SwapAddressSpace(nil)
	if swapped != old {
		t.Fatal("SwapAddressSpace did not return the previous address space")
	}
}

func TestByTidOfUnknownTidIsNil(t *testing.T) {
	if ByTid(defs.Tid_t(-12345)) != nil {
		t.Fatal("ByTid of a tid that was never registered should be nil")
	}
}

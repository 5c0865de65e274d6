package fault

import (
	"testing"

	"vm"
)

// classify's COW branches call vm.AS_t.IsAddressCOW, which walks a real
// page table through mem.Physmem -- not safely fabricated on a host test
// (see DESIGN.md's note on mem.Physmem_t.Deref). These tests cover the
// paths classify takes without a mapped PTE: no installed range, the
// stack-guard special case, and a present-but-unbacked range.
func TestClassifyNoRangeIsFatal(t *testing.T) {
	var as vm.AS_t
	act, vmi := classify(&as, 0x8000, false, false)
	if act != actionKill || vmi != nil {
		t.Fatalf("classify with no installed range = (%v, %v), want (actionKill, nil)", act, vmi)
	}
}

func TestClassifyGuardPageGrowsStack(t *testing.T) {
	var as vm.AS_t
	as.InstallRange(0x9000, 0x1000, 0, vm.RangeAnon, nil) // the one stack page currently installed

	act, vmi := classify(&as, 0x8000, false, false) // one page below the stack
	if act != actionGrowStack {
		t.Fatalf("classify at the guard page = %v, want actionGrowStack", act)
	}
	if vmi == nil || vmi.Pgn != 0x9000>>12 {
		t.Fatalf("classify did not return the stack range to grow")
	}
}

func TestClassifyAbsentButInstalledRangeBacksIn(t *testing.T) {
	var as vm.AS_t
	as.InstallRange(0x1000, 0x1000, 0, vm.RangeBacked, []byte("text"))

	act, vmi := classify(&as, 0x1000, false, false)
	if act != actionBack || vmi == nil {
		t.Fatalf("classify over an installed-but-unmapped range = (%v, %v), want (actionBack, non-nil)", act, vmi)
	}
}

func TestStackGuardRejectsNonAdjacentOrWrongKindRange(t *testing.T) {
	var as vm.AS_t
	as.InstallRange(0x9000, 0x1000, 0, vm.RangeBacked, nil) // adjacent but the wrong kind

	if _, ok := stackGuard(&as, 0x8000>>12); ok {
		t.Fatal("stackGuard should not treat a RangeBacked neighbor as a growable stack")
	}
}

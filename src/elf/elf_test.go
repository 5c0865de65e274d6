package elf

import (
	stdelf "debug/elf"
	"testing"

	"mem"
	"vm"
)

func validHeader() stdelf.FileHeader {
	return stdelf.FileHeader{
		Class:   stdelf.ELFCLASS32,
		Data:    stdelf.ELFDATA2LSB,
		Type:    stdelf.ET_EXEC,
		Machine: stdelf.EM_386,
	}
}

func TestCheckHeaderAccepts32BitLittleEndianExec(t *testing.T) {
	h := validHeader()
	if err := checkHeader(&h); err != 0 {
		t.Fatalf("checkHeader rejected a valid header: %v", err)
	}
}

func TestCheckHeaderRejectsWrongClass(t *testing.T) {
	h := validHeader()
	h.Class = stdelf.ELFCLASS64
	if err := checkHeader(&h); err == 0 {
		t.Fatal("expected checkHeader to reject a 64-bit class")
	}
}

func TestCheckHeaderRejectsBigEndian(t *testing.T) {
	h := validHeader()
	h.Data = stdelf.ELFDATA2MSB
	if err := checkHeader(&h); err == 0 {
		t.Fatal("expected checkHeader to reject big-endian data")
	}
}

func TestCheckHeaderRejectsNonExecutable(t *testing.T) {
	h := validHeader()
	h.Type = stdelf.ET_DYN
	if err := checkHeader(&h); err == 0 {
		t.Fatal("expected checkHeader to reject a non-ET_EXEC type")
	}
}

func TestCheckHeaderRejectsWrongMachine(t *testing.T) {
	h := validHeader()
	h.Machine = stdelf.EM_X86_64
	if err := checkHeader(&h); err == 0 {
		t.Fatal("expected checkHeader to reject a non-386 machine")
	}
}

func TestInstallSegmentPageAlignsAndPadsBacking(t *testing.T) {
	var as vm.AS_t

	prog := &stdelf.Prog{
		ProgHeader: stdelf.ProgHeader{
			Vaddr:  0x1100,
			Memsz:  0x2000,
			Filesz: 0x1000,
			Off:    0,
			Flags:  stdelf.PF_R,
		},
	}
	image := make([]byte, 0x1000)
	for i := range image {
		image[i] = 0xAA
	}

	if err := installSegment(&as, prog, image); err != 0 {
		t.Fatalf("installSegment failed: %v", err)
	}

	vmi, ok := as.Regions.Lookup(0x1100 >> 12)
	if !ok {
		t.Fatal("installSegment did not install a range covering the segment's start page")
	}
	if vmi.Kind != vm.RangeBacked {
		t.Fatalf("installed range kind = %v, want RangeBacked", vmi.Kind)
	}
	if vmi.Perms&mem.PTE_W != 0 {
		t.Fatal("a read-only PT_LOAD segment should not install PTE_W")
	}
	// the range must start at the page boundary below Vaddr (0x1000, not 0x1100).
	if vmi.Pgn != 0x1000>>12 {
		t.Fatalf("range start page = 0x%x, want 0x%x", vmi.Pgn<<12, 0x1000)
	}
}

func TestInstallSegmentWritableFlag(t *testing.T) {
	var as vm.AS_t
	prog := &stdelf.Prog{
		ProgHeader: stdelf.ProgHeader{
			Vaddr: 0x2000, Memsz: 0x1000, Filesz: 0, Flags: stdelf.PF_R | stdelf.PF_W,
		},
	}
	if err := installSegment(&as, prog, nil); err != 0 {
		t.Fatalf("installSegment failed: %v", err)
	}
	vmi, ok := as.Regions.Lookup(0x2000 >> 12)
	if !ok || vmi.Perms&mem.PTE_W == 0 {
		t.Fatal("a writable PT_LOAD segment should install PTE_W")
	}
}

func TestInstallStackCoversPageBelowReturnedTop(t *testing.T) {
	var as vm.AS_t
	top := installStack(&as)
	if top == 0 {
		t.Fatal("installStack returned a zero top")
	}
	if _, ok := as.Regions.Lookup((top - 1) >> 12); !ok {
		t.Fatal("installStack did not install a range covering the page below its reported top")
	}
}

func TestRoundup(t *testing.T) {
	specs := []struct{ n, to, want uintptr }{
		{0, 0x1000, 0},
		{1, 0x1000, 0x1000},
		{0x1000, 0x1000, 0x1000},
		{0x1001, 0x1000, 0x2000},
	}
	for i, s := range specs {
		if got := roundup(s.n, s.to); got != s.want {
			t.Errorf("[spec %d] roundup(0x%x, 0x%x) = 0x%x, want 0x%x", i, s.n, s.to, got, s.want)
		}
	}
}

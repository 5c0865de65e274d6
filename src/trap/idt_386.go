//go:build 386

package trap

import (
	"arch"
	"unsafe"
)

// idtEntry is one 8-byte IA-32 interrupt-gate descriptor.
type idtEntry struct {
	offsetLow  uint16
	selector   uint16
	zero       uint8
	typeAttr   uint8
	offsetHigh uint16
}

// kernelCS is the flat kernel code segment selector install_user_segs
// sets up in the original (SEGSEL_KERNEL_CS); this kernel's GDT is built
// at boot by the same assembly that sets up paging, not by this package.
const kernelCS = 0x08

// Gate type_attr bytes: present (bit 7), DPL in bits 5-4, a 32-bit
// trap gate (0xF) or interrupt gate (0xE) in the low nibble.
// original_source distinguishes these as i386_GATE_TYPE_TRAP at
// i386_PL0 vs i386_PL3.
const (
	attrTrapRing0 = 0x8F
	attrTrapRing3 = 0xEF
	attrIntRing0  = 0x8E
)

var idt [256]idtEntry

func attrFor(k gateKind) uint8 {
	switch k {
	case gateInterrupt:
		return attrIntRing0
	case gateTrapUser:
		return attrTrapRing3
	default:
		return attrTrapRing0
	}
}

// stubAddr returns the address of the generated common entry stub for
// vector vec, implemented in trap_386.s: it pushes an error code of 0 for
// vectors the CPU doesn't supply one for, pushes vec, saves the general
// purpose registers, and calls commonHandler with a pointer to the
// resulting arch.Regs_t.
func stubAddr(vec int) uintptr

func installGate(vec int, kind gateKind) {
	addr := stubAddr(vec)
	idt[vec] = idtEntry{
		offsetLow:  uint16(addr),
		selector:   kernelCS,
		typeAttr:   attrFor(kind),
		offsetHigh: uint16(addr >> 16),
	}
}

func loadIDT() {
	base := uint32(uintptr(unsafe.Pointer(&idt[0])))
	limit := uint16(len(idt)*8 - 1)
	arch.LoadIDT(base, limit)
}

// commonHandler is the only asm -> Go crossing this package needs; every
// generated stub ends by calling it with the regs it built.
func commonHandler(regs *arch.Regs_t) {
	Dispatch(regs)
}

// cr2 reads the faulting linear address the CPU latches on a page fault.
func cr2() uintptr

// picAcknowledge sends the end-of-interrupt byte to the 8259 PIC that
// owns vec, original_source's pic_acknowledge.
func picAcknowledge(vec int)

// readScancode reads the next byte off the keyboard controller's data
// port (0x60), original_source's keyb_driver raw read.
func readScancode() byte

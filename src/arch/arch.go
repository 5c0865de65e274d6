// Package arch is the seam between the portable kernel logic and the
// handful of operations that can only be expressed in assembly on real
// IA-32 hardware: disabling interrupts, loading CR3 and the IDT, and
// switching stacks. Every other package in this kernel is plain,
// testable Go; only arch's //go:build 386 files touch the machine
// directly, the same split gopher-os draws between its kernel/mem and
// kernel/cpu packages.
package arch

// Regs_t is the register snapshot pushed onto a thread's kernel stack by
// the common trap stub before a handler runs, and restored by iret when
// the handler returns. Field order matches the push sequence the stub
// uses (trap.go), innermost (most recently pushed) first.
type Regs_t struct {
	// general purpose registers, pushed by pusha/popa order
	Edi, Esi, Ebp, Esp0, Ebx, Edx, Ecx, Eax uint32
	// vector number and any hardware error code (0 if the vector has none)
	Vecno, Errcode uint32
	// the processor's own iret frame
	Eip, Cs, Eflags uint32
	// only present when the trap crossed from ring 3 to ring 0
	UserEsp, UserSs uint32
}

// Flags bits this kernel cares about.
const (
	EFLAGS_IF = 1 << 9 // interrupt enable
)

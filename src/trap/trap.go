// Package trap wires the IDT and routes every vector the CPU can deliver
// (faults, the timer, the keyboard, and the syscall gates) to the
// handler that knows what to do with it. Grounded on
// gopheros/kernel/gate (installIDT/dispatchInterrupt/HandleInterrupt)
// for the split between a portable dispatch table and the
// machine-specific gate-descriptor construction, and on
// original_source/kern/kernel.c's interrupt_setup() plus
// kern/syscall/syscall.c's i386_sc_set_idt_entry for which vectors this
// kernel actually installs and as what gate type.
package trap

import (
	"arch"
	"fault"
	"klog"
	"proc"
	"scall"
	"sched"
)

// Exception vectors Dispatch handles by name. Init installs a trap gate for
// every CPU fault vector, 0 through 19; a fault on any vector not named
// here reaches Dispatch's default case, which logs it and vanishes the
// thread.
const (
	DivideByZero    = 0
	InvalidOpcode   = 6
	DoubleFault     = 8
	GPFException    = 13
	PageFaultVector = 14
)

// IRQVectorBase is where the remapped PIC delivers hardware interrupts,
// interrupt_setup()'s job in the original -- far enough past the CPU's
// own 0-31 exception range that the two never collide.
const IRQVectorBase = 0x20

const (
	TimerVector    = IRQVectorBase + 0
	KeyboardVector = IRQVectorBase + 1
)

// SyscallVectorBase is the first vector scall's table uses, and
// SyscallVectorCount covers every call scall.go declares (Cas2iRunflagInt
// being the last). Kept as a range rather than importing scall's count
// directly so trap only depends on scall for Dispatch.
const (
	SyscallVectorBase  = 0x40
	SyscallVectorCount = 0x20
)

// gateKind selects the descriptor type a vector is installed with:
// whether it runs with interrupts re-enabled (trap) or masked
// (interrupt), and whether ring 3 may reach it directly with int $vec.
type gateKind int

const (
	gateTrap gateKind = iota
	gateInterrupt
	gateTrapUser
)

// KeyboardDecoder turns a raw scancode into zero or more bytes of input,
// pushed onto the console's input ring. Nothing in this kernel sets it:
// decoding scancodes into ASCII is driver glue this kernel's core does not
// implement (see con's package doc comment), and while it is nil Dispatch
// acknowledges keyboard interrupts without reading the scancode.
var KeyboardDecoder func(scancode byte) []byte

// ConsolePush receives whatever KeyboardDecoder produces. Boot wires this
// to the console device's PushInput.
var ConsolePush func([]byte)

// Init builds the IDT, installs every vector this kernel handles, and
// loads it, original_source's interrupt_setup() plus syscall_init().
func Init() {
	for vec := DivideByZero; vec < 20; vec++ { // CPU faults 0 (divide error) .. 19 (SIMD)
		installGate(vec, gateTrap)
	}

	installGate(TimerVector, gateInterrupt)
	installGate(KeyboardVector, gateInterrupt)

	for vec := SyscallVectorBase; vec < SyscallVectorBase+SyscallVectorCount; vec++ {
		installGate(vec, gateTrapUser)
	}

	loadIDT()
	klog.Boot("trap: idt installed")
}

// Dispatch is called by the common trap stub with the register snapshot
// it pushed onto the faulting thread's kernel stack. It never returns to
// a caller in the Go sense: either it repairs the fault and the stub's
// iret resumes the interrupted thread, or the thread is gone and
// scheduling picks someone else, original_source's trap_entry -> specific
// handler chain.
func Dispatch(regs *arch.Regs_t) {
	me := proc.Current()
	vec := int(regs.Vecno)

	switch {
	case vec == PageFaultVector:
		linear := cr2()
		write := regs.Errcode&2 != 0
		present := regs.Errcode&1 != 0
		fault.PageFault(me, linear, write, present)

	case vec == TimerVector:
		picAcknowledge(vec)
		sched.TimerCallback()

	case vec == KeyboardVector:
		picAcknowledge(vec)
		if KeyboardDecoder != nil && ConsolePush != nil {
			ConsolePush(KeyboardDecoder(readScancode()))
		}

	case vec >= SyscallVectorBase && vec < SyscallVectorBase+SyscallVectorCount:
		regs.Eax = uint32(scall.Dispatch(me, vec, uintptr(regs.Esi)))

	case vec == DoubleFault:
		klog.Panic("double fault, tid %d, eip 0x%x", me.Tid, regs.Eip)

	case vec == DivideByZero, vec == InvalidOpcode, vec == GPFException:
		klog.Printf("trap: fatal vector %d, tid %d, eip 0x%x, err 0x%x\n",
			vec, me.Tid, regs.Eip, regs.Errcode)
		proc.Vanish(me)

	default:
		klog.Printf("unhandled trap vector %d, tid %d, eip 0x%x\n", vec, me.Tid, regs.Eip)
		proc.Vanish(me)
	}
}

//go:build 386

package arch

// These are implemented in cpu_386.s. None can be expressed in portable
// Go: they read and write machine registers a freestanding Go runtime
// never exposes.

// SaveFlagsCLI disables interrupts and returns the previous EFLAGS value,
// the building block ksync's spinlock uses on a uniprocessor kernel
// (spec 4.5): a critical section is just "interrupts off for its
// duration."
func SaveFlagsCLI() uint32

// RestoreFlags restores EFLAGS (and with it, the interrupt-enable bit) to
// a value previously returned by SaveFlagsCLI.
func RestoreFlags(flags uint32)

// LoadCR3 switches the active page directory.
func LoadCR3(p_pmap uint32)

// LoadIDT installs the interrupt descriptor table.
func LoadIDT(base uint32, limit uint16)

// CurrentStackPointer returns the live value of ESP, used to mask down to
// the thread control block at the base of the current kernel stack
// (spec 3, 9).
func CurrentStackPointer() uintptr

// ContextSwitch saves the callee-saved registers and stack pointer of the
// outgoing thread into *oldsp, then restores them from newsp and resumes
// there. Used by sched to switch between threads' kernel stacks.
func ContextSwitch(oldsp *uintptr, newsp uintptr)

// Halt executes hlt, parking the CPU until the next interrupt. Used by
// the idle thread.
func Halt()

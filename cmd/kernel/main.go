// Command kernel is pebkern's entry point: the freestanding equivalent of
// a process's main, invoked once by the boot assembly after it has
// switched to protected mode and built a minimal stack. Grounded on
// gopheros/kernel/kmain.Kmain for the shape of a bare-metal Go Main (a
// physical memory handoff in, an init sequence that never returns out)
// and on original_source/kern/kernel.c's kernel_main for the init
// sequence. Kmain's order: physical memory, the semaphore factory, the idle
// task and the scheduler, the RAM disk, the console, the syscall
// environment, the IDT and interrupts, and finally the first program.
package main

import (
	"arch"
	"con"
	"defs"
	"klog"
	"limits"
	"mem"
	"proc"
	"ramdisk"
	"scall"
	"sched"
	"trap"

	"ksync"
)

// initProgram is the RAM disk entry the kernel execs once boot completes,
// original_source's bootstrap task ("idle" is a dedicated kernel-only
// thread that never execs; the first *user* program is a separate,
// named RAM disk entry).
const initProgram = "init"

// kwinPDEs is how many page-directory entries the kernel window below
// USER_MEM_START occupies, the same count every task's address space
// reserves identically (spec 3, 9).
var kwinPDEs = limits.USER_MEM_START / (limits.PGSIZE * limits.PTES_PER_PT)

// Kmain is the only Go symbol the boot assembly calls. physStart/physPages
// describe the usable RAM region the bootloader's memory map reported
// (spec.md §6's "usable RAM regions" handoff, narrowed to the single
// contiguous region this teaching kernel assumes); ramdiskBase/ramdiskLen
// locate the boot-embedded RAM disk image the linker placed in the kernel
// binary.
//
//go:noinline
func Kmain(physStart, physPages uintptr, ramdiskBase, ramdiskLen uintptr) {
	mem.Phys_init(mem.Pa_t(physStart), int(physPages))
	klog.Boot("physical memory: %d pages at 0x%x", physPages, physStart)

	proc.SetSemFactory(func(val int) proc.Sem_i { return ksync.MkSem(val) })

	_, idle, err := proc.NewTask(nil, kwinPDEs)
	if err != 0 {
		klog.Panic("failed to build idle task: %s", err)
	}
	proc.SetCurrent(idle)
	sched.Init(idle)

	rd := ramdisk.New()
	loadRamdisk(rd, ramdiskBase, ramdiskLen)

	console := con.NewDevice(vgaWriter{}, sched.TickSourceFunc(sched.Ticks), mem.Physmem)
	trap.ConsolePush = console.PushInput

	scall.Env.Ramdisk = rd
	scall.Env.Console = console

	trap.Init()
	arch.RestoreFlags(arch.EFLAGS_IF)

	boot(rd, console)

	klog.Panic("Kmain returned")
}

// boot creates the first user task, execs initProgram into it, and adds
// it to the run queue, original_source's task_init handing off to the
// first user program once sched_init has an idle thread to fall back to.
func boot(rd *ramdisk.Ramdisk_t, console *con.Device) {
	t, th, err := proc.NewTask(nil, kwinPDEs)
	if err != 0 {
		klog.Panic("failed to build the initial task: %s", err)
	}

	entry, ustack, eerr := proc.Exec(t, rd, initProgram, nil)
	if eerr != 0 {
		klog.Panic("failed to exec %q: %s", initProgram, eerr)
	}
	th.Regs.Eip = uint32(entry)
	th.Regs.UserEsp = uint32(ustack)

	sched.Add(th)
	klog.Boot("started %q, tid %d", initProgram, th.Tid)
}

// loadRamdisk installs the single boot-embedded image as initProgram.
// A real boot stage would parse a cpio/tar archive the linker appended to
// the kernel binary; index-free name->blob lookup at this scale is
// exactly what ramdisk.Ramdisk_t already provides, so the archive format
// itself is left as a boot-stage detail outside this kernel's scope
// (spec.md's RAM disk module takes the table as given).
func loadRamdisk(rd *ramdisk.Ramdisk_t, base, length uintptr) {
	img := mem.Physmem.Derefbytes(mem.Pa_t(base))[:length]
	rd.Install(initProgram, img)
}

// vgaWriter is the boot console's output sink. The actual VGA text-mode
// write is arch-specific driver glue out of this kernel's scope (see
// con's package doc comment); this is the minimal real implementation
// available without one: each write goes straight to the kernel log,
// unbuffered.
type vgaWriter struct{}

func (vgaWriter) WriteConsole(p []byte) (int, defs.Err_t) {
	klog.Printf("%s", p)
	return len(p), 0
}

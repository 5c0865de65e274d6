package proc

import (
	"arch"
	"defs"
	"elf"
	"ramdisk"
)

// Exec replaces the calling task's program image with name's, loaded from
// rd, following a build-then-swap discipline: elf.Load builds an entirely
// new address space (segments installed and backed) off to the side,
// pushArgv writes argv onto its stack, and only once both have fully
// succeeded does Exec install the new address space (reloading CR3 when t
// is the running thread's task) and tear down the old one. A load or
// argv-copy failure
// leaves the calling task exactly as it was, original_source's
// syscall_exec.c collapsed into one path instead of two (loader.c's
// load_elf followed by the caller's iret-frame setup).
func Exec(t *Task, rd *ramdisk.Ramdisk_t, name string, argv []string) (entry, ustack uintptr, err defs.Err_t) {
	img, lerr := elf.Load(rd, name, t.AS.KwinPDEs())
	if lerr != 0 {
		return 0, 0, lerr
	}

	sp, perr := pushArgv(img, argv)
	if perr != 0 {
		img.AS.Destroy()
		return 0, 0, perr
	}

	old := t.SwapAddressSpace(img.AS)
	if current != nil && current.Task == t {
		// the calling thread is still running on the old page directory
		arch.LoadCR3(uint32(img.AS.P_pmap))
	}
	old.Destroy()

	return img.Entry, sp, 0
}

// pushArgv builds the frame a freshly exec'd thread expects to find under
// its entry point, original_source's exec_copy_argv_to_stack: the NUL
// terminated argument strings first (high addresses), then an argv[]
// pointer array pointing at them, then a scalar argv pointer and argc, and
// finally a dummy return address so a stray ret out of main faults instead
// of running off into whatever garbage sits below it.
//
//	[retaddr=0xDEADBEEF][argc][argv][argv[0]]...[argv[n-1]]["a0"\0]["a1"\0]...
func pushArgv(img *elf.Image, argv []string) (uintptr, defs.Err_t) {
	sp := img.UStack

	strAddrs := make([]uintptr, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		s := append([]byte(argv[i]), 0)
		sp -= uintptr(len(s))
		if err := img.AS.K2user(s, sp); err != 0 {
			return 0, err
		}
		strAddrs[i] = sp
	}
	sp &^= 0x3 // word-align before the pointer array begins

	for i := len(argv) - 1; i >= 0; i-- {
		sp -= 4
		if err := img.AS.Userwriten(sp, 4, int(strAddrs[i])); err != 0 {
			return 0, err
		}
	}
	argvAddr := sp

	sp -= 4
	if err := img.AS.Userwriten(sp, 4, int(argvAddr)); err != 0 {
		return 0, err
	}

	sp -= 4
	if err := img.AS.Userwriten(sp, 4, len(argv)); err != 0 {
		return 0, err
	}

	sp -= 4
	if err := img.AS.Userwriten(sp, 4, 0xDEADBEEF); err != 0 {
		return 0, err
	}

	return sp, 0
}

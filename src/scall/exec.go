package scall

import (
	"defs"
	"proc"
)

const (
	maxFilenameLen = 64
	maxArgLen      = 128
	maxArgv        = 16
)

func init() {
	register(ExecInt, "exec", nil, execHandler)
}

// execHandler decodes { filename*, argv** } from esi and hands off to
// proc.Exec, original_source's syscall_exec.c. Never returns to its
// caller's user-mode instruction stream on success: Eip/UserEsp are
// already the new image's by the time the trap stub irets.
func execHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	fnPtr, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	argvPtr, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}

	name, nerr := t.AS.Userstr(uintptr(fnPtr), maxFilenameLen)
	if nerr != 0 {
		return 0, nerr
	}

	var argv []string
	for i := 0; i < maxArgv; i++ {
		p, perr := t.AS.Userreadn(uintptr(argvPtr)+uintptr(4*i), 4)
		if perr != 0 {
			return 0, defs.BadSysParam
		}
		if p == 0 {
			break
		}
		s, serr := t.AS.Userstr(uintptr(p), maxArgLen)
		if serr != 0 {
			return 0, serr
		}
		argv = append(argv, string(s))
	}

	entry, ustack, eerr := proc.Exec(t, Env.Ramdisk, string(name), argv)
	if eerr != 0 {
		return 0, eerr
	}

	me.Regs.Eip = uint32(entry)
	me.Regs.UserEsp = uint32(ustack)
	return 0, 0
}

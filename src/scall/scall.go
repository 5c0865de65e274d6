// Package scall is the system-call dispatch boundary: the fixed
// {vector, arg_check, handler} table and the ESI-packet-pointer argument
// convention spec.md lays out call by call. Grounded on
// original_source/kern/syscall/syscall.c (the dispatch loop) and
// syscall_paramcheck.c (the per-call argument checks); one handler file
// per call, named the way the original's syscall_<name>.c files are, but
// translated into Go's explicit-error-return idiom in place of the C
// original's KERN_RET_CODE out-parameter convention.
package scall

import (
	"defs"
	"proc"

	"con"
	"ramdisk"
)

// The syscall vector numbers. Not the original's real x86 interrupt
// numbers (irrelevant to a retargeted kernel); trap installs each as a
// trap gate and hands the vector straight to Dispatch.
const (
	ForkInt = iota + 0x40
	ExecInt
	WaitInt
	YieldInt
	GettidInt
	NewPagesInt
	RemovePagesInt
	SleepInt
	GetcharInt
	ReadlineInt
	PrintInt
	SetTermColorInt
	SetCursorPosInt
	GetCursorPosInt
	ThreadForkInt
	GetTicksInt
	HaltInt
	LsInt
	TaskVanishInt
	SetStatusInt
	VanishInt
	Cas2iRunflagInt
)

// Handler runs a syscall's body given the calling thread and its ESI
// argument (a scalar or a user-space pointer, call-dependent), returning
// the value to place in Eax, or an error from defs' closed namespace.
type Handler func(me *proc.Thread, esi uintptr) (int, defs.Err_t)

// Check validates esi before Handler is allowed to run. A nil Check skips
// the step; every call in this kernel registers nil, and each handler does
// its own range_present, tid-liveness and color-range checks.
type Check func(me *proc.Thread, esi uintptr) defs.Err_t

type entry struct {
	name    string
	check   Check
	handler Handler
}

var table = map[int]entry{}

// register installs vec's table entry. Called from each handler file's
// init, one registration per original syscall_<name>.c.
func register(vec int, name string, check Check, handler Handler) {
	table[vec] = entry{name: name, check: check, handler: handler}
}

// Env is the kernel-wide state syscalls other than pure task/vm operations
// need: the ram disk exec and ls read from, and the console device
// getchar/readline/print talk to. Wired once during boot.
var Env struct {
	Ramdisk *ramdisk.Ramdisk_t
	Console *con.Device
}

// Dispatch runs the syscall named by vec for the calling thread me, the
// kernel side of a user program's int $vec with the argument packet
// pointer (or scalar) in esi. Unknown vectors return InvalidSyscall,
// original_source's syscall_unimpl. The return value is what the trap
// stub places in Eax before iret: non-negative on success, -err on
// failure.
func Dispatch(me *proc.Thread, vec int, esi uintptr) int {
	e, ok := table[vec]
	if !ok {
		return -int(defs.InvalidSyscall)
	}
	if e.check != nil {
		if err := e.check(me, esi); err != 0 {
			return -int(err)
		}
	}
	ret, err := e.handler(me, esi)
	if err != 0 {
		return -int(err)
	}
	return ret
}

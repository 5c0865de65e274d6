package scall

import (
	"defs"
	"proc"
)

const (
	maxPrintLen = 4096
	maxLsNames  = 64
)

func init() {
	register(GetcharInt, "getchar", nil, getcharHandler)
	register(ReadlineInt, "readline", nil, readlineHandler)
	register(PrintInt, "print", nil, printHandler)
	register(SetTermColorInt, "set_term_color", nil, setTermColorHandler)
	register(SetCursorPosInt, "set_cursor_pos", nil, setCursorPosHandler)
	register(GetCursorPosInt, "get_cursor_pos", nil, getCursorPosHandler)
	register(LsInt, "ls", nil, lsHandler)
}

// getcharHandler implements getchar: block until one byte arrives,
// synchronous_readchar.
func getcharHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	return int(Env.Console.Getchar()), 0
}

// readlineHandler decodes { len, buf* } from esi, reads up to len bytes
// (inclusive of a terminating newline) and writes them into buf,
// synchronous_readline.
func readlineHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	ln, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	bufPtr, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	if ln <= 0 || ln > maxPrintLen {
		return 0, defs.BadSysParam
	}

	line := Env.Console.ReadLine(ln)
	if werr := t.AS.K2user(line, uintptr(bufPtr)); werr != 0 {
		return 0, werr
	}
	return len(line), 0
}

// printHandler decodes { len, buf* } from esi, copies len bytes out of
// user space, and writes them to the console, original_source's
// syscall_print.c (putbytes).
func printHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	ln, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	bufPtr, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	if ln < 0 || ln > maxPrintLen {
		return 0, defs.BadSysParam
	}

	buf := make([]byte, ln)
	if rerr := t.AS.User2k(buf, uintptr(bufPtr)); rerr != 0 {
		return 0, rerr
	}

	if _, werr := Env.Console.Write(buf); werr != 0 {
		return 0, werr
	}
	return 0, 0
}

// setTermColorHandler implements set_term_color(color): esi is the scalar
// color value; bits outside the valid range are rejected (spec 4.9's
// "colors must fit in the valid bits").
func setTermColorHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	color := int(esi)
	if color < 0 || color > 0xff {
		return 0, defs.BadSysParam
	}
	Env.Console.SetTermColor(color)
	return 0, 0
}

// setCursorPosHandler decodes { row, col } from esi and records the
// cursor's kernel-tracked position.
func setCursorPosHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	row, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	col, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	if row < 0 || col < 0 {
		return 0, defs.BadSysParam
	}

	Env.Console.SetCursor(row, col)
	return 0, 0
}

// getCursorPosHandler decodes { row*, col* } from esi and writes the
// kernel-tracked cursor position back through them.
func getCursorPosHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	rowp, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	colp, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}

	row, col := Env.Console.Cursor()
	if werr := t.AS.Userwriten(uintptr(rowp), 4, row); werr != 0 {
		return 0, werr
	}
	if werr := t.AS.Userwriten(uintptr(colp), 4, col); werr != 0 {
		return 0, werr
	}
	return 0, 0
}

// lsHandler decodes { size, buf* } from esi and copies the ram disk's
// file names (at most maxLsNames of them), each NUL-terminated, into buf,
// returning the number of names written, or BufferTooSmall without
// writing anything if they do not fit in size bytes, original_source's
// syscall_ls.c.
func lsHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task

	size, err := t.AS.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	bufPtr, err := t.AS.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	if size < 0 {
		return 0, defs.BadSysParam
	}

	names := Env.Ramdisk.Names()
	if len(names) > maxLsNames {
		names = names[:maxLsNames]
	}

	var blob []byte
	for _, n := range names {
		blob = append(blob, n...)
		blob = append(blob, 0)
	}
	if len(blob) > size {
		return 0, defs.BufferTooSmall
	}

	if werr := t.AS.K2user(blob, uintptr(bufPtr)); werr != 0 {
		return 0, werr
	}
	return len(names), 0
}

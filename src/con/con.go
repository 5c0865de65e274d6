// Package con models the console device the I/O syscalls talk to.
// print/putbytes write through a ConsoleWriter; getchar/readline block on
// a circbuf.Circbuf_t-backed input queue a keyboard ISR feeds by calling
// PushInput; sleep/get_ticks read a TickSource. Grounded on
// original_source/kern/bootdrvlib (timer_driver.h, keyb_driver.h) for the
// shape of these contracts, but the VGA text-mode writer and the keyboard
// scancode decoder themselves are out of scope (spec.md section 1 calls
// this "C library glue... utility, not core") -- pebkern only defines what
// a driver must satisfy and wires the syscalls that consume it.
package con

import (
	"defs"

	"circbuf"
	"ksync"
	"mem"
)

// ConsoleWriter is whatever sink print/putbytes writes bytes onto (a VGA
// text-mode buffer on real hardware, a bytes.Buffer under test).
type ConsoleWriter interface {
	WriteConsole(p []byte) (int, defs.Err_t)
}

// TickSource is the timer ISR's monotonic jiffies counter, get_ticks's
// backing store. sched.TickSourceFunc(sched.Ticks) satisfies this.
type TickSource interface {
	Ticks() uint64
}

// Device is the kernel-side state the console syscalls share: an output
// sink and a circbuf-backed input ring fed by whatever keyboard driver is
// wired in.
type Device struct {
	out   ConsoleWriter
	ticks TickSource

	lock  ksync.Spinlock_t
	input circbuf.Circbuf_t
	ready *ksync.Sem_t // signaled once per byte PushInput adds

	termLock          ksync.Spinlock_t
	termColor         int
	cursorRow, cursorCol int
}

// NewDevice builds a console device with a one-page input ring backed by
// m, original_source's console_init.
func NewDevice(out ConsoleWriter, ticks TickSource, m mem.Page_i) *Device {
	d := &Device{out: out, ticks: ticks, ready: ksync.MkSem(0)}
	d.input.Cb_init(int(mem.PGSIZE), m)
	return d
}

// PushInput feeds bytes into the input ring, called by a keyboard ISR (or
// a test) as scancodes are decoded into characters.
func (d *Device) PushInput(b []byte) {
	f := d.lock.Lock()
	n, _ := d.input.Copyin(b)
	d.lock.Unlock(f)
	for i := 0; i < n; i++ {
		d.ready.Signal()
	}
}

// Getchar blocks until one byte is available and returns it,
// synchronous_readchar.
func (d *Device) Getchar() byte {
	d.ready.Wait()
	f := d.lock.Lock()
	var b [1]byte
	d.input.Copyout_n(b[:], 1)
	d.lock.Unlock(f)
	return b[0]
}

// ReadLine blocks byte by byte, accumulating up to max bytes or until a
// newline is read (inclusive), synchronous_readline.
func (d *Device) ReadLine(max int) []byte {
	buf := make([]byte, 0, max)
	for len(buf) < max {
		c := d.Getchar()
		buf = append(buf, c)
		if c == '\n' {
			break
		}
	}
	return buf
}

// Write sends p to the console's output sink, putbytes.
func (d *Device) Write(p []byte) (int, defs.Err_t) {
	return d.out.WriteConsole(p)
}

// Ticks reports the timer ISR's jiffies count, or 0 if no TickSource was
// wired (e.g. in a test harness that never installed one).
func (d *Device) Ticks() uint64 {
	if d.ticks == nil {
		return 0
	}
	return d.ticks.Ticks()
}

// SetTermColor records the terminal color set_term_color installs for
// future output; with no real VGA driver wired in, this is bookkeeping a
// driver would consult, not something this device renders itself.
func (d *Device) SetTermColor(color int) {
	f := d.termLock.Lock()
	d.termColor = color
	d.termLock.Unlock(f)
}

// SetCursor records the cursor position set_cursor_pos installs.
func (d *Device) SetCursor(row, col int) {
	f := d.termLock.Lock()
	d.cursorRow, d.cursorCol = row, col
	d.termLock.Unlock(f)
}

// Cursor returns the kernel-tracked cursor position, get_cursor_pos's
// backing store.
func (d *Device) Cursor() (int, int) {
	f := d.termLock.Lock()
	row, col := d.cursorRow, d.cursorCol
	d.termLock.Unlock(f)
	return row, col
}

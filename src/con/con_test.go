package con

import (
	"bytes"
	"testing"

	"defs"
	"mem"
)

// fakePager is a host-testable mem.Page_i backing the console's input
// ring without mem.Physmem's address-based Deref (see circbuf's own test
// fake and DESIGN.md).
type fakePager struct {
	pages map[mem.Pa_t]*mem.Pg_t
	refs  map[mem.Pa_t]int
	next  mem.Pa_t
}

func newFakePager() *fakePager {
	return &fakePager{pages: map[mem.Pa_t]*mem.Pg_t{}, refs: map[mem.Pa_t]int{}}
}

func (f *fakePager) Refpg_new() (*mem.Pg_t, mem.Pa_t, bool) {
	pg, pa, ok := f.Refpg_new_nozero()
	if ok {
		*pg = mem.Pg_t{}
	}
	return pg, pa, ok
}
func (f *fakePager) Refpg_new_nozero() (*mem.Pg_t, mem.Pa_t, bool) {
	f.next += mem.Pa_t(mem.PGSIZE)
	pa := f.next
	pg := &mem.Pg_t{}
	f.pages[pa] = pg
	return pg, pa, true
}
func (f *fakePager) Refcnt(pa mem.Pa_t) int      { return f.refs[pa] }
func (f *fakePager) Deref(pa mem.Pa_t) *mem.Pg_t { return f.pages[pa] }
func (f *fakePager) Refup(pa mem.Pa_t)           { f.refs[pa]++ }
func (f *fakePager) Refdown(pa mem.Pa_t) bool {
	f.refs[pa]--
	return f.refs[pa] == 0
}

type fakeWriter struct{ buf bytes.Buffer }

func (w *fakeWriter) WriteConsole(p []byte) (int, defs.Err_t) {
	n, _ := w.buf.Write(p)
	return n, 0
}

type fakeTicks uint64

func (f fakeTicks) Ticks() uint64 { return uint64(f) }

func TestWriteGoesToSink(t *testing.T) {
	w := &fakeWriter{}
	d := NewDevice(w, fakeTicks(0), newFakePager())

	n, err := d.Write([]byte("hello"))
	if err != 0 || n != 5 {
		t.Fatalf("Write = (%d, %v), want (5, 0)", n, err)
	}
	if w.buf.String() != "hello" {
		t.Fatalf("sink contents = %q, want %q", w.buf.String(), "hello")
	}
}

func TestGetcharDrainsPushedInput(t *testing.T) {
	d := NewDevice(&fakeWriter{}, fakeTicks(0), newFakePager())

	d.PushInput([]byte("ab"))
	if got := d.Getchar(); got != 'a' {
		t.Fatalf("Getchar() = %q, want 'a'", got)
	}
	if got := d.Getchar(); got != 'b' {
		t.Fatalf("Getchar() = %q, want 'b'", got)
	}
}

func TestReadLineStopsAtNewline(t *testing.T) {
	d := NewDevice(&fakeWriter{}, fakeTicks(0), newFakePager())
	d.PushInput([]byte("hi\nmore"))

	line := d.ReadLine(10)
	if string(line) != "hi\n" {
		t.Fatalf("ReadLine = %q, want %q", line, "hi\n")
	}
}

func TestReadLineStopsAtMax(t *testing.T) {
	d := NewDevice(&fakeWriter{}, fakeTicks(0), newFakePager())
	d.PushInput([]byte("abcdef"))

	line := d.ReadLine(3)
	if string(line) != "abc" {
		t.Fatalf("ReadLine(3) = %q, want %q", line, "abc")
	}
}

func TestTicksReflectsSource(t *testing.T) {
	d := NewDevice(&fakeWriter{}, fakeTicks(42), newFakePager())
	if got := d.Ticks(); got != 42 {
		t.Fatalf("Ticks() = %d, want 42", got)
	}
}

func TestTicksWithNoSourceReturnsZero(t *testing.T) {
	d := NewDevice(&fakeWriter{}, nil, newFakePager())
	if got := d.Ticks(); got != 0 {
		t.Fatalf("Ticks() with no TickSource = %d, want 0", got)
	}
}

func TestTermColorAndCursorBookkeeping(t *testing.T) {
	d := NewDevice(&fakeWriter{}, fakeTicks(0), newFakePager())

	d.SetTermColor(7)
	d.SetCursor(3, 5)

	row, col := d.Cursor()
	if row != 3 || col != 5 {
		t.Fatalf("Cursor() = (%d, %d), want (3, 5)", row, col)
	}
}

// Package klog is the kernel's console logger: a thin wrapper over an
// io.Writer so boot messages, the KILL diagnostic line, and panics all go
// through one formatting path, and so tests can assert on output instead
// of capturing stdout (the teacher calls fmt.Printf directly everywhere;
// this kernel needs one seam for the console device, added per
// SPEC_FULL.md's ambient-stack section).
package klog

import (
	"fmt"
	"io"
	"os"
)

// Out is where kernel log output goes; SetOutput replaces it, and nothing
// in the kernel's own boot path does. Defaults to os.Stderr so
// package-level tests that never call SetOutput still see something on a
// host build.
var Out io.Writer = os.Stderr

// SetOutput redirects kernel log output, returning the previous writer.
func SetOutput(w io.Writer) io.Writer {
	old := Out
	Out = w
	return old
}

// Printf formats and writes a log line.
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(Out, format, args...)
}

// Boot logs a one-line boot-sequence milestone, prefixed consistently so
// console output reads as a sequence of stages.
func Boot(format string, args ...interface{}) {
	fmt.Fprintf(Out, "boot: "+format+"\n", args...)
}

// Panic formats msg, writes it to the log, then panics with it -- the
// kernel's single chokepoint for an unrecoverable invariant violation
// (spec 7's error taxonomy is for syscall-return errors; a Panic is for
// conditions the kernel itself should never produce).
func Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(Out, "panic: %s\n", msg)
	panic(msg)
}

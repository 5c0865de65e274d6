package scall

import (
	"defs"
	"proc"
)

func init() {
	register(WaitInt, "wait", nil, waitHandler)
	register(SetStatusInt, "set_status", nil, setStatusHandler)
	register(TaskVanishInt, "task_vanish", nil, taskVanishHandler)
	register(VanishInt, "vanish", nil, vanishHandler)
}

// waitHandler implements wait: it blocks until some child becomes a
// zombie, reaps it, and writes its exit status through esi (a status-out
// integer pointer; 0 means the caller does not want it), original_source's
// syscall_wait.c.
func waitHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	t := me.Task
	pid, status, err := proc.Wait(t)
	if err != 0 {
		return 0, err
	}
	if esi != 0 {
		if werr := t.AS.Userwriten(esi, 4, status); werr != 0 {
			return 0, werr
		}
	}
	return int(pid), 0
}

// setStatusHandler records the status the caller's task reports to wait
// once it vanishes, spec 4.6's set_status(status).
func setStatusHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	proc.SetStatus(me.Task, int(int32(esi)))
	return 0, 0
}

// taskVanishHandler force-kills every thread in the caller's task. Never
// returns.
func taskVanishHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	proc.TaskVanish(me)
	panic("task_vanish returned")
}

// vanishHandler terminates only the calling thread. Never returns.
func vanishHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	proc.Vanish(me)
	panic("vanish returned")
}

package proc

import "defs"

// Wait blocks the calling task until some child becomes a zombie, then
// reaps the first one it finds, folding the child's byte accounting into
// the parent and tearing down the child's address space,
// original_source's syscall_wait.c. Returns the reaped child's pid and
// exit status.
func Wait(t *Task) (defs.Pid_t, int, defs.Err_t) {
	t.Lock()
	if len(t.Children) == 0 {
		t.Unlock()
		return defs.NoPid, 0, defs.TaskNotFound
	}
	t.Unlock()

	t.Vultures.Wait()

	t.Lock()
	var dead *Task
	for _, c := range t.Children {
		if c.Zombie {
			dead = c
			break
		}
	}
	t.Unlock()

	if dead == nil {
		return defs.NoPid, 0, defs.TaskNotFound
	}

	t.removeChild(dead)
	t.Acct.Add(&dead.Acct)

	dead.AS.Destroy()

	return dead.Pid, dead.Status, 0
}

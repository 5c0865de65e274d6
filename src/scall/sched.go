package scall

import (
	"arch"
	"defs"
	"klog"
	"proc"
	"sched"
)

func init() {
	register(YieldInt, "yield", nil, yieldHandler)
	register(GettidInt, "gettid", nil, gettidHandler)
	register(SleepInt, "sleep", nil, sleepHandler)
	register(GetTicksInt, "get_ticks", nil, getTicksHandler)
	register(HaltInt, "halt", nil, haltHandler)
	register(Cas2iRunflagInt, "cas2i_runflag", nil, cas2iRunflagHandler)
}

// yieldHandler implements yield(tid): esi is a target tid, or -1 for a
// pure yield. A named target must be a live thread of the caller's own
// task; the scheduler is not obliged to actually pick it (spec 4.6's
// "advisory hint").
func yieldHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	tid := int32(esi)
	if tid != -1 {
		t := me.Task
		found := false
		t.Lock()
		for _, th := range t.Threads {
			if int32(th.Tid) == tid {
				found = true
				break
			}
		}
		t.Unlock()
		if !found {
			return 0, defs.TaskNotFound
		}
	}
	sched.Yield()
	return 0, 0
}

func gettidHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	return int(proc.Gettid()), 0
}

// sleepHandler implements sleep(ticks): esi is the scalar tick count.
func sleepHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	sched.Sleep(me, int(int32(esi)))
	return 0, 0
}

func getTicksHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	return int(sched.Ticks()), 0
}

// haltHandler implements halt: prints one message and spins with
// interrupts disabled forever, original_source's syscall_halt.c. Never
// returns.
func haltHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	klog.Printf("halt: tid %d halted the machine\n", me.Tid)
	arch.SaveFlagsCLI()
	for {
		arch.Halt()
	}
}

// cas2iRunflagHandler implements cas2i_runflag: esi points to a 6-field
// packet { tid, oldp, ev1, nv1, ev2, nv2 }. It atomically reads the target
// thread's run_flag into *oldp, applies whichever of (ev1,nv1)/(ev2,nv2)
// matches, and reschedules keeping the caller runnable (spec 4.6,
// original_source's syscall_cas2irunflag.c). nv1 < 0 (a "stop" transition)
// is only permitted when the target is the calling thread.
func cas2iRunflagHandler(me *proc.Thread, esi uintptr) (int, defs.Err_t) {
	as := me.Task.AS

	tid, err := as.Userreadn(esi, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	oldp, err := as.Userreadn(esi+4, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	ev1, err := as.Userreadn(esi+8, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	nv1, err := as.Userreadn(esi+12, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	ev2, err := as.Userreadn(esi+16, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}
	nv2, err := as.Userreadn(esi+20, 4)
	if err != 0 {
		return 0, defs.BadSysParam
	}

	target := proc.ByTid(defs.Tid_t(tid))
	if target == nil {
		return 0, defs.TaskNotFound
	}
	if int32(nv1) < 0 && target != me {
		return 0, defs.BadSysParam
	}

	old := target.Cas2iRunflag(int32(ev1), int32(nv1), int32(ev2), int32(nv2))

	if werr := as.Userwriten(uintptr(oldp), 4, int(old)); werr != 0 {
		return 0, werr
	}

	sched.Schedule(true)
	return 0, 0
}

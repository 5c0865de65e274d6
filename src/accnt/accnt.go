package accnt

import "sync"
import "sync/atomic"

import "util"

/**
 * Accnt_t tracks how many bytes of limits.ALLOC_MEM_QUOTA a task has
 * reserved via new_pages. Adapted from biscuit's Accnt_t, which
 * accumulates user/system nanoseconds with the same mutex-guarded
 * accumulate-and-snapshot shape; a uniprocessor educational kernel has no
 * scheduler-visible CPU-time accounting to report, but new_pages/remove_pages
 * need exactly this shape for a different unit (spec 4.6, P8).
 */
type Accnt_t struct {
	/// Bytes currently reserved against the task's quota.
	Used int64
	/// Quota in bytes; new_pages fails with OutOfMemory once Used+n > Quota.
	Quota int64
	/// Protects concurrent access when reporting usage data.
	sync.Mutex
}

/// MkAccnt returns an Accnt_t with the given byte quota, typically
/// limits.ALLOC_MEM_QUOTA.
func MkAccnt(quota int64) Accnt_t {
	return Accnt_t{Quota: quota}
}

/// Reserve attempts to charge n bytes against the quota, returning false
/// if doing so would exceed it. Called by new_pages before installing any
/// VM range, so a task's address space and its accounting never disagree.
func (a *Accnt_t) Reserve(n int64) bool {
	a.Lock()
	defer a.Unlock()
	if a.Used+n > a.Quota {
		return false
	}
	a.Used += n
	return true
}

/// Unreserve releases n previously reserved bytes, called by remove_pages.
func (a *Accnt_t) Unreserve(n int64) {
	atomic.AddInt64(&a.Used, -n)
}

/// Add merges another task's accounting into this one, used when a parent
/// folds a reaped zombie child's usage into its own record (wait's zombie
/// cleanup).
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Used += n.Used
	a.Unlock()
}

/// Fetch returns a snapshot of bytes used and the quota, encoded for a
/// getrusage-style syscall reply.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.to_bytes()
	a.Unlock()
	return ru
}

func (a *Accnt_t) to_bytes() []uint8 {
	ret := make([]uint8, 16)
	util.Writen(ret, 8, 0, int(a.Used))
	util.Writen(ret, 8, 8, int(a.Quota))
	return ret
}

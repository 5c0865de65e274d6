package mem

// The kernel window: physical memory below limits.USER_MEM_START is
// identity-mapped into every address space's page directory, so the
// kernel can always dereference a frame it just allocated without a
// dedicated direct-map window (the teacher's 512GB Dmap slot has no
// 32-bit equivalent; see DESIGN.md). KernelWindowPDEs returns how many
// page-directory entries must be pre-filled with identity mappings to
// cover physical memory up to a given top address; cmd/kernel computes
// its own count from limits.USER_MEM_START rather than calling it.

// KernelWindowPDEs returns the number of 4MB-aligned page-directory slots
// needed to identity-map physical memory up to (and not including) top.
func KernelWindowPDEs(top Pa_t) int {
	const fourMB = 1 << 22
	n := (uint32(top) + fourMB - 1) / fourMB
	return int(n)
}

// InKernelWindow reports whether a physical address falls below the
// boundary that separates identity-mapped kernel memory from user memory.
func InKernelWindow(p Pa_t, userMemStart Pa_t) bool {
	return p < userMemStart
}

//go:build !386

package arch

// A software model of the 386 primitives, used only so the rest of the
// kernel's packages can be unit tested on the host architecture. It is
// never linked into the kernel image itself.

var fakeFlags uint32 = EFLAGS_IF
var fakeCR3 uint32
var fakeStack [512]uintptr
var fakeSP uintptr = uintptr(len(fakeStack)) * 4

func SaveFlagsCLI() uint32 {
	old := fakeFlags
	fakeFlags &^= EFLAGS_IF
	return old
}

func RestoreFlags(flags uint32) {
	fakeFlags = flags
}

func LoadCR3(p_pmap uint32) {
	fakeCR3 = p_pmap
}

func LoadIDT(base uint32, limit uint16) {}

func CurrentStackPointer() uintptr {
	return fakeSP
}

func ContextSwitch(oldsp *uintptr, newsp uintptr) {
	*oldsp = fakeSP
	fakeSP = newsp
}

func Halt() {}

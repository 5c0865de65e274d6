// Package ustr is a bounded, NUL-safe byte-string type used by the RAM
// disk's name lookup and the hashtable package's key hashing. Adapted from
// biscuit's path-string type of the same name; this kernel has no
// filesystem paths, so only the bounded-string core survives -- the
// dot/dotdot/absolute-path helpers that assumed '/'-separated components
// are dropped (see DESIGN.md).
package ustr

/// Ustr represents an immutable bounded string used by the kernel.
type Ustr []uint8

/// Eq compares two Ustr values for equality.
///
/// \param s other Ustr to compare
/// \return true when both strings contain identical bytes.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

/// MkUstr creates an empty Ustr value.
/// \return newly created Ustr.
func MkUstr() Ustr {
	return Ustr{}
}

/// MkUstrSlice converts a NUL-terminated byte slice to a Ustr.
///
/// \param buf source byte slice
/// \return slice truncated at the first NUL byte.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == uint8(0) {
			return buf[:i]
		}
	}
	return buf
}

/// Extend appends a byte separator and p to the current Ustr.
///
/// \param sep separator byte
/// \param p value to append
/// \return new Ustr with p appended after sep.
func (us Ustr) Extend(sep uint8, p Ustr) Ustr {
	tmp := make(Ustr, len(us))
	copy(tmp, us)
	r := append(tmp, sep)
	return append(r, p...)
}

/// ExtendStr appends sep and the string p to the current Ustr.
/// \param sep separator byte
/// \param p component as string
/// \return new Ustr with p appended.
func (us Ustr) ExtendStr(sep uint8, p string) Ustr {
	return us.Extend(sep, Ustr(p))
}

/// IndexByte returns the index of b in the string or -1 if not present.
/// \param b byte to search for
/// \return index of b or -1.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

/// String converts the Ustr to a Go string.
/// \return string representation of the Ustr.
func (us Ustr) String() string {
	return string(us)
}

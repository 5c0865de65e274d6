// Package ramdisk is the kernel's only storage device: a fixed,
// read-only {name, bytes} table built once at boot from the boot loader's
// handoff image and consulted by ls and by the ELF loader (spec 6).
// Adapted from biscuit's hashtable package for the name-keyed lookup --
// biscuit itself boots from an AHCI disk and has no ramdisk concept, but
// the lookup-by-name shape is identical, and ustr gives this package a
// bounded NUL-safe string type for its names.
package ramdisk

import (
	"defs"
	"hashtable"
	"ustr"
)

// entry_t is one file's extent within the boot image.
type entry_t struct {
	data []uint8
}

// Ramdisk_t is the whole boot image's file table, built once and never
// mutated afterward -- spec 6 makes no provision for writes.
type Ramdisk_t struct {
	files *hashtable.Hashtable_t
}

// buckets sizes the hash table for a handful of files; an educational
// kernel's boot image holds a shell and a few test programs, not a real
// filesystem's worth of entries.
const buckets = 64

// New builds an empty ramdisk ready for Install calls during boot parsing.
func New() *Ramdisk_t {
	return &Ramdisk_t{files: hashtable.MkHash(buckets)}
}

// Install records name -> data, called once per file while the boot
// loader's image descriptor is being parsed.
func (rd *Ramdisk_t) Install(name string, data []uint8) {
	key := ustr.MkUstrSlice([]byte(name))
	rd.files.Set(key, entry_t{data: data})
}

// Lookup returns the named file's bytes by exact name match, or
// FileNotFound. Consumed by ls, exec, and the ELF loader.
func (rd *Ramdisk_t) Lookup(name string) ([]uint8, defs.Err_t) {
	key := ustr.MkUstrSlice([]byte(name))
	v, ok := rd.files.Get(key)
	if !ok {
		return nil, defs.FileNotFound
	}
	return v.(entry_t).data, 0
}

// Names returns every installed file name, ls's backing data.
func (rd *Ramdisk_t) Names() []string {
	pairs := rd.files.Elems()
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Key.(ustr.Ustr).String())
	}
	return out
}

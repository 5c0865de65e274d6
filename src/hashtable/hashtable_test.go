package hashtable

import (
	"testing"

	"ustr"
)

func TestSetGetDel(t *testing.T) {
	ht := MkHash(8)

	if _, inserted := ht.Set("init", 1); !inserted {
		t.Fatal("expected first Set of a new key to insert")
	}
	if _, inserted := ht.Set("init", 2); inserted {
		t.Fatal("expected Set of an existing key to report no insertion")
	}

	v, ok := ht.Get("init")
	if !ok || v.(int) != 1 {
		t.Fatalf("Get(\"init\") = (%v, %v), want (1, true)", v, ok)
	}

	ht.Del("init")
	if _, ok := ht.Get("init"); ok {
		t.Fatal("expected Get after Del to report not found")
	}
}

func TestDelOfMissingKeyPanics(t *testing.T) {
	ht := MkHash(8)
	defer func() {
		if recover() == nil {
			t.Fatal("expected Del of a missing key to panic")
		}
	}()
	ht.Del("nope")
}

func TestSizeAndElems(t *testing.T) {
	ht := MkHash(4)
	names := []string{"init", "idle", "shell", "cat"}
	for i, n := range names {
		ht.Set(n, i)
	}

	if got := ht.Size(); got != len(names) {
		t.Fatalf("Size() = %d, want %d", got, len(names))
	}

	pairs := ht.Elems()
	if len(pairs) != len(names) {
		t.Fatalf("Elems() returned %d pairs, want %d", len(pairs), len(names))
	}
}

func TestUstrKeys(t *testing.T) {
	ht := MkHash(8)
	name := ustr.Ustr("init")

	ht.Set(name, 42)
	v, ok := ht.Get(ustr.Ustr("init"))
	if !ok || v.(int) != 42 {
		t.Fatalf("Get(ustr key) = (%v, %v), want (42, true)", v, ok)
	}
}

func TestIterStopsOnTrue(t *testing.T) {
	ht := MkHash(8)
	ht.Set("a", 1)
	ht.Set("b", 2)
	ht.Set("c", 3)

	visited := 0
	stopped := ht.Iter(func(k, v interface{}) bool {
		visited++
		return visited == 1
	})
	if !stopped {
		t.Fatal("expected Iter to report a stop")
	}
	if visited != 1 {
		t.Fatalf("Iter visited %d elements before stopping, want 1", visited)
	}
}

package memtable

import "testing"

func TestPutGet(t *testing.T) {
	mt := New(1000)
	if flushed := mt.Put("a", []byte("1")); flushed != nil {
		t.Fatalf("unexpected flush: %v", flushed)
	}

	v, ok := mt.Get("a")
	if !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v; want 1, true", v, ok)
	}

	if _, ok := mt.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

func TestOverwrite(t *testing.T) {
	mt := New(1000)
	mt.Put("a", []byte("1"))
	mt.Put("a", []byte("2"))

	v, _ := mt.Get("a")
	if string(v) != "2" {
		t.Fatalf("Get(a) = %q, want 2", v)
	}
	if mt.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (overwrite must not grow the table)", mt.Size())
	}
}

// TestFlushTrigger covers boundary scenario 1 from the spec: with M_MAX=3,
// three distinct puts leave the memtable at size 3 with no flush; the fourth
// put empties it and returns all four entries in key order.
func TestFlushTrigger(t *testing.T) {
	mt := New(3)

	for _, k := range []string{"a", "b", "c"} {
		if flushed := mt.Put(k, []byte(k)); flushed != nil {
			t.Fatalf("unexpected flush after %d puts", len(flushed))
		}
	}
	if mt.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", mt.Size())
	}

	flushed := mt.Put("d", []byte("d"))
	if flushed == nil {
		t.Fatalf("expected a flush on the 4th put")
	}
	if len(flushed) != 4 {
		t.Fatalf("expected 4 flushed entries, got %d", len(flushed))
	}
	if mt.Size() != 0 {
		t.Fatalf("expected memtable to be empty after flush, got size %d", mt.Size())
	}

	want := []string{"a", "b", "c", "d"}
	for i, e := range flushed {
		if e.Key != want[i] {
			t.Fatalf("flushed[%d].Key = %q, want %q (flush must preserve key order)", i, e.Key, want[i])
		}
	}
}

func TestEntriesOrder(t *testing.T) {
	mt := New(1000)
	for _, k := range []string{"c", "a", "b"} {
		mt.Put(k, []byte(k))
	}

	entries := mt.Entries()
	want := []string{"a", "b", "c"}
	for i, e := range entries {
		if e.Key != want[i] {
			t.Fatalf("entries[%d].Key = %q, want %q", i, e.Key, want[i])
		}
	}
}

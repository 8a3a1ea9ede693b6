package inflight

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kvlight/kvlighttasks/internal/waiter"
)

func TestTable_StartLookupRemove(t *testing.T) {
	t.Parallel()

	tbl := New[string, int]()

	if _, ok := tbl.Lookup("k"); ok {
		t.Fatal("empty table must not find k")
	}

	rec := tbl.Start("k", uuid.New())
	rec.Waiters.Attach(func(waiter.Result[int]) {})

	got, ok := tbl.Lookup("k")
	if !ok || got != rec {
		t.Fatal("lookup must return the same record that was started")
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d want 1", tbl.Len())
	}

	tbl.Remove("k")
	if _, ok := tbl.Lookup("k"); ok {
		t.Fatal("record must be gone after Remove")
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d want 0", tbl.Len())
	}
}

func TestTable_MultipleKeysIndependent(t *testing.T) {
	t.Parallel()

	tbl := New[string, string]()
	tbl.Start("a", uuid.New())
	tbl.Start("b", uuid.New())

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d want 2", tbl.Len())
	}
	tbl.Remove("a")
	if _, ok := tbl.Lookup("b"); !ok {
		t.Fatal("removing a must not affect b")
	}
}

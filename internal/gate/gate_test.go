package gate

import (
	"testing"
)

func TestGate_FIFO_Order(t *testing.T) {
	t.Parallel()

	g := New[string](1, FIFO)
	g.Enqueue("a")
	g.Enqueue("b")
	g.Enqueue("c")

	k, ok := g.DrainOne()
	if !ok || k != "a" {
		t.Fatalf("first drain = %q,%v want a,true", k, ok)
	}
	if g.ActiveCount() != 1 {
		t.Fatalf("active = %d want 1", g.ActiveCount())
	}
	g.Release()
	if g.ActiveCount() != 0 {
		t.Fatalf("active after release = %d want 0", g.ActiveCount())
	}

	k, ok = g.DrainOne()
	if !ok || k != "b" {
		t.Fatalf("second drain = %q,%v want b,true", k, ok)
	}
}

func TestGate_LIFO_Order(t *testing.T) {
	t.Parallel()

	g := New[string](1, LIFO)
	g.Enqueue("a")
	g.Enqueue("b")
	g.Enqueue("c")

	k, ok := g.DrainOne()
	if !ok || k != "c" {
		t.Fatalf("first drain = %q,%v want c,true", k, ok)
	}
}

func TestGate_BoundsActiveCount(t *testing.T) {
	t.Parallel()

	g := New[int](2, FIFO)
	for i := 0; i < 5; i++ {
		g.Enqueue(i)
	}

	_, ok1 := g.DrainOne()
	_, ok2 := g.DrainOne()
	_, ok3 := g.DrainOne()
	if !ok1 || !ok2 {
		t.Fatal("first two drains must succeed under bound 2")
	}
	if ok3 {
		t.Fatal("third drain must fail: bound exhausted")
	}
	if g.ActiveCount() != 2 {
		t.Fatalf("active = %d want 2", g.ActiveCount())
	}
	if g.Pending() != 3 {
		t.Fatalf("pending = %d want 3", g.Pending())
	}
}

func TestGate_DrainBatch_RespectsMaxAndEmptiesQueue(t *testing.T) {
	t.Parallel()

	g := New[int](4, FIFO)
	for i := 1; i <= 8; i++ {
		g.Enqueue(i)
	}

	var sizes []int
	for {
		batch, ok := g.DrainBatch(3)
		if !ok {
			break
		}
		sizes = append(sizes, len(batch))
		g.Release()
	}

	want := []int{3, 3, 2}
	if len(sizes) != len(want) {
		t.Fatalf("batch sizes = %v want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes = %v want %v", sizes, want)
		}
	}
}

func TestGate_DrainOne_EmptyQueueReleasesSlot(t *testing.T) {
	t.Parallel()

	g := New[string](1, FIFO)
	if _, ok := g.DrainOne(); ok {
		t.Fatal("drain on empty queue must fail")
	}
	if g.ActiveCount() != 0 {
		t.Fatalf("active = %d want 0 (slot must be released)", g.ActiveCount())
	}
}

package waiter

import "testing"

func TestRegistry_AttachmentOrderPreserved(t *testing.T) {
	t.Parallel()

	var r Registry[int]
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		r.Attach(func(Result[int]) { order = append(order, i) })
	}

	ws := r.Take()
	if len(ws) != 5 {
		t.Fatalf("len(ws) = %d, want 5", len(ws))
	}
	Deliver(ws, Result[int]{Value: 42})

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want attachment order", order)
		}
	}
}

func TestRegistry_TakeIsOneShot(t *testing.T) {
	t.Parallel()

	var r Registry[string]
	calls := 0
	r.Attach(func(Result[string]) { calls++ })

	first := r.Take()
	Deliver(first, Result[string]{Value: "a"})
	second := r.Take()
	if second != nil {
		t.Fatal("second Take must return nil")
	}
	Deliver(second, Result[string]{Value: "b"})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no redelivery after Take)", calls)
	}
}

func TestRegistry_LenTracksAttachments(t *testing.T) {
	t.Parallel()

	var r Registry[int]
	if r.Len() != 0 {
		t.Fatal("empty registry must report Len 0")
	}
	r.Attach(func(Result[int]) {})
	r.Attach(func(Result[int]) {})
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}

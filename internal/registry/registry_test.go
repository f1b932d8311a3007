package registry

import "testing"

func TestAddPendingThenActivateAll(t *testing.T) {
	r := New()
	r.AddPending(&Entry{Label: "a"})
	r.AddPending(&Entry{Label: "b"})

	if !r.HasPending() {
		t.Fatal("HasPending() = false after AddPending")
	}
	if got := len(r.Pending()); got != 2 {
		t.Fatalf("len(Pending()) = %d, want 2", got)
	}

	next := uint16(0)
	moved := r.ActivateAll(func() uint16 {
		id := next
		next += 2
		return id
	})

	if len(moved) != 2 {
		t.Fatalf("len(ActivateAll()) = %d, want 2", len(moved))
	}
	if r.HasPending() {
		t.Error("HasPending() = true after ActivateAll")
	}
	if got := len(r.Active()); got != 2 {
		t.Fatalf("len(Active()) = %d, want 2", got)
	}

	e, ok := r.Get(0)
	if !ok || e.Label != "a" || e.State != StateOpen {
		t.Errorf("Get(0) = %+v, %v", e, ok)
	}
	e, ok = r.Get(2)
	if !ok || e.Label != "b" {
		t.Errorf("Get(2) = %+v, %v", e, ok)
	}
}

func TestAddPendingNegotiatedSkipsQueue(t *testing.T) {
	r := New()
	r.AddPending(&Entry{Label: "negotiated", StreamID: 4, Negotiated: true})

	if r.HasPending() {
		t.Error("HasPending() = true for a negotiated channel")
	}
	e, ok := r.Get(4)
	if !ok || e.State != StateOpen {
		t.Errorf("Get(4) = %+v, %v, want active+open", e, ok)
	}
}

func TestAddActiveAndRemove(t *testing.T) {
	r := New()
	r.AddActive(&Entry{StreamID: 7, Label: "remote"})

	if _, ok := r.Get(7); !ok {
		t.Fatal("Get(7) missing after AddActive")
	}

	if err := r.SetState(7, StateClosing); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	e, _ := r.Get(7)
	if e.State != StateClosing {
		t.Errorf("State = %v, want closing", e.State)
	}

	r.Remove(7)
	if _, ok := r.Get(7); ok {
		t.Error("Get(7) still present after Remove")
	}
}

func TestSetStateUnknownStream(t *testing.T) {
	r := New()
	if err := r.SetState(99, StateOpen); err == nil {
		t.Error("SetState on unknown stream: expected error")
	}
}

package slots

import (
	"errors"
	"testing"
)

func fourSlots(t *testing.T) *Registry {
	t.Helper()

	r, err := NewRegistry([]Binding{
		{Name: "Alpha"},
		{Name: "Bravo", Secret: "b-pass"},
		{Name: "Charlie"},
		{Name: "Delta", Secret: "d-pass"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	return r
}

func TestNewRegistryRejectsEmpty(t *testing.T) {
	if _, err := NewRegistry(nil); !errors.Is(err, ErrNoSlots) {
		t.Fatalf("expected ErrNoSlots, got %v", err)
	}

	if _, err := NewRegistry([]Binding{{Name: "ok"}, {Name: "  "}}); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestRegistryIndexesDense(t *testing.T) {
	r := fourSlots(t)

	if r.Count() != 4 {
		t.Fatalf("expected 4 slots, got %d", r.Count())
	}

	for i, s := range r.All() {
		if s.Index != i {
			t.Fatalf("slot at position %d has index %d", i, s.Index)
		}
	}

	s, err := r.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Bravo" || !s.Protected() {
		t.Fatalf("unexpected slot 1: %+v", s)
	}
}

func TestRegistryGetOutOfRange(t *testing.T) {
	r := fourSlots(t)

	for _, idx := range []int{-1, 4, 100} {
		if _, err := r.Get(idx); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("Get(%d): expected ErrInvalidSlot, got %v", idx, err)
		}
	}
}

func TestRegistryAllIsCopy(t *testing.T) {
	r := fourSlots(t)

	all := r.All()
	all[0].Name = "changed"

	s, _ := r.Get(0)
	if s.Name != "Alpha" {
		t.Fatalf("registry mutated through All(): %q", s.Name)
	}
}

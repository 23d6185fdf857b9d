/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package slots arbitrates claims on a fixed board of numbered slots.
//
// Every slot is bound to a hidden name and, optionally, a passcode. Each
// requester identity may hold at most one slot and each slot may be held by
// at most one identity. The bound name is only ever revealed to the identity
// holding the slot.
package slots

import (
	"fmt"
	"strings"
)

// Binding is the configured content of one slot.
type Binding struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

// Slot is immutable once the registry is built.
type Slot struct {
	Index  int
	Name   string
	Secret string
}

func (s Slot) Protected() bool {
	return s.Secret != ""
}

// Registry holds the board's slots in index order. It never changes after
// construction, so it is safe for concurrent use without locking.
type Registry struct {
	slots []Slot
}

func NewRegistry(bindings []Binding) (*Registry, error) {
	if len(bindings) == 0 {
		return nil, ErrNoSlots
	}

	r := &Registry{
		slots: make([]Slot, 0, len(bindings)),
	}

	for i, b := range bindings {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return nil, fmt.Errorf("slot %d: empty name", i)
		}

		r.slots = append(r.slots, Slot{
			Index:  i,
			Name:   name,
			Secret: b.Secret,
		})
	}

	return r, nil
}

func (r *Registry) Get(index int) (Slot, error) {
	if index < 0 || index >= len(r.slots) {
		return Slot{}, fmt.Errorf("%w: %d (board has %d)", ErrInvalidSlot, index, len(r.slots))
	}

	return r.slots[index], nil
}

func (r *Registry) Count() int {
	return len(r.slots)
}

func (r *Registry) All() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)

	return out
}

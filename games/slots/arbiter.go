/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"
)

// Outcome is the result of a successful claim attempt. Name is the slot's
// bound name and must only be sent back to the claiming identity.
type Outcome struct {
	Claim Claim
	Name  string
	Fresh bool
}

// Arbiter decides claim attempts against a registry and a ledger. It is the
// only writer of the ledger.
type Arbiter struct {
	registry *Registry
	ledger   *Ledger
	now      func() time.Time

	mu          sync.RWMutex
	subscribers []func(Claim)
}

func NewArbiter(registry *Registry, ledger *Ledger) *Arbiter {
	return &Arbiter{
		registry: registry,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Subscribe registers fn to be called with every newly recorded claim, after
// the ledger lock has been released. fn must not block.
func (a *Arbiter) Subscribe(fn func(Claim)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.subscribers = append(a.subscribers, fn)
}

// AttemptClaim tries to give slot to id.
//
// Claiming a slot id already holds succeeds again without touching the
// ledger. Losing the slot to someone else yields ErrSlotTaken; trying to take
// a second slot yields a *ConflictError. A wrong passcode yields
// ErrWrongSecret and changes nothing.
func (a *Arbiter) AttemptClaim(id Identity, slot int, secret string) (Outcome, error) {
	if id == "" {
		return Outcome{}, ErrEmptyIdentity
	}

	s, err := a.registry.Get(slot)
	if err != nil {
		return Outcome{}, err
	}

	if s.Protected() && subtle.ConstantTimeCompare([]byte(secret), []byte(s.Secret)) != 1 {
		return Outcome{}, fmt.Errorf("%w for slot %d", ErrWrongSecret, slot)
	}

	c, fresh, err := a.decide(id, slot)
	if err != nil {
		return Outcome{}, err
	}

	if fresh {
		a.notify(c)
	}

	return Outcome{
		Claim: c,
		Name:  s.Name,
		Fresh: fresh,
	}, nil
}

// decide runs the check-then-record sequence as one critical section.
func (a *Arbiter) decide(id Identity, slot int) (Claim, bool, error) {
	l := a.ledger

	l.mu.Lock()
	defer l.mu.Unlock()

	// Slot ownership is checked first so that a repeated claim of one's own
	// slot is never mistaken for a second claim.
	if holder, ok := l.holderOfLocked(slot); ok {
		if holder.Owner == id {
			return holder, false, nil
		}

		return Claim{}, false, fmt.Errorf("%w: slot %d", ErrSlotTaken, slot)
	}

	if existing, ok := l.claimForLocked(id); ok {
		return Claim{}, false, &ConflictError{Existing: existing.Slot}
	}

	c, err := l.recordLocked(id, slot, a.now())
	if err != nil {
		return Claim{}, false, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	return c, true, nil
}

func (a *Arbiter) notify(c Claim) {
	a.mu.RLock()
	subs := a.subscribers
	a.mu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}

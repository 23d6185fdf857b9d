/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Identity is the opaque key a requester is known by.
type Identity string

// Claim records that Owner holds Slot. Claims are never modified or removed.
type Claim struct {
	Slot      int
	Owner     Identity
	ClaimedAt time.Time
	Seq       uint64
}

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	Version uint64
	Holders map[int]Claim
}

// Ledger is the authoritative record of claims, indexed both by owner and by
// slot. The two indexes always hold the same set of claims.
type Ledger struct {
	mu sync.RWMutex

	byOwner map[Identity]Claim
	bySlot  map[int]Claim

	seq     uint64
	version uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		byOwner: make(map[Identity]Claim),
		bySlot:  make(map[int]Claim),
	}
}

func (l *Ledger) ClaimFor(id Identity) (Claim, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.claimForLocked(id)
}

func (l *Ledger) HolderOf(slot int) (Claim, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.holderOfLocked(slot)
}

// Record inserts a new claim. Callers that need to decide based on current
// state before inserting should hold the lock themselves and use recordLocked.
func (l *Ledger) Record(id Identity, slot int, at time.Time) (Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.recordLocked(id, slot, at)
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Snapshot{
		Version: l.version,
		Holders: maps.Clone(l.bySlot),
	}
}

// Claims returns every claim in the order it was recorded.
func (l *Ledger) Claims() []Claim {
	l.mu.RLock()
	claims := slices.Collect(maps.Values(l.bySlot))
	l.mu.RUnlock()

	slices.SortFunc(claims, func(a, b Claim) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})

	return claims
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.bySlot)
}

// Version increases by one with every recorded claim.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.version
}

func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.verifyLocked()
}

func (l *Ledger) claimForLocked(id Identity) (Claim, bool) {
	c, ok := l.byOwner[id]
	return c, ok
}

func (l *Ledger) holderOfLocked(slot int) (Claim, bool) {
	c, ok := l.bySlot[slot]
	return c, ok
}

// recordLocked assumes l.mu is held for writing. A claim that fails
// verification is rolled back before the error is returned.
func (l *Ledger) recordLocked(id Identity, slot int, at time.Time) (Claim, error) {
	if _, ok := l.bySlot[slot]; ok {
		return Claim{}, fmt.Errorf("%w: %d", ErrAlreadyClaimedSlot, slot)
	}
	if _, ok := l.byOwner[id]; ok {
		return Claim{}, fmt.Errorf("%w: %q", ErrAlreadyClaimedIdentity, id)
	}

	l.seq++
	c := Claim{
		Slot:      slot,
		Owner:     id,
		ClaimedAt: at,
		Seq:       l.seq,
	}

	l.bySlot[slot] = c
	l.byOwner[id] = c
	l.version++

	if err := l.verifyLocked(); err != nil {
		delete(l.bySlot, slot)
		delete(l.byOwner, id)
		l.seq--
		l.version--

		return Claim{}, err
	}

	return c, nil
}

func (l *Ledger) verifyLocked() error {
	if len(l.bySlot) != len(l.byOwner) {
		return fmt.Errorf("%w: %d slots, %d owners", ErrInconsistentLedger, len(l.bySlot), len(l.byOwner))
	}

	for slot, c := range l.bySlot {
		if c.Slot != slot {
			return fmt.Errorf("%w: slot %d indexes claim for slot %d", ErrInconsistentLedger, slot, c.Slot)
		}
		if other, ok := l.byOwner[c.Owner]; !ok || other != c {
			return fmt.Errorf("%w: slot %d", ErrInconsistentLedger, slot)
		}
	}

	return nil
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrWrongSecret      = errors.New("wrong passcode")
	ErrSlotTaken        = errors.New("slot already taken")
	ErrConflictingClaim = errors.New("identity already holds a different slot")
	ErrEmptyIdentity    = errors.New("empty identity")
	ErrNoSlots          = errors.New("no slots configured")

	// Ledger guards. The arbiter checks these conditions before recording, so
	// seeing one of them means the ledger was mutated outside its lock.
	ErrAlreadyClaimedSlot     = errors.New("ledger: slot already recorded")
	ErrAlreadyClaimedIdentity = errors.New("ledger: identity already recorded")
	ErrInconsistentLedger     = errors.New("ledger: owner and slot maps disagree")

	ErrInternal = errors.New("internal consistency error")
)

// ConflictError is returned when an identity tries to claim a second slot.
// It matches ErrConflictingClaim.
type ConflictError struct {
	Existing int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v (holds slot %d)", ErrConflictingClaim, e.Existing)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictingClaim
}

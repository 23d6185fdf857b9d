package slots

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func newBoard(t *testing.T) (*Registry, *Ledger, *Arbiter) {
	t.Helper()

	r := fourSlots(t)
	l := NewLedger()

	return r, l, NewArbiter(r, l)
}

func TestAttemptClaimScenario(t *testing.T) {
	_, l, a := newBoard(t)

	out, err := a.AttemptClaim("A", 1, "b-pass")
	if err != nil {
		t.Fatalf("A claims 1: %v", err)
	}
	if !out.Fresh || out.Name != "Bravo" || out.Claim.Slot != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	again, err := a.AttemptClaim("A", 1, "b-pass")
	if err != nil {
		t.Fatalf("A repeats 1: %v", err)
	}
	if again.Fresh || again.Name != "Bravo" || again.Claim != out.Claim {
		t.Fatalf("repeat claim differs: %+v vs %+v", again, out)
	}
	if l.Version() != 1 {
		t.Fatalf("repeat claim changed ledger, version %d", l.Version())
	}

	_, err = a.AttemptClaim("A", 2, "")
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Existing != 1 {
		t.Fatalf("A claims 2: expected ConflictError{1}, got %v", err)
	}
	if !errors.Is(err, ErrConflictingClaim) || errors.Is(err, ErrSlotTaken) {
		t.Fatalf("conflict not distinguishable: %v", err)
	}

	_, err = a.AttemptClaim("B", 1, "b-pass")
	if !errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrConflictingClaim) {
		t.Fatalf("B claims 1: expected ErrSlotTaken, got %v", err)
	}

	if err := l.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestAttemptClaimRejections(t *testing.T) {
	tests := []struct {
		name   string
		id     Identity
		slot   int
		secret string
		want   error
	}{
		{"empty identity", "", 0, "", ErrEmptyIdentity},
		{"negative slot", "A", -1, "", ErrInvalidSlot},
		{"slot past end", "A", 4, "", ErrInvalidSlot},
		{"missing passcode", "A", 3, "", ErrWrongSecret},
		{"wrong passcode", "A", 3, "d-pas", ErrWrongSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, l, a := newBoard(t)

			if _, err := a.AttemptClaim(tt.id, tt.slot, tt.secret); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if l.Len() != 0 {
				t.Fatalf("rejected claim changed ledger")
			}
		})
	}
}

func TestWrongSecretIsRetryable(t *testing.T) {
	_, _, a := newBoard(t)

	if _, err := a.AttemptClaim("A", 3, "nope"); !errors.Is(err, ErrWrongSecret) {
		t.Fatalf("expected ErrWrongSecret, got %v", err)
	}

	out, err := a.AttemptClaim("A", 3, "d-pass")
	if err != nil || out.Name != "Delta" {
		t.Fatalf("retry with right passcode: %+v %v", out, err)
	}
}

func TestUnprotectedSlotIgnoresSecret(t *testing.T) {
	_, _, a := newBoard(t)

	if _, err := a.AttemptClaim("A", 0, "anything"); err != nil {
		t.Fatal(err)
	}
}

func TestTakenSlotCheckedBeforeOwnClaim(t *testing.T) {
	_, _, a := newBoard(t)

	if _, err := a.AttemptClaim("A", 0, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AttemptClaim("B", 2, ""); err != nil {
		t.Fatal(err)
	}

	// A already holds 0, but slot 2 belongs to B: losing the slot wins.
	if _, err := a.AttemptClaim("A", 2, ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestConcurrentClaimsSameSlot(t *testing.T) {
	for round := range 50 {
		_, l, a := newBoard(t)

		const contenders = 16
		var (
			wg    sync.WaitGroup
			fresh atomic.Int32
			taken atomic.Int32
		)

		for i := range contenders {
			wg.Go(func() {
				_, err := a.AttemptClaim(Identity(fmt.Sprintf("id-%d", i)), 2, "")
				switch {
				case err == nil:
					fresh.Add(1)
				case errors.Is(err, ErrSlotTaken):
					taken.Add(1)
				default:
					t.Errorf("round %d: unexpected error %v", round, err)
				}
			})
		}
		wg.Wait()

		if fresh.Load() != 1 || taken.Load() != contenders-1 {
			t.Fatalf("round %d: %d winners, %d losers", round, fresh.Load(), taken.Load())
		}
		if err := l.Verify(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}

func TestConcurrentClaimsSameIdentity(t *testing.T) {
	r, l, a := newBoard(t)

	var (
		wg       sync.WaitGroup
		fresh    atomic.Int32
		conflict atomic.Int32
	)

	for slot := range r.Count() {
		wg.Go(func() {
			secret := ""
			if s, _ := r.Get(slot); s.Protected() {
				secret = s.Secret
			}

			_, err := a.AttemptClaim("A", slot, secret)
			switch {
			case err == nil:
				fresh.Add(1)
			case errors.Is(err, ErrConflictingClaim):
				conflict.Add(1)
			default:
				t.Errorf("slot %d: unexpected error %v", slot, err)
			}
		})
	}
	wg.Wait()

	if fresh.Load() != 1 || conflict.Load() != int32(r.Count()-1) {
		t.Fatalf("%d successes, %d conflicts", fresh.Load(), conflict.Load())
	}
	if l.Len() != 1 {
		t.Fatalf("identity holds %d claims", l.Len())
	}
}

func TestSubscribersSeeFreshClaimsOnly(t *testing.T) {
	_, _, a := newBoard(t)

	var seen []Claim
	a.Subscribe(func(c Claim) {
		seen = append(seen, c)
	})

	_, _ = a.AttemptClaim("A", 0, "")
	_, _ = a.AttemptClaim("A", 0, "")
	_, _ = a.AttemptClaim("B", 0, "")
	_, _ = a.AttemptClaim("B", 2, "")

	if len(seen) != 2 || seen[0].Owner != "A" || seen[1].Owner != "B" {
		t.Fatalf("unexpected notifications %+v", seen)
	}
}

func TestLedgerGuardSurfacesAsInternal(t *testing.T) {
	_, l, a := newBoard(t)

	// Break the owner index behind the arbiter's back.
	l.mu.Lock()
	l.byOwner["A"] = Claim{Slot: 9, Owner: "A"}
	l.mu.Unlock()

	_, err := a.AttemptClaim("B", 0, "")
	if !errors.Is(err, ErrInternal) || !errors.Is(err, ErrInconsistentLedger) {
		t.Fatalf("expected internal inconsistency, got %v", err)
	}

	if c, ok := l.HolderOf(0); ok {
		t.Fatalf("failed claim left behind %+v", c)
	}
	if _, ok := l.ClaimFor("B"); ok {
		t.Fatal("failed claim left B indexed as an owner")
	}
	if l.Version() != 0 {
		t.Fatalf("failed claim bumped version to %d", l.Version())
	}

	// Retrying hits the same guard rather than succeeding as a repeat.
	out, err := a.AttemptClaim("B", 0, "")
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("retry returned %+v, %v", out, err)
	}
}

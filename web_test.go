package main

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/Seednode/slotpick/games/slots"
)

func TestLogClaimsListsClaimsInOrder(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	cfg := testConfig()
	cfg.verbose = true

	b, err := newBoard(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, pick := range []struct {
		id   string
		slot int
	}{{"t:b", 3}, {"t:a", 0}} {
		if _, err := b.arbiter.AttemptClaim(slots.Identity(pick.id), pick.slot, ""); err != nil {
			t.Fatal(err)
		}
	}

	logClaims(cfg, b)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %q", lines)
	}
	if !strings.Contains(lines[0], "Claim 1 held slot #4 for t:b") ||
		!strings.Contains(lines[1], "Claim 2 held slot #1 for t:a") ||
		!strings.Contains(lines[2], "2 of 4 slots claimed") {
		t.Fatalf("unexpected summary %q", lines)
	}
}

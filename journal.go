/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	_ "github.com/mattn/go-sqlite3"
)

const journalBuffer = 64

// journalEntry is one row of the audit journal.
type journalEntry struct {
	Seq       uint64
	Slot      int
	Owner     string
	ClaimedAt time.Time
	Boot      string
}

// Journal appends every claim to a sqlite database. It is write-only from
// the server's point of view: claims are never loaded back on start.
type Journal struct {
	db   *sql.DB
	boot string

	mu      sync.Mutex
	closed  bool
	queue   chan slots.Claim
	done    chan struct{}
	running bool
}

func openJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and serialises writes
	db.SetMaxOpenConns(1)

	j := &Journal{
		db:    db,
		boot:  time.Now().UTC().Format(time.RFC3339Nano),
		queue: make(chan slots.Claim, journalBuffer),
		done:  make(chan struct{}),
	}

	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		boot TEXT NOT NULL,
		seq INTEGER NOT NULL,
		slot INTEGER NOT NULL,
		owner TEXT NOT NULL,
		claimed_at TEXT NOT NULL,
		UNIQUE (boot, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_claims_boot ON claims(boot);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return nil
}

func (j *Journal) insert(ctx context.Context, c slots.Claim) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO claims (boot, seq, slot, owner, claimed_at) VALUES (?, ?, ?, ?, ?)",
		j.boot, c.Seq, c.Slot, string(c.Owner), c.ClaimedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to journal claim %d: %w", c.Seq, err)
	}

	return nil
}

// enqueue hands c to the writer without blocking the caller. Claims arriving
// after Close are dropped.
func (j *Journal) enqueue(c slots.Claim) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		errorf("journal closed, dropping claim %d on slot %d", c.Seq, c.Slot)
		return
	}

	select {
	case j.queue <- c:
	default:
		errorf("journal queue full, dropping claim %d on slot %d", c.Seq, c.Slot)
	}
}

// start launches the writer, which runs until Close.
func (j *Journal) start(cfg *Config, errs chan<- error) {
	j.running = true

	go j.run(cfg, errs)
}

func (j *Journal) run(cfg *Config, errs chan<- error) {
	defer close(j.done)

	for c := range j.queue {
		if err := j.insert(context.Background(), c); err != nil {
			errs <- err

			continue
		}

		logf(cfg, "CLAIM: Journaled claim %d on slot %d", c.Seq, c.Slot)
	}
}

// Close stops the writer once everything queued has been written.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	if j.running {
		<-j.done
	}

	return j.db.Close()
}

// entries lists journaled claims, newest boot first and in claim order
// within a boot.
func (j *Journal) entries(ctx context.Context) ([]journalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT seq, slot, owner, claimed_at, boot FROM claims ORDER BY boot DESC, seq ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []journalEntry
	for rows.Next() {
		var (
			e         journalEntry
			claimedAt string
		)
		if err := rows.Scan(&e.Seq, &e.Slot, &e.Owner, &claimedAt, &e.Boot); err != nil {
			return nil, fmt.Errorf("failed to read journal row: %w", err)
		}

		e.ClaimedAt, err = time.Parse(time.RFC3339Nano, claimedAt)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp in journal: %w", err)
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

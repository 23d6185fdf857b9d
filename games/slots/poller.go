/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval matches the browser client.
const DefaultPollInterval = 3 * time.Second

// ErrPollInFlight is returned by Tick when a previous poll has not finished.
var ErrPollInFlight = errors.New("poll already in flight")

// Poller keeps a local copy of the board up to date by polling a Client on a
// fixed interval. At most one poll runs at a time; ticks that arrive while a
// poll is running are skipped. A failed poll leaves the last good status in
// place.
type Poller struct {
	client   *Client
	interval time.Duration

	// OnStatus is called with every successfully fetched status.
	OnStatus func(Status)
	// OnError is called with every failed poll.
	OnError func(error)

	// inFlight holds a token while a poll is running.
	inFlight chan struct{}
	skipped  atomic.Uint64

	mu     sync.RWMutex
	latest *Status
}

func NewPoller(client *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		client:   client,
		interval: interval,
		inFlight: make(chan struct{}, 1),
	}
}

// Latest returns the most recent good status, or false if none has arrived.
func (p *Poller) Latest() (Status, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return Status{}, false
	}

	return *p.latest, true
}

// Skipped reports how many ticks were dropped because a poll was in flight.
func (p *Poller) Skipped() uint64 {
	return p.skipped.Load()
}

// Tick runs one poll synchronously, or returns ErrPollInFlight if another
// poll is still running.
func (p *Poller) Tick(ctx context.Context) error {
	select {
	case p.inFlight <- struct{}{}:
	default:
		p.skipped.Add(1)
		return ErrPollInFlight
	}
	defer func() { <-p.inFlight }()

	return p.poll(ctx)
}

// Resync waits for any poll already running to finish and then polls again,
// so the result reflects everything that happened before the call.
func (p *Poller) Resync(ctx context.Context) error {
	select {
	case p.inFlight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.inFlight }()

	return p.poll(ctx)
}

func (p *Poller) poll(ctx context.Context) error {
	st, err := p.client.Status(ctx)
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return err
	}

	p.reconcile(st)

	return nil
}

// reconcile stores st unless a newer board version is already known.
func (p *Poller) reconcile(st Status) {
	p.mu.Lock()
	if p.latest != nil && p.latest.Version > st.Version {
		p.mu.Unlock()
		return
	}
	p.latest = &st
	p.mu.Unlock()

	if p.OnStatus != nil {
		p.OnStatus(st)
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	poll := func() {
		wg.Go(func() {
			_ = p.Tick(ctx)
		})
	}

	poll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}

// Pick claims index and then resynchronises the local status, whatever the
// outcome, unless the failure was transient.
func (p *Poller) Pick(ctx context.Context, index int, secret string) (PickResponse, error) {
	resp, err := p.client.Pick(ctx, index, secret)

	var te *TransientError
	if !errors.As(err, &te) {
		_ = p.Resync(ctx)
	}

	return resp, err
}

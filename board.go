// Slotpick board
//
// A fixed board of numbered slots, each bound at startup to a hidden name and
// optionally a passcode. Every participant may claim exactly one slot; the
// bound name is revealed to the claimant only. Everyone else sees the slot as
// taken.
//
// Routes:
//   - $prefix/            → board page (issues the identity cookie)
//   - $prefix/api/status  → board as seen by the caller
//   - $prefix/api/pick    → claim a slot
//   - $prefix/api/ws      → websocket pushing the caller's board on every claim
//   - $prefix/qr          → PNG QR code of the board URL

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const maxPickBody = 4096

type board struct {
	registry   *slots.Registry
	ledger     *slots.Ledger
	arbiter    *slots.Arbiter
	projector  *slots.Projector
	identities *identityResolver
	hub        *Hub
	journal    *Journal
}

func newBoard(cfg *Config) (*board, error) {
	registry, err := slots.NewRegistry(cfg.bindings)
	if err != nil {
		return nil, err
	}

	identities, err := newIdentityResolver(cfg)
	if err != nil {
		return nil, err
	}

	ledger := slots.NewLedger()
	projector := slots.NewProjector(registry, ledger)

	b := &board{
		registry:   registry,
		ledger:     ledger,
		arbiter:    slots.NewArbiter(registry, ledger),
		projector:  projector,
		identities: identities,
		hub:        newHub(projector),
	}

	if cfg.auditDB != "" {
		b.journal, err = openJournal(cfg.auditDB)
		if err != nil {
			return nil, err
		}
	}

	b.arbiter.Subscribe(func(c slots.Claim) {
		b.hub.notify()

		if b.journal != nil {
			b.journal.enqueue(c)
		}
	})

	return b, nil
}

// start launches the hub and the journal writer.
func (b *board) start(cfg *Config, errs chan<- error) {
	go b.hub.run(cfg)

	if b.journal != nil {
		b.journal.start(cfg, errs)
	}
}

func (b *board) stop() error {
	b.hub.shutdown()

	if b.journal != nil {
		return b.journal.Close()
	}

	return nil
}

func apiHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", slots.TokenHeader)
	securityHeaders(cfg, w)
}

func writeJSON(w http.ResponseWriter, status int, v any, errs chan<- error) int {
	data, err := json.Marshal(v)
	if err != nil {
		errs <- err
		w.WriteHeader(http.StatusInternalServerError)

		return 0
	}

	w.WriteHeader(status)

	written, err := w.Write(append(data, '\n'))
	if err != nil {
		errs <- err
	}

	return written
}

func serveStatus(cfg *Config, b *board, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		id, issued := b.identities.resolve(r)
		b.identities.attach(w.Header(), issued)
		apiHeaders(cfg, w)

		written := writeJSON(w, http.StatusOK, b.projector.Project(id), errs)

		logf(cfg, "SERVE: Status (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func servePick(cfg *Config, b *board, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		id, issued := b.identities.resolve(r)
		b.identities.attach(w.Header(), issued)
		apiHeaders(cfg, w)

		var in slots.PickRequest
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPickBody)).Decode(&in)
		switch {
		case errors.Is(err, io.EOF), err == nil && in.Index == nil:
			writeJSON(w, http.StatusBadRequest, slots.ErrorResponse{Error: "missing index", Code: slots.CodeBadRequest}, errs)
			return
		case err != nil:
			writeJSON(w, http.StatusBadRequest, slots.ErrorResponse{Error: "malformed request body", Code: slots.CodeBadRequest}, errs)
			return
		}

		index := *in.Index

		out, err := b.arbiter.AttemptClaim(id, index, in.Secret)
		if err != nil {
			status := slots.HTTPStatus(err)
			if status >= http.StatusInternalServerError {
				errorf("CLAIM: %s on slot %s: %v", id, slotLabel(index), err)
			} else {
				logf(cfg, "CLAIM: Rejected %s on slot %s from %s: %v", id, slotLabel(index), realIP(r), err)
			}

			writeJSON(w, status, slots.NewErrorResponse(err), errs)
			return
		}

		writeJSON(w, http.StatusOK, slots.PickResponse{
			OK:    true,
			Index: out.Claim.Slot,
			Name:  out.Name,
		}, errs)

		verb := "Revealed"
		if out.Fresh {
			verb = "Claimed"
		}
		logf(cfg, "CLAIM: %s slot %s for %s from %s in %s",
			verb,
			slotLabel(index),
			id,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func servePickOptions(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+slots.TokenHeader)
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func serveWebsocket(cfg *Config, b *board) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, issued := b.identities.resolve(r)

		hdr := http.Header{}
		b.identities.attach(hdr, issued)

		conn, err := upgrader.Upgrade(w, r, hdr)
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan slots.Status, wsSendBuffer),
			identity: id,
		}

		select {
		case b.hub.register <- client:
		case <-b.hub.stop:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(b.hub)
	}
}

// serveQR renders a PNG QR code pointing at the board.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr") + "/"

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

func registerBoard(cfg *Config, b *board, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/", serveHomePage(cfg, b, errs))

	mux.GET(cfg.prefix+"/api/status", serveStatus(cfg, b, errs))
	mux.POST(cfg.prefix+"/api/pick", servePick(cfg, b, errs))
	mux.OPTIONS(cfg.prefix+"/api/pick", servePickOptions(cfg))
	mux.GET(cfg.prefix+"/api/ws", serveWebsocket(cfg, b))

	mux.GET(cfg.prefix+"/qr", serveQR(cfg, errs))
}

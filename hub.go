/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected websocket. Each client only ever receives the
// board as projected for its own identity.
type Client struct {
	conn     *websocket.Conn
	send     chan slots.Status
	identity slots.Identity
}

// Hub owns the set of connected clients and pushes a fresh projection to
// each of them whenever a new claim is recorded.
type Hub struct {
	projector *slots.Projector

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	changed  chan struct{}
	stop     chan struct{}
}

func newHub(projector *slots.Projector) *Hub {
	return &Hub{
		projector: projector,
		clients:   make(map[*Client]bool),
		register:  make(chan *Client),
		unreg:     make(chan *Client),
		changed:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// notify marks the board as changed. Bursts of claims collapse into one push.
func (h *Hub) notify() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.sendTo(c)

			logf(cfg, "SERVE: Websocket opened for %s (%d connected)", c.identity, len(h.clients))

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case <-h.changed:
			for c := range h.clients {
				h.sendTo(c)
			}

		case <-h.stop:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// sendTo must only be called from run. Clients that cannot keep up are
// dropped; they will resynchronise by polling.
func (h *Hub) sendTo(c *Client) {
	select {
	case c.send <- h.projector.Project(c.identity):
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) shutdown() {
	close(h.stop)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.stop:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Clients have nothing to say; reading only detects disconnects and pongs.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case st, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(st); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

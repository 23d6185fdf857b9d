/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/google/uuid"
)

const (
	identityCookieName = "slotpick_id"
	identityCookieAge  = 30 * 24 * time.Hour
)

// identityResolver tells participants apart without a login, either by a
// signed token handed out on first contact or by network address.
type identityResolver struct {
	cfg *Config
	key []byte
}

func newIdentityResolver(cfg *Config) (*identityResolver, error) {
	key := []byte(cfg.tokenKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}

	return &identityResolver{
		cfg: cfg,
		key: key,
	}, nil
}

func (ir *identityResolver) sign(id string) string {
	mac := hmac.New(sha256.New, ir.key)
	mac.Write([]byte(id))

	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify returns the id inside token if its signature matches.
func (ir *identityResolver) verify(token string) (string, bool) {
	id, _, ok := strings.Cut(token, ".")
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(ir.sign(id)), []byte(token)) {
		return "", false
	}

	return id, true
}

func (ir *identityResolver) issue() string {
	return ir.sign(uuid.NewString())
}

// resolve returns the identity r was made by. If a new token had to be issued
// it is returned as well and must be handed back with attach.
func (ir *identityResolver) resolve(r *http.Request) (slots.Identity, string) {
	if ir.cfg.identity == identityAddress {
		return slots.Identity("a:" + clientHost(r, ir.cfg.trustedProxy)), ""
	}

	for _, token := range []string{r.Header.Get(slots.TokenHeader), cookieValue(r)} {
		if token == "" {
			continue
		}
		if id, ok := ir.verify(token); ok {
			return slots.Identity("t:" + id), ""
		}
	}

	token := ir.issue()
	id, _, _ := strings.Cut(token, ".")

	return slots.Identity("t:" + id), token
}

// attach sends a freshly issued token back as both a cookie and a header.
func (ir *identityResolver) attach(h http.Header, token string) {
	if token == "" {
		return
	}

	cookie := &http.Cookie{
		Name:     identityCookieName,
		Value:    token,
		Path:     ir.cfg.prefix + "/",
		MaxAge:   int(identityCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   ir.cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}

	h.Add("Set-Cookie", cookie.String())
	h.Set(slots.TokenHeader, token)
}

func cookieValue(r *http.Request) string {
	c, err := r.Cookie(identityCookieName)
	if err != nil {
		return ""
	}

	return c.Value
}

// clientHost is the requester's address without a port. Headers set by a
// fronting proxy are only consulted when trusted.
func clientHost(r *http.Request, trusted bool) string {
	if !trusted {
		return peerHost(r)
	}

	for _, header := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if ip := strings.TrimSpace(r.Header.Get(header)); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	return peerHost(r)
}

func peerHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

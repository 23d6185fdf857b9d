/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// TokenHeader carries the identity token for clients without cookies.
const TokenHeader = "X-Slotpick-Token"

// Client talks to a board server. It remembers the identity token the server
// issues so that every request after the first is made as the same identity.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.Mutex
	token string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    http.DefaultClient,
		token:   token,
	}
}

// Token returns the identity token in use, which is empty until the server
// has issued one.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set(TokenHeader, tok)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	if tok := res.Header.Get(TokenHeader); tok != "" {
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
	}

	return res, nil
}

// Status fetches the board as seen by this client's identity.
func (c *Client) Status(ctx context.Context) (Status, error) {
	res, err := c.do(ctx, http.MethodGet, "/api/status", nil)
	if err != nil {
		return Status{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Status{}, &TransientError{Status: res.StatusCode, Message: res.Status}
	}

	var st Status
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return Status{}, &TransientError{Err: fmt.Errorf("decode status: %w", err)}
	}

	return st, nil
}

// Pick claims index. Rejections are returned as the same errors the arbiter
// produces.
func (c *Client) Pick(ctx context.Context, index int, secret string) (PickResponse, error) {
	res, err := c.do(ctx, http.MethodPost, "/api/pick", PickRequest{Index: &index, Secret: secret})
	if err != nil {
		return PickResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		var out PickResponse
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			return PickResponse{}, &TransientError{Err: fmt.Errorf("decode pick: %w", err)}
		}
		return out, nil
	}

	var body ErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		body.Error = res.Status
	}

	return PickResponse{}, ErrorFromResponse(res.StatusCode, body)
}

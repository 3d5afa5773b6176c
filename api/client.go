// Package api is the request/response client for the timer server's REST
// surface: fetching timer state and stats, creating and joining timers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blitztime/go-wrapper/timer"
)

// Credentials identify one connection to a timer. An empty Token designates
// an observer: read-only, no commands accepted.
type Credentials struct {
	Timer int    `json:"timer"`
	Token string `json:"token,omitempty"`
}

// Observer reports whether these credentials are read-only.
func (c Credentials) Observer() bool { return c.Token == "" }

// Stats is the server-wide counters payload.
type Stats struct {
	AllTimers     int `json:"all_timers"`
	OngoingTimers int `json:"ongoing_timers"`
	Connected     int `json:"connected"`
}

// Client talks to the timer server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given base URL. A nil hc gets a 30s-timeout
// default.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Timer fetches the current snapshot of one timer.
func (c *Client) Timer(ctx context.Context, id int) (*timer.Timer, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/timer/%d", id), nil)
	if err != nil {
		return nil, err
	}
	return timer.Parse(body)
}

// Stats fetches the server-wide timer counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	body, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	if err := json.Unmarshal(body, stats); err != nil {
		return nil, fmt.Errorf("api: decoding stats: %w", err)
	}
	return stats, nil
}

type createTimerReq struct {
	Settings []timer.StageSettings `json:"settings"`
	Managed  bool                  `json:"managed"`
}

// CreateTimer creates a new timer with the given stage schedule and returns
// credentials for the creator's seat.
func (c *Client) CreateTimer(ctx context.Context, settings []timer.StageSettings, managed bool) (Credentials, error) {
	body, err := c.do(ctx, http.MethodPost, "/timer", createTimerReq{Settings: settings, Managed: managed})
	if err != nil {
		return Credentials{}, err
	}
	return parseCredentials(body)
}

// JoinTimer claims the open seat on an existing timer.
func (c *Client) JoinTimer(ctx context.Context, id int) (Credentials, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/timer/%d/join", id), nil)
	if err != nil {
		return Credentials{}, err
	}
	return parseCredentials(body)
}

func parseCredentials(body []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return Credentials{}, fmt.Errorf("api: decoding credentials: %w", err)
	}
	return creds, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := ParseError(body)
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("detail", apiErr.Detail).
			Msg("request rejected")
		return nil, apiErr
	}
	return body, nil
}

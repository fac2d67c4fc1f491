// Package client is the Go SDK for the notifyd dev host.
//
// # Quick start
//
//	c := client.New("http://localhost:8080")
//
//	// Raise a notification for the local player
//	id, added, err := c.Add(ctx, 0, client.Notification{
//	    Kind: "production", Message: "Choose production", X: 3, Y: 4, PrimaryData: 1,
//	})
//
//	// End the turn, or learn what blocks it
//	turn, err := c.EndTurn(ctx, false)
//	var blocked *client.BlockedError
//	if errors.As(err, &blocked) { ... }
//
//	// Follow live frames
//	s, err := c.Stream(ctx, 0)
//	for { f, err := s.Next(); ... }
//
// # Error handling
//
// All methods return an *APIError when the server responds with a non-2xx
// status code, except EndTurn, which returns a *BlockedError for 409.
//
// Client is safe for concurrent use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ─── Error types ──────────────────────────────────────────────────────────────

// APIError is returned when the server responds with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status code
	Message    string // "error" field from the JSON response body

	body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notifyd: server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// BlockedError is returned by EndTurn when a notification blocks the turn.
type BlockedError struct {
	Player   int    `json:"player"`
	Blocking string `json:"blocking"`
	LookupID int32  `json:"lookup_id"`
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("notifyd: end turn blocked for player %d: %s (notification %d)",
		e.Player, e.Blocking, e.LookupID)
}

// ─── Client options ───────────────────────────────────────────────────────────

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithAPIKey sets the key sent in every request as the X-Api-Key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout. The default is 10 seconds.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// ─── Types ────────────────────────────────────────────────────────────────────

// Notification is one record as the server reports it. When adding, use -1
// for absent coordinates and data slots; NewNotification fills them in.
type Notification struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	Summary       string `json:"summary"`
	X             int32  `json:"x"`
	Y             int32  `json:"y"`
	PrimaryData   int32  `json:"primary_data"`
	SecondaryData int32  `json:"secondary_data"`
	Turn          int32  `json:"turn"`
	LookupID      int32  `json:"lookup_id"`
	Dismissed     bool   `json:"dismissed"`
	Owner         int    `json:"owner"`
}

// NewNotification returns a Notification of kind with no location or data.
func NewNotification(kind, message, summary string) Notification {
	return Notification{
		Kind: kind, Message: message, Summary: summary,
		X: -1, Y: -1, PrimaryData: -1, SecondaryData: -1,
	}
}

// Blocker describes what keeps a player from ending the turn.
type Blocker struct {
	Blocked  bool   `json:"blocked"`
	Blocking string `json:"blocking"`
	LookupID int32  `json:"lookup_id"`
}

// HealthInfo is the /health payload.
type HealthInfo struct {
	Status   string `json:"status"`
	HostID   string `json:"host_id"`
	Players  int    `json:"players"`
	Turn     int32  `json:"turn"`
	Uptime   string `json:"uptime"`
	UptimeMs int64  `json:"uptime_ms"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is the notifyd API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the dev host at baseURL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health returns the server status.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	var h HealthInfo
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Add raises n for player. added is false when the server dropped the
// notification: a redundant duplicate, or a player not seated at the host.
func (c *Client) Add(ctx context.Context, player int, n Notification) (id int32, added bool, err error) {
	payload := addPayload{
		Kind: n.Kind, Message: n.Message, Summary: n.Summary,
		X: n.X, Y: n.Y, Primary: n.PrimaryData, Secondary: n.SecondaryData,
	}
	var resp struct {
		LookupID int32 `json:"lookup_id"`
		Added    bool  `json:"added"`
	}
	if err := c.do(ctx, http.MethodPost, playerPath(player, "/notifications"), payload, &resp); err != nil {
		return -1, false, err
	}
	return resp.LookupID, resp.Added, nil
}

// List returns the player's live records, dismissed ones included, oldest
// first, and the current turn.
func (c *Client) List(ctx context.Context, player int) ([]Notification, int32, error) {
	var resp struct {
		Turn    int32          `json:"turn"`
		Records []Notification `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, playerPath(player, "/notifications"), nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Records, resp.Turn, nil
}

// Dismiss dismisses a record as a user click would.
func (c *Client) Dismiss(ctx context.Context, player int, id int32) error {
	return c.do(ctx, http.MethodPost, playerPath(player, fmt.Sprintf("/notifications/%d/dismiss", id)), nil, nil)
}

// Activate runs a record's UI follow-up. The resulting actions arrive on the
// player's Stream.
func (c *Client) Activate(ctx context.Context, player int, id int32) error {
	return c.do(ctx, http.MethodPost, playerPath(player, fmt.Sprintf("/notifications/%d/activate", id)), nil, nil)
}

// MayDismiss reports whether the user may dismiss a record by hand.
func (c *Client) MayDismiss(ctx context.Context, player int, id int32) (bool, error) {
	var resp struct {
		Dismissible bool `json:"dismissible"`
	}
	err := c.do(ctx, http.MethodGet, playerPath(player, fmt.Sprintf("/notifications/%d/dismissible", id)), nil, &resp)
	return resp.Dismissible, err
}

// Blocker returns what keeps player from ending the turn.
func (c *Client) Blocker(ctx context.Context, player int) (*Blocker, error) {
	var b Blocker
	if err := c.do(ctx, http.MethodGet, playerPath(player, "/blocker"), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Reconnect asks the server to redeliver every live record of player.
func (c *Client) Reconnect(ctx context.Context, player int) error {
	return c.do(ctx, http.MethodPost, playerPath(player, "/reconnect"), nil, nil)
}

// EndTurn ends the active player's turn and returns the new turn number.
// Unless force is set, a blocking notification yields a *BlockedError.
func (c *Client) EndTurn(ctx context.Context, force bool) (int32, error) {
	var resp struct {
		Turn int32 `json:"turn"`
	}
	err := c.do(ctx, http.MethodPost, "/turn/end", endTurnPayload{Force: force}, &resp)
	var ae *APIError
	if errors.As(err, &ae) && ae.StatusCode == http.StatusConflict && ae.body != nil {
		var be BlockedError
		if json.Unmarshal(ae.body, &be) == nil {
			return 0, &be
		}
	}
	return resp.Turn, err
}

// Save persists every store on the server.
func (c *Client) Save(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/save", nil, nil)
}

// ─── HTTP transport ───────────────────────────────────────────────────────────

// do performs a single HTTP request.
// body is encoded as JSON when non-nil, resp is decoded from JSON when non-nil.
// A 204 No Content response is treated as success with no body.
func (c *Client) do(ctx context.Context, method, path string, body, resp any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notifyd: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("notifyd: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notifyd: request %s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("notifyd: read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return &APIError{StatusCode: httpResp.StatusCode, Message: msg, body: respBody}
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return fmt.Errorf("notifyd: decode response: %w", err)
		}
	}
	return nil
}

func playerPath(player int, suffix string) string {
	return fmt.Sprintf("/players/%d%s", player, suffix)
}

// ─── Internal wire types ──────────────────────────────────────────────────────

type addPayload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message,omitempty"`
	Summary   string `json:"summary,omitempty"`
	X         int32  `json:"x"`
	Y         int32  `json:"y"`
	Primary   int32  `json:"primary_data"`
	Secondary int32  `json:"secondary_data"`
}

type endTurnPayload struct {
	Force bool `json:"force"`
}

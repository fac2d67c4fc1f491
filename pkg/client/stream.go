package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one server push on a player's stream. Type is one of "deliver",
// "retract", "activate", "seen", "action" or "error".
type Frame struct {
	Type     string          `json:"type"`
	Player   int             `json:"player"`
	Record   *Notification   `json:"record,omitempty"`
	LookupID int32           `json:"lookup_id,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Action   json.RawMessage `json:"action,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Stream is a live websocket subscription to one player's notifications.
// Next must be called from a single goroutine; the Send helpers may be
// called concurrently with Next but not with each other.
type Stream struct {
	conn *websocket.Conn
}

// Stream opens the websocket for player. Connecting makes the server
// redeliver every live record of player.
func (c *Client) Stream(ctx context.Context, player int) (*Stream, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("notifyd: parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + playerPath(player, "/ws")

	d := websocket.Dialer{HandshakeTimeout: c.http.Timeout}
	var hdr http.Header
	if c.apiKey != "" {
		hdr = http.Header{"X-Api-Key": []string{c.apiKey}}
	}
	conn, resp, err := d.DialContext(ctx, u.String(), hdr)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return nil, fmt.Errorf("notifyd: dial %s: %w", u, err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next frame arrives. A zero timeout waits forever.
func (s *Stream) Next(timeout time.Duration) (Frame, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := s.conn.ReadJSON(&f); err != nil {
		return Frame{}, fmt.Errorf("notifyd: read frame: %w", err)
	}
	return f, nil
}

// Activate asks the server to run the follow-up of record id.
func (s *Stream) Activate(id int32) error { return s.send("activate", id) }

// Dismiss dismisses record id as a user click would.
func (s *Stream) Dismiss(id int32) error { return s.send("dismiss", id) }

// Rebroadcast asks the server to redeliver every live record.
func (s *Stream) Rebroadcast() error { return s.send("rebroadcast", 0) }

// Close sends a close frame and releases the connection.
func (s *Stream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *Stream) send(typ string, id int32) error {
	frame := struct {
		Type     string `json:"type"`
		LookupID int32  `json:"lookup_id,omitempty"`
	}{typ, id}
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("notifyd: send %s: %w", typ, err)
	}
	return nil
}

// Package websocket is the presentation sink of notifyd: it pushes store
// output to UI clients and feeds their clicks back into the hub.
//
// Clients open a WebSocket connection to:
//
//	GET /players/{player}/ws
//
// Server → client frames:
//
//	{"type":"deliver",  "player":0, "record":{...}}
//	{"type":"retract",  "player":0, "lookup_id":7}
//	{"type":"activate", "player":0, "record":{...}}
//	{"type":"seen",     "kind":"tech"}
//	{"type":"action",   "player":0, "action":{"type":"look_at","x":3,"y":4,...}}
//	{"type":"error",    "error":"rate limited"}
//
// Client → server control frames:
//
//	{"type":"activate",    "lookup_id":7}
//	{"type":"dismiss",     "lookup_id":7}
//	{"type":"rebroadcast"}
//
// Sink methods are called with the hub lock held, so they never block: each
// client has a bounded send queue and frames that do not fit are dropped.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sneh-joshi/notifyring/internal/metrics"
	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/types"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 4 << 10
)

// Controller is the part of the hub that client frames drive.
type Controller interface {
	Activate(p types.PlayerID, id int32) error
	Dismiss(p types.PlayerID, id int32, userInvoked bool) error
	Reconnect(p types.PlayerID) error
	Disconnect(p types.PlayerID) error
	Players() int
}

// Frame is the JSON structure the server sends to the client.
type Frame struct {
	Type     string         `json:"type"`
	Player   types.PlayerID `json:"player"`
	Record   *types.Record  `json:"record,omitempty"`
	LookupID int32          `json:"lookup_id,omitempty"`
	Kind     *types.Kind    `json:"kind,omitempty"`
	Action   *types.Action  `json:"action,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// clientFrame is the JSON structure the client sends to the server.
type clientFrame struct {
	Type     string `json:"type"`
	LookupID int32  `json:"lookup_id"`
}

// ─── Option / functional options ─────────────────────────────────────────────

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for connection and drop messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics counts connected clients and dropped frames in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Server) { s.metrics = reg }
}

// WithSendBuffer sets the per-client frame queue length.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithFrameRate caps control frames accepted from one client per second.
func WithFrameRate(perSec int) Option {
	return func(s *Server) {
		if perSec > 0 {
			s.framesPerSec = perSec
		}
	}
}

// ─── Server ───────────────────────────────────────────────────────────────────

// Server fans store output out to connected clients and implements
// notification.Sink. All methods are safe for concurrent use.
type Server struct {
	log          *slog.Logger
	metrics      *metrics.Registry
	sendBuffer   int
	framesPerSec int
	upgrader     gorillaws.Upgrader

	ctlMu sync.RWMutex
	ctl   Controller

	mu      sync.RWMutex
	clients map[*client]struct{}
}

var _ notification.Sink = (*Server)(nil)

type client struct {
	player types.PlayerID
	out    chan []byte
}

// NewServer returns a Server with no clients. Attach must be called before
// the handler accepts connections.
func NewServer(opts ...Option) *Server {
	s := &Server{
		log:          slog.Default(),
		sendBuffer:   64,
		framesPerSec: 20,
		clients:      make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.upgrader = gorillaws.Upgrader{
		CheckOrigin:     sameOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	return s
}

// Attach binds the hub the client frames are routed to. The hub needs the
// server as its sink first, so the two are wired in this order.
func (s *Server) Attach(ctl Controller) {
	s.ctlMu.Lock()
	s.ctl = ctl
	s.ctlMu.Unlock()
}

func (s *Server) controller() Controller {
	s.ctlMu.RLock()
	defer s.ctlMu.RUnlock()
	return s.ctl
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ─── notification.Sink ────────────────────────────────────────────────────────

func (s *Server) Deliver(r types.Record) {
	s.send(r.Owner, Frame{Type: "deliver", Player: r.Owner, Record: &r})
}

func (s *Server) Retract(id int32, owner types.PlayerID) {
	s.send(owner, Frame{Type: "retract", Player: owner, LookupID: id})
}

func (s *Server) Activate(r types.Record) {
	s.send(r.Owner, Frame{Type: "activate", Player: r.Owner, Record: &r})
}

// SetSeenFlag goes to every client: the flag is per UI, not per player.
func (s *Server) SetSeenFlag(k types.Kind) {
	s.send(types.PlayerNone, Frame{Type: "seen", Player: types.PlayerNone, Kind: &k})
}

func (s *Server) Perform(owner types.PlayerID, a types.Action) {
	s.send(owner, Frame{Type: "action", Player: owner, Action: &a})
}

// send queues f for every client of p, or for every client when p is
// PlayerNone. It never blocks.
func (s *Server) send(p types.PlayerID, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.log.Error("ws frame encode failed", "type", f.Type, "err", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if p != types.PlayerNone && c.player != p {
			continue
		}
		select {
		case c.out <- data:
		default:
			s.log.Warn("ws send queue full; frame dropped",
				"player", int32(c.player), "type", f.Type, "queue_cap", cap(c.out))
			if s.metrics != nil {
				s.metrics.WSDropped.Inc(metrics.PlayerKey(c.player))
			}
		}
	}
}

// ─── Connection handling ──────────────────────────────────────────────────────

// ServeHTTP upgrades the connection for the player named by the {player}
// path value and runs it until the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctl := s.controller()
	if ctl == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	n, err := strconv.Atoi(r.PathValue("player"))
	if err != nil || n < 0 || n >= ctl.Players() {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}
	p := types.PlayerID(n)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := &client{player: p, out: make(chan []byte, s.sendBuffer)}
	s.register(c)
	defer func() {
		if s.unregister(c) {
			if err := ctl.Disconnect(p); err != nil {
				s.log.Warn("ws disconnect failed", "player", n, "err", err)
			}
		}
	}()
	if err := ctl.Reconnect(p); err != nil {
		s.log.Warn("ws reconnect failed", "player", n, "err", err)
	}
	s.log.Info("ws client connected", "player", n, "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writePump(conn, c, done)
	s.readPump(conn, c, ctl)
	close(done)
	s.log.Info("ws client disconnected", "player", n)
}

func (s *Server) readPump(conn *gorillaws.Conn, c *client, ctl Controller) {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	limiter := rate.NewLimiter(rate.Limit(s.framesPerSec), s.framesPerSec)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			s.reply(c, Frame{Type: "error", Player: c.player, Error: "rate limited"})
			continue
		}
		var cf clientFrame
		if err := json.Unmarshal(raw, &cf); err != nil {
			s.reply(c, Frame{Type: "error", Player: c.player, Error: "bad frame"})
			continue
		}
		switch cf.Type {
		case "activate":
			err = ctl.Activate(c.player, cf.LookupID)
		case "dismiss":
			err = ctl.Dismiss(c.player, cf.LookupID, true)
		case "rebroadcast":
			err = ctl.Reconnect(c.player)
		default:
			err = fmt.Errorf("unknown frame type %q", cf.Type)
		}
		if err != nil {
			s.reply(c, Frame{Type: "error", Player: c.player, Error: err.Error()})
		}
	}
}

func (s *Server) writePump(conn *gorillaws.Conn, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case data, ok := <-c.out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillaws.TextMessage, data); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// reply queues f for c alone.
func (s *Server) reply(c *client, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.out <- data:
	default:
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.WSClients.Add(1)
	}
}

// unregister removes c and closes its queue. It reports whether c was the
// last client of its player.
func (s *Server) unregister(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return false
	}
	delete(s.clients, c)
	close(c.out)
	if s.metrics != nil {
		s.metrics.WSClients.Add(-1)
	}
	for other := range s.clients {
		if other.player == c.player {
			return false
		}
	}
	return true
}

// sameOrigin rejects cross-origin upgrades unless the page was served from a
// loopback host, where a dev UI usually runs on its own port. A request
// without an Origin header (native clients, curl) is allowed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return u.Host == r.Host
}

// Package hub is the single concurrent entry point to the notification stores.
//
// Every transport (HTTP handlers, WebSocket clients, the tick loop) talks to
// the Hub, never to a notification.Store directly. A Store is not safe for
// concurrent use, so the Hub serialises every call behind one mutex. The
// presentation sink is invoked while that mutex is held and must not block.
//
// Data flow:
//
//	gameplay event → Hub.AddToPlayer → Store.Add → Sink.Deliver
//	tick loop      → Hub.Tick        → Store.Update (expiry, deferred delivery)
//	end turn       → Hub.EndTurn     → Store.EndOfTurnCleanup → Session.NextTurn
//	shutdown       → Hub.Save        → Store.MarshalBinary → storage.Engine
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sneh-joshi/notifyring/internal/metrics"
	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/storage"
	"github.com/sneh-joshi/notifyring/internal/types"
)

// ─── Error sentinels ──────────────────────────────────────────────────────────

var (
	// ErrUnknownPlayer is returned for a player slot the hub does not manage.
	ErrUnknownPlayer = errors.New("hub: unknown player")

	// ErrEndTurnBlocked is returned by EndTurn while the active player still
	// has a blocking notification. Use errors.As with *BlockedError for details.
	ErrEndTurnBlocked = errors.New("hub: end turn blocked")

	// ErrNoStorage is returned by Save and Load when no engine is configured.
	ErrNoStorage = errors.New("hub: no storage engine")
)

// BlockedError names the notification that blocks the end of turn.
type BlockedError struct {
	Player   types.PlayerID
	Blocking types.BlockingType
	LookupID int32
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("hub: end turn blocked for player %v: %v (notification %d)",
		e.Player, e.Blocking, e.LookupID)
}

func (e *BlockedError) Unwrap() error { return ErrEndTurnBlocked }

// ─── Session ──────────────────────────────────────────────────────────────────

// Session is the turn context the hub drives. session.Static implements it.
type Session interface {
	notification.Session
	NextTurn() int32
	SetTurn(turn int32)
	SetActive(p types.PlayerID)
	SetHuman(p types.PlayerID, v bool)
	SetTurnActive(p types.PlayerID, v bool)
	SetConnected(p types.PlayerID, v bool)
	SetHotJoining(p types.PlayerID, v bool)
}

// Config fixes the seating of a game.
type Config struct {
	// Players is the number of player slots, numbered 0..Players-1.
	Players int
	// Local is the human seated at this host.
	Local types.PlayerID
	// Hotseat seats every player at this host and rotates the local player
	// with the active one.
	Hotseat bool
}

// ─── Option / functional options ─────────────────────────────────────────────

// Option is a functional option for the Hub.
type Option func(*Hub)

// WithLogger sets the logger for turn, save and load messages.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithMetrics counts every store transition in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(h *Hub) { h.metrics = reg }
}

// WithStorage enables Save and Load, and saves every store at end of turn.
func WithStorage(e storage.Engine) Option {
	return func(h *Hub) { h.engine = e }
}

// WithQueries supplies the gameplay predicates. The Session field of env is
// ignored; the hub's own session is used.
func WithQueries(env notification.Env) Option {
	return func(h *Hub) { h.queries = env }
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

// Hub owns one notification.Store per player.
//
// All methods are safe for concurrent use.
type Hub struct {
	cfg     Config
	sess    Session
	queries notification.Env

	log     *slog.Logger
	metrics *metrics.Registry
	engine  storage.Engine

	mu     sync.Mutex
	stores []*notification.Store
}

// New creates a hub with an initialised store for every player. Before the
// first EndTurn the local player is made active with its turn started.
func New(cfg Config, sess Session, sink notification.Sink, opts ...Option) (*Hub, error) {
	if sess == nil {
		return nil, errors.New("hub: new: nil session")
	}
	if cfg.Players < 1 {
		return nil, fmt.Errorf("hub: new: players must be at least 1, got %d", cfg.Players)
	}
	if cfg.Local < 0 || int(cfg.Local) >= cfg.Players {
		return nil, fmt.Errorf("hub: new: local player %v: %w", cfg.Local, ErrUnknownPlayer)
	}

	h := &Hub{cfg: cfg, sess: sess, log: slog.Default()}
	for _, o := range opts {
		o(h)
	}

	env := h.queries
	env.Session = sess
	var storeOpts []notification.Option
	if h.metrics != nil {
		storeOpts = append(storeOpts, notification.WithObserver(h.metrics))
	}

	h.stores = make([]*notification.Store, cfg.Players)
	for i := range h.stores {
		s, err := notification.New(env, sink, storeOpts...)
		if err != nil {
			return nil, fmt.Errorf("hub: new: %w", err)
		}
		s.Init(types.PlayerID(i))
		h.stores[i] = s
	}

	for i := 0; i < cfg.Players; i++ {
		p := types.PlayerID(i)
		seated := p == cfg.Local || cfg.Hotseat
		sess.SetHuman(p, seated)
		sess.SetConnected(p, seated)
		sess.SetTurnActive(p, true)
	}
	sess.SetActive(cfg.Local)
	return h, nil
}

// Players returns the number of managed player slots.
func (h *Hub) Players() int { return h.cfg.Players }

// Local returns the player currently seated at this host.
func (h *Hub) Local() types.PlayerID {
	if h.cfg.Hotseat {
		return h.sess.ActivePlayer()
	}
	return h.cfg.Local
}

// Turn returns the current game turn.
func (h *Hub) Turn() int32 { return h.sess.GameTurn() }

// store must be called with h.mu held.
func (h *Hub) store(p types.PlayerID) (*notification.Store, error) {
	if p < 0 || int(p) >= len(h.stores) {
		return nil, fmt.Errorf("player %v: %w", p, ErrUnknownPlayer)
	}
	return h.stores[p], nil
}

// ─── Add ──────────────────────────────────────────────────────────────────────

// AddToPlayer queues a notification for p, but only when p is the local
// player. Events for remote or AI players are dropped with ok=false: their
// own hosts raise them.
func (h *Hub) AddToPlayer(p types.PlayerID, kind types.Kind, message, summary string, x, y, primary, secondary int32) (int32, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return -1, false, err
	}
	if p != h.Local() {
		return -1, false, nil
	}
	id, ok := s.Add(kind, message, summary, x, y, primary, secondary)
	return id, ok, nil
}

// AddByName resolves name with types.KindFromName and calls AddToPlayer.
func (h *Hub) AddByName(p types.PlayerID, name, message, summary string, x, y, primary, secondary int32) (int32, bool, error) {
	return h.AddToPlayer(p, types.KindFromName(name), message, summary, x, y, primary, secondary)
}

// ─── Per-record operations ────────────────────────────────────────────────────

// Dismiss dismisses a record of p. Unknown ids are ignored.
func (h *Hub) Dismiss(p types.PlayerID, id int32, userInvoked bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return err
	}
	s.Dismiss(id, userInvoked)
	return nil
}

// Activate runs the UI follow-up of a record of p. Unknown ids are ignored.
func (h *Hub) Activate(p types.PlayerID, id int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return err
	}
	s.Activate(id)
	return nil
}

// MayUserDismiss reports whether p may dismiss the record by hand.
func (h *Hub) MayUserDismiss(p types.PlayerID, id int32) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return false, err
	}
	return s.MayUserDismiss(id), nil
}

// Blocker returns the first record that keeps p from ending the turn.
func (h *Hub) Blocker(p types.PlayerID) (types.BlockingType, int32, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return types.BlockingNone, -1, false, err
	}
	b, id, ok := s.GetEndTurnBlockedType()
	return b, id, ok, nil
}

// Records returns a copy of p's live range, dismissed records included.
func (h *Hub) Records(p types.PlayerID) ([]types.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// ─── Turn lifecycle ───────────────────────────────────────────────────────────

// Tick runs one Update pass over every store.
func (h *Hub) Tick() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.stores {
		s.Update()
	}
}

// EndTurn ends the current turn of the active player.
//
// Unless force is set, a blocking notification of the active player refuses
// the call with a *BlockedError. Without hotseat every store is cleaned up
// and the game turn advances. With hotseat only the active player's store is
// cleaned up, the next player becomes active, and the game turn advances
// once every player has moved. When storage is configured all stores are
// saved after the turn advances; a save failure is logged, not returned.
func (h *Hub) EndTurn(force bool) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	active := h.sess.ActivePlayer()
	s, err := h.store(active)
	if err != nil {
		return h.sess.GameTurn(), err
	}
	if !force {
		if b, id, ok := s.GetEndTurnBlockedType(); ok {
			return h.sess.GameTurn(), &BlockedError{Player: active, Blocking: b, LookupID: id}
		}
	}

	turn := h.sess.GameTurn()
	if h.cfg.Hotseat {
		s.EndOfTurnCleanup()
		h.sess.SetTurnActive(active, false)
		next := types.PlayerID((int(active) + 1) % len(h.stores))
		if next == 0 {
			turn = h.sess.NextTurn()
			for i := range h.stores {
				h.sess.SetTurnActive(types.PlayerID(i), true)
			}
		}
		h.sess.SetActive(next)
		h.sess.SetTurnActive(next, true)
	} else {
		for _, st := range h.stores {
			st.EndOfTurnCleanup()
		}
		turn = h.sess.NextTurn()
	}
	h.log.Info("turn ended", "player", int32(active), "turn", turn)

	if h.engine != nil {
		if err := h.saveLocked(); err != nil {
			h.log.Error("autosave failed", "turn", turn, "err", err)
		}
	}
	return turn, nil
}

// Reconnect marks p connected and re-queues every live record of p for
// delivery. The next Tick delivers them.
func (h *Hub) Reconnect(p types.PlayerID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.store(p)
	if err != nil {
		return err
	}
	h.sess.SetConnected(p, true)
	h.sess.SetHotJoining(p, false)
	s.Rebroadcast()
	h.log.Debug("player reconnected", "player", int32(p))
	return nil
}

// Disconnect marks p disconnected.
func (h *Hub) Disconnect(p types.PlayerID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.store(p); err != nil {
		return err
	}
	h.sess.SetConnected(p, false)
	h.log.Debug("player disconnected", "player", int32(p))
	return nil
}

// Package session provides Static, an in-memory turn and focus context for
// the notification store. The dev host drives it from config and HTTP calls;
// tests drive it directly.
package session

import (
	"sync"

	"github.com/sneh-joshi/notifyring/internal/types"
)

// Options are the game-level switches that change per-kind behaviour.
type Options struct {
	Multiplayer     bool
	SharedTurn      bool
	Network         bool
	PolicySaving    bool
	CityExpansionUI bool
	AutoEndTurn     bool
}

// Static is a mutable Session. All methods are safe for concurrent use.
type Static struct {
	mu sync.RWMutex

	opts      Options
	turn      int32
	active    types.PlayerID
	finalInit bool
	debug     bool

	human      map[types.PlayerID]bool
	turnActive map[types.PlayerID]bool
	autoMoves  map[types.PlayerID]bool
	connected  map[types.PlayerID]bool
	hotJoining map[types.PlayerID]bool
}

// New returns a fully initialised session on turn 0 with no active player.
func New(opts Options) *Static {
	return &Static{
		opts:       opts,
		active:     types.PlayerNone,
		finalInit:  true,
		human:      make(map[types.PlayerID]bool),
		turnActive: make(map[types.PlayerID]bool),
		autoMoves:  make(map[types.PlayerID]bool),
		connected:  make(map[types.PlayerID]bool),
		hotJoining: make(map[types.PlayerID]bool),
	}
}

// ─── notification.Session ─────────────────────────────────────────────────────

func (s *Static) GameTurn() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

func (s *Static) ActivePlayer() types.PlayerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Static) IsFinalInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalInit
}

func (s *Static) IsDebugMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debug
}

func (s *Static) IsSharedTurn() bool         { return s.options().SharedTurn }
func (s *Static) IsMultiplayer() bool        { return s.options().Multiplayer }
func (s *Static) IsNetworkMultiplayer() bool { return s.options().Network }
func (s *Static) PolicySaving() bool         { return s.options().PolicySaving }
func (s *Static) CityExpansionUI() bool      { return s.options().CityExpansionUI }
func (s *Static) AutoEndTurnEnabled() bool   { return s.options().AutoEndTurn }

func (s *Static) IsHuman(p types.PlayerID) bool            { return s.flag(s.human, p) }
func (s *Static) IsTurnActive(p types.PlayerID) bool       { return s.flag(s.turnActive, p) }
func (s *Static) IsAutoMoves(p types.PlayerID) bool        { return s.flag(s.autoMoves, p) }
func (s *Static) IsPlayerConnected(p types.PlayerID) bool  { return s.flag(s.connected, p) }
func (s *Static) IsPlayerHotJoining(p types.PlayerID) bool { return s.flag(s.hotJoining, p) }

// ─── Mutators ─────────────────────────────────────────────────────────────────

// Options returns the current game options.
func (s *Static) Options() Options { return s.options() }

// SetOptions replaces the game options, e.g. after a config reload.
func (s *Static) SetOptions(o Options) {
	s.mu.Lock()
	s.opts = o
	s.mu.Unlock()
}

func (s *Static) SetTurn(turn int32) {
	s.mu.Lock()
	s.turn = turn
	s.mu.Unlock()
}

// NextTurn advances the turn counter and returns the new turn.
func (s *Static) NextTurn() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	return s.turn
}

func (s *Static) SetActive(p types.PlayerID) {
	s.mu.Lock()
	s.active = p
	s.mu.Unlock()
}

func (s *Static) SetFinalInitialized(v bool) {
	s.mu.Lock()
	s.finalInit = v
	s.mu.Unlock()
}

func (s *Static) SetDebug(v bool) {
	s.mu.Lock()
	s.debug = v
	s.mu.Unlock()
}

func (s *Static) SetHuman(p types.PlayerID, v bool)      { s.setFlag(s.human, p, v) }
func (s *Static) SetTurnActive(p types.PlayerID, v bool) { s.setFlag(s.turnActive, p, v) }
func (s *Static) SetAutoMoves(p types.PlayerID, v bool)  { s.setFlag(s.autoMoves, p, v) }
func (s *Static) SetConnected(p types.PlayerID, v bool)  { s.setFlag(s.connected, p, v) }
func (s *Static) SetHotJoining(p types.PlayerID, v bool) { s.setFlag(s.hotJoining, p, v) }

// ─── internal helpers ─────────────────────────────────────────────────────────

func (s *Static) options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

func (s *Static) flag(m map[types.PlayerID]bool, p types.PlayerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return m[p]
}

func (s *Static) setFlag(m map[types.PlayerID]bool, p types.PlayerID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		m[p] = true
		return
	}
	delete(m, p)
}

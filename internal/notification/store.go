// Package notification implements the per-player notification store: a
// fixed-capacity ring of records with per-kind rules for redundancy, expiry,
// end-of-turn cleanup, end-turn blocking and UI activation.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines (see internal/hub) must serialise access.
package notification

import (
	"errors"

	"github.com/sneh-joshi/notifyring/internal/types"
)

// ─── Options ──────────────────────────────────────────────────────────────────

// Option configures a Store.
type Option func(*Store)

// WithObserver reports store transitions to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.obs = o }
}

// ─── Store ────────────────────────────────────────────────────────────────────

// Store is one player's notification queue.
//
// Layout:
//   - records is a fixed array used as a circular buffer over [begin, end).
//   - Records are appended at end and reclaimed from begin in FIFO order,
//     whether or not they were dismissed.
//   - nextLookupID only grows until Uninit.
type Store struct {
	env  Env
	sink Sink
	obs  Observer

	owner        types.PlayerID
	nextLookupID int32
	begin, end   int32
	records      [MaxNotifications]types.Record
}

// New creates an unbound store. env.Session is required; a nil sink discards
// all presentation side effects.
func New(env Env, sink Sink, opts ...Option) (*Store, error) {
	if env.Session == nil {
		return nil, errors.New("notification: new: nil session")
	}
	if sink == nil {
		sink = nopSink{}
	}
	s := &Store{env: env, sink: sink}
	for _, o := range opts {
		o(s)
	}
	s.Uninit()
	return s, nil
}

// Init binds the store to owner and clears every slot. Calling it again
// re-clears.
func (s *Store) Init(owner types.PlayerID) {
	s.Uninit()
	s.owner = owner
	s.begin, s.end = 0, 0
}

// Uninit unbinds the store and resets it to the empty invalid range.
func (s *Store) Uninit() {
	s.owner = types.PlayerNone
	s.nextLookupID = 0
	s.begin, s.end = -1, -1
	for i := range s.records {
		s.records[i].Clear()
	}
}

// Owner returns the bound player, or PlayerNone.
func (s *Store) Owner() types.PlayerID { return s.owner }

// NextLookupID returns the id the next accepted Add will use.
func (s *Store) NextLookupID() int32 { return s.nextLookupID }

// ─── Add ──────────────────────────────────────────────────────────────────────

// Add queues a notification and returns its lookup id. ok is false when the
// owner may not record notifications, debug mode is on, or an equivalent
// live record already exists.
func (s *Store) Add(kind types.Kind, message, summary string, x, y, primary, secondary int32) (id int32, ok bool) {
	sess := s.env.Session
	if kind == types.KindNone || s.unbound() || s.owner == types.PlayerNone || !sess.IsHuman(s.owner) {
		s.observe(EventRejected, kind)
		return 0, false
	}
	if sess.IsDebugMode() {
		s.observe(EventRejected, kind)
		return 0, false
	}

	cand := types.Record{
		Kind:           kind,
		Message:        message,
		Summary:        summary,
		X:              x,
		Y:              y,
		PrimaryData:    primary,
		SecondaryData:  secondary,
		Turn:           sess.GameTurn(),
		LookupID:       s.nextLookupID,
		NeedsBroadcast: true,
		Owner:          s.owner,
	}
	// Human-to-human deals carry the sender in X only.
	if kind == types.KindPlayerDealReceived && sess.IsNetworkMultiplayer() && cand.PrimaryData == types.NoData {
		cand.PrimaryData = cand.X
	}
	if sess.IsTurnActive(s.owner) && sess.IsAutoMoves(s.owner) && s.expiresAtEndOfTurn(&cand, false) {
		cand.WaitExtraTurn = true
	}

	if s.isRedundant(&cand) {
		s.observe(EventRejected, kind)
		return 0, false
	}
	if s.isFull() {
		s.evictOldest()
	}

	r := &s.records[s.end]
	*r = cand
	if sess.IsFinalInitialized() {
		active := sess.ActivePlayer()
		if r.Owner == active && (!sess.IsSharedTurn() || sess.IsTurnActive(active)) {
			s.deliver(r)
			if kind != types.KindProduction && (kind != types.KindCityTile || !sess.CityExpansionUI()) {
				s.sink.Perform(r.Owner, types.Action{Type: types.ActionPlayFX, Player: r.Owner, X: r.X, Y: r.Y})
			}
		}
		s.ping(r)
	}

	s.end = advance(s.end)
	s.nextLookupID++
	s.observe(EventAdded, kind)
	return r.LookupID, true
}

// AddByName is Add for a kind given by name; unknown names hash into the
// opaque range. An empty name is rejected.
func (s *Store) AddByName(name, message, summary string, x, y, primary, secondary int32) (int32, bool) {
	if name == "" {
		s.observe(EventRejected, types.KindNone)
		return 0, false
	}
	return s.Add(types.KindFromName(name), message, summary, x, y, primary, secondary)
}

// ─── Dismiss / Activate ───────────────────────────────────────────────────────

// Dismiss marks the record inert and retracts it from the UI. Unknown or
// already-dismissed ids are a no-op.
func (s *Store) Dismiss(id int32, userInvoked bool) {
	r := s.find(id)
	if r == nil || r.Dismissed {
		return
	}
	r.Dismissed = true
	s.sink.Retract(r.LookupID, r.Owner)
	s.observe(EventDismissed, r.Kind)

	if r.Kind == types.KindPolicy && userInvoked && r.Owner == s.env.Session.ActivePlayer() {
		s.sink.SetSeenFlag(types.KindPolicy)
	}
}

// Activate runs the UI activation side effect for a live record followed by
// its kind's follow-up actions. It never dismisses.
func (s *Store) Activate(id int32) {
	r := s.find(id)
	if r == nil || r.Dismissed {
		return
	}
	s.sink.Activate(*r)
	s.ping(r)
	if fn, ok := activations[r.Kind]; ok {
		fn(s, r)
		return
	}
	s.lookAt(r)
}

// MayUserDismiss reports whether the player may dismiss the record directly.
// Unknown ids report false.
func (s *Store) MayUserDismiss(id int32) bool {
	r := s.find(id)
	if r == nil {
		return false
	}
	if r.Kind == types.KindPolicy {
		return s.env.Session.PolicySaving()
	}
	return !notUserDismissible.has(r.Kind)
}

// ─── Turn lifecycle ───────────────────────────────────────────────────────────

// Update expires stale records and delivers pending ones. Call once per tick.
func (s *Store) Update() {
	sess := s.env.Session
	s.eachLive(func(r *types.Record) bool {
		if s.isExpired(r) {
			s.Dismiss(r.LookupID, false)
			s.observe(EventExpired, r.Kind)
			return true
		}
		if !r.NeedsBroadcast {
			return true
		}
		active := sess.ActivePlayer()
		switch {
		case r.Owner == active:
			if !sess.IsSharedTurn() || sess.IsTurnActive(active) {
				s.deliver(r)
			}
		case sess.IsPlayerConnected(r.Owner):
			// A connected remote owner sees it on their own client.
			r.NeedsBroadcast = false
		}
		return true
	})
}

// EndOfTurnCleanup dismisses end-of-turn-expiring records. A record created
// during automated moves survives one extra call.
func (s *Store) EndOfTurnCleanup() {
	s.eachLive(func(r *types.Record) bool {
		if !s.expiresAtEndOfTurn(r, true) {
			return true
		}
		if r.WaitExtraTurn {
			r.WaitExtraTurn = false
			return true
		}
		s.Dismiss(r.LookupID, false)
		return true
	})
}

// GetEndTurnBlockedType returns the first live record, in buffer order, that
// prevents the owner ending the turn.
func (s *Store) GetEndTurnBlockedType() (types.BlockingType, int32, bool) {
	bt, id := types.BlockingNone, int32(-1)
	s.eachLive(func(r *types.Record) bool {
		if b, ok := s.blockingFor(r.Kind); ok {
			bt, id = b, r.LookupID
			return false
		}
		return true
	})
	return bt, id, bt != types.BlockingNone
}

// Rebroadcast marks every live record for re-delivery.
func (s *Store) Rebroadcast() {
	s.eachLive(func(r *types.Record) bool {
		r.NeedsBroadcast = true
		return true
	})
}

// ─── Accessors ────────────────────────────────────────────────────────────────

// Count is the number of records in the live range, dismissed ones included.
func (s *Store) Count() int {
	if s.unbound() {
		return 0
	}
	if s.end >= s.begin {
		return int(s.end - s.begin)
	}
	return int(MaxNotifications - s.begin + s.end)
}

// RecordAt returns a copy of the i-th record from begin.
func (s *Store) RecordAt(i int) (types.Record, bool) {
	idx, ok := s.slot(i)
	if !ok {
		return types.Record{}, false
	}
	return s.records[idx], true
}

func (s *Store) MessageAt(i int) string {
	r, _ := s.RecordAt(i)
	return r.Message
}

func (s *Store) SummaryAt(i int) string {
	r, _ := s.RecordAt(i)
	return r.Summary
}

// IDAt returns -1 when i is out of range.
func (s *Store) IDAt(i int) int32 {
	r, ok := s.RecordAt(i)
	if !ok {
		return -1
	}
	return r.LookupID
}

// TurnAt returns -1 when i is out of range.
func (s *Store) TurnAt(i int) int32 {
	r, ok := s.RecordAt(i)
	if !ok {
		return -1
	}
	return r.Turn
}

func (s *Store) DismissedAt(i int) bool {
	r, _ := s.RecordAt(i)
	return r.Dismissed
}

// Find returns a copy of the in-range record with lookup id.
func (s *Store) Find(id int32) (types.Record, bool) {
	r := s.find(id)
	if r == nil {
		return types.Record{}, false
	}
	return *r, true
}

// Records returns a copy of the live range in buffer order.
func (s *Store) Records() []types.Record {
	out := make([]types.Record, 0, s.Count())
	s.each(func(r *types.Record) bool {
		out = append(out, *r)
		return true
	})
	return out
}

// ─── internal helpers ─────────────────────────────────────────────────────────

func (s *Store) deliver(r *types.Record) {
	s.sink.Deliver(*r)
	r.NeedsBroadcast = false
	s.observe(EventDelivered, r.Kind)
}

func (s *Store) ping(r *types.Record) {
	s.sink.Perform(r.Owner, types.Action{
		Type:   types.ActionMinimapPing,
		Player: r.Owner,
		X:      r.X,
		Y:      r.Y,
		Data1:  r.LookupID + 1, // 0 is the selected unit
	})
}

func (s *Store) observe(t EventType, k types.Kind) {
	if s.obs != nil {
		s.obs.Observe(Event{Type: t, Owner: s.owner, Kind: k})
	}
}

package notification

import "github.com/sneh-joshi/notifyring/internal/types"

// ─── Turn / game context ──────────────────────────────────────────────────────

// Session is the turn and focus context a Store consults on every operation.
// It replaces ambient "current game" lookups: the host passes one in.
type Session interface {
	// GameTurn is the current game turn number.
	GameTurn() int32
	// ActivePlayer is the focused human player. During AI turns it is the last
	// human to have played.
	ActivePlayer() types.PlayerID
	// IsFinalInitialized reports whether the game has finished loading and UI
	// side effects may be emitted.
	IsFinalInitialized() bool
	// IsDebugMode suppresses all recording while true.
	IsDebugMode() bool

	// IsSharedTurn reports a hotseat game: several humans share one client,
	// so delivery waits until the owner's turn is active.
	IsSharedTurn() bool
	IsMultiplayer() bool
	IsNetworkMultiplayer() bool

	IsHuman(p types.PlayerID) bool
	IsTurnActive(p types.PlayerID) bool
	// IsAutoMoves reports whether p is in the automated end-of-turn phase.
	IsAutoMoves(p types.PlayerID) bool
	// IsPlayerConnected reports a remote human with a live network client.
	IsPlayerConnected(p types.PlayerID) bool
	IsPlayerHotJoining(p types.PlayerID) bool

	// Game options that change per-kind behaviour.
	PolicySaving() bool
	CityExpansionUI() bool
	AutoEndTurnEnabled() bool
}

// ─── Domain predicates ────────────────────────────────────────────────────────
//
// Every method is a side-effect-free query. The Store never caches answers:
// they are re-evaluated on each Update.

// PlayerQueries answers questions about one player's economy and choices.
type PlayerQueries interface {
	IsAlive(p types.PlayerID) bool
	CanAffordPlot(p types.PlayerID) bool
	HasCurrentResearch(p types.PlayerID) bool
	NumResearchableTechs(p types.PlayerID) int
	NumFreeTechs(p types.PlayerID) int
	// CanAdoptPolicy reports whether stored culture covers the next policy.
	CanAdoptPolicy(p types.PlayerID) bool
	// NumFreePolicies counts free policies and free tenets together.
	NumFreePolicies(p types.PlayerID) int
	NumFreeGreatPeople(p types.PlayerID) int
	NumMayaBoosts(p types.PlayerID) int
	NumFaithGreatPeople(p types.PlayerID) int
	NumArchaeologyChoices(p types.PlayerID) int
	HasIdeology(p types.PlayerID) bool
	ResourceAvailable(p types.PlayerID, resource int32) int
	Capital(p types.PlayerID) (x, y int32, ok bool)
	// IsEventActive reports whether player event is still active and has at
	// least one valid choice left.
	IsEventActive(p types.PlayerID, event int32) bool
}

// UnitInfo is the slice of unit state the Store cares about.
type UnitInfo struct {
	X, Y           int32
	PromotionReady bool
}

// UnitQueries looks up units by owner and id.
type UnitQueries interface {
	Unit(p types.PlayerID, unit int32) (UnitInfo, bool)
}

// CityInfo is the slice of city state the Store cares about.
type CityInfo struct {
	ID             int32
	Owner          types.PlayerID
	Puppet         bool
	OrderQueueLen  int
	CanChooseTile  bool
	PendingCapture bool
}

// MapQueries answers tile-level questions.
type MapQueries interface {
	HasBarbarianCamp(x, y int32) bool
	HasGoody(p types.PlayerID, x, y int32) bool
	CityAt(x, y int32) (CityInfo, bool)
}

// CityQueries looks up cities by owner and id.
type CityQueries interface {
	City(p types.PlayerID, id int32) (CityInfo, bool)
	CanRangeStrike(p types.PlayerID, id int32) bool
	// IsCityEventActive reports whether event is still active in the city and
	// has at least one valid choice left.
	IsCityEventActive(p types.PlayerID, city, event int32) bool
}

// DiplomacyQueries covers deals, victory votes and war state.
type DiplomacyQueries interface {
	ProposedDealExists(from, to types.PlayerID) bool
	HasVoteCast(p types.PlayerID) bool
	VictoryVotesExpected() int
	AtWar(p, other types.PlayerID) bool
}

// ReligionQueries covers pantheon and religion founding state.
type ReligionQueries interface {
	CanCreatePantheon(p types.PlayerID) bool
	HasAddedReformationBelief(p types.PlayerID) bool
	ReligionsStillToFound() int
	IsAlwaysReligion(p types.PlayerID) bool
	HasCreatedReligion(p types.PlayerID) bool
	// CanEnhanceReligion is false once the owned religion is enhanced or no
	// enhancer or follower beliefs remain.
	CanEnhanceReligion(p types.PlayerID) bool
}

// LeagueQueries covers world congress eligibility.
type LeagueQueries interface {
	CanPropose(p types.PlayerID, league int32) bool
	CanVote(p types.PlayerID, league int32) bool
}

// EspionageQueries covers spy outcomes.
type EspionageQueries interface {
	TechsToSteal(p, from types.PlayerID) int
	HasRecentIntrigueAbout(p, other types.PlayerID) bool
	// PendingSpyEvents counts spy events awaiting p's choice in city.
	PendingSpyEvents(p types.PlayerID, city int32) int
}

// Env bundles the capabilities a Store consults. Session is required; a nil
// predicate interface makes every rule that needs it report "not expired"
// and skips activation follow-ups that need it.
type Env struct {
	Session   Session
	Players   PlayerQueries
	Units     UnitQueries
	Map       MapQueries
	Cities    CityQueries
	Diplomacy DiplomacyQueries
	Religion  ReligionQueries
	Leagues   LeagueQueries
	Espionage EspionageQueries
}

// ─── Presentation sink ────────────────────────────────────────────────────────

// Sink is the abstract UI surface. Calls are synchronous and must not block.
type Sink interface {
	// Deliver shows a record to its owner for the first time.
	Deliver(r types.Record)
	// Retract removes a record from the owner's UI.
	Retract(lookupID int32, owner types.PlayerID)
	// Activate is the UI activation side effect for a record.
	Activate(r types.Record)
	// SetSeenFlag tells the UI that the owner consciously dismissed kind.
	SetSeenFlag(kind types.Kind)
	// Perform carries one activation or delivery follow-up action.
	Perform(owner types.PlayerID, a types.Action)
}

type nopSink struct{}

func (nopSink) Deliver(types.Record)                 {}
func (nopSink) Retract(int32, types.PlayerID)        {}
func (nopSink) Activate(types.Record)                {}
func (nopSink) SetSeenFlag(types.Kind)               {}
func (nopSink) Perform(types.PlayerID, types.Action) {}

// ─── Observer ─────────────────────────────────────────────────────────────────

// EventType enumerates the store transitions reported to an Observer.
type EventType uint8

const (
	EventAdded EventType = iota + 1
	EventRejected
	EventEvicted
	EventDismissed
	EventExpired
	EventDelivered
)

func (e EventType) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventRejected:
		return "rejected"
	case EventEvicted:
		return "evicted"
	case EventDismissed:
		return "dismissed"
	case EventExpired:
		return "expired"
	case EventDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Event is one observed transition.
type Event struct {
	Type  EventType
	Owner types.PlayerID
	Kind  types.Kind
}

// Observer receives store transitions, e.g. for metrics. Must not block.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

package notification_test

import (
	"testing"

	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/session"
	"github.com/sneh-joshi/notifyring/internal/types"
)

// ─── world fakes ──────────────────────────────────────────────────────────────

type tile struct{ x, y int32 }

type fakeMap struct {
	camps   map[tile]bool
	goodies map[tile]bool
	cities  map[tile]notification.CityInfo
}

func (f *fakeMap) HasBarbarianCamp(x, y int32) bool           { return f.camps[tile{x, y}] }
func (f *fakeMap) HasGoody(_ types.PlayerID, x, y int32) bool { return f.goodies[tile{x, y}] }

func (f *fakeMap) CityAt(x, y int32) (notification.CityInfo, bool) {
	c, ok := f.cities[tile{x, y}]
	return c, ok
}

type cityEvent struct{ city, event int32 }

type fakeCities struct {
	cities    map[int32]notification.CityInfo
	canStrike map[int32]bool
	events    map[cityEvent]bool
}

func (f *fakeCities) City(_ types.PlayerID, id int32) (notification.CityInfo, bool) {
	c, ok := f.cities[id]
	return c, ok
}
func (f *fakeCities) CanRangeStrike(_ types.PlayerID, id int32) bool { return f.canStrike[id] }
func (f *fakeCities) IsCityEventActive(_ types.PlayerID, city, event int32) bool {
	return f.events[cityEvent{city, event}]
}

type fakeUnits struct {
	units map[int32]notification.UnitInfo
}

func (f *fakeUnits) Unit(_ types.PlayerID, id int32) (notification.UnitInfo, bool) {
	u, ok := f.units[id]
	return u, ok
}

type deal struct{ from, to types.PlayerID }

type fakeDiplomacy struct {
	deals         map[deal]bool
	voteCast      bool
	votesExpected int
	atWar         bool
}

func (f *fakeDiplomacy) ProposedDealExists(from, to types.PlayerID) bool { return f.deals[deal{from, to}] }
func (f *fakeDiplomacy) HasVoteCast(types.PlayerID) bool                 { return f.voteCast }
func (f *fakeDiplomacy) VictoryVotesExpected() int                       { return f.votesExpected }
func (f *fakeDiplomacy) AtWar(_, _ types.PlayerID) bool                  { return f.atWar }

type fakeReligion struct {
	canPantheon  bool
	reformation  bool
	stillToFound int
	always       bool
	created      bool
	canEnhance   bool
}

func (f *fakeReligion) CanCreatePantheon(types.PlayerID) bool         { return f.canPantheon }
func (f *fakeReligion) HasAddedReformationBelief(types.PlayerID) bool { return f.reformation }
func (f *fakeReligion) ReligionsStillToFound() int                    { return f.stillToFound }
func (f *fakeReligion) IsAlwaysReligion(types.PlayerID) bool          { return f.always }
func (f *fakeReligion) HasCreatedReligion(types.PlayerID) bool        { return f.created }
func (f *fakeReligion) CanEnhanceReligion(types.PlayerID) bool        { return f.canEnhance }

type fakeLeagues struct {
	propose map[int32]bool
	vote    map[int32]bool
}

func (f *fakeLeagues) CanPropose(_ types.PlayerID, league int32) bool { return f.propose[league] }
func (f *fakeLeagues) CanVote(_ types.PlayerID, league int32) bool    { return f.vote[league] }

type fakeEspionage struct {
	techs     map[types.PlayerID]int
	intrigue  bool
	spyEvents map[int32]int
}

func (f *fakeEspionage) TechsToSteal(_, from types.PlayerID) int         { return f.techs[from] }
func (f *fakeEspionage) HasRecentIntrigueAbout(_, _ types.PlayerID) bool { return f.intrigue }
func (f *fakeEspionage) PendingSpyEvents(_ types.PlayerID, city int32) int {
	return f.spyEvents[city]
}

// world bundles every collaborator so a case can flip any piece of state.
type world struct {
	sess      *session.Static
	players   *fakePlayers
	units     *fakeUnits
	gameMap   *fakeMap
	cities    *fakeCities
	diplomacy *fakeDiplomacy
	religion  *fakeReligion
	leagues   *fakeLeagues
	espionage *fakeEspionage
}

func newWorld() *world {
	return &world{
		players: &fakePlayers{},
		units:   &fakeUnits{units: map[int32]notification.UnitInfo{}},
		gameMap: &fakeMap{
			camps:   map[tile]bool{},
			goodies: map[tile]bool{},
			cities:  map[tile]notification.CityInfo{},
		},
		cities: &fakeCities{
			cities:    map[int32]notification.CityInfo{},
			canStrike: map[int32]bool{},
			events:    map[cityEvent]bool{},
		},
		diplomacy: &fakeDiplomacy{deals: map[deal]bool{}},
		religion:  &fakeReligion{},
		leagues:   &fakeLeagues{propose: map[int32]bool{}, vote: map[int32]bool{}},
		espionage: &fakeEspionage{techs: map[types.PlayerID]int{}, spyEvents: map[int32]int{}},
	}
}

func (w *world) env() notification.Env {
	return notification.Env{
		Players:   w.players,
		Units:     w.units,
		Map:       w.gameMap,
		Cities:    w.cities,
		Diplomacy: w.diplomacy,
		Religion:  w.religion,
		Leagues:   w.leagues,
		Espionage: w.espionage,
	}
}

// newWorldHarness wires a harness to w and returns both.
func newWorldHarness(t *testing.T, opts session.Options) (*world, *harness) {
	t.Helper()
	w := newWorld()
	h := newHarness(t, opts, w.env())
	w.sess = h.sess
	return w, h
}

var home = tile{2, 3}

// ─── expiry table ─────────────────────────────────────────────────────────────

type recordArgs struct {
	kind               types.Kind
	x, y               int32
	primary, secondary int32
}

func TestUpdate_ExpiryRules(t *testing.T) {
	cases := []struct {
		name string
		opts session.Options
		rec  recordArgs
		live func(w *world) // state that justifies the record
		gone func(w *world) // state that retires it
	}{
		{
			name: "barbarian camp cleared",
			rec:  recordArgs{types.KindBarbarian, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.camps[home] = true },
			gone: func(w *world) { delete(w.gameMap.camps, home) },
		},
		{
			name: "goody hut taken",
			rec:  recordArgs{types.KindGoody, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.goodies[home] = true },
			gone: func(w *world) { delete(w.gameMap.goodies, home) },
		},
		{
			name: "city range attack spent",
			rec:  recordArgs{types.KindCityRangeAttack, 2, 3, 4, -1},
			live: func(w *world) {
				w.cities.cities[4] = notification.CityInfo{ID: 4, Owner: me}
				w.cities.canStrike[4] = true
			},
			gone: func(w *world) { w.cities.canStrike[4] = false },
		},
		{
			name: "city range attack city lost",
			rec:  recordArgs{types.KindCityRangeAttack, 2, 3, 4, -1},
			live: func(w *world) {
				w.cities.cities[4] = notification.CityInfo{ID: 4, Owner: me}
				w.cities.canStrike[4] = true
			},
			gone: func(w *world) { delete(w.cities.cities, 4) },
		},
		{
			name: "production city missing",
			rec:  recordArgs{types.KindProduction, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			gone: func(w *world) { delete(w.gameMap.cities, home) },
		},
		{
			name: "production city captured",
			rec:  recordArgs{types.KindProduction, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			gone: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: 1} },
		},
		{
			name: "production city puppeted",
			rec:  recordArgs{types.KindProduction, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			gone: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me, Puppet: true} },
		},
		{
			name: "production queued",
			rec:  recordArgs{types.KindProduction, 2, 3, -1, -1},
			live: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			gone: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me, OrderQueueLen: 1} },
		},
		{
			name: "city tile chosen",
			opts: session.Options{CityExpansionUI: true},
			rec:  recordArgs{types.KindCityTile, 2, 3, -1, -1},
			live: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me, CanChooseTile: true}
			},
			gone: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
		},
		{
			name: "city tile city changed hands",
			opts: session.Options{CityExpansionUI: true},
			rec:  recordArgs{types.KindCityTile, 2, 3, -1, -1},
			live: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me, CanChooseTile: true}
			},
			gone: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: 1, CanChooseTile: true}
			},
		},
		{
			name: "unit promoted",
			rec:  recordArgs{types.KindUnitPromotion, 4, 5, -1, 9},
			live: func(w *world) { w.units.units[9] = notification.UnitInfo{X: 4, Y: 5, PromotionReady: true} },
			gone: func(w *world) { w.units.units[9] = notification.UnitInfo{X: 4, Y: 5} },
		},
		{
			name: "promoted unit died",
			rec:  recordArgs{types.KindUnitPromotion, 4, 5, -1, 9},
			live: func(w *world) { w.units.units[9] = notification.UnitInfo{X: 4, Y: 5, PromotionReady: true} },
			gone: func(w *world) { delete(w.units.units, 9) },
		},
		{
			name: "city fate decided",
			rec:  recordArgs{types.KindChooseCityFate, 2, 3, -1, -1},
			live: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me, PendingCapture: true}
			},
			gone: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
		},
		{
			name: "diplo vote cast",
			rec:  recordArgs{types.KindDiploVote, -1, -1, -1, -1},
			live: func(w *world) { w.diplomacy.votesExpected = 2 },
			gone: func(w *world) { w.diplomacy.voteCast = true },
		},
		{
			name: "diplo vote no longer expected",
			rec:  recordArgs{types.KindDiploVote, -1, -1, -1, -1},
			live: func(w *world) { w.diplomacy.votesExpected = 2 },
			gone: func(w *world) { w.diplomacy.votesExpected = 0 },
		},
		{
			// The partner travels in X; PrimaryData is unrelated.
			name: "player deal withdrawn",
			rec:  recordArgs{types.KindPlayerDeal, 3, -1, 5, -1},
			live: func(w *world) { w.diplomacy.deals[deal{me, 3}] = true },
			gone: func(w *world) { delete(w.diplomacy.deals, deal{me, 3}) },
		},
		{
			name: "received deal withdrawn",
			rec:  recordArgs{types.KindPlayerDealReceived, 3, -1, 5, -1},
			live: func(w *world) { w.diplomacy.deals[deal{3, me}] = true },
			gone: func(w *world) { delete(w.diplomacy.deals, deal{3, me}) },
		},
		{
			name: "player finished connecting",
			rec:  recordArgs{types.KindPlayerConnecting, -1, -1, 2, -1},
			live: func(w *world) { w.sess.SetHotJoining(2, true) },
			gone: func(w *world) { w.sess.SetHotJoining(2, false) },
		},
		{
			name: "nothing left to steal",
			rec:  recordArgs{types.KindSpyStoleTech, -1, -1, 2, -1},
			live: func(w *world) { w.espionage.techs[2] = 1 },
			gone: func(w *world) { w.espionage.techs[2] = 0 },
		},
		{
			name: "pantheon founded",
			rec:  recordArgs{types.KindFoundPantheon, -1, -1, -1, -1},
			live: func(w *world) { w.religion.canPantheon = true },
			gone: func(w *world) { w.religion.canPantheon = false },
		},
		{
			name: "reformation belief added",
			rec:  recordArgs{types.KindAddReformationBelief, -1, -1, -1, -1},
			live: func(w *world) {},
			gone: func(w *world) { w.religion.reformation = true },
		},
		{
			name: "no religions left to found",
			rec:  recordArgs{types.KindFoundReligion, 2, 3, -1, -1},
			live: func(w *world) { w.religion.stillToFound = 1 },
			gone: func(w *world) { w.religion.stillToFound = 0 },
		},
		{
			name: "always-religion founded",
			rec:  recordArgs{types.KindFoundReligion, 2, 3, -1, -1},
			live: func(w *world) { w.religion.always = true },
			gone: func(w *world) { w.religion.created = true },
		},
		{
			name: "religion enhanced",
			rec:  recordArgs{types.KindEnhanceReligion, 2, 3, -1, -1},
			live: func(w *world) { w.religion.canEnhance = true },
			gone: func(w *world) { w.religion.canEnhance = false },
		},
		{
			name: "league proposals closed",
			rec:  recordArgs{types.KindLeagueCallForProposals, -1, -1, 1, -1},
			live: func(w *world) { w.leagues.propose[1] = true },
			gone: func(w *world) { delete(w.leagues.propose, 1) },
		},
		{
			name: "league votes closed",
			rec:  recordArgs{types.KindLeagueCallForVotes, -1, -1, 1, -1},
			live: func(w *world) { w.leagues.vote[1] = true },
			gone: func(w *world) { delete(w.leagues.vote, 1) },
		},
		{
			name: "ideology chosen",
			rec:  recordArgs{types.KindChooseIdeology, -1, -1, 0, -1},
			live: func(w *world) {},
			gone: func(w *world) { w.players.ideology = true },
		},
		{
			name: "policy adopted",
			rec:  recordArgs{types.KindPolicy, -1, -1, -1, -1},
			live: func(w *world) { w.players.canAdopt = true },
			gone: func(w *world) { w.players.canAdopt = false },
		},
		{
			name: "player event resolved",
			rec:  recordArgs{types.KindPlayerEvent, -1, -1, 3, -1},
			live: func(w *world) {},
			gone: func(w *world) { w.players.eventsOver = true },
		},
		{
			name: "city event resolved",
			rec:  recordArgs{types.KindCityEvent, -1, -1, 3, 4},
			live: func(w *world) {
				w.cities.cities[4] = notification.CityInfo{ID: 4, Owner: me}
				w.cities.events[cityEvent{4, 3}] = true
			},
			gone: func(w *world) { w.cities.events[cityEvent{4, 3}] = false },
		},
		{
			name: "city event city lost",
			rec:  recordArgs{types.KindCityEvent, -1, -1, 3, 4},
			live: func(w *world) {
				w.cities.cities[4] = notification.CityInfo{ID: 4, Owner: me}
				w.cities.events[cityEvent{4, 3}] = true
			},
			gone: func(w *world) { delete(w.cities.cities, 4) },
		},
		{
			name: "spy city event resolved",
			rec:  recordArgs{types.KindSpyCityEvent, 2, 3, 3, -1},
			live: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 6, Owner: 1}
				w.espionage.spyEvents[6] = 1
			},
			gone: func(w *world) { w.espionage.spyEvents[6] = 0 },
		},
		{
			name: "spy city event city razed",
			rec:  recordArgs{types.KindSpyCityEvent, 2, 3, 3, -1},
			live: func(w *world) {
				w.gameMap.cities[home] = notification.CityInfo{ID: 6, Owner: 1}
				w.espionage.spyEvents[6] = 1
			},
			gone: func(w *world) { delete(w.gameMap.cities, home) },
		},
		{
			name: "demanded resource obtained",
			rec:  recordArgs{types.KindDemandResource, -1, -1, 5, -1},
			live: func(w *world) { w.players.resource = -1 },
			gone: func(w *world) { w.players.resource = 0 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := newWorldHarness(t, tc.opts)
			tc.live(w)
			a := tc.rec
			id := h.add(t, a.kind, a.x, a.y, a.primary, a.secondary)

			h.store.Update()
			if r, _ := h.store.Find(id); r.Dismissed {
				t.Fatal("record expired while its state still holds")
			}

			tc.gone(w)
			h.store.Update()
			if r, _ := h.store.Find(id); !r.Dismissed {
				t.Fatal("record should expire once its state is gone")
			}
			if h.sink.retracted[id] != 1 {
				t.Fatalf("retractions: want 1, got %d", h.sink.retracted[id])
			}
		})
	}
}

func TestUpdate_MissingCollaboratorKeepsRecord(t *testing.T) {
	cases := []struct {
		name string
		opts session.Options
		env  notification.Env
		rec  recordArgs
	}{
		{name: "barbarian", rec: recordArgs{types.KindBarbarian, 2, 3, -1, -1}},
		{name: "goody", rec: recordArgs{types.KindGoody, 2, 3, -1, -1}},
		{name: "city range attack", rec: recordArgs{types.KindCityRangeAttack, 2, 3, 4, -1}},
		{name: "production", rec: recordArgs{types.KindProduction, 2, 3, -1, -1}},
		{name: "city tile", opts: session.Options{CityExpansionUI: true}, rec: recordArgs{types.KindCityTile, 2, 3, -1, -1}},
		{name: "unit promotion", rec: recordArgs{types.KindUnitPromotion, 4, 5, -1, 9}},
		{name: "choose city fate", rec: recordArgs{types.KindChooseCityFate, 2, 3, -1, -1}},
		{name: "diplo vote", rec: recordArgs{types.KindDiploVote, -1, -1, -1, -1}},
		{name: "player deal", rec: recordArgs{types.KindPlayerDeal, 3, -1, -1, -1}},
		{name: "player deal received", rec: recordArgs{types.KindPlayerDealReceived, 3, -1, -1, -1}},
		{name: "spy stole tech", rec: recordArgs{types.KindSpyStoleTech, -1, -1, 2, -1}},
		{name: "found pantheon", rec: recordArgs{types.KindFoundPantheon, -1, -1, -1, -1}},
		{name: "reformation belief", rec: recordArgs{types.KindAddReformationBelief, -1, -1, -1, -1}},
		{name: "found religion", rec: recordArgs{types.KindFoundReligion, 2, 3, -1, -1}},
		{name: "enhance religion", rec: recordArgs{types.KindEnhanceReligion, 2, 3, -1, -1}},
		{name: "league proposals", rec: recordArgs{types.KindLeagueCallForProposals, -1, -1, 1, -1}},
		{name: "league votes", rec: recordArgs{types.KindLeagueCallForVotes, -1, -1, 1, -1}},
		{name: "choose ideology", rec: recordArgs{types.KindChooseIdeology, -1, -1, 0, -1}},
		{name: "player event", rec: recordArgs{types.KindPlayerEvent, -1, -1, 3, -1}},
		{name: "city event", rec: recordArgs{types.KindCityEvent, -1, -1, 3, 4}},
		{name: "demand resource", rec: recordArgs{types.KindDemandResource, -1, -1, 5, -1}},
		{
			// Both the map and espionage are needed.
			name: "spy city event without espionage",
			env:  notification.Env{Map: &fakeMap{cities: map[tile]notification.CityInfo{}}},
			rec:  recordArgs{types.KindSpyCityEvent, 2, 3, 3, -1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.opts, tc.env)
			a := tc.rec
			id := h.add(t, a.kind, a.x, a.y, a.primary, a.secondary)

			h.store.Update()
			if r, _ := h.store.Find(id); r.Dismissed {
				t.Fatal("missing collaborator must not expire the record")
			}
		})
	}
}

func TestUpdate_EventWithoutIDExpires(t *testing.T) {
	h := newHarness(t, session.Options{}, notification.Env{})
	ids := []int32{
		h.add(t, types.KindPlayerEvent, -1, -1, -1, -1),
		h.add(t, types.KindCityEvent, -1, -1, -1, 4),
		h.add(t, types.KindSpyCityEvent, 2, 3, -1, -1),
	}

	h.store.Update()
	for _, id := range ids {
		if r, _ := h.store.Find(id); !r.Dismissed {
			t.Errorf("record %d (%v): want expired without an event id", id, r.Kind)
		}
	}
}

func TestUpdate_LocatedDemandStays(t *testing.T) {
	w, h := newWorldHarness(t, session.Options{})
	w.players.resource = 3
	id := h.add(t, types.KindDemandResource, 2, 3, 5, -1)

	h.store.Update()
	if r, _ := h.store.Find(id); r.Dismissed {
		t.Fatal("a demand tied to a tile must not expire on resource availability")
	}
}

func TestUpdate_CityTileNeedsExpansionUI(t *testing.T) {
	_, h := newWorldHarness(t, session.Options{})
	id := h.add(t, types.KindCityTile, 2, 3, -1, -1)

	h.store.Update()
	if r, _ := h.store.Find(id); r.Dismissed {
		t.Fatal("city tile must not expire without the expansion UI")
	}
}

func TestGetEndTurnBlockedType_RangeAttackClearsOnExpiry(t *testing.T) {
	w, h := newWorldHarness(t, session.Options{AutoEndTurn: true})
	w.cities.cities[4] = notification.CityInfo{ID: 4, Owner: me}
	w.cities.canStrike[4] = true
	id := h.add(t, types.KindCityRangeAttack, 2, 3, 4, -1)

	if bt, got, ok := h.store.GetEndTurnBlockedType(); !ok || bt != types.BlockingCityRangeAttack || got != id {
		t.Fatalf("want city_range_attack/%d, got %v/%d", id, bt, got)
	}

	w.cities.canStrike[4] = false
	h.store.Update()
	if bt, _, ok := h.store.GetEndTurnBlockedType(); ok {
		t.Fatalf("want unblocked after the strike is spent, got %v", bt)
	}
}

// ─── activation table ─────────────────────────────────────────────────────────

func TestActivate_FollowUps(t *testing.T) {
	const none = types.NoData
	popup := func(p types.Popup, x, y, d1, d2, d3 int32) types.Action {
		return types.Action{Type: types.ActionPopup, Player: me, Popup: p, X: x, Y: y, Data1: d1, Data2: d2, Data3: d3}
	}

	cases := []struct {
		name  string
		opts  session.Options
		rec   recordArgs
		setup func(w *world)
		want  []types.Action
	}{
		{
			name:  "production opens chooser for own city",
			rec:   recordArgs{types.KindProduction, 2, 3, 7, -1},
			setup: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			want:  []types.Action{popup(types.PopupChooseProduction, 2, 3, 1, 7, -1)},
		},
		{
			name:  "production ignores foreign city",
			rec:   recordArgs{types.KindProduction, 2, 3, 7, -1},
			setup: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: 1} },
		},
		{
			name:  "city tile opens city view",
			opts:  session.Options{CityExpansionUI: true},
			rec:   recordArgs{types.KindCityTile, 2, 3, -1, -1},
			setup: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 1, Owner: me} },
			want:  []types.Action{popup(types.PopupCityView, 2, 3, 1, 0, none)},
		},
		{
			name: "city tile without expansion UI looks at tile",
			rec:  recordArgs{types.KindCityTile, 2, 3, -1, -1},
			want: []types.Action{
				{Type: types.ActionLookAt, Player: me, X: 2, Y: 3},
				{Type: types.ActionPlayFX, Player: me, X: 2, Y: 3},
			},
		},
		{
			name:  "unit promotion selects the unit",
			rec:   recordArgs{types.KindUnitPromotion, -1, -1, -1, 9},
			setup: func(w *world) { w.units.units[9] = notification.UnitInfo{X: 4, Y: 5, PromotionReady: true} },
			want: []types.Action{
				{Type: types.ActionLookAt, Player: me, X: 4, Y: 5},
				{Type: types.ActionSelectUnit, Player: me, X: 4, Y: 5, Data1: 9},
				{Type: types.ActionPlayFX, Player: me, X: 4, Y: 5},
			},
		},
		{
			name: "player deal opens deal screen with partner",
			rec:  recordArgs{types.KindPlayerDeal, 3, -1, -1, -1},
			want: []types.Action{{Type: types.ActionOpenDealScreen, Player: 3}},
		},
		{
			name: "league overview",
			rec:  recordArgs{types.KindLeagueCallForVotes, -1, -1, 1, -1},
			want: []types.Action{popup(types.PopupLeagueOverview, -1, -1, 1, -1, none)},
		},
		{
			name: "league without id is silent",
			rec:  recordArgs{types.KindLeagueVotingSoon, -1, -1, -1, -1},
		},
		{
			name: "choose ideology",
			rec:  recordArgs{types.KindChooseIdeology, -1, -1, 0, -1},
			want: []types.Action{popup(types.PopupChooseIdeology, -1, -1, 0, -1, none)},
		},
		{
			name: "found religion carries holy city",
			rec:  recordArgs{types.KindFoundReligion, 2, 3, -1, -1},
			want: []types.Action{{
				Type: types.ActionPopup, Player: me, Popup: types.PopupFoundReligion,
				X: 2, Y: 3, Data1: 2, Data2: 3, Data3: none, Flag: true,
			}},
		},
		{
			name: "enhance religion",
			rec:  recordArgs{types.KindEnhanceReligion, 2, 3, -1, -1},
			want: []types.Action{{
				Type: types.ActionPopup, Player: me, Popup: types.PopupFoundReligion,
				X: 2, Y: 3, Data1: 2, Data2: 3, Data3: none,
			}},
		},
		{
			name: "player event choice",
			rec:  recordArgs{types.KindPlayerEvent, -1, -1, 3, -1},
			want: []types.Action{popup(types.PopupPlayerEventChoice, -1, -1, 3, none, none)},
		},
		{
			name: "city event choice",
			rec:  recordArgs{types.KindCityEvent, -1, -1, 3, 4},
			want: []types.Action{popup(types.PopupCityEventChoice, -1, -1, 3, 4, none)},
		},
		{
			name:  "choose city fate",
			rec:   recordArgs{types.KindChooseCityFate, 2, 3, -1, -1},
			setup: func(w *world) { w.gameMap.cities[home] = notification.CityInfo{ID: 6, Owner: me, PendingCapture: true} },
			want:  []types.Action{popup(types.PopupCityCaptured, 2, 3, 6, none, none)},
		},
		{
			name: "culture overview opens influence tab",
			rec:  recordArgs{types.KindIdeologyChosen, -1, -1, 2, -1},
			want: []types.Action{popup(types.PopupCultureOverview, -1, -1, 2, 3, none)},
		},
		{
			name:  "intrigue opens talks with the AI",
			rec:   recordArgs{types.KindIntrigueDeception, -1, -1, 2, -1},
			setup: func(w *world) { w.espionage.intrigue = true },
			want:  []types.Action{{Type: types.ActionBeginDiplomacy, Player: 2, Data1: types.DiplomacyDiscussIntrigue}},
		},
		{
			name:  "intrigue skipped at war",
			rec:   recordArgs{types.KindIntrigueDeception, -1, -1, 2, -1},
			setup: func(w *world) {
				w.espionage.intrigue = true
				w.diplomacy.atWar = true
			},
		},
		{
			name: "free great person with none left is silent",
			rec:  recordArgs{types.KindFreeGreatPerson, -1, -1, -1, -1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := newWorldHarness(t, tc.opts)
			if tc.setup != nil {
				tc.setup(w)
			}
			a := tc.rec
			id := h.add(t, a.kind, a.x, a.y, a.primary, a.secondary)
			h.sink.actions = nil

			h.store.Activate(id)
			var got []types.Action
			for _, act := range h.sink.actions {
				if act.Type != types.ActionMinimapPing {
					got = append(got, act)
				}
			}
			if len(got) != len(tc.want) {
				t.Fatalf("actions: want %+v, got %+v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("action %d: want %+v, got %+v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestActivate_PingsMinimapWithOffsetID(t *testing.T) {
	h := newHarness(t, session.Options{}, notification.Env{})
	h.add(t, types.KindGeneric, -1, -1, -1, -1)
	id := h.add(t, types.KindWar, 6, 7, -1, -1)
	h.sink.actions = nil

	h.store.Activate(id)
	pings := h.sink.actionsOf(types.ActionMinimapPing)
	if len(pings) != 1 || pings[0].Data1 != id+1 || pings[0].X != 6 || pings[0].Y != 7 {
		t.Fatalf("want one ping with id %d at (6,7), got %+v", id+1, pings)
	}
}

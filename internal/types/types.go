// Package types contains the core domain types shared across all notifyring
// internal packages. It deliberately has zero imports of other notifyring
// packages so that the notification store, the storage layer and the
// transports can all import from it without creating import cycles.
package types

import "strconv"

// PlayerID identifies a player slot in the game.
type PlayerID int32

// PlayerNone is the unbound player sentinel.
const PlayerNone PlayerID = -1

// String returns the decimal slot number, or "none".
func (p PlayerID) String() string {
	if p == PlayerNone {
		return "none"
	}
	return strconv.Itoa(int(p))
}

// NoLocation is the coordinate sentinel meaning "this record has no tile".
const NoLocation int32 = -1

// NoData is the sentinel for an unused PrimaryData / SecondaryData slot.
const NoData int32 = -1

// ─── Record ───────────────────────────────────────────────────────────────────

// Record is one ring-buffer slot: a single queued notification.
//
// Design rules:
//   - PrimaryData and SecondaryData are untyped on purpose. Their meaning is
//     kind-dependent (city id, unit id, player id, league id, event id) and the
//     two-slot form is what gets persisted. Use the typed accessors below at API
//     boundaries instead of reading the slots directly.
//   - LookupID is the only stable external handle. Slot indices are never
//     exposed outside the notification package.
//   - Dismissed is monotonic: once true it is never reset for that record.
type Record struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Summary string `json:"summary"`

	// X, Y locate the record on the map; (-1,-1) means no location.
	X int32 `json:"x"`
	Y int32 `json:"y"`

	PrimaryData   int32 `json:"primary_data"`
	SecondaryData int32 `json:"secondary_data"`

	// Turn is the game turn the record was created on.
	Turn int32 `json:"turn"`

	// LookupID is unique for the record's lifetime within its store.
	LookupID int32 `json:"lookup_id"`

	Dismissed bool `json:"dismissed"`

	// NeedsBroadcast stays true until the owner has been shown the record.
	// Not persisted: every load forces it back to true.
	NeedsBroadcast bool `json:"needs_broadcast"`

	// WaitExtraTurn grants one extra turn of life to an end-of-turn-expiring
	// record created during the owner's automated moves. Not persisted.
	WaitExtraTurn bool `json:"wait_extra_turn"`

	Owner PlayerID `json:"owner"`
}

// Clear resets r to the empty-slot state.
func (r *Record) Clear() {
	*r = Record{
		Kind:          KindNone,
		X:             NoLocation,
		Y:             NoLocation,
		PrimaryData:   NoData,
		SecondaryData: NoData,
		Turn:          -1,
		LookupID:      -1,
		Owner:         PlayerNone,
	}
}

// HasLocation reports whether the record points at a map tile.
func (r *Record) HasLocation() bool {
	return !(r.X == NoLocation && r.Y == NoLocation)
}

// CityID is the city slot for city-range-attack records.
func (r *Record) CityID() int32 { return r.PrimaryData }

// UnitID is the unit slot for unit-promotion records.
func (r *Record) UnitID() int32 { return r.SecondaryData }

// LeagueID is the league slot for league-* records.
func (r *Record) LeagueID() int32 { return r.PrimaryData }

// ProjectID is the league project slot for league-project-* records.
func (r *Record) ProjectID() int32 { return r.SecondaryData }

// EventID is the event slot for the player, city and spy event kinds.
func (r *Record) EventID() int32 { return r.PrimaryData }

// EventCityID is the city slot for city-event records.
func (r *Record) EventCityID() int32 { return r.SecondaryData }

// OtherPlayer is the counterpart player id carried in PrimaryData by
// minor-quest, spy and intrigue records.
func (r *Record) OtherPlayer() PlayerID { return PlayerID(r.PrimaryData) }

// DealPartner is the counterpart of player-deal records, which carry the
// sending player in X.
func (r *Record) DealPartner() PlayerID { return PlayerID(r.X) }

// PairPlayers returns both slots as players, for diplomacy-declaration records.
func (r *Record) PairPlayers() (PlayerID, PlayerID) {
	return PlayerID(r.PrimaryData), PlayerID(r.SecondaryData)
}

// ─── End-turn blocking ────────────────────────────────────────────────────────

// BlockingType is the reason the owner may not end the turn yet.
type BlockingType uint8

const (
	BlockingNone BlockingType = iota
	BlockingCityRangeAttack
	BlockingDiploVote
	BlockingProduction
	BlockingCityTile
	BlockingPolicy
	BlockingFreePolicy
	BlockingResearch
	BlockingFreeTech
	BlockingFreeItems
	BlockingFoundPantheon
	BlockingFoundReligion
	BlockingEnhanceReligion
	BlockingStealTech
	BlockingMayaLongCount
	BlockingFaithGreatPerson
	BlockingAddReformationBelief
	BlockingLeagueCallForProposals
	BlockingChooseArchaeology
	BlockingLeagueCallForVotes
	BlockingChooseIdeology
	BlockingPendingDeal
	BlockingEventChoice
	BlockingChooseCityFate
)

var blockingNames = [...]string{
	BlockingNone:                   "none",
	BlockingCityRangeAttack:        "city_range_attack",
	BlockingDiploVote:              "diplo_vote",
	BlockingProduction:             "production",
	BlockingCityTile:               "city_tile",
	BlockingPolicy:                 "policy",
	BlockingFreePolicy:             "free_policy",
	BlockingResearch:               "research",
	BlockingFreeTech:               "free_tech",
	BlockingFreeItems:              "free_items",
	BlockingFoundPantheon:          "found_pantheon",
	BlockingFoundReligion:          "found_religion",
	BlockingEnhanceReligion:        "enhance_religion",
	BlockingStealTech:              "steal_tech",
	BlockingMayaLongCount:          "maya_long_count",
	BlockingFaithGreatPerson:       "faith_great_person",
	BlockingAddReformationBelief:   "add_reformation_belief",
	BlockingLeagueCallForProposals: "league_call_for_proposals",
	BlockingChooseArchaeology:      "choose_archaeology",
	BlockingLeagueCallForVotes:     "league_call_for_votes",
	BlockingChooseIdeology:         "choose_ideology",
	BlockingPendingDeal:            "pending_deal",
	BlockingEventChoice:            "event_choice",
	BlockingChooseCityFate:         "choose_city_fate",
}

// String returns a stable snake_case name.
func (b BlockingType) String() string {
	if int(b) < len(blockingNames) {
		return blockingNames[b]
	}
	return "unknown"
}

func (b BlockingType) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ─── Activation actions ───────────────────────────────────────────────────────

// ActionType is the kind of follow-up a UI performs after activation.
type ActionType uint8

const (
	// ActionLookAt moves the camera to (X, Y).
	ActionLookAt ActionType = iota + 1
	// ActionPlayFX plays the map highlight effect at (X, Y); no location means
	// a global effect.
	ActionPlayFX
	// ActionSelectUnit selects unit Data1 of Player.
	ActionSelectUnit
	// ActionPopup opens Popup with Data1..Data3 / Text / Flag as arguments.
	ActionPopup
	// ActionOpenDealScreen opens the trade screen with Player.
	ActionOpenDealScreen
	// ActionBeginDiplomacy asks AI Player to open a diplomacy session with the
	// owner; Data1 carries the DiplomacyTopic.
	ActionBeginDiplomacy
	// ActionMinimapPing flashes a minimap dot at (X, Y) identified by Data1.
	ActionMinimapPing
)

var actionNames = [...]string{
	0:                    "unknown",
	ActionLookAt:         "look_at",
	ActionPlayFX:         "play_fx",
	ActionSelectUnit:     "select_unit",
	ActionPopup:          "popup",
	ActionOpenDealScreen: "open_deal_screen",
	ActionBeginDiplomacy: "begin_diplomacy",
	ActionMinimapPing:    "minimap_ping",
}

func (a ActionType) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

func (a ActionType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Diplomacy topics carried in Action.Data1 for ActionBeginDiplomacy.
const (
	DiplomacyEspionageResult = 1
	DiplomacyDiscussIntrigue = 2
)

// Popup identifies a chooser or screen opened by ActionPopup.
type Popup uint8

const (
	PopupNone Popup = iota
	PopupWonderCompleted
	PopupGreatWorkCompleted
	PopupChooseTech
	PopupTechAward
	PopupChoosePolicy
	PopupDiploVote
	PopupCityStateMessage
	PopupChooseProduction
	PopupCityView
	PopupFreeGreatPerson
	PopupFoundPantheon
	PopupFoundReligion
	PopupEspionageOverview
	PopupChooseTechToSteal
	PopupMayaBonus
	PopupFaithGreatPerson
	PopupLeagueOverview
	PopupCultureOverview
	PopupChooseArchaeology
	PopupChooseIdeology
	PopupLeagueProjectCompleted
	PopupPlayerEventChoice
	PopupCityEventChoice
	PopupSpyCityEventChoice
	PopupCityCaptured
)

var popupNames = [...]string{
	PopupNone:                   "none",
	PopupWonderCompleted:        "wonder_completed",
	PopupGreatWorkCompleted:     "great_work_completed",
	PopupChooseTech:             "choose_tech",
	PopupTechAward:              "tech_award",
	PopupChoosePolicy:           "choose_policy",
	PopupDiploVote:              "diplo_vote",
	PopupCityStateMessage:       "city_state_message",
	PopupChooseProduction:       "choose_production",
	PopupCityView:               "city_view",
	PopupFreeGreatPerson:        "free_great_person",
	PopupFoundPantheon:          "found_pantheon",
	PopupFoundReligion:          "found_religion",
	PopupEspionageOverview:      "espionage_overview",
	PopupChooseTechToSteal:      "choose_tech_to_steal",
	PopupMayaBonus:              "maya_bonus",
	PopupFaithGreatPerson:       "faith_great_person",
	PopupLeagueOverview:         "league_overview",
	PopupCultureOverview:        "culture_overview",
	PopupChooseArchaeology:      "choose_archaeology",
	PopupChooseIdeology:         "choose_ideology",
	PopupLeagueProjectCompleted: "league_project_completed",
	PopupPlayerEventChoice:      "player_event_choice",
	PopupCityEventChoice:        "city_event_choice",
	PopupSpyCityEventChoice:     "spy_city_event_choice",
	PopupCityCaptured:           "city_captured",
}

func (p Popup) String() string {
	if int(p) < len(popupNames) {
		return popupNames[p]
	}
	return "unknown"
}

func (p Popup) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Action is one UI follow-up produced by activating a record.
type Action struct {
	Type   ActionType `json:"type"`
	Popup  Popup      `json:"popup,omitempty"`
	Player PlayerID   `json:"player"`
	X      int32      `json:"x"`
	Y      int32      `json:"y"`
	Data1  int32      `json:"data1"`
	Data2  int32      `json:"data2"`
	Data3  int32      `json:"data3"`
	Text   string     `json:"text,omitempty"`
	Flag   bool       `json:"flag,omitempty"`
}

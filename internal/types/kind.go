package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies the semantic type of a notification.
//
// Values 0..KindCount-1 are the named enumeration. Every other value except
// KindNone is an opaque modder kind: a category registered at runtime by name
// whose numeric value must round-trip exactly but has no built-in name.
type Kind int32

// KindNone marks an empty slot.
const KindNone Kind = -1

const (
	KindGeneric Kind = iota
	KindTech
	KindFreeTech
	KindPolicy
	KindFreePolicy
	KindProduction
	KindCityTile
	KindEnemyInTerritory
	KindUnitPromotion
	KindDiplomacyDeclaration
	KindFoundPantheon
	KindFoundReligion
	KindEnhanceReligion
	KindAddReformationBelief
	KindChooseArchaeology
	KindChooseIdeology
	KindLeagueCallForProposals
	KindLeagueCallForVotes
	KindLeagueVotingSoon
	KindLeagueVotingDone
	KindLeagueProjectComplete
	KindLeagueProjectProgress
	KindDiploVote
	KindPlayerDeal
	KindPlayerDealReceived
	KindFreeGreatPerson
	KindSpyStoleTech
	KindMayaLongCount
	KindFaithGreatPerson
	KindBuyTile
	KindBarbarian
	KindCityRangeAttack
	KindGoody
	KindDemandResource
	KindPlayerConnecting
	KindPlayerReconnected
	KindPlayerDisconnected
	KindHostMigration
	KindWonderCompletedActivePlayer
	KindGreatWorkCompletedActivePlayer
	KindTechAward
	KindMinorQuest
	KindSpyCreatedActivePlayer
	KindSpyEvicted
	KindSpyPromotion
	KindTechStolenSpyIdentified
	KindSpyKilledASpy
	KindIntrigueDeception
	KindIntrigueSneakAttackArmyKnownCityKnown
	KindIntrigueSneakAttackArmyKnownCityUnknown
	KindIntrigueSneakAttackAmphibKnownCityUnknown
	KindIntrigueSneakAttackAmphibKnownCityKnown
	KindIdeologyChosen
	KindCultureVictoryWithinTwo
	KindCultureVictoryWithinTwoActivePlayer
	KindCultureVictoryWithinOne
	KindCultureVictoryWithinOneActivePlayer
	KindCultureVictoryNoLongerInfluential
	KindCapitalLostActivePlayer
	KindCapitalLost
	KindWarActivePlayer
	KindWar
	KindPeaceActivePlayer
	KindPeace
	KindVictory
	KindUnitDied
	KindCityLost
	KindPlayerKilled
	KindOtherPlayerNewEra
	KindMinorBuyout
	KindLiberatedMajorCity
	KindResurrectedMajorCiv
	KindTurnModeSequential
	KindTurnModeSimultaneous
	KindPlayerKicked
	KindReligionFoundedActivePlayer
	KindReligionFounded
	KindPantheonFoundedActivePlayer
	KindPantheonFounded
	KindTradeRouteBroken
	KindReformationBeliefAddedActivePlayer
	KindReformationBeliefAdded

	// KindCount is the number of named kinds.
	KindCount
)

// Opaque kinds with built-in behaviour. Their values are the hashes the
// game's event system registers them under, so they live outside the named
// range.
const (
	KindPlayerEvent    Kind = 419811917
	KindCityEvent      Kind = 826076831
	KindSpyCityEvent   Kind = -1608954742
	KindChooseCityFate Kind = -364200720
)

var kindNames = [KindCount]string{
	KindGeneric:                                   "generic",
	KindTech:                                      "tech",
	KindFreeTech:                                  "free_tech",
	KindPolicy:                                    "policy",
	KindFreePolicy:                                "free_policy",
	KindProduction:                                "production",
	KindCityTile:                                  "city_tile",
	KindEnemyInTerritory:                          "enemy_in_territory",
	KindUnitPromotion:                             "unit_promotion",
	KindDiplomacyDeclaration:                      "diplomacy_declaration",
	KindFoundPantheon:                             "found_pantheon",
	KindFoundReligion:                             "found_religion",
	KindEnhanceReligion:                           "enhance_religion",
	KindAddReformationBelief:                      "add_reformation_belief",
	KindChooseArchaeology:                         "choose_archaeology",
	KindChooseIdeology:                            "choose_ideology",
	KindLeagueCallForProposals:                    "league_call_for_proposals",
	KindLeagueCallForVotes:                        "league_call_for_votes",
	KindLeagueVotingSoon:                          "league_voting_soon",
	KindLeagueVotingDone:                          "league_voting_done",
	KindLeagueProjectComplete:                     "league_project_complete",
	KindLeagueProjectProgress:                     "league_project_progress",
	KindDiploVote:                                 "diplo_vote",
	KindPlayerDeal:                                "player_deal",
	KindPlayerDealReceived:                        "player_deal_received",
	KindFreeGreatPerson:                           "free_great_person",
	KindSpyStoleTech:                              "spy_stole_tech",
	KindMayaLongCount:                             "maya_long_count",
	KindFaithGreatPerson:                          "faith_great_person",
	KindBuyTile:                                   "buy_tile",
	KindBarbarian:                                 "barbarian",
	KindCityRangeAttack:                           "city_range_attack",
	KindGoody:                                     "goody",
	KindDemandResource:                            "demand_resource",
	KindPlayerConnecting:                          "player_connecting",
	KindPlayerReconnected:                         "player_reconnected",
	KindPlayerDisconnected:                        "player_disconnected",
	KindHostMigration:                             "host_migration",
	KindWonderCompletedActivePlayer:               "wonder_completed_active_player",
	KindGreatWorkCompletedActivePlayer:            "great_work_completed_active_player",
	KindTechAward:                                 "tech_award",
	KindMinorQuest:                                "minor_quest",
	KindSpyCreatedActivePlayer:                    "spy_created_active_player",
	KindSpyEvicted:                                "spy_evicted",
	KindSpyPromotion:                              "spy_promotion",
	KindTechStolenSpyIdentified:                   "tech_stolen_spy_identified",
	KindSpyKilledASpy:                             "spy_killed_a_spy",
	KindIntrigueDeception:                         "intrigue_deception",
	KindIntrigueSneakAttackArmyKnownCityKnown:     "intrigue_sneak_attack_army_known_city_known",
	KindIntrigueSneakAttackArmyKnownCityUnknown:   "intrigue_sneak_attack_army_known_city_unknown",
	KindIntrigueSneakAttackAmphibKnownCityUnknown: "intrigue_sneak_attack_amphib_known_city_unknown",
	KindIntrigueSneakAttackAmphibKnownCityKnown:   "intrigue_sneak_attack_amphib_known_city_known",
	KindIdeologyChosen:                            "ideology_chosen",
	KindCultureVictoryWithinTwo:                   "culture_victory_within_two",
	KindCultureVictoryWithinTwoActivePlayer:       "culture_victory_within_two_active_player",
	KindCultureVictoryWithinOne:                   "culture_victory_within_one",
	KindCultureVictoryWithinOneActivePlayer:       "culture_victory_within_one_active_player",
	KindCultureVictoryNoLongerInfluential:         "culture_victory_no_longer_influential",
	KindCapitalLostActivePlayer:                   "capital_lost_active_player",
	KindCapitalLost:                               "capital_lost",
	KindWarActivePlayer:                           "war_active_player",
	KindWar:                                       "war",
	KindPeaceActivePlayer:                         "peace_active_player",
	KindPeace:                                     "peace",
	KindVictory:                                   "victory",
	KindUnitDied:                                  "unit_died",
	KindCityLost:                                  "city_lost",
	KindPlayerKilled:                              "player_killed",
	KindOtherPlayerNewEra:                         "other_player_new_era",
	KindMinorBuyout:                               "minor_buyout",
	KindLiberatedMajorCity:                        "liberated_major_city",
	KindResurrectedMajorCiv:                       "resurrected_major_civ",
	KindTurnModeSequential:                        "turn_mode_sequential",
	KindTurnModeSimultaneous:                      "turn_mode_simultaneous",
	KindPlayerKicked:                              "player_kicked",
	KindReligionFoundedActivePlayer:               "religion_founded_active_player",
	KindReligionFounded:                           "religion_founded",
	KindPantheonFoundedActivePlayer:               "pantheon_founded_active_player",
	KindPantheonFounded:                           "pantheon_founded",
	KindTradeRouteBroken:                          "trade_route_broken",
	KindReformationBeliefAddedActivePlayer:        "reformation_belief_added_active_player",
	KindReformationBeliefAdded:                    "reformation_belief_added",
}

// IsNamed reports whether k is inside the named enumeration.
func (k Kind) IsNamed() bool { return k >= 0 && k < KindCount }

// IsOpaque reports whether k is a modder kind outside the named enumeration.
func (k Kind) IsOpaque() bool { return k != KindNone && !k.IsNamed() }

// String returns the stable snake_case name, the registered name of an
// opaque kind, or "modder(<n>)".
func (k Kind) String() string {
	switch {
	case k == KindNone:
		return "none"
	case k.IsNamed():
		return kindNames[k]
	}
	nameMu.RLock()
	name, ok := opaqueNames[k]
	nameMu.RUnlock()
	if ok {
		return name
	}
	return "modder(" + strconv.FormatInt(int64(k), 10) + ")"
}

// ─── Name registry ────────────────────────────────────────────────────────────

var (
	nameMu      sync.RWMutex
	byName      = make(map[string]Kind)
	opaqueNames = make(map[Kind]string)
)

func init() {
	for k := Kind(0); k < KindCount; k++ {
		byName[kindNames[k]] = k
	}
	RegisterKind("player_event", KindPlayerEvent)
	RegisterKind("city_event", KindCityEvent)
	RegisterKind("spy_city_event", KindSpyCityEvent)
	RegisterKind("choose_city_fate", KindChooseCityFate)
}

// RegisterKind binds name to an opaque kind value so that KindFromName and
// String agree on it. Registering a named kind's value is a no-op.
func RegisterKind(name string, k Kind) {
	if name == "" || !k.IsOpaque() {
		return
	}
	nameMu.Lock()
	byName[name] = k
	opaqueNames[k] = name
	nameMu.Unlock()
}

// KindFromName resolves a kind name. Registered names map to their kind; any
// other non-empty name hashes into the opaque range. The empty name yields
// KindNone.
func KindFromName(name string) Kind {
	if name == "" {
		return KindNone
	}
	nameMu.RLock()
	k, ok := byName[name]
	nameMu.RUnlock()
	if ok {
		return k
	}
	return HashKind(name)
}

// HashKind maps name to an opaque kind by truncating its 64-bit xxhash. The
// rare collisions with the named range or KindNone are bumped out of it.
func HashKind(name string) Kind {
	k := Kind(int32(uint32(xxhash.Sum64String(name))))
	if !k.IsOpaque() {
		k = Kind(int32(uint32(k) ^ 0x40000000))
	}
	return k
}

// MarshalText encodes k by name so JSON frames stay readable.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts any name KindFromName accepts, plus the "none" and
// "modder(<n>)" forms String produces.
func (k *Kind) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "none" {
		*k = KindNone
		return nil
	}
	if strings.HasPrefix(s, "modder(") && strings.HasSuffix(s, ")") {
		n, err := strconv.ParseInt(s[len("modder("):len(s)-1], 10, 32)
		if err != nil {
			return fmt.Errorf("types: kind %q: %w", s, err)
		}
		*k = Kind(n)
		return nil
	}
	*k = KindFromName(s)
	return nil
}

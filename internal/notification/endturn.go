package notification

import "github.com/sneh-joshi/notifyring/internal/types"

type kindSet map[types.Kind]struct{}

func newKindSet(kinds ...types.Kind) kindSet {
	s := make(kindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s kindSet) has(k types.Kind) bool {
	_, ok := s[k]
	return ok
}

// Choice kinds never expire at end of turn; they block instead.
var endTurnExempt = newKindSet(
	types.KindPolicy,
	types.KindFreePolicy,
	types.KindTech,
	types.KindFreeTech,
	types.KindProduction,
	types.KindDiploVote,
	types.KindPlayerDeal,
	types.KindPlayerDealReceived,
	types.KindFreeGreatPerson,
	types.KindFoundPantheon,
	types.KindFoundReligion,
	types.KindEnhanceReligion,
	types.KindSpyStoleTech,
	types.KindMayaLongCount,
	types.KindFaithGreatPerson,
	types.KindAddReformationBelief,
	types.KindLeagueCallForProposals,
	types.KindChooseArchaeology,
	types.KindLeagueCallForVotes,
	types.KindChooseIdeology,
)

// Connection kinds live until the end of the turn after creation.
var connectionKinds = newKindSet(
	types.KindPlayerReconnected,
	types.KindPlayerDisconnected,
	types.KindHostMigration,
	types.KindPlayerConnecting,
)

// In multiplayer, informational kinds live until they have been broadcast and
// at least one turn boundary has passed.
var informationalKinds = newKindSet(
	types.KindUnitPromotion,
	types.KindDiplomacyDeclaration,
	types.KindCapitalLostActivePlayer,
	types.KindCapitalLost,
	types.KindWarActivePlayer,
	types.KindWar,
	types.KindPeaceActivePlayer,
	types.KindPeace,
	types.KindVictory,
	types.KindUnitDied,
	types.KindCityLost,
	types.KindPlayerKilled,
	types.KindOtherPlayerNewEra,
	types.KindMinorBuyout,
	types.KindLiberatedMajorCity,
	types.KindResurrectedMajorCiv,
	types.KindTurnModeSequential,
	types.KindTurnModeSimultaneous,
	types.KindPlayerKicked,
	types.KindReligionFoundedActivePlayer,
	types.KindReligionFounded,
	types.KindPantheonFoundedActivePlayer,
	types.KindPantheonFounded,
	types.KindTradeRouteBroken,
	types.KindReformationBeliefAddedActivePlayer,
	types.KindReformationBeliefAdded,
)

// expiresAtEndOfTurn classifies r. With perEntry false only the kind is
// judged, which is how a candidate is classified before insertion.
func (s *Store) expiresAtEndOfTurn(r *types.Record, perEntry bool) bool {
	sess := s.env.Session
	switch k := r.Kind; {
	case endTurnExempt.has(k):
		return false
	case connectionKinds.has(k):
		return !(perEntry && r.Turn == sess.GameTurn())
	case informationalKinds.has(k):
		return !(perEntry && sess.IsMultiplayer() && (r.NeedsBroadcast || r.Turn == sess.GameTurn()))
	case k == types.KindCityTile:
		return !sess.CityExpansionUI()
	default:
		return true
	}
}

// ─── Blocking ─────────────────────────────────────────────────────────────────

var blockingKinds = map[types.Kind]types.BlockingType{
	types.KindDiploVote:              types.BlockingDiploVote,
	types.KindProduction:             types.BlockingProduction,
	types.KindPolicy:                 types.BlockingPolicy,
	types.KindFreePolicy:             types.BlockingFreePolicy,
	types.KindTech:                   types.BlockingResearch,
	types.KindFreeTech:               types.BlockingFreeTech,
	types.KindFreeGreatPerson:        types.BlockingFreeItems,
	types.KindFoundPantheon:          types.BlockingFoundPantheon,
	types.KindFoundReligion:          types.BlockingFoundReligion,
	types.KindEnhanceReligion:        types.BlockingEnhanceReligion,
	types.KindSpyStoleTech:           types.BlockingStealTech,
	types.KindMayaLongCount:          types.BlockingMayaLongCount,
	types.KindFaithGreatPerson:       types.BlockingFaithGreatPerson,
	types.KindAddReformationBelief:   types.BlockingAddReformationBelief,
	types.KindLeagueCallForProposals: types.BlockingLeagueCallForProposals,
	types.KindChooseArchaeology:      types.BlockingChooseArchaeology,
	types.KindLeagueCallForVotes:     types.BlockingLeagueCallForVotes,
	types.KindChooseIdeology:         types.BlockingChooseIdeology,
	types.KindPlayerDealReceived:     types.BlockingPendingDeal,
	types.KindPlayerEvent:            types.BlockingEventChoice,
	types.KindCityEvent:              types.BlockingEventChoice,
	types.KindSpyCityEvent:           types.BlockingEventChoice,
	types.KindChooseCityFate:         types.BlockingChooseCityFate,
}

func (s *Store) blockingFor(k types.Kind) (types.BlockingType, bool) {
	switch k {
	case types.KindCityRangeAttack:
		if s.env.Session.AutoEndTurnEnabled() {
			return types.BlockingCityRangeAttack, true
		}
		return types.BlockingNone, false
	case types.KindCityTile:
		if s.env.Session.CityExpansionUI() {
			return types.BlockingCityTile, true
		}
		return types.BlockingNone, false
	}
	b, ok := blockingKinds[k]
	return b, ok
}

// ─── User dismissal ───────────────────────────────────────────────────────────

// Policy is handled separately: it depends on the policy-saving option.
var notUserDismissible = newKindSet(
	types.KindDiploVote,
	types.KindProduction,
	types.KindTech,
	types.KindFreeTech,
	types.KindFreePolicy,
	types.KindFreeGreatPerson,
	types.KindFoundPantheon,
	types.KindFoundReligion,
	types.KindEnhanceReligion,
	types.KindSpyStoleTech,
	types.KindMayaLongCount,
	types.KindFaithGreatPerson,
	types.KindAddReformationBelief,
	types.KindLeagueCallForProposals,
	types.KindChooseArchaeology,
	types.KindLeagueCallForVotes,
	types.KindChooseIdeology,
	types.KindPlayerDealReceived,
	types.KindPlayerEvent,
	types.KindCityEvent,
	types.KindSpyCityEvent,
	types.KindChooseCityFate,
)

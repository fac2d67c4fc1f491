package notification

import "github.com/sneh-joshi/notifyring/internal/types"

// matchFunc reports whether existing makes cand redundant. Both records have
// the same kind and existing is live.
type matchFunc func(s *Store, cand, existing *types.Record) bool

func sameKind(_ *Store, _, _ *types.Record) bool { return true }

func sameLocation(_ *Store, cand, ex *types.Record) bool {
	return cand.X == ex.X && cand.Y == ex.Y
}

func sameUnit(_ *Store, cand, ex *types.Record) bool {
	return cand.UnitID() == ex.UnitID()
}

func sameLeagueProject(_ *Store, cand, ex *types.Record) bool {
	return cand.LeagueID() == ex.LeagueID() && cand.ProjectID() == ex.ProjectID()
}

// samePair matches declarations between the same two players in either order.
func samePair(_ *Store, cand, ex *types.Record) bool {
	a, b := cand.PairPlayers()
	if a == types.PlayerNone || b == types.PlayerNone {
		return false
	}
	c, d := ex.PairPlayers()
	return (a == c && b == d) || (a == d && b == c)
}

// sameTech collapses re-adds made during automated moves against each other
// only, so a deferred tech prompt does not hide a fresh one.
func sameTech(s *Store, cand, ex *types.Record) bool {
	if cand.WaitExtraTurn && s.expiresAtEndOfTurn(cand, false) {
		return ex.WaitExtraTurn
	}
	return true
}

var redundancyRules = map[types.Kind]matchFunc{
	types.KindTech:                   sameTech,
	types.KindFreeTech:               sameKind,
	types.KindPolicy:                 sameKind,
	types.KindFreePolicy:             sameKind,
	types.KindEnemyInTerritory:       sameKind,
	types.KindFoundPantheon:          sameKind,
	types.KindFoundReligion:          sameKind,
	types.KindEnhanceReligion:        sameKind,
	types.KindAddReformationBelief:   sameKind,
	types.KindChooseArchaeology:      sameKind,
	types.KindChooseIdeology:         sameKind,
	types.KindLeagueCallForProposals: sameKind,
	types.KindLeagueCallForVotes:     sameKind,
	types.KindLeagueVotingSoon:       sameKind,
	types.KindProduction:             sameLocation,
	types.KindCityTile:               sameLocation,
	types.KindUnitPromotion:          sameUnit,
	types.KindDiplomacyDeclaration:   samePair,
	types.KindLeagueProjectComplete:  sameLeagueProject,
	types.KindLeagueProjectProgress:  sameLeagueProject,
}

func (s *Store) isRedundant(cand *types.Record) bool {
	match, ok := redundancyRules[cand.Kind]
	if !ok {
		return false
	}
	redundant := false
	s.eachLive(func(ex *types.Record) bool {
		if ex.Kind == cand.Kind && match(s, cand, ex) {
			redundant = true
			return false
		}
		return true
	})
	return redundant
}

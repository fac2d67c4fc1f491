package notification

import "github.com/sneh-joshi/notifyring/internal/types"

// expiryFunc reports whether the game state that justified r has gone away.
// A rule whose collaborator is missing from Env reports false.
type expiryFunc func(s *Store, r *types.Record) bool

var expiryRules = map[types.Kind]expiryFunc{
	types.KindBuyTile:                expireBuyTile,
	types.KindBarbarian:              expireBarbarian,
	types.KindCityRangeAttack:        expireCityRangeAttack,
	types.KindGoody:                  expireGoody,
	types.KindTech:                   expireTech,
	types.KindFreeTech:               expireFreeTech,
	types.KindFreePolicy:             expireFreePolicy,
	types.KindPolicy:                 expirePolicy,
	types.KindFreeGreatPerson:        expireCounter(PlayerQueries.NumFreeGreatPeople),
	types.KindMayaLongCount:          expireCounter(PlayerQueries.NumMayaBoosts),
	types.KindFaithGreatPerson:       expireCounter(PlayerQueries.NumFaithGreatPeople),
	types.KindChooseArchaeology:      expireCounter(PlayerQueries.NumArchaeologyChoices),
	types.KindProduction:             expireProduction,
	types.KindCityTile:               expireCityTile,
	types.KindDiploVote:              expireDiploVote,
	types.KindUnitPromotion:          expireUnitPromotion,
	types.KindPlayerDeal:             expirePlayerDeal,
	types.KindPlayerDealReceived:     expirePlayerDealReceived,
	types.KindDemandResource:         expireDemandResource,
	types.KindFoundPantheon:          expireFoundPantheon,
	types.KindAddReformationBelief:   expireAddReformationBelief,
	types.KindFoundReligion:          expireFoundReligion,
	types.KindEnhanceReligion:        expireEnhanceReligion,
	types.KindSpyStoleTech:           expireSpyStoleTech,
	types.KindLeagueCallForProposals: expireLeagueCallForProposals,
	types.KindLeagueCallForVotes:     expireLeagueCallForVotes,
	types.KindChooseIdeology:         expireChooseIdeology,
	types.KindPlayerConnecting:       expirePlayerConnecting,
	types.KindCityEvent:              expireCityEvent,
	types.KindSpyCityEvent:           expireSpyCityEvent,
	types.KindPlayerEvent:            expirePlayerEvent,
	types.KindChooseCityFate:         expireChooseCityFate,
}

func (s *Store) isExpired(r *types.Record) bool {
	if fn, ok := expiryRules[r.Kind]; ok {
		return fn(s, r)
	}
	return false
}

// ─── Map and economy ──────────────────────────────────────────────────────────

func expireBuyTile(s *Store, r *types.Record) bool {
	p := s.env.Players
	return p != nil && !p.CanAffordPlot(r.Owner)
}

func expireBarbarian(s *Store, r *types.Record) bool {
	m := s.env.Map
	return m != nil && !m.HasBarbarianCamp(r.X, r.Y)
}

func expireGoody(s *Store, r *types.Record) bool {
	m := s.env.Map
	return m != nil && !m.HasGoody(r.Owner, r.X, r.Y)
}

func expireCityRangeAttack(s *Store, r *types.Record) bool {
	c := s.env.Cities
	if c == nil {
		return false
	}
	if _, ok := c.City(r.Owner, r.CityID()); !ok {
		return true
	}
	return !c.CanRangeStrike(r.Owner, r.CityID())
}

// Demand notifications with a location are tied to a tile and left alone.
func expireDemandResource(s *Store, r *types.Record) bool {
	p := s.env.Players
	if p == nil || r.HasLocation() {
		return false
	}
	return p.ResourceAvailable(r.Owner, r.PrimaryData) >= 0
}

// ─── Research and policy ──────────────────────────────────────────────────────

func expireTech(s *Store, r *types.Record) bool {
	p := s.env.Players
	if p == nil {
		return false
	}
	if p.HasCurrentResearch(r.Owner) || p.NumResearchableTechs(r.Owner) == 0 {
		return true
	}
	free := false
	s.eachLive(func(ex *types.Record) bool {
		if ex.Kind == types.KindFreeTech {
			free = true
			return false
		}
		return true
	})
	return free
}

func expireFreeTech(s *Store, r *types.Record) bool {
	p := s.env.Players
	return p != nil && (p.NumFreeTechs(r.Owner) == 0 || p.NumResearchableTechs(r.Owner) == 0)
}

func expireFreePolicy(s *Store, r *types.Record) bool {
	p := s.env.Players
	if p == nil {
		return false
	}
	if s.env.Session.PolicySaving() {
		return p.NumFreePolicies(r.Owner) == 0
	}
	return !p.CanAdoptPolicy(r.Owner) && p.NumFreePolicies(r.Owner) == 0
}

func expirePolicy(s *Store, r *types.Record) bool {
	p := s.env.Players
	return p != nil && !p.CanAdoptPolicy(r.Owner) && p.NumFreePolicies(r.Owner) == 0
}

func expireChooseIdeology(s *Store, r *types.Record) bool {
	p := s.env.Players
	return p != nil && p.HasIdeology(r.Owner)
}

// expireCounter expires a free-reward record once its counter hits zero.
func expireCounter(count func(PlayerQueries, types.PlayerID) int) expiryFunc {
	return func(s *Store, r *types.Record) bool {
		p := s.env.Players
		return p != nil && count(p, r.Owner) == 0
	}
}

// ─── Cities and units ─────────────────────────────────────────────────────────

func expireProduction(s *Store, r *types.Record) bool {
	m := s.env.Map
	if m == nil {
		return false
	}
	c, ok := m.CityAt(r.X, r.Y)
	return !ok || c.Owner != r.Owner || c.Puppet || c.OrderQueueLen > 0
}

func expireCityTile(s *Store, r *types.Record) bool {
	m := s.env.Map
	if m == nil || !s.env.Session.CityExpansionUI() {
		return false
	}
	c, ok := m.CityAt(r.X, r.Y)
	return !ok || c.Puppet || c.Owner != s.env.Session.ActivePlayer() || !c.CanChooseTile
}

func expireUnitPromotion(s *Store, r *types.Record) bool {
	u := s.env.Units
	if u == nil {
		return false
	}
	unit, ok := u.Unit(r.Owner, r.UnitID())
	return !ok || !unit.PromotionReady
}

func expireChooseCityFate(s *Store, r *types.Record) bool {
	m := s.env.Map
	if m == nil {
		return false
	}
	c, ok := m.CityAt(r.X, r.Y)
	return !ok || !c.PendingCapture
}

// ─── Diplomacy ────────────────────────────────────────────────────────────────

func expireDiploVote(s *Store, r *types.Record) bool {
	d := s.env.Diplomacy
	return d != nil && (d.HasVoteCast(r.Owner) || d.VictoryVotesExpected() == 0)
}

func expirePlayerDeal(s *Store, r *types.Record) bool {
	d := s.env.Diplomacy
	return d != nil && !d.ProposedDealExists(r.Owner, r.DealPartner())
}

func expirePlayerDealReceived(s *Store, r *types.Record) bool {
	d := s.env.Diplomacy
	return d != nil && !d.ProposedDealExists(r.DealPartner(), r.Owner)
}

func expirePlayerConnecting(s *Store, r *types.Record) bool {
	return !s.env.Session.IsPlayerHotJoining(r.OtherPlayer())
}

func expireSpyStoleTech(s *Store, r *types.Record) bool {
	e := s.env.Espionage
	return e != nil && e.TechsToSteal(r.Owner, r.OtherPlayer()) <= 0
}

// ─── Religion ─────────────────────────────────────────────────────────────────

func expireFoundPantheon(s *Store, r *types.Record) bool {
	rel := s.env.Religion
	return rel != nil && !rel.CanCreatePantheon(r.Owner)
}

func expireAddReformationBelief(s *Store, r *types.Record) bool {
	rel := s.env.Religion
	return rel != nil && rel.HasAddedReformationBelief(r.Owner)
}

func expireFoundReligion(s *Store, r *types.Record) bool {
	rel := s.env.Religion
	if rel == nil {
		return false
	}
	if rel.ReligionsStillToFound() <= 0 && !rel.IsAlwaysReligion(r.Owner) {
		return true
	}
	return rel.HasCreatedReligion(r.Owner)
}

func expireEnhanceReligion(s *Store, r *types.Record) bool {
	rel := s.env.Religion
	return rel != nil && !rel.CanEnhanceReligion(r.Owner)
}

// ─── Leagues ──────────────────────────────────────────────────────────────────

func expireLeagueCallForProposals(s *Store, r *types.Record) bool {
	l := s.env.Leagues
	return l != nil && !l.CanPropose(r.Owner, r.LeagueID())
}

func expireLeagueCallForVotes(s *Store, r *types.Record) bool {
	l := s.env.Leagues
	return l != nil && !l.CanVote(r.Owner, r.LeagueID())
}

// ─── Events ───────────────────────────────────────────────────────────────────

func expirePlayerEvent(s *Store, r *types.Record) bool {
	if r.EventID() == types.NoData {
		return true
	}
	p := s.env.Players
	return p != nil && !p.IsEventActive(r.Owner, r.EventID())
}

func expireCityEvent(s *Store, r *types.Record) bool {
	if r.EventID() == types.NoData {
		return true
	}
	c := s.env.Cities
	if c == nil {
		return false
	}
	if _, ok := c.City(r.Owner, r.EventCityID()); !ok {
		return true
	}
	return !c.IsCityEventActive(r.Owner, r.EventCityID(), r.EventID())
}

func expireSpyCityEvent(s *Store, r *types.Record) bool {
	if r.EventID() == types.NoData {
		return true
	}
	m, e := s.env.Map, s.env.Espionage
	if m == nil || e == nil {
		return false
	}
	c, ok := m.CityAt(r.X, r.Y)
	return !ok || e.PendingSpyEvents(r.Owner, c.ID) == 0
}

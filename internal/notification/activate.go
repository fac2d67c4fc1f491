package notification

import "github.com/sneh-joshi/notifyring/internal/types"

// activateFunc emits the follow-up actions for an activated record.
type activateFunc func(s *Store, r *types.Record)

// cultureInfluenceTab is the culture overview tab opened for influence
// notifications.
const cultureInfluenceTab = 3

var activations map[types.Kind]activateFunc

func init() {
	activations = map[types.Kind]activateFunc{
		types.KindWonderCompletedActivePlayer:    popupWithData(types.PopupWonderCompleted),
		types.KindGreatWorkCompletedActivePlayer: popupWithData(types.PopupGreatWorkCompleted),
		types.KindBuyTile:                        activateBuyTile,
		types.KindTech:                           popupWithMessage(types.PopupChooseTech),
		types.KindFreeTech:                       popupWithMessage(types.PopupChooseTech),
		types.KindTechAward:                      activateTechAward,
		types.KindPolicy:                         popupWithData(types.PopupChoosePolicy),
		types.KindFreePolicy:                     popupWithData(types.PopupChoosePolicy),
		types.KindDiploVote:                      popupWithData(types.PopupDiploVote),
		types.KindMinorQuest:                     activateMinorQuest,
		types.KindProduction:                     activateProduction,
		types.KindCityTile:                       activateCityTile,
		types.KindUnitPromotion:                  activateUnitPromotion,
		types.KindPlayerDeal:                     activateDeal,
		types.KindPlayerDealReceived:             activateDeal,
		types.KindFreeGreatPerson:                popupWhile(types.PopupFreeGreatPerson, PlayerQueries.NumFreeGreatPeople),
		types.KindMayaLongCount:                  popupWhile(types.PopupMayaBonus, PlayerQueries.NumMayaBoosts),
		types.KindFaithGreatPerson:               popupWhile(types.PopupFaithGreatPerson, PlayerQueries.NumFaithGreatPeople),
		types.KindFoundPantheon:                  activatePantheon(true),
		types.KindAddReformationBelief:           activatePantheon(false),
		types.KindFoundReligion:                  activateReligion(true),
		types.KindEnhanceReligion:                activateReligion(false),
		types.KindSpyCreatedActivePlayer:         popupWithData(types.PopupEspionageOverview),
		types.KindSpyEvicted:                     popupWithData(types.PopupEspionageOverview),
		types.KindSpyPromotion:                   popupWithData(types.PopupEspionageOverview),
		types.KindSpyStoleTech:                   popupWithMessage(types.PopupChooseTechToSteal),
		types.KindTechStolenSpyIdentified:        activateEspionageResult,
		types.KindSpyKilledASpy:                  activateEspionageResult,
		types.KindLeagueCallForProposals:         popupForLeague(types.PopupLeagueOverview),
		types.KindLeagueCallForVotes:             popupForLeague(types.PopupLeagueOverview),
		types.KindLeagueVotingDone:               popupForLeague(types.PopupLeagueOverview),
		types.KindLeagueVotingSoon:               popupForLeague(types.PopupLeagueOverview),
		types.KindLeagueProjectComplete:          popupForLeague(types.PopupLeagueProjectCompleted),
		types.KindChooseArchaeology:              popupForLeague(types.PopupChooseArchaeology),
		types.KindChooseIdeology:                 popupForLeague(types.PopupChooseIdeology),
		types.KindPlayerEvent:                    activatePlayerEvent,
		types.KindCityEvent:                      activateCityEvent,
		types.KindSpyCityEvent:                   activateSpyCityEvent,
		types.KindChooseCityFate:                 activateChooseCityFate,
	}
	for _, k := range []types.Kind{
		types.KindIntrigueDeception,
		types.KindIntrigueSneakAttackArmyKnownCityKnown,
		types.KindIntrigueSneakAttackArmyKnownCityUnknown,
		types.KindIntrigueSneakAttackAmphibKnownCityUnknown,
		types.KindIntrigueSneakAttackAmphibKnownCityKnown,
	} {
		activations[k] = activateIntrigue
	}
	for _, k := range []types.Kind{
		types.KindIdeologyChosen,
		types.KindCultureVictoryWithinTwo,
		types.KindCultureVictoryWithinTwoActivePlayer,
		types.KindCultureVictoryWithinOne,
		types.KindCultureVictoryWithinOneActivePlayer,
		types.KindCultureVictoryNoLongerInfluential,
	} {
		activations[k] = activateCultureOverview
	}
}

// ─── Action helpers ───────────────────────────────────────────────────────────

func (s *Store) perform(r *types.Record, a types.Action) {
	s.sink.Perform(r.Owner, a)
}

func (s *Store) popup(r *types.Record, p types.Popup, d1, d2, d3 int32) {
	s.perform(r, types.Action{Type: types.ActionPopup, Player: r.Owner, Popup: p, X: r.X, Y: r.Y, Data1: d1, Data2: d2, Data3: d3})
}

// lookAt is the default follow-up: camera to the record's tile plus FX.
func (s *Store) lookAt(r *types.Record) {
	if !r.HasLocation() {
		return
	}
	s.perform(r, types.Action{Type: types.ActionLookAt, Player: r.Owner, X: r.X, Y: r.Y})
	s.perform(r, types.Action{Type: types.ActionPlayFX, Player: r.Owner, X: r.X, Y: r.Y})
}

func popupWithData(p types.Popup) activateFunc {
	return func(s *Store, r *types.Record) {
		s.popup(r, p, r.PrimaryData, r.SecondaryData, types.NoData)
	}
}

func popupWithMessage(p types.Popup) activateFunc {
	return func(s *Store, r *types.Record) {
		s.perform(r, types.Action{
			Type:   types.ActionPopup,
			Player: r.Owner,
			Popup:  p,
			X:      r.X,
			Y:      r.Y,
			Data1:  r.PrimaryData,
			Data2:  r.SecondaryData,
			Data3:  types.NoData,
			Text:   r.Message,
		})
	}
}

func popupForLeague(p types.Popup) activateFunc {
	return func(s *Store, r *types.Record) {
		if r.PrimaryData < 0 {
			return
		}
		s.popup(r, p, r.PrimaryData, r.SecondaryData, types.NoData)
	}
}

func popupWhile(p types.Popup, count func(PlayerQueries, types.PlayerID) int) activateFunc {
	return func(s *Store, r *types.Record) {
		q := s.env.Players
		if q == nil || count(q, r.Owner) <= 0 {
			return
		}
		s.popup(r, p, r.PrimaryData, r.SecondaryData, types.NoData)
	}
}

// ─── Per-kind handlers ────────────────────────────────────────────────────────

func activateBuyTile(s *Store, r *types.Record) {
	p := s.env.Players
	if p == nil {
		return
	}
	if x, y, ok := p.Capital(r.Owner); ok {
		s.perform(r, types.Action{Type: types.ActionLookAt, Player: r.Owner, X: x, Y: y})
	}
}

func activateTechAward(s *Store, r *types.Record) {
	if r.SecondaryData == types.NoData {
		return
	}
	popupWithMessage(types.PopupTechAward)(s, r)
}

func activateMinorQuest(s *Store, r *types.Record) {
	s.lookAt(r)
	p := s.env.Players
	if p == nil || !p.IsAlive(r.OtherPlayer()) {
		return
	}
	s.perform(r, types.Action{
		Type:   types.ActionPopup,
		Popup:  types.PopupCityStateMessage,
		Player: r.OtherPlayer(),
		Data1:  r.PrimaryData,
		Data2:  r.SecondaryData,
		Data3:  types.NoData,
		Text:   r.Message,
	})
}

func activateProduction(s *Store, r *types.Record) {
	m := s.env.Map
	if m == nil {
		return
	}
	c, ok := m.CityAt(r.X, r.Y)
	if !ok || c.Owner != r.Owner {
		return
	}
	s.popup(r, types.PopupChooseProduction, c.ID, r.PrimaryData, r.SecondaryData)
}

func activateCityTile(s *Store, r *types.Record) {
	m := s.env.Map
	if !s.env.Session.CityExpansionUI() || m == nil {
		s.lookAt(r)
		return
	}
	if c, ok := m.CityAt(r.X, r.Y); ok {
		s.popup(r, types.PopupCityView, c.ID, r.LookupID, types.NoData)
	}
}

func activateUnitPromotion(s *Store, r *types.Record) {
	u := s.env.Units
	if u == nil {
		return
	}
	unit, ok := u.Unit(r.Owner, r.UnitID())
	if !ok {
		return
	}
	s.perform(r, types.Action{Type: types.ActionLookAt, Player: r.Owner, X: unit.X, Y: unit.Y})
	s.perform(r, types.Action{Type: types.ActionSelectUnit, Player: r.Owner, X: unit.X, Y: unit.Y, Data1: r.UnitID()})
	s.perform(r, types.Action{Type: types.ActionPlayFX, Player: r.Owner, X: unit.X, Y: unit.Y})
}

func activateDeal(s *Store, r *types.Record) {
	s.perform(r, types.Action{Type: types.ActionOpenDealScreen, Player: r.DealPartner()})
}

func activatePantheon(founding bool) activateFunc {
	return func(s *Store, r *types.Record) {
		s.perform(r, types.Action{
			Type:   types.ActionPopup,
			Player: r.Owner,
			Popup:  types.PopupFoundPantheon,
			Data1:  r.PrimaryData,
			Data2:  r.SecondaryData,
			Data3:  types.NoData,
			Flag:   founding,
		})
	}
}

// Religion choosers carry the holy city tile in Data1/Data2.
func activateReligion(founding bool) activateFunc {
	return func(s *Store, r *types.Record) {
		s.perform(r, types.Action{
			Type:   types.ActionPopup,
			Player: r.Owner,
			Popup:  types.PopupFoundReligion,
			X:      r.X,
			Y:      r.Y,
			Data1:  r.X,
			Data2:  r.Y,
			Data3:  types.NoData,
			Flag:   founding,
		})
	}
}

// activateEspionageResult opens the AI reaction once. SecondaryData is set to
// 1 afterwards so a second activation does nothing.
func activateEspionageResult(s *Store, r *types.Record) {
	if r.PrimaryData < 0 || r.SecondaryData != types.NoData {
		return
	}
	target := r.OtherPlayer()
	if !s.env.Session.IsHuman(target) {
		s.perform(r, types.Action{
			Type:   types.ActionBeginDiplomacy,
			Player: target,
			Data1:  types.DiplomacyEspionageResult,
		})
	}
	s.sink.Retract(r.LookupID, r.Owner)
	r.SecondaryData = 1
}

func activateIntrigue(s *Store, r *types.Record) {
	if r.PrimaryData < 0 {
		return
	}
	target := r.OtherPlayer()
	if s.env.Session.IsHuman(target) || target == r.Owner {
		return
	}
	e, d := s.env.Espionage, s.env.Diplomacy
	if e == nil || !e.HasRecentIntrigueAbout(r.Owner, target) {
		return
	}
	if d != nil && d.AtWar(r.Owner, target) {
		return
	}
	s.perform(r, types.Action{
		Type:   types.ActionBeginDiplomacy,
		Player: target,
		Data1:  types.DiplomacyDiscussIntrigue,
	})
}

func activateCultureOverview(s *Store, r *types.Record) {
	if r.PrimaryData < 0 {
		return
	}
	s.popup(r, types.PopupCultureOverview, r.PrimaryData, cultureInfluenceTab, types.NoData)
}

func activatePlayerEvent(s *Store, r *types.Record) {
	if r.EventID() < 0 {
		return
	}
	s.popup(r, types.PopupPlayerEventChoice, r.EventID(), types.NoData, types.NoData)
}

func activateCityEvent(s *Store, r *types.Record) {
	if r.EventID() < 0 {
		return
	}
	s.popup(r, types.PopupCityEventChoice, r.EventID(), r.EventCityID(), types.NoData)
}

func activateSpyCityEvent(s *Store, r *types.Record) {
	if r.EventID() < 0 || !r.HasLocation() {
		return
	}
	s.popup(r, types.PopupSpyCityEventChoice, r.EventID(), r.SecondaryData, types.NoData)
}

func activateChooseCityFate(s *Store, r *types.Record) {
	m := s.env.Map
	if m == nil {
		return
	}
	if c, ok := m.CityAt(r.X, r.Y); ok {
		s.popup(r, types.PopupCityCaptured, c.ID, types.NoData, types.NoData)
	}
}

package possession

import (
	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/model"
)

// SubState refines an active possession.
type SubState int

const (
	Normal              SubState = iota
	AwaitingRebound              // after a same-team missed field goal
	InFreeThrowSequence          // between consecutive same-team free throws
)

func (s SubState) String() string {
	switch s {
	case AwaitingRebound:
		return "awaiting_rebound"
	case InFreeThrowSequence:
		return "free_throw_sequence"
	default:
		return "normal"
	}
}

type phase int

const (
	phaseIdle    phase = iota // no possession yet in this game
	phasePending              // a possession just closed, the next has not opened
	phaseActive
)

// machine is the per-game possession state. It is never shared across games.
type machine struct {
	opp Opponents
	b   *Builder

	phase     phase
	sub       SubState
	team      model.TeamID // current possession's team while active
	id        int          // current (or last) possession id
	lastClose model.TeamID // team of the possession closed most recently

	openOnFirstAction bool

	attrs      []model.Attribution
	unresolved int
}

func newMachine(gameID int64, rows []model.EventRow, offset int) *machine {
	attrs := make([]model.Attribution, len(rows))
	for i := range attrs {
		attrs[i] = model.Attribution{Row: offset + i, GameID: gameID}
	}
	return &machine{
		opp:   NewOpponents(rows),
		b:     NewBuilder(gameID, rows, offset),
		attrs: attrs,
	}
}

// step feeds row i with its acting team and categories into the machine.
func (m *machine) step(i int, team model.TeamID, tags classify.Set) {
	switch m.phase {
	case phasePending:
		if m.restart(i, team, tags) {
			return
		}
		m.claim(i, team, tags)
	case phaseIdle:
		m.claim(i, team, tags)
	case phaseActive:
		m.paint(i)
		switch m.sub {
		case Normal:
			m.live(i, team, tags)
		case AwaitingRebound:
			m.resolve(i, team, tags)
		case InFreeThrowSequence:
			if team == m.team && tags.Has(classify.FreeThrow) {
				return
			}
			m.resolve(i, team, tags)
		}
	}
}

// restart opens the possession that follows a close. Any row of the other
// team opens it; a teamless restart goes to the opponent of the closing team.
func (m *machine) restart(i int, team model.TeamID, tags classify.Set) bool {
	if team.Valid() {
		if team != m.lastClose {
			m.open(i, team)
			return true
		}
		return false
	}
	if !tags.Has(classify.NeutralRestartEligible) {
		return false
	}
	next, ok := m.opp.Of(m.lastClose)
	if !ok {
		m.unresolved++
		return false
	}
	m.open(i, next)
	return true
}

// claim opens a possession on an unambiguous gain of control.
func (m *machine) claim(i int, team model.TeamID, tags classify.Set) {
	if !team.Valid() {
		return
	}
	if tags.HasAny(classify.DefensiveRebound, classify.Steal, classify.NeutralRestartEligible) {
		m.open(i, team)
		return
	}
	if m.openOnFirstAction && m.phase == phaseIdle && tags.HasAny(offensive...) {
		m.open(i, team)
		m.live(i, team, tags)
	}
}

var offensive = []classify.Category{
	classify.MadeFieldGoal, classify.MissedFieldGoal, classify.FreeThrow,
	classify.OffensiveRebound, classify.TurnoverLike,
}

// live handles a row during normal play.
func (m *machine) live(i int, team model.TeamID, tags classify.Set) {
	same := team == m.team
	switch {
	case same && tags.Has(classify.MadeFieldGoal):
		m.close(i)
	case same && tags.Has(classify.TurnoverLike):
		m.close(i)
	case same && tags.Has(classify.MissedFieldGoal):
		m.sub = AwaitingRebound
	case same && tags.Has(classify.FreeThrow):
		m.sub = InFreeThrowSequence
	case m.opposing(team) && tags.HasAny(classify.DefensiveRebound, classify.Steal):
		m.handover(i, team)
	}
}

// resolve decides who has the ball after a miss or a free-throw sequence.
// Neutral and teamless rows leave the sub-state untouched.
func (m *machine) resolve(i int, team model.TeamID, tags classify.Set) {
	switch {
	case team == m.team && tags.Has(classify.OffensiveRebound):
		m.sub = Normal
	case m.opposing(team) && tags.HasAny(classify.DefensiveRebound, classify.Steal):
		m.handover(i, team)
	case tags.Has(classify.Neutral):
	case m.opposing(team):
		// Heuristic: any other action by the other team is taken as a
		// change of possession.
		m.handover(i, team)
	case team == m.team:
		m.sub = Normal
	}
}

func (m *machine) opposing(team model.TeamID) bool {
	return team.Valid() && team != m.team
}

func (m *machine) open(i int, team model.TeamID) {
	m.id++
	m.phase = phaseActive
	m.sub = Normal
	m.team = team
	m.lastClose = model.NoTeam
	m.b.Open(m.id, team, i)

	a := &m.attrs[i]
	a.PossessionID = m.id
	a.Team = team
	a.Opens = true
}

func (m *machine) paint(i int) {
	m.attrs[i].PossessionID = m.id
	m.attrs[i].Team = m.team
}

func (m *machine) close(i int) {
	m.b.Close(m.id, i)
	m.attrs[i].Closes = true
	m.lastClose = m.team
	m.team = model.NoTeam
	m.phase = phasePending
	m.sub = Normal
}

// handover closes the current possession and opens team's on the same row.
func (m *machine) handover(i int, team model.TeamID) {
	m.close(i)
	m.open(i, team)
}

// finish force-closes a dangling possession on the game's last row and
// tallies attributed rows per possession.
func (m *machine) finish() {
	if m.phase == phaseActive && len(m.attrs) > 0 {
		m.close(len(m.attrs) - 1)
	}
	for _, a := range m.attrs {
		if a.Assigned() {
			m.b.Count(a.PossessionID)
		}
	}
}

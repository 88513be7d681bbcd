package possession

import "github.com/pable/go-pbp-possessions/internal/model"

// Opponents answers "who is the other team" for one game.
type Opponents struct {
	teams []model.TeamID // distinct teams in order of first appearance
}

// NewOpponents collects the distinct teams observed in a game's rows.
func NewOpponents(rows []model.EventRow) Opponents {
	var o Opponents
	seen := make(map[model.TeamID]bool)
	for _, r := range rows {
		if !r.Team.Valid() || seen[r.Team] {
			continue
		}
		seen[r.Team] = true
		o.teams = append(o.teams, r.Team)
	}
	return o
}

// Teams returns the distinct teams in order of first appearance.
func (o Opponents) Teams() []model.TeamID {
	return append([]model.TeamID(nil), o.teams...)
}

// Resolvable reports whether the game has exactly two teams.
func (o Opponents) Resolvable() bool { return len(o.teams) == 2 }

// Of returns the other team. It reports false when the game does not have
// exactly two teams or team is not one of them.
func (o Opponents) Of(team model.TeamID) (model.TeamID, bool) {
	if !o.Resolvable() || !team.Valid() {
		return model.NoTeam, false
	}
	switch team {
	case o.teams[0]:
		return o.teams[1], true
	case o.teams[1]:
		return o.teams[0], true
	}
	return model.NoTeam, false
}

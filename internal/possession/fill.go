package possession

import "github.com/pable/go-pbp-possessions/internal/model"

// ForwardFill returns a copy of attrs in which every unassigned row after a
// game's first possession carries the most recent possession of that game.
// Filled rows never gain Opens or Closes markers. This is a reporting view
// only: it erases the difference between a possession and dead time.
func ForwardFill(attrs []model.Attribution) []model.Attribution {
	out := append([]model.Attribution(nil), attrs...)
	var (
		game     int64
		started  bool
		lastID   int
		lastTeam model.TeamID
	)
	for i := range out {
		a := &out[i]
		if !started || a.GameID != game {
			game = a.GameID
			started = true
			lastID, lastTeam = 0, model.NoTeam
		}
		if a.Assigned() {
			lastID, lastTeam = a.PossessionID, a.Team
			continue
		}
		if lastID > 0 {
			a.PossessionID = lastID
			a.Team = lastTeam
		}
	}
	return out
}

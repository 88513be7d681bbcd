package model

import "strconv"

// TeamID identifies a team in the play-by-play log. Team ids are assumed
// positive; NoTeam (zero) marks a row without an acting team (administrative
// events, missing or malformed values), so a team cell of 0 reads as absent.
type TeamID int64

const NoTeam TeamID = 0

// Valid reports whether t names a team.
func (t TeamID) Valid() bool { return t != NoTeam }

func (t TeamID) String() string {
	if t == NoTeam {
		return "-"
	}
	return strconv.FormatInt(int64(t), 10)
}

// ActionSlots is the number of action-code columns each row carries.
const ActionSlots = 3

// NoAction marks an empty action slot.
const NoAction = 0

// ---- Input rows ----

// EventRow is one play-by-play log entry. Rows are immutable once loaded.
type EventRow struct {
	GameID     int64
	Period     int
	SequenceNo int
	Team       TeamID
	Actions    [ActionSlots]int // NoAction for an empty or malformed slot

	// Raw holds the source record as read, for pass-through on export.
	Raw []string
}

// Less orders rows by (game_id, period, sequence_no).
func (r EventRow) Less(o EventRow) bool {
	if r.GameID != o.GameID {
		return r.GameID < o.GameID
	}
	if r.Period != o.Period {
		return r.Period < o.Period
	}
	return r.SequenceNo < o.SequenceNo
}

// ---- Segmentation output ----

// Attribution is the row-level result of segmentation. Row is the index of the
// row in the sorted dataset. PossessionID is 0 for rows in dead time.
type Attribution struct {
	Row          int
	GameID       int64
	PossessionID int
	Team         TeamID
	Opens        bool // a possession starts on this row
	Closes       bool // a possession ends on this row (possibly the previous one)
}

// Assigned reports whether the row belongs to a possession.
func (a Attribution) Assigned() bool { return a.PossessionID > 0 }

// Possession is a contiguous run of rows controlled by one team.
type Possession struct {
	GameID       int64
	PossessionID int
	Team         TeamID
	StartRow     int
	EndRow       int
	Closed       bool // false when no end row is known

	StartPeriod, StartSequenceNo int
	EndPeriod, EndSequenceNo     int
	Rows                         int // rows attributed to this possession
}

// GameSummary describes one segmented game.
type GameSummary struct {
	GameID             int64
	Teams              []TeamID
	Rows               int
	Possessions        int
	Unassigned         int
	UnresolvedRestarts int // teamless restarts that could not be attributed
}

// PossessionsFor returns how many of the game's possessions belong to team.
func PossessionsFor(ps []Possession, gameID int64, team TeamID) int {
	n := 0
	for _, p := range ps {
		if p.GameID == gameID && p.Team == team {
			n++
		}
	}
	return n
}

// ---- Stored datasets ----

// DatasetSummary is the stored header of one segmented input file.
type DatasetSummary struct {
	Hash        string
	Source      string
	LoadedAt    string
	Games       int
	Rows        int
	Possessions int
	Unassigned  int
	Options     string // possession.Options fingerprint the dataset was segmented with
}

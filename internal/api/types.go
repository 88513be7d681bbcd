package api

import "github.com/pable/go-pbp-possessions/internal/model"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type datasetJSON struct {
	Hash        string `json:"hash"`
	Source      string `json:"source"`
	LoadedAt    string `json:"loaded_at"`
	Games       int    `json:"games"`
	Rows        int    `json:"rows"`
	Possessions int    `json:"possessions"`
	Unassigned  int    `json:"unassigned"`
	Options     string `json:"options"`
}

type gameJSON struct {
	GameID             int64   `json:"game_id"`
	Teams              []int64 `json:"teams"`
	Rows               int     `json:"rows"`
	Possessions        int     `json:"possessions"`
	Unassigned         int     `json:"unassigned"`
	UnresolvedRestarts int     `json:"unresolved_restarts"`
}

type possessionJSON struct {
	GameID          int64 `json:"game_id"`
	PossessionID    int   `json:"possession_id"`
	TeamID          int64 `json:"team_id"`
	StartRow        int   `json:"start_row"`
	EndRow          *int  `json:"end_row"`
	StartPeriod     int   `json:"start_period"`
	StartSequenceNo int   `json:"start_sequence_no"`
	EndPeriod       *int  `json:"end_period"`
	EndSequenceNo   *int  `json:"end_sequence_no"`
	Rows            int   `json:"rows"`
}

type rowJSON struct {
	Row            int    `json:"row"`
	GameID         int64  `json:"game_id"`
	Period         int    `json:"period"`
	SequenceNo     int    `json:"sequence_no"`
	TeamID         *int64 `json:"team_id"`
	Actions        []int  `json:"actions"`
	PossessionID   *int   `json:"possession_id"`
	PossessionTeam *int64 `json:"possession_team"`
	Opens          bool   `json:"opens"`
	Closes         bool   `json:"closes"`
}

func toDatasetJSON(d model.DatasetSummary) datasetJSON {
	return datasetJSON{
		Hash:        d.Hash,
		Source:      d.Source,
		LoadedAt:    d.LoadedAt,
		Games:       d.Games,
		Rows:        d.Rows,
		Possessions: d.Possessions,
		Unassigned:  d.Unassigned,
		Options:     d.Options,
	}
}

func toGameJSON(g model.GameSummary) gameJSON {
	teams := make([]int64, len(g.Teams))
	for i, t := range g.Teams {
		teams[i] = int64(t)
	}
	return gameJSON{
		GameID:             g.GameID,
		Teams:              teams,
		Rows:               g.Rows,
		Possessions:        g.Possessions,
		Unassigned:         g.Unassigned,
		UnresolvedRestarts: g.UnresolvedRestarts,
	}
}

func toPossessionJSON(p model.Possession) possessionJSON {
	out := possessionJSON{
		GameID:          p.GameID,
		PossessionID:    p.PossessionID,
		TeamID:          int64(p.Team),
		StartRow:        p.StartRow,
		StartPeriod:     p.StartPeriod,
		StartSequenceNo: p.StartSequenceNo,
		Rows:            p.Rows,
	}
	if p.Closed {
		out.EndRow = ptr(p.EndRow)
		out.EndPeriod = ptr(p.EndPeriod)
		out.EndSequenceNo = ptr(p.EndSequenceNo)
	}
	return out
}

func toRowJSON(r model.EventRow, a model.Attribution) rowJSON {
	out := rowJSON{
		Row:        a.Row,
		GameID:     r.GameID,
		Period:     r.Period,
		SequenceNo: r.SequenceNo,
		Actions:    []int{},
		Opens:      a.Opens,
		Closes:     a.Closes,
	}
	if r.Team.Valid() {
		out.TeamID = ptr(int64(r.Team))
	}
	for _, code := range r.Actions {
		if code != model.NoAction {
			out.Actions = append(out.Actions, code)
		}
	}
	if a.Assigned() {
		out.PossessionID = ptr(a.PossessionID)
		out.PossessionTeam = ptr(int64(a.Team))
	}
	return out
}

func ptr[T any](v T) *T { return &v }

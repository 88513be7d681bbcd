package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pable/go-pbp-possessions/internal/model"
)

// DatasetExists returns true if a dataset with the given hash is already stored.
func (db *DB) DatasetExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM datasets WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertDataset inserts or updates a dataset record. It upserts rather than
// replaces so rows referencing the dataset survive.
func (db *DB) InsertDataset(s model.DatasetSummary) error {
	_, err := db.conn.Exec(`
		INSERT INTO datasets(hash, source, loaded_at, games, rows, possessions, unassigned, options)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			source = excluded.source, loaded_at = excluded.loaded_at,
			games = excluded.games, rows = excluded.rows,
			possessions = excluded.possessions, unassigned = excluded.unassigned,
			options = excluded.options`,
		s.Hash, s.Source, s.LoadedAt, s.Games, s.Rows, s.Possessions, s.Unassigned, s.Options,
	)
	return err
}

// DeleteDataset removes a dataset and everything segmented from it.
func (db *DB) DeleteDataset(hash string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"row_attributions", "possessions", "games"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE dataset_hash = ?", hash); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM datasets WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	return tx.Commit()
}

// InsertGames bulk-inserts per-game summaries in a transaction.
func (db *DB) InsertGames(hash string, games []model.GameSummary) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO games(
			dataset_hash, game_id, teams, rows, possessions, unassigned, unresolved_restarts
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range games {
		_, err = stmt.Exec(hash, g.GameID, formatTeams(g.Teams),
			g.Rows, g.Possessions, g.Unassigned, g.UnresolvedRestarts)
		if err != nil {
			return fmt.Errorf("insert game %d: %w", g.GameID, err)
		}
	}
	return tx.Commit()
}

// InsertPossessions bulk-inserts possession records in a transaction.
func (db *DB) InsertPossessions(hash string, ps []model.Possession) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO possessions(
			dataset_hash, game_id, possession_id, team_id,
			start_row, end_row, start_period, start_sequence_no,
			end_period, end_sequence_no, rows
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range ps {
		var endRow, endPeriod, endSeq sql.NullInt64
		if p.Closed {
			endRow = nullInt(p.EndRow)
			endPeriod = nullInt(p.EndPeriod)
			endSeq = nullInt(p.EndSequenceNo)
		}
		_, err = stmt.Exec(
			hash, p.GameID, p.PossessionID, int64(p.Team),
			p.StartRow, endRow, p.StartPeriod, p.StartSequenceNo,
			endPeriod, endSeq, p.Rows,
		)
		if err != nil {
			return fmt.Errorf("insert possession %d/%d: %w", p.GameID, p.PossessionID, err)
		}
	}
	return tx.Commit()
}

// InsertRows bulk-inserts index-aligned rows and their attributions.
func (db *DB) InsertRows(hash string, rows []model.EventRow, attrs []model.Attribution) error {
	if len(rows) != len(attrs) {
		return fmt.Errorf("insert rows: %d rows but %d attributions", len(rows), len(attrs))
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO row_attributions(
			dataset_hash, row_index, game_id, period, sequence_no, team_id,
			action1, action2, action3,
			possession_id, possession_team, opens, closes
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		a := attrs[i]
		var pid, pteam sql.NullInt64
		if a.Assigned() {
			pid = nullInt(a.PossessionID)
			pteam = sql.NullInt64{Int64: int64(a.Team), Valid: true}
		}
		_, err = stmt.Exec(
			hash, a.Row, r.GameID, r.Period, r.SequenceNo, nullTeam(r.Team),
			nullAction(r.Actions[0]), nullAction(r.Actions[1]), nullAction(r.Actions[2]),
			pid, pteam, boolInt(a.Opens), boolInt(a.Closes),
		)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", a.Row, err)
		}
	}
	return tx.Commit()
}

const datasetColumns = `hash, source, loaded_at, games, rows, possessions, unassigned, options`

func scanDataset(sc interface{ Scan(...any) error }) (model.DatasetSummary, error) {
	var s model.DatasetSummary
	err := sc.Scan(&s.Hash, &s.Source, &s.LoadedAt, &s.Games, &s.Rows, &s.Possessions, &s.Unassigned, &s.Options)
	return s, err
}

// ListDatasets returns all stored datasets, newest first.
func (db *DB) ListDatasets() ([]model.DatasetSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + datasetColumns + ` FROM datasets ORDER BY loaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DatasetSummary
	for rows.Next() {
		s, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetDatasetByPrefix finds the first dataset whose hash starts with the given prefix.
func (db *DB) GetDatasetByPrefix(prefix string) (*model.DatasetSummary, error) {
	row := db.conn.QueryRow(`SELECT `+datasetColumns+` FROM datasets WHERE hash LIKE ? ORDER BY hash LIMIT 1`, prefix+"%")
	s, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetGames returns the game summaries of a dataset ordered by game id.
func (db *DB) GetGames(hash string) ([]model.GameSummary, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, teams, rows, possessions, unassigned, unresolved_restarts
		FROM games WHERE dataset_hash = ? ORDER BY game_id`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GameSummary
	for rows.Next() {
		var g model.GameSummary
		var teams string
		if err := rows.Scan(&g.GameID, &teams, &g.Rows, &g.Possessions, &g.Unassigned, &g.UnresolvedRestarts); err != nil {
			return nil, err
		}
		g.Teams = parseTeams(teams)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetPossessions returns a dataset's possessions in (game, id) order. A
// gameID of 0 returns every game.
func (db *DB) GetPossessions(hash string, gameID int64) ([]model.Possession, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, possession_id, team_id, start_row, end_row,
		       start_period, start_sequence_no, end_period, end_sequence_no, rows
		FROM possessions
		WHERE dataset_hash = ? AND (? = 0 OR game_id = ?)
		ORDER BY game_id, possession_id`, hash, gameID, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Possession
	for rows.Next() {
		var p model.Possession
		var team int64
		var endRow, endPeriod, endSeq sql.NullInt64
		if err := rows.Scan(&p.GameID, &p.PossessionID, &team, &p.StartRow, &endRow,
			&p.StartPeriod, &p.StartSequenceNo, &endPeriod, &endSeq, &p.Rows); err != nil {
			return nil, err
		}
		p.Team = model.TeamID(team)
		if endRow.Valid {
			p.Closed = true
			p.EndRow = int(endRow.Int64)
			p.EndPeriod = int(endPeriod.Int64)
			p.EndSequenceNo = int(endSeq.Int64)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetRows returns a dataset's rows and attributions in row order. A gameID of
// 0 returns every game.
func (db *DB) GetRows(hash string, gameID int64) ([]model.EventRow, []model.Attribution, error) {
	rows, err := db.conn.Query(`
		SELECT row_index, game_id, period, sequence_no, team_id,
		       action1, action2, action3,
		       possession_id, possession_team, opens, closes
		FROM row_attributions
		WHERE dataset_hash = ? AND (? = 0 OR game_id = ?)
		ORDER BY row_index`, hash, gameID, gameID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		events []model.EventRow
		attrs  []model.Attribution
	)
	for rows.Next() {
		var r model.EventRow
		var a model.Attribution
		var team, a1, a2, a3, pid, pteam sql.NullInt64
		var opens, closes int
		if err := rows.Scan(&a.Row, &r.GameID, &r.Period, &r.SequenceNo, &team,
			&a1, &a2, &a3, &pid, &pteam, &opens, &closes); err != nil {
			return nil, nil, err
		}
		r.Team = model.TeamID(team.Int64)
		r.Actions = [model.ActionSlots]int{int(a1.Int64), int(a2.Int64), int(a3.Int64)}
		r.Raw = canonicalRecord(r)

		a.GameID = r.GameID
		a.PossessionID = int(pid.Int64)
		a.Team = model.TeamID(pteam.Int64)
		a.Opens = opens != 0
		a.Closes = closes != 0

		events = append(events, r)
		attrs = append(attrs, a)
	}
	return events, attrs, rows.Err()
}

// CanonicalHeader is the column layout of rows read back from the store.
var CanonicalHeader = []string{"game_id", "period", "sequence_no", "team_id", "action1", "action2", "action3"}

func canonicalRecord(r model.EventRow) []string {
	rec := []string{
		strconv.FormatInt(r.GameID, 10),
		strconv.Itoa(r.Period),
		strconv.Itoa(r.SequenceNo),
		"",
	}
	if r.Team.Valid() {
		rec[3] = r.Team.String()
	}
	for _, a := range r.Actions {
		if a == model.NoAction {
			rec = append(rec, "")
		} else {
			rec = append(rec, strconv.Itoa(a))
		}
	}
	return rec
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				rec[i] = "NULL"
			case []byte:
				rec[i] = string(x)
			default:
				rec[i] = fmt.Sprint(x)
			}
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nullTeam(t model.TeamID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(t), Valid: t.Valid()}
}

func nullAction(a int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(a), Valid: a != model.NoAction}
}

func formatTeams(ts []model.TeamID) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func parseTeams(s string) []model.TeamID {
	if s == "" {
		return nil
	}
	var out []model.TeamID
	for _, p := range strings.Split(s, ",") {
		if v, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, model.TeamID(v))
		}
	}
	return out
}

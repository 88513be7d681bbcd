package pbp

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pable/go-pbp-possessions/internal/model"
)

// Columns appended to every input row on export. Cells are empty for rows
// outside a possession.
var RowColumns = []string{
	"possession_id",
	"possession_team",
	"possession_start_row_index",
	"possession_end_row_index",
	"possession_start_flag",
	"possession_end_flag",
}

// PossessionColumns is the header of the possession table.
var PossessionColumns = []string{
	"game_id", "possession_id", "team_id", "start_row", "end_row",
	"start_period", "start_sequence_no", "end_period", "end_sequence_no", "rows",
}

type possessionKey struct {
	game int64
	id   int
}

// WriteRows writes the input columns of every row followed by RowColumns.
// Input columns that share a name with RowColumns are replaced. rows and
// attrs must be index-aligned.
func WriteRows(w io.Writer, header []string, rows []model.EventRow, attrs []model.Attribution, ps []model.Possession) error {
	if len(rows) != len(attrs) {
		return fmt.Errorf("write rows: %d rows but %d attributions", len(rows), len(attrs))
	}

	replaced := make(map[string]bool, len(RowColumns))
	for _, c := range RowColumns {
		replaced[c] = true
	}
	var keep []int
	out := make([]string, 0, len(header)+len(RowColumns))
	for i, h := range header {
		if replaced[normalize(h)] {
			continue
		}
		keep = append(keep, i)
		out = append(out, h)
	}
	out = append(out, RowColumns...)

	byKey := make(map[possessionKey]model.Possession, len(ps))
	for _, p := range ps {
		byKey[possessionKey{p.GameID, p.PossessionID}] = p
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(out); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, 0, len(out))
	for i, r := range rows {
		rec = rec[:0]
		for _, k := range keep {
			if k < len(r.Raw) {
				rec = append(rec, r.Raw[k])
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, rowCells(attrs[i], byKey)...)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func rowCells(a model.Attribution, byKey map[possessionKey]model.Possession) []string {
	cells := make([]string, len(RowColumns))
	cells[4] = flag(a.Opens)
	cells[5] = flag(a.Closes)
	if !a.Assigned() {
		return cells
	}
	cells[0] = strconv.Itoa(a.PossessionID)
	cells[1] = a.Team.String()
	if p, ok := byKey[possessionKey{a.GameID, a.PossessionID}]; ok {
		cells[2] = strconv.Itoa(p.StartRow)
		if p.Closed {
			cells[3] = strconv.Itoa(p.EndRow)
		}
	}
	return cells
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// WritePossessions writes one line per possession.
func WritePossessions(w io.Writer, ps []model.Possession) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PossessionColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range ps {
		end, endPeriod, endSeq := "", "", ""
		if p.Closed {
			end = strconv.Itoa(p.EndRow)
			endPeriod = strconv.Itoa(p.EndPeriod)
			endSeq = strconv.Itoa(p.EndSequenceNo)
		}
		rec := []string{
			strconv.FormatInt(p.GameID, 10),
			strconv.Itoa(p.PossessionID),
			p.Team.String(),
			strconv.Itoa(p.StartRow),
			end,
			strconv.Itoa(p.StartPeriod),
			strconv.Itoa(p.StartSequenceNo),
			endPeriod,
			endSeq,
			strconv.Itoa(p.Rows),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write possession %d/%d: %w", p.GameID, p.PossessionID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

package possession

import (
	"fmt"

	"github.com/pable/go-pbp-possessions/internal/model"
)

// Violation describes one broken segmentation invariant.
type Violation struct {
	GameID       int64
	PossessionID int
	Reason       string
}

func (v Violation) String() string {
	return fmt.Sprintf("game %d possession %d: %s", v.GameID, v.PossessionID, v.Reason)
}

// Verify checks one game's possessions: ids contiguous from 1, start ≤ end,
// and end_row(k) ≤ start_row(k+1).
func Verify(ps []model.Possession) []Violation {
	var out []Violation
	for k, p := range ps {
		if p.PossessionID != k+1 {
			out = append(out, Violation{p.GameID, p.PossessionID,
				fmt.Sprintf("expected id %d", k+1)})
		}
		if !p.Closed {
			out = append(out, Violation{p.GameID, p.PossessionID, "never closed"})
			continue
		}
		if p.EndRow < p.StartRow {
			out = append(out, Violation{p.GameID, p.PossessionID,
				fmt.Sprintf("ends at row %d before it starts at row %d", p.EndRow, p.StartRow)})
		}
		if k+1 < len(ps) && p.EndRow > ps[k+1].StartRow {
			out = append(out, Violation{p.GameID, p.PossessionID,
				fmt.Sprintf("overlaps possession %d (end %d > start %d)",
					ps[k+1].PossessionID, p.EndRow, ps[k+1].StartRow)})
		}
	}
	return out
}

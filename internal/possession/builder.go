package possession

import "github.com/pable/go-pbp-possessions/internal/model"

// Builder accumulates open/close markers into possession records for one game.
type Builder struct {
	gameID      int64
	rows        []model.EventRow
	offset      int
	possessions []model.Possession
}

// NewBuilder returns a builder for one game. Row indices passed to Open and
// Close are local to rows; offset converts them to dataset indices.
func NewBuilder(gameID int64, rows []model.EventRow, offset int) *Builder {
	return &Builder{gameID: gameID, rows: rows, offset: offset}
}

// Open starts possession id for team at row i. Ids must arrive in order.
func (b *Builder) Open(id int, team model.TeamID, i int) {
	r := b.rows[i]
	b.possessions = append(b.possessions, model.Possession{
		GameID:          b.gameID,
		PossessionID:    id,
		Team:            team,
		StartRow:        b.offset + i,
		StartPeriod:     r.Period,
		StartSequenceNo: r.SequenceNo,
	})
}

// Close ends possession id at row i. Closing an unknown or already-closed
// possession is ignored.
func (b *Builder) Close(id int, i int) {
	p := b.find(id)
	if p == nil || p.Closed {
		return
	}
	r := b.rows[i]
	p.EndRow = b.offset + i
	p.EndPeriod = r.Period
	p.EndSequenceNo = r.SequenceNo
	p.Closed = true
}

// Count records one more row attributed to possession id.
func (b *Builder) Count(id int) {
	if p := b.find(id); p != nil {
		p.Rows++
	}
}

func (b *Builder) find(id int) *model.Possession {
	// Ids are 1-based and contiguous, so the slice index is id-1.
	if id < 1 || id > len(b.possessions) {
		return nil
	}
	return &b.possessions[id-1]
}

// Possessions returns the records built so far.
func (b *Builder) Possessions() []model.Possession {
	return append([]model.Possession(nil), b.possessions...)
}

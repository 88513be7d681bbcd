// Package possession reconstructs team possessions from ordered play-by-play
// rows.
//
// Each game runs through its own state machine. A possession opens on a clear
// gain of control (defensive rebound, steal, inbound) and closes on a made
// shot, a turnover, or the other team taking the ball. When control changes
// hands without dead time between, the close and the open are stamped on the
// same row. Rows between a close and the next open stay unassigned.
package possession

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/model"
)

// GameResult is the segmentation of one game.
type GameResult struct {
	Summary      model.GameSummary
	Attributions []model.Attribution
	Possessions  []model.Possession
}

// SegmentGame runs the state machine over one game's rows, which must already
// be in (period, sequence_no) order. Row indices in the result are offset+i.
func SegmentGame(gameID int64, rows []model.EventRow, offset int, opts Options) GameResult {
	table := opts.table()
	m := newMachine(gameID, rows, offset)
	m.openOnFirstAction = opts.OpenOnFirstAction
	for i, r := range rows {
		m.step(i, r.Team, table.Classify(r.Actions))
	}
	m.finish()

	ps := m.b.Possessions()
	unassigned := 0
	for _, a := range m.attrs {
		if !a.Assigned() {
			unassigned++
		}
	}
	return GameResult{
		Summary: model.GameSummary{
			GameID:             gameID,
			Teams:              m.opp.Teams(),
			Rows:               len(rows),
			Possessions:        len(ps),
			Unassigned:         unassigned,
			UnresolvedRestarts: m.unresolved,
		},
		Attributions: m.attrs,
		Possessions:  ps,
	}
}

// Options configures segmentation.
type Options struct {
	Table   *classify.Table // nil uses classify.Default
	Workers int             // games segmented concurrently; <= 0 uses GOMAXPROCS
	Logger  *slog.Logger    // nil uses slog.Default

	// OpenOnFirstAction lets a teamed shot, free throw, offensive rebound or
	// turnover open the first possession of a game whose log starts mid-play.
	// It is off by default: only a defensive rebound, steal or restart opens
	// from idle, so a game that starts with a miss, offensive rebound and make
	// by one team yields no possession until this is set.
	OpenOnFirstAction bool
}

// Fingerprint identifies the settings that change segmentation output. Worker
// count and logger do not.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("codes=%s;open_on_first_action=%t", o.table().Fingerprint(), o.OpenOnFirstAction)
}

func (o Options) table() *classify.Table {
	if o.Table == nil {
		return classify.Default()
	}
	return o.Table
}

// Result is the segmentation of a whole dataset.
type Result struct {
	Rows         []model.EventRow // sorted by (game_id, period, sequence_no)
	Attributions []model.Attribution
	Possessions  []model.Possession
	Games        []model.GameSummary
}

// Unassigned counts rows outside any possession.
func (r *Result) Unassigned() int {
	n := 0
	for _, g := range r.Games {
		n += g.Unassigned
	}
	return n
}

// SortRows returns a copy of rows stably sorted by (game_id, period,
// sequence_no). Rows with equal keys keep their input order.
func SortRows(rows []model.EventRow) []model.EventRow {
	out := append([]model.EventRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type gameSpan struct {
	id         int64
	start, end int
}

func splitGames(rows []model.EventRow) []gameSpan {
	var spans []gameSpan
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].GameID == rows[i].GameID {
			j++
		}
		spans = append(spans, gameSpan{id: rows[i].GameID, start: i, end: j})
		i = j
	}
	return spans
}

// Segment sorts rows and segments every game. Games share no state, so they
// are fanned out across workers and merged back in game order.
func Segment(ctx context.Context, rows []model.EventRow, opts Options) (*Result, error) {
	if opts.Table == nil {
		opts.Table = classify.Default()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	sorted := SortRows(rows)
	spans := splitGames(sorted)
	results := make([]GameResult, len(spans))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, span := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := SegmentGame(span.id, sorted[span.start:span.end], span.start, opts)
			results[k] = res
			logGame(log, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{
		Rows:         sorted,
		Attributions: make([]model.Attribution, 0, len(sorted)),
		Games:        make([]model.GameSummary, 0, len(results)),
	}
	for _, res := range results {
		out.Attributions = append(out.Attributions, res.Attributions...)
		out.Possessions = append(out.Possessions, res.Possessions...)
		out.Games = append(out.Games, res.Summary)
	}
	return out, nil
}

func logGame(log *slog.Logger, res GameResult) {
	s := res.Summary
	log.Debug("game segmented",
		"game", s.GameID, "rows", s.Rows,
		"possessions", s.Possessions, "unassigned", s.Unassigned)
	if len(s.Teams) != 2 {
		log.Warn("game does not have exactly two teams; teamless restarts cannot be attributed",
			"game", s.GameID, "teams", len(s.Teams))
	}
	if s.UnresolvedRestarts > 0 {
		log.Warn("unresolved restarts", "game", s.GameID, "count", s.UnresolvedRestarts)
	}
	for _, v := range Verify(res.Possessions) {
		log.Warn("possession invariant violated", "detail", v.String())
	}
}

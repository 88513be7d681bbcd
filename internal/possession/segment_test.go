package possession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func inGame(id int64, period, seq int, r model.EventRow) model.EventRow {
	r.GameID = id
	r.Period = period
	r.SequenceNo = seq
	return r
}

func TestSegmentSortsAndSplitsGames(t *testing.T) {
	// Shuffled input: game 2 first, game 1's period 2 before its period 1.
	rows := []model.EventRow{
		inGame(2, 1, 2, ev(teamB, codeMade)),
		inGame(1, 2, 1, ev(teamB, codeSteal)),
		inGame(2, 1, 1, ev(teamB, codeDReb)),
		inGame(1, 1, 2, ev(teamA, codeMade)),
		inGame(1, 1, 1, ev(teamA, codeDReb)),
	}

	res, err := Segment(context.Background(), rows, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	// Sorted order: g1p1s1, g1p1s2, g1p2s1, g2p1s1, g2p1s2.
	for i := 1; i < len(res.Rows); i++ {
		if res.Rows[i].Less(res.Rows[i-1]) {
			t.Fatalf("rows not sorted at %d", i)
		}
	}
	if len(res.Games) != 2 || res.Games[0].GameID != 1 || res.Games[1].GameID != 2 {
		t.Fatalf("games: %+v", res.Games)
	}

	want := []model.Possession{
		{GameID: 1, PossessionID: 1, Team: teamA, StartRow: 0, EndRow: 1, Closed: true,
			StartPeriod: 1, StartSequenceNo: 1, EndPeriod: 1, EndSequenceNo: 2, Rows: 2},
		{GameID: 1, PossessionID: 2, Team: teamB, StartRow: 2, EndRow: 2, Closed: true,
			StartPeriod: 2, StartSequenceNo: 1, EndPeriod: 2, EndSequenceNo: 1, Rows: 1},
		{GameID: 2, PossessionID: 1, Team: teamB, StartRow: 3, EndRow: 4, Closed: true,
			StartPeriod: 1, StartSequenceNo: 1, EndPeriod: 1, EndSequenceNo: 2, Rows: 2},
	}
	if !reflect.DeepEqual(res.Possessions, want) {
		t.Errorf("possessions:\n got %+v\nwant %+v", res.Possessions, want)
	}

	for i, a := range res.Attributions {
		if a.Row != i {
			t.Errorf("attribution %d has row %d", i, a.Row)
		}
		if a.GameID != res.Rows[i].GameID {
			t.Errorf("attribution %d: game %d, row game %d", i, a.GameID, res.Rows[i].GameID)
		}
	}
}

func TestSegmentKeepsInputOrderForEqualKeys(t *testing.T) {
	rows := []model.EventRow{
		inGame(1, 1, 1, ev(teamA, codeDReb)),
		inGame(1, 1, 1, ev(teamA, codeMade)),
	}
	res, err := Segment(context.Background(), rows, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	assertPossessions(t, res.Possessions, span{teamA, 0, 1})
}

// randomGames builds a deterministic pseudo-random dataset.
func randomGames(seed int64, games, rowsPerGame int) []model.EventRow {
	rng := rand.New(rand.NewSource(seed))
	codes := []int{codeMade, codeMiss, codeOReb, codeDReb, codeFT, codeSteal, codeTO,
		codeSub, codeTimeout, codeInbound, codeJump, 0, 999}
	teams := []model.TeamID{teamA, teamB, none}

	var rows []model.EventRow
	for g := 1; g <= games; g++ {
		for i := 0; i < rowsPerGame; i++ {
			r := model.EventRow{
				GameID:     int64(g),
				Period:     1 + i/(rowsPerGame/4+1),
				SequenceNo: i + 1,
				Team:       teams[rng.Intn(len(teams))],
			}
			r.Actions[0] = codes[rng.Intn(len(codes))]
			if rng.Intn(4) == 0 {
				r.Actions[1] = codes[rng.Intn(len(codes))]
			}
			rows = append(rows, r)
		}
	}
	return rows
}

func TestSegmentInvariantsOnRandomLogs(t *testing.T) {
	rows := randomGames(7, 12, 300)
	res, err := Segment(context.Background(), rows, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	byGame := make(map[int64][]model.Possession)
	for _, p := range res.Possessions {
		byGame[p.GameID] = append(byGame[p.GameID], p)
	}
	for gid, ps := range byGame {
		if vs := Verify(ps); len(vs) > 0 {
			t.Errorf("game %d: %v", gid, vs)
		}
	}

	// Every assigned row lies inside its possession's span.
	index := make(map[[2]int64]model.Possession)
	for _, p := range res.Possessions {
		index[[2]int64{p.GameID, int64(p.PossessionID)}] = p
	}
	for _, a := range res.Attributions {
		if !a.Assigned() {
			continue
		}
		p, ok := index[[2]int64{a.GameID, int64(a.PossessionID)}]
		if !ok {
			t.Fatalf("row %d refers to unknown possession %d", a.Row, a.PossessionID)
		}
		if a.Row < p.StartRow || a.Row > p.EndRow || a.Team != p.Team {
			t.Errorf("row %d outside possession %d (%d-%d)", a.Row, p.PossessionID, p.StartRow, p.EndRow)
		}
	}
}

func TestSegmentIsDeterministicAcrossWorkerCounts(t *testing.T) {
	rows := randomGames(42, 20, 150)
	ctx := context.Background()

	first, err := Segment(ctx, rows, Options{Workers: 1, Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	second, err := Segment(ctx, rows, Options{Workers: 8, Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if !reflect.DeepEqual(first.Possessions, second.Possessions) {
		t.Error("possessions differ between runs")
	}
	if !reflect.DeepEqual(first.Attributions, second.Attributions) {
		t.Error("attributions differ between runs")
	}
	if first.Unassigned() != second.Unassigned() {
		t.Error("unassigned counts differ between runs")
	}
}

func TestSegmentDoesNotMutateInput(t *testing.T) {
	rows := []model.EventRow{
		inGame(1, 1, 2, ev(teamA, codeMade)),
		inGame(1, 1, 1, ev(teamA, codeDReb)),
	}
	before := append([]model.EventRow(nil), rows...)
	if _, err := Segment(context.Background(), rows, Options{Logger: quiet}); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if !reflect.DeepEqual(rows, before) {
		t.Error("input rows were reordered")
	}
}

func TestSegmentHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Segment(ctx, randomGames(1, 3, 10), Options{Logger: quiet})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	res, err := Segment(context.Background(), nil, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(res.Games) != 0 || len(res.Possessions) != 0 || res.Unassigned() != 0 {
		t.Errorf("unexpected output: %+v", res)
	}
}

func TestOptionsFingerprint(t *testing.T) {
	base := Options{}
	if base.Fingerprint() != (Options{Table: classify.Default(), Workers: 8, Logger: quiet}).Fingerprint() {
		t.Error("default table, workers and logger should not change the fingerprint")
	}
	if base.Fingerprint() == (Options{OpenOnFirstAction: true}).Fingerprint() {
		t.Error("OpenOnFirstAction should change the fingerprint")
	}
	other := classify.NewTable(map[classify.Category][]int{classify.Steal: {14}})
	if base.Fingerprint() == (Options{Table: other}).Fingerprint() {
		t.Error("a different code table should change the fingerprint")
	}
}

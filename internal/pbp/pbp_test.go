package pbp

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"

	"github.com/pable/go-pbp-possessions/internal/model"
)

const englishCSV = `game_id,period,sequence_no,team_id,action1,action2,action3,x
10,1,1,701,9,,,12.5
10,1,2,701,3.0,,,3
10,1,3,,86,,,
10,1,4,702,abc,114,,
`

func TestReadEnglishHeader(t *testing.T) {
	ds, err := Read(strings.NewReader(englishCSV), UTF8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(ds.Rows))
	}
	r := ds.Rows[1]
	if r.GameID != 10 || r.Period != 1 || r.SequenceNo != 2 || r.Team != 701 || r.Actions != [3]int{3, 0, 0} {
		t.Errorf("row 1: %+v", r)
	}
	if ds.Rows[2].Team != model.NoTeam {
		t.Errorf("empty team cell should be NoTeam, got %v", ds.Rows[2].Team)
	}
	// "abc" is malformed: the slot is absent but the row survives.
	if got := ds.Rows[3].Actions; got != [3]int{0, 114, 0} {
		t.Errorf("row 3 actions: %v", got)
	}
	if ds.Malformed != 1 {
		t.Errorf("malformed: got %d, want 1", ds.Malformed)
	}
	if ds.Rows[0].Raw[7] != "12.5" {
		t.Errorf("extra column not carried: %v", ds.Rows[0].Raw)
	}
}

func TestReadJapaneseHeaderShiftJIS(t *testing.T) {
	src := "試合ID,ピリオド,履歴No,チームID,アクション1,アクション2,アクション3,選手名\n" +
		"5,2,7,33,14,,,田中\n"
	enc, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}

	ds, err := Read(bytes.NewReader(enc), ShiftJIS)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Rows) != 1 {
		t.Fatalf("got %d rows", len(ds.Rows))
	}
	r := ds.Rows[0]
	if r.GameID != 5 || r.Period != 2 || r.SequenceNo != 7 || r.Team != 33 || r.Actions[0] != 14 {
		t.Errorf("row: %+v", r)
	}
	if r.Raw[7] != "田中" {
		t.Errorf("name column decoded as %q", r.Raw[7])
	}
}

func TestReadStripsBOM(t *testing.T) {
	src := "\xEF\xBB\xBFgame_id,period,sequence_no,team_id,action1,action2,action3\n1,1,1,2,9,,\n"
	ds, err := Read(strings.NewReader(src), UTF8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Rows) != 1 || ds.Rows[0].GameID != 1 {
		t.Errorf("rows: %+v", ds.Rows)
	}
}

func TestReadSchemaError(t *testing.T) {
	_, err := Read(strings.NewReader("game_id,period,team_id,action1\n1,1,2,9\n"), UTF8)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *SchemaError", err)
	}
	want := []string{"sequence_no", "action2", "action3"}
	if !reflect.DeepEqual(se.Missing, want) {
		t.Errorf("missing = %v, want %v", se.Missing, want)
	}
	if !strings.Contains(se.Error(), "sequence_no, action2, action3") {
		t.Errorf("message %q does not list the columns", se.Error())
	}

	if _, err := Read(strings.NewReader(""), UTF8); !errors.As(err, &se) || len(se.Missing) != 7 {
		t.Errorf("empty input: got %v", err)
	}
}

func TestReadDropsRowsWithoutKeys(t *testing.T) {
	src := "game_id,period,sequence_no,team_id,action1,action2,action3\n" +
		",1,1,2,9,,\n" +
		"1,x,1,2,9,,\n" +
		"1,1,2,2,9\n"
	ds, err := Read(strings.NewReader(src), UTF8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Dropped != 2 || len(ds.Rows) != 1 {
		t.Errorf("dropped=%d rows=%d, want 2 and 1", ds.Dropped, len(ds.Rows))
	}
	// Short record: the missing slots are absent, not an error.
	if ds.Rows[0].Actions != [3]int{9, 0, 0} {
		t.Errorf("short row actions: %v", ds.Rows[0].Actions)
	}
}

func TestReadFileHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbp.csv")
	if err := os.WriteFile(path, []byte(englishCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := ReadFile(path, UTF8)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(ds.Hash) != 64 || ds.Source != path {
		t.Errorf("hash=%q source=%q", ds.Hash, ds.Source)
	}
	again, _ := ReadFile(path, UTF8)
	if again.Hash != ds.Hash {
		t.Error("hash is not stable")
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": UTF8, "UTF-8": UTF8, "cp932": ShiftJIS, "sjis": ShiftJIS} {
		got, err := ParseEncoding(in)
		if err != nil || got != want {
			t.Errorf("ParseEncoding(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEncoding("latin1"); err == nil {
		t.Error("expected error for latin1")
	}
}

func TestWriteRows(t *testing.T) {
	header := []string{"game_id", "period", "sequence_no", "team_id", "action1", "action2", "action3", "possession_id"}
	rows := []model.EventRow{
		{GameID: 1, Raw: []string{"1", "1", "1", "7", "9", "", "", "stale"}},
		{GameID: 1, Raw: []string{"1", "1", "2", "7", "3", "", "", "stale"}},
		{GameID: 1, Raw: []string{"1", "1", "3", "7", "7", "", ""}},
	}
	attrs := []model.Attribution{
		{Row: 0, GameID: 1, PossessionID: 1, Team: 7, Opens: true},
		{Row: 1, GameID: 1, PossessionID: 1, Team: 7, Closes: true},
		{Row: 2, GameID: 1},
	}
	ps := []model.Possession{{GameID: 1, PossessionID: 1, Team: 7, StartRow: 0, EndRow: 1, Closed: true}}

	var buf bytes.Buffer
	if err := WriteRows(&buf, header, rows, attrs, ps); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := append(append([]string{}, header[:7]...), RowColumns...)
	if !reflect.DeepEqual(recs[0], wantHeader) {
		t.Errorf("header = %v", recs[0])
	}
	if got := recs[1][7:]; !reflect.DeepEqual(got, []string{"1", "7", "0", "1", "1", "0"}) {
		t.Errorf("row 0 cells = %v", got)
	}
	if got := recs[2][7:]; !reflect.DeepEqual(got, []string{"1", "7", "0", "1", "0", "1"}) {
		t.Errorf("row 1 cells = %v", got)
	}
	if got := recs[3][7:]; !reflect.DeepEqual(got, []string{"", "", "", "", "0", "0"}) {
		t.Errorf("dead-time row cells = %v", got)
	}

	if err := WriteRows(&buf, header, rows, attrs[:1], ps); err == nil {
		t.Error("expected error for misaligned attributions")
	}
}

func TestWritePossessions(t *testing.T) {
	ps := []model.Possession{
		{GameID: 3, PossessionID: 1, Team: 7, StartRow: 10, EndRow: 12, Closed: true,
			StartPeriod: 1, StartSequenceNo: 4, EndPeriod: 1, EndSequenceNo: 6, Rows: 3},
		{GameID: 3, PossessionID: 2, Team: 8, StartRow: 12, StartPeriod: 1, StartSequenceNo: 6},
	}
	var buf bytes.Buffer
	if err := WritePossessions(&buf, ps); err != nil {
		t.Fatalf("WritePossessions: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if !reflect.DeepEqual(recs[1], []string{"3", "1", "7", "10", "12", "1", "4", "1", "6", "3"}) {
		t.Errorf("closed possession = %v", recs[1])
	}
	if recs[2][4] != "" || recs[2][7] != "" {
		t.Errorf("open possession should have empty end cells: %v", recs[2])
	}
}

func TestReadZeroTeamIsAbsent(t *testing.T) {
	src := "game_id,period,sequence_no,team_id,action1,action2,action3\n" +
		"1,1,1,0,114,,\n"
	ds, err := Read(strings.NewReader(src), UTF8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r := ds.Rows[0]; r.Team != model.NoTeam || r.Team.Valid() {
		t.Errorf("team 0 should read as NoTeam, got %v", r.Team)
	}
	if ds.Malformed != 0 {
		t.Errorf("malformed: got %d, want 0", ds.Malformed)
	}
}

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/model"
)

func TestFormatCodes(t *testing.T) {
	cases := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{7}, "7"},
		{[]int{7, 8}, "7 8"},
		{[]int{1, 3, 4, 44}, "1 3 4 44"},
		{[]int{80, 81, 82, 83, 107}, "80-83 107"},
	}
	for _, c := range cases {
		if got := formatCodes(c.in); got != c.want {
			t.Errorf("formatCodes(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPct(t *testing.T) {
	if got := pct(0, 0); got != "—" {
		t.Errorf("pct(0,0) = %q", got)
	}
	if got := pct(1, 4); got != "25.0%" {
		t.Errorf("pct(1,4) = %q", got)
	}
}

func TestTopologyFlag(t *testing.T) {
	cases := []struct {
		g    model.GameSummary
		want string
	}{
		{model.GameSummary{Teams: []model.TeamID{1, 2}}, "OK"},
		{model.GameSummary{Teams: []model.TeamID{1}}, "TEAMS"},
		{model.GameSummary{Teams: []model.TeamID{1, 2}, UnresolvedRestarts: 1}, "RESTART"},
	}
	for _, c := range cases {
		if got := topologyFlag(c.g); got != c.want {
			t.Errorf("topologyFlag(%+v) = %q, want %q", c.g, got, c.want)
		}
	}
}

func TestPrintGameTable(t *testing.T) {
	games := []model.GameSummary{{GameID: 42, Teams: []model.TeamID{7, 8}, Rows: 10, Possessions: 3, Unassigned: 2}}
	ps := []model.Possession{
		{GameID: 42, PossessionID: 1, Team: 7},
		{GameID: 42, PossessionID: 2, Team: 8},
		{GameID: 42, PossessionID: 3, Team: 7},
	}
	var buf bytes.Buffer
	PrintGameTable(&buf, games, ps)
	out := buf.String()
	for _, want := range []string{"42", "7:2 8:1", "20.0%", "OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("game table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPossessionTableLimit(t *testing.T) {
	ps := []model.Possession{
		{GameID: 1, PossessionID: 1, Team: 7, Closed: true, EndRow: 3, StartPeriod: 1, StartSequenceNo: 1, EndPeriod: 1, EndSequenceNo: 4},
		{GameID: 1, PossessionID: 2, Team: 8, StartRow: 3},
	}
	var buf bytes.Buffer
	PrintPossessionTable(&buf, ps, 1)
	out := buf.String()
	if !strings.Contains(out, "Q1/4") {
		t.Errorf("expected end period/sequence in output:\n%s", out)
	}
	if !strings.Contains(out, "(1 of 2 possessions shown)") {
		t.Errorf("expected truncation note:\n%s", out)
	}
}

func TestPrintCodeTable(t *testing.T) {
	var buf bytes.Buffer
	PrintCodeTable(&buf, classify.Default())
	out := buf.String()
	for _, c := range classify.Categories {
		if !strings.Contains(out, c.String()) {
			t.Errorf("code table missing category %s", c)
		}
	}
	if !strings.Contains(out, "112-118") {
		t.Errorf("restart codes not printed as a range:\n%s", out)
	}
}

func TestPrintDatasetSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintDatasetSummary(&buf, model.DatasetSummary{Hash: "0123456789abcdef", Source: "g.csv", Rows: 4, Unassigned: 1})
	out := buf.String()
	if !strings.Contains(out, "0123456789ab") || strings.Contains(out, "0123456789abc") {
		t.Errorf("hash not shortened to 12 chars: %s", out)
	}
	if !strings.Contains(out, "25.0%") {
		t.Errorf("dead-time share missing: %s", out)
	}
}

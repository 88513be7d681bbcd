package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// PrintDatasetSummary prints a one-line summary header for a dataset.
func PrintDatasetSummary(w io.Writer, s model.DatasetSummary) {
	fmt.Fprintf(w, "\nSource: %s  |  Games: %d  |  Rows: %d  |  Possessions: %d  |  Dead time: %s  |  Hash: %s\n\n",
		s.Source, s.Games, s.Rows, s.Possessions, pct(s.Unassigned, s.Rows), shortHash(s.Hash))
}

// PrintDatasetList prints one line per stored dataset.
func PrintDatasetList(w io.Writer, list []model.DatasetSummary) {
	fmt.Fprintf(w, "%-14s  %-20s  %5s  %7s  %5s  %s\n",
		"HASH", "LOADED", "GAMES", "ROWS", "POSS", "SOURCE")
	fmt.Fprintf(w, "%-14s  %-20s  %5s  %7s  %5s  %s\n",
		"──────────────", "────────────────────", "─────", "───────", "─────", "──────")
	for _, d := range list {
		fmt.Fprintf(w, "%-14s  %-20s  %5d  %7d  %5d  %s\n",
			shortHash(d.Hash), d.LoadedAt, d.Games, d.Rows, d.Possessions, d.Source)
	}
}

// PrintGameTable prints per-game possession counts. Games whose team topology
// is not two teams are flagged in the last column.
func PrintGameTable(w io.Writer, games []model.GameSummary, ps []model.Possession) {
	table := newTable(w)
	table.Header("GAME", "TEAMS", "ROWS", "POSS", "POSS_BY_TEAM", "DEAD", "DEAD%", "UNRESOLVED", "FLAG")

	for _, g := range games {
		byTeam := make([]string, 0, len(g.Teams))
		for _, t := range g.Teams {
			byTeam = append(byTeam, fmt.Sprintf("%s:%d", t, model.PossessionsFor(ps, g.GameID, t)))
		}
		table.Append(
			strconv.FormatInt(g.GameID, 10),
			strconv.Itoa(len(g.Teams)),
			strconv.Itoa(g.Rows),
			strconv.Itoa(g.Possessions),
			strings.Join(byTeam, " "),
			strconv.Itoa(g.Unassigned),
			pct(g.Unassigned, g.Rows),
			strconv.Itoa(g.UnresolvedRestarts),
			topologyFlag(g),
		)
	}
	table.Render()
}

func topologyFlag(g model.GameSummary) string {
	switch {
	case len(g.Teams) != 2:
		return "TEAMS"
	case g.UnresolvedRestarts > 0:
		return "RESTART"
	default:
		return "OK"
	}
}

// PrintPossessionTable prints the possession records. A limit of zero or
// less prints them all.
func PrintPossessionTable(w io.Writer, ps []model.Possession, limit int) {
	table := newTable(w)
	table.Header("GAME", "ID", "TEAM", "START", "END", "START_Q/SEQ", "END_Q/SEQ", "ROWS")

	for i, p := range ps {
		if limit > 0 && i >= limit {
			break
		}
		end, endAt := "—", "—"
		if p.Closed {
			end = strconv.Itoa(p.EndRow)
			endAt = fmt.Sprintf("Q%d/%d", p.EndPeriod, p.EndSequenceNo)
		}
		table.Append(
			strconv.FormatInt(p.GameID, 10),
			strconv.Itoa(p.PossessionID),
			p.Team.String(),
			strconv.Itoa(p.StartRow),
			end,
			fmt.Sprintf("Q%d/%d", p.StartPeriod, p.StartSequenceNo),
			endAt,
			strconv.Itoa(p.Rows),
		)
	}
	table.Render()
	if limit > 0 && len(ps) > limit {
		fmt.Fprintf(w, "(%d of %d possessions shown)\n", limit, len(ps))
	}
}

// PrintCodeTable prints the action codes mapped to each category.
func PrintCodeTable(w io.Writer, t *classify.Table) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
	table.Header("CATEGORY", "N", "CODES")

	for _, c := range classify.Categories {
		codes := t.Codes(c)
		table.Append(c.String(), strconv.Itoa(len(codes)), formatCodes(codes))
	}
	table.Render()
}

// formatCodes writes runs of consecutive codes as ranges, e.g. "80-90 107".
func formatCodes(codes []int) string {
	var parts []string
	for i := 0; i < len(codes); {
		j := i
		for j+1 < len(codes) && codes[j+1] == codes[j]+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, fmt.Sprintf("%d-%d", codes[i], codes[j]))
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, strconv.Itoa(codes[k]))
			}
		}
		i = j + 1
	}
	return strings.Join(parts, " ")
}

func pct(n, of int) string {
	if of == 0 {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(of)*100)
}

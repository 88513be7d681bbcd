package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the possession database",
	Long: `Run an arbitrary SQL query against the possession database and print results as a table.

Schema overview:
  datasets(hash, source, loaded_at, games, rows, possessions, unassigned, options)
  games(dataset_hash, game_id, teams, rows, possessions, unassigned, unresolved_restarts)
  possessions(dataset_hash, game_id, possession_id, team_id, start_row, end_row,
    start_period, start_sequence_no, end_period, end_sequence_no, rows)
  row_attributions(dataset_hash, row_index, game_id, period, sequence_no, team_id,
    action1, action2, action3, possession_id, possession_team, opens, closes)

Note: end_row is NULL for a possession that was never closed, and possession_id
is NULL for rows in dead time. teams is a comma-separated list of team ids.

Example:
  pbpposs sql "SELECT team_id, COUNT(*) FROM possessions GROUP BY team_id"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	printQueryTable(cols, rows)
	return nil
}

func printQueryTable(cols []string, rows [][]string) {
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
}

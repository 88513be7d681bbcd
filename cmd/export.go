package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/pbp"
	"github.com/pable/go-pbp-possessions/internal/possession"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var (
	exportOut         string
	exportPossessions bool
	exportGameID      int64
	exportFill        bool
)

var exportCmd = &cobra.Command{
	Use:   "export <hash-prefix>",
	Short: "Export a stored dataset as CSV",
	Long: `Export a stored dataset's annotated rows, or with --possessions its possession
table, as CSV.

Rows are written with the canonical columns
  game_id, period, sequence_no, team_id, action1, action2, action3
followed by the possession columns. Input columns beyond the required ones are
not stored; segment with --out to keep them.

Example:
  pbpposs export 3fa9c1 --game 20230415 --out game.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output path (- for stdout)")
	exportCmd.Flags().BoolVar(&exportPossessions, "possessions", false, "export the possession table instead of rows")
	exportCmd.Flags().Int64Var(&exportGameID, "game", 0, "only export this game")
	exportCmd.Flags().BoolVar(&exportFill, "fill", false, "forward-fill dead-time rows with the previous possession")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ds, err := db.GetDatasetByPrefix(args[0])
	if err != nil {
		return fmt.Errorf("query dataset: %w", err)
	}
	if ds == nil {
		return fmt.Errorf("no dataset found with hash prefix %q", args[0])
	}

	ps, err := db.GetPossessions(ds.Hash, exportGameID)
	if err != nil {
		return fmt.Errorf("get possessions: %w", err)
	}
	if exportPossessions {
		return writeOutput(exportOut, func(w io.Writer) error {
			return pbp.WritePossessions(w, ps)
		})
	}

	rows, attrs, err := db.GetRows(ds.Hash, exportGameID)
	if err != nil {
		return fmt.Errorf("get rows: %w", err)
	}
	if exportFill {
		attrs = possession.ForwardFill(attrs)
	}
	return writeOutput(exportOut, func(w io.Writer) error {
		return pbp.WriteRows(w, storage.CanonicalHeader, rows, attrs, ps)
	})
}

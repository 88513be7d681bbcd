package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/report"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var (
	showGameID int64
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show a stored dataset's games and possessions by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Int64Var(&showGameID, "game", 0, "only show possessions of this game")
	showCmd.Flags().IntVar(&showLimit, "limit", 40, "maximum possessions to print (0 = all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ds, err := db.GetDatasetByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query dataset: %w", err)
	}
	if ds == nil {
		fmt.Fprintf(os.Stderr, "No dataset found with hash prefix %q\n", prefix)
		return nil
	}

	games, err := db.GetGames(ds.Hash)
	if err != nil {
		return fmt.Errorf("get games: %w", err)
	}
	all, err := db.GetPossessions(ds.Hash, 0)
	if err != nil {
		return fmt.Errorf("get possessions: %w", err)
	}
	ps := all
	if showGameID != 0 {
		ps, err = db.GetPossessions(ds.Hash, showGameID)
		if err != nil {
			return fmt.Errorf("get possessions: %w", err)
		}
	}

	report.PrintDatasetSummary(os.Stdout, *ds)
	report.PrintGameTable(os.Stdout, games, all)
	fmt.Fprintln(os.Stdout)
	report.PrintPossessionTable(os.Stdout, ps, showLimit)
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/report"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var gamesCmd = &cobra.Command{
	Use:   "games <hash-prefix> [game-id]",
	Short: "List a dataset's games, or one game's possessions",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runGames,
}

func runGames(cmd *cobra.Command, args []string) error {
	var gameID int64
	if len(args) == 2 {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid game id %q", args[1])
		}
		gameID = id
	}

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
		fmt.Fprintf(os.Stderr, "No dataset found with hash prefix %q\n", args[0])
		return nil
	}
	return printGames(db, ds.Hash, gameID)
}

// printGames prints the game table, or the possessions of gameID when non-zero.
func printGames(db *storage.DB, hash string, gameID int64) error {
	ps, err := db.GetPossessions(hash, gameID)
	if err != nil {
		return fmt.Errorf("get possessions: %w", err)
	}
	if gameID != 0 {
		if len(ps) == 0 {
			fmt.Fprintf(os.Stderr, "No possessions for game %d\n", gameID)
			return nil
		}
		report.PrintPossessionTable(os.Stdout, ps, 0)
		return nil
	}
	games, err := db.GetGames(hash)
	if err != nil {
		return fmt.Errorf("get games: %w", err)
	}
	report.PrintGameTable(os.Stdout, games, ps)
	return nil
}

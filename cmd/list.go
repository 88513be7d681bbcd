package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/report"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored datasets",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	list, err := db.ListDatasets()
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stdout, "No datasets stored yet. Run 'pbpposs segment <pbp.csv>' to add one.")
		return nil
	}
	report.PrintDatasetList(os.Stdout, list)
	return nil
}

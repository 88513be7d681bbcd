package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/report"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Print the action-code table in use",
	Long:  "Print the action codes mapped to each event category. Pass --codes to inspect a YAML override.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadCodes()
		if err != nil {
			return err
		}
		report.PrintCodeTable(os.Stdout, table)
		return nil
	},
}

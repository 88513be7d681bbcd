package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/classify"
	"github.com/pable/go-pbp-possessions/internal/config"
)

var cfg, cfgErr = config.Load()

var (
	dbPath    string
	logLevel  string
	codesPath string
)

var rootCmd = &cobra.Command{
	Use:   "pbpposs",
	Short: "Basketball play-by-play possession tool",
	Long:  "Segment basketball play-by-play logs into team possessions and store the results.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgErr != nil {
			return cfgErr
		}
		_, err := config.NewLogger(os.Stderr, logLevel)
		return err
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	if cfg.DB == "" {
		cfg.DB = config.DefaultDBPath()
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&codesPath, "codes", cfg.CodeTable, "YAML action-code table (default: built-in codes)")

	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(codesCmd)
	rootCmd.AddCommand(dropCmd)
}

func loadCodes() (*classify.Table, error) {
	table, err := classify.Load(codesPath)
	if err != nil {
		return nil, fmt.Errorf("load code table: %w", err)
	}
	return table, nil
}

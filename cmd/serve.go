package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/api"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored datasets over a read-only JSON API",
	Long: `Serve stored segmentations over HTTP.

Endpoints:
  GET /health
  GET /api/v1/datasets
  GET /api/v1/datasets/{hash}
  GET /api/v1/datasets/{hash}/games
  GET /api/v1/datasets/{hash}/games/{gameID}/possessions
  GET /api/v1/datasets/{hash}/games/{gameID}/rows?fill=true&offset=0&limit=100`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", cfg.Addr, "listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origins (default: any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.Default()
	router := api.NewRouter(api.NewHandler(db, log), serveOrigins)
	return api.Serve(ctx, serveAddr, router, log)
}

// Package api serves stored segmentations over a read-only JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pable/go-pbp-possessions/internal/model"
	"github.com/pable/go-pbp-possessions/internal/possession"
)

// Store is the subset of the possession store the API reads from.
type Store interface {
	Ping(ctx context.Context) error
	ListDatasets() ([]model.DatasetSummary, error)
	GetDatasetByPrefix(prefix string) (*model.DatasetSummary, error)
	GetGames(hash string) ([]model.GameSummary, error)
	GetPossessions(hash string, gameID int64) ([]model.Possession, error)
	GetRows(hash string, gameID int64) ([]model.EventRow, []model.Attribution, error)
}

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	store Store
	log   *slog.Logger
}

// NewHandler creates a handler over store. A nil logger uses slog.Default.
func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

// NewRouter wires the routes and middleware. Empty origins allow any origin.
func NewRouter(h *Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", h.ListDatasets)
		r.Get("/datasets/{hash}", h.GetDataset)
		r.Get("/datasets/{hash}/games", h.GetGames)
		r.Get("/datasets/{hash}/games/{gameID}/possessions", h.GetPossessions)
		r.Get("/datasets/{hash}/games/{gameID}/rows", h.GetRows)
	})
	return r
}

// Serve runs the server on addr until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", "err", err)
			return srv.Close()
		}
		log.Info("api stopped")
		return nil
	}
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()))
		})
	}
}

// HealthCheck reports whether the store is reachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// ListDatasets returns every stored dataset, newest first.
// GET /api/v1/datasets
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListDatasets()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to list datasets", err)
		return
	}
	out := make([]datasetJSON, len(list))
	for i, d := range list {
		out[i] = toDatasetJSON(d)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"datasets": out,
		"count":    len(out),
	})
}

// GetDataset returns one dataset by hash prefix.
// GET /api/v1/datasets/{hash}
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toDatasetJSON(*ds))
}

// GetGames returns the per-game summaries of a dataset.
// GET /api/v1/datasets/{hash}/games
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	games, err := h.store.GetGames(ds.Hash)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve games", err)
		return
	}
	out := make([]gameJSON, len(games))
	for i, g := range games {
		out[i] = toGameJSON(g)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"hash":  ds.Hash,
		"games": out,
		"count": len(out),
	})
}

// GetPossessions returns the possessions of one game.
// GET /api/v1/datasets/{hash}/games/{gameID}/possessions
func (h *Handler) GetPossessions(w http.ResponseWriter, r *http.Request) {
	ds, gameID, ok := h.game(w, r)
	if !ok {
		return
	}
	ps, err := h.store.GetPossessions(ds.Hash, gameID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve possessions", err)
		return
	}
	out := make([]possessionJSON, len(ps))
	for i, p := range ps {
		out[i] = toPossessionJSON(p)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"hash":        ds.Hash,
		"game_id":     gameID,
		"possessions": out,
		"count":       len(out),
	})
}

// GetRows returns the rows of one game with their attribution.
// Query params: fill (forward-fill dead time), limit, offset
// GET /api/v1/datasets/{hash}/games/{gameID}/rows
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	ds, gameID, ok := h.game(w, r)
	if !ok {
		return
	}
	rows, attrs, err := h.store.GetRows(ds.Hash, gameID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve rows", err)
		return
	}
	fill := parseBoolParam(r, "fill")
	if fill {
		attrs = possession.ForwardFill(attrs)
	}

	total := len(rows)
	offset := min(max(parseIntParam(r, "offset", 0), 0), total)
	end := total
	if limit := parseIntParam(r, "limit", 0); limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]rowJSON, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, toRowJSON(rows[i], attrs[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"hash":    ds.Hash,
		"game_id": gameID,
		"filled":  fill,
		"rows":    out,
		"count":   len(out),
		"total":   total,
		"offset":  offset,
	})
}

// dataset resolves the {hash} prefix, writing the error response on failure.
func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) (*model.DatasetSummary, bool) {
	prefix := chi.URLParam(r, "hash")
	if prefix == "" {
		h.respondError(w, http.StatusBadRequest, "hash is required", nil)
		return nil, false
	}
	ds, err := h.store.GetDatasetByPrefix(prefix)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve dataset", err)
		return nil, false
	}
	if ds == nil {
		h.respondError(w, http.StatusNotFound, "dataset not found", nil)
		return nil, false
	}
	return ds, true
}

// game resolves {hash} and {gameID} and checks the game belongs to the dataset.
func (h *Handler) game(w http.ResponseWriter, r *http.Request) (*model.DatasetSummary, int64, bool) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return nil, 0, false
	}
	gameID, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil || gameID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid game id", nil)
		return nil, 0, false
	}
	games, err := h.store.GetGames(ds.Hash)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to retrieve games", err)
		return nil, 0, false
	}
	for _, g := range games {
		if g.GameID == gameID {
			return ds, gameID, true
		}
	}
	h.respondError(w, http.StatusNotFound, "game not found", nil)
	return nil, 0, false
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseBoolParam(r *http.Request, param string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(param))
	return err == nil && v
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("encode response", "err", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.log.Error(message, "err", err)
	}
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

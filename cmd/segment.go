package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/model"
	"github.com/pable/go-pbp-possessions/internal/pbp"
	"github.com/pable/go-pbp-possessions/internal/possession"
	"github.com/pable/go-pbp-possessions/internal/report"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var (
	segOut            string
	segPossessionsOut string
	segEncoding       string
	segWorkers        int
	segFill           bool
	segOpenFirst      bool
	segForce          bool
	segNoStore        bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment <pbp.csv>",
	Short: "Segment a play-by-play CSV into possessions and store the result",
	Long: `Read a play-by-play CSV, attribute every row to a team possession or to
dead time, and store the result keyed by the file's SHA-256.

Required columns (English or Japanese headers):
  game_id / 試合ID, period / ピリオド, sequence_no / 履歴No, team_id / チームID,
  action1..action3 / アクション1..アクション3

Re-segmenting a stored file shows the cached result unless --force is given.
If the stored result was produced with other options (--codes,
--open-on-first-action) the command fails until --force replaces it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVarP(&segOut, "out", "o", "", "write the annotated rows CSV here (- for stdout)")
	segmentCmd.Flags().StringVar(&segPossessionsOut, "possessions-out", "", "write the possession table CSV here (- for stdout)")
	segmentCmd.Flags().StringVar(&segEncoding, "encoding", "utf-8", "input encoding: utf-8 or sjis")
	segmentCmd.Flags().IntVar(&segWorkers, "workers", cfg.Workers, "games segmented concurrently (0 = GOMAXPROCS)")
	segmentCmd.Flags().BoolVar(&segFill, "fill", false, "forward-fill dead-time rows in --out with the previous possession")
	segmentCmd.Flags().BoolVar(&segOpenFirst, "open-on-first-action", false, "let a teamed live action open a game's first possession")
	segmentCmd.Flags().BoolVar(&segForce, "force", false, "re-segment and overwrite a dataset that is already stored")
	segmentCmd.Flags().BoolVar(&segNoStore, "no-store", false, "do not write the result to the database")
}

func runSegment(cmd *cobra.Command, args []string) error {
	path := args[0]

	enc, err := pbp.ParseEncoding(segEncoding)
	if err != nil {
		return err
	}
	table, err := loadCodes()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Reading %s...\n", path)
	ds, err := pbp.ReadFile(path, enc)
	if err != nil {
		var se *pbp.SchemaError
		if errors.As(err, &se) {
			return fmt.Errorf("%s: %w", path, err)
		}
		return fmt.Errorf("read play-by-play: %w", err)
	}
	if ds.Malformed > 0 || ds.Dropped > 0 {
		slog.Warn("unusable input values",
			"malformed_cells", ds.Malformed, "dropped_rows", ds.Dropped)
	}

	opts := possession.Options{
		Table:             table,
		Workers:           segWorkers,
		Logger:            slog.Default(),
		OpenOnFirstAction: segOpenFirst,
	}

	var db *storage.DB
	if !segNoStore {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
		db, err = storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer db.Close()

		stored, err := db.GetDatasetByPrefix(ds.Hash)
		if err != nil {
			return fmt.Errorf("check dataset: %w", err)
		}
		wantsOutput := segOut != "" || segPossessionsOut != ""
		switch cacheFor(stored, opts.Fingerprint(), segForce, wantsOutput) {
		case cacheReplace:
			if err := db.DeleteDataset(ds.Hash); err != nil {
				return fmt.Errorf("delete stale dataset: %w", err)
			}
		case cacheShow:
			fmt.Fprintf(os.Stdout, "Dataset %s already stored, showing cached results.\n", ds.Hash[:12])
			return showByHash(db, ds.Hash)
		case cacheMismatch:
			return fmt.Errorf("dataset %s was segmented with different options (stored %q, requested %q); re-run with --force to replace it",
				ds.Hash[:12], stored.Options, opts.Fingerprint())
		case cacheSkip:
			if stored.Options != opts.Fingerprint() {
				slog.Warn("stored dataset was segmented with different options; not updating it",
					"dataset", ds.Hash[:12], "stored", stored.Options, "requested", opts.Fingerprint())
			}
			db = nil
		}
	}

	res, err := possession.Segment(cmd.Context(), ds.Rows, opts)
	if err != nil {
		return fmt.Errorf("segment: %w", err)
	}

	summary := model.DatasetSummary{
		Hash:        ds.Hash,
		Source:      path,
		LoadedAt:    time.Now().UTC().Format(time.RFC3339),
		Games:       len(res.Games),
		Rows:        len(res.Rows),
		Possessions: len(res.Possessions),
		Unassigned:  res.Unassigned(),
		Options:     opts.Fingerprint(),
	}

	if db != nil {
		if err := store(db, summary, res); err != nil {
			return err
		}
	}

	if segOut != "" {
		attrs := res.Attributions
		if segFill {
			attrs = possession.ForwardFill(attrs)
		}
		err := writeOutput(segOut, func(w io.Writer) error {
			return pbp.WriteRows(w, ds.Header, res.Rows, attrs, res.Possessions)
		})
		if err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
	}
	if segPossessionsOut != "" {
		err := writeOutput(segPossessionsOut, func(w io.Writer) error {
			return pbp.WritePossessions(w, res.Possessions)
		})
		if err != nil {
			return fmt.Errorf("write possessions: %w", err)
		}
	}

	if segOut == "-" || segPossessionsOut == "-" {
		return nil
	}
	report.PrintDatasetSummary(os.Stdout, summary)
	report.PrintGameTable(os.Stdout, res.Games, res.Possessions)
	return nil
}

type cacheAction int

const (
	cacheStore    cacheAction = iota // nothing stored yet
	cacheReplace                     // --force: drop the stored copy and store afresh
	cacheShow                        // stored with the same options, print it
	cacheMismatch                    // stored with other options, refuse without --force
	cacheSkip                        // stored; segment for the output files only
)

// cacheFor decides what segment does when stored is the dataset already kept
// for the input's hash (nil if none) and fingerprint names the options in use.
func cacheFor(stored *model.DatasetSummary, fingerprint string, force, wantsOutput bool) cacheAction {
	switch {
	case stored == nil:
		return cacheStore
	case force:
		return cacheReplace
	case wantsOutput:
		return cacheSkip
	case stored.Options != fingerprint:
		return cacheMismatch
	default:
		return cacheShow
	}
}

func store(db *storage.DB, summary model.DatasetSummary, res *possession.Result) error {
	if err := db.InsertDataset(summary); err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	if err := db.InsertGames(summary.Hash, res.Games); err != nil {
		return fmt.Errorf("insert games: %w", err)
	}
	if err := db.InsertPossessions(summary.Hash, res.Possessions); err != nil {
		return fmt.Errorf("insert possessions: %w", err)
	}
	if err := db.InsertRows(summary.Hash, res.Rows, res.Attributions); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	return nil
}

// writeOutput runs write against stdout for "-" and against a new file otherwise.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func showByHash(db *storage.DB, hash string) error {
	ds, err := db.GetDatasetByPrefix(hash)
	if err != nil {
		return fmt.Errorf("query dataset: %w", err)
	}
	if ds == nil {
		return fmt.Errorf("dataset not found: %s", hash)
	}
	games, err := db.GetGames(ds.Hash)
	if err != nil {
		return fmt.Errorf("get games: %w", err)
	}
	ps, err := db.GetPossessions(ds.Hash, 0)
	if err != nil {
		return fmt.Errorf("get possessions: %w", err)
	}
	report.PrintDatasetSummary(os.Stdout, *ds)
	report.PrintGameTable(os.Stdout, games, ps)
	return nil
}

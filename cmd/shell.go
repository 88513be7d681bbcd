package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-pbp-possessions/internal/report"
	"github.com/pable/go-pbp-possessions/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("pbpposs shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("pbpposs")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellList(db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <hash-prefix>")
				continue
			}
			shellShow(db, args[0])
		case "games", "possessions":
			if len(args) == 0 || (cmd == "possessions" && len(args) < 2) {
				cError.Fprintf(os.Stderr, "usage: %s\n", shellUsage[cmd])
				continue
			}
			var gameID int64
			if len(args) > 1 {
				gameID, err = strconv.ParseInt(args[1], 10, 64)
				if err != nil || gameID <= 0 {
					cError.Fprintf(os.Stderr, "invalid game id %q\n", args[1])
					continue
				}
			}
			shellGames(db, args[0], gameID)
		case "codes":
			table, err := loadCodes()
			if err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			report.PrintCodeTable(os.Stdout, table)
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			shellSQL(db, strings.Join(args, " "))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q — type 'help'\n", cmd)
		}
	}
	return nil
}

var shellUsage = map[string]string{
	"games":       "games <hash-prefix> [game-id]",
	"possessions": "possessions <hash-prefix> <game-id>",
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored datasets"},
		{"show <hash-prefix>", "show a dataset's summary and games"},
		{shellUsage["games"], "per-game table, or one game's possessions"},
		{shellUsage["possessions"], "one game's possessions"},
		{"codes", "print the action-code table"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) {
	list, err := db.ListDatasets()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(list) == 0 {
		cMuted.Println("No datasets stored yet.")
		return
	}
	report.PrintDatasetList(os.Stdout, list)
}

func shellShow(db *storage.DB, prefix string) {
	ds, err := db.GetDatasetByPrefix(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if ds == nil {
		cWarn.Fprintf(os.Stderr, "no dataset found with prefix %q\n", prefix)
		return
	}
	if err := showByHash(db, ds.Hash); err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func shellGames(db *storage.DB, prefix string, gameID int64) {
	ds, err := db.GetDatasetByPrefix(prefix)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if ds == nil {
		cWarn.Fprintf(os.Stderr, "no dataset found with prefix %q\n", prefix)
		return
	}
	if gameID != 0 {
		cHeader.Fprintf(os.Stdout, "--- game %d ---\n", gameID)
	}
	if err := printGames(db, ds.Hash, gameID); err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func shellSQL(db *storage.DB, query string) {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return
	}
	printQueryTable(cols, rows)
}

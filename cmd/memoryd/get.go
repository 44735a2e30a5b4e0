package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/store"
	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var (
	getCategory string
	getPhase    string
	getLimit    int
	getSince    string
	getUntil    string
	getJSON     bool
)

// getCmd fetches entries by id, category, phase or date range
var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Fetch entries by id, category, phase or date range",
	Long: `Fetch a single entry by id, or list entries filtered by category,
workflow phase or creation date, newest first.

Examples:
  # One entry by id
  memoryd get 42

  # Recent decisions
  memoryd get --category DECISION --limit 5

  # Execution-phase entries as JSON
  memoryd get --phase execution --json

  # Decisions from a date window
  memoryd get --category DECISION --since 2026-08-01 --until 2026-08-30`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getCategory, "category", "", "filter by category")
	getCmd.Flags().StringVar(&getPhase, "phase", "", "filter by workflow phase")
	getCmd.Flags().IntVar(&getLimit, "limit", 20, "maximum entries to return")
	getCmd.Flags().StringVar(&getSince, "since", "", "start date (YYYY-MM-DD), requires --category")
	getCmd.Flags().StringVar(&getUntil, "until", "", "end date (YYYY-MM-DD), requires --category")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "emit JSON instead of text")
}

func runGet(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *memory.Service) error {
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			entry := svc.GetEntryByID(cmd.Context(), id)
			if entry == nil {
				return fmt.Errorf("entry %d not found", id)
			}
			return printEntries([]memory.Entry{*entry})
		}

		var entries []memory.Entry
		switch {
		case getSince != "" || getUntil != "":
			if getCategory == "" {
				return fmt.Errorf("--since/--until require --category")
			}
			start, end, err := parseDateRange(getSince, getUntil)
			if err != nil {
				return err
			}
			entries = svc.QueryByDateRange(cmd.Context(), store.Category(strings.ToUpper(getCategory)), start, end)
		case getCategory != "":
			entries = svc.QueryByType(cmd.Context(), store.Category(strings.ToUpper(getCategory)), getLimit)
		case getPhase != "":
			entries = svc.QueryByPhase(cmd.Context(), store.Phase(getPhase), getLimit)
		default:
			return fmt.Errorf("provide an id or one of --category, --phase")
		}
		return printEntries(entries)
	})
}

func parseDateRange(since, until string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now()
	if since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return start, end, fmt.Errorf("invalid --since date %q: %w", since, err)
		}
		start = t
	}
	if until != "" {
		t, err := time.Parse("2006-01-02", until)
		if err != nil {
			return start, end, fmt.Errorf("invalid --until date %q: %w", until, err)
		}
		// Inclusive through the end of the day.
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

func printEntries(entries []memory.Entry) error {
	if getJSON {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No entries found")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("[%d] %s (%s)", e.ID, e.Category, e.Timestamp.Format("2006-01-02 15:04"))
		if e.Tag != "" {
			fmt.Printf(" %s", e.Tag)
		}
		fmt.Println()
		fmt.Println(indent(e.Content))
	}
	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

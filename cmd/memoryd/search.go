package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var (
	searchLimit int
	searchText  bool
	searchJSON  bool
)

// searchCmd ranks entries against a query
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entries by semantic and keyword relevance",
	Long: `Search stored entries. By default results are ranked by a blend of
semantic similarity and keyword overlap; when no embedding backend is
available the ranking degrades to keyword relevance. Use --text for a
plain substring match against tag and content.

Examples:
  # Ranked search
  memoryd search "database migration strategy"

  # Plain substring match
  memoryd search --text "CHECK constraint"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results to return")
	searchCmd.Flags().BoolVar(&searchText, "text", false, "substring match instead of ranked search")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit JSON instead of text")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	if query == "" {
		return fmt.Errorf("empty query")
	}

	return withService(cmd, func(svc *memory.Service) error {
		if searchText {
			entries := svc.FullTextSearch(cmd.Context(), query, searchLimit)
			if searchJSON {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No matches")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("[%d] %s %s\n", e.ID, e.Category, firstLine(e.Content))
			}
			return nil
		}

		results := svc.SemanticSearch(cmd.Context(), query, searchLimit)
		if searchJSON {
			return json.NewEncoder(os.Stdout).Encode(results)
		}
		if len(results) == 0 {
			fmt.Println("No matches")
			return nil
		}
		for _, r := range results {
			fmt.Printf("[%d] %.3f %s (%s) %s\n",
				r.Entry.ID, r.Score, r.Entry.Category, r.Reason, firstLine(r.Entry.Content))
		}
		return nil
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 100
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

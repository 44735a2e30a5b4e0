package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var statsJSON bool

// statsCmd summarizes store contents
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long: `Show the active storage engine, file path, per-category entry counts
and how many entries carry an embedding vector.

Examples:
  memoryd stats
  memoryd stats --json`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit JSON instead of text")
}

func runStats(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *memory.Service) error {
		stats := svc.Stats(cmd.Context())
		if statsJSON {
			return json.NewEncoder(os.Stdout).Encode(stats)
		}

		fmt.Printf("Engine: %s\n", stats.Engine)
		fmt.Printf("Path:   %s\n", stats.Path)
		fmt.Printf("Entries: %d (%d with embeddings)\n", stats.Counts.Total, stats.WithEmbeddings)

		categories := make([]string, 0, len(stats.Counts.ByCategory))
		for c := range stats.Counts.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Printf("  %-17s %d\n", c, stats.Counts.ByCategory[c])
		}
		return nil
	})
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var backfillLimit int

// backfillCmd generates embeddings for entries lacking one
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Generate embeddings for entries that have none",
	Long: `Generate embedding vectors for stored entries that do not have one yet,
for example entries written while the embedding backend was unavailable.
The loop stops cleanly on interrupt.

Examples:
  memoryd backfill
  memoryd backfill --limit 100`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "maximum entries to process (0 uses the default batch of 100)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(svc *memory.Service) error {
		done := svc.BackfillEmbeddings(cmd.Context(), backfillLimit)
		fmt.Printf("Backfilled %d entries\n", done)
		return nil
	})
}

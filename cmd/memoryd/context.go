package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/store"
	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var (
	ctxBudget     int
	ctxCategories []string
	ctxMaxAge     int
	ctxThreshold  float64
	ctxNoSemantic bool
)

// contextCmd assembles a budget-bounded context block
var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Assemble a budget-bounded context selection",
	Long: `Select the most relevant entries for a query, greedily packed into a
unit budget, and print the formatted context block. The coverage summary
goes to stderr so stdout stays pipeable.

Examples:
  # Default budget from config
  memoryd context "auth token refresh"

  # Tight budget, decisions and patterns only
  memoryd context --budget 800 --category DECISION --category PATTERN "auth"`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVar(&ctxBudget, "budget", -1, "unit budget (-1 uses the configured default)")
	contextCmd.Flags().StringArrayVar(&ctxCategories, "category", nil, "restrict to these categories (repeatable)")
	contextCmd.Flags().IntVar(&ctxMaxAge, "max-age", 0, "exclude entries older than this many days (0 uses config)")
	contextCmd.Flags().Float64Var(&ctxThreshold, "min-score", 0, "minimum relevance score to include")
	contextCmd.Flags().BoolVar(&ctxNoSemantic, "no-semantic", false, "rank by keyword relevance only")
}

func runContext(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])

	categories := make([]store.Category, 0, len(ctxCategories))
	for _, c := range ctxCategories {
		category := store.Category(strings.ToUpper(c))
		if !store.IsValidCategory(string(category)) {
			return fmt.Errorf("invalid category %q (supported: %s)", c, joinCategories())
		}
		categories = append(categories, category)
	}

	return withService(cmd, func(svc *memory.Service) error {
		sel := svc.SelectContextForBudget(cmd.Context(), query, ctxBudget, memory.SelectOptions{
			MinRelevanceThreshold: ctxThreshold,
			IncludeCategories:     categories,
			MaxAgeDays:            ctxMaxAge,
			UseSemanticSearch:     !ctxNoSemantic,
		})
		if sel == nil {
			return fmt.Errorf("context selection failed")
		}
		fmt.Print(sel.FormattedText)
		fmt.Fprintf(os.Stderr, "[memoryd] %s\n", sel.CoverageSummary)
		return nil
	})
}

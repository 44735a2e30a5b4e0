package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/store"
	"github.com/fyrsmithlabs/memoryd/pkg/memory"
)

var (
	appendCategory string
	appendTag      string
	appendMetadata string
	appendPhase    string
	appendStatus   string
)

// appendCmd stores a new entry from an argument or stdin
var appendCmd = &cobra.Command{
	Use:   "append [content]",
	Short: "Append a new memory entry",
	Long: `Append a new typed entry to the memory store. Content is taken from
the argument, or from stdin when the argument is "-" or omitted.

Examples:
  # Record a decision
  memoryd append --category DECISION --tag auth "Use PASETO over JWT"

  # Pipe content in
  git log -1 --format=%B | memoryd append --category PROGRESS -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAppend,
}

func init() {
	appendCmd.Flags().StringVar(&appendCategory, "category", "", "entry category (required)")
	appendCmd.Flags().StringVar(&appendTag, "tag", "", "short label for the entry")
	appendCmd.Flags().StringVar(&appendMetadata, "metadata", "", "JSON metadata object")
	appendCmd.Flags().StringVar(&appendPhase, "phase", "", "workflow phase: research, planning, execution, checkpoint")
	appendCmd.Flags().StringVar(&appendStatus, "status", "", "progress status: done, in-progress, draft, deprecated")
	_ = appendCmd.MarkFlagRequired("category")
}

func runAppend(cmd *cobra.Command, args []string) error {
	content, err := readContent(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content to append")
	}

	category := store.Category(strings.ToUpper(appendCategory))
	if !store.IsValidCategory(string(category)) {
		return fmt.Errorf("invalid category %q (supported: %s)",
			appendCategory, joinCategories())
	}
	if appendPhase != "" && !store.IsValidPhase(appendPhase) {
		return fmt.Errorf("invalid phase %q (supported: %s)", appendPhase, joinPhases())
	}
	if appendStatus != "" && !store.IsValidProgressStatus(appendStatus) {
		return fmt.Errorf("invalid status %q (supported: %s)", appendStatus, joinStatuses())
	}

	return withService(cmd, func(svc *memory.Service) error {
		entry := &memory.Entry{
			Category: category,
			Tag:      appendTag,
			Content:  content,
			Metadata: appendMetadata,
		}
		if appendPhase != "" {
			phase := store.Phase(appendPhase)
			entry.Phase = &phase
		}
		if appendStatus != "" {
			status := store.ProgressStatus(appendStatus)
			entry.ProgressStatus = &status
		}

		id := svc.AppendEntry(cmd.Context(), entry)
		if id == nil {
			return fmt.Errorf("append failed")
		}
		fmt.Printf("Appended entry %d\n", *id)
		return nil
	})
}

func readContent(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(data), nil
	}
	return args[0], nil
}

func joinCategories() string {
	names := make([]string, 0, len(store.AllCategories))
	for _, c := range store.AllCategories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func joinPhases() string {
	names := make([]string, 0, len(store.AllPhases))
	for _, p := range store.AllPhases {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func joinStatuses() string {
	names := make([]string, 0, len(store.AllProgressStatuses))
	for _, st := range store.AllProgressStatuses {
		names = append(names, string(st))
	}
	return strings.Join(names, ", ")
}

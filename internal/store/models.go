// Package store implements the persistent typed-entry store with two
// interchangeable SQLite engines and online schema migration.
package store

import (
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotReady is returned internally when the store has not been
	// initialized. Public methods convert it to neutral results.
	ErrNotReady = errors.New("store not initialized")

	// ErrEngineUnavailable indicates a storage engine could not open.
	ErrEngineUnavailable = errors.New("storage engine unavailable")

	// ErrMigrationFailed indicates a structural migration could not
	// preserve the row count and was aborted before the destructive step.
	ErrMigrationFailed = errors.New("schema migration failed")

	// ErrInvalidCategory indicates a category outside the closed set.
	ErrInvalidCategory = errors.New("invalid category")
)

// Category classifies an entry's purpose. The set is closed; the schema
// enforces it with a CHECK constraint.
type Category string

const (
	CategoryContext         Category = "CONTEXT"
	CategoryDecision        Category = "DECISION"
	CategoryProgress        Category = "PROGRESS"
	CategoryPattern         Category = "PATTERN"
	CategoryBrief           Category = "BRIEF"
	CategoryResearchReport  Category = "RESEARCH_REPORT"
	CategoryPlanReport      Category = "PLAN_REPORT"
	CategoryExecutionReport Category = "EXECUTION_REPORT"
)

// AllCategories lists every valid category, in schema constraint order.
var AllCategories = []Category{
	CategoryContext,
	CategoryDecision,
	CategoryProgress,
	CategoryPattern,
	CategoryBrief,
	CategoryResearchReport,
	CategoryPlanReport,
	CategoryExecutionReport,
}

// IsValidCategory returns true if the string is a recognized category.
func IsValidCategory(s string) bool {
	for _, c := range AllCategories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Phase tags the workflow stage an entry belongs to, orthogonal to category.
type Phase string

const (
	PhaseResearch   Phase = "research"
	PhasePlanning   Phase = "planning"
	PhaseExecution  Phase = "execution"
	PhaseCheckpoint Phase = "checkpoint"
)

// AllPhases lists every valid phase.
var AllPhases = []Phase{
	PhaseResearch,
	PhasePlanning,
	PhaseExecution,
	PhaseCheckpoint,
}

// IsValidPhase returns true if the string is a recognized phase.
func IsValidPhase(s string) bool {
	for _, p := range AllPhases {
		if string(p) == s {
			return true
		}
	}
	return false
}

// ProgressStatus tracks the lifecycle of progress-style entries.
// Entries are never hard-deleted; superseding is modeled by flipping
// this to "deprecated" or by inserting replacement entries.
type ProgressStatus string

const (
	StatusDone       ProgressStatus = "done"
	StatusInProgress ProgressStatus = "in-progress"
	StatusDraft      ProgressStatus = "draft"
	StatusDeprecated ProgressStatus = "deprecated"
)

// AllProgressStatuses lists every valid progress status.
var AllProgressStatuses = []ProgressStatus{
	StatusDone,
	StatusInProgress,
	StatusDraft,
	StatusDeprecated,
}

// IsValidProgressStatus returns true if the string is a recognized
// progress status.
func IsValidProgressStatus(s string) bool {
	for _, st := range AllProgressStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Entry is one unit of persisted agent memory.
type Entry struct {
	// ID is the store-assigned surrogate key. Immutable.
	ID int64 `json:"id"`

	// Category is immutable after creation.
	Category Category `json:"category"`

	// Timestamp is the creation instant. Immutable.
	Timestamp time.Time `json:"timestamp"`

	// Tag is a short label, typically "{category}:{date}".
	Tag string `json:"tag"`

	// Content is the free-text body. Edits invalidate the embedding.
	Content string `json:"content"`

	// Metadata is an open JSON object for auxiliary structured fields.
	// The store does not interpret it.
	Metadata string `json:"metadata"`

	// Phase is the optional workflow stage.
	Phase *Phase `json:"phase,omitempty"`

	// ProgressStatus is the optional lifecycle status.
	ProgressStatus *ProgressStatus `json:"progress_status,omitempty"`

	// Embedding is the optional quantized vector derived from Content.
	// Nil means pending or unavailable; both are valid states.
	Embedding []byte `json:"-"`
}

// HasEmbedding reports whether a quantized vector is stored for the entry.
func (e *Entry) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// UpdateFields carries the mutable fields for UpdateEntry. Nil pointers
// leave the stored value untouched.
type UpdateFields struct {
	Content        *string
	Tag            *string
	Metadata       *string
	Phase          *Phase
	ProgressStatus *ProgressStatus
}

// IsEmpty reports whether no field was supplied.
func (f UpdateFields) IsEmpty() bool {
	return f.Content == nil && f.Tag == nil && f.Metadata == nil &&
		f.Phase == nil && f.ProgressStatus == nil
}

// EntryCounts aggregates per-category totals.
type EntryCounts struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	t.Run("since only", func(t *testing.T) {
		start, end, err := parseDateRange("2026-08-01", "")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
		assert.True(t, end.After(start))
	})

	t.Run("until is inclusive through the day", func(t *testing.T) {
		_, end, err := parseDateRange("", "2026-08-15")
		require.NoError(t, err)
		assert.Equal(t, 15, end.Day())
		assert.Equal(t, 23, end.Hour())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, _, err := parseDateRange("August 1st", "")
		require.Error(t, err)
		_, _, err = parseDateRange("", "15/08/2026")
		require.Error(t, err)
	})
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "short", firstLine("short"))
	assert.Equal(t, "first", firstLine("first\nsecond\nthird"))

	long := firstLine(string(make([]byte, 200)))
	assert.Len(t, long, 103)
	assert.Contains(t, long, "...")
}

func TestJoinCategories(t *testing.T) {
	joined := joinCategories()
	assert.Contains(t, joined, "DECISION")
	assert.Contains(t, joined, "RESEARCH_REPORT")
	assert.Contains(t, joined, ", ")
}

func TestJoinPhasesAndStatuses(t *testing.T) {
	assert.Contains(t, joinPhases(), "checkpoint")
	assert.Contains(t, joinStatuses(), "in-progress")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "    a\n    b", indent("a\nb\n"))
}

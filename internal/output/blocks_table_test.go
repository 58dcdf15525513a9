package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func TestShortenModelName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-opus-4-1-20250805", "Opus-4.1"},
		{"claude-sonnet-4-20250514", "Sonnet-4"},
		{"claude-opus-4-20250514", "Opus-4"},
		{"claude-3-5-sonnet-20241022", "claude-3-5-s"},
		{"gpt-4o", "gpt-4o"},
		{"gpt-3.5-turbo", "gpt-3.5"},
		{"short", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortenModelName(tt.input))
		})
	}
}

func testBlocks() []types.Block {
	start := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)
	actualEnd := start.Add(90 * time.Minute)
	activeStart := start.Add(6 * time.Hour)
	activeLast := activeStart.Add(30 * time.Minute)

	return []types.Block{
		{
			ID:            start.Format(time.RFC3339),
			StartTime:     start,
			EndTime:       end,
			ActualEndTime: &actualEnd,
			EventCount:    3,
			TotalTokens:   1234567,
			CostUSD:       12.5,
			Models:        []string{"claude-sonnet-4-20250514"},
		},
		{
			ID:            activeStart.Format(time.RFC3339),
			StartTime:     activeStart,
			EndTime:       activeStart.Add(5 * time.Hour),
			ActualEndTime: &activeLast,
			IsActive:      true,
			EventCount:    2,
			TotalTokens:   1500,
			CostUSD:       0.75,
			Models:        []string{"claude-opus-4-1-20250805", "claude-sonnet-4-20250514"},
		},
	}
}

func TestBlocksTable(t *testing.T) {
	blocks := testBlocks()
	now := func() time.Time { return blocks[1].StartTime.Add(time.Hour) }
	table := NewBlocksTable(true, time.UTC, now)

	out := table.Format(blocks, &types.Projection{TotalTokens: 7500, TotalCost: 3.75, RemainingMinutes: 240})

	assert.Contains(t, out, "Billing Windows")
	assert.Contains(t, out, "2025-08-01, 9:00:00 AM (1h 30m)")
	assert.Contains(t, out, "(1h 0m elapsed, 4h 0m remaining)")
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "$12.50")
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "PROJECTED")
	assert.Contains(t, out, "$3.75")
	assert.Contains(t, out, "Opus-4.1")
	assert.NotContains(t, out, "\x1b[", "no-color output must not carry escape codes")
}

func TestBlocksTableWithoutProjection(t *testing.T) {
	out := NewBlocksTable(true, time.UTC, time.Now).Format(testBlocks()[:1], nil)
	assert.NotContains(t, out, "PROJECTED")
	assert.NotContains(t, out, "ACTIVE")
}

func TestBlocksTableEmpty(t *testing.T) {
	out := NewBlocksTable(true, time.UTC, time.Now).Format(nil, nil)
	assert.Contains(t, out, "No billing windows found")
}

func TestFormatBlockModels(t *testing.T) {
	assert.Equal(t, "-", formatBlockModels(nil))
	assert.Equal(t, "- Opus-4.1\n- Sonnet-4", formatBlockModels([]string{
		"claude-sonnet-4-20250514", "claude-opus-4-1-20250805", "claude-sonnet-4-20250514",
	}))
}

func TestFormatterJSON(t *testing.T) {
	f := NewFormatter(FormatterOptions{Format: "json"})
	out, err := f.FormatBlocksReport(testBlocks(), &types.Projection{TotalTokens: 10, TotalCost: 1})
	require.NoError(t, err)

	var report BlocksReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Blocks, 2)
	assert.True(t, report.Blocks[1].IsActive)
	require.NotNil(t, report.Projection)
	assert.Equal(t, uint64(10), report.Projection.TotalTokens)
}

func TestFormatterUnknownFormat(t *testing.T) {
	_, err := NewFormatter(FormatterOptions{Format: "csv"}).FormatBlocksReport(nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "csv"))
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func testTable() map[string]Entry {
	return map[string]Entry{
		"claude-sonnet-4-20250514": {InputCostPerToken: price(1e-6)},
		"anthropic/claude-haiku-x": {InputCostPerToken: price(2e-6)},
		"claude-opus-9":            {InputCostPerToken: price(3e-6)},
		"openai/gpt-5":             {InputCostPerToken: price(4e-6)},
		"Claude-Mixed-Case":        {InputCostPerToken: price(5e-6)},
		"claude-haiku-x":           {InputCostPerToken: price(6e-6)},
	}
}

func TestResolverLookup(t *testing.T) {
	r := NewResolver(testTable())

	tests := []struct {
		name  string
		model string
		want  float64
		found bool
	}{
		{"exact match wins over prefixed", "claude-haiku-x", 6e-6, true},
		{"anthropic prefix", "claude-sonnet-4-20250514", 1e-6, true},
		{"claude- prefix", "opus-9", 3e-6, true},
		{"openai prefix", "gpt-5", 4e-6, true},
		{"case-insensitive", "claude-mixed-case", 5e-6, true},
		{"unknown", "mystery", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := r.Lookup(tc.model)
			require.Equal(t, tc.found, ok)
			if tc.found {
				assert.Equal(t, tc.want, *entry.InputCostPerToken)
			}
		})
	}
}

func TestResolverLookup_PrefixOrder(t *testing.T) {
	r := NewResolver(map[string]Entry{
		"anthropic/m": {InputCostPerToken: price(1)},
		"claude-m":    {InputCostPerToken: price(2)},
	})

	entry, ok := r.Lookup("m")
	require.True(t, ok)
	assert.Equal(t, 1.0, *entry.InputCostPerToken)
}

func TestResolverCost(t *testing.T) {
	r := NewResolver(testTable())
	usage := types.TokenUsage{InputTokens: 1000}

	assert.InDelta(t, 1000*3e-6, r.Cost(types.UsageEvent{Model: "opus-9", Usage: usage}), 1e-12)

	// unresolved model falls back to the embedded Sonnet 4 tier
	assert.InDelta(t, 1000*3e-6, r.Cost(types.UsageEvent{Model: "unheard-of", Usage: usage}), 1e-12)
	assert.InDelta(t, 1000*3e-6, r.Cost(types.UsageEvent{Usage: usage}), 1e-12)

	// embedded known model when the table is empty
	empty := NewResolver(nil)
	assert.Equal(t, 0, empty.Len())
	assert.InDelta(t, 1000*15e-6, empty.Cost(types.UsageEvent{Model: "claude-opus-4-1-20250805", Usage: usage}), 1e-12)
}

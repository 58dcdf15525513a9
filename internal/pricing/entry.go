package pricing

import (
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// TieredThreshold is the per-category token count above which the
// "_above_200k_tokens" price applies.
const TieredThreshold uint64 = 200_000

// Entry is one model's per-token prices in LiteLLM's schema. Every field is
// optional; a missing tiered price falls back to the base price.
type Entry struct {
	InputCostPerToken         *float64 `json:"input_cost_per_token,omitempty"`
	OutputCostPerToken        *float64 `json:"output_cost_per_token,omitempty"`
	CacheCreationCostPerToken *float64 `json:"cache_creation_input_token_cost,omitempty"`
	CacheReadCostPerToken     *float64 `json:"cache_read_input_token_cost,omitempty"`

	InputCostPerTokenAbove200k         *float64 `json:"input_cost_per_token_above_200k_tokens,omitempty"`
	OutputCostPerTokenAbove200k        *float64 `json:"output_cost_per_token_above_200k_tokens,omitempty"`
	CacheCreationCostPerTokenAbove200k *float64 `json:"cache_creation_input_token_cost_above_200k_tokens,omitempty"`
	CacheReadCostPerTokenAbove200k     *float64 `json:"cache_read_input_token_cost_above_200k_tokens,omitempty"`
}

// TieredCost prices one token category. Zero tokens always cost zero.
func TieredCost(tokens uint64, base, tiered *float64) float64 {
	if tokens == 0 {
		return 0
	}

	basePrice := 0.0
	if base != nil {
		basePrice = *base
	}

	if tokens <= TieredThreshold {
		return float64(tokens) * basePrice
	}

	tieredPrice := basePrice
	if tiered != nil {
		tieredPrice = *tiered
	}
	return float64(TieredThreshold)*basePrice + float64(tokens-TieredThreshold)*tieredPrice
}

// Cost prices all four token categories of one usage record.
func (e Entry) Cost(usage types.TokenUsage) float64 {
	input := TieredCost(usage.InputTokens, e.InputCostPerToken, e.InputCostPerTokenAbove200k)
	output := TieredCost(usage.OutputTokens, e.OutputCostPerToken, e.OutputCostPerTokenAbove200k)
	cacheWrite := TieredCost(usage.CacheCreationInputTokens, e.CacheCreationCostPerToken, e.CacheCreationCostPerTokenAbove200k)
	cacheRead := TieredCost(usage.CacheReadInputTokens, e.CacheReadCostPerToken, e.CacheReadCostPerTokenAbove200k)

	return input + output + cacheWrite + cacheRead
}

func price(v float64) *float64 {
	return &v
}

// DefaultFallbackModel is the tier unknown models are billed at.
const DefaultFallbackModel = "claude-sonnet-4-20250514"

// Embedded pricing for the models we know (as fallback when the table has no match).
var fallbackPricing = map[string]Entry{
	"claude-sonnet-4-20250514": {
		InputCostPerToken:                  price(3e-6),
		OutputCostPerToken:                 price(15e-6),
		CacheCreationCostPerToken:          price(3.75e-6),
		CacheReadCostPerToken:              price(3e-7),
		InputCostPerTokenAbove200k:         price(6e-6),
		OutputCostPerTokenAbove200k:        price(22.5e-6),
		CacheCreationCostPerTokenAbove200k: price(7.5e-6),
		CacheReadCostPerTokenAbove200k:     price(6e-7),
	},
	"claude-sonnet-4-5-20250929": {
		InputCostPerToken:         price(3e-6),
		OutputCostPerToken:        price(15e-6),
		CacheCreationCostPerToken: price(3.75e-6),
		CacheReadCostPerToken:     price(3e-7),
	},
	"claude-opus-4-1-20250805": {
		InputCostPerToken:         price(15e-6),
		OutputCostPerToken:        price(75e-6),
		CacheCreationCostPerToken: price(18.75e-6),
		CacheReadCostPerToken:     price(1.5e-6),
	},
}

// FallbackEntry returns the embedded entry for model, defaulting to the
// Sonnet 4 tier when the model is empty or unknown.
func FallbackEntry(model string) Entry {
	if entry, ok := fallbackPricing[model]; ok {
		return entry
	}
	return fallbackPricing[DefaultFallbackModel]
}

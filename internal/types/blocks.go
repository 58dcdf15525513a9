package types

import (
	"time"
)

// Block is a billing window (typically 5 hours) anchored at the floored hour
// of its first event. Blocks are recomputed on every pass and never persisted.
type Block struct {
	ID            string     `json:"id"`         // RFC3339 of StartTime
	StartTime     time.Time  `json:"start_time"` // floored to the hour
	EndTime       time.Time  `json:"end_time"`   // StartTime + block duration
	ActualEndTime *time.Time `json:"actual_end_time,omitempty"`
	IsActive      bool       `json:"is_active"`
	EventCount    int        `json:"event_count"`
	TotalTokens   uint64     `json:"total_tokens"` // input + output only
	CostUSD       float64    `json:"cost_usd"`
	Models        []string   `json:"models"`
}

// BurnRate represents spend velocity inside the active block
type BurnRate struct {
	CostPerHour     float64 `json:"cost_per_hour"`
	TokensPerMinute uint64  `json:"tokens_per_minute"`
}

// Projection is the expected total for a block if the current rate holds until its end
type Projection struct {
	TotalTokens      uint64  `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

// ContextInfo is the current conversation size relative to the context limit
type ContextInfo struct {
	Tokens     uint64 `json:"tokens"`
	Percentage uint32 `json:"percentage"`
}

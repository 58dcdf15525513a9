package types

import (
	"time"
)

// QuotaWindow is one rolling utilization window reported by the account API.
type QuotaWindow struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    *string `json:"resets_at"`
}

// ResetTime parses ResetsAt; ok is false when absent or malformed.
func (w *QuotaWindow) ResetTime() (time.Time, bool) {
	if w == nil || w.ResetsAt == nil || *w.ResetsAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *w.ResetsAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// QuotaSnapshot is the account usage response, persisted as-is in the quota cache.
type QuotaSnapshot struct {
	FiveHour       QuotaWindow  `json:"five_hour"`
	SevenDay       QuotaWindow  `json:"seven_day"`
	SevenDaySonnet *QuotaWindow `json:"seven_day_sonnet,omitempty"`
	SevenDayOpus   *QuotaWindow `json:"seven_day_opus,omitempty"`
}

package calculator

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// DefaultBlockDuration is Claude's billing window length.
const DefaultBlockDuration = 5 * time.Hour

// floorToHour floors a timestamp to the beginning of its UTC hour
func floorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// IdentifyBlocks groups time-ordered events into billing windows. A new
// window opens when an event lies more than one duration after the window
// start or after the previous event.
func (c *Calculator) IdentifyBlocks(events []types.UsageEvent) []types.Block {
	blocks := []types.Block{}
	if len(events) == 0 {
		return blocks
	}

	now := c.now()
	var (
		blockStart  time.Time
		blockEvents []types.UsageEvent
	)

	for _, event := range events {
		if blockEvents == nil {
			blockStart = floorToHour(event.Timestamp)
			blockEvents = []types.UsageEvent{event}
			continue
		}

		sinceStart := event.Timestamp.Sub(blockStart)
		sinceLast := event.Timestamp.Sub(blockEvents[len(blockEvents)-1].Timestamp)

		if sinceStart > c.duration || sinceLast > c.duration {
			blocks = append(blocks, c.createBlock(blockStart, blockEvents, now))
			blockStart = floorToHour(event.Timestamp)
			blockEvents = []types.UsageEvent{event}
		} else {
			blockEvents = append(blockEvents, event)
		}
	}

	if len(blockEvents) > 0 {
		blocks = append(blocks, c.createBlock(blockStart, blockEvents, now))
	}

	return blocks
}

// createBlock aggregates the events of one window
func (c *Calculator) createBlock(start time.Time, events []types.UsageEvent, now time.Time) types.Block {
	end := start.Add(c.duration)
	lastTime := events[len(events)-1].Timestamp

	var (
		tokens uint64
		cost   float64
	)
	for _, event := range events {
		tokens += event.Usage.Billable()
		cost += c.pricer.Cost(event)
	}

	models := lo.Uniq(lo.FilterMap(events, func(e types.UsageEvent, _ int) (string, bool) {
		return e.Model, e.Model != ""
	}))
	sort.Strings(models)

	return types.Block{
		ID:            start.Format(time.RFC3339),
		StartTime:     start,
		EndTime:       end,
		ActualEndTime: &lastTime,
		IsActive:      now.Sub(lastTime) < c.duration && now.Before(end),
		EventCount:    len(events),
		TotalTokens:   tokens,
		CostUSD:       cost,
		Models:        models,
	}
}

// ActiveBlock returns the newest live window, or an empty inactive window
// starting now when none is live.
func (c *Calculator) ActiveBlock(blocks []types.Block) types.Block {
	now := c.now()
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].IsActive && blocks[i].EndTime.After(now) {
			return blocks[i]
		}
	}

	start := now.UTC()
	return types.Block{
		ID:        start.Format(time.RFC3339),
		StartTime: start,
		EndTime:   start.Add(c.duration),
		Models:    []string{},
	}
}

// BurnRate calculates spend velocity over the whole minutes elapsed since
// the window start. Inactive windows burn nothing.
func (c *Calculator) BurnRate(block types.Block) types.BurnRate {
	if !block.IsActive {
		return types.BurnRate{}
	}

	elapsed := float64(int64(c.now().Sub(block.StartTime) / time.Minute))
	if elapsed <= 0 {
		return types.BurnRate{}
	}

	return types.BurnRate{
		CostPerHour:     block.CostUSD / elapsed * 60,
		TokensPerMinute: uint64(float64(block.TotalTokens) / elapsed),
	}
}

// Project extrapolates the current burn rate to the end of the window.
func (c *Calculator) Project(block types.Block) *types.Projection {
	rate := c.BurnRate(block)
	if !block.IsActive || (rate.CostPerHour == 0 && rate.TokensPerMinute == 0) {
		return nil
	}

	remaining := block.EndTime.Sub(c.now()).Minutes()
	if remaining < 0 {
		remaining = 0
	}

	return &types.Projection{
		TotalTokens:      block.TotalTokens + uint64(float64(rate.TokensPerMinute)*remaining),
		TotalCost:        block.CostUSD + rate.CostPerHour/60*remaining,
		RemainingMinutes: remaining,
	}
}

// HoursRemaining is the time left until the window end, zero when past.
func (c *Calculator) HoursRemaining(block types.Block) float64 {
	remaining := block.EndTime.Sub(c.now()).Hours()
	if remaining < 0 {
		return 0
	}
	return remaining
}

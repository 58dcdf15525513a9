package statusline

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/quota"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

func plain() *Styles {
	return NewStyles(io.Discard, true)
}

func strPtr(s string) *string { return &s }

func TestFormatHoursRemaining(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{-1, "🕛0h"},
		{0, "🕛0h"},
		{0.2, "🕛12m"},
		{0.5, "🕐30m"},
		{1, "🕐1h"},
		{1.5, "🕑1h30m"},
		{2.999, "🕒3h"},
		{3.25, "🕓3h15m"},
		{4.75, "🕔4h45m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHoursRemaining(tt.hours), "hours=%v", tt.hours)
	}
}

func TestFormatDaysRemaining(t *testing.T) {
	assert.Equal(t, "📅0d", FormatDaysRemaining(0))
	assert.Equal(t, "📅5h", FormatDaysRemaining(5.9))
	assert.Equal(t, "📅2d", FormatDaysRemaining(48.5))
	assert.Equal(t, "📅3d4h", FormatDaysRemaining(76))
}

func TestFormatNumbers(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$12.35", FormatCurrency(12.345678))
	assert.Equal(t, "$4.50/h", FormatBurnRate(types.BurnRate{CostPerHour: 4.5}))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
}

func TestFormatAPI5h(t *testing.T) {
	assert.Equal(t, "5h:42%", FormatAPI5h(42.0))
	assert.Equal(t, "5h:42%▅", FormatAPI5h(42.5))
	assert.Equal(t, "5h:0%█", FormatAPI5h(0.9))
	assert.Equal(t, "5h:37%", FormatAPI5h(37), "no trailing space for whole numbers")
}

func TestFormatContext(t *testing.T) {
	assert.Equal(t, "N/A", FormatContext(nil, plain()))

	info := NewContextInfo(77_500, CompactedContextLimit)
	assert.Equal(t, "77,500(50%)", FormatContext(&info, plain()))

	capped := NewContextInfo(400_000, FullContextLimit)
	assert.Equal(t, uint32(100), capped.Percentage)
}

func TestFormatDirectory(t *testing.T) {
	assert.Equal(t, "~/src/app", FormatDirectory("/home/dev/src/app", "/home/dev"))
	assert.Equal(t, "/opt/app", FormatDirectory("/opt/app", "/home/dev"))
	assert.Equal(t, "/opt/app", FormatDirectory("/opt/app", ""))
	assert.Equal(t, "~", FormatDirectory("/home/dev", "/home/dev"))
	assert.Equal(t, "/home/dev2/src", FormatDirectory("/home/dev2/src", "/home/dev"), "a sibling of home is not abbreviated")
}

func TestUtilizationColor(t *testing.T) {
	assert.Equal(t, UtilizationColor(0), UtilizationColor(-5))
	assert.Equal(t, UtilizationColor(100), UtilizationColor(250))
	assert.NotEqual(t, UtilizationColor(0), UtilizationColor(100))
	assert.True(t, strings.HasPrefix(UtilizationColor(50), "#"))
}

func sampleInputs(now time.Time) Inputs {
	return Inputs{
		Hook: &types.HookData{
			SessionID:      "abc",
			TranscriptPath: "/tmp/t.jsonl",
			Model:          types.ModelInfo{ID: "claude-sonnet-4-20250514", DisplayName: "Sonnet 4"},
			Workspace:      &types.Workspace{CurrentDir: "/home/dev/proj"},
		},
		Block:          types.Block{IsActive: true, CostUSD: 1.5},
		HoursRemaining: 2.5,
		BurnRate:       types.BurnRate{CostPerHour: 0.75},
		Quota: quota.Outcome{
			Path: quota.PathFetched,
			Snapshot: &types.QuotaSnapshot{
				FiveHour:       types.QuotaWindow{Utilization: 42, ResetsAt: strPtr(now.Add(90 * time.Minute).Format(time.RFC3339))},
				SevenDay:       types.QuotaWindow{Utilization: 10, ResetsAt: strPtr(now.Add(76 * time.Hour).Format(time.RFC3339))},
				SevenDaySonnet: &types.QuotaWindow{Utilization: 3},
			},
		},
		Context: &types.ContextInfo{Tokens: 15_500, Percentage: 10},
		Home:    "/home/dev",
		Now:     now,
	}
}

func TestFormat_DefaultLayout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := Format(config.DefaultLayout(), sampleInputs(now), plain())

	want := strings.Join([]string{
		"🤖Sonnet 4",
		"💰$1.50",
		"🕑1h30m",
		"📅3d4h",
		"🔥$0.75/h",
		"🧠15,500(10%)",
		"📊5h:42% 7d:10%",
		"~/proj",
	}, Separator)
	assert.Equal(t, want, got)
}

func TestFormat_APIGroupPlacement(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	layout := config.Layout{Elements: []config.Element{
		config.ElementAPISonnet,
		config.ElementBlockCost,
		config.ElementAPI7d,
	}}

	got := Format(layout, sampleInputs(now), plain())
	assert.Equal(t, "💰$1.50"+Separator+"📊7d:10% S7d:3%", got)
}

func TestFormat_QuotaStates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	layout := config.Layout{Elements: []config.Element{config.ElementBlockCost, config.ElementAPI5h}}

	in := sampleInputs(now)
	in.Quota = quota.Outcome{Err: errors.New("timeout")}
	assert.Equal(t, "💰$1.50"+Separator+"📊(api error)", Format(layout, in, plain()))

	in.Quota = quota.Outcome{Err: types.ErrNoCredentials}
	assert.Equal(t, "💰$1.50", Format(layout, in, plain()))

	in.Quota = quota.Outcome{Err: types.ErrOffline}
	assert.Equal(t, "💰$1.50", Format(layout, in, plain()))
}

func TestFormat_StaleQuotaKeepsResetTimes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := sampleInputs(now)
	in.Quota.Path = quota.PathStale
	in.Quota.Err = errors.New("network down")

	layout := config.Layout{Elements: []config.Element{
		config.ElementTimeRemaining5h,
		config.ElementTimeRemaining7d,
		config.ElementAPI5h,
		config.ElementAPI7d,
	}}
	assert.Equal(t, "🕑1h30m"+Separator+"📅3d4h"+Separator+"📊(api error)", Format(layout, in, plain()))
}

func TestFormat_NoBlockAndNoHook(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := sampleInputs(now)
	in.Hook = nil
	in.Block = types.Block{}
	in.Quota = quota.Outcome{Err: types.ErrOffline}

	got := Format(config.DefaultLayout(), in, plain())
	assert.Equal(t, "💰No block"+Separator+"🔥$0.75/h", got)
}

func TestFormat_TimeRemainingFallsBackToBlock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := sampleInputs(now)
	in.Quota = quota.Outcome{Err: types.ErrOffline}

	layout := config.Layout{Elements: []config.Element{config.ElementTimeRemaining5h, config.ElementTimeRemaining7d}}
	assert.Equal(t, "🕒2h30m", Format(layout, in, plain()))
}

func TestStyles_ColorEnabled(t *testing.T) {
	colored := NewStyles(io.Discard, false)
	out := colored.Green("ok")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "\x1b[")

	assert.Equal(t, "ok", plain().Green("ok"))
}

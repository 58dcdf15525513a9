package statusline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/quota"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// Separator joins segments.
const Separator = " │ "

// Inputs is everything one line is rendered from.
type Inputs struct {
	Hook           *types.HookData
	Block          types.Block
	HoursRemaining float64
	BurnRate       types.BurnRate
	Quota          quota.Outcome
	Context        *types.ContextInfo
	Home           string
	Now            time.Time
}

var apiElements = []config.Element{config.ElementAPI5h, config.ElementAPI7d, config.ElementAPISonnet}

// Format renders the enabled elements in layout order. Elements without
// data are omitted. The quota elements share one segment placed at the
// first of 5h, 7d, Sonnet that is enabled.
func Format(layout config.Layout, in Inputs, styles *Styles) string {
	var parts []string

	apiLeader := config.Element("")
	for _, e := range apiElements {
		if layout.Has(e) {
			apiLeader = e
			break
		}
	}

	for _, element := range layout.Elements {
		switch element {
		case config.ElementModel:
			if in.Hook != nil {
				name := in.Hook.Model.DisplayName
				if name == "" {
					name = in.Hook.Model.ID
				}
				parts = append(parts, "🤖"+name)
			}
		case config.ElementBlockCost:
			parts = append(parts, "💰"+FormatBlockInfo(in.Block))
		case config.ElementTimeRemaining5h:
			if s, ok := formatTimeRemaining5h(in); ok {
				parts = append(parts, s)
			}
		case config.ElementTimeRemaining7d:
			if s, ok := formatTimeRemaining7d(in); ok {
				parts = append(parts, s)
			}
		case config.ElementBurnRate:
			parts = append(parts, "🔥"+FormatBurnRate(in.BurnRate))
		case config.ElementContext:
			if in.Hook != nil {
				parts = append(parts, "🧠"+FormatContext(in.Context, styles))
			}
		case config.ElementAPI5h, config.ElementAPI7d, config.ElementAPISonnet:
			if element != apiLeader {
				continue
			}
			if s, ok := formatAPIGroup(layout, in.Quota, styles); ok {
				parts = append(parts, s)
			}
		case config.ElementDirectory:
			if in.Hook != nil && in.Hook.Workspace != nil && in.Hook.Workspace.CurrentDir != "" {
				parts = append(parts, styles.Green(FormatDirectory(in.Hook.Workspace.CurrentDir, in.Home)))
			}
		}
	}

	return strings.Join(parts, Separator)
}

func formatAPIGroup(layout config.Layout, outcome quota.Outcome, styles *Styles) (string, bool) {
	snap := outcome.Snapshot
	if snap == nil && (errors.Is(outcome.Err, types.ErrNoCredentials) || errors.Is(outcome.Err, types.ErrOffline)) {
		return "", false
	}
	// A stale snapshot still drives the reset countdowns, but its
	// utilization is not shown as current.
	if outcome.Err != nil || snap == nil {
		return "📊(api error)", true
	}

	var group []string
	if layout.Has(config.ElementAPI5h) {
		group = append(group, styles.Utilization(snap.FiveHour.Utilization, FormatAPI5h(snap.FiveHour.Utilization)))
	}
	if layout.Has(config.ElementAPI7d) {
		group = append(group, styles.Utilization(snap.SevenDay.Utilization, fmt.Sprintf("7d:%d%%", uint32(snap.SevenDay.Utilization))))
	}
	if layout.Has(config.ElementAPISonnet) && snap.SevenDaySonnet != nil {
		group = append(group, styles.Utilization(snap.SevenDaySonnet.Utilization, fmt.Sprintf("S7d:%d%%", uint32(snap.SevenDaySonnet.Utilization))))
	}
	if len(group) == 0 {
		return "", false
	}
	return "📊" + strings.Join(group, " "), true
}

func formatTimeRemaining5h(in Inputs) (string, bool) {
	if !in.Block.IsActive {
		return "", false
	}
	hours := in.HoursRemaining
	if in.Quota.Snapshot != nil {
		if reset, ok := in.Quota.Snapshot.FiveHour.ResetTime(); ok {
			hours = reset.Sub(in.Now).Hours()
		}
	}
	return FormatHoursRemaining(hours), true
}

func formatTimeRemaining7d(in Inputs) (string, bool) {
	if in.Quota.Snapshot == nil {
		return "", false
	}
	reset, ok := in.Quota.Snapshot.SevenDay.ResetTime()
	if !ok {
		return "", false
	}
	return FormatDaysRemaining(reset.Sub(in.Now).Hours()), true
}

// FormatBlockInfo is the block cost, or "No block" outside a live window.
func FormatBlockInfo(block types.Block) string {
	if !block.IsActive {
		return "No block"
	}
	return FormatCurrency(block.CostUSD)
}

func FormatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func FormatBurnRate(rate types.BurnRate) string {
	return FormatCurrency(rate.CostPerHour) + "/h"
}

func clockEmoji(hours float64) string {
	switch {
	case hours*60 < 15:
		return "🕛"
	case hours <= 1:
		return "🕐"
	case hours <= 2:
		return "🕑"
	case hours <= 3:
		return "🕒"
	case hours <= 4:
		return "🕓"
	default:
		return "🕔"
	}
}

// FormatHoursRemaining renders e.g. "🕑1h30m".
func FormatHoursRemaining(hours float64) string {
	if hours <= 0 {
		return clockEmoji(0) + "0h"
	}

	h := int64(math.Floor(hours))
	m := int64(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h, m = h+1, 0
	}
	clock := clockEmoji(hours)

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%s%dh%dm", clock, h, m)
	case h > 0:
		return fmt.Sprintf("%s%dh", clock, h)
	default:
		return fmt.Sprintf("%s%dm", clock, m)
	}
}

// FormatDaysRemaining renders e.g. "📅3d4h".
func FormatDaysRemaining(hours float64) string {
	if hours <= 0 {
		return "📅0d"
	}

	days := int64(math.Floor(hours / 24))
	rest := int64(math.Floor(math.Mod(hours, 24)))

	switch {
	case days > 0 && rest > 0:
		return fmt.Sprintf("📅%dd%dh", days, rest)
	case days > 0:
		return fmt.Sprintf("📅%dd", days)
	default:
		return fmt.Sprintf("📅%dh", rest)
	}
}

var numberPrinter = message.NewPrinter(language.English)

// FormatNumber adds thousands separators.
func FormatNumber(n uint64) string {
	return numberPrinter.Sprintf("%d", n)
}

// FormatContext renders "tokens(percent%)", or "N/A" when unknown.
func FormatContext(info *types.ContextInfo, styles *Styles) string {
	if info == nil {
		return "N/A"
	}
	pct := fmt.Sprintf("%d", info.Percentage)
	return fmt.Sprintf("%s(%s%%)", FormatNumber(info.Tokens), styles.Percent(info.Percentage, pct))
}

var eighths = []string{"", "▁", "▂", "▃", "▄", "▅", "▆", "▇"}

// fractionGlyph maps the first decimal of v to a bar glyph; .0 maps to
// nothing and .8 and above to a full block.
func fractionGlyph(v float64) string {
	_, frac := math.Modf(v)
	tenth := int(frac * 10)
	if tenth < 0 {
		tenth = 0
	}
	if tenth < len(eighths) {
		return eighths[tenth]
	}
	return "█"
}

// FormatAPI5h renders e.g. "5h:42%▅" for 42.5.
func FormatAPI5h(utilization float64) string {
	return fmt.Sprintf("5h:%d%%%s", uint32(utilization), fractionGlyph(utilization))
}

// FormatDirectory abbreviates the home directory to "~".
func FormatDirectory(path, home string) string {
	if home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(os.PathSeparator)); ok {
		return "~" + string(os.PathSeparator) + rest
	}
	return path
}

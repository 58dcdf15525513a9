package output

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	statusActive    = "ACTIVE"
	statusProjected = "PROJECTED"
)

// BlocksTable renders billing windows with tablewriter.
type BlocksTable struct {
	noColor  bool
	timezone *time.Location
	now      func() time.Time
}

func NewBlocksTable(noColor bool, loc *time.Location, now func() time.Time) *BlocksTable {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &BlocksTable{noColor: noColor, timezone: loc, now: now}
}

var printer = message.NewPrinter(language.English)

func formatNumberWithCommas(n uint64) string {
	return printer.Sprintf("%d", n)
}

func (f *BlocksTable) Format(blocks []types.Block, projection *types.Projection) string {
	var out strings.Builder

	title := "Billing Windows"
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	if f.noColor {
		titleStyle = lipgloss.NewStyle()
	}
	out.WriteString("\n " + titleStyle.Render(title) + "\n\n")

	if len(blocks) == 0 {
		out.WriteString("No billing windows found in the lookback range.\n")
		return out.String()
	}

	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignRight},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Block Start", "Duration/Status", "Models", "Events", "Tokens", "Cost"})

	for _, block := range blocks {
		status := ""
		if block.IsActive {
			status = statusActive
		}
		_ = table.Append([]string{
			f.formatBlockTime(block),
			status,
			formatBlockModels(block.Models),
			fmt.Sprintf("%d", block.EventCount),
			formatNumberWithCommas(block.TotalTokens),
			fmt.Sprintf("$%.2f", block.CostUSD),
		})

		if block.IsActive && projection != nil {
			_ = table.Append([]string{
				"(assuming current burn rate)",
				statusProjected,
				"",
				"",
				formatNumberWithCommas(projection.TotalTokens),
				fmt.Sprintf("$%.2f", projection.TotalCost),
			})
		}
	}
	_ = table.Render()

	if f.noColor {
		out.WriteString(buf.String())
		return out.String()
	}

	active := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render(statusActive)
	projected := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render(statusProjected)
	colored := strings.NewReplacer(statusActive, active, statusProjected, projected).Replace(buf.String())
	out.WriteString(colored)
	return out.String()
}

func (f *BlocksTable) formatBlockTime(block types.Block) string {
	start := block.StartTime.In(f.timezone)

	if block.IsActive {
		now := f.now()
		elapsed := now.Sub(block.StartTime)
		remaining := block.EndTime.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Sprintf("%s (%dh %dm elapsed, %dh %dm remaining)",
			start.Format("2006-01-02, 3:04:05 PM"),
			int(elapsed.Hours()), int(elapsed.Minutes())%60,
			int(remaining.Hours()), int(remaining.Minutes())%60)
	}

	var duration time.Duration
	if block.ActualEndTime != nil {
		duration = block.ActualEndTime.Sub(block.StartTime)
	}
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%s (%dh %dm)", start.Format("2006-01-02, 3:04:05 PM"), hours, minutes)
	}
	return fmt.Sprintf("%s (%dm)", start.Format("2006-01-02, 3:04:05 PM"), minutes)
}

func formatBlockModels(models []string) string {
	if len(models) == 0 {
		return "-"
	}
	short := lo.Uniq(lo.Map(models, func(m string, _ int) string { return ShortenModelName(m) }))
	sort.Strings(short)
	return "- " + strings.Join(short, "\n- ")
}

var (
	minorVersionModel = regexp.MustCompile(`^claude-(\w+?)-(\d+)-(\d+)-\d{8}$`)
	majorVersionModel = regexp.MustCompile(`^claude-(\w+?)-(\d+)-\d{8}$`)
	titleCase         = cases.Title(language.English)
)

// ShortenModelName turns a dated Claude model id into e.g. "Opus-4.1";
// other ids are truncated to 12 characters.
func ShortenModelName(model string) string {
	if m := minorVersionModel.FindStringSubmatch(model); m != nil {
		return fmt.Sprintf("%s-%s.%s", titleCase.String(m[1]), m[2], m[3])
	}
	if m := majorVersionModel.FindStringSubmatch(model); m != nil {
		return fmt.Sprintf("%s-%s", titleCase.String(m[1]), m[2])
	}

	knownModels := map[string]string{
		"gpt-4o":        "gpt-4o",
		"gpt-4o-mini":   "gpt-4o-mini",
		"gpt-3.5-turbo": "gpt-3.5",
	}
	if short, ok := knownModels[model]; ok {
		return short
	}

	if len(model) > 12 {
		return model[:12]
	}
	return model
}

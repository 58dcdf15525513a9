package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

type Formatter struct {
	options FormatterOptions
}

type FormatterOptions struct {
	Format   string // "table" or "json"
	NoColor  bool
	Timezone *time.Location
	Now      func() time.Time
}

func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.Timezone == nil {
		opts.Timezone = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Formatter{options: opts}
}

// BlocksReport is the JSON shape of the blocks command.
type BlocksReport struct {
	Blocks     []types.Block     `json:"blocks"`
	Projection *types.Projection `json:"projection,omitempty"`
}

// FormatBlocksReport renders billing windows; projection belongs to the
// active window and may be nil.
func (f *Formatter) FormatBlocksReport(blocks []types.Block, projection *types.Projection) (string, error) {
	switch f.options.Format {
	case "json":
		return f.formatJSON(BlocksReport{Blocks: blocks, Projection: projection})
	case "", "table":
		return NewBlocksTable(f.options.NoColor, f.options.Timezone, f.options.Now).Format(blocks, projection), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", f.options.Format)
	}
}

func (f *Formatter) formatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

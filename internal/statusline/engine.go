package statusline

import (
	"context"
	"io"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/cache"
	"github.com/sdpower/ccusage-statusline-go/internal/calculator"
	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/loader"
	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/pricing"
	"github.com/sdpower/ccusage-statusline-go/internal/quota"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// TableLoader supplies the pricing table.
type TableLoader interface {
	Load(ctx context.Context) (map[string]pricing.Entry, error)
}

// QuotaSource supplies the account quota.
type QuotaSource interface {
	Get(ctx context.Context) quota.Outcome
}

// InteractiveLayout is used when there is no hook payload.
func InteractiveLayout() config.Layout {
	return config.Layout{Elements: []config.Element{
		config.ElementBlockCost,
		config.ElementTimeRemaining5h,
		config.ElementBurnRate,
		config.ElementAPI5h,
		config.ElementAPI7d,
	}}
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Tables   TableLoader
	Loader   *loader.Loader
	Quota    QuotaSource
	Render   *cache.RenderCache
	Roots    []string
	Duration time.Duration
	Layout   config.Layout
	Home     string
	Styles   *Styles
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Engine runs the whole pipeline for one statusline.
type Engine struct {
	deps Deps
	log  *zap.Logger
}

func NewEngine(deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Duration <= 0 {
		deps.Duration = calculator.DefaultBlockDuration
	}
	if len(deps.Layout.Elements) == 0 {
		deps.Layout = config.DefaultLayout()
	}
	if deps.Styles == nil {
		deps.Styles = NewStyles(io.Discard, true)
	}
	return &Engine{deps: deps, log: logging.OrNop(deps.Logger)}
}

// pipeline loads pricing and events and groups them into billing windows.
func (e *Engine) pipeline(ctx context.Context) (*calculator.Calculator, []types.Block, int, error) {
	table, err := e.deps.Tables.Load(ctx)
	if err != nil {
		e.log.Warn("pricing table unavailable, using fallback prices", zap.Error(err))
	}
	resolver := pricing.NewResolver(table)

	events, err := e.deps.Loader.Load(ctx, e.deps.Roots)
	if err != nil {
		return nil, nil, 0, err
	}

	calc := calculator.New(resolver,
		calculator.WithDuration(e.deps.Duration),
		calculator.WithClock(e.deps.Clock))
	return calc, calc.IdentifyBlocks(events), len(events), nil
}

// Blocks returns every billing window in the lookback range and the
// projection of the active one, if any.
func (e *Engine) Blocks(ctx context.Context) ([]types.Block, *types.Projection, error) {
	calc, blocks, _, err := e.pipeline(ctx)
	if err != nil {
		return nil, nil, err
	}
	return blocks, calc.Project(calc.ActiveBlock(blocks)), nil
}

// Collect gathers the render inputs. Only an unreadable log root is fatal;
// pricing and quota failures degrade.
func (e *Engine) Collect(ctx context.Context, hook *types.HookData, layout config.Layout) (Inputs, error) {
	calc, blocks, events, err := e.pipeline(ctx)
	if err != nil {
		return Inputs{}, err
	}
	active := calc.ActiveBlock(blocks)

	in := Inputs{
		Hook:           hook,
		Block:          active,
		HoursRemaining: calc.HoursRemaining(active),
		BurnRate:       calc.BurnRate(active),
		Home:           e.deps.Home,
		Now:            e.deps.Clock(),
	}

	if e.deps.Quota != nil && needsQuota(layout) {
		in.Quota = e.deps.Quota.Get(ctx)
	} else {
		in.Quota = quota.Outcome{Err: types.ErrOffline}
	}

	if hook != nil && layout.Has(config.ElementContext) {
		in.Context = TranscriptContext(hook.TranscriptPath, e.deps.Home)
	}

	e.log.Debug("collected statusline inputs",
		zap.Int("events", events),
		zap.Int("blocks", len(blocks)),
		zap.Bool("active", active.IsActive),
		zap.Stringer("quota_path", in.Quota.Path))
	return in, nil
}

var quotaElements = []config.Element{
	config.ElementAPI5h,
	config.ElementAPI7d,
	config.ElementAPISonnet,
	config.ElementTimeRemaining5h,
	config.ElementTimeRemaining7d,
}

func needsQuota(layout config.Layout) bool {
	return lo.Some(layout.Elements, quotaElements)
}

// Render computes the statusline. A nil hook renders the interactive
// variant without session-specific segments.
func (e *Engine) Render(ctx context.Context, hook *types.HookData) (string, error) {
	layout := e.deps.Layout
	if hook == nil {
		layout = InteractiveLayout()
	}
	in, err := e.Collect(ctx, hook, layout)
	if err != nil {
		return "", err
	}
	return Format(layout, in, e.deps.Styles), nil
}

// RenderCached serves the line from the render cache while the transcript
// is unchanged and the entry is fresh, and writes through on a miss.
func (e *Engine) RenderCached(ctx context.Context, hook *types.HookData) (string, error) {
	if e.deps.Render == nil || hook == nil || hook.TranscriptPath == "" {
		return e.Render(ctx, hook)
	}

	if line, ok := e.deps.Render.TryGet(hook.SessionID, hook.TranscriptPath); ok {
		e.log.Debug("render cache hit", zap.String("session", hook.SessionID))
		return line, nil
	}

	line, err := e.Render(ctx, hook)
	if err != nil {
		return "", err
	}
	if err := e.deps.Render.Put(hook.SessionID, hook.TranscriptPath, line); err != nil {
		e.log.Debug("render cache write failed", zap.String("session", hook.SessionID), zap.Error(err))
	}
	return line, nil
}

// Roots returns the log roots the engine reads.
func (e *Engine) Roots() []string {
	return e.deps.Roots
}

package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/cache"
	"github.com/sdpower/ccusage-statusline-go/internal/config"
	"github.com/sdpower/ccusage-statusline-go/internal/loader"
	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/pricing"
	"github.com/sdpower/ccusage-statusline-go/internal/quota"
	"github.com/sdpower/ccusage-statusline-go/internal/statusline"
)

// Paths are the per-user locations resolved once per invocation.
type Paths struct {
	Home     string
	CacheDir string
}

// globalFlags are the persistent flags shared by every command; set values
// override the environment.
type globalFlags struct {
	debug    bool
	noColor  bool
	offline  bool
	cacheDir string
	dataDirs []string
}

func (f *globalFlags) apply(cfg *config.Config) {
	if f.debug {
		cfg.Debug = true
	}
	if f.noColor {
		cfg.NoColor = true
	}
	if f.offline {
		cfg.Offline = true
	}
	if f.cacheDir != "" {
		cfg.CacheDir = f.cacheDir
	}
	if len(f.dataDirs) > 0 {
		cfg.DataDirs = f.dataDirs
	}
}

// buildContainer wires one invocation. Providers run lazily, so commands
// that only need the config never touch the log roots or the network.
func buildContainer(flags *globalFlags, out io.Writer) (*dig.Container, error) {
	container := dig.New()

	providers := []struct {
		name string
		fn   interface{}
	}{
		{"config", func() (*config.Config, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			flags.apply(cfg)
			return cfg, nil
		}},
		{"logger", func(cfg *config.Config) (*zap.Logger, error) {
			return logging.New(cfg.Debug)
		}},
		{"paths", newPaths},
		{"http client", func(cfg *config.Config) *http.Client {
			return &http.Client{Timeout: cfg.Pricing.Timeout}
		}},
		{"pricing", newPricingService},
		{"loader", func(cfg *config.Config, log *zap.Logger) *loader.Loader {
			return loader.New(loader.WithLookback(cfg.Blocks.Lookback), loader.WithLogger(log))
		}},
		{"render cache", func(cfg *config.Config, paths Paths, log *zap.Logger) *cache.RenderCache {
			return cache.NewRenderCache(paths.CacheDir, cache.WithTTL(cfg.Cache.RenderTTL), cache.WithLogger(log))
		}},
		{"quota cache", newQuotaCache},
		{"layout", func(paths Paths, log *zap.Logger) config.Layout {
			layout, err := config.LoadLayout(config.LayoutPath(paths.Home))
			if err != nil {
				log.Warn("using default layout", zap.Error(err))
			}
			return layout
		}},
		{"styles", func(cfg *config.Config) *statusline.Styles {
			return statusline.NewStyles(out, cfg.ColorDisabled())
		}},
		{"engine", newEngine},
	}

	for _, p := range providers {
		if err := container.Provide(p.fn); err != nil {
			return nil, fmt.Errorf("failed to provide %s: %w", p.name, err)
		}
	}
	return container, nil
}

func newPaths(cfg *config.Config) (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolving home directory: %w", err)
	}
	dir, err := cache.Dir(cfg.CacheDir)
	if err != nil {
		return Paths{}, err
	}
	return Paths{Home: home, CacheDir: dir}, nil
}

func newPricingService(cfg *config.Config, paths Paths, client *http.Client, log *zap.Logger) *pricing.Service {
	return pricing.NewService(paths.CacheDir,
		pricing.WithHTTPClient(client),
		pricing.WithURL(cfg.Pricing.URL),
		pricing.WithTTL(cfg.Pricing.TTL),
		pricing.WithTimeout(cfg.Pricing.Timeout),
		pricing.WithOffline(cfg.Offline),
		pricing.WithLogger(log))
}

func newQuotaCache(cfg *config.Config, paths Paths, client *http.Client, log *zap.Logger) *quota.Cache {
	credentials := func() (quota.Credentials, error) {
		return quota.LoadCredentials(paths.Home, cfg.Quota.SessionKey, cfg.Quota.OrgID)
	}
	fetcher := quota.NewHTTPFetcher(credentials,
		quota.WithHTTPClient(client),
		quota.WithURLs(cfg.Quota.URL, cfg.Quota.WebURL),
		quota.WithTimeout(cfg.Quota.Timeout),
		quota.WithFetcherLogger(log))
	return quota.NewCache(paths.CacheDir, fetcher,
		quota.WithTTL(cfg.Quota.TTL),
		quota.WithDisabled(cfg.Offline),
		quota.WithLogger(log))
}

type engineParams struct {
	dig.In

	Config *config.Config
	Paths  Paths
	Logger *zap.Logger
	Tables *pricing.Service
	Loader *loader.Loader
	Quota  *quota.Cache
	Render *cache.RenderCache
	Layout config.Layout
	Styles *statusline.Styles
}

func newEngine(p engineParams) (*statusline.Engine, error) {
	roots, err := loader.DiscoverRoots(p.Config.DataDirs, p.Paths.Home)
	if err != nil {
		return nil, err
	}
	return statusline.NewEngine(statusline.Deps{
		Tables:   p.Tables,
		Loader:   p.Loader,
		Quota:    p.Quota,
		Render:   p.Render,
		Roots:    roots,
		Duration: p.Config.Blocks.Duration,
		Layout:   p.Layout,
		Home:     p.Paths.Home,
		Styles:   p.Styles,
		Logger:   p.Logger,
	}), nil
}

// withEngine builds the container and hands the engine to fn.
func withEngine(flags *globalFlags, out io.Writer, fn func(*statusline.Engine, *config.Config, *zap.Logger) error) error {
	container, err := buildContainer(flags, out)
	if err != nil {
		return err
	}
	return unwrapDig(container.Invoke(func(engine *statusline.Engine, cfg *config.Config, log *zap.Logger) error {
		defer func() { _ = log.Sync() }()
		return fn(engine, cfg, log)
	}))
}

// unwrapDig strips dig's wrapping so callers see the provider's error.
func unwrapDig(err error) error {
	if err == nil {
		return nil
	}
	return dig.RootCause(err)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// Config represents the statusline configuration, read from the environment.
type Config struct {
	DataDirs []string `env:"CLAUDE_CONFIG_DIR" envSeparator:","`
	CacheDir string   `env:"CCSTATUS_CACHE_DIR"`
	Debug    bool     `env:"CCSTATUS_DEBUG"`
	Offline  bool     `env:"CCSTATUS_OFFLINE"`
	NoColor  bool     `env:"CCSTATUS_NO_COLOR"`

	// NO_COLOR is honored for any non-empty value (https://no-color.org).
	NoColorConvention string `env:"NO_COLOR"`

	Blocks  BlocksConfig
	Cache   CacheConfig
	Pricing PricingConfig
	Quota   QuotaConfig
}

// BlocksConfig controls ingestion and billing-window grouping.
type BlocksConfig struct {
	Duration time.Duration `env:"CCSTATUS_BLOCK_DURATION" envDefault:"5h"`
	Lookback time.Duration `env:"CCSTATUS_LOOKBACK"       envDefault:"12h"`
}

// CacheConfig controls the render-result cache.
type CacheConfig struct {
	RenderTTL time.Duration `env:"CCSTATUS_RENDER_TTL" envDefault:"30s"`
}

// PricingConfig controls the pricing table cache. An empty URL selects the
// built-in LiteLLM source.
type PricingConfig struct {
	URL     string        `env:"CCSTATUS_PRICING_URL"`
	TTL     time.Duration `env:"CCSTATUS_PRICING_TTL" envDefault:"24h"`
	Timeout time.Duration `env:"CCSTATUS_HTTP_TIMEOUT" envDefault:"5s"`
}

// QuotaConfig controls the remote quota cache and its credentials. Empty
// URLs select the built-in endpoints.
type QuotaConfig struct {
	URL        string        `env:"CCSTATUS_QUOTA_URL"`
	WebURL     string        `env:"CCSTATUS_WEB_QUOTA_URL"`
	TTL        time.Duration `env:"CCSTATUS_QUOTA_TTL"     envDefault:"30s"`
	Timeout    time.Duration `env:"CCSTATUS_HTTP_TIMEOUT"  envDefault:"5s"`
	SessionKey string        `env:"CCSTATUS_SESSION_KEY"`
	OrgID      string        `env:"CCSTATUS_ORG_ID"`
}

// ColorDisabled reports whether any no-color switch is set.
func (c *Config) ColorDisabled() bool {
	return c.NoColor || c.NoColorConvention != ""
}

// Load reads the optional dotenv file and parses the environment.
func Load() (*Config, error) {
	if home, err := os.UserHomeDir(); err == nil {
		return LoadFrom(EnvFilePath(home))
	}
	return LoadFrom("")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an error.
// Values already present in the environment take precedence over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	if c.Blocks.Duration <= 0 {
		return types.ValidationError{Field: "CCSTATUS_BLOCK_DURATION", Message: "must be positive"}
	}
	// Files older than the lookback can't hold events of a still-open block
	// only if the lookback is wider than a block.
	if c.Blocks.Lookback <= c.Blocks.Duration {
		return types.ValidationError{
			Field:   "CCSTATUS_LOOKBACK",
			Message: fmt.Sprintf("must be greater than the block duration (%s)", c.Blocks.Duration),
		}
	}
	if c.Cache.RenderTTL < 0 || c.Quota.TTL < 0 || c.Pricing.TTL < 0 {
		return types.ValidationError{Field: "TTL", Message: "must not be negative"}
	}
	if c.Pricing.Timeout <= 0 {
		return types.ValidationError{Field: "CCSTATUS_HTTP_TIMEOUT", Message: "must be positive"}
	}
	return nil
}

func EnvFilePath(home string) string {
	return filepath.Join(home, ".claude", "ccusage-statusline.env")
}

func LayoutPath(home string) string {
	return filepath.Join(home, ".claude", "ccusage-statusline.yaml")
}

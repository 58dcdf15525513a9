package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	LiteLLMURL      = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"
	CacheFileName   = "pricing.json"
	DefaultCacheTTL = 24 * time.Hour
	DefaultTimeout  = 5 * time.Second
)

// Service loads the LiteLLM pricing table, fetching it at most once per TTL
// and persisting it to a local cache file.
type Service struct {
	client   *http.Client
	url      string
	path     string
	cacheTTL time.Duration
	timeout  time.Duration
	offline  bool
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

func WithHTTPClient(c *http.Client) Option { return func(s *Service) { s.client = c } }
func WithURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.url = url
		}
	}
}
func WithTTL(ttl time.Duration) Option   { return func(s *Service) { s.cacheTTL = ttl } }
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }
func WithOffline(offline bool) Option    { return func(s *Service) { s.offline = offline } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// NewService creates a table cache persisting to <cacheDir>/pricing.json.
func NewService(cacheDir string, opts ...Option) *Service {
	s := &Service{
		url:      LiteLLMURL,
		path:     filepath.Join(cacheDir, CacheFileName),
		cacheTTL: DefaultCacheTTL,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	s.log = logging.OrNop(s.log)
	return s
}

// cacheFile is the on-disk format of the pricing cache.
type cacheFile struct {
	Timestamp int64            `json:"timestamp"`
	Models    map[string]Entry `json:"models"`
}

// Load returns the pricing table: the cache file when younger than the TTL,
// otherwise a fresh fetch. When the fetch fails the cache file is used
// regardless of its age; with no cache at all it returns ErrNoPricing.
func (s *Service) Load(ctx context.Context) (map[string]Entry, error) {
	cached, cacheErr := s.readCache()
	if cacheErr == nil {
		age := s.now().Unix() - cached.Timestamp
		if age < int64(s.cacheTTL/time.Second) {
			return cached.Models, nil
		}
	}

	if s.offline {
		if cacheErr == nil {
			return cached.Models, nil
		}
		return nil, fmt.Errorf("%w: %w", types.ErrNoPricing, types.ErrOffline)
	}

	models, err := s.refreshCache(ctx)
	if err == nil {
		if werr := s.writeCache(models); werr != nil {
			s.log.Warn("failed to persist pricing cache", zap.String("path", s.path), zap.Error(werr))
		}
		return models, nil
	}

	if cacheErr == nil {
		s.log.Warn("pricing fetch failed, using stale cache",
			zap.Error(err),
			zap.Time("cached_at", time.Unix(cached.Timestamp, 0)))
		return cached.Models, nil
	}

	return nil, fmt.Errorf("%w: %w", types.ErrNoPricing, err)
}

// Path returns the cache file location.
func (s *Service) Path() string {
	return s.path
}

func (s *Service) readCache() (*cacheFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, types.ParseError{Err: err}
	}
	if cached.Models == nil {
		return nil, types.ParseError{Err: types.ErrInvalidFormat}
	}
	return &cached, nil
}

func (s *Service) writeCache(models map[string]Entry) error {
	data, err := json.Marshal(cacheFile{
		Timestamp: s.now().Unix(),
		Models:    models,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return renameio.WriteFile(s.path, data, 0o600)
}

func (s *Service) refreshCache(ctx context.Context) (map[string]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, types.HTTPStatusError{URL: s.url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding pricing table: %w", err)
	}

	// LiteLLM mixes in non-model keys (e.g. "sample_spec") whose fields are
	// not all numeric; decode per entry and keep what parses.
	models := make(map[string]Entry, len(raw))
	skipped := 0
	for name, msg := range raw {
		var entry Entry
		if err := json.Unmarshal(msg, &entry); err != nil {
			skipped++
			continue
		}
		models[name] = entry
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("decoding pricing table: %w", types.ErrInvalidFormat)
	}

	s.log.Debug("fetched pricing table", zap.Int("models", len(models)), zap.Int("skipped", skipped))
	return models, nil
}

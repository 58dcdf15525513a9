package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	DefaultOAuthURL = "https://api.anthropic.com/api/oauth/usage"
	DefaultWebURL   = "https://claude.ai/api/organizations/%s/usage"
	DefaultTimeout  = 5 * time.Second
	oauthBeta       = "oauth-2025-04-20"
	userAgent       = "ccusage-statusline"
)

// Fetcher retrieves the current account quota snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (*types.QuotaSnapshot, error)
}

// Credentials authenticate the quota request: either an OAuth access token
// or a claude.ai web session (session key plus organization id).
type Credentials struct {
	AccessToken string
	SessionKey  string
	OrgID       string
}

func (c Credentials) web() bool {
	return c.SessionKey != "" && c.OrgID != ""
}

// credentialsFile mirrors the parts of ~/.claude/.credentials.json we read.
type credentialsFile struct {
	ClaudeAiOauth *struct {
		AccessToken string `json:"accessToken"`
	} `json:"claudeAiOauth"`
}

// LoadCredentials prefers an explicit web session, then the OAuth token the
// Claude CLI stores under home. Nothing usable yields ErrNoCredentials.
func LoadCredentials(home, sessionKey, orgID string) (Credentials, error) {
	if sessionKey != "" && orgID != "" {
		return Credentials{SessionKey: sessionKey, OrgID: orgID}, nil
	}
	if home == "" {
		return Credentials{}, types.ErrNoCredentials
	}

	path := filepath.Join(home, ".claude", ".credentials.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, types.ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, types.LoaderError{Path: path, Err: err}
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Credentials{}, types.LoaderError{Path: path, Err: err}
	}
	if file.ClaudeAiOauth == nil || strings.TrimSpace(file.ClaudeAiOauth.AccessToken) == "" {
		return Credentials{}, types.ErrNoCredentials
	}
	return Credentials{AccessToken: strings.TrimSpace(file.ClaudeAiOauth.AccessToken)}, nil
}

// HTTPFetcher calls the account usage endpoint.
type HTTPFetcher struct {
	client      *http.Client
	url         string
	webURL      string
	timeout     time.Duration
	credentials func() (Credentials, error)
	log         *zap.Logger
}

type FetcherOption func(*HTTPFetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithURLs sets the OAuth endpoint and the web endpoint template, which
// takes the organization id as its only %s verb. Empty values keep the
// defaults.
func WithURLs(oauthURL, webURL string) FetcherOption {
	return func(f *HTTPFetcher) {
		if oauthURL != "" {
			f.url = oauthURL
		}
		if webURL != "" {
			f.webURL = webURL
		}
	}
}

func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.timeout = d }
}

func WithFetcherLogger(l *zap.Logger) FetcherOption {
	return func(f *HTTPFetcher) { f.log = l }
}

// NewHTTPFetcher builds a fetcher; credentials is called on every fetch so
// a refreshed token is picked up without rebuilding the fetcher.
func NewHTTPFetcher(credentials func() (Credentials, error), opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		url:         DefaultOAuthURL,
		webURL:      DefaultWebURL,
		timeout:     DefaultTimeout,
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	f.log = logging.OrNop(f.log)
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (*types.QuotaSnapshot, error) {
	creds, err := f.credentials()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := f.newRequest(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, types.HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var snapshot types.QuotaSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding quota response: %w", err)
	}

	f.log.Debug("fetched quota",
		zap.Float64("five_hour", snapshot.FiveHour.Utilization),
		zap.Float64("seven_day", snapshot.SevenDay.Utilization))
	return &snapshot, nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, creds Credentials) (*http.Request, error) {
	if creds.web() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(f.webURL, creds.OrgID), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Cookie", fmt.Sprintf("sessionKey=%s; lastActiveOrg=%s", creds.SessionKey, creds.OrgID))
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	if creds.AccessToken == "" {
		return nil, types.ErrNoCredentials
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("anthropic-beta", oauthBeta)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/fsutil"
	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	CacheFileName   = "api-usage-cache.json"
	DefaultCacheTTL = 30 * time.Second
)

// Path records how Get arrived at its outcome.
type Path int

const (
	PathFailed Path = iota
	PathFresh
	PathFetched
	PathShared
	PathStale
)

func (p Path) String() string {
	switch p {
	case PathFresh:
		return "fresh"
	case PathFetched:
		return "fetched"
	case PathShared:
		return "shared"
	case PathStale:
		return "stale"
	default:
		return "failed"
	}
}

// Outcome is the terminal result of one Get. Snapshot is nil when no quota
// data is available. Err is set whenever the refresh failed, including
// PathStale, where Snapshot is the last good value left on disk.
type Outcome struct {
	Snapshot *types.QuotaSnapshot
	Path     Path
	Err      error
}

// Cache coordinates quota fetches across processes through a single cache
// file. At most one process fetches at a time; the others wait for it and
// read what it wrote.
type Cache struct {
	path     string
	lockPath string
	ttl      time.Duration
	fetcher  Fetcher
	disabled bool
	now      func() time.Time
	log      *zap.Logger
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// WithDisabled turns Get into an immediate ErrOffline outcome.
func WithDisabled(disabled bool) CacheOption {
	return func(c *Cache) { c.disabled = disabled }
}

func NewCache(dir string, fetcher Fetcher, opts ...CacheOption) *Cache {
	path := filepath.Join(dir, CacheFileName)
	c := &Cache{
		path:     path,
		lockPath: path + ".lock",
		ttl:      DefaultCacheTTL,
		fetcher:  fetcher,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

type state int

const (
	stateTryExclusive state = iota
	stateCheckFreshness
	stateReadFresh
	stateFetchWrite
	stateSharedWait
	stateDone
)

// run carries one Get invocation through the state machine.
type run struct {
	lock    *flock.Flock
	outcome Outcome
}

func (r *run) finish(snapshot *types.QuotaSnapshot, path Path, err error) state {
	r.outcome = Outcome{Snapshot: snapshot, Path: path, Err: err}
	return stateDone
}

// Get returns the quota snapshot, from the cache file when it is younger
// than the TTL, otherwise from the fetcher. If another process holds the
// lock, Get waits for it and returns whatever it left on disk. Failures
// never propagate beyond the Outcome.
func (c *Cache) Get(ctx context.Context) Outcome {
	if c.disabled || c.fetcher == nil {
		return Outcome{Path: PathFailed, Err: types.ErrOffline}
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return Outcome{Path: PathFailed, Err: err}
	}

	r := &run{lock: flock.New(c.lockPath)}
	defer r.lock.Close()

	st := stateTryExclusive
	for st != stateDone {
		st = c.step(ctx, st, r)
	}

	if r.outcome.Err != nil {
		c.log.Warn("quota unavailable", zap.Stringer("path", r.outcome.Path), zap.Error(r.outcome.Err))
	} else {
		c.log.Debug("quota resolved", zap.Stringer("path", r.outcome.Path))
	}
	return r.outcome
}

func (c *Cache) step(ctx context.Context, st state, r *run) state {
	switch st {
	case stateTryExclusive:
		locked, err := r.lock.TryLock()
		if err != nil {
			return r.finish(nil, PathFailed, fmt.Errorf("lock quota cache: %w", err))
		}
		if !locked {
			return stateSharedWait
		}
		return stateCheckFreshness

	case stateCheckFreshness:
		mtime, err := fsutil.ModTime(c.path)
		if err == nil && c.now().Sub(mtime) < c.ttl {
			return stateReadFresh
		}
		return stateFetchWrite

	case stateReadFresh:
		snapshot, err := c.read()
		if err != nil {
			c.log.Debug("fresh quota cache unreadable, refetching", zap.Error(err))
			return stateFetchWrite
		}
		r.lock.Unlock()
		return r.finish(snapshot, PathFresh, nil)

	case stateFetchWrite:
		defer r.lock.Unlock()
		snapshot, err := c.fetcher.Fetch(ctx)
		if err != nil {
			if stale, rerr := c.read(); rerr == nil {
				return r.finish(stale, PathStale, err)
			}
			return r.finish(nil, PathFailed, err)
		}
		if err := c.write(snapshot); err != nil {
			c.log.Warn("failed to persist quota cache", zap.String("path", c.path), zap.Error(err))
		}
		return r.finish(snapshot, PathFetched, nil)

	case stateSharedWait:
		if err := r.lock.RLock(); err != nil {
			return r.finish(nil, PathFailed, fmt.Errorf("wait for quota cache: %w", err))
		}
		defer r.lock.Unlock()
		snapshot, err := c.read()
		if err != nil {
			return r.finish(nil, PathFailed, err)
		}
		// The holder leaves an old file behind only when its fetch failed.
		if mtime, err := fsutil.ModTime(c.path); err == nil && c.now().Sub(mtime) >= c.ttl {
			return r.finish(snapshot, PathStale, errRefreshFailed)
		}
		return r.finish(snapshot, PathShared, nil)
	}

	return r.finish(nil, PathFailed, fmt.Errorf("invalid quota cache state %d", st))
}

var (
	errEmptyCache    = errors.New("quota cache is empty")
	errRefreshFailed = errors.New("quota refresh by another process failed")
)

func (c *Cache) read() (*types.QuotaSnapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyCache
	}
	var snapshot types.QuotaSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, types.ParseError{Err: err}
	}
	return &snapshot, nil
}

func (c *Cache) write(snapshot *types.QuotaSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return renameio.WriteFile(c.path, data, 0o600)
}

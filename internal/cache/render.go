package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/fsutil"
	"github.com/sdpower/ccusage-statusline-go/internal/logging"
)

// DefaultRenderTTL bounds how long a rendered line is reused.
const DefaultRenderTTL = 30 * time.Second

// renderRecord is the on-disk format of one cached statusline.
type renderRecord struct {
	Date            string `json:"date"`
	LastOutput      string `json:"last_output"`
	LastUpdateTime  int64  `json:"last_update_time"`
	TranscriptPath  string `json:"transcript_path"`
	TranscriptMtime int64  `json:"transcript_mtime"`
}

// RenderCache stores the last rendered line per session key. Each key owns
// <key>.json holding the record and <key>.lock carrying the advisory lock;
// the lock lives on a sidecar because the record is replaced by rename.
type RenderCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
	log *zap.Logger
}

type RenderOption func(*RenderCache)

func WithTTL(ttl time.Duration) RenderOption {
	return func(c *RenderCache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) RenderOption {
	return func(c *RenderCache) { c.now = now }
}

func WithLogger(l *zap.Logger) RenderOption {
	return func(c *RenderCache) { c.log = l }
}

func NewRenderCache(dir string, opts ...RenderOption) *RenderCache {
	c := &RenderCache{
		dir: dir,
		ttl: DefaultRenderTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrNop(c.log)
	return c
}

func (c *RenderCache) paths(key string) (record, lock string) {
	base := filepath.Join(c.dir, "render-"+fsutil.SanitizeFileComponent(key))
	return base + ".json", base + ".lock"
}

// TryGet returns the cached line for key when it is younger than the TTL and
// watched has not been modified since it was stored. It never blocks: if a
// writer holds the lock the lookup is a miss.
func (c *RenderCache) TryGet(key, watched string) (string, bool) {
	recordPath, lockPath := c.paths(key)
	if _, err := os.Stat(recordPath); err != nil {
		return "", false
	}

	lock := flock.New(lockPath)
	locked, err := lock.TryRLock()
	if err != nil || !locked {
		c.log.Debug("render cache busy", zap.String("key", key), zap.Error(err))
		return "", false
	}
	defer lock.Unlock()

	data, err := os.ReadFile(recordPath)
	if err != nil {
		return "", false
	}
	var rec renderRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.Debug("discarding unreadable render record", zap.String("path", recordPath), zap.Error(err))
		return "", false
	}

	if c.now().Sub(time.Unix(rec.LastUpdateTime, 0)) >= c.ttl {
		return "", false
	}

	mtime, err := fsutil.ModTime(watched)
	if err != nil || mtime.UnixNano() != rec.TranscriptMtime {
		return "", false
	}

	return rec.LastOutput, true
}

// Put stores text for key together with watched's current mtime. It waits
// for the exclusive lock.
func (c *RenderCache) Put(key, watched, text string) error {
	recordPath, lockPath := c.paths(key)

	mtime, err := fsutil.ModTime(watched)
	if err != nil {
		return fmt.Errorf("stat watched file: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}

	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock render cache: %w", err)
	}
	defer lock.Unlock()

	now := c.now()
	data, err := json.Marshal(renderRecord{
		Date:            now.Format(time.RFC3339),
		LastOutput:      text,
		LastUpdateTime:  now.Unix(),
		TranscriptPath:  watched,
		TranscriptMtime: mtime.UnixNano(),
	})
	if err != nil {
		return err
	}
	return renameio.WriteFile(recordPath, data, 0o600)
}

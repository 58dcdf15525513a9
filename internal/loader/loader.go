package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sdpower/ccusage-statusline-go/internal/logging"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	DefaultLookback = 12 * time.Hour
	logExt          = ".jsonl"
	maxLineSize     = 1024 * 1024
)

type Loader struct {
	lookback time.Duration
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Loader)

func WithLookback(d time.Duration) Option {
	return func(l *Loader) { l.lookback = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func New(opts ...Option) *Loader {
	l := &Loader{
		lookback: DefaultLookback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logging.OrNop(l.log)
	return l
}

// Load scans <root>/<project>/*.jsonl for every root and returns the usage
// events of recently modified files, deduplicated and ordered by timestamp.
// A root that cannot be listed is fatal; anything below it is skipped.
func (l *Loader) Load(ctx context.Context, roots []string) ([]types.UsageEvent, error) {
	cutoff := l.now().Add(-l.lookback)
	seen := make(map[string]struct{})
	var events []types.UsageEvent

	for _, root := range lo.Uniq(roots) {
		files, err := l.recentFiles(root, cutoff)
		if err != nil {
			return nil, err
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fileEvents, err := l.loadFile(path, seen)
			if err != nil {
				l.log.Debug("skipping unreadable log file", zap.String("path", path), zap.Error(err))
				continue
			}
			events = append(events, fileEvents...)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	l.log.Debug("loaded usage events", zap.Int("events", len(events)), zap.Int("roots", len(roots)))
	return events, nil
}

// recentFiles lists the log files under root whose mtime is after cutoff, in
// directory order.
func (l *Loader) recentFiles(root string, cutoff time.Time) ([]string, error) {
	projects, err := os.ReadDir(root)
	if err != nil {
		return nil, types.LoaderError{Path: root, Err: err}
	}

	var files []string
	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		projectPath := filepath.Join(root, project.Name())
		entries, err := os.ReadDir(projectPath)
		if err != nil {
			l.log.Debug("skipping unreadable project directory", zap.String("path", projectPath), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), logExt) {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().Before(cutoff) {
				continue
			}
			files = append(files, filepath.Join(projectPath, entry.Name()))
		}
	}
	return files, nil
}

func (l *Loader) loadFile(path string, seen map[string]struct{}) ([]types.UsageEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, types.LoaderError{Path: path, Err: err}
	}
	defer file.Close()

	var events []types.UsageEvent
	discarded := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		event, err := ParseLine([]byte(line))
		if err != nil {
			discarded++
			continue
		}

		if key := event.DedupKey(); key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		event.Source = path
		events = append(events, event)
	}

	if discarded > 0 {
		l.log.Debug("discarded log lines", zap.String("path", filepath.Base(path)), zap.Int("count", discarded))
	}

	// A line over the buffer limit stops the scan; keep what was read.
	if err := scanner.Err(); err != nil {
		l.log.Debug("log file scan stopped early", zap.String("path", path), zap.Error(err))
	}

	return events, nil
}

// logLine is the subset of a usage log line the statusline reads.
type logLine struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
	Message   *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *struct {
			InputTokens              *uint64 `json:"input_tokens"`
			OutputTokens             *uint64 `json:"output_tokens"`
			CacheCreationInputTokens uint64  `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     uint64  `json:"cache_read_input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

var (
	errNoUsage     = errors.New("missing message.usage")
	errNoTimestamp = errors.New("missing timestamp")
)

// ParseLine decodes one log line into a usage event. Lines without a
// zone-aware timestamp or without input/output token counts are rejected.
func ParseLine(data []byte) (types.UsageEvent, error) {
	var raw logLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.UsageEvent{}, types.ParseError{Err: err}
	}

	if raw.Timestamp == "" {
		return types.UsageEvent{}, types.ParseError{Err: errNoTimestamp}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return types.UsageEvent{}, types.ParseError{Err: fmt.Errorf("timestamp %q: %w", raw.Timestamp, err)}
	}

	if raw.Message == nil || raw.Message.Usage == nil ||
		raw.Message.Usage.InputTokens == nil || raw.Message.Usage.OutputTokens == nil {
		return types.UsageEvent{}, types.ParseError{Err: errNoUsage}
	}
	usage := raw.Message.Usage

	return types.UsageEvent{
		Timestamp: ts,
		Model:     raw.Message.Model,
		MessageID: raw.Message.ID,
		RequestID: raw.RequestID,
		Usage: types.TokenUsage{
			InputTokens:              *usage.InputTokens,
			OutputTokens:             *usage.OutputTokens,
			CacheCreationInputTokens: usage.CacheCreationInputTokens,
			CacheReadInputTokens:     usage.CacheReadInputTokens,
		},
	}, nil
}

// LatestFile returns the most recently modified log file below the roots.
func LatestFile(roots []string) (string, error) {
	var (
		latest    string
		latestMod time.Time
	)

	for _, root := range roots {
		projects, err := os.ReadDir(root)
		if err != nil {
			return "", types.LoaderError{Path: root, Err: err}
		}
		for _, project := range projects {
			if !project.IsDir() {
				continue
			}
			projectPath := filepath.Join(root, project.Name())
			entries, err := os.ReadDir(projectPath)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), logExt) {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}
				if latest == "" || info.ModTime().After(latestMod) {
					latest = filepath.Join(projectPath, entry.Name())
					latestMod = info.ModTime()
				}
			}
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no %s files found: %w", logExt, types.ErrDataNotFound)
	}
	return latest, nil
}

// LastContextTokens returns the context size (input plus both cache
// categories) of the last usage line in one transcript.
func LastContextTokens(path string) (uint64, bool) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	var (
		tokens uint64
		found  bool
	)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, err := ParseLine([]byte(line))
		if err != nil {
			continue
		}
		tokens = event.Usage.Context()
		found = true
	}
	return tokens, found
}

// DiscoverRoots resolves the directories holding per-project log folders.
// Configured roots use their projects/ subdirectory when it exists; with no
// configuration the two default locations under home are checked.
func DiscoverRoots(configured []string, home string) ([]string, error) {
	var candidates []string
	configured = lo.Filter(configured, func(dir string, _ int) bool {
		return strings.TrimSpace(dir) != ""
	})

	if len(configured) > 0 {
		for _, dir := range configured {
			dir = strings.TrimSpace(dir)
			projects := filepath.Join(dir, "projects")
			if isDir(projects) {
				candidates = append(candidates, projects)
			} else {
				candidates = append(candidates, dir)
			}
		}
	} else if home != "" {
		candidates = []string{
			filepath.Join(home, ".claude", "projects"),
			filepath.Join(home, ".config", "claude", "projects"),
		}
	}

	roots := lo.Uniq(lo.Filter(candidates, func(dir string, _ int) bool {
		return isDir(dir)
	}))
	if len(roots) == 0 {
		return nil, types.ErrNoDataDirs
	}
	return roots, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

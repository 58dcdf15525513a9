package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
)

const dirName = "ccusage-statusline"

// RenderPatterns match the files written by RenderCache.
var RenderPatterns = []string{"render-*.json", "render-*.lock"}

// Dir resolves the runtime cache directory and creates it if needed. An
// explicit override wins; otherwise the XDG runtime dir when it exists,
// then a per-user directory under the system temp dir.
func Dir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = defaultDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

func defaultDir() string {
	if info, err := os.Stat(xdg.RuntimeDir); err == nil && info.IsDir() {
		return filepath.Join(xdg.RuntimeDir, dirName)
	}
	return filepath.Join(os.TempDir(), dirName+"-"+strconv.Itoa(os.Getuid()))
}

// Clear removes the files in dir matching the render patterns and the given
// glob patterns, along with leftover temp files of each, and then dir itself
// if nothing else remains. Other files are left alone, so a cache directory
// shared with unrelated data is safe to clear. It returns how many files
// were removed.
func Clear(dir string, patterns ...string) (int, error) {
	if dir == "" || filepath.Clean(dir) == string(filepath.Separator) {
		return 0, fmt.Errorf("refusing to clear cache directory %q", dir)
	}

	var all []string
	for _, p := range append(append([]string{}, RenderPatterns...), patterns...) {
		all = append(all, p, "."+p+"*")
	}

	removed := 0
	for _, pattern := range all {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return removed, fmt.Errorf("bad cache file pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed++
		}
	}

	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return removed, nil
}

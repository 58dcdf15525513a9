package fsutil

import (
	"os"
	"strings"
	"time"
)

// ModTime returns the modification time of path.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// SanitizeFileComponent makes an arbitrary key safe to use as a file name.
func SanitizeFileComponent(v string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		" ", "_",
		"..", "_",
	)
	v = replacer.Replace(strings.TrimSpace(v))
	if v == "" {
		return "default"
	}
	return v
}

package statusline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sdpower/ccusage-statusline-go/internal/loader"
	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const (
	// CompactedContextLimit applies when auto-compact is on, since the
	// conversation is compacted before the nominal window fills.
	CompactedContextLimit uint64 = 155_000
	FullContextLimit      uint64 = 200_000
)

// ContextLimit reads autoCompactEnabled from ~/.claude.json. A missing or
// unreadable file counts as enabled.
func ContextLimit(home string) uint64 {
	if home == "" {
		return CompactedContextLimit
	}
	data, err := os.ReadFile(filepath.Join(home, ".claude.json"))
	if err != nil {
		return CompactedContextLimit
	}

	var cfg struct {
		AutoCompactEnabled *bool `json:"autoCompactEnabled"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CompactedContextLimit
	}
	if cfg.AutoCompactEnabled != nil && !*cfg.AutoCompactEnabled {
		return FullContextLimit
	}
	return CompactedContextLimit
}

// NewContextInfo relates a token count to limit, capped at 100%.
func NewContextInfo(tokens, limit uint64) types.ContextInfo {
	pct := 100.0
	if limit > 0 {
		pct = float64(tokens) / float64(limit) * 100
	}
	if pct > 100 {
		pct = 100
	}
	return types.ContextInfo{Tokens: tokens, Percentage: uint32(pct)}
}

// TranscriptContext computes the context info of a transcript; nil when
// the transcript holds no usage yet.
func TranscriptContext(transcript, home string) *types.ContextInfo {
	if transcript == "" {
		return nil
	}
	tokens, ok := loader.LastContextTokens(transcript)
	if !ok {
		return nil
	}
	info := NewContextInfo(tokens, ContextLimit(home))
	return &info
}

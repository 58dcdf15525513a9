package types

import (
	"time"
)

// TokenUsage holds the four token categories reported for one model call.
type TokenUsage struct {
	InputTokens              uint64 `json:"input_tokens"`
	OutputTokens             uint64 `json:"output_tokens"`
	CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     uint64 `json:"cache_read_input_tokens"`
}

// Billable is input + output; cache tokens are priced but not counted.
func (u TokenUsage) Billable() uint64 {
	return u.InputTokens + u.OutputTokens
}

// Context is the prompt size the model saw, including cached tokens.
func (u TokenUsage) Context() uint64 {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// UsageEvent is one logged model invocation read from a usage log line.
type UsageEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Model     string     `json:"model,omitempty"`
	MessageID string     `json:"message_id,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Usage     TokenUsage `json:"usage"`
	Source    string     `json:"-"`
}

// DedupKey returns "messageID:requestID", or "" when either id is missing.
// Events without a key are never treated as duplicates.
func (e UsageEvent) DedupKey() string {
	if e.MessageID == "" || e.RequestID == "" {
		return ""
	}
	return e.MessageID + ":" + e.RequestID
}

// HookData is the payload the host CLI pipes to the statusline on stdin.
type HookData struct {
	SessionID      string     `json:"session_id"`
	TranscriptPath string     `json:"transcript_path"`
	Model          ModelInfo  `json:"model"`
	Workspace      *Workspace `json:"workspace,omitempty"`
}

type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type Workspace struct {
	CurrentDir string `json:"current_dir"`
}

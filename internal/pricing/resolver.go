package pricing

import (
	"sort"
	"strings"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

// modelPrefixes are tried, in order, when the exact model name is not in the table.
var modelPrefixes = []string{"anthropic/", "claude-", "openai/"}

// Resolver maps a model identifier to its pricing entry.
type Resolver struct {
	models map[string]Entry
	// lowercase key -> table key; the lexicographically first key wins
	folded map[string]string
}

func NewResolver(models map[string]Entry) *Resolver {
	if models == nil {
		models = map[string]Entry{}
	}

	keys := make([]string, 0, len(models))
	for k := range models {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	folded := make(map[string]string, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(k)
		if _, exists := folded[lower]; !exists {
			folded[lower] = k
		}
	}

	return &Resolver{models: models, folded: folded}
}

// Lookup resolves model against the table: exact name, then each vendor
// prefix, then a case-insensitive match.
func (r *Resolver) Lookup(model string) (Entry, bool) {
	if model == "" {
		return Entry{}, false
	}

	if entry, ok := r.models[model]; ok {
		return entry, true
	}

	for _, prefix := range modelPrefixes {
		if entry, ok := r.models[prefix+model]; ok {
			return entry, true
		}
	}

	if key, ok := r.folded[strings.ToLower(model)]; ok {
		return r.models[key], true
	}

	return Entry{}, false
}

// Cost prices one usage event, falling back to the embedded table when the
// model can't be resolved.
func (r *Resolver) Cost(event types.UsageEvent) float64 {
	if entry, ok := r.Lookup(event.Model); ok {
		return entry.Cost(event.Usage)
	}
	return FallbackEntry(event.Model).Cost(event.Usage)
}

// Len returns the number of models in the loaded table.
func (r *Resolver) Len() int {
	return len(r.models)
}

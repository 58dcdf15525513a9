package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Element is one segment of the statusline.
type Element string

const (
	ElementModel           Element = "model"
	ElementBlockCost       Element = "block_cost"
	ElementTimeRemaining5h Element = "time_remaining_5h"
	ElementTimeRemaining7d Element = "time_remaining_7d"
	ElementBurnRate        Element = "burn_rate"
	ElementContext         Element = "context"
	ElementAPI5h           Element = "api_5h"
	ElementAPI7d           Element = "api_7d"
	ElementAPISonnet       Element = "api_sonnet"
	ElementDirectory       Element = "directory"
)

// AllElements lists every element in default display order.
func AllElements() []Element {
	return []Element{
		ElementModel,
		ElementBlockCost,
		ElementTimeRemaining5h,
		ElementTimeRemaining7d,
		ElementBurnRate,
		ElementContext,
		ElementAPI5h,
		ElementAPI7d,
		ElementDirectory,
	}
}

func (e Element) Valid() bool {
	return lo.Contains(AllElements(), e) || e == ElementAPISonnet
}

// Layout is the ordered list of enabled statusline elements.
type Layout struct {
	Elements []Element `yaml:"elements"`
}

func DefaultLayout() Layout {
	return Layout{Elements: AllElements()}
}

func (l Layout) Has(e Element) bool {
	return lo.Contains(l.Elements, e)
}

// LoadLayout reads the layout file. A missing file yields the default layout;
// unknown element names are dropped.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLayout(), nil
		}
		return DefaultLayout(), fmt.Errorf("reading layout: %w", err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return DefaultLayout(), fmt.Errorf("parsing layout %s: %w", path, err)
	}

	layout.Elements = lo.Uniq(lo.Filter(layout.Elements, func(e Element, _ int) bool {
		return e.Valid()
	}))
	return layout, nil
}

// SaveLayout writes the layout file atomically.
func SaveLayout(path string, layout Layout) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating layout dir: %w", err)
	}

	data, err := yaml.Marshal(layout)
	if err != nil {
		return fmt.Errorf("marshaling layout: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing layout: %w", err)
	}
	return nil
}

// ParseElements parses a comma-separated element list, rejecting unknown names.
func ParseElements(csv string) ([]Element, error) {
	var out []Element
	for _, part := range strings.Split(csv, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		e := Element(name)
		if !e.Valid() {
			return nil, fmt.Errorf("unknown element %q", name)
		}
		out = append(out, e)
	}
	return lo.Uniq(out), nil
}

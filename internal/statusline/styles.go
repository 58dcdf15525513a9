package statusline

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

var (
	colorLow  = colorful.Color{R: 0.13, G: 0.77, B: 0.37} // green
	colorHigh = colorful.Color{R: 0.94, G: 0.27, B: 0.27} // red
)

// Styles renders segment colors. The host CLI reads our stdout through a
// pipe, so the color profile is fixed instead of detected.
type Styles struct {
	renderer *lipgloss.Renderer
	noColor  bool
}

func NewStyles(w io.Writer, noColor bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	} else {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &Styles{renderer: r, noColor: noColor}
}

func (s *Styles) fg(color string, text string) string {
	if s.noColor {
		return text
	}
	return s.renderer.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

func (s *Styles) Green(text string) string  { return s.fg("2", text) }
func (s *Styles) Yellow(text string) string { return s.fg("3", text) }
func (s *Styles) Red(text string) string    { return s.fg("1", text) }

// Percent colors a context percentage by threshold.
func (s *Styles) Percent(pct uint32, text string) string {
	switch {
	case pct < 50:
		return s.Green(text)
	case pct < 70:
		return s.Yellow(text)
	default:
		return s.Red(text)
	}
}

// Utilization colors a 0-100 quota utilization on a green to red ramp.
func (s *Styles) Utilization(pct float64, text string) string {
	return s.fg(UtilizationColor(pct), text)
}

// UtilizationColor blends from green at 0% to red at 100%.
func UtilizationColor(pct float64) string {
	t := pct / 100
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return colorLow.BlendLab(colorHigh, t).Clamped().Hex()
}

// Package presenter renders search state as plain terminal text.
package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/charmbracelet/lipgloss"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

type palette struct {
	accent lipgloss.Color
	muted  lipgloss.Color
	err    lipgloss.Color
}

var palettes = map[string]palette{
	ThemeDark:  {accent: lipgloss.Color("86"), muted: lipgloss.Color("245"), err: lipgloss.Color("203")},
	ThemeLight: {accent: lipgloss.Color("25"), muted: lipgloss.Color("240"), err: lipgloss.Color("160")},
}

type styles struct {
	title   lipgloss.Style
	temp    lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
	loading lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[ThemeDark]
	}
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(p.accent),
		temp:    r.NewStyle().Bold(true),
		label:   r.NewStyle().Foreground(p.muted).Width(12),
		muted:   r.NewStyle().Foreground(p.muted),
		err:     r.NewStyle().Foreground(p.err),
		loading: r.NewStyle().Italic(true).Foreground(p.muted),
	}
}

// Terminal writes each render as a block of lines to out.
type Terminal struct {
	mu          sync.Mutex
	out         io.Writer
	styles      styles
	suggestions []models.Suggestion
}

func NewTerminal(out io.Writer, theme string) *Terminal {
	return &Terminal{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out), theme),
	}
}

func (t *Terminal) RenderWelcome(history []string) {
	var b strings.Builder
	b.WriteString(t.styles.title.Render("Weather lookup"))
	b.WriteString("\n")
	b.WriteString(t.styles.muted.Render("Type a city name to see current conditions."))
	b.WriteString("\n")
	if len(history) > 0 {
		b.WriteString(t.styles.label.Render("Recent"))
		b.WriteString(strings.Join(history, " · "))
		b.WriteString("\n")
	}
	t.write(b.String())
}

func (t *Terminal) RenderLoading() {
	t.write(t.styles.loading.Render("Loading weather…") + "\n")
}

func (t *Terminal) RenderResult(r *models.WeatherResult) {
	var b strings.Builder

	location := r.City
	if r.Country != "" {
		location += ", " + r.Country
	}
	b.WriteString(t.styles.title.Render(location))
	b.WriteString("\n")
	b.WriteString(t.styles.temp.Render(FormatTemperature(r.Temperature)))
	if r.Description != "" {
		b.WriteString("  " + r.Description)
	}
	b.WriteString("\n")

	t.line(&b, "Feels like", FormatTemperature(r.FeelsLike))
	if r.TempMin != nil && r.TempMax != nil {
		t.line(&b, "Low / High", FormatTemperature(*r.TempMin)+" / "+FormatTemperature(*r.TempMax))
	}
	t.line(&b, "Humidity", fmt.Sprintf("%.0f%%", r.Humidity))
	t.line(&b, "Wind", FormatWindSpeed(r.WindSpeed))
	if r.Pressure != nil {
		t.line(&b, "Pressure", fmt.Sprintf("%.0f hPa", *r.Pressure))
	}
	if r.Visibility != nil {
		t.line(&b, "Visibility", FormatVisibility(*r.Visibility))
	}
	if r.Clouds != nil {
		t.line(&b, "Clouds", fmt.Sprintf("%d%%", *r.Clouds))
	}
	if r.Sunrise != nil && r.Sunset != nil {
		offset := 0
		if r.Timezone != nil {
			offset = *r.Timezone
		}
		t.line(&b, "Sun", FormatLocalTime(*r.Sunrise, offset)+" – "+FormatLocalTime(*r.Sunset, offset))
	}

	t.write(b.String())
}

func (t *Terminal) RenderError(message string) {
	t.write(t.styles.err.Render("✗ "+message) + "\n")
}

func (t *Terminal) RenderSuggestions(suggestions []models.Suggestion) {
	t.mu.Lock()
	t.suggestions = append([]models.Suggestion(nil), suggestions...)
	t.mu.Unlock()

	var b strings.Builder
	for i, s := range suggestions {
		b.WriteString(t.styles.muted.Render(fmt.Sprintf("%d)", i+1)))
		b.WriteString(" " + s.Label() + "\n")
	}
	t.write(b.String())
}

func (t *Terminal) HideSuggestions() {
	t.mu.Lock()
	t.suggestions = nil
	t.mu.Unlock()
}

// Suggestion returns the n-th (1-based) suggestion currently on screen.
func (t *Terminal) Suggestion(n int) (models.Suggestion, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 1 || n > len(t.suggestions) {
		return models.Suggestion{}, false
	}
	return t.suggestions[n-1], true
}

// Println writes an unstyled line, used for prompts and command output.
func (t *Terminal) Println(text string) {
	t.write(text + "\n")
}

func (t *Terminal) line(b *strings.Builder, label, value string) {
	b.WriteString(t.styles.label.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func (t *Terminal) write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, s)
}

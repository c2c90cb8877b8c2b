// Package ui holds the lipgloss styles shared by the terminal front-end.
package ui

import (
	"regexp"
	"slices"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Name      string
	Accent    lipgloss.Style
	Dim       lipgloss.Style
	Text      lipgloss.Style
	Title     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Border    lipgloss.Style
	Highlight lipgloss.Style
}

// palette is the raw colors a theme is built from. The accent slot is
// replaced by the user's library accent when one is set.
type palette struct {
	accent, dim, text, title, err, success, warning, border string
}

var palettes = map[string]palette{
	"rainbow": {
		accent: "#1db954", dim: "#6C6F93", text: "#E6E6FA", title: "#8EEBFF",
		err: "#FF5F56", success: "#5CFF5C", warning: "#FFD166", border: "#7C7CFF",
	},
	"mono": {
		accent: "#FFFFFF", dim: "#666666", text: "#CCCCCC", title: "#FFFFFF",
		err: "#FFFFFF", success: "#CCCCCC", warning: "#AAAAAA", border: "#888888",
	},
	"green": {
		accent: "#00FF00", dim: "#005500", text: "#00CC00", title: "#00FF00",
		err: "#00FF00", success: "#00FF00", warning: "#00CC00", border: "#008800",
	},
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ThemeNames returns the list of available theme names.
func ThemeNames() []string {
	names := []string{"nocolor"}
	for name := range palettes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidTheme returns true if the theme name is valid.
func ValidTheme(name string) bool {
	_, ok := palettes[name]
	return ok || name == "nocolor"
}

// ValidAccent reports whether s is a #rgb or #rrggbb color.
func ValidAccent(s string) bool {
	return hexColor.MatchString(s)
}

// GetTheme returns a theme by name with accent applied to the accent and
// highlight slots. Unknown names fall back to rainbow; an invalid accent keeps
// the palette's own. noColor overrides everything.
func GetTheme(name, accent string, noColor bool) Theme {
	if noColor || name == "nocolor" {
		return NoColor()
	}
	p, ok := palettes[name]
	if !ok {
		name, p = "rainbow", palettes["rainbow"]
	}
	if ValidAccent(accent) {
		p.accent = accent
	}
	return build(name, p)
}

func build(name string, p palette) Theme {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return Theme{
		Name:      name,
		Accent:    fg(p.accent).Bold(true),
		Dim:       fg(p.dim),
		Text:      fg(p.text),
		Title:     fg(p.title).Bold(true),
		Error:     fg(p.err).Bold(true),
		Success:   fg(p.success).Bold(true),
		Warning:   fg(p.warning).Bold(true),
		Border:    fg(p.border),
		Highlight: fg(p.accent).Bold(true).Reverse(true),
	}
}

// NoColor is a high-contrast theme for NO_COLOR environments.
// Uses only bold, underline, and reverse instead of colors.
func NoColor() Theme {
	reset := lipgloss.NewStyle()
	return Theme{
		Name:      "nocolor",
		Accent:    reset.Bold(true),
		Dim:       reset,
		Text:      reset,
		Title:     reset.Bold(true),
		Error:     reset.Bold(true).Underline(true),
		Success:   reset.Bold(true),
		Warning:   reset.Bold(true),
		Border:    reset,
		Highlight: reset.Reverse(true),
	}
}

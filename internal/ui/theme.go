package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	Background string
	Surface    string
	SurfaceAlt string

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Glamour is the markdown style used for blog content.
	Glamour string

	// StatusColors colour record statuses and toast kinds.
	StatusColors map[string]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Surface lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Card     lipgloss.Style
	Title    lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style

	statusColors map[string]string
	background   string
	muted        string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		Text:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		InfoText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		TabOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Background)).
			Background(lipgloss.Color(t.Accent)).
			Bold(true).
			Padding(0, 1),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for a record status or toast kind.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themes = map[string]Theme{
	"Circuit":   circuitTheme(),
	"Blueprint": blueprintTheme(),
	"Datasheet": datasheetTheme(),
}

var themeOrder = []string{"Circuit", "Blueprint", "Datasheet"}

// GetTheme returns a theme by name, Circuit when unknown.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return circuitTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func statusColors(success, warning, danger, info, accent, muted string) map[string]string {
	return map[string]string{
		"published":   success,
		"draft":       muted,
		"new":         info,
		"read":        muted,
		"replied":     success,
		"archived":    muted,
		"upcoming":    info,
		"ongoing":     warning,
		"completed":   success,
		"In Progress": warning,
		"Planned":     info,
		"Completed":   success,
		"featured":    accent,
		"success":     success,
		"error":       danger,
		"info":        info,
		"warning":     warning,
	}
}

func circuitTheme() Theme {
	// Solder mask green with copper highlights.
	return Theme{
		Name:          "Circuit",
		Background:    "#0b1410",
		Surface:       "#12211a",
		SurfaceAlt:    "#1a2e24",
		SelectionBg:   "#1f3d2f",
		SelectionText: "#e6f2ea",
		Border:        "#2f5240",
		BorderFocus:   "#d9a15b",
		Text:          "#d8e6dd",
		Muted:         "#7f9a8b",
		Faint:         "#5d7568",
		Accent:        "#d9a15b",
		Success:       "#6fcf97",
		Warning:       "#f2c94c",
		Danger:        "#eb5757",
		Info:          "#56ccf2",
		Glamour:       "dark",
		StatusColors:  statusColors("#6fcf97", "#f2c94c", "#eb5757", "#56ccf2", "#d9a15b", "#7f9a8b"),
	}
}

func blueprintTheme() Theme {
	return Theme{
		Name:          "Blueprint",
		Background:    "#0d1b2a",
		Surface:       "#1b263b",
		SurfaceAlt:    "#24324a",
		SelectionBg:   "#2c3e5c",
		SelectionText: "#e0e1dd",
		Border:        "#415a77",
		BorderFocus:   "#8ecae6",
		Text:          "#e0e1dd",
		Muted:         "#8d99ae",
		Faint:         "#6c7a91",
		Accent:        "#8ecae6",
		Success:       "#90be6d",
		Warning:       "#f9c74f",
		Danger:        "#f94144",
		Info:          "#4cc9f0",
		Glamour:       "dracula",
		StatusColors:  statusColors("#90be6d", "#f9c74f", "#f94144", "#4cc9f0", "#8ecae6", "#8d99ae"),
	}
}

func datasheetTheme() Theme {
	// Light theme for bright terminals.
	return Theme{
		Name:          "Datasheet",
		Background:    "#fafaf7",
		Surface:       "#efefe9",
		SurfaceAlt:    "#e4e4dc",
		SelectionBg:   "#d6e4f0",
		SelectionText: "#1d1d1b",
		Border:        "#b8b8ad",
		BorderFocus:   "#1f6feb",
		Text:          "#1d1d1b",
		Muted:         "#6b6b63",
		Faint:         "#8c8c83",
		Accent:        "#1f6feb",
		Success:       "#1a7f37",
		Warning:       "#9a6700",
		Danger:        "#cf222e",
		Info:          "#0969da",
		Glamour:       "light",
		StatusColors:  statusColors("#1a7f37", "#9a6700", "#cf222e", "#0969da", "#1f6feb", "#6b6b63"),
	}
}

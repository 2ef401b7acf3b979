package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/flightbook/flightlog/internal/listview"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background string // Outermost background
	Surface    string // Header and command bar
	SurfaceAlt string // Panels
	FocusBg    string // Modals and the focused panel

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

	// PhaseColors colors the list phase badge.
	PhaseColors map[listview.Phase]string
	// LevelColors colors log levels in the log pane.
	LevelColors map[string]string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		phaseColors: t.PhaseColors,
		levelColors: t.LevelColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
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

	phaseColors map[listview.Phase]string
	levelColors map[string]string
	background  string
	muted       string
}

// PhaseStyle returns the badge style for a list phase.
func (s Styles) PhaseStyle(p listview.Phase) lipgloss.Style {
	color := s.phaseColors[p]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// LevelStyle returns the style for a log level such as "WARN".
func (s Styles) LevelStyle(level string) lipgloss.Style {
	color := s.levelColors[level]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}

// WithBackground returns a copy of Styles whose text styles carry bgColor.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	out.Text = s.Text.Background(bg)
	out.MutedText = s.MutedText.Background(bg)
	out.FaintText = s.FaintText.Background(bg)
	out.AccentText = s.AccentText.Background(bg)
	out.SuccessText = s.SuccessText.Background(bg)
	out.WarningText = s.WarningText.Background(bg)
	out.DangerText = s.DangerText.Background(bg)
	out.InfoText = s.InfoText.Background(bg)
	out.Logo = s.Logo.Background(bg)
	return out
}

var themes = map[string]Theme{
	"Alpine": alpineTheme(),
	"Dusk":   duskTheme(),
	"Mono":   monoTheme(),
}

var themeOrder = []string{"Alpine", "Dusk", "Mono"}

// GetTheme returns a theme by name, falling back to Alpine.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return alpineTheme()
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
	return append([]string(nil), themeOrder...)
}

func alpineTheme() Theme {
	// Tailwind slate/sky palette
	return Theme{
		Name: "Alpine",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		FocusBg:    "#283548",

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9",
		Muted:   "#94a3b8",
		Faint:   "#64748b",
		Accent:  "#38bdf8",
		Success: "#22c55e",
		Warning: "#f59e0b",
		Danger:  "#ef4444",
		Info:    "#06b6d4",

		PhaseColors: map[listview.Phase]string{
			listview.PhaseIdle:               "#64748b",
			listview.PhaseLoadingInitial:     "#38bdf8",
			listview.PhaseLoadingIncremental: "#06b6d4",
			listview.PhaseReadyHasMore:       "#22c55e",
			listview.PhaseReadyExhausted:     "#6366f1",
		},
		LevelColors: map[string]string{
			"DEBUG": "#06b6d4",
			"INFO":  "#22c55e",
			"WARN":  "#f59e0b",
			"ERROR": "#ef4444",
		},
	}
}

func duskTheme() Theme {
	// Dracula palette
	return Theme{
		Name: "Dusk",

		Background: "#191A21",
		Surface:    "#282A36",
		SurfaceAlt: "#21222C",
		FocusBg:    "#343746",

		SelectionBg:   "#44475A",
		SelectionText: "#F8F8F2",

		Border:      "#44475A",
		BorderFocus: "#BD93F9",

		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Faint:   "#44475A",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#FFB86C",
		Danger:  "#FF5555",
		Info:    "#8BE9FD",

		PhaseColors: map[listview.Phase]string{
			listview.PhaseIdle:               "#6272A4",
			listview.PhaseLoadingInitial:     "#8BE9FD",
			listview.PhaseLoadingIncremental: "#FF79C6",
			listview.PhaseReadyHasMore:       "#50FA7B",
			listview.PhaseReadyExhausted:     "#BD93F9",
		},
		LevelColors: map[string]string{
			"DEBUG": "#8BE9FD",
			"INFO":  "#50FA7B",
			"WARN":  "#FFB86C",
			"ERROR": "#FF5555",
		},
	}
}

func monoTheme() Theme {
	return Theme{
		Name: "Mono",

		Background: "#000000",
		Surface:    "#111111",
		SurfaceAlt: "#1a1a1a",
		FocusBg:    "#262626",

		SelectionBg:   "#e5e5e5",
		SelectionText: "#000000",

		Border:      "#404040",
		BorderFocus: "#e5e5e5",

		Text:    "#e5e5e5",
		Muted:   "#a3a3a3",
		Faint:   "#525252",
		Accent:  "#ffffff",
		Success: "#d4d4d4",
		Warning: "#d4d4d4",
		Danger:  "#ffffff",
		Info:    "#a3a3a3",

		PhaseColors: map[listview.Phase]string{},
		LevelColors: map[string]string{"ERROR": "#ffffff"},
	}
}

package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the color scheme of the app. Both palettes are persisted only
// by name ("light"/"dark") under the theme key.
type Theme struct {
	Name string

	Title      lipgloss.Color
	Accent     lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Processing lipgloss.Color
	Border     lipgloss.Color
}

var lightTheme = Theme{
	Name:       "light",
	Title:      lipgloss.Color("#1F4E8C"),
	Accent:     lipgloss.Color("#0087AF"),
	Text:       lipgloss.Color("#262626"),
	Muted:      lipgloss.Color("#8A8A8A"),
	Success:    lipgloss.Color("#008744"),
	Error:      lipgloss.Color("#D70000"),
	Processing: lipgloss.Color("#AF8700"),
	Border:     lipgloss.Color("#C6C6C6"),
}

var darkTheme = Theme{
	Name:       "dark",
	Title:      lipgloss.Color("#5FAFD7"),
	Accent:     lipgloss.Color("#00AFD7"),
	Text:       lipgloss.Color("#DADADA"),
	Muted:      lipgloss.Color("#6C6C6C"),
	Success:    lipgloss.Color("#00D787"),
	Error:      lipgloss.Color("#FF005F"),
	Processing: lipgloss.Color("#FFD700"),
	Border:     lipgloss.Color("#3A3A3A"),
}

// themeByName resolves a persisted theme name, defaulting to light.
func themeByName(name string) Theme {
	if name == "dark" {
		return darkTheme
	}
	return lightTheme
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) tabStyle(active bool) lipgloss.Style {
	if active {
		return lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true)
	}
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) textStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text)
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) processingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Processing)
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) boxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

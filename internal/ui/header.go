package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{
		bg.Render("flightlog", styles.Logo),
		styles.PhaseStyle(m.view.Phase).Render(m.view.Phase.String()),
		bg.Render(fmt.Sprintf("%d flights", len(m.view.Flights)), styles.Text),
	}
	if m.view.FilterActive {
		label := "filtered"
		if m.view.Filter != nil {
			label = "filter: " + truncate(m.view.Filter.String(), 40)
		}
		parts = append(parts, bg.Render(label, styles.WarningText))
	}
	if m.view.Exporting {
		parts = append(parts, bg.Render(m.spinner.View()+" exporting", styles.InfoText))
	}
	parts = append(parts, bg.Render(string(m.environment), styles.FaintText))

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar shows the most recent status message or the key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var content string
	if m.status != "" {
		style := styles.SuccessText
		if m.statusErr {
			style = styles.DangerText
		}
		content = bg.Render(truncate(m.status, m.width-4), style)
	} else {
		k := m.keys
		hints := make([]string, 0, 8)
		for _, b := range []struct{ key, desc string }{
			{k.Filter.Help().Key, "filter"},
			{k.Reload.Help().Key, "reload"},
			{k.ExportXLSX.Help().Key, "xlsx"},
			{k.ExportPDF.Help().Key, "pdf"},
			{k.ToggleLog.Help().Key, "log"},
			{k.Help.Help().Key, "help"},
			{k.Quit.Help().Key, "quit"},
		} {
			hints = append(hints, bg.Render(b.key, styles.WarningText)+bg.Spaces(1)+bg.Render(b.desc, styles.MutedText))
		}
		content = bg.Join(hints, "  ")
	}
	return styles.Footer.Width(m.width).Render(content)
}

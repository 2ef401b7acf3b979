package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flightbook/flightlog/internal/logtail"
)

const (
	logPaneHeight  = 10
	logBufferLimit = 500
)

// logLinesMsg carries log lines; replace swaps the buffer instead of
// appending.
type logLinesMsg struct {
	lines   []string
	err     error
	replace bool
}

func loadLogCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logBufferLimit)
		return logLinesMsg{lines: lines, err: err, replace: true}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logErr = msg.err
		return
	}
	m.logErr = nil
	if msg.replace {
		m.logLines = append([]string(nil), msg.lines...)
	} else {
		m.logLines = append(m.logLines, msg.lines...)
	}
	if over := len(m.logLines) - logBufferLimit; over > 0 {
		m.logLines = append([]string(nil), m.logLines[over:]...)
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(0, 0)
	}
	m.logViewport.Width = m.width - 2
	m.logViewport.Height = logPaneHeight - 2
	follow := m.logViewport.AtBottom()

	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	rendered := make([]string, 0, len(m.logLines))
	for _, line := range m.logLines {
		rendered = append(rendered, formatLogLine(line, styles))
	}
	m.logViewport.SetContent(strings.Join(rendered, "\n"))
	if follow || m.logViewport.YOffset == 0 {
		m.logViewport.GotoBottom()
	}
}

// formatLogLine colors a slog text line: time, level, component, message,
// then the remaining attributes.
func formatLogLine(line string, styles Styles) string {
	e := logtail.Parse(line)
	if e.Level == "" && e.Time == "" {
		return styles.Text.Render(e.Message)
	}
	parts := make([]string, 0, 4+len(e.Attrs))
	if t := e.ShortTime(); t != "" {
		parts = append(parts, styles.FaintText.Render(t))
	}
	if e.Level != "" {
		parts = append(parts, styles.LevelStyle(e.Level).Render(padRight(e.Level, 5)))
	}
	if e.Component != "" {
		parts = append(parts, styles.AccentText.Render("["+e.Component+"]"))
	}
	parts = append(parts, styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		parts = append(parts, styles.MutedText.Render(a.Key+"=")+styles.Text.Render(a.Value))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderLogPane() string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	content := m.logViewport.View()
	switch {
	case m.logErr != nil:
		content = styles.DangerText.Render(m.logErr.Error())
	case len(m.logLines) == 0:
		content = styles.MutedText.Render("no log output yet")
	}
	title := "Log"
	if m.logPath != "" {
		title = "Log " + truncateMiddle(m.logPath, 60)
	}
	return m.renderTitledBox(title, content, m.width, logPaneHeight, false)
}

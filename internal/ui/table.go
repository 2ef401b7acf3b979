package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/listview"
)

// nearEndRows is how close to the last row the cursor must be before the
// next page is requested.
const nearEndRows = 5

// Fixed column widths; Description takes the remaining space.
var flightColumnWidths = []struct {
	title string
	width int
}{
	{"#", 5},
	{"Date", 10},
	{"Time", 5},
	{"Glider", 18},
	{"Start", 14},
	{"Landing", 14},
	{"Duration", 8},
	{"km", 6},
}

func flightColumns(width int) []table.Column {
	cols := make([]table.Column, 0, len(flightColumnWidths)+1)
	used := 0
	for _, c := range flightColumnWidths {
		cols = append(cols, table.Column{Title: c.title, Width: c.width})
		used += c.width + 2
	}
	desc := width - used - 2
	if desc < 10 {
		desc = 10
	}
	return append(cols, table.Column{Title: "Description", Width: desc})
}

func flightRows(flights []flightbook.Flight) []table.Row {
	rows := make([]table.Row, 0, len(flights))
	for _, f := range flights {
		km := ""
		if f.KM > 0 {
			km = strconv.FormatFloat(f.KM, 'f', 1, 64)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(f.Number),
			f.DisplayDate(),
			f.DisplayTime(),
			f.Glider.Label(),
			f.Start.Name,
			f.Landing.Name,
			f.Duration,
			km,
			f.Description,
		})
	}
	return rows
}

func tableStyles(t Theme) table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(lipgloss.Color(t.Muted)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(t.Border)).
		BorderBottom(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(t.Text))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(t.SelectionText)).
		Background(lipgloss.Color(t.SelectionBg)).
		Bold(false)
	return s
}

func newFlightTable(t Theme) table.Model {
	return table.New(
		table.WithColumns(flightColumns(120)),
		table.WithFocused(true),
		table.WithStyles(tableStyles(t)),
	)
}

// applyView replaces the table rows, keeping the cursor on the same index.
func (m *Model) applyView(v listview.View) {
	m.view = v
	cursor := m.table.Cursor()
	m.table.SetRows(flightRows(v.Flights))
	if n := len(v.Flights); n == 0 {
		m.table.SetCursor(0)
	} else if cursor >= n {
		m.table.SetCursor(n - 1)
	}
}

// nearEnd reports whether the cursor is within nearEndRows of the last row,
// or the whole list fits on screen.
func (m Model) nearEnd() bool {
	n := len(m.table.Rows())
	if n == 0 {
		return false
	}
	if n <= m.tableHeight() {
		return true
	}
	return m.table.Cursor() >= n-nearEndRows
}

// wantsMore reports whether scrolling should request the next page.
func (m Model) wantsMore() bool {
	return m.ready &&
		!m.scrollPending &&
		m.view.Phase == listview.PhaseReadyHasMore &&
		!m.view.ScrollDisabled &&
		m.nearEnd()
}

func (m Model) listHeight() int {
	h := m.height - 2
	if m.showLog {
		h -= logPaneHeight
	}
	if h < 5 {
		h = 5
	}
	return h
}

// tableHeight is the table height inside the list box, which also holds a
// border and a footer line.
func (m Model) tableHeight() int {
	return m.listHeight() - 3
}

func (m *Model) resizeTable() {
	m.table.SetColumns(flightColumns(m.width - 2))
	m.table.SetWidth(m.width - 2)
	m.table.SetHeight(m.tableHeight())
}

// renderList renders the flight table box.
func (m Model) renderList() string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)

	title := "Flights"
	if m.view.FilterActive && m.view.Filter != nil {
		title = fmt.Sprintf("Flights (%s)", m.view.Filter.String())
	}

	var footer string
	switch m.view.Phase {
	case listview.PhaseLoadingInitial:
		footer = styles.InfoText.Render(m.spinner.View() + " loading flights")
	case listview.PhaseLoadingIncremental:
		footer = styles.InfoText.Render(m.spinner.View() + " loading more")
	case listview.PhaseReadyExhausted:
		footer = styles.FaintText.Render(fmt.Sprintf("end of logbook, %d flights", len(m.view.Flights)))
	case listview.PhaseReadyHasMore:
		footer = styles.FaintText.Render(fmt.Sprintf("%d flights loaded, scroll for more", len(m.view.Flights)))
	default:
		footer = styles.MutedText.Render("no flights loaded, press r to reload")
	}

	content := m.table.View() + "\n" + footer
	return m.renderTitledBox(title, content, m.width, m.listHeight(), !m.showFilter)
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flightbook/flightlog/internal/flightbook"
)

const (
	fieldFrom = iota
	fieldTo
	fieldGlider
	fieldStart
	fieldLanding
	fieldDescription
	fieldCount
)

var filterLabels = [fieldCount]string{"From", "To", "Glider", "Start", "Landing", "Description"}

// filterForm is the filter modal.
type filterForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

// filterInput is the raw text of the filter form.
type filterInput struct {
	From, To, Glider, Start, Landing, Description string
}

func newFilterForm(current *flightbook.Filter, gliderLabel string) filterForm {
	var f filterForm
	placeholders := [fieldCount]string{"YYYY-MM-DD", "YYYY-MM-DD", "brand name", "takeoff", "landing", "text"}
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[i]
		in.CharLimit = 64
		in.Width = 30
		f.inputs[i] = in
	}
	if current != nil {
		if !current.From.IsZero() {
			f.inputs[fieldFrom].SetValue(current.From.Format("2006-01-02"))
		}
		if !current.To.IsZero() {
			f.inputs[fieldTo].SetValue(current.To.Format("2006-01-02"))
		}
		f.inputs[fieldGlider].SetValue(gliderLabel)
		f.inputs[fieldStart].SetValue(current.Start)
		f.inputs[fieldLanding].SetValue(current.Landing)
		f.inputs[fieldDescription].SetValue(current.Description)
	}
	f.inputs[0].Focus()
	return f
}

func (f filterForm) update(msg tea.KeyMsg, keys keyMap) (filterForm, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.NextField):
		return f.move(1), nil
	case key.Matches(msg, keys.PrevField):
		return f.move(-1), nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f filterForm) move(delta int) filterForm {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
	return f
}

func (f filterForm) values() filterInput {
	v := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	return filterInput{
		From:        v(fieldFrom),
		To:          v(fieldTo),
		Glider:      v(fieldGlider),
		Start:       v(fieldStart),
		Landing:     v(fieldLanding),
		Description: v(fieldDescription),
	}
}

// criteria converts the form text into filter criteria. The glider label is
// resolved separately because it needs the glider list.
func (in filterInput) criteria() (*flightbook.Filter, error) {
	var f flightbook.Filter
	var err error
	if in.From != "" {
		if f.From, err = flightbook.ParseDate(in.From); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	if in.To != "" {
		if f.To, err = flightbook.ParseDate(in.To); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, fmt.Errorf("to date %s is before from date %s", in.To, in.From)
	}
	f.Start = in.Start
	f.Landing = in.Landing
	f.Description = in.Description
	return &f, nil
}

// gliderLabel finds the label of the filtered glider among loaded flights.
func gliderLabel(filter *flightbook.Filter, flights []flightbook.Flight) string {
	if filter == nil || filter.GliderID == 0 {
		return ""
	}
	for _, f := range flights {
		if f.Glider.ID == filter.GliderID {
			return f.Glider.Label()
		}
	}
	return ""
}

// renderFilterForm renders the filter modal.
func (m Model) renderFilterForm() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Filter flights"))
	b.WriteString("\n\n")
	for i, in := range m.filter.inputs {
		label := padRight(filterLabels[i], 13)
		if i == m.filter.focus {
			b.WriteString(styles.AccentText.Bold(true).Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab next · enter apply · esc cancel · empty form clears"))
	return m.renderModal(b.String(), m.theme.BorderFocus, 56)
}

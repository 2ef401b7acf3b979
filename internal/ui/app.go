package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/listview"
	"github.com/flightbook/flightlog/internal/logtail"
	"github.com/flightbook/flightlog/internal/prefs"
)

// GliderResolver maps a glider label typed in the filter form to a glider.
// *flightbook.GliderCache implements it.
type GliderResolver interface {
	Resolve(ctx context.Context, label string) (flightbook.Glider, error)
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	List        *listview.Controller
	Gliders     GliderResolver
	Bridge      *Bridge
	Environment export.Environment
	LogPath     string
	Prefs       prefs.Prefs
	PrefsPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx         context.Context
	list        *listview.Controller
	gliders     GliderResolver
	environment export.Environment
	prefs       prefs.Prefs
	prefsPath   string
	logPath     string

	theme  Theme
	keys   keyMap
	width  int
	height int
	ready  bool

	view          listview.View
	table         table.Model
	spinner       spinner.Model
	scrollPending bool

	loading     bool
	exporting   bool
	loadingText string
	alert       *alertMsg
	status      string
	statusErr   bool

	showHelp   bool
	showFilter bool
	filter     filterForm

	showLog     bool
	logViewport viewport.Model
	logLines    []string
	logErr      error
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	env := opts.Environment
	if env == "" {
		env = export.EnvironmentNative
	}
	theme := GetTheme(p.Theme)

	return Model{
		ctx:         ctx,
		list:        opts.List,
		gliders:     opts.Gliders,
		environment: env,
		prefs:       p,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		theme:       theme,
		keys:        DefaultKeyMap(),
		table:       newFlightTable(theme),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		showLog:     p.ShowLog,
		logViewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.list != nil {
		cmds = append(cmds, activateCmd(m.ctx, m.list))
	}
	if cmd := loadLogCmd(m.logPath); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeTable()
		m.updateLogViewport()
		cmd := m.maybeLoadMore()
		return m, cmd

	case viewMsg:
		m.applyView(listview.View(msg))
		cmd := m.maybeLoadMore()
		return m, cmd

	case indicatorMsg:
		if msg.export {
			m.exporting = msg.visible
		} else {
			m.loading = msg.visible
		}
		if msg.visible {
			m.loadingText = msg.text
		}
		return m, nil

	case alertMsg:
		m.alert = &msg
		return m, nil

	case loadedMsg:
		if msg.op == opScroll {
			m.scrollPending = false
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) && !errors.Is(msg.err, listview.ErrInactive) {
			m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err), true)
			return m, nil
		}
		if msg.op == opFilter {
			m.setStatus("", false)
		}
		cmd := m.maybeLoadMore()
		return m, cmd

	case exportedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s export failed: %v", msg.format, msg.err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("exported %d flights to %s", msg.res.Flights, msg.res.Location.URI), false)
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	switch {
	case m.busy():
		return m.renderLoading()
	case m.alert != nil:
		return m.renderAlert()
	case m.showHelp:
		return m.renderHelp()
	case m.showFilter:
		return m.renderFilterForm()
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	if m.showLog {
		b.WriteString("\n")
		b.WriteString(m.renderLogPane())
	}
	return b.String()
}

// busy reports whether a list load or an export holds the overlay.
func (m Model) busy() bool {
	return m.loading || m.exporting
}

func (m Model) renderLoading() string {
	styles := m.theme.Styles()
	text := m.loadingText
	if text == "" {
		text = listview.English.Translate(listview.KeyLoading)
	}
	return m.renderModal(styles.InfoText.Render(m.spinner.View()+" "+text), m.theme.Info, 30)
}

func (m Model) renderAlert() string {
	styles := m.theme.Styles()
	content := styles.WarningText.Bold(true).Render(m.alert.title) + "\n\n" +
		styles.Text.Render(m.alert.message) + "\n\n" +
		styles.FaintText.Render("press any key")
	return m.renderModal(content, m.theme.Warning, 50)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// The loading overlay blocks input until it is dismissed.
	if m.busy() {
		return m, nil
	}
	if m.alert != nil {
		m.alert = nil
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showFilter {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.setStatus("", false)
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(tableStyles(m.theme))
		m.updateLogViewport()
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		m.resizeTable()
		m.updateLogViewport()
		m.prefs.ShowLog = m.showLog
		m.savePrefs()
		cmd := m.maybeLoadMore()
		return m, cmd
	case key.Matches(msg, m.keys.Filter):
		m.filter = newFilterForm(m.view.Filter, gliderLabel(m.view.Filter, m.view.Flights))
		m.showFilter = true
		return m, textinput.Blink
	case key.Matches(msg, m.keys.ClearFilter):
		if !m.view.FilterActive {
			return m, nil
		}
		return m, filterCmd(m.ctx, m.list, m.gliders, nil, "")
	case key.Matches(msg, m.keys.Reload):
		return m, reloadCmd(m.ctx, m.list)
	case key.Matches(msg, m.keys.ExportXLSX):
		return m.startExport(export.FormatXLSX)
	case key.Matches(msg, m.keys.ExportPDF):
		return m.startExport(export.FormatPDF)
	case key.Matches(msg, m.keys.Export):
		format, err := export.ParseFormat(m.prefs.ExportFormat)
		if err != nil {
			format = export.FormatXLSX
		}
		return m.startExport(format)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	more := m.maybeLoadMore()
	return m, tea.Batch(cmd, more)
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.showFilter = false
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		in := m.filter.values()
		criteria, err := in.criteria()
		if err != nil {
			m.alert = &alertMsg{title: "Filter", message: err.Error()}
			return m, nil
		}
		m.showFilter = false
		m.setStatus("applying filter", false)
		return m, filterCmd(m.ctx, m.list, m.gliders, criteria, in.Glider)
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.update(msg, m.keys)
	return m, cmd
}

func (m Model) startExport(format export.Format) (tea.Model, tea.Cmd) {
	if m.view.Exporting {
		return m, nil
	}
	if m.prefs.ExportFormat != string(format) {
		m.prefs.ExportFormat = string(format)
		m.savePrefs()
	}
	m.setStatus(fmt.Sprintf("exporting %s", format), false)
	return m, exportCmd(m.ctx, m.list, format)
}

// maybeLoadMore requests the next page when the cursor nears the end.
func (m *Model) maybeLoadMore() tea.Cmd {
	if m.list == nil || !m.wantsMore() {
		return nil
	}
	m.scrollPending = true
	return scrollCmd(m.ctx, m.list)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.setStatus("save preferences: "+err.Error(), true)
	}
}

// Messages

type viewMsg listview.View

type indicatorMsg struct {
	export  bool
	visible bool
	text    string
}

type alertMsg struct {
	title   string
	message string
}

const (
	opActivate = "load"
	opScroll   = "load more"
	opFilter   = "filter"
	opReload   = "reload"
)

type loadedMsg struct {
	op  string
	err error
}

type exportedMsg struct {
	format export.Format
	res    export.Result
	err    error
}

// Commands

func activateCmd(ctx context.Context, list *listview.Controller) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{op: opActivate, err: list.Activate(ctx)}
	}
}

func scrollCmd(ctx context.Context, list *listview.Controller) tea.Cmd {
	return func() tea.Msg {
		_, err := list.ScrollNearEnd(ctx)
		return loadedMsg{op: opScroll, err: err}
	}
}

func reloadCmd(ctx context.Context, list *listview.Controller) tea.Cmd {
	if list == nil {
		return nil
	}
	return func() tea.Msg {
		return loadedMsg{op: opReload, err: list.Reload(ctx)}
	}
}

func filterCmd(ctx context.Context, list *listview.Controller, gliders GliderResolver, criteria *flightbook.Filter, glider string) tea.Cmd {
	if list == nil {
		return nil
	}
	return func() tea.Msg {
		if criteria != nil && glider != "" {
			if gliders == nil {
				return loadedMsg{op: opFilter, err: errors.New("glider lookup is not available")}
			}
			g, err := gliders.Resolve(ctx, glider)
			if err != nil {
				return loadedMsg{op: opFilter, err: fmt.Errorf("glider %q: %w", glider, err)}
			}
			criteria.GliderID = g.ID
		}
		return loadedMsg{op: opFilter, err: list.ToggleFilter(ctx, criteria)}
	}
}

func exportCmd(ctx context.Context, list *listview.Controller, format export.Format) tea.Cmd {
	if list == nil {
		return nil
	}
	return func() tea.Msg {
		res, err := list.Export(ctx, format)
		return exportedMsg{format: format, res: res, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits. The list view
// is deactivated on exit.
func Run(opts Options) error {
	if opts.List == nil {
		return errors.New("ui: list view controller is required")
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	opts.Context = ctx

	bridge := opts.Bridge
	if bridge == nil {
		bridge = NewBridge()
	}
	stopViews := opts.List.Subscribe(bridge.View)
	defer stopViews()
	defer opts.List.Deactivate()

	if opts.LogPath != "" {
		logtail.Watch(ctx, logtail.NewFollower(opts.LogPath), time.Second, func(lines []string, err error) {
			bridge.send(logLinesMsg{lines: lines, err: err})
		})
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	go bridge.attach(p)
	defer bridge.detach()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && parent.Err() != nil {
		return nil
	}
	return err
}

package listview

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/filter"
	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/paging"
	"github.com/flightbook/flightlog/internal/state"
)

// ErrInactive is returned by operations that need an active view.
var ErrInactive = errors.New("list view is not active")

// Phase is the list state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingInitial
	PhaseReadyHasMore
	PhaseReadyExhausted
	PhaseLoadingIncremental
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingInitial:
		return "loading(initial)"
	case PhaseReadyHasMore:
		return "ready(has-more)"
	case PhaseReadyExhausted:
		return "ready(exhausted)"
	case PhaseLoadingIncremental:
		return "loading(incremental)"
	default:
		return "unknown"
	}
}

// Loading reports whether a list load is running.
func (p Phase) Loading() bool {
	return p == PhaseLoadingInitial || p == PhaseLoadingIncremental
}

// Indicator is the blocking loading overlay.
type Indicator interface {
	Show(message string)
	Dismiss()
}

// Notifier shows user-facing alerts.
type Notifier interface {
	Alert(title, message string)
}

// Exporter runs exports. *export.Pipeline implements it.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (export.Result, error)
}

// View is what the screen renders.
type View struct {
	Phase          Phase
	Flights        []flightbook.Flight
	FilterActive   bool
	Filter         *flightbook.Filter
	ScrollDisabled bool
	Exporting      bool
}

// Controller drives one flight list view. Its methods block on remote calls;
// a UI runs them off its event loop.
type Controller struct {
	pager     *paging.Controller
	filter    *filter.Controller
	exporter  Exporter
	env       export.Environment
	indicator Indicator
	exportInd Indicator
	notifier  Notifier
	tr        Translator
	log       logging.Logger

	mu             sync.Mutex
	phase          Phase
	loadSeq        uint64
	scrollDisabled bool
	exporting      bool
	scope          *state.Scope
	viewCtx        context.Context

	views state.Broadcaster[View]
}

// Option customizes a Controller.
type Option func(*Controller)

// WithIndicator sets the loading overlay.
func WithIndicator(i Indicator) Option {
	return func(c *Controller) {
		if i != nil {
			c.indicator = i
		}
	}
}

// WithExportIndicator sets the overlay shown while an export runs. It is
// independent of the list's loading overlay.
func WithExportIndicator(i Indicator) Option {
	return func(c *Controller) {
		if i != nil {
			c.exportInd = i
		}
	}
}

// WithNotifier sets the alert sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithTranslator replaces the English messages.
func WithTranslator(t Translator) Option {
	return func(c *Controller) {
		if t != nil {
			c.tr = t
		}
	}
}

// WithExporter enables Export.
func WithExporter(e Exporter, env export.Environment) Option {
	return func(c *Controller) {
		c.exporter = e
		c.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a controller over the session's pager and filter.
func New(pager *paging.Controller, filter *filter.Controller, opts ...Option) *Controller {
	c := &Controller{
		pager:     pager,
		filter:    filter,
		env:       export.EnvironmentNative,
		indicator: nopIndicator{},
		exportInd: nopIndicator{},
		notifier:  nopNotifier{},
		tr:        English,
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for view changes. The caller cancels the handle.
func (c *Controller) Subscribe(fn func(View)) state.CancelFunc {
	return c.views.Subscribe(fn)
}

// View returns the current view state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Active reports whether the view is activated.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope != nil
}

func (c *Controller) viewLocked() View {
	return View{
		Phase:          c.phase,
		Flights:        c.pager.Store().Flights(),
		FilterActive:   c.filter.Active(),
		Filter:         c.filter.Criteria(),
		ScrollDisabled: c.scrollDisabled,
		Exporting:      c.exporting,
	}
}

func (c *Controller) publish() {
	c.views.Publish(c.View())
}

// Activate attaches the view to the shared state. The first page is loaded
// only when the store is empty; otherwise the view resumes from the cached
// flights. Activating an active view is a no-op.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.scope != nil {
		c.mu.Unlock()
		return nil
	}
	scope := &state.Scope{}
	viewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	scope.Add(state.CancelFunc(cancel))
	c.scope = scope
	c.viewCtx = viewCtx
	c.mu.Unlock()

	store := c.pager.Store()
	scope.Add(store.Subscribe(c.onStore))
	scope.Add(c.filter.Subscribe(func(bool) { c.publish() }))

	if !store.IsEmpty() {
		c.mu.Lock()
		c.settleLocked(store.FullyLoaded())
		c.mu.Unlock()
		c.publish()
		return nil
	}
	return c.clearingLoad(ctx, func(ctx context.Context) error {
		_, err := c.pager.LoadInitial(ctx, c.filter.Criteria())
		return err
	})
}

// Deactivate cancels every subscription and in-flight load of the current
// activation. The store keeps its flights.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	scope := c.scope
	c.scope = nil
	c.viewCtx = nil
	c.phase = PhaseIdle
	c.loadSeq++
	c.mu.Unlock()
	if scope != nil {
		scope.Close()
	}
}

// onStore keeps the scroll mirror in step with the store, including changes
// made by other views sharing it.
func (c *Controller) onStore(snap state.Snapshot) {
	c.mu.Lock()
	if c.scope == nil {
		c.mu.Unlock()
		return
	}
	c.scrollDisabled = snap.FullyLoaded
	if !c.phase.Loading() && c.phase != PhaseIdle {
		c.settleLocked(snap.FullyLoaded)
	}
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) settleLocked(fullyLoaded bool) {
	c.scrollDisabled = fullyLoaded
	if fullyLoaded {
		c.phase = PhaseReadyExhausted
	} else {
		c.phase = PhaseReadyHasMore
	}
}

// bind derives a context that ends with ctx or with the activation.
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	view := c.viewCtx
	c.mu.Unlock()
	if view == nil {
		return nil, nil, ErrInactive
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(view, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// ScrollNearEnd loads the next page when the list is ReadyHasMore. In any
// other phase, or once the scroll trigger is disabled, it returns (nil, nil)
// without fetching.
func (c *Controller) ScrollNearEnd(ctx context.Context) ([]flightbook.Flight, error) {
	ctx, done, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	c.mu.Lock()
	if c.phase != PhaseReadyHasMore || c.scrollDisabled {
		c.mu.Unlock()
		return nil, nil
	}
	c.phase = PhaseLoadingIncremental
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()
	c.publish()

	page, err := c.pager.LoadMore(ctx)

	c.mu.Lock()
	current := seq == c.loadSeq
	if current {
		c.settleLocked(c.pager.Store().FullyLoaded())
	}
	c.mu.Unlock()
	if current {
		c.publish()
	}

	switch {
	case err == nil:
		return page, nil
	case errors.Is(err, paging.ErrExhausted), errors.Is(err, paging.ErrLoadInFlight), errors.Is(err, paging.ErrSuperseded):
		c.log.Debug(ctx, "incremental load skipped", logging.Error(err))
		return nil, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		c.notifier.Alert(c.tr.Translate(KeyInfoTitle), c.tr.Translate(KeyLoadError))
		return nil, err
	}
}

// ToggleFilter applies criteria through the filter controller. Nil or empty
// criteria clear the filter. The store is replaced by the first matching
// page and the scroll trigger is re-enabled.
func (c *Controller) ToggleFilter(ctx context.Context, criteria *flightbook.Filter) error {
	return c.clearingLoad(ctx, func(ctx context.Context) error {
		_, err := c.filter.Toggle(ctx, criteria)
		return err
	})
}

// Reload rebuilds the list with the active filter, e.g. after a flight was
// created.
func (c *Controller) Reload(ctx context.Context) error {
	return c.clearingLoad(ctx, func(ctx context.Context) error {
		_, err := c.pager.LoadInitial(ctx, c.filter.Criteria())
		return err
	})
}

func (c *Controller) clearingLoad(ctx context.Context, load func(context.Context) error) error {
	ctx, done, err := c.bind(ctx)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	prev := c.phase
	c.phase = PhaseLoadingInitial
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()
	c.publish()

	dismiss := c.showIndicator()
	err = load(ctx)
	dismiss()

	c.mu.Lock()
	current := seq == c.loadSeq
	if current {
		switch {
		case err == nil:
			c.settleLocked(c.pager.Store().FullyLoaded())
		case c.pager.Store().IsEmpty():
			c.phase = PhaseIdle
		case prev == PhaseIdle || prev.Loading():
			c.settleLocked(c.pager.Store().FullyLoaded())
		default:
			c.phase = prev
		}
	}
	c.mu.Unlock()
	if current {
		c.publish()
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, paging.ErrSuperseded):
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		c.notifier.Alert(c.tr.Translate(KeyInfoTitle), c.tr.Translate(KeyLoadError))
		return err
	}
}

// Export renders the flights matching the active filter. The export
// indicator is shown for the whole run and dismissed exactly once. A second
// export while one runs is rejected with export.ErrExportInProgress. Export
// does not depend on the list phase.
func (c *Controller) Export(ctx context.Context, format export.Format) (export.Result, error) {
	if c.exporter == nil {
		return export.Result{}, errors.New("export is not configured")
	}
	c.mu.Lock()
	if c.exporting {
		c.mu.Unlock()
		c.notifier.Alert(c.tr.Translate(KeyInfoTitle), c.tr.Translate(KeyExportBusy))
		return export.Result{}, export.ErrExportInProgress
	}
	c.exporting = true
	c.mu.Unlock()
	c.publish()
	defer func() {
		c.mu.Lock()
		c.exporting = false
		c.mu.Unlock()
		c.publish()
	}()

	dismiss := c.show(c.exportInd)
	res, err := c.exporter.Export(ctx, export.Request{
		Format:      format,
		Environment: c.env,
		Filter:      c.filter.Criteria(),
	})
	dismiss()

	if err != nil {
		c.reportExportError(ctx, err)
	}
	return res, err
}

func (c *Controller) reportExportError(ctx context.Context, err error) {
	title := c.tr.Translate(KeyInfoTitle)
	var exportErr *export.Error
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		c.notifier.Alert(title, c.tr.Translate(KeyExportBusy))
	case errors.As(err, &exportErr) && exportErr.Partial():
		msg := strings.TrimSpace(c.tr.Translate(KeyOpenError) + " " + exportErr.Location.URI)
		c.notifier.Alert(title, msg)
	default:
		c.notifier.Alert(title, c.tr.Translate(KeyGenerationError))
	}
	c.log.Warn(ctx, "export reported to user", logging.Error(err))
}

func (c *Controller) showIndicator() func() {
	return c.show(c.indicator)
}

// show shows ind and returns its one-shot dismiss.
func (c *Controller) show(ind Indicator) func() {
	ind.Show(c.tr.Translate(KeyLoading))
	var once sync.Once
	return func() {
		once.Do(ind.Dismiss)
	}
}

type nopIndicator struct{}

func (nopIndicator) Show(string) {}
func (nopIndicator) Dismiss()    {}

type nopNotifier struct{}

func (nopNotifier) Alert(string, string) {}

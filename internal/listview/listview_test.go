package listview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/filter"
	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/paging"
	"github.com/flightbook/flightlog/internal/state"
)

type source struct {
	mu      sync.Mutex
	flights []flightbook.Flight
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

func (s *source) FetchFlights(ctx context.Context, q flightbook.FlightQuery) ([]flightbook.Flight, error) {
	s.mu.Lock()
	s.calls++
	gate, entered, err := s.gate, s.entered, s.err
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var out []flightbook.Flight
	for _, f := range s.flights {
		if q.Filter == nil || q.Filter.Matches(f) {
			out = append(out, f)
		}
	}
	if q.Offset >= len(out) {
		return []flightbook.Flight{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *source) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *source) set(fn func(s *source)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

type indicator struct {
	mu        sync.Mutex
	shown     int
	dismissed int
	messages  []string
}

func (i *indicator) Show(msg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.shown++
	i.messages = append(i.messages, msg)
}

func (i *indicator) Dismiss() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dismissed++
}

func (i *indicator) counts() (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shown, i.dismissed
}

type alert struct{ title, message string }

type notifier struct {
	mu     sync.Mutex
	alerts []alert
}

func (n *notifier) Alert(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert{title, message})
}

func (n *notifier) all() []alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alert(nil), n.alerts...)
}

type exporter struct {
	mu       sync.Mutex
	requests []export.Request
	res      export.Result
	err      error
	gate     chan struct{}
	entered  chan struct{}
}

func (e *exporter) Export(_ context.Context, req export.Request) (export.Result, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.gate != nil {
		<-e.gate
	}
	return e.res, e.err
}

func logbook(n int) []flightbook.Flight {
	out := make([]flightbook.Flight, n)
	for i := range out {
		g := flightbook.Glider{ID: 1, Brand: "Ozone", Name: "X"}
		if i%2 == 1 {
			g = flightbook.Glider{ID: 2, Brand: "Gin", Name: "Y"}
		}
		out[i] = flightbook.Flight{ID: int64(i + 1), Number: i + 1, Glider: g}
	}
	return out
}

type fixture struct {
	src       *source
	store     *state.Store
	filter    *filter.Controller
	indicator *indicator
	exportInd *indicator
	notifier  *notifier
	exporter  *exporter
	view      *Controller
}

func newFixture(n int) *fixture {
	f := &fixture{
		src:       &source{flights: logbook(n)},
		store:     state.NewStore(20),
		indicator: &indicator{},
		exportInd: &indicator{},
		notifier:  &notifier{},
		exporter:  &exporter{},
	}
	pager := paging.New(f.src, f.store, 20)
	f.filter = filter.New(pager, nil)
	f.view = New(pager, f.filter,
		WithIndicator(f.indicator),
		WithExportIndicator(f.exportInd),
		WithNotifier(f.notifier),
		WithExporter(f.exporter, export.EnvironmentWeb),
	)
	return f
}

func TestController_InitialAndIncrementalLoads(t *testing.T) {
	f := newFixture(27)
	ctx := context.Background()
	assert.Equal(t, PhaseIdle, f.view.Phase())

	require.NoError(t, f.view.Activate(ctx))
	v := f.view.View()
	assert.Equal(t, PhaseReadyHasMore, v.Phase)
	assert.Len(t, v.Flights, 20)
	assert.False(t, v.ScrollDisabled)

	page, err := f.view.ScrollNearEnd(ctx)
	require.NoError(t, err)
	assert.Len(t, page, 7)
	v = f.view.View()
	assert.Equal(t, PhaseReadyExhausted, v.Phase)
	assert.Len(t, v.Flights, 27)
	assert.True(t, v.ScrollDisabled)

	calls := f.src.callCount()
	page, err = f.view.ScrollNearEnd(ctx)
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.Equal(t, calls, f.src.callCount(), "exhausted list must not fetch")
	assert.Empty(t, f.notifier.all())
}

func TestController_ReactivationKeepsStore(t *testing.T) {
	f := newFixture(27)
	ctx := context.Background()
	require.NoError(t, f.view.Activate(ctx))
	f.view.Deactivate()
	assert.Equal(t, PhaseIdle, f.view.Phase())
	assert.False(t, f.view.Active())

	require.NoError(t, f.view.Activate(ctx))
	assert.Equal(t, 1, f.src.callCount())
	assert.Equal(t, PhaseReadyHasMore, f.view.Phase())
}

func TestController_DoubleScrollFetchesOnce(t *testing.T) {
	f := newFixture(60)
	ctx := context.Background()
	require.NoError(t, f.view.Activate(ctx))

	f.src.set(func(s *source) {
		s.gate = make(chan struct{})
		s.entered = make(chan struct{}, 1)
	})
	done := make(chan error, 1)
	go func() {
		_, err := f.view.ScrollNearEnd(ctx)
		done <- err
	}()
	<-f.src.entered
	assert.Equal(t, PhaseLoadingIncremental, f.view.Phase())

	page, err := f.view.ScrollNearEnd(ctx)
	require.NoError(t, err)
	assert.Nil(t, page)

	close(f.src.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 2, f.src.callCount())
	assert.Equal(t, 40, f.store.Len())
	assert.Equal(t, PhaseReadyHasMore, f.view.Phase())
}

func TestController_DeactivateCancelsPendingLoad(t *testing.T) {
	f := newFixture(27)
	f.src.set(func(s *source) {
		s.gate = make(chan struct{})
		s.entered = make(chan struct{}, 1)
	})

	done := make(chan error, 1)
	go func() { done <- f.view.Activate(context.Background()) }()
	<-f.src.entered
	f.view.Deactivate()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not return after deactivate")
	}
	assert.True(t, f.store.IsEmpty())
	assert.Equal(t, PhaseIdle, f.view.Phase())
	shown, dismissed := f.indicator.counts()
	assert.Equal(t, shown, dismissed)
}

func TestController_DeactivateDropsSubscriptions(t *testing.T) {
	f := newFixture(5)
	require.NoError(t, f.view.Activate(context.Background()))

	var mu sync.Mutex
	var views []View
	cancel := f.view.Subscribe(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})
	defer cancel()

	f.store.Apply(state.Page{Flights: logbook(3), Clear: true})
	mu.Lock()
	require.Len(t, views, 1)
	assert.True(t, views[0].ScrollDisabled)
	mu.Unlock()

	f.view.Deactivate()
	f.store.Apply(state.Page{Flights: logbook(4), Clear: true})
	mu.Lock()
	assert.Len(t, views, 1, "deactivated view must not react to store changes")
	mu.Unlock()
}

func TestController_ToggleFilterReplacesList(t *testing.T) {
	f := newFixture(50)
	ctx := context.Background()
	require.NoError(t, f.view.Activate(ctx))
	_, err := f.view.ScrollNearEnd(ctx)
	require.NoError(t, err)
	_, err = f.view.ScrollNearEnd(ctx)
	require.NoError(t, err)
	require.True(t, f.view.View().ScrollDisabled)

	require.NoError(t, f.view.ToggleFilter(ctx, &flightbook.Filter{GliderID: 1}))
	v := f.view.View()
	assert.True(t, v.FilterActive)
	assert.Equal(t, PhaseReadyHasMore, v.Phase)
	assert.False(t, v.ScrollDisabled)
	require.Len(t, v.Flights, 20)
	for _, fl := range v.Flights {
		assert.Equal(t, "X", fl.Glider.Name)
	}
	shown, dismissed := f.indicator.counts()
	assert.Equal(t, 2, shown)
	assert.Equal(t, 2, dismissed)

	require.NoError(t, f.view.ToggleFilter(ctx, nil))
	assert.False(t, f.view.View().FilterActive)
}

func TestController_FailedFilterKeepsList(t *testing.T) {
	f := newFixture(27)
	ctx := context.Background()
	require.NoError(t, f.view.Activate(ctx))

	f.src.set(func(s *source) { s.err = errors.New("502 bad gateway") })
	err := f.view.ToggleFilter(ctx, &flightbook.Filter{GliderID: 2})
	require.Error(t, err)

	var fetchErr *paging.FetchError
	assert.ErrorAs(t, err, &fetchErr)
	v := f.view.View()
	assert.False(t, v.FilterActive)
	assert.Equal(t, PhaseReadyHasMore, v.Phase)
	assert.Len(t, v.Flights, 20)
	assert.Equal(t, []alert{{English[KeyInfoTitle], English[KeyLoadError]}}, f.notifier.all())
}

func TestController_InitialFailureReturnsToIdle(t *testing.T) {
	f := newFixture(27)
	f.src.set(func(s *source) { s.err = errors.New("offline") })

	require.Error(t, f.view.Activate(context.Background()))
	assert.Equal(t, PhaseIdle, f.view.Phase())
	assert.Len(t, f.notifier.all(), 1)

	f.src.set(func(s *source) { s.err = nil })
	require.NoError(t, f.view.Reload(context.Background()))
	assert.Equal(t, PhaseReadyHasMore, f.view.Phase())
}

func TestController_OperationsNeedActivation(t *testing.T) {
	f := newFixture(5)
	_, err := f.view.ScrollNearEnd(context.Background())
	assert.ErrorIs(t, err, ErrInactive)
	assert.ErrorIs(t, f.view.Reload(context.Background()), ErrInactive)
	assert.Zero(t, f.src.callCount())
}

func TestController_Export(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "success"},
		{
			name:    "render failure",
			err:     &export.Error{Kind: export.KindRender, Err: errors.New("boom")},
			wantMsg: English[KeyGenerationError],
		},
		{
			name:    "open failure",
			err:     &export.Error{Kind: export.KindOpen, Location: export.Location{URI: "file:///docs/pdf/a.pdf"}, Err: errors.New("no viewer")},
			wantMsg: English[KeyOpenError] + " file:///docs/pdf/a.pdf",
		},
		{
			name:    "fetch failure",
			err:     &export.Error{Kind: export.KindFetch, Err: errors.New("timeout")},
			wantMsg: English[KeyGenerationError],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5)
			ctx := context.Background()
			require.NoError(t, f.view.Activate(ctx))
			require.NoError(t, f.view.ToggleFilter(ctx, &flightbook.Filter{GliderID: 1}))
			f.exporter.err = tt.err

			_, err := f.view.Export(ctx, export.FormatPDF)
			if tt.err == nil {
				require.NoError(t, err)
				assert.Empty(t, f.notifier.all())
			} else {
				require.Error(t, err)
				assert.Equal(t, []alert{{English[KeyInfoTitle], tt.wantMsg}}, f.notifier.all())
			}

			require.Len(t, f.exporter.requests, 1)
			req := f.exporter.requests[0]
			assert.Equal(t, export.FormatPDF, req.Format)
			assert.Equal(t, export.EnvironmentWeb, req.Environment)
			require.NotNil(t, req.Filter)
			assert.Equal(t, int64(1), req.Filter.GliderID)

			shown, dismissed := f.indicator.counts()
			assert.Equal(t, 2, shown)
			assert.Equal(t, 2, dismissed)
			shown, dismissed = f.exportInd.counts()
			assert.Equal(t, 1, shown)
			assert.Equal(t, 1, dismissed)
			assert.False(t, f.view.View().Exporting)
		})
	}
}

func TestController_ExportRejectsConcurrentRequest(t *testing.T) {
	f := newFixture(5)
	f.exporter.gate = make(chan struct{})
	f.exporter.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.view.Export(context.Background(), export.FormatXLSX)
		done <- err
	}()
	<-f.exporter.entered
	assert.True(t, f.view.View().Exporting)

	_, err := f.view.Export(context.Background(), export.FormatPDF)
	assert.ErrorIs(t, err, export.ErrExportInProgress)

	close(f.exporter.gate)
	require.NoError(t, <-done)
	assert.Len(t, f.exporter.requests, 1)
	shown, dismissed := f.exportInd.counts()
	assert.Equal(t, 1, shown)
	assert.Equal(t, 1, dismissed)
	shown, _ = f.indicator.counts()
	assert.Zero(t, shown)
	assert.Equal(t, []alert{{English[KeyInfoTitle], English[KeyExportBusy]}}, f.notifier.all())
}

func TestController_ExportIndicatorIndependentOfLoads(t *testing.T) {
	f := newFixture(5)
	f.exporter.gate = make(chan struct{})
	f.exporter.entered = make(chan struct{}, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.view.Export(ctx, export.FormatPDF)
		done <- err
	}()
	<-f.exporter.entered

	// A clearing load finishes while the export is still running.
	require.NoError(t, f.view.Activate(ctx))
	shown, dismissed := f.indicator.counts()
	assert.Equal(t, 1, shown)
	assert.Equal(t, 1, dismissed)
	shown, dismissed = f.exportInd.counts()
	assert.Equal(t, 1, shown)
	assert.Zero(t, dismissed)

	close(f.exporter.gate)
	require.NoError(t, <-done)
	shown, dismissed = f.exportInd.counts()
	assert.Equal(t, 1, shown)
	assert.Equal(t, 1, dismissed)
}

func TestMessages_Translate(t *testing.T) {
	de := Messages{KeyLoading: "Laden..."}
	assert.Equal(t, "Laden...", de.Translate(KeyLoading))
	assert.Equal(t, English[KeyGenerationError], de.Translate(KeyGenerationError))
	assert.Equal(t, "custom.key", de.Translate("custom.key"))
	assert.Equal(t, "loading", PhaseLoadingInitial.String()[:7])
}

package paging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/state"
)

// fakeSource serves a fixed dataset, applying filters the way the server does.
type fakeSource struct {
	mu      sync.Mutex
	flights []flightbook.Flight
	err     error
	queries []flightbook.FlightQuery
	gate    chan struct{}
	entered chan struct{}
}

func (s *fakeSource) FetchFlights(ctx context.Context, q flightbook.FlightQuery) ([]flightbook.Flight, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
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

	var matched []flightbook.Flight
	for _, f := range s.flights {
		if q.Filter == nil || q.Filter.Matches(f) {
			matched = append(matched, f)
		}
	}
	if q.Offset >= len(matched) {
		return []flightbook.Flight{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *fakeSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func dataset(n int) []flightbook.Flight {
	out := make([]flightbook.Flight, n)
	for i := range out {
		glider := flightbook.Glider{ID: 1, Name: "X"}
		if i%3 == 0 {
			glider = flightbook.Glider{ID: 2, Name: "Y"}
		}
		out[i] = flightbook.Flight{ID: int64(i + 1), Number: i + 1, Glider: glider}
	}
	return out
}

func TestController_InitialThenIncremental(t *testing.T) {
	src := &fakeSource{flights: dataset(27)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	page, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, page, 20)
	assert.Equal(t, 20, store.Len())
	assert.False(t, store.FullyLoaded())

	page, err = c.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, page, 7)
	assert.Equal(t, 27, store.Len())
	assert.True(t, store.FullyLoaded())
	assert.Equal(t, 20, src.queries[1].Offset)
	assert.Equal(t, 20, src.queries[1].Limit)

	_, err = c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, src.calls(), "exhausted list must not fetch")
}

func TestController_FetchErrorLeavesStore(t *testing.T) {
	src := &fakeSource{flights: dataset(20)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)
	before := store.Snapshot()

	src.err = errors.New("503")
	_, err = c.LoadMore(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindIncremental, fetchErr.Kind)
	assert.Equal(t, 20, fetchErr.Offset)
	assert.Equal(t, before.Generation, store.Snapshot().Generation)
	assert.Equal(t, 20, store.Len())

	_, err = c.LoadInitial(context.Background(), &flightbook.Filter{GliderID: 2})
	require.Error(t, err)
	assert.Equal(t, 20, store.Len())
	assert.False(t, store.Filtered())
}

func TestController_ClearingLoadWithFilter(t *testing.T) {
	src := &fakeSource{flights: dataset(40)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)

	filter := &flightbook.Filter{GliderID: 2}
	_, err = c.LoadInitial(context.Background(), filter)
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.True(t, snap.Filtered)
	assert.Equal(t, 14, snap.Len())
	for _, f := range snap.Flights {
		assert.Equal(t, int64(2), f.Glider.ID)
	}
	assert.True(t, snap.FullyLoaded)
	assert.Equal(t, filter, c.Criteria())

	// Mutating the caller's filter does not leak into the sequence criteria.
	filter.GliderID = 1
	assert.Equal(t, int64(2), c.Criteria().GliderID)
}

func TestController_IncrementalReusesSequenceCriteria(t *testing.T) {
	src := &fakeSource{flights: dataset(90)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), &flightbook.Filter{GliderID: 1})
	require.NoError(t, err)
	_, err = c.LoadMore(context.Background())
	require.NoError(t, err)

	require.NotNil(t, src.queries[1].Filter)
	assert.Equal(t, int64(1), src.queries[1].Filter.GliderID)
	for _, f := range store.Flights() {
		assert.Equal(t, int64(1), f.Glider.ID)
	}
}

func TestController_ZeroFilterIsUnfiltered(t *testing.T) {
	src := &fakeSource{flights: dataset(5)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), &flightbook.Filter{})
	require.NoError(t, err)
	assert.False(t, store.Filtered())
	assert.Nil(t, src.queries[0].Filter)
}

func TestController_LoadAllBypassesStore(t *testing.T) {
	src := &fakeSource{flights: dataset(55)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)

	all, err := c.LoadAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 55)
	assert.Equal(t, 0, src.queries[1].Limit)
	assert.Equal(t, 0, src.queries[1].Offset)
	assert.Equal(t, 20, store.Len())
}

func TestController_LatchRejectsOverlappingIncremental(t *testing.T) {
	src := &fakeSource{flights: dataset(60)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)

	src.gate = make(chan struct{})
	src.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-src.entered
	assert.True(t, c.InFlight())

	_, err = c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadInFlight)

	close(src.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 40, store.Len())
	assert.Equal(t, 2, src.calls())
	assert.False(t, c.InFlight())
}

func TestController_ClearingLoadSupersedesIncremental(t *testing.T) {
	src := &fakeSource{flights: dataset(60)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	_, err := c.LoadInitial(context.Background(), nil)
	require.NoError(t, err)

	gate := make(chan struct{})
	src.gate = gate
	src.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-src.entered

	// The clearing load runs to completion while the incremental one is parked.
	src.mu.Lock()
	src.gate = nil
	src.entered = nil
	src.mu.Unlock()
	_, err = c.LoadInitial(context.Background(), &flightbook.Filter{GliderID: 2})
	require.NoError(t, err)

	close(gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	for _, f := range store.Flights() {
		assert.Equal(t, int64(2), f.Glider.ID, "stale unfiltered page leaked into filtered sequence")
	}
	assert.Equal(t, 20, store.Len())
}

func TestController_CancelledContextDoesNotMutate(t *testing.T) {
	src := &fakeSource{flights: dataset(20), gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.LoadInitial(ctx, nil)
		done <- err
	}()
	<-src.entered
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, store.IsEmpty())
}

func TestController_SubscriberMayCallBack(t *testing.T) {
	src := &fakeSource{flights: dataset(60)}
	store := state.NewStore(20)
	c := New(src, store, 20)

	type callback struct {
		criteria *flightbook.Filter
		inFlight bool
		moreErr  error
	}
	seen := make(chan callback, 4)
	cancel := store.Subscribe(func(state.Snapshot) {
		_, err := c.LoadMore(context.Background())
		seen <- callback{criteria: c.Criteria(), inFlight: c.InFlight(), moreErr: err}
	})
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadInitial(context.Background(), &flightbook.Filter{GliderID: 2})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load blocked on a subscriber calling back into the controller")
	}

	got := <-seen
	require.NotNil(t, got.criteria)
	assert.Equal(t, int64(2), got.criteria.GliderID)
	assert.True(t, got.inFlight, "the load holds the latch while subscribers run")
	assert.ErrorIs(t, got.moreErr, ErrLoadInFlight)
}

func TestController_ConcurrentLoadMoreNeverRepeatsAPage(t *testing.T) {
	for round := 0; round < 50; round++ {
		src := &fakeSource{flights: dataset(205)}
		store := state.NewStore(20)
		c := New(src, store, 20)

		_, err := c.LoadInitial(context.Background(), nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					_, err := c.LoadMore(context.Background())
					if errors.Is(err, ErrExhausted) {
						return
					}
				}
			}()
		}
		wg.Wait()

		ids := make(map[int64]bool, store.Len())
		for _, f := range store.Flights() {
			require.False(t, ids[f.ID], "flight %d stored twice", f.ID)
			ids[f.ID] = true
		}
		require.Equal(t, 205, store.Len())

		offsets := make(map[int]bool)
		src.mu.Lock()
		for _, q := range src.queries {
			require.False(t, offsets[q.Offset], "offset %d fetched twice", q.Offset)
			offsets[q.Offset] = true
		}
		src.mu.Unlock()
	}
}

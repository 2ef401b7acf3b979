// Package paging issues bounded flight fetches against the remote source and
// merges the pages into the flight store.
package paging

import (
	"context"
	"sync"
	"time"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/metrics"
	"github.com/flightbook/flightlog/internal/state"
)

// Kind names the load policies.
type Kind string

const (
	KindInitial     Kind = "initial"
	KindIncremental Kind = "incremental"
	KindFull        Kind = "full"
)

// Request describes one fetch. Store false leaves the flight store untouched.
type Request struct {
	Limit  int
	Offset int
	Clear  bool
	Store  bool
	Filter *flightbook.Filter
	// Next continues the current sequence: Offset and Filter are ignored and
	// taken from the store and the sequence criteria once the latch is held.
	Next bool
}

// claim is what a load holds after taking the latch.
type claim struct {
	gen    uint64
	offset int
	filter *flightbook.Filter
}

// Controller is the pagination controller. One controller drives one flight
// store; it allows a single store-bound load at a time.
type Controller struct {
	source  flightbook.FlightSource
	store   *state.Store
	limit   int
	log     logging.Logger
	metrics *metrics.Manager

	mu          sync.Mutex
	generation  uint64
	clearing    int
	incremental bool
	criteria    *flightbook.Filter
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records fetch counts and latencies.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New builds a controller that fetches pages of limit flights from source
// into store.
func New(source flightbook.FlightSource, store *state.Store, limit int, opts ...Option) *Controller {
	if limit <= 0 {
		limit = state.DefaultPageLimit
	}
	c := &Controller{
		source: source,
		store:  store,
		limit:  limit,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limit returns the configured page size.
func (c *Controller) Limit() int {
	return c.limit
}

// Store returns the store the controller writes to.
func (c *Controller) Store() *state.Store {
	return c.store
}

// Criteria returns the filter of the current sequence, nil when unfiltered.
func (c *Controller) Criteria() *flightbook.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyFilter(c.criteria)
}

// LoadInitial replaces the store with the first page matching filter.
func (c *Controller) LoadInitial(ctx context.Context, filter *flightbook.Filter) ([]flightbook.Flight, error) {
	return c.LoadPage(ctx, Request{Limit: c.limit, Clear: true, Store: true, Filter: filter})
}

// LoadMore appends the next page of the current sequence. It returns
// ErrExhausted once a short page was seen and ErrLoadInFlight while another
// load is running; neither contacts the remote source.
func (c *Controller) LoadMore(ctx context.Context) ([]flightbook.Flight, error) {
	return c.LoadPage(ctx, Request{Limit: c.limit, Store: true, Next: true})
}

// LoadAll fetches every flight matching filter without touching the store.
func (c *Controller) LoadAll(ctx context.Context, filter *flightbook.Filter) ([]flightbook.Flight, error) {
	return c.LoadPage(ctx, Request{Filter: filter})
}

// LoadPage runs one fetch. Store-bound pages are applied to the store on
// success; failures and cancelled contexts leave it unchanged. Subscribers
// of the store are notified after the controller's lock is released, so they
// may call back into the controller.
func (c *Controller) LoadPage(ctx context.Context, req Request) ([]flightbook.Flight, error) {
	if !req.Store {
		return c.fetch(ctx, KindFull, flightbook.FlightQuery{Filter: normalize(req.Filter)})
	}

	kind := KindIncremental
	if req.Clear {
		kind = KindInitial
	}
	limit := req.Limit
	if limit <= 0 {
		limit = c.limit
	}

	cl, err := c.begin(req)
	if err != nil {
		c.log.Debug(ctx, "load rejected", logging.String("kind", string(kind)), logging.Error(err))
		return nil, err
	}
	defer c.end(req.Clear)
	filter := cl.filter

	page, err := c.fetch(ctx, kind, flightbook.FlightQuery{Limit: limit, Offset: cl.offset, Filter: filter})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cl.gen != c.generation {
		c.mu.Unlock()
		c.log.Debug(ctx, "dropping superseded page", logging.String("kind", string(kind)), logging.Int("count", len(page)))
		return page, ErrSuperseded
	}
	snap := c.store.Commit(state.Page{Flights: page, Clear: req.Clear, Filtered: filter != nil, Limit: limit})
	if req.Clear {
		c.criteria = copyFilter(filter)
	}
	c.mu.Unlock()

	c.store.Publish(snap)
	c.metrics.SetStoreSize(snap.Len())
	c.log.Debug(ctx, "page applied",
		logging.String("kind", string(kind)),
		logging.Int("count", len(page)),
		logging.Int("stored", snap.Len()),
		logging.Bool("fully_loaded", snap.FullyLoaded))
	return page, nil
}

// begin claims the latch. A clearing load always proceeds and invalidates any
// load started before it; an incremental load needs the latch free. The
// offset of a Next load is read here, under the same lock that commits pages.
func (c *Controller) begin(req Request) (claim, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.Clear {
		c.generation++
		c.clearing++
		return claim{gen: c.generation, offset: req.Offset, filter: normalize(req.Filter)}, nil
	}
	if req.Next && c.store.FullyLoaded() {
		return claim{}, ErrExhausted
	}
	if c.incremental || c.clearing > 0 {
		return claim{}, ErrLoadInFlight
	}
	cl := claim{gen: c.generation, offset: req.Offset, filter: normalize(req.Filter)}
	if req.Next {
		cl.offset = c.store.Len()
		cl.filter = copyFilter(c.criteria)
	}
	c.incremental = true
	return cl, nil
}

func (c *Controller) end(clear bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clear {
		c.clearing--
		return
	}
	c.incremental = false
}

// InFlight reports whether a store-bound load is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.incremental || c.clearing > 0
}

func (c *Controller) fetch(ctx context.Context, kind Kind, query flightbook.FlightQuery) ([]flightbook.Flight, error) {
	started := time.Now()
	page, err := c.source.FetchFlights(ctx, query)
	c.metrics.ObserveFetch(string(kind), time.Since(started), err)
	if err != nil {
		c.log.Warn(ctx, "flight fetch failed",
			logging.String("kind", string(kind)),
			logging.Int("limit", query.Limit),
			logging.Int("offset", query.Offset),
			logging.Error(err))
		return nil, &FetchError{Kind: kind, Limit: query.Limit, Offset: query.Offset, Err: err}
	}
	return page, nil
}

func normalize(f *flightbook.Filter) *flightbook.Filter {
	if f == nil || f.IsZero() {
		return nil
	}
	return copyFilter(f)
}

func copyFilter(f *flightbook.Filter) *flightbook.Filter {
	if f == nil {
		return nil
	}
	dup := *f
	return &dup
}

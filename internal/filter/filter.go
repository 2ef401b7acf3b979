// Package filter owns the session-wide flight filter and rebuilds the flight
// store whenever the criteria change.
package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/paging"
	"github.com/flightbook/flightlog/internal/state"
)

// Controller is shared by every view of a session.
type Controller struct {
	pager *paging.Controller
	log   logging.Logger

	// toggles serializes Toggle calls so criteria commit in call order.
	toggles sync.Mutex

	mu       sync.RWMutex
	criteria *flightbook.Filter
	changes  state.Broadcaster[bool]
}

// New builds a filter controller that reloads through pager.
func New(pager *paging.Controller, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{pager: pager, log: log}
}

// Active reports whether a filter is applied.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria != nil
}

// Criteria returns a copy of the applied criteria, nil when inactive.
func (c *Controller) Criteria() *flightbook.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.criteria == nil {
		return nil
	}
	dup := *c.criteria
	return &dup
}

// Subscribe registers fn for changes of the active flag.
func (c *Controller) Subscribe(fn func(active bool)) state.CancelFunc {
	return c.changes.Subscribe(fn)
}

// Toggle applies criteria and rebuilds the store with a clearing load. Nil or
// empty criteria deactivate the filter. The new criteria are committed only
// once the store holds the matching first page; on failure both the filter
// and the store keep their previous state.
func (c *Controller) Toggle(ctx context.Context, criteria *flightbook.Filter) ([]flightbook.Flight, error) {
	c.toggles.Lock()
	defer c.toggles.Unlock()

	var next *flightbook.Filter
	if criteria != nil && !criteria.IsZero() {
		dup := *criteria
		next = &dup
	}

	page, err := c.pager.LoadInitial(ctx, next)
	if err != nil {
		c.log.Warn(ctx, "filter reload failed", logging.String("criteria", describe(next)), logging.Error(err))
		return nil, fmt.Errorf("apply filter: %w", err)
	}

	c.mu.Lock()
	was := c.criteria != nil
	c.criteria = next
	c.mu.Unlock()

	active := next != nil
	c.log.Info(ctx, "filter applied",
		logging.String("criteria", describe(next)),
		logging.Int("first_page", len(page)))
	if active != was || active {
		c.changes.Publish(active)
	}
	return page, nil
}

// Clear deactivates the filter.
func (c *Controller) Clear(ctx context.Context) ([]flightbook.Flight, error) {
	return c.Toggle(ctx, nil)
}

func describe(f *flightbook.Filter) string {
	if f == nil {
		return "none"
	}
	return f.String()
}

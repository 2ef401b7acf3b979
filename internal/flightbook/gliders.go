package flightbook

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// GliderCache loads the glider list once per session and serves it from memory afterwards.
type GliderCache struct {
	source GliderSource

	mu       sync.Mutex
	gliders  []Glider
	complete bool
}

// NewGliderCache wraps source.
func NewGliderCache(source GliderSource) *GliderCache {
	return &GliderCache{source: source}
}

// Gliders returns the cached list, fetching it on first use. A failed fetch
// leaves the cache incomplete so the next call retries.
func (c *GliderCache) Gliders(ctx context.Context) ([]Glider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.complete {
		gliders, err := c.source.FetchGliders(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch gliders: %w", err)
		}
		c.gliders = gliders
		c.complete = true
	}
	dup := make([]Glider, len(c.gliders))
	copy(dup, c.gliders)
	return dup, nil
}

// Complete reports whether the list has been loaded.
func (c *GliderCache) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

// Resolve finds a glider by "<brand> <name>" or name (case-insensitive). An
// empty label selects the first glider.
func (c *GliderCache) Resolve(ctx context.Context, label string) (Glider, error) {
	gliders, err := c.Gliders(ctx)
	if err != nil {
		return Glider{}, err
	}
	if len(gliders) == 0 {
		return Glider{}, fmt.Errorf("no gliders configured: %w", ErrNotFound)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return gliders[0], nil
	}
	for _, g := range gliders {
		if strings.EqualFold(g.Label(), label) || strings.EqualFold(g.Name, label) {
			return g, nil
		}
	}
	return Glider{}, fmt.Errorf("glider %q: %w", label, ErrNotFound)
}

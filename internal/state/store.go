package state

import (
	"sync"
	"time"

	"github.com/flightbook/flightlog/internal/flightbook"
)

// DefaultPageLimit is the page size used when a store is built without one.
const DefaultPageLimit = 20

// Snapshot is an immutable view of the flight store.
type Snapshot struct {
	Flights     []flightbook.Flight
	Filtered    bool
	FullyLoaded bool
	Limit       int
	Generation  uint64
	LastUpdated time.Time
}

// Len returns the number of cached flights.
func (s Snapshot) Len() int {
	return len(s.Flights)
}

// Store is the single writable owner of the loaded flight sequence. Readers
// take snapshots or subscribe; writes go through Apply.
type Store struct {
	mu        sync.RWMutex
	snapshot  Snapshot
	published uint64
	changes   Broadcaster[Snapshot]
}

// NewStore builds an empty store for pages of limit flights.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &Store{snapshot: Snapshot{Limit: limit}}
}

// Page is one fetch result handed to Apply.
type Page struct {
	Flights  []flightbook.Flight
	Clear    bool
	Filtered bool
	// Limit is the page size the fetch was issued with. Zero uses the store's
	// configured limit.
	Limit int
}

// Apply merges page into the store. A clearing page replaces the whole
// sequence; otherwise it is appended. FullyLoaded becomes true iff the page is
// shorter than its limit. Every Apply notifies subscribers.
func (s *Store) Apply(page Page) Snapshot {
	snap := s.Commit(page)
	s.Publish(snap)
	return snap
}

// Commit merges page like Apply without notifying subscribers. Callers that
// must not run subscribers under their own lock commit first and Publish the
// returned snapshot after unlocking.
func (s *Store) Commit(page Page) Snapshot {
	s.mu.Lock()
	limit := page.Limit
	if limit <= 0 {
		limit = s.limitLocked()
	}

	var next []flightbook.Flight
	if page.Clear {
		next = make([]flightbook.Flight, 0, len(page.Flights))
	} else {
		next = make([]flightbook.Flight, 0, len(s.snapshot.Flights)+len(page.Flights))
		next = append(next, s.snapshot.Flights...)
	}
	next = append(next, page.Flights...)

	s.snapshot.Flights = next
	s.snapshot.Limit = limit
	s.snapshot.FullyLoaded = len(page.Flights) < limit
	if page.Clear {
		s.snapshot.Filtered = page.Filtered
	}
	s.snapshot.Generation++
	s.snapshot.LastUpdated = time.Now()
	snap := s.cloneLocked()
	s.mu.Unlock()
	return snap
}

// Publish notifies subscribers of snap. A snapshot older than one already
// published is dropped.
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	if snap.Generation <= s.published {
		s.mu.Unlock()
		return
	}
	s.published = snap.Generation
	s.mu.Unlock()
	s.changes.Publish(snap)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked()
}

// Flights returns a copy of the cached flights.
func (s *Store) Flights() []flightbook.Flight {
	return s.Snapshot().Flights
}

// Len returns the number of cached flights.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot.Flights)
}

// IsEmpty reports whether no flight is cached.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// FullyLoaded reports whether the last page came back short.
func (s *Store) FullyLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.FullyLoaded
}

// Filtered reports whether the last clearing fetch was filtered.
func (s *Store) Filtered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Filtered
}

// Limit returns the page limit of the most recent fetch.
func (s *Store) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limitLocked()
}

// Subscribe registers fn for every change. fn is not called with the current
// state; callers that need it read Snapshot first.
func (s *Store) Subscribe(fn func(Snapshot)) CancelFunc {
	return s.changes.Subscribe(fn)
}

func (s *Store) limitLocked() int {
	if s.snapshot.Limit <= 0 {
		return DefaultPageLimit
	}
	return s.snapshot.Limit
}

func (s *Store) cloneLocked() Snapshot {
	snap := s.snapshot
	snap.Flights = cloneFlights(s.snapshot.Flights)
	return snap
}

func cloneFlights(flights []flightbook.Flight) []flightbook.Flight {
	if len(flights) == 0 {
		return nil
	}
	dup := make([]flightbook.Flight, len(flights))
	copy(dup, flights)
	return dup
}

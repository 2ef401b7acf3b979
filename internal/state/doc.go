// Package state holds the flight store: the in-memory, ordered cache of
// flights loaded for the current session.
//
// # Overview
//
// The store is the single writable owner of the flight sequence. The
// pagination controller is its only writer; the list view, the filter
// controller and the UI read snapshots or subscribe to changes.
//
//	Writer (paging.Controller):      Readers:
//	┌────────────────────────┐       ┌─────────────────────────┐
//	│ FetchFlights(limit,off)│       │ store.Snapshot()        │
//	│          ↓             │       │ store.Subscribe(fn)     │
//	│ store.Apply(page)      │──────→│   → fn(Snapshot)        │
//	└────────────────────────┘       └─────────────────────────┘
//
// # Apply Semantics
//
//	store.Apply(Page{Flights: p, Clear: true})   → sequence = p
//	store.Apply(Page{Flights: p})                → sequence = sequence + p
//	                                             → FullyLoaded = len(p) < limit
//
// Insertion order is fetch order. The store never sorts and never filters;
// the Filtered flag only records whether the last clearing fetch carried
// filter criteria.
//
// # Concurrency
//
// Apply takes the write lock, Snapshot and the accessors take the read lock.
// Snapshots are defensive copies. Subscribers run synchronously after the lock
// is released, so a listener may read the store again without deadlocking.
// Snapshot.Generation increases with every Apply and lets listeners drop
// notifications that arrive out of order.
//
// # Subscriptions
//
// Subscribe returns a CancelFunc. View code collects these in a Scope and
// closes the scope when the view deactivates; Close cancels every handle
// exactly once and a handle added to a closed scope is cancelled at once.
//
// Broadcaster is the generic listener list behind Store.Subscribe; the filter
// controller uses it for its active flag.
package state

package paging

import (
	"errors"
	"fmt"
)

// Sentinel errors returned without contacting the remote source.
var (
	// ErrLoadInFlight rejects an incremental load while another store-bound
	// load of the same sequence is still running.
	ErrLoadInFlight = errors.New("flight load already in flight")
	// ErrExhausted rejects an incremental load after a short page.
	ErrExhausted = errors.New("flight list fully loaded")
	// ErrSuperseded is returned when a clearing load started after this one;
	// the page was fetched but not applied.
	ErrSuperseded = errors.New("flight load superseded by a newer clearing load")
)

// FetchError wraps a remote failure during any load. The store is untouched.
type FetchError struct {
	Kind   Kind
	Limit  int
	Offset int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Limit == 0 {
		return fmt.Sprintf("fetch %s flights: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s flights (limit %d, offset %d): %v", e.Kind, e.Limit, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

package export

import (
	"errors"
	"fmt"
)

// ErrExportInProgress rejects an export requested while another one runs.
var ErrExportInProgress = errors.New("export already in progress")

// Kind classifies pipeline failures.
type Kind int

const (
	// KindFetch covers the full-export load and the account lookup.
	KindFetch Kind = iota + 1
	// KindRender covers renderer failures and malformed renderer output.
	KindRender
	// KindStorageWrite covers failed writes to device storage or downloads.
	KindStorageWrite
	// KindOpen is a file-opener failure after a successful write; the
	// artifact exists at Error.Location.
	KindOpen
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindRender:
		return "render"
	case KindStorageWrite:
		return "storage write"
	case KindOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Error is returned by Pipeline.Export for every failure except
// ErrExportInProgress.
type Error struct {
	Kind        Kind
	Format      Format
	Environment Environment
	// Location is set for KindOpen.
	Location Location
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s (%s): %s: %v", e.Format, e.Environment, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Partial reports whether the artifact was persisted even though the export
// failed.
func (e *Error) Partial() bool {
	return e.Kind == KindOpen
}

// KindOf returns the kind of a pipeline error, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

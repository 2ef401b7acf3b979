// Package listview orchestrates the flight list screen.
//
// A Controller ties the shared flight store, the pagination controller, the
// session filter and the export pipeline to one view. It owns the view's
// phase:
//
//	Idle -> LoadingInitial -> ReadyHasMore -> LoadingIncremental -> ReadyHasMore ...
//	                                       \-> ReadyExhausted
//
// Activation loads the first page only when the store is empty, so returning
// to the list keeps what was already loaded. Scroll events near the end of
// the list load the next page while the phase is ReadyHasMore; once a short
// page arrives the scroll trigger is disabled until a clearing load re-enables
// it.
//
// Exports run beside the list phase and are gated by the loading Indicator,
// which is dismissed exactly once per export. The controller is the only
// place that produces user-visible messages, through a Notifier and a
// Translator. Lower layers return errors and never alert.
//
// Every subscription and in-flight load started during an activation is tied
// to a state.Scope; Deactivate closes it, which cancels the loads and drops
// the listeners.
package listview

// Package app is the composition root of flightlog.
//
// # Overview
//
// NewSession loads configuration and wires the services every command
// shares: logger, Prometheus registry and metrics manager, flightbook HTTP
// client, flight store, pagination and filter controllers, glider cache and
// the export pipeline with one sink per environment. Front ends then use the
// session:
//
//   - RunTUI builds the list view controller with a ui.Bridge as indicator
//     and notifier, and runs the Bubble Tea program
//   - Export runs a one-shot export (native: file plus opener; web: stdout)
//   - Serve exposes GET /export/{format}, /metrics and /healthz
//   - AddFlight posts a flight and reloads an active list view
//   - ListGliders lists the cached glider reference data
//
// # Data Flow
//
//	NewSession()
//	  ├─> config.Load()            TOML file + FLIGHTLOG_ env overlay
//	  ├─> logging                  log file (TUI) or stderr (CLI)
//	  ├─> metrics.NewManager()     private prometheus.Registry
//	  ├─> flightbook.NewClient()
//	  ├─> state.NewStore()         shared Flight Store
//	  ├─> paging.New() / filter.New()
//	  └─> export.NewPipeline()     native and web sinks
//
// # Error Handling
//
// Configuration and wiring failures are returned from NewSession. Runtime
// failures are returned to the command; the TUI reports them through the
// list view controller instead.
package app

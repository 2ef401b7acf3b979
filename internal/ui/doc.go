// Package ui provides the terminal interface for flightlog, built on Bubble Tea.
//
// # Architecture Overview
//
// The Model renders the listview.Controller state: a paged flight table, a
// filter form, export shortcuts and an optional log pane that follows the
// application log file. The listview controller owns every transition; the
// UI only forwards user intents and renders the View snapshots it publishes.
//
// Controller callbacks arrive on other goroutines. A Bridge turns them into
// Bubble Tea messages (viewMsg, indicatorMsg, alertMsg) and queues them until
// the program is running. Blocking work (loads, filter application, exports)
// runs inside tea.Cmd functions and reports back with loadedMsg or
// exportedMsg.
//
// # Package Structure
//
//   - app.go: Model, Update, View, commands and Run
//   - bridge.go: listview Indicator/Notifier adapter for tea.Program
//   - table.go: flight table rows, sizing and scroll-near-end detection
//   - filter_form.go: filter modal and criteria parsing
//   - logs.go: log pane fed by logtail
//   - header.go, help.go: status bar, command bar and help overlay
//   - theme.go, style_helpers.go, strings.go: colors and rendering helpers
//
// # Scrolling
//
// When the cursor comes within a few rows of the end of the loaded list, or
// the list fits on screen, the model asks the controller for the next page.
// Only one scroll request is outstanding at a time and none is sent unless
// the controller reports more pages.
//
// # Key Bindings
//
//   - f or /: Open the filter form (enter applies, an empty form clears)
//   - F: Clear the active filter
//   - r: Reload from the first page
//   - x, p: Export as XLSX or PDF; e exports in the last used format
//   - l: Toggle the log pane
//   - T: Cycle the color theme
//   - ?: Help
//   - q or Ctrl+C: Quit
package ui

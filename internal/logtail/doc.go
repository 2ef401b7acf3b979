// Package logtail reads the flightlog application log for the in-app log
// pane.
//
// Read returns the last N lines of a file with a single pass and a ring
// buffer, so memory stays proportional to N regardless of file size. Follower
// then reports lines appended after that point, and Watch polls a Follower on
// a ticker in the background.
//
// Parse splits the key=value lines written by slog's text handler into an
// Entry (time, level, message, component and remaining attributes) so the UI
// can color them. Lines in any other format are kept verbatim.
//
// A missing log file is not an error: Read and Poll return no lines until the
// file appears.
package logtail

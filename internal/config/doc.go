// Package config loads flightlog's runtime configuration.
//
// # Sources
//
// Load layers three sources with koanf, lowest precedence first:
//
//  1. Built-in defaults (Default)
//  2. A TOML file: the explicit path, else $FLIGHTLOG_CONFIG, else
//     ~/.config/flightlog/config.toml. A missing file is not an error.
//  3. Environment variables prefixed FLIGHTLOG_, e.g. FLIGHTLOG_PAGE_LIMIT=50
//
// The TOML parser handed to koanf is implemented on go-toml (see Parser).
//
// # Default Values
//
//   - api_url: https://api.flightbook.ch
//   - page_limit: 20
//   - environment: native (native | web)
//   - documents_dir: ~/Documents/flightlog
//   - downloads_dir: ~/Downloads (web exports started from the TUI)
//   - public_base_url: https://m.flightbook.ch
//   - open_command: xdg-open
//   - listen_addr: 127.0.0.1:8321
//   - log_dir: ~/.local/share/flightlog
//   - log_level: info
//   - request_timeout: 10s
//
// api_token has no default; requests are sent without authorization when it
// is empty.
//
// # TOML Format
//
//	api_url = "https://api.flightbook.ch"
//	api_token = "..."
//	page_limit = 20
//	environment = "native"
//	documents_dir = "~/Documents/flightlog"
//	request_timeout = "10s"
//
// String values are trimmed and blank values fall back to their defaults.
// Tilde expansion is applied to documents_dir, downloads_dir and log_dir.
//
// # Error Handling
//
// Failures reading or decoding a source wrap ErrLoadConfig. Out-of-range
// values wrap ErrInvalidConfig and list every problem found.
package config

// Package flightbook provides the HTTP client for the remote flightbook API
// and the data model shared by the rest of flightlog.
//
// # Endpoints
//
//   - GET  /flights?limit=&offset=&from=&to=&glider=&start=&landing=&description=
//   - POST /flights
//   - GET  /gliders
//   - GET  /users/me
//
// A FlightQuery with Limit zero omits the limit parameter and asks the server
// for every matching flight; this is the full-export load.
//
// # Errors
//
// Non-2xx responses are returned as *APIError. errors.Is(err, ErrNotFound)
// matches 404s. Network and decode failures are wrapped with fmt.Errorf.
//
// The client does no caching and no retries. GliderCache is the one exception:
// glider reference data is loaded once per session.
package flightbook

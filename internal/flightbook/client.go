package flightbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FlightSource is the remote collection the pagination controller reads from.
type FlightSource interface {
	FetchFlights(ctx context.Context, query FlightQuery) ([]Flight, error)
}

// AccountService resolves the signed-in user.
type AccountService interface {
	CurrentUser(ctx context.Context) (User, error)
}

// GliderSource lists the user's gliders.
type GliderSource interface {
	FetchGliders(ctx context.Context) ([]Glider, error)
}

// Ensure Client implements the consumer interfaces at compile time.
var (
	_ FlightSource   = (*Client)(nil)
	_ AccountService = (*Client)(nil)
	_ GliderSource   = (*Client)(nil)
)

// ErrNotFound is matched by API errors with status 404.
var ErrNotFound = errors.New("not found")

// APIError reports a non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to the flightbook HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultBaseURL   = "https://api.flightbook.ch"
	defaultUserAgent = "flightlog/0.1"
	requestTimeout   = 10 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for baseURL authenticating with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		token:     strings.TrimSpace(token),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FlightQuery bounds a /flights request. Limit zero requests every matching flight.
type FlightQuery struct {
	Limit  int
	Offset int
	Filter *Filter
}

func (q FlightQuery) values() url.Values {
	values := url.Values{}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	if f := q.Filter; f != nil {
		if !f.From.IsZero() {
			values.Set("from", f.From.Format(dateLayout))
		}
		if !f.To.IsZero() {
			values.Set("to", f.To.Format(dateLayout))
		}
		if f.GliderID > 0 {
			values.Set("glider", strconv.FormatInt(f.GliderID, 10))
		}
		if s := strings.TrimSpace(f.Start); s != "" {
			values.Set("start", s)
		}
		if s := strings.TrimSpace(f.Landing); s != "" {
			values.Set("landing", s)
		}
		if s := strings.TrimSpace(f.Description); s != "" {
			values.Set("description", s)
		}
	}
	return values
}

// FetchFlights retrieves one page (or, with Limit zero, all) of flights.
func (c *Client) FetchFlights(ctx context.Context, query FlightQuery) ([]Flight, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "flights", RawQuery: query.values().Encode()}
	var payload []Flight
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateFlight stores a new flight and returns the server's copy.
func (c *Client) CreateFlight(ctx context.Context, flight Flight) (Flight, error) {
	if c == nil {
		return Flight{}, fmt.Errorf("client is nil")
	}
	var created Flight
	if err := c.do(ctx, http.MethodPost, "flights", flight, &created); err != nil {
		return Flight{}, err
	}
	return created, nil
}

// FetchGliders lists the user's gliders.
func (c *Client) FetchGliders(ctx context.Context) ([]Glider, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []Glider
	if err := c.do(ctx, http.MethodGet, "gliders", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CurrentUser returns the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var user User
	if err := c.do(ctx, http.MethodGet, "users/me", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{Method: method, Path: rel.Path, Status: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Package export renders the full flight set into XLSX or PDF artifacts and
// persists them through an environment-specific sink.
package export

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/metrics"
)

// DefaultBaseURL is the public site linked from exported documents.
const DefaultBaseURL = "https://m.flightbook.ch"

// FlightLoader performs the full-export load. *paging.Controller implements it.
type FlightLoader interface {
	LoadAll(ctx context.Context, filter *flightbook.Filter) ([]flightbook.Flight, error)
}

// Request selects what to export and where to put it.
type Request struct {
	Format      Format
	Environment Environment
	// Filter restricts the exported set; nil exports every flight.
	Filter *flightbook.Filter
	// Sink overrides the pipeline's sink for Environment, e.g. a WebSink
	// bound to one HTTP response.
	Sink ArtifactSink
}

// Result describes a successful export.
type Result struct {
	ID          string
	Format      Format
	Environment Environment
	Location    Location
	Flights     int
}

// Pipeline is the export pipeline. Runs are serialized: a request made while
// another export runs fails with ErrExportInProgress.
type Pipeline struct {
	loader   FlightLoader
	renderer Renderer
	accounts flightbook.AccountService
	sinks    map[Environment]ArtifactSink
	baseURL  string
	now      func() time.Time
	log      logging.Logger
	metrics  *metrics.Manager

	mu      sync.Mutex
	running bool
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSink registers the sink used for env.
func WithSink(env Environment, sink ArtifactSink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sinks[env] = sink
		}
	}
}

// WithRenderer replaces DefaultRenderer.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithBaseURL sets the public URL embedded in PDFs.
func WithBaseURL(u string) Option {
	return func(p *Pipeline) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics records export outcomes.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// NewPipeline builds a pipeline reading flights through loader and the
// current user through accounts.
func NewPipeline(loader FlightLoader, accounts flightbook.AccountService, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:   loader,
		renderer: DefaultRenderer{},
		accounts: accounts,
		sinks:    make(map[Environment]ArtifactSink),
		baseURL:  DefaultBaseURL,
		now:      time.Now,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Running reports whether an export is in progress.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Export fetches the full flight set, sorts it for the format, renders it and
// persists the artifact. Failures are returned as *Error.
func (p *Pipeline) Export(ctx context.Context, req Request) (Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return Result{}, ErrExportInProgress
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	started := time.Now()
	res, err := p.run(ctx, req)
	p.metrics.ObserveExport(string(req.Format), string(req.Environment), time.Since(started), err)

	if err != nil {
		p.log.Error(ctx, "export failed",
			logging.String("format", string(req.Format)),
			logging.String("environment", string(req.Environment)),
			logging.Error(err))
		return res, err
	}
	p.log.Info(ctx, "export finished",
		logging.String("id", res.ID),
		logging.String("format", string(req.Format)),
		logging.String("environment", string(req.Environment)),
		logging.String("uri", res.Location.URI),
		logging.Int("flights", res.Flights))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (Result, error) {
	fail := func(kind Kind, err error) (Result, error) {
		return Result{}, &Error{Kind: kind, Format: req.Format, Environment: req.Environment, Err: err}
	}
	if req.Format != FormatXLSX && req.Format != FormatPDF {
		return fail(KindRender, fmt.Errorf("unknown format %q", req.Format))
	}
	sink := req.Sink
	if sink == nil {
		sink = p.sinks[req.Environment]
	}
	if sink == nil {
		return fail(KindStorageWrite, fmt.Errorf("no sink for environment %q", req.Environment))
	}

	res := Result{ID: uuid.NewString(), Format: req.Format, Environment: req.Environment}

	flights, err := p.loader.LoadAll(ctx, req.Filter)
	if err != nil {
		return fail(KindFetch, err)
	}
	res.Flights = len(flights)
	flights = SortForFormat(flights, req.Format)

	var payload Payload
	switch req.Format {
	case FormatXLSX:
		opts := XLSXOptions{BookType: "xlsx", OutputType: OutputArray}
		if req.Environment == EnvironmentNative {
			opts.OutputType = OutputBase64
		}
		data, err := p.renderXLSX(flights, opts)
		if err != nil {
			return fail(KindRender, err)
		}
		payload = encodedPayload{data: data, encoded: opts.OutputType == OutputBase64}
	case FormatPDF:
		user, err := p.accounts.CurrentUser(ctx)
		if err != nil {
			return fail(KindFetch, fmt.Errorf("current user: %w", err))
		}
		doc, err := p.renderPDF(flights, user)
		if err != nil {
			return fail(KindRender, err)
		}
		payload = doc
	}

	artifact := Artifact{
		Format:   req.Format,
		Filename: req.Format.Filename(p.now()),
		MIME:     req.Format.MIME(),
		Payload:  payload,
	}
	loc, err := sink.Persist(ctx, artifact)
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = &Error{Kind: KindStorageWrite, Err: err}
		}
		e.Format = req.Format
		e.Environment = req.Environment
		if e.Kind == KindOpen {
			res.Location = e.Location
			return res, e
		}
		return Result{}, e
	}
	res.Location = loc
	return res, nil
}

func (p *Pipeline) renderXLSX(flights []flightbook.Flight, opts XLSXOptions) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xlsx renderer panicked: %v", r)
		}
	}()
	data, err = p.renderer.RenderXLSX(flights, opts)
	if err == nil && len(data) == 0 {
		err = errors.New("xlsx renderer returned no data")
	}
	return data, err
}

func (p *Pipeline) renderPDF(flights []flightbook.Flight, user flightbook.User) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf renderer panicked: %v", r)
		}
	}()
	doc, err = p.renderer.RenderPDF(flights, user, p.baseURL)
	if err == nil && doc == nil {
		err = errors.New("pdf renderer returned no document")
	}
	return doc, err
}

// SortForFormat returns a sorted copy: XLSX descending by number, PDF sorted
// descending and then reversed.
func SortForFormat(flights []flightbook.Flight, format Format) []flightbook.Flight {
	out := slices.Clone(flights)
	slices.SortStableFunc(out, func(a, b flightbook.Flight) int {
		return b.Number - a.Number
	})
	if format == FormatPDF {
		slices.Reverse(out)
	}
	return out
}

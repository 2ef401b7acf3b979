package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flightbook/flightlog/internal/config"
	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/filter"
	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/listview"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/metrics"
	"github.com/flightbook/flightlog/internal/paging"
	"github.com/flightbook/flightlog/internal/state"
)

// Options configure how a Session is built.
type Options struct {
	ConfigPath string
	// Version is reported in the User-Agent header.
	Version string
	// TerminalUI marks a session whose terminal belongs to the TUI: logs go
	// to the configured log file instead of Stderr, and web exports are saved
	// to downloads_dir instead of being streamed to Stdout.
	TerminalUI bool
	Stdout    io.Writer
	Stderr    io.Writer
}

// Session holds the services shared by every command.
type Session struct {
	Config   config.Config
	Log      logging.Logger
	Metrics  *metrics.Manager
	Registry *prometheus.Registry

	Client   *flightbook.Client
	Store    *state.Store
	Pager    *paging.Controller
	Filter   *filter.Controller
	Gliders  *flightbook.GliderCache
	Pipeline *export.Pipeline
	List     *listview.Controller

	Environment export.Environment

	stdout  io.Writer
	closers []io.Closer
}

// NewSession loads configuration and wires the services. Close releases the
// log file.
func NewSession(opts Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return newSession(cfg, opts)
}

func newSession(cfg config.Config, opts Options) (*Session, error) {
	s := &Session{Config: cfg, stdout: opts.Stdout}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}

	env, err := export.ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	s.Environment = env

	if err := s.initLogging(cfg, opts); err != nil {
		return nil, err
	}

	s.Registry = prometheus.NewRegistry()
	s.Metrics, err = metrics.NewManager(metrics.WithRegistry(s.Registry))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	userAgent := "flightlog"
	if opts.Version != "" {
		userAgent += "/" + opts.Version
	}
	s.Client, err = flightbook.NewClient(cfg.APIURL, cfg.APIToken,
		flightbook.WithTimeout(cfg.RequestTimeout),
		flightbook.WithUserAgent(userAgent),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init flightbook client: %w", err)
	}

	s.Store = state.NewStore(cfg.PageLimit)
	s.Pager = paging.New(s.Client, s.Store, cfg.PageLimit,
		paging.WithLogger(s.Log.Named("paging")),
		paging.WithMetrics(s.Metrics),
	)
	s.Filter = filter.New(s.Pager, s.Log.Named("filter"))
	s.Gliders = flightbook.NewGliderCache(s.Client)

	s.Pipeline = export.NewPipeline(s.Pager, s.Client,
		export.WithSink(export.EnvironmentNative, export.NativeSink{
			Storage: export.NewFSStorage(cfg.DocumentsDir),
			Opener:  export.ExecOpener{Command: cfg.OpenCommand},
		}),
		export.WithSink(export.EnvironmentWeb, export.WebSink{Downloader: s.webDownloader(cfg, opts)}),
		export.WithBaseURL(cfg.PublicBaseURL),
		export.WithLogger(s.Log.Named("export")),
		export.WithMetrics(s.Metrics),
	)
	return s, nil
}

// webDownloader picks where web exports go when a request names no sink.
func (s *Session) webDownloader(cfg config.Config, opts Options) export.Downloader {
	if opts.TerminalUI {
		return export.DirDownloader{Dir: cfg.DownloadsDir}
	}
	return export.StreamDownloader{W: s.stdout}
}

func (s *Session) initLogging(cfg config.Config, opts Options) error {
	if opts.TerminalUI {
		logger, closer, err := logging.OpenFile(cfg.LogPath(), cfg.LogLevel)
		if err != nil {
			return err
		}
		s.Log = logger
		s.closers = append(s.closers, closer)
		return nil
	}
	w := opts.Stderr
	if w == nil {
		w = os.Stderr
	}
	logger, err := logging.NewWriter(w, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	s.Log = logger
	return nil
}

// Close releases resources held by the session.
func (s *Session) Close() {
	if s.List != nil {
		s.List.Deactivate()
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
	s.closers = nil
}

// ListView builds the list view controller once. Indicator and notifier are
// supplied by the front end.
func (s *Session) ListView(indicator listview.Indicator, notifier listview.Notifier, opts ...listview.Option) *listview.Controller {
	if s.List == nil {
		opts = append([]listview.Option{
			listview.WithIndicator(indicator),
			listview.WithNotifier(notifier),
			listview.WithExporter(s.Pipeline, s.Environment),
			listview.WithLogger(s.Log.Named("listview")),
		}, opts...)
		s.List = listview.New(s.Pager, s.Filter, opts...)
	}
	return s.List
}

// ExportRequest is a one-shot export from the command line.
type ExportRequest struct {
	Format      export.Format
	Environment export.Environment
	Filter      *flightbook.Filter
}

// Export runs the export pipeline outside the TUI. A web export streams the
// artifact to Stdout.
func (s *Session) Export(ctx context.Context, req ExportRequest) (export.Result, error) {
	env := req.Environment
	if env == "" {
		env = s.Environment
	}
	res, err := s.Pipeline.Export(ctx, export.Request{
		Format:      req.Format,
		Environment: env,
		Filter:      req.Filter,
	})
	if err != nil {
		var exportErr *export.Error
		if errors.As(err, &exportErr) && exportErr.Partial() {
			s.Log.Warn(ctx, "export written but not opened",
				logging.String("uri", exportErr.Location.URI),
				logging.Error(err),
			)
		}
		return res, err
	}
	return res, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/flightbook"
	"github.com/flightbook/flightlog/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP routes of serve mode:
//
//	GET /export/{format}  export as a download (query: from, to, glider, start, landing, description)
//	GET /metrics          Prometheus metrics
//	GET /healthz          liveness
func (s *Session) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /export/{format}", s.handleExport)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Session) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	criteria, err := s.filterFromQuery(ctx, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	download := &export.HTTPDownloader{W: w}
	_, err = s.Pipeline.Export(ctx, export.Request{
		Format:      format,
		Environment: export.EnvironmentWeb,
		Filter:      criteria,
		Sink:        export.WebSink{Downloader: download},
	})
	if err == nil {
		return
	}
	if download.Started() {
		// The attachment status is already on the wire.
		s.Log.Warn(ctx, "export download interrupted",
			logging.String("format", string(format)),
			logging.Error(err),
		)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		status = http.StatusConflict
	case export.KindOf(err) == export.KindFetch:
		status = http.StatusBadGateway
	}
	s.Log.Warn(ctx, "export request failed",
		logging.String("format", string(format)),
		logging.Int("status", status),
		logging.Error(err),
	)
	http.Error(w, err.Error(), status)
}

// filterFromQuery builds export criteria from query parameters. The glider
// parameter is a label resolved through the glider cache.
func (s *Session) filterFromQuery(ctx context.Context, r *http.Request) (*flightbook.Filter, error) {
	q := r.URL.Query()
	var f flightbook.Filter
	var err error
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if f.From, err = flightbook.ParseDate(v); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if f.To, err = flightbook.ParseDate(v); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	if v := strings.TrimSpace(q.Get("glider")); v != "" {
		g, err := s.Gliders.Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		f.GliderID = g.ID
	}
	f.Start = strings.TrimSpace(q.Get("start"))
	f.Landing = strings.TrimSpace(q.Get("landing"))
	f.Description = strings.TrimSpace(q.Get("description"))
	if f.IsZero() {
		return nil, nil
	}
	return &f, nil
}

// Serve runs the HTTP server on the configured listen address until ctx is
// cancelled.
func (s *Session) Serve(ctx context.Context) error {
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := &http.Server{
		Addr:              s.Config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info(ctx, "http server listening", logging.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.Log.Info(ctx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

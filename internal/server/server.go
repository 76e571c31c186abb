// Package server exposes the dashboard over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/evdash-cli/internal/analysis"
	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/table"
)

// RequestTimeout bounds every API request.
const RequestTimeout = 30 * time.Second

// Options configures a Server.
type Options struct {
	SortMode table.SortMode
	// PageSize for new table sessions; invalid sizes fall back to the default.
	PageSize int
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Server serves one dataset Source.
type Server struct {
	source    *dataset.Source
	opt       Options
	log       zerolog.Logger
	memo      analysis.Memo
	sessions  *table.Registry
	startedAt time.Time

	mu     sync.Mutex
	engine *table.Engine
}

// New returns a Server over src. The source may still be idle; data endpoints
// answer 503 until a load succeeds.
func New(src *dataset.Source, opt Options) *Server {
	lg := log.Logger
	if opt.Logger != nil {
		lg = *opt.Logger
	}
	if !table.ValidPageSize(opt.PageSize) {
		opt.PageSize = table.DefaultPageSize
	}
	return &Server{
		source:    src,
		opt:       opt,
		log:       lg,
		sessions:  table.NewRegistry(),
		startedAt: time.Now(),
	}
}

// Handler returns the chi router with request logging, panic recovery and
// a per-request timeout.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.zerologMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/reload", s.handleReload)

		r.Get("/summary", s.handleSummary)
		r.Get("/summary.md", s.handleSummaryMarkdown)
		r.Get("/charts/{name}", s.handleChart)
		r.Get("/charts/{name}/image", s.handleChartImage)

		r.Get("/columns", s.handleColumns)
		r.Get("/columns/{column}/values", s.handleColumnValues)

		r.Post("/tables", s.handleOpenTable)
		r.Route("/tables/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTable)
			r.Delete("/", s.handleCloseTable)
			r.Post("/search", s.handleSearch)
			r.Post("/filters", s.handleSetFilter)
			r.Delete("/filters", s.handleClearFilters)
			r.Delete("/filters/{column}", s.handleClearFilter)
			r.Post("/sort", s.handleSort)
			r.Post("/page", s.handlePage)
			r.Post("/page-size", s.handlePageSize)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.sessions.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Reload reloads the source and logs the outcome.
func (s *Server) Reload(ctx context.Context) error {
	start := time.Now()
	if err := s.source.Reload(ctx); err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("dataset load failed")
		return err
	}
	_, set, _ := s.source.Snapshot()
	s.log.Info().
		Int("records", set.Len()).
		Str("source", set.Source()).
		Str("token", set.Token()).
		Dur("elapsed", time.Since(start)).
		Msg("dataset loaded")
	for _, w := range set.Warnings() {
		s.log.Warn().Str("source", set.Source()).Msg(w)
	}
	return nil
}

// ready returns the current record set, or writes 503 when none is available.
func (s *Server) ready(w http.ResponseWriter) (*dataset.RecordSet, bool) {
	status, set, err := s.source.Snapshot()
	if status == dataset.StatusReady && set != nil {
		return set, true
	}
	body := map[string]any{"status": status}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
	return nil, false
}

// engineFor returns the query engine for set, rebuilding it when the record
// set was replaced. Open sessions belong to the old set and are closed.
func (s *Server) engineFor(set *dataset.RecordSet) *table.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil && s.engine.Set() == set {
		return s.engine
	}
	if s.engine != nil {
		if n := s.sessions.CloseAll(); n > 0 {
			s.log.Info().Int("sessions", n).Msg("record set changed; closed table sessions")
		}
	}
	s.engine = table.NewEngine(set, s.opt.SortMode)
	return s.engine
}

// Package server exposes a computed catalog and its reference counts over a
// read-only JSON API.
//
// Routes:
//
//	GET /healthz                    liveness and catalog size
//	GET /packages/{name}            fields, dependencies and count of one package
//	GET /packages/{name}/closure    transitive closure in traversal order
//	GET /packages/{name}/graph      closure as Graphviz DOT
//	GET /counts?limit=N             count table, highest first
//	GET /counts/{name}              count of one package
//
// Errors are returned as {"error": ..., "code": ...} with a status derived
// from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/debtower/pkg/debian"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// Snapshot is the data served by the API.
type Snapshot struct {
	Catalog *debian.Catalog
	Counts  refcount.Counts
	Source  string
	BuiltAt time.Time

	sorted []refcount.Entry
}

// NewSnapshot precomputes the sorted count table.
func NewSnapshot(c *debian.Catalog, counts refcount.Counts, source string) *Snapshot {
	return &Snapshot{
		Catalog: c,
		Counts:  counts,
		Source:  source,
		BuiltAt: time.Now().UTC(),
		sorted:  counts.Sorted(),
	}
}

// Server serves one [Snapshot] at a time; [Server.Update] swaps it
// atomically.
type Server struct {
	router chi.Router
	snap   atomic.Pointer[Snapshot]
	logger *log.Logger
}

// New creates a server for snap. A nil logger discards request logs.
func New(snap *Snapshot, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{logger: logger}
	s.snap.Store(snap)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/packages/{name}", func(r chi.Router) {
		r.Get("/", s.getPackage)
		r.Get("/closure", s.getClosure)
		r.Get("/graph", s.getGraph)
	})
	r.Get("/counts", s.listCounts)
	r.Get("/counts/{name}", s.getCount)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFound("no route for %s", r.URL.Path))
	})

	s.router = r
	return s
}

// Update replaces the served snapshot.
func (s *Server) Update(snap *Snapshot) { s.snap.Store(snap) }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

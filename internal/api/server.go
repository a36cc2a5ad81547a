// Package api serves the workout log over HTTP with chi.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/liftlog/internal/logstore"
	"github.com/roach88/liftlog/internal/record"
)

// LogStore is the part of *logstore.Store the handlers use.
type LogStore interface {
	GetLogData(ctx context.Context, filter *logstore.FilterCriteria) ([]record.LogRecord, error)
	AddEntry(ctx context.Context, entry record.LogRecord) (record.LogRecord, error)
	UpdateEntry(ctx context.Context, original, updated record.LogRecord) error
	DeleteEntry(ctx context.Context, rec record.LogRecord) error
	RenameExercise(ctx context.Context, oldName, newName string) (int, error)
	Exercises(ctx context.Context) ([]string, error)
	LastEntryForExercise(ctx context.Context, name string) (record.LogRecord, bool, error)
	Columns(ctx context.Context) ([]string, error)
	CustomColumns(ctx context.Context) ([]string, error)
	EnsureColumnExists(ctx context.Context, name string) error
	ClearCache()
	CacheStats() logstore.CacheStats
}

// Options tunes the HTTP server.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Server is the liftlog HTTP server.
type Server struct {
	store  LogStore
	router *chi.Mux
	server *http.Server
	opts   Options
}

// NewServer builds a Server with its routes and middleware installed.
func NewServer(store LogStore, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		store:  store,
		router: chi.NewRouter(),
		opts:   opts,
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/records", s.handleListRecords)
		r.Post("/records", s.handleAddRecord)
		r.Put("/records", s.handleUpdateRecord)
		r.Delete("/records", s.handleDeleteRecord)

		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/last", s.handleLastEntry)
		r.Post("/exercises/rename", s.handleRename)

		r.Get("/columns", s.handleListColumns)
		r.Post("/columns", s.handleAddColumn)

		r.Post("/cache/clear", s.handleClearCache)
	})
}

// ServeHTTP lets the Server be used directly as a handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr and serves until Shutdown is called. It returns nil
// after a clean shutdown, including one that happens before Start.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	slog.Info("starting server", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

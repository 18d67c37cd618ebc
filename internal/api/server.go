// Package api serves the portfolio over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/TamChouWeng/my-asset-sub000/internal/buildinfo"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/portfolio"
)

// Options configures the API.
type Options struct {
	Session  *portfolio.Session
	Registry *importer.Registry
	Currency string  // default currency when a request names none
	PageSize int     // default page size
	Rate     float64 // requests per second; 0 disables limiting
	Burst    int
	Now      func() time.Time
	// OnChange runs after every successful mutation, e.g. to commit the
	// ledger.
	OnChange func(ctx context.Context, message string)
}

type server struct {
	opts Options
}

// NewHandler builds the router.
func NewHandler(opts Options) http.Handler {
	if opts.Registry == nil {
		opts.Registry = importer.DefaultRegistry()
	}
	if opts.Currency == "" {
		opts.Currency = model.DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if opts.Rate > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Get("/records", s.listRecords)
		r.Post("/records", s.createRecord)
		r.Post("/records/delete", s.deleteRecords)
		r.Put("/records/{id}", s.replaceRecord)
		r.Delete("/records/{id}", s.deleteRecord)

		r.Get("/dashboard", s.dashboard)
		r.Get("/property", s.property)
		r.Get("/fixed-deposits", s.fixedDeposits)

		r.Get("/export", s.export)
		r.Post("/import", s.importCSV)
		r.Post("/maturity/scan", s.scanMaturity)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func (s *server) changed(ctx context.Context, format string, args ...any) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(ctx, fmt.Sprintf(format, args...))
	}
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// ListenAndServe serves handler on addr until ctx is canceled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		// Requests inherit the logger but not the shutdown signal.
		BaseContext: func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	log := logger.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

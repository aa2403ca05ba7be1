// Package api serves the reservation HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/soyoshik-git/bro-reserve/internal/database"
	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/metrics"
	"github.com/soyoshik-git/bro-reserve/internal/models"
)

// Server is the public HTTP API.
type Server struct {
	httpServer *http.Server
	db         *database.DB
	engine     *engine.Service
	cache      *AvailabilityCache
	limiter    *rate.Limiter
	logger     *zerolog.Logger
	opts       Options
}

// Options carry the tunables the server needs beyond its collaborators.
type Options struct {
	Addr            string
	RateLimitPerSec float64
	RateLimitBurst  int
	MaxRangeDays    int
}

func (o Options) maxRangeDays() int {
	if o.MaxRangeDays <= 0 {
		return 90
	}
	return o.MaxRangeDays
}

// NewServer wires the routes. cache may be nil when redis is not
// configured.
func NewServer(db *database.DB, eng *engine.Service, cache *AvailabilityCache, opts Options, logger *zerolog.Logger) *Server {
	s := &Server{
		db:     db,
		engine: eng,
		cache:  cache,
		logger: logger,
		opts:   opts,
	}
	if opts.RateLimitPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateLimitBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/availability/range", s.handleAvailabilityRange)
	mux.HandleFunc("/api/v1/reservations", s.handleReservations)
	mux.HandleFunc("/api/v1/reservations/export", s.handleExport)
	mux.HandleFunc("/api/v1/reservations/", s.handleReservationByID)
	mux.HandleFunc("/api/v1/schedule/", s.handleSchedule)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.withRateLimit(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving requests until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps domain errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSlotConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNotWorking):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, engine.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrStatusConflict),
		errors.Is(err, models.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrDuplicateException):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrDurationNotAllowed),
		errors.Is(err, engine.ErrOutsideBookingWindow),
		errors.Is(err, engine.ErrSlotMisaligned):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func incEndpoint(name string) {
	metrics.IncHTTPRequest(name)
}

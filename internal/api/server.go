package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

const (
	defaultSnapshotLimit = 20
	maxQueryLimit        = 1000
)

var tickerRegexp = regexp.MustCompile(`^[A-Za-z0-9.\-]{1,16}$`)

type LatestQuery interface {
	Points(ctx context.Context) ([]models.QueryRow, error)
}

type SnapshotReader interface {
	Latest(ctx context.Context, ticker string, limit int) ([]models.SnapshotRow, error)
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Addr       string
	APIKey     string
	CORSOrigin string
	Latest     LatestQuery
	// Snapshots is optional; without it the snapshot routes are not mounted.
	Snapshots SnapshotReader
	Checks    map[string]HealthCheck
}

type Server struct {
	latest     LatestQuery
	snapshots  SnapshotReader
	checks     map[string]HealthCheck
	httpServer *http.Server
	apiKey     string
	logger     *zap.Logger
}

func NewServer(opts Options, logger *zap.Logger) *Server {
	s := &Server{
		latest:    opts.Latest,
		snapshots: opts.Snapshots,
		checks:    opts.Checks,
		apiKey:    opts.APIKey,
		logger:    logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/metrics/latest", s.handleLatestMetrics)
	if s.snapshots != nil {
		mux.HandleFunc("GET /v1/snapshots/{ticker}", s.handleSnapshots)
	}

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.authMiddleware(corsMiddleware(mux, opts.CORSOrigin)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("REST API server started",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("auth", s.apiKey != ""),
		zap.Bool("snapshot_routes", s.snapshots != nil))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateTicker(ticker string) bool {
	return tickerRegexp.MatchString(ticker)
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

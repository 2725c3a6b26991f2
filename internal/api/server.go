package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gnsslab/gnss-constellation-sim/internal/auth"
	"github.com/gnsslab/gnss-constellation-sim/internal/constellation"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/health"
	"github.com/gnsslab/gnss-constellation-sim/internal/httputil"
	"github.com/gnsslab/gnss-constellation-sim/internal/metrics"
	"github.com/gnsslab/gnss-constellation-sim/internal/stream"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// DefaultLocation is the observer position served until a client sets
	// one via POST /api/v1/location.
	DefaultLocation geodesy.Geodetic

	Stream stream.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	svc        *constellation.Service
	location   atomic.Pointer[geodesy.Geodetic]
	trustProxy bool
}

// NewServer creates a configured HTTP server around a constellation service.
func NewServer(cfg Config, svc *constellation.Service, logger *slog.Logger) *Server {
	s := &Server{
		logger:     logger,
		svc:        svc,
		trustProxy: cfg.TrustProxy,
	}
	loc := cfg.DefaultLocation
	s.location.Store(&loc)

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(nil))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /api/v1/location", s.handleGetLocation)
	mux.HandleFunc("POST /api/v1/location", s.handleSetLocation)
	mux.HandleFunc("GET /api/v1/constellation", s.handleConstellation)
	mux.HandleFunc("GET /api/v1/satellites", s.handleSatellites)
	mux.HandleFunc("GET /api/v1/satellites/{prn}", s.handleSatellite)
	mux.HandleFunc("GET /api/v1/health", s.handleConstellationHealth)
	mux.HandleFunc("GET /api/v1/passes", s.handlePasses)

	streamHandler := stream.NewHandler(svc, func() geodesy.Geodetic {
		return *s.location.Load()
	}, cfg.Stream, cfg.TrustProxy, logger)
	mux.HandleFunc("GET /api/v1/stream/constellation", streamHandler.HandleConstellation)

	var limiter *IPRateLimiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = NewIPRateLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	// Build middleware chain: metrics -> logging -> ratelimit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = rateLimitMiddleware(limiter, cfg.TrustProxy)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer so http.ResponseController can reach
// flush and deadline support on streaming responses.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Flush forwards to the wrapped writer so SSE handlers behind the
// middleware still see an http.Flusher.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

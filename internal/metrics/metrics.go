package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnsssim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gnsssim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	ephemerisSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnsssim_ephemeris_satellites",
			Help: "Number of satellites in the loaded ephemeris dataset.",
		},
	)

	ephemerisAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnsssim_ephemeris_age_seconds",
			Help: "Age of the loaded ephemeris dataset in seconds (-1 when empty).",
		},
	)

	ephemerisBlocksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnsssim_ephemeris_blocks_skipped_total",
			Help: "Malformed navigation blocks dropped during parsing.",
		},
	)

	ephemerisRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnsssim_ephemeris_refresh_total",
			Help: "Ephemeris refresh attempts by result.",
		},
		[]string{"result"},
	)

	constellationComputed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnsssim_constellation_computations_total",
			Help: "Constellation states computed.",
		},
	)

	streamConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnsssim_stream_connections_total",
			Help: "SSE stream connect/disconnect events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gnsssim_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnsssim_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gnsssim_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gnsssim_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(ephemerisSatellites)
	prometheus.MustRegister(ephemerisAgeSeconds)
	prometheus.MustRegister(ephemerisBlocksSkipped)
	prometheus.MustRegister(ephemerisRefreshTotal)
	prometheus.MustRegister(constellationComputed)
	prometheus.MustRegister(streamConnections)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamMessages)
	prometheus.MustRegister(streamBytes)
	prometheus.MustRegister(streamErrors)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetEphemerisDataset records the size and age of the current dataset.
func SetEphemerisDataset(satellites int, ageSeconds float64) {
	ephemerisSatellites.Set(float64(satellites))
	ephemerisAgeSeconds.Set(ageSeconds)
}

// AddBlocksSkipped counts malformed blocks dropped by a parse pass.
func AddBlocksSkipped(n int) {
	ephemerisBlocksSkipped.Add(float64(n))
}

// ObserveRefresh counts one refresh attempt; result is "ok" or "error".
func ObserveRefresh(result string) {
	ephemerisRefreshTotal.WithLabelValues(result).Inc()
}

// IncConstellationComputed counts one full constellation state assembly.
func IncConstellationComputed() {
	constellationComputed.Inc()
}

// IncStreamConnections counts a stream lifecycle event ("connect" or
// "disconnect").
func IncStreamConnections(event string) {
	streamConnections.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamMessages counts one SSE data message.
func IncStreamMessages() {
	streamMessages.Inc()
}

// AddStreamBytes counts bytes written to a stream.
func AddStreamBytes(n int64) {
	streamBytes.Add(float64(n))
}

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrors.WithLabelValues(reason).Inc()
}

// knownRoutes are the exact paths the server serves.
var knownRoutes = map[string]bool{
	"/":                     true,
	"/healthz":              true,
	"/readyz":               true,
	"/metrics":              true,
	"/api/v1/location":      true,
	"/api/v1/constellation": true,
	"/api/v1/satellites":    true,
	"/api/v1/health":        true,
	"/api/v1/passes":        true,

	"/api/v1/stream/constellation": true,
}

// normalizeRoute collapses request paths into a bounded label set so bot
// scans and per-satellite paths cannot explode metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/satellites/") {
		return "/api/v1/satellites/{prn}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer so http.ResponseController can reach
// flush and deadline support on streaming responses.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush forwards to the wrapped writer so SSE handlers behind the
// middleware still see an http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

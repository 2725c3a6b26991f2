// Package stream implements Server-Sent Events (SSE) streaming of
// constellation states. Clients connect via GET /api/v1/stream/constellation
// and receive the observer's sky picture recomputed on a fixed interval.
//
// SSE message format:
//
//	data: {"type":"state","state":{...constellation state...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","freshness":"fresh","data_age_seconds":1800,"satellites":31}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/constellation"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/httputil"
	"github.com/gnsslab/gnss-constellation-sim/internal/metrics"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // max concurrent streams per IP (default: 10)
	KeepaliveInterval  time.Duration // keep-alive ping interval (default: 30s)
}

// Handler manages SSE streaming connections.
type Handler struct {
	svc        *constellation.Service
	location   func() geodesy.Geodetic
	config     Config
	limiter    *streamLimiter
	trustProxy bool
	logger     *slog.Logger
}

// NewHandler creates a streaming handler. location supplies the current
// observer position on each recomputation.
func NewHandler(svc *constellation.Service, location func() geodesy.Geodetic, config Config, trustProxy bool, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP < 1 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		svc:        svc,
		location:   location,
		config:     config,
		limiter:    newStreamLimiter(config.MaxConcurrentPerIP),
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// HandleConstellation serves the SSE constellation stream.
// GET /api/v1/stream/constellation?interval=5
func (h *Handler) HandleConstellation(w http.ResponseWriter, r *http.Request) {
	interval := 5
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid interval parameter, must be 1-60"})
			return
		}
		interval = n
	}

	// Enforce the concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.trustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval", interval,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) to prevent thundering-herd reconnection
	// storms when the server restarts.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	// Metadata is the first message on every connection.
	health := h.svc.Health(time.Now().UTC())
	meta := metadataMessage{
		Type:       "metadata",
		Freshness:  health.Freshness,
		DataAge:    int(health.DataAgeSeconds),
		Satellites: health.TotalSatellites,
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			state := h.svc.State(h.location(), t.UTC())
			metrics.IncConstellationComputed()

			if err := c.sendJSON(stateMessage{Type: "state", State: state}); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type       string `json:"type"`
	Freshness  string `json:"freshness"`
	DataAge    int    `json:"data_age_seconds"`
	Satellites int    `json:"satellites"`
}

type stateMessage struct {
	Type  string              `json:"type"`
	State constellation.State `json:"state"`
}

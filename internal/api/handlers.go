package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/constellation"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/metrics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleRoot serves basic service identification.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "gnss-constellation-sim",
		"status":  "running",
	})
}

// handleGetLocation returns the current observer location with its
// constellation quality assessment.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	loc := s.location.Load()
	info, err := s.svc.LocationInfo(loc.LatDeg, loc.LonDeg, loc.AltM, time.Now().UTC())
	if err != nil {
		// The stored location was validated when set; reaching here means
		// a programming error, not a client one.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.IncConstellationComputed()
	writeJSON(w, http.StatusOK, info)
}

// locationRequest is the POST /api/v1/location body.
type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// handleSetLocation validates a candidate observer location and, if
// acceptable, publishes it as the new current location.
func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	info, err := s.svc.LocationInfo(req.Latitude, req.Longitude, req.Altitude, time.Now().UTC())
	if err != nil {
		var verr *constellation.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":      "validation failed",
				"violations": verr.Violations,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	loc := geodesy.Geodetic{LatDeg: req.Latitude, LonDeg: req.Longitude, AltM: req.Altitude}
	s.location.Store(&loc)
	s.logger.Info("observer location updated",
		"lat", loc.LatDeg, "lon", loc.LonDeg, "alt", loc.AltM, "quality", info.Quality)

	metrics.IncConstellationComputed()
	writeJSON(w, http.StatusOK, info)
}

// handleConstellation returns the full constellation state for the current
// observer location.
func (s *Server) handleConstellation(w http.ResponseWriter, r *http.Request) {
	loc := s.location.Load()
	state := s.svc.State(*loc, time.Now().UTC())
	metrics.IncConstellationComputed()
	writeJSON(w, http.StatusOK, state)
}

// handleSatellites lists the satellite ids of the active constellation.
func (s *Server) handleSatellites(w http.ResponseWriter, r *http.Request) {
	prns := s.svc.AvailablePRNs(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{
		"prns":  prns,
		"count": len(prns),
	})
}

// handleSatellite returns one satellite's observation from the current
// observer location.
func (s *Server) handleSatellite(w http.ResponseWriter, r *http.Request) {
	prn, err := strconv.Atoi(r.PathValue("prn"))
	if err != nil || prn < 1 {
		writeError(w, http.StatusBadRequest, "invalid prn")
		return
	}

	loc := s.location.Load()
	sat, ok := s.svc.Satellite(*loc, prn, time.Now().UTC())
	if !ok {
		writeError(w, http.StatusNotFound, "satellite not found")
		return
	}
	writeJSON(w, http.StatusOK, sat)
}

// Pass prediction bounds. The horizon cap keeps a single request's scan
// work bounded.
const (
	defaultPassHorizonHours = 6
	maxPassHorizonHours     = 72
	defaultMaxWindows       = 10
)

// handlePasses predicts visibility windows for the current observer.
// GET /api/v1/passes?hours=6&prn=7&prn=12&max=10
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	hours := float64(defaultPassHorizonHours)
	if v := q.Get("hours"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 || n > maxPassHorizonHours {
			writeError(w, http.StatusBadRequest, "invalid hours parameter, must be in (0, 72]")
			return
		}
		hours = n
	}

	maxWindows := defaultMaxWindows
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid max parameter, must be 1-100")
			return
		}
		maxWindows = n
	}

	var prns []int
	for _, v := range q["prn"] {
		prn, err := strconv.Atoi(v)
		if err != nil || prn < 1 {
			writeError(w, http.StatusBadRequest, "invalid prn parameter")
			return
		}
		prns = append(prns, prn)
	}

	loc := s.location.Load()
	start := time.Now().UTC()
	results := s.svc.PredictWindows(r.Context(), *loc, start, hours, prns, maxWindows)

	writeJSON(w, http.StatusOK, map[string]any{
		"start":         start,
		"horizon_hours": hours,
		"observer":      *loc,
		"satellites":    results,
	})
}

// handleConstellationHealth reports on the loaded ephemeris dataset.
func (s *Server) handleConstellationHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(time.Now().UTC()))
}

// Package passes predicts visibility windows: the periods during which a
// satellite stays above the observer's elevation mask.
package passes

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/visibility"
)

// Window describes a single visibility window of one satellite.
type Window struct {
	StartTime        time.Time `json:"start_time"`
	MaxElevationTime time.Time `json:"max_elevation_time"`
	EndTime          time.Time `json:"end_time"`
	DurationSeconds  float64   `json:"duration_seconds"`
	MaxElevation     float64   `json:"max_elevation"`
	AzimuthAtMax     float64   `json:"azimuth_at_max"`
	StartAzimuth     float64   `json:"start_azimuth"`
	EndAzimuth       float64   `json:"end_azimuth"`
}

// SatelliteWindows holds the predicted windows for one satellite.
type SatelliteWindows struct {
	PRN     int      `json:"prn"`
	Windows []Window `json:"windows"`
}

// Source yields a satellite's ECEF position as a function of time.
type Source struct {
	PRN      int
	Position func(t time.Time) geodesy.ECEF
}

// Request holds the parameters for a window prediction request.
type Request struct {
	Observer     geodesy.Geodetic
	Satellites   []Source
	Start        time.Time
	HorizonHours float64
	MinElevation float64 // degrees; <= 0 selects the standard mask
	MaxWindows   int
}

// Scan resolution. GPS geometry changes slowly, so the coarse step can be
// much wider than for low orbits.
const (
	coarseStepSec = 60
	fineStepSec   = 5
	minWindowDur  = time.Minute
)

// Predict computes visibility windows for every requested satellite.
// Each satellite is processed in its own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) []SatelliteWindows {
	if req.MinElevation <= 0 {
		req.MinElevation = visibility.ElevationMaskDeg
	}

	results := make([]SatelliteWindows, len(req.Satellites))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, src := range req.Satellites {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatelliteWindows{PRN: s.PRN}
				return
			}

			results[idx] = SatelliteWindows{
				PRN:     s.PRN,
				Windows: predictSatellite(ctx, req, s),
			}
		}(i, src)
	}

	wg.Wait()
	return results
}

// predictSatellite finds all windows for a single satellite.
func predictSatellite(ctx context.Context, req Request, src Source) []Window {
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var windows []Window

	// Coarse scan: step through the horizon looking for elevation above the
	// mask, then refine each hit.
	t := req.Start
	for t.Before(end) && (req.MaxWindows <= 0 || len(windows) < req.MaxWindows) {
		if ctx.Err() != nil {
			return windows
		}

		look := lookAt(src, req.Observer, t)
		if look.ElevationDeg >= req.MinElevation {
			w, windowEnd := refineWindow(ctx, src, req.Observer, t, req.Start, end, req.MinElevation)
			if w != nil && w.EndTime.Sub(w.StartTime) >= minWindowDur {
				windows = append(windows, *w)
			}
			t = windowEnd.Add(coarseStepSec * time.Second)
		} else {
			t = t.Add(coarseStepSec * time.Second)
		}
	}

	return windows
}

// refineWindow does a fine-grained scan around a coarse hit. It backs up to
// find the actual rise, then scans forward to find the set. Returns the
// window and the time its scan ended.
func refineWindow(ctx context.Context, src Source, obs geodesy.Geodetic, coarseHit, windowStart, windowEnd time.Time, minElev float64) (*Window, time.Time) {
	searchStart := coarseHit.Add(-coarseStepSec * time.Second)
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		riseTime  time.Time
		setTime   time.Time
		riseAz    float64
		setAz     float64
		maxEl     float64
		maxElTime time.Time
		maxElAz   float64
		wasAbove  bool
		foundRise bool
	)

	t := searchStart
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		look := lookAt(src, obs, t)
		above := look.ElevationDeg >= minElev

		if above && !wasAbove {
			riseTime = t
			riseAz = look.AzimuthDeg
			foundRise = true
			maxEl = look.ElevationDeg
			maxElTime = t
			maxElAz = look.AzimuthDeg
		}

		if above && foundRise && look.ElevationDeg > maxEl {
			maxEl = look.ElevationDeg
			maxElTime = t
			maxElAz = look.AzimuthDeg
		}

		if !above && wasAbove && foundRise {
			setTime = t
			setAz = look.AzimuthDeg
			break
		}

		wasAbove = above
		t = t.Add(fineStepSec * time.Second)
	}

	// Still above the mask at the horizon: close the window there.
	if foundRise && setTime.IsZero() && wasAbove {
		look := lookAt(src, obs, t)
		setTime = t
		setAz = look.AzimuthDeg
		if look.ElevationDeg > maxEl {
			maxEl = look.ElevationDeg
			maxElTime = t
			maxElAz = look.AzimuthDeg
		}
	}

	if !foundRise || setTime.IsZero() {
		return nil, t
	}

	return &Window{
		StartTime:        riseTime,
		MaxElevationTime: maxElTime,
		EndTime:          setTime,
		DurationSeconds:  setTime.Sub(riseTime).Seconds(),
		MaxElevation:     maxEl,
		AzimuthAtMax:     maxElAz,
		StartAzimuth:     riseAz,
		EndAzimuth:       setAz,
	}, setTime
}

// lookAt computes the observer's look angles to the satellite at time t.
func lookAt(src Source, obs geodesy.Geodetic, t time.Time) visibility.Result {
	return visibility.Compute(obs, src.Position(t))
}

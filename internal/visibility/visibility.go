// Package visibility computes satellite look angles for a ground observer.
package visibility

import (
	"math"

	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

// ElevationMaskDeg is the minimum elevation at which a satellite counts as
// visible. The boundary itself is visible.
const ElevationMaskDeg = 5.0

// Result holds the look angles and slant range from an observer to a
// satellite, plus the mask decision.
type Result struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeM       float64
	Visible      bool
}

// Visible reports whether an elevation clears the mask.
func Visible(elevationDeg float64) bool {
	return elevationDeg >= ElevationMaskDeg
}

// Compute projects the satellite's ECEF position into the observer's local
// ENU frame and derives azimuth (degrees clockwise from true north, in
// [0, 360)), elevation, and slant range.
func Compute(observer geodesy.Geodetic, sat geodesy.ECEF) Result {
	enu := geodesy.ECEFToENU(observer, sat)

	rng := math.Sqrt(enu.East*enu.East + enu.North*enu.North + enu.Up*enu.Up)

	az := math.Atan2(enu.East, enu.North) * 180.0 / math.Pi
	az = math.Mod(az+360.0, 360.0)

	var el float64
	if rng > 0 {
		el = math.Asin(enu.Up/rng) * 180.0 / math.Pi
	}

	return Result{
		AzimuthDeg:   az,
		ElevationDeg: el,
		RangeM:       rng,
		Visible:      Visible(el),
	}
}

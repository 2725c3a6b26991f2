package orbit

import (
	"math"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
)

const (
	// WGS-84 Earth gravitational constant, m³/s².
	earthGravitationalParam = 3.986005e14

	secondsPerWeek = 604800.0
	halfWeekSec    = 302400.0
)

// gpsEpoch is the origin of GPS system time (1980-01-06T00:00:00Z).
// Leap seconds are ignored; the resulting sub-minute bias is far below the
// fidelity of this geometry model.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// gpsSecondsOfWeek returns the seconds into the current GPS week at t.
func gpsSecondsOfWeek(t time.Time) float64 {
	elapsed := t.Sub(gpsEpoch).Seconds()
	return math.Mod(elapsed, secondsPerWeek)
}

// FromEphemeris derives the osculating elements for a broadcast ephemeris
// record at time t. Mean anomaly, inclination, and RAAN are advanced from
// the reference epoch by their broadcast rates; the corrected mean motion
// includes the record's delta-n term.
func FromEphemeris(rec ephemeris.Record, t time.Time) Elements {
	a := rec.SqrtA * rec.SqrtA

	// Time from ephemeris reference epoch, wrapped to the nearer half week.
	tk := gpsSecondsOfWeek(t) - rec.Toe
	if tk > halfWeekSec {
		tk -= secondsPerWeek
	} else if tk < -halfWeekSec {
		tk += secondsPerWeek
	}

	n0 := math.Sqrt(earthGravitationalParam / (a * a * a))
	n := n0 + rec.DeltaN

	return Elements{
		SemiMajorAxisM: a,
		Eccentricity:   rec.Ecc,
		InclinationRad: rec.I0 + rec.Idot*tk,
		RAANRad:        rec.Omega0 + rec.OmegaDot*tk,
		ArgPerigeeRad:  rec.Omega,
		MeanAnomalyRad: rec.M0 + n*tk,
	}
}

// Package orbit computes satellite ECEF positions from Keplerian elements.
// Elements come from one of two explicitly tagged sources: the synthetic
// orbital-slot model or a parsed broadcast ephemeris record.
package orbit

import (
	"math"

	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

// Kepler-equation iteration bounds. The fixed-point solve returns its last
// iterate on non-convergence; it never fails.
const (
	keplerMaxIterations = 10
	keplerTolRad        = 1e-12
)

// Mode identifies which model produced a satellite's elements.
type Mode int

const (
	// ModeSynthetic marks positions from the canonical orbital-slot model.
	ModeSynthetic Mode = iota + 1
	// ModeEphemeris marks positions propagated from broadcast ephemeris.
	ModeEphemeris
)

func (m Mode) String() string {
	switch m {
	case ModeSynthetic:
		return "synthetic"
	case ModeEphemeris:
		return "ephemeris"
	default:
		return "unknown"
	}
}

// Elements is a set of Keplerian orbital elements. Angles are radians,
// the semi-major axis is meters.
type Elements struct {
	SemiMajorAxisM float64
	Eccentricity   float64
	InclinationRad float64
	RAANRad        float64
	ArgPerigeeRad  float64
	MeanAnomalyRad float64
}

// ECEF propagates the elements to an Earth-fixed Cartesian position:
// Kepler's equation is solved for the eccentric anomaly, the true anomaly
// follows from the half-angle form, and the in-plane position is rotated
// through argument of perigee, inclination, and RAAN (3-1-3 sequence).
func (el Elements) ECEF() geodesy.ECEF {
	e := el.Eccentricity

	ea := solveKepler(el.MeanAnomalyRad, e)

	// True anomaly via the half-angle arctangent form.
	nu := 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(ea/2),
		math.Sqrt(1-e)*math.Cos(ea/2),
	)

	// Orbital radius and in-plane position.
	r := el.SemiMajorAxisM * (1 - e*math.Cos(ea))
	xOrb := r * math.Cos(nu)
	yOrb := r * math.Sin(nu)

	sinRAAN := math.Sin(el.RAANRad)
	cosRAAN := math.Cos(el.RAANRad)
	sinArgP := math.Sin(el.ArgPerigeeRad)
	cosArgP := math.Cos(el.ArgPerigeeRad)
	sinInc := math.Sin(el.InclinationRad)
	cosInc := math.Cos(el.InclinationRad)

	return geodesy.ECEF{
		X: (cosRAAN*cosArgP-sinRAAN*sinArgP*cosInc)*xOrb +
			(-cosRAAN*sinArgP-sinRAAN*cosArgP*cosInc)*yOrb,
		Y: (sinRAAN*cosArgP+cosRAAN*sinArgP*cosInc)*xOrb +
			(-sinRAAN*sinArgP+cosRAAN*cosArgP*cosInc)*yOrb,
		Z: sinArgP*sinInc*xOrb + cosArgP*sinInc*yOrb,
	}
}

// solveKepler solves M = E - e·sin(E) for the eccentric anomaly by
// fixed-point iteration. Returns the last iterate if the tolerance is not
// reached within keplerMaxIterations.
func solveKepler(meanAnomaly, ecc float64) float64 {
	ea := meanAnomaly
	for i := 0; i < keplerMaxIterations; i++ {
		next := meanAnomaly + ecc*math.Sin(ea)
		if math.Abs(next-ea) < keplerTolRad {
			return next
		}
		ea = next
	}
	return ea
}

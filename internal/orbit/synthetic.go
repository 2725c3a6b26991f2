package orbit

import (
	"math"
	"time"
)

// Synthetic GPS constellation model: 6 orbital planes of 4 slots on
// near-circular 12-hour orbits. Used whenever no broadcast ephemeris is
// available for a satellite.
const (
	SyntheticPlanes = 6
	SlotsPerPlane   = 4

	syntheticRadiusM   = 26_560_000.0 // approximate GPS semi-major axis
	syntheticPeriodSec = 43_200.0     // ~12 h orbital period
	syntheticInclDeg   = 55.0
	syntheticEcc       = 0.02
	planeSpacingDeg    = 60.0
	slotSpacingDeg     = 90.0
)

// SyntheticPRNs returns the canonical satellite ids of the synthetic
// constellation: PRN 1 through 24, one per plane/slot pair.
func SyntheticPRNs() []int {
	prns := make([]int, 0, SyntheticPlanes*SlotsPerPlane)
	for prn := 1; prn <= SyntheticPlanes*SlotsPerPlane; prn++ {
		prns = append(prns, prn)
	}
	return prns
}

// SyntheticElements returns the slot-model elements for a satellite at the
// given wall-clock instant. The model is stateless: mean anomaly is a pure
// function of the epoch seconds modulo the orbital period.
func SyntheticElements(prn int, t time.Time) Elements {
	plane := (prn - 1) / SlotsPerPlane
	slot := (prn - 1) % SlotsPerPlane

	epochSec := float64(t.UnixNano()) / 1e9
	phase := math.Mod(epochSec, syntheticPeriodSec) / syntheticPeriodSec
	meanAnomalyDeg := math.Mod(float64(slot)*slotSpacingDeg+phase*360.0, 360.0)

	return Elements{
		SemiMajorAxisM: syntheticRadiusM,
		Eccentricity:   syntheticEcc,
		InclinationRad: syntheticInclDeg * math.Pi / 180.0,
		RAANRad:        float64(plane) * planeSpacingDeg * math.Pi / 180.0,
		ArgPerigeeRad:  0,
		MeanAnomalyRad: meanAnomalyDeg * math.Pi / 180.0,
	}
}

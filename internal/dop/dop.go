// Package dop computes position dilution of precision from satellite
// geometry.
package dop

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

const (
	// Indeterminate is returned when the geometry cannot support a fix:
	// fewer than four satellites, or a singular normal matrix.
	Indeterminate = 999.9

	// MaxPDOP caps reportable values for pathological but solvable
	// geometries.
	MaxPDOP = 99.9

	// maxSatellites bounds the geometry matrix to the strongest case a
	// typical receiver channels; extra satellites beyond the first eight
	// are ignored.
	maxSatellites = 8
)

// PDOP computes the position dilution of precision for an observer and a
// set of satellite positions, both in ECEF coordinates. Only the first
// maxSatellites entries contribute.
func PDOP(observer geodesy.ECEF, sats []geodesy.ECEF) float64 {
	if len(sats) > maxSatellites {
		sats = sats[:maxSatellites]
	}
	if len(sats) < 4 {
		return Indeterminate
	}

	n := len(sats)
	g := mat.NewDense(n, 4, nil)
	for i, sat := range sats {
		dx := sat.X - observer.X
		dy := sat.Y - observer.Y
		dz := sat.Z - observer.Z
		d := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if d == 0 {
			return Indeterminate
		}
		g.SetRow(i, []float64{dx / d, dy / d, dz / d, 1})
	}

	var gtg mat.Dense
	gtg.Mul(g.T(), g)

	var cov mat.Dense
	if err := cov.Inverse(&gtg); err != nil {
		return Indeterminate
	}

	tr := cov.At(0, 0) + cov.At(1, 1) + cov.At(2, 2)
	if tr < 0 {
		return Indeterminate
	}

	pdop := math.Sqrt(tr)
	if pdop > MaxPDOP {
		return MaxPDOP
	}
	return pdop
}

// Package geodesy provides WGS-84 coordinate conversions between geodetic,
// ECEF, and local East-North-Up frames, plus great-circle distance/bearing.
package geodesy

import "math"

// WGS-84 ellipsoid parameters.
const (
	WGS84SemiMajorAxis  = 6378137.0                               // meters
	WGS84Flattening     = 1.0 / 298.257223563                     // dimensionless
	WGS84EccentricitySq = WGS84Flattening * (2 - WGS84Flattening) // first eccentricity squared

	// MeanEarthRadius is the spherical radius used by DistanceBearing.
	// Great-circle results are coarse by construction; the ellipsoid is
	// deliberately not used there.
	MeanEarthRadius = 6371000.0 // meters
)

// geodeticIterations caps the ECEF→geodetic latitude refinement.
const (
	geodeticIterations = 10
	geodeticTolRad     = 1e-12
)

// Geodetic is a WGS-84 geodetic position. Degrees for latitude/longitude,
// meters above the ellipsoid for altitude. Values are immutable.
type Geodetic struct {
	LatDeg float64 `json:"latitude"`
	LonDeg float64 `json:"longitude"`
	AltM   float64 `json:"altitude"`
}

// ECEF is an Earth-Centered, Earth-Fixed Cartesian position in meters.
type ECEF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ENU is a local East-North-Up offset from an observer, in meters.
type ENU struct {
	East  float64
	North float64
	Up    float64
}

// GeodeticToECEF converts a geodetic position to ECEF using the closed-form
// WGS-84 expressions.
func GeodeticToECEF(c Geodetic) ECEF {
	lat := c.LatDeg * math.Pi / 180.0
	lon := c.LonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	n := WGS84SemiMajorAxis / math.Sqrt(1-WGS84EccentricitySq*sinLat*sinLat)

	return ECEF{
		X: (n + c.AltM) * cosLat * math.Cos(lon),
		Y: (n + c.AltM) * cosLat * math.Sin(lon),
		Z: (n*(1-WGS84EccentricitySq) + c.AltM) * sinLat,
	}
}

// ECEFToGeodetic converts an ECEF position to geodetic coordinates.
// Longitude is exact; latitude and altitude are refined iteratively, up to
// geodeticIterations passes or until successive latitude estimates differ by
// less than geodeticTolRad. The last iterate is returned even when the loop
// does not converge; for terrestrial and orbital positions it converges in a
// few passes.
func ECEFToGeodetic(p ECEF) Geodetic {
	lon := math.Atan2(p.Y, p.X)

	rho := math.Hypot(p.X, p.Y)
	lat := math.Atan2(p.Z, rho*(1-WGS84EccentricitySq))

	var alt float64
	for i := 0; i < geodeticIterations; i++ {
		sinLat := math.Sin(lat)
		n := WGS84SemiMajorAxis / math.Sqrt(1-WGS84EccentricitySq*sinLat*sinLat)
		alt = rho/math.Cos(lat) - n
		next := math.Atan2(p.Z, rho*(1-WGS84EccentricitySq*n/(n+alt)))
		if math.Abs(next-lat) < geodeticTolRad {
			break
		}
		lat = next
	}

	return Geodetic{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltM:   alt,
	}
}

// DistanceBearing returns the great-circle distance in meters and the initial
// bearing in degrees [0,360) from a to b, treating the Earth as a sphere of
// MeanEarthRadius.
func DistanceBearing(a, b Geodetic) (distanceM, bearingDeg float64) {
	lat1 := a.LatDeg * math.Pi / 180.0
	lon1 := a.LonDeg * math.Pi / 180.0
	lat2 := b.LatDeg * math.Pi / 180.0
	lon2 := b.LonDeg * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	// Haversine.
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	distanceM = MeanEarthRadius * 2 * math.Asin(math.Sqrt(h))

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearingDeg = math.Atan2(y, x) * 180.0 / math.Pi
	bearingDeg = math.Mod(bearingDeg+360.0, 360.0)

	return distanceM, bearingDeg
}

// ECEFToENU rotates the vector from the observer to target into the
// observer's local East-North-Up frame.
func ECEFToENU(observer Geodetic, target ECEF) ENU {
	obs := GeodeticToECEF(observer)
	dx := target.X - obs.X
	dy := target.Y - obs.Y
	dz := target.Z - obs.Z

	lat := observer.LatDeg * math.Pi / 180.0
	lon := observer.LonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	sinLon := math.Sin(lon)
	cosLon := math.Cos(lon)

	return ENU{
		East:  -sinLon*dx + cosLon*dy,
		North: -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz,
		Up:    cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz,
	}
}

// ENUToECEF is the inverse of ECEFToENU: it converts a local East-North-Up
// offset at the observer back to an absolute ECEF position.
func ENUToECEF(observer Geodetic, local ENU) ECEF {
	lat := observer.LatDeg * math.Pi / 180.0
	lon := observer.LonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	sinLon := math.Sin(lon)
	cosLon := math.Cos(lon)

	dx := -local.East*sinLon - local.North*cosLon*sinLat + local.Up*cosLon*cosLat
	dy := local.East*cosLon - local.North*sinLon*sinLat + local.Up*sinLon*cosLat
	dz := local.North*cosLat + local.Up*sinLat

	obs := GeodeticToECEF(observer)
	return ECEF{X: obs.X + dx, Y: obs.Y + dy, Z: obs.Z + dz}
}

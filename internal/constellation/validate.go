package constellation

import (
	"fmt"
	"math"
	"strings"
)

// Coordinate bounds for observer locations. Altitude covers the deepest
// land depressions through the stratosphere.
const (
	MinAltitudeM = -1000.0
	MaxAltitudeM = 100000.0

	// nearOriginDeg flags coordinates indistinguishable from (0,0), the
	// classic default-value mistake, as suspect.
	nearOriginDeg = 0.001
)

// ValidationError reports every constraint a candidate coordinate violates,
// not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid coordinate: " + strings.Join(e.Violations, "; ")
}

// ValidateGeodetic checks a candidate observer coordinate against the
// accepted bounds, collecting all violations into a single error.
func ValidateGeodetic(latDeg, lonDeg, altM float64) error {
	var violations []string

	if latDeg < -90 || latDeg > 90 {
		violations = append(violations,
			fmt.Sprintf("latitude %.6f outside [-90, 90]", latDeg))
	}
	if lonDeg < -180 || lonDeg > 180 {
		violations = append(violations,
			fmt.Sprintf("longitude %.6f outside [-180, 180]", lonDeg))
	}
	if altM < MinAltitudeM || altM > MaxAltitudeM {
		violations = append(violations,
			fmt.Sprintf("altitude %.1f outside [%.0f, %.0f]", altM, MinAltitudeM, MaxAltitudeM))
	}
	if math.Abs(latDeg) < nearOriginDeg && math.Abs(lonDeg) < nearOriginDeg {
		violations = append(violations,
			"coordinate suspiciously close to (0, 0)")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Quality tiers for a location's satellite geometry.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityAdequate  = "adequate"
	QualityPoor      = "poor"
)

// QualityTier assigns exactly one tier from visible-satellite count and PDOP.
func QualityTier(visible int, pdop float64) string {
	switch {
	case visible >= 8 && pdop < 2.0:
		return QualityExcellent
	case visible >= 6 && pdop < 3.0:
		return QualityGood
	case visible >= 4 && pdop < 6.0:
		return QualityAdequate
	default:
		return QualityPoor
	}
}

package ephemeris

import "time"

// Record holds the broadcast ephemeris for a single GPS satellite as parsed
// from a RINEX navigation message. All angular terms are radians, times are
// seconds of GPS week, and SqrtA is in √meters.
type Record struct {
	PRN  int
	Week int
	Toe  float64 // time of ephemeris
	Toc  float64 // time of clock

	// Clock polynomial terms.
	Af0 float64
	Af1 float64
	Af2 float64

	// Orbital elements and harmonic corrections.
	Crs      float64
	DeltaN   float64
	M0       float64
	Cuc      float64
	Ecc      float64
	Cus      float64
	SqrtA    float64
	Cic      float64
	Omega0   float64
	Cis      float64
	I0       float64
	Crc      float64
	Omega    float64
	OmegaDot float64
	Idot     float64

	Accuracy float64 // user range accuracy, meters
	Health   int     // 0 = healthy
	Tgd      float64 // group delay, seconds
}

// Healthy reports whether the broadcast health flag marks the satellite usable.
func (r Record) Healthy() bool {
	return r.Health == 0
}

// Snapshot is an immutable parse result: the complete record set from one
// navigation file plus freshness metadata. A snapshot is built in full and
// then published atomically; it is never mutated after construction.
type Snapshot struct {
	Records  map[int]Record
	ParsedAt time.Time
	Source   string
	Skipped  int // malformed blocks dropped during the parse
}

// PRNs returns the satellite ids present in the snapshot, unsorted.
func (s *Snapshot) PRNs() []int {
	prns := make([]int, 0, len(s.Records))
	for prn := range s.Records {
		prns = append(prns, prn)
	}
	return prns
}

// Freshness buckets, mirroring the thresholds used by health reporting.
const (
	FreshnessFresh   = "fresh"   // under 1 hour old
	FreshnessRecent  = "recent"  // under 4 hours
	FreshnessStale   = "stale"   // under 24 hours
	FreshnessOld     = "old"     // 24 hours or more
	FreshnessUnknown = "unknown" // no data loaded
)

// Freshness classifies the snapshot age at the given instant.
func (s *Snapshot) Freshness(now time.Time) string {
	age := now.Sub(s.ParsedAt)
	switch {
	case age < time.Hour:
		return FreshnessFresh
	case age < 4*time.Hour:
		return FreshnessRecent
	case age < 24*time.Hour:
		return FreshnessStale
	default:
		return FreshnessOld
	}
}

package constellation

import (
	"sort"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
)

// SatelliteHealth is the broadcast health status of one satellite.
type SatelliteHealth struct {
	PRN     int  `json:"prn"`
	Healthy bool `json:"healthy"`
}

// Health summarizes the loaded ephemeris dataset: per-satellite health
// flags, the healthy fraction, and data freshness.
type Health struct {
	TotalSatellites int               `json:"total_satellites"`
	HealthyCount    int               `json:"healthy_count"`
	HealthyPercent  float64           `json:"healthy_percent"`
	Freshness       string            `json:"freshness"`
	DataAgeSeconds  float64           `json:"data_age_seconds"`
	Source          string            `json:"source,omitempty"`
	Satellites      []SatelliteHealth `json:"satellites"`
}

// Health reports on the ephemeris dataset backing the service. With no data
// loaded it returns an empty report with unknown freshness and a negative
// age, never an error.
func (s *Service) Health(now time.Time) Health {
	snap := s.store.Get()
	if snap == nil || len(snap.Records) == 0 {
		return Health{
			Freshness:      ephemeris.FreshnessUnknown,
			DataAgeSeconds: -1,
			Satellites:     []SatelliteHealth{},
		}
	}

	sats := make([]SatelliteHealth, 0, len(snap.Records))
	healthy := 0
	for prn, rec := range snap.Records {
		ok := rec.Healthy()
		if ok {
			healthy++
		}
		sats = append(sats, SatelliteHealth{PRN: prn, Healthy: ok})
	}
	sort.Slice(sats, func(i, j int) bool { return sats[i].PRN < sats[j].PRN })

	return Health{
		TotalSatellites: len(snap.Records),
		HealthyCount:    healthy,
		HealthyPercent:  100 * float64(healthy) / float64(len(snap.Records)),
		Freshness:       snap.Freshness(now),
		DataAgeSeconds:  now.Sub(snap.ParsedAt).Seconds(),
		Source:          snap.Source,
		Satellites:      sats,
	}
}

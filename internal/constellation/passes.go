package constellation

import (
	"context"
	"sort"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/orbit"
	"github.com/gnsslab/gnss-constellation-sim/internal/passes"
)

// PredictWindows predicts visibility windows over the horizon for the active
// constellation. A non-empty prns slice restricts prediction to those
// satellites; unknown ids are silently skipped. The orbit model is chosen
// once at the start instant and used for the whole horizon.
func (s *Service) PredictWindows(ctx context.Context, observer geodesy.Geodetic, start time.Time, horizonHours float64, prns []int, maxWindows int) []passes.SatelliteWindows {
	sources := s.passSources(start, prns)

	return passes.Predict(ctx, passes.Request{
		Observer:     observer,
		Satellites:   sources,
		Start:        start,
		HorizonHours: horizonHours,
		MaxWindows:   maxWindows,
	})
}

func (s *Service) passSources(start time.Time, prns []int) []passes.Source {
	wanted := func(prn int) bool {
		if len(prns) == 0 {
			return true
		}
		for _, p := range prns {
			if p == prn {
				return true
			}
		}
		return false
	}

	var sources []passes.Source
	if snap := s.usableSnapshot(start); snap != nil {
		for prn, rec := range snap.Records {
			if !wanted(prn) {
				continue
			}
			rec := rec
			sources = append(sources, passes.Source{
				PRN: prn,
				Position: func(t time.Time) geodesy.ECEF {
					return orbit.FromEphemeris(rec, t).ECEF()
				},
			})
		}
	} else {
		for _, prn := range orbit.SyntheticPRNs() {
			if !wanted(prn) {
				continue
			}
			prn := prn
			sources = append(sources, passes.Source{
				PRN: prn,
				Position: func(t time.Time) geodesy.ECEF {
					return orbit.SyntheticElements(prn, t).ECEF()
				},
			})
		}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].PRN < sources[j].PRN })
	return sources
}

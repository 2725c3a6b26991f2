// Package constellation assembles full sky states: which satellites an
// observer sees at an instant, with look angles, geometry quality, and
// dataset health.
package constellation

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/dop"
	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
	"github.com/gnsslab/gnss-constellation-sim/internal/orbit"
	"github.com/gnsslab/gnss-constellation-sim/internal/visibility"
)

// defaultMaxDataAge bounds how old an ephemeris snapshot may be before
// state assembly falls back to the synthetic constellation.
const defaultMaxDataAge = 4 * time.Hour

// Satellite is one satellite's observation from a specific observer.
type Satellite struct {
	PRN          int          `json:"prn"`
	AzimuthDeg   float64      `json:"azimuth"`
	ElevationDeg float64      `json:"elevation"`
	RangeM       float64      `json:"distance"`
	Visible      bool         `json:"visible"`
	Position     geodesy.ECEF `json:"ecef"`
}

// State is the complete constellation picture for one observer and instant.
// It is recomputed on every request, never cached.
type State struct {
	Timestamp    time.Time        `json:"timestamp"`
	Observer     geodesy.Geodetic `json:"observer"`
	Satellites   []Satellite      `json:"satellites"`
	VisibleCount int              `json:"visible_count"`
	PDOP         float64          `json:"pdop"`
	Source       string           `json:"source"`
}

// LocationInfo is the quality assessment for a candidate observer location.
type LocationInfo struct {
	Coordinate geodesy.Geodetic `json:"coordinate"`
	ECEF       geodesy.ECEF     `json:"ecef"`
	State      State            `json:"constellation"`
	Quality    string           `json:"quality"`
}

// Service computes constellation states from the current ephemeris snapshot,
// falling back to the synthetic orbital-slot model when no usable data is
// loaded. All methods are safe for concurrent use; the only shared state is
// the store's atomic snapshot.
type Service struct {
	store      *ephemeris.Store
	logger     *slog.Logger
	maxDataAge time.Duration
}

// NewService wires a constellation service to an ephemeris store. A
// non-positive maxDataAge selects the default of four hours.
func NewService(store *ephemeris.Store, logger *slog.Logger, maxDataAge time.Duration) *Service {
	if maxDataAge <= 0 {
		maxDataAge = defaultMaxDataAge
	}
	return &Service{
		store:      store,
		logger:     logger.With("component", "constellation"),
		maxDataAge: maxDataAge,
	}
}

// usableSnapshot returns the current snapshot if it holds records and is not
// older than maxDataAge, else nil.
func (s *Service) usableSnapshot(at time.Time) *ephemeris.Snapshot {
	snap := s.store.Get()
	if snap == nil || len(snap.Records) == 0 {
		return nil
	}
	if at.Sub(snap.ParsedAt) > s.maxDataAge {
		return nil
	}
	return snap
}

// elementsFor returns the orbital elements for every active satellite at t,
// keyed by PRN, plus the model that produced them.
func (s *Service) elementsFor(at time.Time) (map[int]orbit.Elements, orbit.Mode) {
	if snap := s.usableSnapshot(at); snap != nil {
		els := make(map[int]orbit.Elements, len(snap.Records))
		for prn, rec := range snap.Records {
			els[prn] = orbit.FromEphemeris(rec, at)
		}
		return els, orbit.ModeEphemeris
	}

	els := make(map[int]orbit.Elements, orbit.SyntheticPlanes*orbit.SlotsPerPlane)
	for _, prn := range orbit.SyntheticPRNs() {
		els[prn] = orbit.SyntheticElements(prn, at)
	}
	return els, orbit.ModeSynthetic
}

// State computes the constellation for an observer at the given instant.
// It never fails: missing or stale ephemeris data degrades to the synthetic
// model, and degenerate DOP geometry degrades to its sentinel value.
func (s *Service) State(observer geodesy.Geodetic, at time.Time) State {
	els, mode := s.elementsFor(at)

	prns := make([]int, 0, len(els))
	for prn := range els {
		prns = append(prns, prn)
	}
	sort.Ints(prns)

	sats := make([]Satellite, 0, len(prns))
	var visiblePos []geodesy.ECEF
	for _, prn := range prns {
		pos := els[prn].ECEF()
		look := visibility.Compute(observer, pos)
		sats = append(sats, Satellite{
			PRN:          prn,
			AzimuthDeg:   look.AzimuthDeg,
			ElevationDeg: look.ElevationDeg,
			RangeM:       look.RangeM,
			Visible:      look.Visible,
			Position:     pos,
		})
		if look.Visible {
			visiblePos = append(visiblePos, pos)
		}
	}

	state := State{
		Timestamp:    at,
		Observer:     observer,
		Satellites:   sats,
		VisibleCount: len(visiblePos),
		PDOP:         dop.PDOP(geodesy.GeodeticToECEF(observer), visiblePos),
		Source:       mode.String(),
	}

	s.logger.Debug("constellation state computed",
		"satellites", len(sats),
		"visible", state.VisibleCount,
		"pdop", state.PDOP,
		"source", state.Source,
	)
	return state
}

// LocationInfo validates a candidate location and, if acceptable, returns its
// constellation state with a quality tier. Validation collects every bound
// violation before failing.
func (s *Service) LocationInfo(latDeg, lonDeg, altM float64, at time.Time) (LocationInfo, error) {
	if err := ValidateGeodetic(latDeg, lonDeg, altM); err != nil {
		return LocationInfo{}, err
	}

	coord := geodesy.Geodetic{LatDeg: latDeg, LonDeg: lonDeg, AltM: altM}
	state := s.State(coord, at)

	return LocationInfo{
		Coordinate: coord,
		ECEF:       geodesy.GeodeticToECEF(coord),
		State:      state,
		Quality:    QualityTier(state.VisibleCount, state.PDOP),
	}, nil
}

// Satellite returns the observation for a single satellite, or false if the
// PRN is not part of the active constellation.
func (s *Service) Satellite(observer geodesy.Geodetic, prn int, at time.Time) (Satellite, bool) {
	els, _ := s.elementsFor(at)
	el, ok := els[prn]
	if !ok {
		return Satellite{}, false
	}

	pos := el.ECEF()
	look := visibility.Compute(observer, pos)
	return Satellite{
		PRN:          prn,
		AzimuthDeg:   look.AzimuthDeg,
		ElevationDeg: look.ElevationDeg,
		RangeM:       look.RangeM,
		Visible:      look.Visible,
		Position:     pos,
	}, true
}

// AvailablePRNs lists the satellite ids of the active constellation in
// ascending order.
func (s *Service) AvailablePRNs(at time.Time) []int {
	if snap := s.usableSnapshot(at); snap != nil {
		prns := snap.PRNs()
		sort.Ints(prns)
		return prns
	}
	return orbit.SyntheticPRNs()
}

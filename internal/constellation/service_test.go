package constellation

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

var london = geodesy.Geodetic{LatDeg: 51.5074, LonDeg: -0.1278, AltM: 100}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(snap *ephemeris.Snapshot) *Service {
	store := ephemeris.NewStore()
	if snap != nil {
		store.Set(snap)
	}
	return NewService(store, testLogger(), 0)
}

// gpsRecord returns a plausible broadcast record for the given PRN.
func gpsRecord(prn, health int) ephemeris.Record {
	return ephemeris.Record{
		PRN:    prn,
		Week:   2381,
		Toe:    216000,
		Toc:    216000,
		SqrtA:  5153.650835037,
		Ecc:    0.0111537524499,
		I0:     0.9598293066025,
		Omega0: -2.421438694 + 0.3*float64(prn),
		Omega:  0.8124563232655,
		M0:     1.125609741609 + 0.5*float64(prn),
		Health: health,
	}
}

func snapshotWith(parsedAt time.Time, recs ...ephemeris.Record) *ephemeris.Snapshot {
	m := make(map[int]ephemeris.Record, len(recs))
	for _, r := range recs {
		m[r.PRN] = r
	}
	return &ephemeris.Snapshot{Records: m, ParsedAt: parsedAt, Source: "test"}
}

func TestState_EmptyStoreFallsBackToSynthetic(t *testing.T) {
	svc := newTestService(nil)
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	state := svc.State(london, at)

	if state.Source != "synthetic" {
		t.Errorf("source = %q, want synthetic", state.Source)
	}
	if len(state.Satellites) != 24 {
		t.Errorf("satellites = %d, want 24", len(state.Satellites))
	}
	if state.VisibleCount < 1 {
		t.Error("expected at least one visible satellite from the full slot model")
	}
	for i := 1; i < len(state.Satellites); i++ {
		if state.Satellites[i].PRN <= state.Satellites[i-1].PRN {
			t.Fatal("satellites not in ascending PRN order")
		}
	}

	visible := 0
	for _, sat := range state.Satellites {
		if sat.Visible {
			visible++
			if sat.ElevationDeg < 5.0 {
				t.Errorf("PRN %d visible at elevation %v below the mask", sat.PRN, sat.ElevationDeg)
			}
		}
	}
	if visible != state.VisibleCount {
		t.Errorf("visible_count = %d, counted %d", state.VisibleCount, visible)
	}
}

func TestState_FreshSnapshotUsesEphemeris(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	snap := snapshotWith(at.Add(-10*time.Minute), gpsRecord(7, 0), gpsRecord(12, 0))
	svc := newTestService(snap)

	state := svc.State(london, at)

	if state.Source != "ephemeris" {
		t.Errorf("source = %q, want ephemeris", state.Source)
	}
	if len(state.Satellites) != 2 {
		t.Fatalf("satellites = %d, want 2", len(state.Satellites))
	}
	if state.Satellites[0].PRN != 7 || state.Satellites[1].PRN != 12 {
		t.Errorf("PRNs = %d, %d, want 7, 12", state.Satellites[0].PRN, state.Satellites[1].PRN)
	}
}

func TestState_StaleSnapshotFallsBackToSynthetic(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	snap := snapshotWith(at.Add(-5*time.Hour), gpsRecord(7, 0))
	svc := newTestService(snap)

	state := svc.State(london, at)

	if state.Source != "synthetic" {
		t.Errorf("source = %q, want synthetic fallback for stale data", state.Source)
	}
	if len(state.Satellites) != 24 {
		t.Errorf("satellites = %d, want 24", len(state.Satellites))
	}
}

func TestQualityTier(t *testing.T) {
	tests := []struct {
		visible int
		pdop    float64
		want    string
	}{
		{9, 1.5, QualityExcellent},
		{6, 2.5, QualityGood},
		{4, 5.0, QualityAdequate},
		{2, 10.0, QualityPoor},
		// Boundaries: pdop thresholds are exclusive, counts gate each tier.
		{8, 2.0, QualityGood},
		{10, 999.9, QualityPoor},
		{3, 1.0, QualityPoor},
		{7, 1.1, QualityGood},
		{100, 1.9, QualityExcellent},
	}

	for _, tt := range tests {
		if got := QualityTier(tt.visible, tt.pdop); got != tt.want {
			t.Errorf("QualityTier(%d, %v) = %q, want %q", tt.visible, tt.pdop, got, tt.want)
		}
	}
}

func TestValidateGeodetic(t *testing.T) {
	tests := []struct {
		name          string
		lat, lon, alt float64
		wantFragments []string
	}{
		{"valid london", 51.5074, -0.1278, 100, nil},
		{"latitude high", 91, 0.5, 100, []string{"latitude"}},
		{"near origin", 0, 0, 100, []string{"close to (0, 0)"}},
		{"everything wrong", 95, 200, 200000, []string{"latitude", "longitude", "altitude"}},
		{"altitude low", 10, 10, -2000, []string{"altitude"}},
		{"boundary ok", -90, 180, 100000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeodetic(tt.lat, tt.lon, tt.alt)
			if tt.wantFragments == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if len(verr.Violations) != len(tt.wantFragments) {
				t.Fatalf("got %d violations (%v), want %d", len(verr.Violations), verr.Violations, len(tt.wantFragments))
			}
			for _, frag := range tt.wantFragments {
				if !strings.Contains(err.Error(), frag) {
					t.Errorf("error %q missing fragment %q", err.Error(), frag)
				}
			}
		})
	}
}

func TestLocationInfo(t *testing.T) {
	svc := newTestService(nil)
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	info, err := svc.LocationInfo(london.LatDeg, london.LonDeg, london.AltM, at)
	if err != nil {
		t.Fatalf("LocationInfo returned error: %v", err)
	}

	if info.Coordinate != london {
		t.Errorf("coordinate = %+v, want %+v", info.Coordinate, london)
	}
	if info.Quality == "" {
		t.Error("quality tier must always be assigned")
	}
	if got := QualityTier(info.State.VisibleCount, info.State.PDOP); info.Quality != got {
		t.Errorf("quality = %q, inconsistent with state (%q)", info.Quality, got)
	}

	// ECEF must match the direct conversion.
	want := geodesy.GeodeticToECEF(london)
	if info.ECEF != want {
		t.Errorf("ecef = %+v, want %+v", info.ECEF, want)
	}
}

func TestLocationInfo_RejectsInvalidCoordinate(t *testing.T) {
	svc := newTestService(nil)
	at := time.Now()

	if _, err := svc.LocationInfo(91, 0, 100, at); err == nil {
		t.Error("latitude 91 must fail validation")
	}
	if _, err := svc.LocationInfo(0, 0, 100, at); err == nil {
		t.Error("near-origin coordinate must be rejected")
	}
}

func TestSatellite(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	snap := snapshotWith(at.Add(-10*time.Minute), gpsRecord(7, 0))
	svc := newTestService(snap)

	sat, ok := svc.Satellite(london, 7, at)
	if !ok {
		t.Fatal("PRN 7 must be present")
	}
	if sat.PRN != 7 {
		t.Errorf("prn = %d, want 7", sat.PRN)
	}
	if sat.RangeM <= 0 {
		t.Errorf("range = %v, want > 0", sat.RangeM)
	}

	if _, ok := svc.Satellite(london, 99, at); ok {
		t.Error("unknown PRN must report not found")
	}
}

func TestAvailablePRNs(t *testing.T) {
	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	empty := newTestService(nil)
	if got := empty.AvailablePRNs(at); len(got) != 24 || got[0] != 1 || got[23] != 24 {
		t.Errorf("synthetic PRNs = %v, want 1..24", got)
	}

	svc := newTestService(snapshotWith(at.Add(-time.Minute),
		gpsRecord(12, 0), gpsRecord(3, 0), gpsRecord(7, 0)))
	got := svc.AvailablePRNs(at)
	want := []int{3, 7, 12}
	if len(got) != len(want) {
		t.Fatalf("prns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prns = %v, want %v", got, want)
		}
	}
}

func TestHealth(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	empty := newTestService(nil)
	h := empty.Health(now)
	if h.Freshness != ephemeris.FreshnessUnknown {
		t.Errorf("freshness = %q, want unknown", h.Freshness)
	}
	if h.DataAgeSeconds != -1 {
		t.Errorf("data age = %v, want -1", h.DataAgeSeconds)
	}
	if h.TotalSatellites != 0 || len(h.Satellites) != 0 {
		t.Errorf("empty store health = %+v, want no satellites", h)
	}

	svc := newTestService(snapshotWith(now.Add(-30*time.Minute),
		gpsRecord(1, 0), gpsRecord(2, 0), gpsRecord(3, 63), gpsRecord(4, 0)))
	h = svc.Health(now)

	if h.TotalSatellites != 4 {
		t.Errorf("total = %d, want 4", h.TotalSatellites)
	}
	if h.HealthyCount != 3 {
		t.Errorf("healthy = %d, want 3", h.HealthyCount)
	}
	if h.HealthyPercent != 75 {
		t.Errorf("healthy percent = %v, want 75", h.HealthyPercent)
	}
	if h.Freshness != ephemeris.FreshnessFresh {
		t.Errorf("freshness = %q, want fresh", h.Freshness)
	}
	if h.DataAgeSeconds != 1800 {
		t.Errorf("data age = %v, want 1800", h.DataAgeSeconds)
	}
	for i := 1; i < len(h.Satellites); i++ {
		if h.Satellites[i].PRN <= h.Satellites[i-1].PRN {
			t.Fatal("satellite health entries not sorted by PRN")
		}
	}
	if h.Satellites[2].PRN != 3 || h.Satellites[2].Healthy {
		t.Errorf("PRN 3 health = %+v, want unhealthy", h.Satellites[2])
	}
}

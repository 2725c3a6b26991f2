package orbit

import (
	"math"
	"testing"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
)

func TestSolveKepler(t *testing.T) {
	tests := []struct {
		name string
		m    float64
		ecc  float64
	}{
		{"circular", 1.0, 0.0},
		{"gps-like eccentricity", 1.0, 0.02},
		{"moderate eccentricity", 2.5, 0.1},
		{"near zero anomaly", 1e-6, 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ea := solveKepler(tt.m, tt.ecc)

			// The solution must satisfy M = E - e·sin(E).
			resid := ea - tt.ecc*math.Sin(ea) - tt.m
			if math.Abs(resid) > 1e-10 {
				t.Errorf("Kepler residual = %.3e, want < 1e-10", resid)
			}
		})
	}
}

func TestSolveKepler_CircularIsIdentity(t *testing.T) {
	if got := solveKepler(1.2345, 0); got != 1.2345 {
		t.Errorf("solveKepler(M, 0) = %v, want M", got)
	}
}

func TestSolveKepler_KnownValue(t *testing.T) {
	// Fixed-point reference for M=1.0 rad, e=0.02.
	got := solveKepler(1.0, 0.02)
	if math.Abs(got-1.017010795389) > 1e-9 {
		t.Errorf("solveKepler(1.0, 0.02) = %.12f, want 1.017010795389", got)
	}
}

func TestElementsECEF_CircularEquatorial(t *testing.T) {
	el := Elements{
		SemiMajorAxisM: syntheticRadiusM,
		Eccentricity:   0,
		MeanAnomalyRad: math.Pi / 2,
	}
	pos := el.ECEF()

	if math.Abs(pos.X) > 1e-3 {
		t.Errorf("X = %v, want 0", pos.X)
	}
	if math.Abs(pos.Y-syntheticRadiusM) > 1e-3 {
		t.Errorf("Y = %v, want %v", pos.Y, syntheticRadiusM)
	}
	if math.Abs(pos.Z) > 1e-3 {
		t.Errorf("Z = %v, want 0", pos.Z)
	}
}

func TestElementsECEF_PolarOrbitReachesPole(t *testing.T) {
	el := Elements{
		SemiMajorAxisM: syntheticRadiusM,
		Eccentricity:   0,
		InclinationRad: math.Pi / 2,
		MeanAnomalyRad: math.Pi / 2,
	}
	pos := el.ECEF()

	if math.Abs(pos.Z-syntheticRadiusM) > 1e-3 {
		t.Errorf("Z = %v, want %v (quarter orbit on a polar plane)", pos.Z, syntheticRadiusM)
	}
}

func TestElementsECEF_RadiusMatchesKepler(t *testing.T) {
	el := Elements{
		SemiMajorAxisM: syntheticRadiusM,
		Eccentricity:   0.02,
		InclinationRad: 55 * math.Pi / 180,
		RAANRad:        1.1,
		ArgPerigeeRad:  0.4,
		MeanAnomalyRad: 2.2,
	}
	pos := el.ECEF()

	got := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	ea := solveKepler(el.MeanAnomalyRad, el.Eccentricity)
	want := el.SemiMajorAxisM * (1 - el.Eccentricity*math.Cos(ea))

	if math.Abs(got-want) > 1e-3 {
		t.Errorf("|r| = %.3f, want a(1-e·cosE) = %.3f", got, want)
	}
}

func TestSyntheticPRNs(t *testing.T) {
	prns := SyntheticPRNs()
	if len(prns) != 24 {
		t.Fatalf("len = %d, want 24", len(prns))
	}
	for i, prn := range prns {
		if prn != i+1 {
			t.Fatalf("prns[%d] = %d, want %d", i, prn, i+1)
		}
	}
}

func TestSyntheticElements_SlotGeometry(t *testing.T) {
	at := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	// PRN 1 is plane 0 slot 0; PRN 5 is plane 1 slot 0.
	el1 := SyntheticElements(1, at)
	el5 := SyntheticElements(5, at)

	if el1.RAANRad != 0 {
		t.Errorf("PRN 1 RAAN = %v, want 0", el1.RAANRad)
	}
	if math.Abs(el5.RAANRad-60*math.Pi/180) > 1e-12 {
		t.Errorf("PRN 5 RAAN = %v, want 60°", el5.RAANRad)
	}

	// Slots in a plane are phased 90° apart in mean anomaly.
	el2 := SyntheticElements(2, at)
	delta := math.Mod(el2.MeanAnomalyRad-el1.MeanAnomalyRad+2*math.Pi, 2*math.Pi)
	if math.Abs(delta-math.Pi/2) > 1e-9 {
		t.Errorf("slot phase delta = %v rad, want π/2", delta)
	}

	if el1.Eccentricity != syntheticEcc {
		t.Errorf("eccentricity = %v, want %v", el1.Eccentricity, syntheticEcc)
	}
	if math.Abs(el1.InclinationRad-55*math.Pi/180) > 1e-12 {
		t.Errorf("inclination = %v, want 55°", el1.InclinationRad)
	}
}

func TestSyntheticElements_TimeDependence(t *testing.T) {
	t0 := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// Same instant, same elements (pure function of time).
	a := SyntheticElements(3, t0)
	b := SyntheticElements(3, t0)
	if a != b {
		t.Error("elements for the same instant differ")
	}

	// A quarter period later the satellite has advanced 90° along track.
	later := SyntheticElements(3, t0.Add(time.Duration(syntheticPeriodSec/4)*time.Second))
	delta := math.Mod(later.MeanAnomalyRad-a.MeanAnomalyRad+2*math.Pi, 2*math.Pi)
	if math.Abs(delta-math.Pi/2) > 1e-6 {
		t.Errorf("quarter-period anomaly advance = %v rad, want π/2", delta)
	}
}

func TestFromEphemeris_AtReferenceEpoch(t *testing.T) {
	rec := ephemeris.Record{
		PRN:    7,
		SqrtA:  5153.650835037,
		Ecc:    0.0111537524499,
		I0:     0.9598293066025,
		Omega0: -2.421438694,
		Omega:  0.8124563232655,
		M0:     1.125609741609,
		Toe:    216000,
	}

	// GPS week 2381, exactly at the reference epoch: tk = 0.
	at := gpsEpoch.Add(time.Duration(2381*secondsPerWeek+rec.Toe) * time.Second)
	el := FromEphemeris(rec, at)

	if math.Abs(el.SemiMajorAxisM-rec.SqrtA*rec.SqrtA) > 1e-6 {
		t.Errorf("a = %v, want sqrtA² = %v", el.SemiMajorAxisM, rec.SqrtA*rec.SqrtA)
	}
	if el.MeanAnomalyRad != rec.M0 {
		t.Errorf("M = %v, want M0 = %v at tk=0", el.MeanAnomalyRad, rec.M0)
	}
	if el.InclinationRad != rec.I0 {
		t.Errorf("i = %v, want i0 = %v at tk=0", el.InclinationRad, rec.I0)
	}
	if el.RAANRad != rec.Omega0 {
		t.Errorf("RAAN = %v, want omega0 = %v at tk=0", el.RAANRad, rec.Omega0)
	}

	// The propagated radius must be GPS-like (~26,560 km).
	pos := el.ECEF()
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if r < 26_000_000 || r > 27_200_000 {
		t.Errorf("|r| = %.0f m, want a GPS-shell radius", r)
	}
}

func TestFromEphemeris_WeekWrap(t *testing.T) {
	rec := ephemeris.Record{
		SqrtA: 5153.650835037,
		Ecc:   0.01,
		Toe:   secondsPerWeek - 800, // near the end of the week
	}

	// 100 s into the following week: tk must wrap to +900, not -603900.
	at := gpsEpoch.Add(time.Duration(2382*secondsPerWeek+100) * time.Second)
	el := FromEphemeris(rec, at)

	a := rec.SqrtA * rec.SqrtA
	n0 := math.Sqrt(earthGravitationalParam / (a * a * a))
	want := 900 * n0

	if math.Abs(el.MeanAnomalyRad-want) > 1e-9 {
		t.Errorf("M = %v, want n0·900 = %v after week wrap", el.MeanAnomalyRad, want)
	}
}

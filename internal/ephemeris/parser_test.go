package ephemeris

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

const navHeader = `     2.11           N: GPS NAV DATA                         RINEX VERSION / TYPE
gnss-simd                               20260828 000000 UTC    PGM / RUN BY / DATE
                                                            END OF HEADER
`

// navBlock builds one well-formed 8-line navigation record. The ecc and
// sqrtA strings let individual tests inject malformed or out-of-range fields.
func navBlock(prn int, ecc, sqrtA string) string {
	return fmt.Sprintf("%2d 26  8 28  0  0  0.0 -1.234567890123D-04  2.345678901234D-11  0.000000000000D+00\n", prn) +
		"     1.100000000000D+02  2.343750000000D+01  4.908019141250D-09  1.125609741609D+00\n" +
		fmt.Sprintf("     0.000000000000D+00  1.255422830582D-06  %s  7.491558790207D-06\n", ecc) +
		fmt.Sprintf("     0.000000000000D+00  %s  2.160000000000D+05 -4.656612873077D-08\n", sqrtA) +
		"     0.000000000000D+00 -2.421438694000D+00 -1.080334186554D-07  9.598293066025D-01\n" +
		"     0.000000000000D+00  2.437500000000D+02  8.124563232655D-01 -8.025691245927D-09\n" +
		"     0.000000000000D+00 -4.285892581932D-10  0.000000000000D+00  2.381000000000D+03\n" +
		"     0.000000000000D+00  4.000000000000D+00  2.000000000000D+00  4.656612873077D-09\n"
}

func goodBlock(prn int) string {
	return navBlock(prn, "1.115375244990D-02", "5.153650835037D+03")
}

func TestParse_WellFormedBlocks(t *testing.T) {
	text := navHeader + goodBlock(7) + goodBlock(12)

	snap, err := Parse(strings.NewReader(text), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(snap.Records) != 2 {
		t.Fatalf("parsed %d records, want 2", len(snap.Records))
	}
	if snap.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", snap.Skipped)
	}

	rec, ok := snap.Records[7]
	if !ok {
		t.Fatal("record for PRN 7 missing")
	}

	// Fortran D exponents must be normalized before parsing.
	if math.Abs(rec.Af0-(-1.234567890123e-04)) > 1e-18 {
		t.Errorf("af0 = %v, want -1.234567890123e-04", rec.Af0)
	}
	if math.Abs(rec.Ecc-1.115375244990e-02) > 1e-15 {
		t.Errorf("ecc = %v, want 1.115375244990e-02", rec.Ecc)
	}
	if math.Abs(rec.SqrtA-5153.650835037) > 1e-6 {
		t.Errorf("sqrt_a = %v, want 5153.650835037", rec.SqrtA)
	}
	if math.Abs(rec.Toe-216000.0) > 1e-9 {
		t.Errorf("toe = %v, want 216000", rec.Toe)
	}
	if rec.Toc != rec.Toe {
		t.Errorf("toc = %v, want toe (%v)", rec.Toc, rec.Toe)
	}
	if rec.Week != 2381 {
		t.Errorf("week = %d, want 2381", rec.Week)
	}
	if rec.Health != 2 || rec.Healthy() {
		t.Errorf("health = %d (healthy=%v), want 2/unhealthy", rec.Health, rec.Healthy())
	}
	if math.Abs(rec.Accuracy-4.0) > 1e-12 {
		t.Errorf("accuracy = %v, want 4.0", rec.Accuracy)
	}
}

func TestParse_TruncatedFinalBlock(t *testing.T) {
	full := navHeader + goodBlock(1) + goodBlock(2) + goodBlock(3)
	lines := strings.Split(strings.TrimRight(full, "\n"), "\n")

	// Truncate the final block to 5 of its 8 lines.
	truncated := strings.Join(lines[:len(lines)-3], "\n")

	snap, err := Parse(strings.NewReader(truncated), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(snap.Records) != 2 {
		t.Errorf("parsed %d records, want 2", len(snap.Records))
	}
	if snap.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", snap.Skipped)
	}
	if _, ok := snap.Records[3]; ok {
		t.Error("truncated block for PRN 3 must not produce a record")
	}
}

func TestParse_MalformedScalarDropsWholeBlock(t *testing.T) {
	bad := navBlock(5, "NOT+A+NUMBER", "5.153650835037D+03")
	text := navHeader + goodBlock(4) + bad + goodBlock(6)

	snap, err := Parse(strings.NewReader(text), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if _, ok := snap.Records[5]; ok {
		t.Error("block with malformed eccentricity must be dropped whole")
	}
	if len(snap.Records) != 2 {
		t.Errorf("parsed %d records, want 2", len(snap.Records))
	}
	if snap.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", snap.Skipped)
	}
}

func TestParse_ResyncOnBadLeadLine(t *testing.T) {
	text := navHeader + goodBlock(8) + "** stray telemetry line **\n" + goodBlock(9)

	snap, err := Parse(strings.NewReader(text), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	// The stray line advances the cursor by one; both real blocks survive.
	if len(snap.Records) != 2 {
		t.Errorf("parsed %d records, want 2", len(snap.Records))
	}
	for _, prn := range []int{8, 9} {
		if _, ok := snap.Records[prn]; !ok {
			t.Errorf("record for PRN %d missing after resynchronization", prn)
		}
	}
}

func TestParse_InvariantViolationsRejected(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"eccentricity >= 1", navBlock(3, "1.500000000000D+00", "5.153650835037D+03")},
		{"negative sqrt_a", navBlock(3, "1.115375244990D-02", "-5.153650835037D+03")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse(strings.NewReader(navHeader+tt.block), testLogger())
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if len(snap.Records) != 0 {
				t.Errorf("parsed %d records, want 0", len(snap.Records))
			}
			if snap.Skipped != 1 {
				t.Errorf("skipped = %d, want 1", snap.Skipped)
			}
		})
	}
}

func TestStore_SwapReplacesRecordSet(t *testing.T) {
	store := NewStore()
	if store.Get() != nil {
		t.Fatal("empty store must return nil snapshot")
	}
	if age := store.AgeSeconds(); age != -1 {
		t.Errorf("empty store age = %v, want -1", age)
	}

	first, err := Parse(strings.NewReader(navHeader+goodBlock(7)), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	store.Set(first)

	second, err := Parse(strings.NewReader(navHeader+goodBlock(9)), testLogger())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	store.Set(second)

	snap := store.Get()
	if _, ok := snap.Records[7]; ok {
		t.Error("PRN 7 must be dropped by the replacement snapshot, not retained")
	}
	if _, ok := snap.Records[9]; !ok {
		t.Error("PRN 9 missing from replacement snapshot")
	}
	if age := store.AgeSeconds(); age < 0 {
		t.Errorf("age = %v, want >= 0", age)
	}
}

func TestSnapshot_Freshness(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Minute, FreshnessFresh},
		{2 * time.Hour, FreshnessRecent},
		{10 * time.Hour, FreshnessStale},
		{48 * time.Hour, FreshnessOld},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			snap := &Snapshot{ParsedAt: now.Add(-tt.age)}
			if got := snap.Freshness(now); got != tt.want {
				t.Errorf("Freshness(age=%v) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestDailyFilename(t *testing.T) {
	got := DailyFilename(time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC))
	if got != "brdc0090.26n" {
		t.Errorf("DailyFilename = %q, want %q", got, "brdc0090.26n")
	}
}

package ephemeris

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// recordLines is the fixed number of lines in one RINEX navigation record.
const recordLines = 8

const headerTerminator = "END OF HEADER"

// Parse reads RINEX navigation message text from r and returns a complete
// snapshot. Malformed blocks are dropped and logged; the parse itself only
// fails on a read error. A block whose first line does not yield a numeric
// satellite id causes a one-line advance (resynchronization); a block with an
// unparsable scalar is discarded whole and skipped to the next block boundary.
func Parse(r io.Reader, logger *slog.Logger) (*Snapshot, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading navigation data: %w", err)
	}

	// Skip everything up to and including the header terminator.
	start := 0
	for i, line := range lines {
		if strings.Contains(line, headerTerminator) {
			start = i + 1
			break
		}
	}

	records := make(map[int]Record)
	var skipped int

	for i := start; i < len(lines); {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		prn, err := parsePRN(line)
		if err != nil {
			logger.Warn("resynchronizing navigation parse", "line_index", i, "error", err)
			i++
			continue
		}

		if i+recordLines > len(lines) {
			logger.Warn("skipping truncated navigation block",
				"prn", prn, "line_index", i, "lines_remaining", len(lines)-i)
			skipped++
			break
		}

		rec, err := parseBlock(prn, lines[i:i+recordLines])
		if err != nil {
			logger.Warn("skipping malformed navigation block", "prn", prn, "line_index", i, "error", err)
			skipped++
			i += recordLines
			continue
		}

		records[rec.PRN] = rec
		i += recordLines
	}

	return &Snapshot{
		Records:  records,
		ParsedAt: time.Now().UTC(),
		Skipped:  skipped,
	}, nil
}

// parsePRN extracts the satellite id from the first two characters of a
// record's opening line.
func parsePRN(line string) (int, error) {
	if len(line) < 2 {
		return 0, fmt.Errorf("line too short for satellite id: %q", line)
	}
	prn, err := strconv.Atoi(strings.TrimSpace(line[:2]))
	if err != nil {
		return 0, fmt.Errorf("invalid satellite id %q", line[:2])
	}
	if prn < 1 {
		return 0, fmt.Errorf("satellite id out of range: %d", prn)
	}
	return prn, nil
}

// parseBlock decodes one 8-line navigation record. Any scalar that fails to
// parse invalidates the entire block; no partial record is ever returned.
func parseBlock(prn int, block []string) (Record, error) {
	rec := Record{PRN: prn}

	// Line 0: satellite id, epoch, and the three clock polynomial terms.
	fields := strings.Fields(block[0])
	if len(fields) < 10 {
		return Record{}, fmt.Errorf("clock line has %d fields, want at least 10", len(fields))
	}
	var err error
	clock := fields[len(fields)-3:]
	if rec.Af0, err = parseFloat(clock[0]); err != nil {
		return Record{}, fmt.Errorf("af0: %w", err)
	}
	if rec.Af1, err = parseFloat(clock[1]); err != nil {
		return Record{}, fmt.Errorf("af1: %w", err)
	}
	if rec.Af2, err = parseFloat(clock[2]); err != nil {
		return Record{}, fmt.Errorf("af2: %w", err)
	}

	// Lines 1-7: orbital elements at fixed field positions.
	rows := make([][]string, recordLines)
	for n := 1; n < recordLines; n++ {
		rows[n] = strings.Fields(block[n])
		if len(rows[n]) < 4 {
			return Record{}, fmt.Errorf("orbit line %d has %d fields, want 4", n, len(rows[n]))
		}
	}

	scalars := []struct {
		name string
		dst  *float64
		src  string
	}{
		{"crs", &rec.Crs, rows[1][1]},
		{"delta_n", &rec.DeltaN, rows[1][2]},
		{"m0", &rec.M0, rows[1][3]},
		{"cuc", &rec.Cuc, rows[2][1]},
		{"ecc", &rec.Ecc, rows[2][2]},
		{"cus", &rec.Cus, rows[2][3]},
		{"sqrt_a", &rec.SqrtA, rows[3][1]},
		{"toe", &rec.Toe, rows[3][2]},
		{"cic", &rec.Cic, rows[3][3]},
		{"omega0", &rec.Omega0, rows[4][1]},
		{"cis", &rec.Cis, rows[4][2]},
		{"i0", &rec.I0, rows[4][3]},
		{"crc", &rec.Crc, rows[5][1]},
		{"omega", &rec.Omega, rows[5][2]},
		{"omega_dot", &rec.OmegaDot, rows[5][3]},
		{"idot", &rec.Idot, rows[6][1]},
		{"accuracy", &rec.Accuracy, rows[7][1]},
		{"tgd", &rec.Tgd, rows[7][3]},
	}
	for _, s := range scalars {
		if *s.dst, err = parseFloat(s.src); err != nil {
			return Record{}, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	week, err := parseFloat(rows[6][3])
	if err != nil {
		return Record{}, fmt.Errorf("week: %w", err)
	}
	rec.Week = int(week)

	health, err := parseFloat(rows[7][2])
	if err != nil {
		return Record{}, fmt.Errorf("health: %w", err)
	}
	rec.Health = int(health)

	rec.Toc = rec.Toe

	if rec.Ecc < 0 || rec.Ecc >= 1 {
		return Record{}, fmt.Errorf("eccentricity %v outside [0,1)", rec.Ecc)
	}
	if rec.SqrtA <= 0 {
		return Record{}, fmt.Errorf("sqrt_a %v must be positive", rec.SqrtA)
	}

	return rec, nil
}

// parseFloat parses a RINEX numeric field, normalizing the Fortran-style
// "D" exponent marker to "E" first.
func parseFloat(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), "D", "E", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric field %q", s)
	}
	return v, nil
}

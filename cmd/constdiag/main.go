package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/constellation"
	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

func main() {
	navFile := flag.String("nav", "", "RINEX navigation file (omit to use the synthetic constellation)")
	lat := flag.Float64("lat", 51.4778, "observer latitude, degrees")
	lon := flag.Float64("lon", -0.0015, "observer longitude, degrees")
	alt := flag.Float64("alt", 46, "observer altitude, meters")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	store := ephemeris.NewStore()

	if *navFile != "" {
		f, err := os.Open(*navFile)
		if err != nil {
			fmt.Println("ERROR opening navigation file:", err)
			os.Exit(1)
		}
		snap, err := ephemeris.Parse(f, logger)
		f.Close()
		if err != nil {
			fmt.Println("ERROR parsing navigation file:", err)
			os.Exit(1)
		}
		snap.Source = *navFile
		store.Set(snap)
		fmt.Printf("Loaded %d ephemeris records (%d blocks skipped)\n", len(snap.Records), snap.Skipped)
	}

	svc := constellation.NewService(store, logger, 0)
	now := time.Now().UTC()

	info, err := svc.LocationInfo(*lat, *lon, *alt, now)
	if err != nil {
		fmt.Println("ERROR invalid observer location:", err)
		os.Exit(1)
	}

	obs := geodesy.Geodetic{LatDeg: *lat, LonDeg: *lon, AltM: *alt}
	fmt.Printf("Observer: %.4f°, %.4f°, %.0f m at %v\n", obs.LatDeg, obs.LonDeg, obs.AltM, now.Format(time.RFC3339))
	fmt.Printf("Source: %s\n\n", info.State.Source)

	fmt.Println("PRN   azimuth  elevation      range  visible")
	for _, sat := range info.State.Satellites {
		mark := ""
		if sat.Visible {
			mark = "*"
		}
		fmt.Printf("%3d  %8.2f°  %8.2f°  %8.0f km  %s\n",
			sat.PRN, sat.AzimuthDeg, sat.ElevationDeg, sat.RangeM/1000, mark)
	}

	fmt.Printf("\nVisible: %d of %d  PDOP: %.2f  Quality: %s\n",
		info.State.VisibleCount, len(info.State.Satellites), info.State.PDOP, info.Quality)

	if *navFile != "" {
		h := svc.Health(now)
		fmt.Printf("Dataset: %d satellites, %d healthy (%.0f%%), freshness %s\n",
			h.TotalSatellites, h.HealthyCount, h.HealthyPercent, h.Freshness)
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnsslab/gnss-constellation-sim/internal/api"
	"github.com/gnsslab/gnss-constellation-sim/internal/constellation"
	"github.com/gnsslab/gnss-constellation-sim/internal/ephemeris"
	"github.com/gnsslab/gnss-constellation-sim/internal/metrics"
	"github.com/gnsslab/gnss-constellation-sim/internal/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store := ephemeris.NewStore()
	navCache := ephemeris.NewCache(cfg.NavCacheDir, cfg.NavMaxFiles)

	// Seed the store from the newest cached navigation file, if any.
	if data, ts, err := navCache.LoadLatest(); err != nil {
		logger.Info("no navigation cache found, starting with the synthetic model", "error", err)
	} else if snap, err := ephemeris.Parse(bytes.NewReader(data), logger); err != nil {
		logger.Warn("failed to parse cached navigation data", "error", err)
	} else {
		snap.Source = "cache"
		snap.ParsedAt = ts
		store.Set(snap)
		metrics.SetEphemerisDataset(len(snap.Records), store.AgeSeconds())
		logger.Info("loaded navigation data from cache",
			"satellites", len(snap.Records), "cached_at", ts.Format(time.RFC3339))
	}

	svc := constellation.NewService(store, logger, cfg.MaxDataAge)
	srv := api.NewServer(api.Config{
		Addr:            cfg.Addr,
		Auth:            cfg.Auth,
		TrustProxy:      cfg.TrustProxy,
		RateLimit:       cfg.RateLimit,
		RateBurst:       cfg.RateBurst,
		DefaultLocation: cfg.Location,
		Stream: stream.Config{
			MaxConcurrentPerIP: cfg.StreamMaxPerIP,
			KeepaliveInterval:  cfg.StreamKeepalive,
		},
	}, svc, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NavFetch {
		go refreshLoop(ctx, cfg, store, navCache, logger)
	}

	// Keep the dataset gauges current.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count := 0
				if snap := store.Get(); snap != nil {
					count = len(snap.Records)
				}
				metrics.SetEphemerisDataset(count, store.AgeSeconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", cfg.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"nav_fetch_enabled", cfg.NavFetch,
			"observer_lat", cfg.Location.LatDeg,
			"observer_lon", cfg.Location.LonDeg,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// refreshLoop re-downloads and re-parses navigation data on the configured
// interval, starting with an immediate refresh.
func refreshLoop(ctx context.Context, cfg config, store *ephemeris.Store, navCache *ephemeris.Cache, logger *slog.Logger) {
	refresh := func() {
		if err := refreshNavigation(ctx, cfg, store, navCache, logger); err != nil {
			metrics.ObserveRefresh("error")
			logger.Warn("navigation refresh failed", "error", err)
			return
		}
		metrics.ObserveRefresh("ok")
	}

	// Skip the immediate refresh when the cached dataset is still fresh.
	if age := store.AgeSeconds(); age < 0 || age > time.Hour.Seconds() {
		refresh()
	}

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			refresh()
		case <-ctx.Done():
			return
		}
	}
}

// refreshNavigation performs one fetch/parse/swap cycle.
func refreshNavigation(ctx context.Context, cfg config, store *ephemeris.Store, navCache *ephemeris.Cache, logger *slog.Logger) error {
	store.Lock()
	defer store.Unlock()

	fetcher := ephemeris.NewFetcher(ephemeris.SourceURLs(cfg.NavSources, time.Now().UTC()))
	data, source, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	snap, err := ephemeris.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return fmt.Errorf("parsing navigation data from %s: %w", source, err)
	}
	if len(snap.Records) == 0 {
		return fmt.Errorf("no usable records in navigation data from %s", source)
	}
	snap.Source = source

	store.Set(snap)
	metrics.SetEphemerisDataset(len(snap.Records), 0)
	metrics.AddBlocksSkipped(snap.Skipped)

	if err := navCache.Write(data, snap.ParsedAt); err != nil {
		logger.Warn("failed to cache navigation data", "error", err)
	}

	logger.Info("navigation data refreshed",
		"source", source,
		"satellites", len(snap.Records),
		"skipped_blocks", snap.Skipped,
	)
	return nil
}

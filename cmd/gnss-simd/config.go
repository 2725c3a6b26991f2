package main

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/midbel/toml"

	"github.com/gnsslab/gnss-constellation-sim/internal/auth"
	"github.com/gnsslab/gnss-constellation-sim/internal/geodesy"
)

// config is the fully resolved service configuration: defaults, overlaid by
// the optional TOML file named in GNSSSIM_CONFIG, overlaid by environment
// variables.
type config struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool
	RateLimit  float64
	RateBurst  int

	Location geodesy.Geodetic

	NavSources      []string
	NavCacheDir     string
	NavMaxFiles     int
	NavFetch        bool
	RefreshInterval time.Duration
	MaxDataAge      time.Duration

	StreamMaxPerIP  int
	StreamKeepalive time.Duration
}

// fileConfig mirrors the TOML config file layout.
type fileConfig struct {
	Addr       string  `toml:"addr"`
	TrustProxy bool    `toml:"trust_proxy"`
	RateLimit  float64 `toml:"rate_limit"`
	RateBurst  int     `toml:"rate_burst"`

	Auth struct {
		Enabled bool   `toml:"enabled"`
		Token   string `toml:"token"`
	} `toml:"auth"`

	Location struct {
		Latitude  float64 `toml:"latitude"`
		Longitude float64 `toml:"longitude"`
		Altitude  float64 `toml:"altitude"`
	} `toml:"location"`

	Ephemeris struct {
		Sources        []string `toml:"sources"`
		CacheDir       string   `toml:"cache_dir"`
		MaxCacheFiles  int      `toml:"max_cache_files"`
		Fetch          bool     `toml:"fetch"`
		RefreshMinutes int      `toml:"refresh_minutes"`
		MaxAgeHours    int      `toml:"max_age_hours"`
	} `toml:"ephemeris"`

	Stream struct {
		MaxPerIP         int `toml:"max_per_ip"`
		KeepaliveSeconds int `toml:"keepalive_seconds"`
	} `toml:"stream"`
}

func defaultConfig() config {
	return config{
		Addr:      ":8080",
		RateLimit: 0,
		RateBurst: 20,
		// Default observer: Greenwich Observatory.
		Location:        geodesy.Geodetic{LatDeg: 51.4778, LonDeg: -0.0015, AltM: 46},
		NavCacheDir:     "nav_cache",
		NavMaxFiles:     5,
		NavFetch:        true,
		RefreshInterval: 30 * time.Minute,
		MaxDataAge:      4 * time.Hour,
		StreamMaxPerIP:  10,
		StreamKeepalive: 30 * time.Second,
	}
}

// loadConfig resolves the service configuration. It only fails on settings
// that cannot be safely defaulted (malformed auth setup).
func loadConfig(logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("GNSSSIM_CONFIG"); path != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			return cfg, err
		}
		logger.Info("loaded config file", "path", path)
	}

	applyEnv(&cfg, logger)

	if cfg.Auth.Enabled && cfg.Auth.Token == "" {
		return cfg, errors.New("auth token is required when auth is enabled (GNSSSIM_AUTH_TOKEN)")
	}
	if cfg.Auth.Enabled {
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// applyConfigFile overlays the TOML file onto cfg. The decode target is
// pre-seeded with the current values so keys absent from the file keep
// their defaults.
func applyConfigFile(cfg *config, path string) error {
	var fc fileConfig
	fc.Addr = cfg.Addr
	fc.TrustProxy = cfg.TrustProxy
	fc.RateLimit = cfg.RateLimit
	fc.RateBurst = cfg.RateBurst
	fc.Auth.Enabled = cfg.Auth.Enabled
	fc.Auth.Token = cfg.Auth.Token
	fc.Location.Latitude = cfg.Location.LatDeg
	fc.Location.Longitude = cfg.Location.LonDeg
	fc.Location.Altitude = cfg.Location.AltM
	fc.Ephemeris.Sources = cfg.NavSources
	fc.Ephemeris.CacheDir = cfg.NavCacheDir
	fc.Ephemeris.MaxCacheFiles = cfg.NavMaxFiles
	fc.Ephemeris.Fetch = cfg.NavFetch
	fc.Ephemeris.RefreshMinutes = int(cfg.RefreshInterval / time.Minute)
	fc.Ephemeris.MaxAgeHours = int(cfg.MaxDataAge / time.Hour)
	fc.Stream.MaxPerIP = cfg.StreamMaxPerIP
	fc.Stream.KeepaliveSeconds = int(cfg.StreamKeepalive / time.Second)

	if err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}

	cfg.Addr = fc.Addr
	cfg.TrustProxy = fc.TrustProxy
	cfg.RateLimit = fc.RateLimit
	cfg.RateBurst = fc.RateBurst
	cfg.Auth.Enabled = fc.Auth.Enabled
	cfg.Auth.Token = fc.Auth.Token
	cfg.Location = geodesy.Geodetic{
		LatDeg: fc.Location.Latitude,
		LonDeg: fc.Location.Longitude,
		AltM:   fc.Location.Altitude,
	}
	cfg.NavSources = fc.Ephemeris.Sources
	cfg.NavCacheDir = fc.Ephemeris.CacheDir
	cfg.NavMaxFiles = fc.Ephemeris.MaxCacheFiles
	cfg.NavFetch = fc.Ephemeris.Fetch
	cfg.RefreshInterval = time.Duration(fc.Ephemeris.RefreshMinutes) * time.Minute
	cfg.MaxDataAge = time.Duration(fc.Ephemeris.MaxAgeHours) * time.Hour
	cfg.StreamMaxPerIP = fc.Stream.MaxPerIP
	cfg.StreamKeepalive = time.Duration(fc.Stream.KeepaliveSeconds) * time.Second
	return nil
}

func applyEnv(cfg *config, logger *slog.Logger) {
	if v := os.Getenv("GNSSSIM_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("GNSSSIM_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GNSSSIM_AUTH_ENABLED value, keeping current setting", "value", v)
		} else {
			cfg.Auth.Enabled = enabled
		}
	}
	if v := os.Getenv("GNSSSIM_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	if v := os.Getenv("GNSSSIM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GNSSSIM_TRUST_PROXY value, keeping current setting", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	if v := os.Getenv("GNSSSIM_RATE_LIMIT"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			logger.Warn("invalid GNSSSIM_RATE_LIMIT value, keeping current setting", "value", v)
		} else {
			cfg.RateLimit = n
		}
	}
	if v := os.Getenv("GNSSSIM_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_RATE_BURST value, keeping current setting", "value", v)
		} else {
			cfg.RateBurst = n
		}
	}

	applyLocationEnv(cfg, logger)

	if v := os.Getenv("GNSSSIM_NAV_SOURCES"); v != "" {
		var sources []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		if len(sources) > 0 {
			cfg.NavSources = sources
		}
	}
	if v := os.Getenv("GNSSSIM_NAV_CACHE_DIR"); v != "" {
		cfg.NavCacheDir = v
	}
	if v := os.Getenv("GNSSSIM_NAV_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_NAV_MAX_FILES value, keeping current setting", "value", v)
		} else {
			cfg.NavMaxFiles = n
		}
	}
	if v := os.Getenv("GNSSSIM_NAV_FETCH"); v != "" {
		fetch, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid GNSSSIM_NAV_FETCH value, keeping current setting", "value", v)
		} else {
			cfg.NavFetch = fetch
		}
	}
	if v := os.Getenv("GNSSSIM_NAV_REFRESH_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_NAV_REFRESH_MINUTES value, keeping current setting", "value", v)
		} else {
			cfg.RefreshInterval = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("GNSSSIM_NAV_MAX_AGE_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_NAV_MAX_AGE_HOURS value, keeping current setting", "value", v)
		} else {
			cfg.MaxDataAge = time.Duration(n) * time.Hour
		}
	}

	if v := os.Getenv("GNSSSIM_STREAM_MAX_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_STREAM_MAX_PER_IP value, keeping current setting", "value", v)
		} else {
			cfg.StreamMaxPerIP = n
		}
	}
	if v := os.Getenv("GNSSSIM_STREAM_KEEPALIVE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid GNSSSIM_STREAM_KEEPALIVE_SECONDS value, keeping current setting", "value", v)
		} else {
			cfg.StreamKeepalive = time.Duration(n) * time.Second
		}
	}
}

func applyLocationEnv(cfg *config, logger *slog.Logger) {
	parse := func(name string, dst *float64) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logger.Warn("invalid coordinate value, keeping current setting", "var", name, "value", v)
			return
		}
		*dst = n
	}
	parse("GNSSSIM_LATITUDE", &cfg.Location.LatDeg)
	parse("GNSSSIM_LONGITUDE", &cfg.Location.LonDeg)
	parse("GNSSSIM_ALTITUDE", &cfg.Location.AltM)
}

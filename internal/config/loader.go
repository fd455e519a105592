package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config captures configuration values for the dashboard server.
type Config struct {
	HTTPPort            int
	SQLiteDSN           string
	SessionTTL          time.Duration
	CookieSecure        bool
	PageSize            int
	Timezone            *time.Location
	RouteGuard          bool
	LogFormat           string
	LogLevel            string
	WorkspaceCacheSize  int
	SignInRatePerMinute int
}

// fileConfig mirrors the optional TOML file named by DASHBOARD_CONFIG.
type fileConfig struct {
	HTTPPort       int    `toml:"http_port"`
	SQLiteDSN      string `toml:"sqlite_dsn"`
	SessionTTL     string `toml:"session_ttl"`
	CookieSecure   *bool  `toml:"cookie_secure"`
	PageSize       int    `toml:"page_size"`
	Timezone       string `toml:"timezone"`
	RouteGuard     *bool  `toml:"route_guard"`
	WorkspaceCache int    `toml:"workspace_cache"`
	SignInRate     *int   `toml:"signin_rate"`
	Log            struct {
		Format string `toml:"format"`
		Level  string `toml:"level"`
	} `toml:"log"`
}

// Defaults returns the configuration used when neither a file nor environment overrides are present.
func Defaults() Config {
	return Config{
		HTTPPort:            8080,
		SQLiteDSN:           "data/dashboard.db",
		SessionTTL:          24 * time.Hour,
		PageSize:            20,
		Timezone:            time.Local,
		RouteGuard:          true,
		LogFormat:           "json",
		LogLevel:            "info",
		WorkspaceCacheSize:  256,
		SignInRatePerMinute: 10,
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by DASHBOARD_CONFIG, and DASHBOARD_* environment variables, in that order.
// Every invalid value is reported in a single error.
func Load() (Config, error) {
	cfg := Defaults()
	invalid := make([]string, 0, 2)

	if path := strings.TrimSpace(os.Getenv("DASHBOARD_CONFIG")); path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		invalid = append(invalid, applyFile(&cfg, fc)...)
	}

	invalid = append(invalid, applyEnv(&cfg)...)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) []string {
	var invalid []string

	if fc.HTTPPort != 0 {
		if fc.HTTPPort < 0 {
			invalid = append(invalid, "http_port")
		} else {
			cfg.HTTPPort = fc.HTTPPort
		}
	}
	if fc.SQLiteDSN != "" {
		cfg.SQLiteDSN = fc.SQLiteDSN
	}
	if fc.SessionTTL != "" {
		if ttl, err := parsePositiveDuration(fc.SessionTTL); err != nil {
			invalid = append(invalid, "session_ttl")
		} else {
			cfg.SessionTTL = ttl
		}
	}
	if fc.CookieSecure != nil {
		cfg.CookieSecure = *fc.CookieSecure
	}
	if fc.PageSize != 0 {
		if fc.PageSize < 0 {
			invalid = append(invalid, "page_size")
		} else {
			cfg.PageSize = fc.PageSize
		}
	}
	if fc.Timezone != "" {
		if loc, err := time.LoadLocation(fc.Timezone); err != nil {
			invalid = append(invalid, "timezone")
		} else {
			cfg.Timezone = loc
		}
	}
	if fc.RouteGuard != nil {
		cfg.RouteGuard = *fc.RouteGuard
	}
	if fc.WorkspaceCache != 0 {
		if fc.WorkspaceCache < 0 {
			invalid = append(invalid, "workspace_cache")
		} else {
			cfg.WorkspaceCacheSize = fc.WorkspaceCache
		}
	}
	if fc.SignInRate != nil {
		if *fc.SignInRate < 0 {
			invalid = append(invalid, "signin_rate")
		} else {
			cfg.SignInRatePerMinute = *fc.SignInRate
		}
	}
	if fc.Log.Format != "" {
		cfg.LogFormat = fc.Log.Format
	}
	if fc.Log.Level != "" {
		cfg.LogLevel = fc.Log.Level
	}
	return invalid
}

func applyEnv(cfg *Config) []string {
	var invalid []string

	if portValue := strings.TrimSpace(os.Getenv("DASHBOARD_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "DASHBOARD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("DASHBOARD_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("DASHBOARD_SESSION_TTL")); ttlValue != "" {
		if ttl, err := parsePositiveDuration(ttlValue); err != nil {
			invalid = append(invalid, "DASHBOARD_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if secure := strings.TrimSpace(os.Getenv("DASHBOARD_COOKIE_SECURE")); secure != "" {
		if value, err := strconv.ParseBool(secure); err != nil {
			invalid = append(invalid, "DASHBOARD_COOKIE_SECURE")
		} else {
			cfg.CookieSecure = value
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("DASHBOARD_PAGE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "DASHBOARD_PAGE_SIZE")
		} else {
			cfg.PageSize = size
		}
	}

	if tz := strings.TrimSpace(os.Getenv("DASHBOARD_TIMEZONE")); tz != "" {
		if loc, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "DASHBOARD_TIMEZONE")
		} else {
			cfg.Timezone = loc
		}
	}

	if guard := strings.TrimSpace(os.Getenv("DASHBOARD_ROUTE_GUARD")); guard != "" {
		if value, err := strconv.ParseBool(guard); err != nil {
			invalid = append(invalid, "DASHBOARD_ROUTE_GUARD")
		} else {
			cfg.RouteGuard = value
		}
	}

	if format := strings.TrimSpace(os.Getenv("DASHBOARD_LOG_FORMAT")); format != "" {
		cfg.LogFormat = format
	}
	if level := strings.TrimSpace(os.Getenv("DASHBOARD_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if cacheValue := strings.TrimSpace(os.Getenv("DASHBOARD_WORKSPACE_CACHE")); cacheValue != "" {
		size, err := strconv.Atoi(cacheValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "DASHBOARD_WORKSPACE_CACHE")
		} else {
			cfg.WorkspaceCacheSize = size
		}
	}

	if rateValue := strings.TrimSpace(os.Getenv("DASHBOARD_SIGNIN_RATE")); rateValue != "" {
		perMinute, err := strconv.Atoi(rateValue)
		if err != nil || perMinute < 0 {
			invalid = append(invalid, "DASHBOARD_SIGNIN_RATE")
		} else {
			cfg.SignInRatePerMinute = perMinute
		}
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		invalid = append(invalid, "log format")
	}

	return invalid
}

func parsePositiveDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("duration must be positive")
	}
	return d, nil
}

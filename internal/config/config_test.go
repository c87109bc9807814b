package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/pantry-finder/internal/odm"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/agency_hours.csv", cfg.Data.HoursPath)
	assert.Equal(t, "data/tracts.shp", cfg.Data.TractsPath)
	assert.Equal(t, 300, cfg.Data.RefreshSecs)
	assert.InDelta(t, 20, cfg.Search.PrimaryMinutes, 0.001)
	assert.InDelta(t, 60, cfg.Search.FallbackMinutes, 0.001)
	assert.Equal(t, "tract", cfg.Search.FallbackScope)
	assert.Equal(t, "America/New_York", cfg.Search.Timezone)
	assert.True(t, cfg.Search.Stages.ZIPLookup)
	assert.True(t, cfg.Search.Stages.Hours)
	assert.True(t, cfg.Search.Stages.Categories)
	assert.Equal(t, 1024, cfg.Geocode.CacheSize)
	assert.Equal(t, 10, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, 3, cfg.Geocode.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Geocode.Retry.Backoff)
	assert.Equal(t, "memory", cfg.Session.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data:
  hours_path: /srv/hours.xlsx
search:
  fallback_minutes: 45
  fallback_scope: any
  stages:
    hours: false
session:
  driver: sqlite
  database_url: /srv/sessions.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/hours.xlsx", cfg.Data.HoursPath)
	assert.InDelta(t, 45, cfg.Search.FallbackMinutes, 0.001)
	assert.Equal(t, "any", cfg.Search.FallbackScope)
	assert.False(t, cfg.Search.Stages.Hours)
	assert.Equal(t, "sqlite", cfg.Session.Driver)
	assert.Equal(t, "/srv/sessions.db", cfg.Session.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "data/travel_times.csv", cfg.Data.TravelPath)
	assert.True(t, cfg.Search.Stages.Categories)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
session:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PANTRY_SESSION_DRIVER", "postgres")
	t.Setenv("PANTRY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Session.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PANTRY_SERVER_PORT", "3000")
	t.Setenv("PANTRY_SEARCH_PRIMARY_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.InDelta(t, 15, cfg.Search.PrimaryMinutes, 0.001)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("search: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Data = DataConfig{HoursPath: "h.csv", TravelPath: "t.csv", TractsPath: "tracts.shp"}
	cfg.Search.PrimaryMinutes = 20
	cfg.Search.FallbackMinutes = 60
	cfg.Search.FallbackScope = "tract"
	cfg.Search.Timezone = "America/New_York"
	cfg.Geocode.TimeoutSecs = 10
	cfg.Session.Driver = "memory"
	cfg.Server.Port = 8080
	cfg.Log = LogConfig{Level: "info", Format: "json"}
	return cfg
}

func TestValidate_Modes(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("data"))
	assert.NoError(t, cfg.Validate("find"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateData_MissingPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.TravelPath = ""

	err := cfg.Validate("data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.travel_path failed required")
}

func TestValidateData_TractsOptional(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.TractsPath = ""

	require.NoError(t, cfg.Validate("data"))
	require.NoError(t, cfg.Validate("serve"))
	assert.Empty(t, cfg.RefdataPaths().TractsPath)
}

func TestValidateSearch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero primary", func(c *Config) { c.Search.PrimaryMinutes = 0 }, "search.primary_minutes"},
		{"fallback below primary", func(c *Config) { c.Search.FallbackMinutes = 10 }, "search.fallback_minutes"},
		{"bad scope", func(c *Config) { c.Search.FallbackScope = "county" }, "search.fallback_scope"},
		{"unknown timezone", func(c *Config) { c.Search.Timezone = "Mars/Olympus" }, "search.timezone"},
		{"negative rate", func(c *Config) { c.Geocode.RateLimit = -1 }, "geocode.rate_limit"},
		{"zero timeout", func(c *Config) { c.Geocode.TimeoutSecs = 0 }, "geocode.timeout_secs"},
		{"bad driver", func(c *Config) { c.Session.Driver = "redis" }, "session.driver"},
		{"sqlite without url", func(c *Config) { c.Session.Driver = "sqlite" }, "session.database_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)

			err := cfg.Validate("find")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			// Data-only commands do not care.
			assert.NoError(t, cfg.Validate("data"))
		})
	}
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.NoError(t, cfg.Validate("find"))
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestEngineConfig(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.FallbackScope = "any"
	cfg.Search.Stages.Hours = true

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.InDelta(t, 20, ec.Budget.PrimaryMinutes, 0.001)
	assert.InDelta(t, 60, ec.Budget.FallbackMinutes, 0.001)
	assert.Equal(t, odm.FallbackAny, ec.Budget.Scope)
	assert.True(t, ec.Stages.Hours)
	assert.False(t, ec.Stages.ZIPLookup)
	assert.Equal(t, "America/New_York", ec.Location.String())

	cfg.Search.Timezone = "Nowhere/Land"
	_, err = cfg.EngineConfig()
	assert.Error(t, err)
}

func TestRefdataPathsAndDurations(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.CacheTTLMins = 30

	paths := cfg.RefdataPaths()
	assert.Equal(t, "h.csv", paths.HoursPath)
	assert.Equal(t, "t.csv", paths.TravelPath)
	assert.Equal(t, "tracts.shp", paths.TractsPath)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout())
	assert.Equal(t, 30*time.Minute, cfg.GeocodeCacheTTL())

	cfg.Data.RefreshSecs = 60
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
}

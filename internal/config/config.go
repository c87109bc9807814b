package config

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/pantry-finder/internal/odm"
	"github.com/sells-group/pantry-finder/internal/pantry"
	"github.com/sells-group/pantry-finder/internal/refdata"
	"github.com/sells-group/pantry-finder/internal/resilience"
	"github.com/sells-group/pantry-finder/internal/session"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig     `yaml:"data" mapstructure:"data"`
	Search  SearchConfig   `yaml:"search" mapstructure:"search"`
	Geocode GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Session session.Config `yaml:"session" mapstructure:"session"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the reference tables.
type DataConfig struct {
	HoursPath  string `yaml:"hours_path" mapstructure:"hours_path" validate:"required"`
	TravelPath string `yaml:"travel_path" mapstructure:"travel_path" validate:"required"`
	// TractsPath may be empty for ZIP-only deployments.
	TractsPath string `yaml:"tracts_path" mapstructure:"tracts_path"`

	// RefreshSecs is how often serve rechecks the tables; 0 disables it.
	RefreshSecs int `yaml:"refresh_secs" mapstructure:"refresh_secs" validate:"gte=0"`
}

// SearchConfig configures the travel budget and pipeline stages.
type SearchConfig struct {
	PrimaryMinutes  float64       `yaml:"primary_minutes" mapstructure:"primary_minutes" validate:"gt=0"`
	FallbackMinutes float64       `yaml:"fallback_minutes" mapstructure:"fallback_minutes" validate:"gtefield=PrimaryMinutes"`
	FallbackScope   string        `yaml:"fallback_scope" mapstructure:"fallback_scope" validate:"oneof=tract any"`
	Timezone        string        `yaml:"timezone" mapstructure:"timezone" validate:"required"`
	Stages          pantry.Stages `yaml:"stages" mapstructure:"stages"`
}

// GeocodeConfig configures the address geocoder.
type GeocodeConfig struct {
	GoogleAPIKey string            `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit    float64           `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	CacheSize    int               `yaml:"cache_size" mapstructure:"cache_size" validate:"gte=0"`
	CacheTTLMins int               `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins" validate:"gte=0"`
	TimeoutSecs  int               `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
	Retry        resilience.Policy `yaml:"retry" mapstructure:"retry"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.hours_path", "data/agency_hours.csv")
	v.SetDefault("data.travel_path", "data/travel_times.csv")
	v.SetDefault("data.tracts_path", "data/tracts.shp")
	v.SetDefault("data.refresh_secs", 300)
	v.SetDefault("search.primary_minutes", 20)
	v.SetDefault("search.fallback_minutes", 60)
	v.SetDefault("search.fallback_scope", string(odm.FallbackTract))
	v.SetDefault("search.timezone", "America/New_York")
	v.SetDefault("search.stages.zip_lookup", true)
	v.SetDefault("search.stages.hours", true)
	v.SetDefault("search.stages.categories", true)
	v.SetDefault("geocode.rate_limit", 5)
	v.SetDefault("geocode.cache_size", 1024)
	v.SetDefault("geocode.cache_ttl_mins", 60)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.retry.attempts", 3)
	v.SetDefault("geocode.retry.backoff", "250ms")
	v.SetDefault("geocode.retry.max_backoff", "5s")
	v.SetDefault("geocode.retry.jitter", 0.2)
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.pool.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode needs. Mode "data" only needs the
// reference table paths; "find" adds search, geocode and session settings;
// "serve" also needs a usable port.
func (c *Config) Validate(mode string) error {
	validate := newValidator()

	if err := validate.Struct(c.Data); err != nil {
		return fieldErrors("data", err)
	}
	if err := validate.Struct(c.Log); err != nil {
		return fieldErrors("log", err)
	}

	switch mode {
	case "data":
		return nil
	case "find", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if err := validate.Struct(c.Search); err != nil {
		return fieldErrors("search", err)
	}
	if _, err := time.LoadLocation(c.Search.Timezone); err != nil {
		return eris.Wrapf(err, "config: search.timezone %q", c.Search.Timezone)
	}
	if err := validate.Struct(c.Geocode); err != nil {
		return fieldErrors("geocode", err)
	}
	if err := validate.Struct(c.Session); err != nil {
		return fieldErrors("session", err)
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return eris.New("config: server.port must be > 0 and <= 65535")
	}
	return nil
}

// newValidator reports fields by their config key rather than Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// fieldErrors flattens validator errors into "config: section.key failed tag"
// messages.
func fieldErrors(section string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrapf(err, "config: validate %s", section)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, section+"."+fe.Field()+" failed "+fe.Tag())
	}
	return eris.New("config: " + strings.Join(msgs, "; "))
}

// RefdataPaths returns the loader paths for the reference tables.
func (c *Config) RefdataPaths() refdata.Paths {
	return refdata.Paths{
		HoursPath:  c.Data.HoursPath,
		TravelPath: c.Data.TravelPath,
		TractsPath: c.Data.TractsPath,
	}
}

// EngineConfig builds the search engine configuration, resolving the
// configured timezone.
func (c *Config) EngineConfig() (pantry.Config, error) {
	loc, err := time.LoadLocation(c.Search.Timezone)
	if err != nil {
		return pantry.Config{}, eris.Wrapf(err, "config: load timezone %q", c.Search.Timezone)
	}
	return pantry.Config{
		Budget: odm.Budget{
			PrimaryMinutes:  c.Search.PrimaryMinutes,
			FallbackMinutes: c.Search.FallbackMinutes,
			Scope:           odm.FallbackScope(c.Search.FallbackScope),
		},
		Stages:   c.Search.Stages,
		Location: loc,
	}, nil
}

// RefreshInterval is how often serve rechecks the reference tables.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Data.RefreshSecs) * time.Second
}

// GeocodeTimeout is the per-request HTTP timeout for geocoder calls.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutSecs) * time.Second
}

// GeocodeCacheTTL is how long geocoder answers are memoized.
func (c *Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.Geocode.CacheTTLMins) * time.Minute
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

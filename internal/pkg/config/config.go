package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Geometry  GeometryConfig  `mapstructure:"geometry"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
	Mapbox    MapboxConfig    `mapstructure:"mapbox"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig points at the store holding per-client recent searches.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Catalog sources.
const (
	CatalogStatic   = "static"
	CatalogPostgres = "postgres"
)

type CatalogConfig struct {
	Source string `mapstructure:"source"`
}

// PlannerConfig tunes the journey composer.
type PlannerConfig struct {
	WalkPreferredMeters float64       `mapstructure:"walk_preferred_m"`
	BusSpeedMps         float64       `mapstructure:"bus_speed_mps"`
	DefaultWaitMin      int           `mapstructure:"default_wait_min"`
	LeaveBuffer         time.Duration `mapstructure:"leave_buffer"`
	LiveDirections      bool          `mapstructure:"live_directions"`
}

type GeometryConfig struct {
	OverlapToleranceMeters float64 `mapstructure:"overlap_tolerance_m"`
	InterpolatorCacheSize  int     `mapstructure:"interpolator_cache_size"`
}

type FleetConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Tick             time.Duration `mapstructure:"tick"`
	VehiclesPerRoute int           `mapstructure:"vehicles_per_route"`
	SpeedMps         float64       `mapstructure:"speed_mps"`
}

type MapboxConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProxyConfig holds memoization TTLs for upstream responses.
type ProxyConfig struct {
	GeocodeTTL     time.Duration `mapstructure:"geocode_ttl"`
	DirectionsTTL  time.Duration `mapstructure:"directions_ttl"`
	SummaryTTL     time.Duration `mapstructure:"summary_ttl"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
}

// Load reads configuration from .env, an optional config file and environment variables.
func Load(service string) (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CAMPUSRIDE_MAPBOX_TOKEN → mapbox.token
	v.SetEnvPrefix("CAMPUSRIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "campusride")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "campusride")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("redis.addr", "localhost:6380")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "route-geometry")
	v.SetDefault("catalog.source", CatalogStatic)
	v.SetDefault("planner.walk_preferred_m", 200.0)
	v.SetDefault("planner.bus_speed_mps", 5.56)
	v.SetDefault("planner.default_wait_min", 5)
	v.SetDefault("planner.leave_buffer", 90*time.Second)
	v.SetDefault("planner.live_directions", true)
	v.SetDefault("geometry.overlap_tolerance_m", 4.0)
	v.SetDefault("geometry.interpolator_cache_size", 256)
	v.SetDefault("fleet.enabled", true)
	v.SetDefault("fleet.tick", 300*time.Millisecond)
	v.SetDefault("fleet.vehicles_per_route", 2)
	v.SetDefault("fleet.speed_mps", 6.0)
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("mapbox.token", "")
	v.SetDefault("mapbox.timeout", 8*time.Second)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", 20*time.Second)
	v.SetDefault("proxy.geocode_ttl", 10*time.Minute)
	v.SetDefault("proxy.directions_ttl", 6*time.Hour)
	v.SetDefault("proxy.summary_ttl", time.Hour)
	v.SetDefault("proxy.search_debounce", 280*time.Millisecond)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	switch c.Catalog.Source {
	case CatalogStatic:
	case CatalogPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog.source must be %q or %q, got %q", CatalogStatic, CatalogPostgres, c.Catalog.Source))
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required")
	}
	if c.Planner.WalkPreferredMeters < 0 {
		errs = append(errs, "planner.walk_preferred_m must not be negative")
	}
	if c.Planner.BusSpeedMps <= 0 {
		errs = append(errs, "planner.bus_speed_mps must be positive")
	}
	if c.Planner.DefaultWaitMin < 0 {
		errs = append(errs, "planner.default_wait_min must not be negative")
	}
	if c.Geometry.OverlapToleranceMeters <= 0 {
		errs = append(errs, "geometry.overlap_tolerance_m must be positive")
	}
	if c.Fleet.Tick <= 0 {
		errs = append(errs, "fleet.tick must be positive")
	}
	if c.Fleet.VehiclesPerRoute < 0 {
		errs = append(errs, "fleet.vehicles_per_route must not be negative")
	}
	if c.Fleet.SpeedMps <= 0 {
		errs = append(errs, "fleet.speed_mps must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

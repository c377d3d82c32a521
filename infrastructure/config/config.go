// Package config loads canvasd configuration from layered YAML files and
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// Environment represents the deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Snapshot backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Environment   Environment   `yaml:"environment" validate:"required,oneof=development staging production"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
	Canvas        Canvas        `yaml:"canvas"`
	Enrichment    Enrichment    `yaml:"enrichment"`
	Icons         Icons         `yaml:"icons"`
	Snapshot      Snapshot      `yaml:"snapshot"`
	Autosave      Autosave      `yaml:"autosave"`
	Notifications Notifications `yaml:"notifications"`
	AWS           AWS           `yaml:"aws"`
	Events        Events        `yaml:"events"`
	Metrics       Metrics       `yaml:"metrics"`
	Tracing       Tracing       `yaml:"tracing"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP inspector API
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Logging configures zap
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Canvas is the initial screen and minimap size
type Canvas struct {
	Width         float64 `yaml:"width" validate:"gt=0"`
	Height        float64 `yaml:"height" validate:"gt=0"`
	MinimapWidth  float64 `yaml:"minimap_width" validate:"gt=0"`
	MinimapHeight float64 `yaml:"minimap_height" validate:"gt=0"`
}

// Enrichment configures the external enrichment backend
type Enrichment struct {
	Enabled       bool          `yaml:"enabled"`
	Endpoint      string        `yaml:"endpoint" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	Pivots        bool          `yaml:"pivots"`
	MaxConcurrent int64         `yaml:"max_concurrent" validate:"gte=1"`
	Breaker       Breaker       `yaml:"breaker"`
}

// Breaker tunes a circuit breaker around an outbound dependency
type Breaker struct {
	MinRequests  uint32        `yaml:"min_requests" validate:"gte=1"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gt=0,lte=1"`
	OpenTimeout  time.Duration `yaml:"open_timeout" validate:"gt=0"`
	Interval     time.Duration `yaml:"interval" validate:"gte=0"`
}

// Icons configures favicon probing and the extra host rules
type Icons struct {
	ProbeEnabled  bool                `yaml:"probe_enabled"`
	ProbeTimeout  time.Duration       `yaml:"probe_timeout" validate:"gt=0"`
	CacheTTL      time.Duration       `yaml:"cache_ttl" validate:"gte=0"`
	CacheMax      int                 `yaml:"cache_max_entries" validate:"gte=0"`
	PurgeInterval time.Duration       `yaml:"purge_interval" validate:"gte=0"`
	MaxConcurrent int64               `yaml:"max_concurrent" validate:"gte=1"`
	ExtraRules    []services.IconRule `yaml:"extra_rules" validate:"dive"`
	Breaker       Breaker             `yaml:"breaker"`
}

// Snapshot selects where the autosaved document lives
type Snapshot struct {
	Backend  string   `yaml:"backend" validate:"oneof=file sqlite redis dynamodb memory"`
	Path     string   `yaml:"path"`
	Redis    Redis    `yaml:"redis"`
	DynamoDB DynamoDB `yaml:"dynamodb"`
}

// Redis configures the redis snapshot slot
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix"`
}

// DynamoDB configures the dynamodb snapshot slot
type DynamoDB struct {
	Table    string `yaml:"table"`
	Endpoint string `yaml:"endpoint"`
}

// Autosave tunes the debounced snapshot writer
type Autosave struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
}

// Notifications sizes the in-memory notification ring
type Notifications struct {
	Capacity int `yaml:"capacity" validate:"gte=1"`
}

// AWS holds shared AWS settings
type AWS struct {
	Region string `yaml:"region"`
}

// Events configures the EventBridge mutation sink
type Events struct {
	Enabled   bool   `yaml:"enabled"`
	BusName   string `yaml:"bus_name"`
	Source    string `yaml:"source"`
	BatchSize int    `yaml:"batch_size" validate:"gte=1,lte=10"`
}

// Metrics configures the Prometheus collector
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
	Path      string `yaml:"path" validate:"required,startswith=/"`
}

// Tracing configures the OTLP exporter
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Runtime is the part of the configuration that can change while canvasd runs
type Runtime struct {
	LogLevel          string
	EnrichmentEnabled bool
	EnrichmentTimeout time.Duration
	ExtraIconRules    []services.IconRule
	AutosaveDebounce  time.Duration
}

// Runtime extracts the hot-reloadable settings
func (c *Config) Runtime() Runtime {
	return Runtime{
		LogLevel:          c.Logging.Level,
		EnrichmentEnabled: c.Enrichment.Enabled,
		EnrichmentTimeout: c.Enrichment.Timeout,
		ExtraIconRules:    append([]services.IconRule(nil), c.Icons.ExtraRules...),
		AutosaveDebounce:  c.Autosave.Debounce,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}

	switch c.Snapshot.Backend {
	case BackendFile, BackendSQLite:
		if c.Snapshot.Path == "" {
			return fmt.Errorf("snapshot.path is required for the %s backend", c.Snapshot.Backend)
		}
	case BackendRedis:
		if c.Snapshot.Redis.Addr == "" {
			return fmt.Errorf("snapshot.redis.addr is required for the redis backend")
		}
	case BackendDynamoDB:
		if c.Snapshot.DynamoDB.Table == "" {
			return fmt.Errorf("snapshot.dynamodb.table is required for the dynamodb backend")
		}
		if c.AWS.Region == "" {
			return fmt.Errorf("aws.region is required for the dynamodb backend")
		}
	}

	if c.Events.Enabled && c.Events.BusName == "" {
		return fmt.Errorf("events.bus_name is required when events are enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	if c.IsProduction() {
		for _, origin := range c.Server.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("wildcard CORS origin not allowed in production")
			}
		}
	}

	return nil
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// ParseEnvironment maps a free-form name onto an Environment
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Production
	case "stage", "staging":
		return Staging
	default:
		return Development
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnrichmentEndpoint is the local enrichment backend address
const DefaultEnrichmentEndpoint = "http://127.0.0.1:8795"

// Loader handles loading configuration from multiple sources.
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. Base configuration file (base.yaml)
//  3. Environment-specific file (e.g., production.yaml)
//  4. Environment variables
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
}

// NewLoader creates a loader reading files from basePath
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if env == "" {
		env = Development
	}
	return &Loader{basePath: basePath, environment: env}
}

// Files returns the file paths the loader reads, whether or not they exist
func (l *Loader) Files() []string {
	var out []string
	for _, name := range []string{"base", string(l.environment)} {
		for _, ext := range fileExtensions {
			out = append(out, filepath.Join(l.basePath, name+ext))
		}
	}
	return out
}

// Load builds the configuration from all sources and validates it
func (l *Loader) Load() (*Config, error) {
	l.sources = l.sources[:0]

	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	// ENVIRONMENT picks the files; a file cannot move itself to another environment
	cfg.Environment = l.environment
	cfg.LoadedFrom = append([]string(nil), l.sources...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var fileExtensions = []string{".yaml", ".yml"}

// loadFile decodes the first existing name.yaml or name.yml over cfg
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, ext := range fileExtensions {
		path := filepath.Join(l.basePath, name+ext)
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}

		err = decodeYAML(file, cfg)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return fs.ErrNotExist
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadEnvironmentVariables overlays environment variables on the configuration
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("SERVER_ADDRESS"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = strings.ToLower(val)
	}

	if val := os.Getenv("ENRICHMENT_ENDPOINT"); val != "" {
		cfg.Enrichment.Endpoint = val
	}
	if val := os.Getenv("ENRICHMENT_ENABLED"); val != "" {
		cfg.Enrichment.Enabled = parseBool(val, cfg.Enrichment.Enabled)
	}
	if val := os.Getenv("ENRICHMENT_TIMEOUT"); val != "" {
		cfg.Enrichment.Timeout = parseDuration(val, cfg.Enrichment.Timeout)
	}
	if val := os.Getenv("ENRICHMENT_PIVOTS"); val != "" {
		cfg.Enrichment.Pivots = parseBool(val, cfg.Enrichment.Pivots)
	}
	if val := os.Getenv("ICON_PROBE_ENABLED"); val != "" {
		cfg.Icons.ProbeEnabled = parseBool(val, cfg.Icons.ProbeEnabled)
	}

	if val := os.Getenv("SNAPSHOT_BACKEND"); val != "" {
		cfg.Snapshot.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("SNAPSHOT_PATH"); val != "" {
		cfg.Snapshot.Path = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Snapshot.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Snapshot.Redis.Password = val
	}
	if val := os.Getenv("DYNAMODB_TABLE"); val != "" {
		cfg.Snapshot.DynamoDB.Table = val
	}
	if val := os.Getenv("DYNAMODB_ENDPOINT"); val != "" {
		cfg.Snapshot.DynamoDB.Endpoint = val
	}
	if val := os.Getenv("AUTOSAVE_DEBOUNCE"); val != "" {
		cfg.Autosave.Debounce = parseDuration(val, cfg.Autosave.Debounce)
	}

	if val := os.Getenv("AWS_REGION"); val != "" {
		cfg.AWS.Region = val
	}
	if val := os.Getenv("EVENT_BUS_NAME"); val != "" {
		cfg.Events.BusName = val
		cfg.Events.Enabled = true
	}
	if val := os.Getenv("ENABLE_EVENTS"); val != "" {
		cfg.Events.Enabled = parseBool(val, cfg.Events.Enabled)
	}

	if val := os.Getenv("ENABLE_METRICS"); val != "" {
		cfg.Metrics.Enabled = parseBool(val, cfg.Metrics.Enabled)
	}
	if val := os.Getenv("ENABLE_TRACING"); val != "" {
		cfg.Tracing.Enabled = parseBool(val, cfg.Tracing.Enabled)
	}
	if val := os.Getenv("OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
	}
}

// defaultConfig returns a configuration that runs without any files
func (l *Loader) defaultConfig() *Config {
	cfg := &Config{
		Environment: l.environment,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 * 1024 * 1024,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Canvas: Canvas{
			Width:         1280,
			Height:        800,
			MinimapWidth:  220,
			MinimapHeight: 160,
		},
		Enrichment: Enrichment{
			Enabled:       false,
			Endpoint:      DefaultEnrichmentEndpoint,
			Timeout:       10 * time.Second,
			Pivots:        true,
			MaxConcurrent: 4,
			Breaker: Breaker{
				MinRequests:  5,
				FailureRatio: 0.6,
				OpenTimeout:  30 * time.Second,
				Interval:     time.Minute,
			},
		},
		Icons: Icons{
			ProbeEnabled:  true,
			ProbeTimeout:  5 * time.Second,
			CacheTTL:      time.Hour,
			CacheMax:      4096,
			PurgeInterval: 10 * time.Minute,
			MaxConcurrent: 8,
			Breaker: Breaker{
				MinRequests:  10,
				FailureRatio: 0.8,
				OpenTimeout:  time.Minute,
				Interval:     time.Minute,
			},
		},
		Snapshot: Snapshot{
			Backend: BackendFile,
			Path:    filepath.Join("data", "mindmap.json"),
			Redis: Redis{
				Addr:      "localhost:6379",
				KeyPrefix: "osint-mindmap:",
			},
			DynamoDB: DynamoDB{
				Table: "osint-mindmap-" + string(l.environment),
			},
		},
		Autosave: Autosave{
			Enabled:  true,
			Debounce: 750 * time.Millisecond,
		},
		Notifications: Notifications{
			Capacity: 200,
		},
		AWS: AWS{
			Region: "us-east-1",
		},
		Events: Events{
			Source:    "osint-mindmap.canvas",
			BatchSize: 10,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "osint_mindmap",
			Path:      "/metrics",
		},
		Tracing: Tracing{
			ServiceName: "osint-mindmap",
			SampleRate:  0.1,
		},
	}

	if l.environment == Development {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		cfg.Tracing.SampleRate = 1.0
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string, fallback bool) bool {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return val
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// Load reads ENVIRONMENT and CONFIG_DIR and loads the configuration
func Load() (*Config, error) {
	return NewLoader(getEnv("CONFIG_DIR", "config"), ParseEnvironment(getEnv("ENVIRONMENT", "development"))).Load()
}

// MustLoad loads configuration and panics on error. Use only in main().
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

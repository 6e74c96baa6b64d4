package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// DefaultPath is read when Load is given no path and the file exists
const DefaultPath = "configs/config.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: CG_SERVER__READ_TIMEOUT sets server.read_timeout.
const EnvPrefix = "CG_"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server     ServerConfig     `koanf:"server"`
	Corpus     CorpusConfig     `koanf:"corpus"`
	Signatures SignaturesConfig `koanf:"signatures"`
	Region     RegionConfig     `koanf:"region"`
	Redis      RedisConfig      `koanf:"redis"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Assistant  AssistantConfig  `koanf:"assistant"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type CorpusConfig struct {
	Path           string        `koanf:"path"`
	Delimiter      string        `koanf:"delimiter"`
	Watch          bool          `koanf:"watch"`
	WatchDebounce  time.Duration `koanf:"watch_debounce"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
	MaxRowErrors   int           `koanf:"max_row_errors"`
}

type SignaturesConfig struct {
	Path string `koanf:"path"`
}

type RegionConfig struct {
	CountryCode string `koanf:"country_code"`
	TrunkPrefix string `koanf:"trunk_prefix"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	ResultTTL    time.Duration `koanf:"result_ttl"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	Insecure     bool    `koanf:"insecure"`
	SampleRate   float64 `koanf:"sample_rate"`
}

type RateLimitConfig struct {
	Enabled           bool          `koanf:"enabled"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	BurstSize         int           `koanf:"burst_size"`
	Distributed       bool          `koanf:"distributed"`
	Window            time.Duration `koanf:"window"`
}

type AssistantConfig struct {
	ContextLimit int `koanf:"context_limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Corpus: CorpusConfig{
			Path:          "data/sorted_contacts_master.csv",
			Delimiter:     ",",
			Watch:         true,
			WatchDebounce: 500 * time.Millisecond,
			MaxRowErrors:  20,
		},
		Region: RegionConfig{
			CountryCode: "61",
			TrunkPrefix: "0",
		},
		Redis: RedisConfig{
			URL:          "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			ResultTTL:    10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "contact-guardian",
			OTLPEndpoint: "localhost:4317",
			Insecure:     true,
			SampleRate:   1.0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			BurstSize:         100,
			Window:            time.Minute,
		},
		Assistant: AssistantConfig{
			ContextLimit: 5,
		},
	}
}

// Load layers defaults, the YAML file at path, and CG_ environment
// variables. An empty path reads DefaultPath when it exists; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewValidationError("INVALID_CONFIG", fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if utf8.RuneCountInString(c.Corpus.Delimiter) > 1 {
		return errors.NewValidationError("INVALID_CONFIG", "corpus.delimiter must be a single character")
	}
	if c.Region.CountryCode != "" && strings.HasPrefix(c.Region.CountryCode, "0") {
		return errors.NewValidationError("INVALID_CONFIG", "region.country_code must not start with 0")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errors.NewValidationError("INVALID_CONFIG", "rate_limit.requests_per_second must be positive")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewValidationError("INVALID_CONFIG", "telemetry.sample_rate must be within [0, 1]")
	}
	return nil
}

// DelimiterRune returns the corpus delimiter, defaulting to ','
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Corpus.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

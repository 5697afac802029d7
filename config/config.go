// Package config provides configuration management for the application.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (with ${VAR} and ${VAR:-default} expansion), then well-known environment
// variables. A .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBodySizeLimit is the default maximum request body size (1MB)
	DefaultBodySizeLimit int64 = 1 << 20

	// DefaultConfigPath is used when no explicit path is given.
	DefaultConfigPath = "config.yaml"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig                 `yaml:"server"`
	Logging    LogConfig                    `yaml:"logging"`
	Metrics    MetricsConfig                `yaml:"metrics"`
	Cache      CacheConfig                  `yaml:"cache"`
	Limits     LimitsConfig                 `yaml:"limits"`
	Simulation SimulationConfig             `yaml:"simulation"`
	Providers  map[string]RawProviderConfig `yaml:"providers"`
	Models     []ModelConfig                `yaml:"models"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	BodySizeLimit   int64         `yaml:"body_size_limit"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is one of auto, json, text, pretty
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// CacheConfig selects the completion cache backend used for live providers.
type CacheConfig struct {
	// Type is one of none, local, redis
	Type  string        `yaml:"type"`
	TTL   time.Duration `yaml:"ttl"`
	Redis RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// LimitsConfig bounds incoming requests and backend calls.
type LimitsConfig struct {
	MaxPromptLength   int           `yaml:"max_prompt_length"`
	MaxModelsPerBatch int           `yaml:"max_models_per_batch"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	// BackendTimeout bounds each individual backend call; zero disables it.
	BackendTimeout time.Duration `yaml:"backend_timeout"`
}

// SimulationConfig drives the simulated backend.
type SimulationConfig struct {
	EnableErrorSimulation bool          `yaml:"enable_error_simulation"`
	ErrorRates            ErrorRates    `yaml:"error_rates"`
	MinDelay              time.Duration `yaml:"min_delay"`
	MaxDelay              time.Duration `yaml:"max_delay"`
	DefaultDelay          time.Duration `yaml:"default_delay"`
	MaxThinkingTime       time.Duration `yaml:"max_thinking_time"`
}

// ErrorRates are the three mutually exclusive error bands, each in [0,1].
type ErrorRates struct {
	RateLimit    float64 `yaml:"rate_limit"`
	Timeout      float64 `yaml:"timeout"`
	ServiceError float64 `yaml:"service_error"`
}

// Total returns the probability of any simulated error.
func (r ErrorRates) Total() float64 {
	return r.RateLimit + r.Timeout + r.ServiceError
}

// RawProviderConfig is a provider entry as written in YAML.
type RawProviderConfig struct {
	Type       string `yaml:"type"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
}

// ModelConfig is a model registry entry as written in YAML.
type ModelConfig struct {
	ID                string      `yaml:"id"`
	Provider          string      `yaml:"provider"`
	Name              string      `yaml:"name"`
	Description       string      `yaml:"description"`
	AvgResponseLength string      `yaml:"avg_response_length"`
	SpeedRating       string      `yaml:"speed_rating"`
	Reasoning         bool        `yaml:"reasoning"`
	ResponseLength    LengthRange `yaml:"response_length"`
}

// LengthRange bounds a simulated response length in characters.
type LengthRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			BodySizeLimit:   DefaultBodySizeLimit,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LogConfig{Level: "info", Format: "auto"},
		Metrics: MetricsConfig{Enabled: false, Endpoint: "/metrics"},
		Cache: CacheConfig{
			Type: "none",
			TTL:  10 * time.Minute,
			Redis: RedisConfig{
				Key: "llmarena:completions",
			},
		},
		Limits: LimitsConfig{
			MaxPromptLength:   1000,
			MaxModelsPerBatch: 5,
			MaxDelay:          time.Second,
			BackendTimeout:    2 * time.Minute,
		},
		Simulation: SimulationConfig{
			EnableErrorSimulation: true,
			ErrorRates: ErrorRates{
				RateLimit:    0.05,
				Timeout:      0.03,
				ServiceError: 0.02,
			},
			MinDelay:        10 * time.Millisecond,
			MaxDelay:        100 * time.Millisecond,
			DefaultDelay:    50 * time.Millisecond,
			MaxThinkingTime: 2 * time.Second,
		},
		Providers: map[string]RawProviderConfig{},
		Models:    DefaultModels(),
	}
}

// DefaultModels returns the built-in model registry: five simulated models and
// two live Azure OpenAI deployments that are only served when credentials exist.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{
			ID: "llm-1", Provider: "simulated", Name: "GPT-3.5 Turbo",
			Description:       "Fast and efficient language model suitable for general conversations",
			AvgResponseLength: "30-60 characters", SpeedRating: "Fast",
			ResponseLength: LengthRange{Min: 30, Max: 60},
		},
		{
			ID: "llm-2", Provider: "simulated", Name: "GPT-4",
			Description:       "Advanced language model with superior reasoning capabilities",
			AvgResponseLength: "70-100 characters", SpeedRating: "Medium",
			ResponseLength: LengthRange{Min: 70, Max: 100},
		},
		{
			ID: "llm-3", Provider: "simulated", Name: "Claude-3 Haiku",
			Description:       "Balanced model with good performance and speed",
			AvgResponseLength: "50-80 characters", SpeedRating: "Medium",
			ResponseLength: LengthRange{Min: 50, Max: 80},
		},
		{
			ID: "llm-4", Provider: "simulated", Name: "Llama-2 7B",
			Description:       "Open-source model with decent performance",
			AvgResponseLength: "40-90 characters", SpeedRating: "Medium",
			ResponseLength: LengthRange{Min: 40, Max: 90},
		},
		{
			ID: "llm-5", Provider: "simulated", Name: "Gemini Pro",
			Description:       "Google's advanced model with multimodal capabilities",
			AvgResponseLength: "60-120 characters", SpeedRating: "Slow",
			ResponseLength: LengthRange{Min: 60, Max: 120},
		},
		{
			ID: "gpt-5-nano", Provider: "azure-openai", Name: "GPT-5 Nano",
			Description:       "Next-gen efficient model with reasoning capabilities",
			AvgResponseLength: "Medium", SpeedRating: "Fast", Reasoning: true,
		},
		{
			ID: "gpt-4.1", Provider: "azure-openai", Name: "GPT-4.1",
			Description:       "High-intelligence model for complex tasks",
			AvgResponseLength: "Long", SpeedRating: "Medium",
		},
	}
}

// Load reads configuration from defaults, the YAML file at path and the
// environment. A missing file is only an error when path was set explicitly.
func Load(path string) (*Config, error) {
	// Load .env file (optional, won't fail if not found)
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file, defaults and env only
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default} placeholders.
// Unset variables without a default expand to an empty string.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := envPattern.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[2]
	})
}

// applyEnv overlays well-known environment variables through viper. Env
// always wins over YAML; empty values count as unset.
func applyEnv(cfg *Config) error {
	env := viper.New()
	env.AutomaticEnv()

	if v := env.GetString("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := env.GetString("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := env.GetString("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := env.GetString("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env.GetString("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env.GetString("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = b
	}
	if v := env.GetString("METRICS_ENDPOINT"); v != "" {
		cfg.Metrics.Endpoint = v
	}
	if v := env.GetString("CACHE_TYPE"); v != "" {
		cfg.Cache.Type = strings.ToLower(v)
	}
	if v := env.GetString("REDIS_URL"); v != "" {
		cfg.Cache.Redis.URL = v
	}
	if v := env.GetString("ERROR_SIMULATION_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ERROR_SIMULATION_ENABLED %q: %w", v, err)
		}
		cfg.Simulation.EnableErrorSimulation = b
	}
	if v := env.GetString("BACKEND_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BACKEND_TIMEOUT %q: %w", v, err)
		}
		cfg.Limits.BackendTimeout = d
	}
	return nil
}

// parseDuration accepts plain integers (seconds) or Go duration strings.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.BodySizeLimit <= 0 {
		errs = append(errs, errors.New("server.body_size_limit must be positive"))
	}

	switch c.Logging.Format {
	case "auto", "json", "text", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be one of auto, json, text, pretty", c.Logging.Format))
	}

	switch c.Cache.Type {
	case "none", "local":
	case "redis":
		if c.Cache.Redis.URL == "" {
			errs = append(errs, errors.New("cache.redis.url is required when cache.type is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.type %q must be one of none, local, redis", c.Cache.Type))
	}

	l := c.Limits
	if l.MaxPromptLength < 1 {
		errs = append(errs, errors.New("limits.max_prompt_length must be at least 1"))
	}
	if l.MaxModelsPerBatch < 1 || l.MaxModelsPerBatch > 10 {
		errs = append(errs, fmt.Errorf("limits.max_models_per_batch %d must be between 1 and 10", l.MaxModelsPerBatch))
	}
	if l.MaxDelay <= 0 {
		errs = append(errs, errors.New("limits.max_delay must be positive"))
	}
	if l.BackendTimeout < 0 {
		errs = append(errs, errors.New("limits.backend_timeout must not be negative"))
	}

	s := c.Simulation
	for name, p := range map[string]float64{
		"rate_limit":    s.ErrorRates.RateLimit,
		"timeout":       s.ErrorRates.Timeout,
		"service_error": s.ErrorRates.ServiceError,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("simulation.error_rates.%s %.3f must be within [0,1]", name, p))
		}
	}
	if s.ErrorRates.Total() > 1 {
		errs = append(errs, fmt.Errorf("simulation.error_rates sum %.3f must not exceed 1", s.ErrorRates.Total()))
	}
	if s.MinDelay <= 0 || s.MaxDelay <= 0 {
		errs = append(errs, errors.New("simulation.min_delay and max_delay must be positive"))
	} else if s.MinDelay > s.MaxDelay {
		errs = append(errs, fmt.Errorf("simulation.min_delay %s exceeds max_delay %s", s.MinDelay, s.MaxDelay))
	}
	if s.DefaultDelay <= 0 || s.DefaultDelay > l.MaxDelay {
		errs = append(errs, fmt.Errorf("simulation.default_delay %s must be within (0, %s]", s.DefaultDelay, l.MaxDelay))
	}
	if s.MaxThinkingTime < 0 {
		errs = append(errs, errors.New("simulation.max_thinking_time must not be negative"))
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("models[%d]: id is required", i))
			continue
		}
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("models[%d]: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = true
		if m.Provider == "" {
			errs = append(errs, fmt.Errorf("model %q: provider is required", m.ID))
		}
		switch m.SpeedRating {
		case "Fast", "Medium", "Slow":
		default:
			errs = append(errs, fmt.Errorf("model %q: speed_rating %q must be Fast, Medium or Slow", m.ID, m.SpeedRating))
		}
		if m.Provider == "simulated" {
			r := m.ResponseLength
			if r.Min < 1 || r.Max < r.Min {
				errs = append(errs, fmt.Errorf("model %q: response_length [%d,%d] is invalid", m.ID, r.Min, r.Max))
			}
		}
	}
	if len(c.Models) == 0 {
		errs = append(errs, errors.New("at least one model must be configured"))
	}

	return errors.Join(errs...)
}

package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type SamplerConfig struct {
	Seed uint64 `mapstructure:"seed"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type EndpointConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	URL          string `mapstructure:"url"`
	ResponseTime int    `mapstructure:"response_time"`
	Load         int    `mapstructure:"load"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Sampler     SamplerConfig     `mapstructure:"sampler"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Endpoints   []EndpointConfig  `mapstructure:"endpoints"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// DefaultEndpoints is the fleet the service starts with when no endpoints are
// configured.
var DefaultEndpoints = []EndpointConfig{
	{ID: "1", Name: "Primary API", URL: "https://api-primary.example.com", ResponseTime: 120, Load: 45},
	{ID: "2", Name: "Secondary API", URL: "https://api-secondary.example.com", ResponseTime: 95, Load: 38},
	{ID: "3", Name: "Backup API", URL: "https://api-backup.example.com", ResponseTime: 250, Load: 17},
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("health_check.interval", "0s")
	v.SetDefault("sampler.seed", 0)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = append([]EndpointConfig(nil), DefaultEndpoints...)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// SeedEndpoints converts the configured fleet into registry records stamped
// with now. Status is derived from the configured response time.
func (c *Config) SeedEndpoints(now time.Time) []endpoint.Endpoint {
	seed := make([]endpoint.Endpoint, 0, len(c.Endpoints))

	for _, ec := range c.Endpoints {
		seed = append(seed, endpoint.Endpoint{
			ID:           ec.ID,
			Name:         ec.Name,
			URL:          ec.URL,
			Status:       endpoint.DeriveStatus(ec.ResponseTime),
			ResponseTime: ec.ResponseTime,
			Load:         ec.Load,
			LastChecked:  now.UTC(),
		})
	}

	return seed
}

// HealthCheckInterval returns the background sampling interval; zero means
// disabled.
func (c *Config) HealthCheckInterval() time.Duration {
	d, _ := time.ParseDuration(c.HealthCheck.Interval)
	return d
}

// Duration parses one of the server timeout strings, which Validate has
// already checked.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.RateLimit,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RateLimitConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.RequestsPerSecond, validation.Min(0.0)),
					validation.Field(&rc.Burst, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Endpoints,
			validation.Each(validation.By(validateEndpointConfig)),
			validation.By(validateUniqueIDs),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if durationStr == "" {
		return nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func validateEndpointConfig(value interface{}) error {
	ec, ok := value.(EndpointConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an EndpointConfig")
	}

	if err := validation.ValidateStruct(&ec,
		validation.Field(&ec.ID, validation.Required),
		validation.Field(&ec.Name, validation.Required),
		validation.Field(&ec.URL, validation.Required, validation.By(validateEndpointURL)),
		validation.Field(&ec.ResponseTime, validation.Min(0)),
		validation.Field(&ec.Load, validation.Min(endpoint.MinLoad), validation.Max(endpoint.MaxLoad)),
	); err != nil {
		return err
	}

	return nil
}

func validateEndpointURL(value interface{}) error {
	rawURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateUniqueIDs(value interface{}) error {
	endpoints, ok := value.([]EndpointConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of EndpointConfig")
	}

	seen := make(map[string]struct{}, len(endpoints))
	for _, ec := range endpoints {
		if _, dup := seen[ec.ID]; dup {
			return validation.NewError("validation_duplicate_id", fmt.Sprintf("duplicate endpoint id %q", ec.ID))
		}
		seen[ec.ID] = struct{}{}
	}

	return nil
}

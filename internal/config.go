package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Fanout        FanoutConfig        `mapstructure:"fanout"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	SessionTTL        time.Duration `mapstructure:"session_ttl" validate:"required,min=1m"`
	SessionCookieName string        `mapstructure:"session_cookie_name"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
	BCryptCost        int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

type FanoutConfig struct {
	// Driver selects the delivery transport: http, redis, kafka. Empty disables fanout.
	Driver        string        `mapstructure:"driver" validate:"omitempty,oneof=http redis kafka"`
	Endpoint      string        `mapstructure:"endpoint"`
	SigningSecret string        `mapstructure:"signing_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxWorkers    int           `mapstructure:"max_workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	Redis         RedisConfig   `mapstructure:"redis"`
	Kafka         KafkaConfig   `mapstructure:"kafka"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name" validate:"required_if=Enabled true"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
	Endpoint     string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the config for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("HTTP_OPENAPI_PATH", "./api/openapi.yml"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session_id"),
			CookieSecure:      getEnv("SESSION_COOKIE_SECURE", "true") == "true",
			BCryptCost:        getEnvAsInt("BCRYPT_COST", 12),
		},
		Fanout: FanoutConfig{
			Driver:        getEnv("FANOUT_DRIVER", ""),
			Endpoint:      getEnv("FANOUT_ENDPOINT", ""),
			SigningSecret: getEnv("FANOUT_SIGNING_SECRET", ""),
			Timeout:       getEnvAsDuration("FANOUT_TIMEOUT", 3*time.Second),
			MaxWorkers:    getEnvAsInt("FANOUT_MAX_WORKERS", 4),
			QueueSize:     getEnvAsInt("FANOUT_QUEUE_SIZE", 256),
			Redis: RedisConfig{
				Addr:          getEnv("FANOUT_REDIS_ADDR", ""),
				Password:      getEnv("FANOUT_REDIS_PASSWORD", ""),
				DB:            getEnvAsInt("FANOUT_REDIS_DB", 0),
				ChannelPrefix: getEnv("FANOUT_REDIS_CHANNEL_PREFIX", "org:"),
			},
			Kafka: KafkaConfig{
				Brokers: getEnv("FANOUT_KAFKA_BROKERS", ""),
				Topic:   getEnv("FANOUT_KAFKA_TOPIC", "workspace-events"),
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Tracing: TracingConfig{
				Enabled:      getEnv("TRACING_ENABLED", "false") == "true",
				ServiceName:  getEnv("TRACING_SERVICE_NAME", "teamspace"),
				SamplingRate: getEnvAsFloat("TRACING_SAMPLING_RATE", 0.1),
				Endpoint:     getEnv("TRACING_ENDPOINT", ""),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Fanout.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("fanout config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ServerConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.SessionTTL < time.Minute {
		return errors.New("session_ttl must be at least 1m")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *SecurityConfig) CookieName() string {
	if c.SessionCookieName == "" {
		return "session_id"
	}
	return c.SessionCookieName
}

func (c *FanoutConfig) Validate() error {
	switch c.Driver {
	case "":
		return nil
	case "http":
		if _, err := url.ParseRequestURI(c.Endpoint); err != nil {
			return fmt.Errorf("endpoint must be a valid url: %w", err)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required")
		}
	case "kafka":
		if c.Kafka.Brokers == "" || c.Kafka.Topic == "" {
			return errors.New("kafka.brokers and kafka.topic are required")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics.path is required when metrics are enabled")
	}
	if c.Tracing.Enabled && (c.Tracing.ServiceName == "" || c.Tracing.Endpoint == "") {
		return errors.New("tracing.service_name and tracing.endpoint are required when tracing is enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New("tracing.sampling_rate must be within [0,1]")
	}
	return nil
}

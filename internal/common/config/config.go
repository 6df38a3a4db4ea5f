package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	Email         EmailConfig         `mapstructure:"email"`
	Push          PushConfig          `mapstructure:"push"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Delivery      DeliveryConfig      `mapstructure:"delivery"`
	Breaker       BreakerConfig       `mapstructure:"breaker"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type HTTPConfig struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns host:port for http.Server.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string. A full URL wins over
// the individual fields.
func (p PostgresConfig) GetDSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// RabbitMQConfig mirrors the broker settings. URL (e.g. a CloudAMQP URL)
// takes priority over the discrete fields.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
	Workers  int    `mapstructure:"workers"`
}

// GetURL returns the AMQP connection URL.
func (r RabbitMQConfig) GetURL() string {
	if r.URL != "" {
		return r.URL
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:   "/" + r.VHost,
	}
	return u.String()
}

// EmailConfig selects and configures the email transport.
type EmailConfig struct {
	Provider string `mapstructure:"provider"` // "smtp" or "ses"
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`

	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`

	SES struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"ses"`
}

// PushConfig configures SNS mobile push towards FCM.
type PushConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	Region                 string `mapstructure:"region"`
	PlatformApplicationARN string `mapstructure:"platform_application_arn"`
	EndpointCacheTTL       int    `mapstructure:"endpoint_cache_ttl"` // milliseconds
}

type RealtimeConfig struct {
	HeartbeatInterval int   `mapstructure:"heartbeat_interval"` // milliseconds
	WriteTimeout      int   `mapstructure:"write_timeout"`      // milliseconds
	ReadLimit         int64 `mapstructure:"read_limit"`
}

// DeliveryConfig holds the retry state machine parameters.
type DeliveryConfig struct {
	SendTimeout       int `mapstructure:"send_timeout"` // milliseconds
	MaxRetryAttempts  int `mapstructure:"max_retry_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

type BreakerConfig struct {
	MaxRequests  uint32 `mapstructure:"max_requests"`
	Interval     int    `mapstructure:"interval"` // milliseconds
	Timeout      int    `mapstructure:"timeout"`  // milliseconds
	FailureLimit uint32 `mapstructure:"failure_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

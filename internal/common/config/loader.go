package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (plus config.<APP_ENVIRONMENT>.yaml when
// present), overlays environment variables and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it even when the
// yaml file does not mention it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "notification-dispatcher")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.frontend_url", "http://localhost:3000")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8003)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.shutdown_timeout", 30000)

	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 25)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.auto_migrate", true)

	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.redis.cache_ttl", 300000)

	v.SetDefault("database.elasticsearch.enabled", false)
	v.SetDefault("database.elasticsearch.addresses", []string{})
	v.SetDefault("database.elasticsearch.username", "")
	v.SetDefault("database.elasticsearch.password", "")
	v.SetDefault("database.elasticsearch.index", "notifications")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "")
	v.SetDefault("rabbitmq.exchange", "notifications")
	v.SetDefault("rabbitmq.queue", "notifications_queue")
	v.SetDefault("rabbitmq.workers", 1)

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "Parking System")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.ses.region", "us-east-1")

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.region", "us-east-1")
	v.SetDefault("push.platform_application_arn", "")
	v.SetDefault("push.endpoint_cache_ttl", 86400000)

	v.SetDefault("realtime.heartbeat_interval", 30000)
	v.SetDefault("realtime.write_timeout", 5000)
	v.SetDefault("realtime.read_limit", 4096)

	v.SetDefault("delivery.send_timeout", 10000)
	v.SetDefault("delivery.max_retry_attempts", 3)
	v.SetDefault("delivery.retry_delay_seconds", 60)

	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", 10000)
	v.SetDefault("breaker.timeout", 60000)
	v.SetDefault("breaker.failure_limit", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("observability.service_name", "notification-dispatcher")
	v.SetDefault("observability.jaeger_endpoint", "")
	v.SetDefault("observability.sample_ratio", 1.0)
}

// loadEnvFile looks for a .env file in the usual places relative to the
// working directory and the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the flat variable names used by the existing
// deployment (.env files written for the previous service).
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Database.Postgres.URL, "DATABASE_URL")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	setIfEmpty(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	if val := os.Getenv("FRONTEND_URL"); val != "" {
		cfg.App.FrontendURL = val
	}

	setIfEmpty(&cfg.Email.SMTP.Host, "SMTP_HOST")
	setIfEmpty(&cfg.Email.SMTP.Username, "SMTP_USER")
	setIfEmpty(&cfg.Email.SMTP.Password, "SMTP_PASSWORD")
	setIfEmpty(&cfg.Email.From, "EMAIL_FROM")
	if val := os.Getenv("EMAIL_FROM_NAME"); val != "" {
		cfg.Email.FromName = val
	}
	if val, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && val > 0 {
		cfg.Email.SMTP.Port = val
	}

	if val, err := strconv.Atoi(os.Getenv("MAX_RETRY_ATTEMPTS")); err == nil && val > 0 {
		cfg.Delivery.MaxRetryAttempts = val
	}
	if val, err := strconv.Atoi(os.Getenv("RETRY_DELAY_SECONDS")); err == nil && val > 0 {
		cfg.Delivery.RetryDelaySeconds = val
	}
	if val, err := strconv.Atoi(os.Getenv("API_PORT")); err == nil && val > 0 {
		cfg.HTTP.Port = val
	}
}

func setIfEmpty(target *string, envKey string) {
	if *target != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*target = val
	}
}

// applyDefaults fills values a yaml file may have zeroed explicitly.
func applyDefaults(cfg *Config) {
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "notifications"
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "notifications"
	}
	if cfg.RabbitMQ.Queue == "" {
		cfg.RabbitMQ.Queue = "notifications_queue"
	}
	if cfg.RabbitMQ.Workers <= 0 {
		cfg.RabbitMQ.Workers = 1
	}
	if cfg.Delivery.MaxRetryAttempts <= 0 {
		cfg.Delivery.MaxRetryAttempts = 3
	}
	if cfg.Delivery.RetryDelaySeconds <= 0 {
		cfg.Delivery.RetryDelaySeconds = 60
	}
	if cfg.Delivery.SendTimeout <= 0 {
		cfg.Delivery.SendTimeout = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.URL == "" {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when elasticsearch is enabled")
	}

	switch cfg.Email.Provider {
	case "smtp":
		if cfg.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp.host is required")
		}
	case "ses":
		if cfg.Email.SES.Region == "" {
			return fmt.Errorf("email.ses.region is required")
		}
	default:
		return fmt.Errorf("email.provider must be smtp or ses, got %q", cfg.Email.Provider)
	}
	if cfg.Email.From == "" {
		return fmt.Errorf("email.from is required")
	}

	if cfg.Push.Enabled && cfg.Push.PlatformApplicationARN == "" {
		return fmt.Errorf("push.platform_application_arn is required when push is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

package dispatch

import (
	"fmt"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/models"
)

type Config struct {
	SendTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		SendTimeout: 10 * time.Second,
		MaxRetries:  models.DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
	}
}

func (c Config) Validate() error {
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	return nil
}

// ConfigFromApp maps the delivery section of the application config,
// falling back to defaults for unset values.
func ConfigFromApp(appCfg *config.Config) Config {
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg
	}
	if appCfg.Delivery.SendTimeout > 0 {
		cfg.SendTimeout = config.GetDuration(appCfg.Delivery.SendTimeout)
	}
	if appCfg.Delivery.MaxRetryAttempts > 0 {
		cfg.MaxRetries = appCfg.Delivery.MaxRetryAttempts
	}
	if appCfg.Delivery.RetryDelaySeconds > 0 {
		cfg.RetryDelay = time.Duration(appCfg.Delivery.RetryDelaySeconds) * time.Second
	}
	return cfg
}

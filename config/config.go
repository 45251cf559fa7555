package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"prayertimes.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Database  DatabaseConfig  `split_words:"true"`
	Timetable TimetableConfig `split_words:"true"`
	Redis     RedisConfig     `split_words:"true"`
	Push      PushConfig      `split_words:"true"`
	Cron      CronConfig      `split_words:"true"`
	Dispatch  DispatchConfig  `split_words:"true"`
	Scheduler SchedulerConfig `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"prayertimes"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted database connection string
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// TimetableConfig locates the published timetable and fixes the zone all
// wall-clock math happens in
type TimetableConfig struct {
	Path            string `envconfig:"TIMETABLE_PATH" default:"data/timetable.json"`
	Timezone        string `envconfig:"TIMETABLE_TIMEZONE" default:"Europe/London"`
	CacheType       string `envconfig:"TIMETABLE_CACHE" default:"memory"`
	CacheTTLMinutes int    `envconfig:"TIMETABLE_CACHE_TTL" default:"10"`
}

// RedisConfig contains settings for the optional redis timetable cache
type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

// PushConfig carries the VAPID key material for the web-push transport
type PushConfig struct {
	Subject    string `envconfig:"VAPID_SUBJECT" required:"true"`
	PublicKey  string `envconfig:"VAPID_PUBLIC_KEY" required:"true"`
	PrivateKey string `envconfig:"VAPID_PRIVATE_KEY" required:"true"`
	TTL        int    `envconfig:"PUSH_TTL" default:"86400"`
}

// CronConfig holds the pre-shared secret the external minute trigger must
// present
type CronConfig struct {
	Secret string `envconfig:"CRON_SECRET" required:"true"`
}

// DispatchConfig contains settings for notification fan-out
type DispatchConfig struct {
	BatchSize int `envconfig:"DISPATCH_BATCH_SIZE" default:"1000"`
}

// SchedulerConfig controls the in-process minute trigger; disable it when
// an external cron invokes /api/send-today instead
type SchedulerConfig struct {
	Enabled bool `envconfig:"SCHEDULER_ENABLED" default:"true"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Timetable.Validate(); err != nil {
		return err
	}
	if err := c.Push.Validate(); err != nil {
		return err
	}
	if err := c.Cron.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// ValidateSSLMode validates the SSL mode configuration
func (d *DatabaseConfig) ValidateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	if err := d.ValidateSSLMode(); err != nil {
		return err
	}
	return nil
}

// Validate checks timetable configuration
func (t *TimetableConfig) Validate() error {
	if t.Path == "" {
		return errors.NewConfigurationError("TIMETABLE_PATH cannot be empty", nil)
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return errors.NewConfigurationError(
			fmt.Sprintf("TIMETABLE_TIMEZONE %q is not a valid IANA zone", t.Timezone), err)
	}
	validCacheTypes := []string{"memory", "redis", "none"}
	for _, cacheType := range validCacheTypes {
		if t.CacheType == cacheType {
			if t.CacheTTLMinutes < 1 {
				return errors.NewConfigurationError("TIMETABLE_CACHE_TTL must be at least 1 minute", nil)
			}
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("TIMETABLE_CACHE must be one of: %s", strings.Join(validCacheTypes, ", ")), nil)
}

// Validate checks push configuration
func (p *PushConfig) Validate() error {
	if !strings.HasPrefix(p.Subject, "mailto:") && !strings.HasPrefix(p.Subject, "https://") {
		return errors.NewConfigurationError("VAPID_SUBJECT must be a mailto: or https:// URL", nil)
	}
	if p.PublicKey == "" {
		return errors.NewConfigurationError("VAPID_PUBLIC_KEY is required", nil)
	}
	if p.PrivateKey == "" {
		return errors.NewConfigurationError("VAPID_PRIVATE_KEY is required", nil)
	}
	if p.TTL < 0 {
		return errors.NewConfigurationError("PUSH_TTL cannot be negative", nil)
	}
	return nil
}

// Validate checks cron trigger configuration
func (c *CronConfig) Validate() error {
	if c.Secret == "" {
		return errors.NewConfigurationError("CRON_SECRET is required", nil)
	}
	return nil
}

// Validate checks dispatch configuration
func (d *DispatchConfig) Validate() error {
	if d.BatchSize < 1 {
		return errors.NewConfigurationError("DISPATCH_BATCH_SIZE must be at least 1", nil)
	}
	return nil
}

// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Practice      PracticeConfig     `mapstructure:"practice"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Delivery      DeliveryConfig     `mapstructure:"delivery"`
	Directory     DirectoryConfig    `mapstructure:"directory"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	ReadTimeout    int    `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"`   // milliseconds
	ShutdownGrace  int    `mapstructure:"shutdown_grace"`  // milliseconds
	DebugAddress   string `mapstructure:"debug_address"`   // pprof, empty disables
}

// PracticeConfig carries the practice's local time zone used to interpret
// scheduled_date/scheduled_time pairs.
type PracticeConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig holds settings for the periodic due sweep.
type SchedulerConfig struct {
	SweepInterval  int `mapstructure:"sweep_interval"`  // milliseconds
	BatchSize      int `mapstructure:"batch_size"`      // max claims per sweep
	Workers        int `mapstructure:"workers"`         // dispatch pool size
	LeaseTTL       int `mapstructure:"lease_ttl"`       // milliseconds, in_flight reclaim
	UpcomingWindow int `mapstructure:"upcoming_window"` // hours, "upcoming" query span
}

// DeliveryConfig holds retry/timeout settings for channel sends.
type DeliveryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseBackoff int `mapstructure:"base_backoff"` // milliseconds
	SendTimeout int `mapstructure:"send_timeout"` // milliseconds, per attempt
}

// DirectoryConfig points at the practice-management collaborator that owns
// clients, patients and appointments.
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds channel-sender settings.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Location resolves the configured practice time zone.
func (p PracticeConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

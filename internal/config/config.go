// Package config loads the service configuration from a YAML file,
// expanding ${ENV} references before parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soyoshik-git/bro-reserve/internal/timeslot"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type MonitoringConfig struct {
	HealthCheckPort   int  `yaml:"health_check_port"`
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type BookingConfig struct {
	SlotGranularityMinutes int   `yaml:"slot_granularity_minutes"`
	AllowedDurations       []int `yaml:"allowed_durations"`
	MinAdvanceMinutes      int   `yaml:"min_advance_minutes"`
	MaxAdvanceDays         int   `yaml:"max_advance_days"`
	AdmissionWaitSeconds   int   `yaml:"admission_wait_seconds"`
}

type ScheduleConfig struct {
	DefaultStart string `yaml:"default_start"`
	DefaultEnd   string `yaml:"default_end"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Booking    BookingConfig    `yaml:"booking"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Backup     BackupConfig     `yaml:"backup"`
	Staff      []string         `yaml:"staff"`
}

// Load reads and parses the config file. Environment references like
// ${RESERVE_DB_PATH} are expanded before YAML parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Staff) == 0 {
		return fmt.Errorf("at least one staff member is required")
	}
	if _, err := c.ScheduleDefaultStart(); err != nil {
		return fmt.Errorf("schedule.default_start: %w", err)
	}
	if _, err := c.ScheduleDefaultEnd(); err != nil {
		return fmt.Errorf("schedule.default_end: %w", err)
	}
	return nil
}

// ServerAddr is the API listen address, defaulting to :8080.
func (c *Config) ServerAddr() string {
	if c.Server.Addr == "" {
		return ":8080"
	}
	return c.Server.Addr
}

// SlotGranularity defaults to 30 minutes.
func (c *Config) SlotGranularity() int {
	if c.Booking.SlotGranularityMinutes <= 0 {
		return 30
	}
	return c.Booking.SlotGranularityMinutes
}

// AllowedDurations defaults to the offered course lengths.
func (c *Config) AllowedDurations() []int {
	if len(c.Booking.AllowedDurations) == 0 {
		return []int{60, 90, 120, 180}
	}
	return c.Booking.AllowedDurations
}

// MinAdvance is the minimum lead time before a slot can be booked.
func (c *Config) MinAdvance() time.Duration {
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

// MaxAdvance defaults to 90 days of advance booking.
func (c *Config) MaxAdvance() time.Duration {
	days := c.Booking.MaxAdvanceDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

// AdmissionWait bounds the wait for the staff-day booking lock,
// defaulting to 5 seconds.
func (c *Config) AdmissionWait() time.Duration {
	if c.Booking.AdmissionWaitSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Booking.AdmissionWaitSeconds) * time.Second
}

// ScheduleDefaultStart defaults to 10:00.
func (c *Config) ScheduleDefaultStart() (timeslot.TimeOfDay, error) {
	if c.Schedule.DefaultStart == "" {
		return timeslot.ParseTimeOfDay("10:00")
	}
	return timeslot.ParseTimeOfDay(c.Schedule.DefaultStart)
}

// ScheduleDefaultEnd defaults to 20:00.
func (c *Config) ScheduleDefaultEnd() (timeslot.TimeOfDay, error) {
	if c.Schedule.DefaultEnd == "" {
		return timeslot.ParseTimeOfDay("20:00")
	}
	return timeslot.ParseTimeOfDay(c.Schedule.DefaultEnd)
}

// CacheTTL is how long cached availability stays valid, defaulting to
// 30 seconds.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// HealthCheckPort defaults to 8081.
func (c *Config) HealthCheckPort() int {
	if c.Monitoring.HealthCheckPort == 0 {
		return 8081
	}
	return c.Monitoring.HealthCheckPort
}

// PrometheusPort defaults to 9091.
func (c *Config) PrometheusPort() int {
	if c.Monitoring.PrometheusPort == 0 {
		return 9091
	}
	return c.Monitoring.PrometheusPort
}

// RateLimitPerSecond defaults to 20 requests a second.
func (c *Config) RateLimitPerSecond() float64 {
	if c.RateLimit.PerSecond <= 0 {
		return 20
	}
	return c.RateLimit.PerSecond
}

// RateLimitBurst defaults to 40.
func (c *Config) RateLimitBurst() int {
	if c.RateLimit.Burst <= 0 {
		return 40
	}
	return c.RateLimit.Burst
}

// BackupInterval defaults to 24 hours.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

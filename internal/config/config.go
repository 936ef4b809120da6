package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Engine   EngineConfig   `yaml:"engine"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type EngineConfig struct {
	// StatusETAMinutes drives estimatedCompletionAt: per-status
	// expected remaining time, configuration rather than hard-coded
	// business logic.
	StatusETAMinutes map[string]int     `yaml:"status_eta_minutes"`
	AutoProgress     AutoProgressConfig `yaml:"auto_progress"`
	// LocationMinIntervalSeconds bounds agent location fan-out;
	// faster updates are coalesced to the latest value.
	LocationMinIntervalSeconds int         `yaml:"location_min_interval_seconds"`
	StoreRetry                 RetryConfig `yaml:"store_retry"`
	EventBufferSize            int         `yaml:"event_buffer_size"`
}

type AutoProgressConfig struct {
	Enabled             bool `yaml:"enabled"`
	ScanIntervalSeconds int  `yaml:"scan_interval_seconds"`
	// DwellSeconds is how long an order sits in a status before the
	// scheduler advances it. Statuses absent from the map are never
	// auto-advanced.
	DwellSeconds map[string]int `yaml:"dwell_seconds"`
}

type RetryConfig struct {
	Attempts      int `yaml:"attempts"`
	BackoffMillis int `yaml:"backoff_millis"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Engine.StatusETAMinutes) == 0 {
		c.Engine.StatusETAMinutes = map[string]int{
			"confirmed":        60,
			"preparing":        45,
			"packed":           40,
			"assigned":         35,
			"picked_up":        30,
			"in_transit":       25,
			"out_for_delivery": 20,
		}
	}
	if c.Engine.AutoProgress.ScanIntervalSeconds == 0 {
		c.Engine.AutoProgress.ScanIntervalSeconds = 10
	}
	if len(c.Engine.AutoProgress.DwellSeconds) == 0 {
		c.Engine.AutoProgress.DwellSeconds = map[string]int{
			"confirmed":        60,
			"preparing":        90,
			"packed":           30,
			"picked_up":        45,
			"in_transit":       120,
			"out_for_delivery": 120,
		}
	}
	if c.Engine.LocationMinIntervalSeconds == 0 {
		c.Engine.LocationMinIntervalSeconds = 5
	}
	if c.Engine.StoreRetry.Attempts == 0 {
		c.Engine.StoreRetry.Attempts = 3
	}
	if c.Engine.StoreRetry.BackoffMillis == 0 {
		c.Engine.StoreRetry.BackoffMillis = 200
	}
	if c.Engine.EventBufferSize == 0 {
		c.Engine.EventBufferSize = 16
	}
}

// ETAFor returns the configured expected completion offset for a
// status, or false when none is configured (pending and terminal
// statuses carry no estimate).
func (e EngineConfig) ETAFor(status string) (time.Duration, bool) {
	minutes, ok := e.StatusETAMinutes[status]
	if !ok {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

// DwellFor returns the scheduler dwell time for a status.
func (a AutoProgressConfig) DwellFor(status string) (time.Duration, bool) {
	seconds, ok := a.DwellSeconds[status]
	if !ok {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

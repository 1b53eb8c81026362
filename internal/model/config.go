package model

import (
	"net/http"
	"time"
)

// Config is the complete edgarseg configuration.
// Field tags serve both viper (mapstructure) and the YAML rendering in `config show`.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Retry        RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Edgar        EdgarConfig       `yaml:"edgar" mapstructure:"edgar"`
	Segment      SegmentConfig     `yaml:"segment" mapstructure:"segment"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls the HTTP client used for archive requests
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per-attempt timeout
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RateLimitConfig is the shared request budget for every fetch in the process
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RetryConfig covers both transport retries and soft-throttle retries
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay      time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier        float64       `yaml:"multiplier" mapstructure:"multiplier"`
	RetryableStatuses []int         `yaml:"retryable_statuses" mapstructure:"retryable_statuses"`
	ThrottleAttempts  int           `yaml:"throttle_attempts" mapstructure:"throttle_attempts"`
	ThrottleBaseDelay time.Duration `yaml:"throttle_base_delay" mapstructure:"throttle_base_delay"`
}

// EdgarConfig holds archive-specific settings
type EdgarConfig struct {
	ArchiveBaseURL  string `yaml:"archive_base_url" mapstructure:"archive_base_url"`
	ThrottlePhrase  string `yaml:"throttle_phrase" mapstructure:"throttle_phrase"`
	IncludeExhibits bool   `yaml:"include_exhibits" mapstructure:"include_exhibits"`
	MaxExhibits     int    `yaml:"max_exhibits" mapstructure:"max_exhibits"`
}

// SegmentConfig tunes item segmentation
type SegmentConfig struct {
	MaxItemChars int  `yaml:"max_item_chars" mapstructure:"max_item_chars"` // 0 = unlimited
	FilterTables bool `yaml:"filter_tables" mapstructure:"filter_tables"`
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose        bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeOffsets bool `yaml:"include_offsets" mapstructure:"include_offsets"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultThrottlePhrase is the body text EDGAR serves with a 200 when it throttles a client
const DefaultThrottlePhrase = "will be managed until action is taken to declare your traffic"

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "edgarseg/0.1 (contact@example.com)",
			MaxBodyBytes: 64 << 20,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			RetryableStatuses: []int{
				http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout,
			},
			ThrottleAttempts:  5,
			ThrottleBaseDelay: 2 * time.Second,
		},
		Edgar: EdgarConfig{
			ArchiveBaseURL: "https://www.sec.gov",
			ThrottlePhrase: DefaultThrottlePhrase,
			MaxExhibits:    3,
		},
		Segment: SegmentConfig{
			FilterTables: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".edgarseg-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort        int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       int           `mapstructure:"body_limit"` // Max request body in bytes
}

// AnalysisConfig holds the defaults applied to requests that omit a parameter
type AnalysisConfig struct {
	PeriodLength    int     `mapstructure:"period_length"`    // Season length in observations (default: 7)
	Horizon         int     `mapstructure:"horizon"`          // Holdout / forecast length (default: 7)
	ConfidenceLevel float64 `mapstructure:"confidence_level"` // Two-sided interval coverage (default: 0.95)
	IntervalGrowth  string  `mapstructure:"interval_growth"`  // sqrt, constant, linear
	GridStep        float64 `mapstructure:"grid_step"`        // Holt alpha/beta grid spacing (default: 0.05)
	MaxObservations int     `mapstructure:"max_observations"` // Upper bound on request series length
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: memory (default), nats, redis, kafka
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Compression of published payloads: none, snappy
	Compression string `mapstructure:"compression"`

	// NATS-specific options
	NATSStream string `mapstructure:"nats_stream"` // JetStream stream name (default: "SEASONAL")

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "seasonal")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "seasonal-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// WorkerConfig configures the queue-driven analysis worker
type WorkerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	JobsSubject    string        `mapstructure:"jobs_subject"`
	ResultsSubject string        `mapstructure:"results_subject"`
	Concurrency    int           `mapstructure:"concurrency"` // Max concurrent pipeline runs
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
}

// AlertsConfig configures anomaly alert publishing
type AlertsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Subject string `mapstructure:"subject"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("worker config: %w", err)
	}

	if c.Alerts.Enabled && c.Alerts.Subject == "" {
		return fmt.Errorf("alerts config: subject is required when alerts are enabled")
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth config: at least one api key is required when auth is enabled")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates analysis defaults. Range checks mirror the ones the
// pipeline applies, so a bad default fails at startup instead of per request.
func (c *AnalysisConfig) Validate() error {
	if c.PeriodLength < 2 {
		return fmt.Errorf("analysis.period_length must be at least 2")
	}

	if c.Horizon < 1 {
		return fmt.Errorf("analysis.horizon must be at least 1")
	}

	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return fmt.Errorf("analysis.confidence_level must be in (0, 1)")
	}

	switch c.IntervalGrowth {
	case "sqrt", "constant", "linear":
	default:
		return fmt.Errorf("analysis.interval_growth must be one of: sqrt, constant, linear")
	}

	// Finer grids cost 1/grid_step^2 Holt passes per request
	if c.GridStep < 0.001 || c.GridStep > 1 {
		return fmt.Errorf("analysis.grid_step must be in [0.001, 1]")
	}

	if c.MaxObservations < 0 {
		return fmt.Errorf("analysis.max_observations cannot be negative")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "memory", "nats", "redis", "kafka":
	default:
		return fmt.Errorf("unsupported queue type: %s (supported: nats, redis, kafka, memory)", c.Type)
	}

	switch c.Compression {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("queue.compression must be 'none' or 'snappy'")
	}

	return nil
}

// Validate validates worker configuration
func (c *WorkerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.JobsSubject == "" || c.ResultsSubject == "" {
		return fmt.Errorf("worker.jobs_subject and worker.results_subject are required")
	}

	if c.JobsSubject == c.ResultsSubject {
		return fmt.Errorf("worker.jobs_subject and worker.results_subject cannot be the same")
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

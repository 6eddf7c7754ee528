package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/seasonal")
	}

	setDefaults(v)

	// Enable environment variable overrides (SEASONAL_ANALYSIS_HORIZON, ...)
	v.SetEnvPrefix("SEASONAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults registers every key of DefaultConfig with viper so that
// environment overrides work without a config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("analysis.period_length", d.Analysis.PeriodLength)
	v.SetDefault("analysis.horizon", d.Analysis.Horizon)
	v.SetDefault("analysis.confidence_level", d.Analysis.ConfidenceLevel)
	v.SetDefault("analysis.interval_growth", d.Analysis.IntervalGrowth)
	v.SetDefault("analysis.grid_step", d.Analysis.GridStep)
	v.SetDefault("analysis.max_observations", d.Analysis.MaxObservations)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.username", "")
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.compression", d.Queue.Compression)
	v.SetDefault("queue.nats_stream", d.Queue.NATSStream)
	v.SetDefault("queue.redis_db", d.Queue.RedisDB)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.redis_consumer", "")
	v.SetDefault("queue.kafka_brokers", d.Queue.KafkaBrokers)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	v.SetDefault("worker.enabled", d.Worker.Enabled)
	v.SetDefault("worker.jobs_subject", d.Worker.JobsSubject)
	v.SetDefault("worker.results_subject", d.Worker.ResultsSubject)
	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.job_timeout", d.Worker.JobTimeout)

	v.SetDefault("alerts.enabled", d.Alerts.Enabled)
	v.SetDefault("alerts.subject", d.Alerts.Subject)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.api_keys", []string{})

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        5580,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       4 * 1024 * 1024,
		},
		Analysis: AnalysisConfig{
			PeriodLength:    7,
			Horizon:         7,
			ConfidenceLevel: 0.95,
			IntervalGrowth:  "sqrt",
			GridStep:        0.05,
			MaxObservations: 100000,
		},
		Queue: QueueConfig{
			Type:         "memory",
			URL:          "nats://localhost:4222",
			Compression:  "none",
			NATSStream:   "SEASONAL",
			RedisStream:  "seasonal",
			RedisGroup:   "seasonal-group",
			KafkaBrokers: []string{"localhost:9092"},
			KafkaGroupID: "seasonal-analyzer",
		},
		Worker: WorkerConfig{
			Enabled:        false,
			JobsSubject:    "seasonal.jobs",
			ResultsSubject: "seasonal.results",
			Concurrency:    4,
			JobTimeout:     30 * time.Second,
		},
		Alerts: AlertsConfig{
			Enabled: false,
			Subject: "seasonal.alerts",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

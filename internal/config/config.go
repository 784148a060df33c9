package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const maxForecastWorkers = 256

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// ModelPath points at a parameter table on disk. Empty selects the
	// embedded table.
	ModelPath         string
	ForecastWorkers   int
	ForecastCacheSize int

	// ClickHouse archive. An empty address disables it.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseTable    string
}

// ArchiveEnabled reports whether forecasts are also written to ClickHouse.
func (c *Config) ArchiveEnabled() bool { return c.ClickHouseAddr != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("FORECAST_WORKERS", 4, 1, maxForecastWorkers)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("FORECAST_CACHE_SIZE", 1000, 0, 1<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "sep-trigger-sets"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "sep-forecasts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "sep-forecast"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ModelPath:         sharedcfg.EnvOrDefault("MODEL_PATH", ""),
		ForecastWorkers:   workers,
		ForecastCacheSize: cacheSize,

		ClickHouseAddr:     sharedcfg.EnvOrDefault("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: sharedcfg.EnvOrDefault("CLICKHOUSE_DATABASE", "sep"),
		ClickHouseTable:    sharedcfg.EnvOrDefault("CLICKHOUSE_TABLE", "forecasts"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.ArchiveEnabled() && cfg.ClickHouseTable == "" {
		return nil, errors.New("CLICKHOUSE_TABLE is required when CLICKHOUSE_ADDR is set")
	}

	return cfg, nil
}

// parseInt reads an integer variable and checks it against [lo, hi].
func parseInt(name string, def, lo, hi int) (int, error) {
	s := sharedcfg.EnvOrDefault(name, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", name, lo, hi)
	}
	return n, nil
}

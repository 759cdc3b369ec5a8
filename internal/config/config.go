package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers      []string
	KafkaSourceTopic  string
	KafkaSinkTopic    string
	KafkaFailureTopic string
	KafkaGroupID      string
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	ShutdownTimeout   time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Entry parsing.
	ParseWorkers   int
	ParseCacheSize int

	// Latest-forecast store.
	RedisAddr     string
	RedisEnabled  bool
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration
	RedisTTL      time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// Variables from a .env file in the working directory are loaded first; values
// already present in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

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

	parseWorkers, err := parsePositiveInt("PARSE_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	parseCacheSize, err := parseNonNegativeInt("PARSE_CACHE_SIZE", 5000)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	redisTimeout, err := parseDuration("REDIS_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}

	redisTTL, err := parseDuration("REDIS_TTL", "30h")
	if err != nil {
		return nil, err
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	redisEnabled := redisAddr != ""
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		redisEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-taf-cycles"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "parsed-taf-forecasts"),
		KafkaFailureTopic:  sharedcfg.EnvOrDefault("KAFKA_FAILURE_TOPIC", "taf-parse-failures"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "taf-data-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ParseWorkers:   parseWorkers,
		ParseCacheSize: parseCacheSize,

		RedisAddr:     redisAddr,
		RedisEnabled:  redisEnabled,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisTimeout:  redisTimeout,
		RedisTTL:      redisTTL,
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
	if cfg.KafkaFailureTopic == "" {
		return nil, errors.New("KAFKA_FAILURE_TOPIC is required")
	}
	if cfg.RedisEnabled && cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ENABLED is true but REDIS_ADDR is not set")
	}

	return cfg, nil
}

func parsePositiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}

func parseNonNegativeInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

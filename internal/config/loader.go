package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "propextract.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("PROPEXTRACT_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	derive(&cfg)

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PROPEXTRACT_PORT")
	setString(&cfg.Server.CORSOrigin, "PROPEXTRACT_CORS_ORIGIN")
	setString(&cfg.Server.PublicURL, "PROPEXTRACT_PUBLIC_URL")
	setFloat(&cfg.Server.SubmitRate, "PROPEXTRACT_SUBMIT_RATE")
	setInt(&cfg.Server.SubmitBurst, "PROPEXTRACT_SUBMIT_BURST")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PROPEXTRACT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PROPEXTRACT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PROPEXTRACT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PROPEXTRACT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PROPEXTRACT_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "PROPEXTRACT_NATS_STREAM")
	setString(&cfg.NATS.GuardBucket, "PROPEXTRACT_NATS_GUARD_BUCKET")
	setDuration(&cfg.NATS.GuardTTL, "PROPEXTRACT_NATS_GUARD_TTL")
	setDuration(&cfg.NATS.AckWait, "PROPEXTRACT_NATS_ACK_WAIT")
	setInt(&cfg.NATS.Workers, "PROPEXTRACT_NATS_WORKERS")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PROPEXTRACT_REDIS_DB")

	// Document API
	setString(&cfg.DocAPI.URL, "FOXIT_API_URL")
	setString(&cfg.DocAPI.APIKey, "FOXIT_API_KEY")
	setDuration(&cfg.DocAPI.Timeout, "PROPEXTRACT_DOCAPI_TIMEOUT")
	setDuration(&cfg.DocAPI.PollInterval, "PROPEXTRACT_DOCAPI_POLL_INTERVAL")
	setInt(&cfg.DocAPI.PollAttempts, "PROPEXTRACT_DOCAPI_POLL_ATTEMPTS")
	setBool(&cfg.DocAPI.PostProcess, "PROPEXTRACT_DOCAPI_POST_PROCESS")
	setString(&cfg.DocAPI.Watermark, "PROPEXTRACT_DOCAPI_WATERMARK")
	setString(&cfg.DocAPI.OwnerPassword, "PROPEXTRACT_DOCAPI_OWNER_PASSWORD")

	setString(&cfg.Storage.Bucket, "PROPEXTRACT_STORAGE_BUCKET")

	// Processing
	setString(&cfg.Processing.Dispatch, "PROPEXTRACT_DISPATCH")
	setString(&cfg.Processing.FunctionsURL, "PROPEXTRACT_FUNCTIONS_URL")
	setInt(&cfg.Processing.MaxParallel, "PROPEXTRACT_MAX_PARALLEL")
	setDuration(&cfg.Processing.Timeout, "PROPEXTRACT_HANDLER_TIMEOUT")

	setString(&cfg.Cache.Backend, "PROPEXTRACT_CACHE_BACKEND")
	setInt64(&cfg.Cache.MaxSizeMB, "PROPEXTRACT_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "PROPEXTRACT_CACHE_TTL")
	setString(&cfg.Cache.KVBucket, "PROPEXTRACT_CACHE_KV_BUCKET")

	setString(&cfg.Logging.Level, "PROPEXTRACT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PROPEXTRACT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PROPEXTRACT_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "PROPEXTRACT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PROPEXTRACT_BREAKER_TIMEOUT")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "PROPEXTRACT_OTEL_INSECURE")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
}

// ackMargin is how long a dispatch message outlives the handler timeout
// before JetStream redelivers it.
const ackMargin = time.Minute

// derive fills settings that depend on other validated fields.
func derive(cfg *Config) {
	if floor := cfg.Processing.Timeout + ackMargin; cfg.NATS.AckWait < floor {
		cfg.NATS.AckWait = floor
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.NATS.Workers < 1 {
		return errors.New("nats.workers must be >= 1")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Processing.MaxParallel < 1 {
		return errors.New("processing.max_parallel must be >= 1")
	}
	if cfg.Processing.Timeout <= 0 {
		return errors.New("processing.timeout must be > 0")
	}
	switch cfg.Processing.Dispatch {
	case "nats":
	case "http":
		if cfg.Processing.FunctionsURL == "" {
			return errors.New("processing.functions_url is required for http dispatch")
		}
	default:
		return fmt.Errorf("processing.dispatch %q is not one of nats, http", cfg.Processing.Dispatch)
	}
	switch cfg.Cache.Backend {
	case "nats":
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of nats, redis", cfg.Cache.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

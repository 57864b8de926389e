package config

import (
	"os"
	"strconv"
	"time"
)

func applyEnv(cfg *Config) {
	o := &cfg.Optimizer
	o.PopulationSize = getEnvInt("ERA_POPULATION_SIZE", o.PopulationSize)
	o.Interval = getEnvDuration("ERA_INTERVAL", o.Interval)
	o.Seed = getEnvUint("ERA_SEED", o.Seed)
	o.InitialLoad = getEnvInt("ERA_LOAD", o.InitialLoad)

	cfg.Telemetry.Source = getEnv("ERA_TELEMETRY_SOURCE", cfg.Telemetry.Source)
	cfg.Telemetry.Prometheus.Address = getEnv("ERA_PROMETHEUS_ADDR", cfg.Telemetry.Prometheus.Address)

	cfg.Actuation.DryRun = getEnvBool("ERA_DRY_RUN", cfg.Actuation.DryRun)
	cfg.Actuation.CgroupPath = getEnv("ERA_CGROUP_PATH", cfg.Actuation.CgroupPath)

	cfg.API.Addr = getEnv("ERA_API_ADDR", cfg.API.Addr)

	cfg.Journal.Backend = getEnv("ERA_JOURNAL_BACKEND", cfg.Journal.Backend)
	cfg.Journal.Path = getEnv("ERA_JOURNAL_PATH", cfg.Journal.Path)
	cfg.Journal.DSN = getEnv("ERA_JOURNAL_DSN", cfg.Journal.DSN)

	cfg.Logging.Level = getEnv("ERA_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("ERA_LOG_FORMAT", cfg.Logging.Format)
	cfg.Tracing.JaegerEndpoint = getEnv("ERA_JAEGER_ENDPOINT", cfg.Tracing.JaegerEndpoint)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

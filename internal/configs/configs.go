package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppURL                 string
	APIPrefix              string
	DatabaseDSN            string
	RateLimit              int
	ShutdownTimeoutSeconds int
	LogLevel               string
	Transactions           bool
	StrictAssignment       bool
	TaskDefaultLimit       int
	RedisAddr              string
	RedisDriftKey          string
	ReconcileWorkers       int
}

func Load() (Config, error) {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")

	cfg := Config{
		AppURL:        fmt.Sprintf("%s:%s", appHost, appPort),
		APIPrefix:     strings.TrimRight(getEnv("API_PREFIX", "/api"), "/"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "tasks.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RedisDriftKey: getEnv("REDIS_DRIFT_KEY", "task_api:drift_users"),
	}

	var err error
	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"RATE_LIMIT_PER_MINUTE", 600, &cfg.RateLimit},
		{"SHUTDOWN_TIMEOUT_SECONDS", 20, &cfg.ShutdownTimeoutSeconds},
		{"TASK_DEFAULT_LIMIT", 100, &cfg.TaskDefaultLimit},
		{"RECONCILE_WORKERS", 4, &cfg.ReconcileWorkers},
	}
	for _, v := range ints {
		if *v.dest, err = getEnvAsInt(v.key, v.def); err != nil {
			return Config{}, err
		}
	}

	if cfg.Transactions, err = getEnvAsBool("STORE_TRANSACTIONS", true); err != nil {
		return Config{}, err
	}
	if cfg.StrictAssignment, err = getEnvAsBool("STRICT_ASSIGNMENT", false); err != nil {
		return Config{}, err
	}

	if redisHost := getEnv("REDIS_HOST", ""); redisHost != "" {
		cfg.RedisAddr = fmt.Sprintf("%s:%s", redisHost, getEnv("REDIS_PORT", "6379"))
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.AppURL == "" || strings.HasPrefix(cfg.AppURL, ":") {
		return errors.New("APP_HOST must not be empty (e.g. 127.0.0.1)")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0")
	}
	if cfg.TaskDefaultLimit < 0 {
		return errors.New("TASK_DEFAULT_LIMIT must not be negative")
	}
	if cfg.ReconcileWorkers <= 0 {
		return errors.New("RECONCILE_WORKERS must be greater than 0")
	}
	if cfg.APIPrefix != "" && !strings.HasPrefix(cfg.APIPrefix, "/") {
		return errors.New("API_PREFIX must start with /")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s", key)
		}
		return i, nil
	}
	return defaultVal, nil
}

func getEnvAsBool(key string, defaultVal bool) (bool, error) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid boolean value for %s", key)
		}
		return b, nil
	}
	return defaultVal, nil
}

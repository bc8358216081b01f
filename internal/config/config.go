package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the servers need at startup. Environment
// variables win over the optional YAML settings file, which wins over
// the built-in defaults.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL      string
	SaveKeyPrefix string

	DataDir       string
	SceneSources  []string
	AutosaveDelay time.Duration
}

// fileConfig is the YAML shape of the optional settings file pointed at
// by CONFIG_FILE. All keys are optional.
type fileConfig struct {
	Port          string   `yaml:"port"`
	Environment   string   `yaml:"environment"`
	LogLevel      string   `yaml:"logLevel"`
	RedisURL      string   `yaml:"redisUrl"`
	SaveKeyPrefix string   `yaml:"saveKeyPrefix"`
	DataDir       string   `yaml:"dataDir"`
	SceneSources  []string `yaml:"sceneSources"`
	AutosaveMS    int      `yaml:"autosaveDelayMs"`
}

// Load assembles the configuration. The settings file path comes from
// CONFIG_FILE; a missing variable means no file is read, but a named
// file that fails to parse is an error.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", pick(fc.Port, "8080")),
		Environment:   getEnv("ENVIRONMENT", pick(fc.Environment, "development")),
		LogLevel:      parseLogLevel(getEnv("LOG_LEVEL", pick(fc.LogLevel, "info"))),
		RedisURL:      getEnv("REDIS_URL", fc.RedisURL),
		SaveKeyPrefix: getEnv("SAVE_KEY_PREFIX", pick(fc.SaveKeyPrefix, "save")),
		DataDir:       getEnv("DATA_DIR", pick(fc.DataDir, "data")),
		SceneSources:  fc.SceneSources,
	}

	delayMS := fc.AutosaveMS
	if raw := os.Getenv("AUTOSAVE_DELAY_MS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTOSAVE_DELAY_MS %q: %w", raw, err)
		}
		delayMS = n
	}
	if delayMS > 0 {
		cfg.AutosaveDelay = time.Duration(delayMS) * time.Millisecond
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func pick(fromFile, fallback string) string {
	if fromFile != "" {
		return fromFile
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Checkpoint backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port               string
	LogLevel           string
	DBConnectionString string
	CheckpointBackend  string
	CheckpointDir      string
	GitHub             *GitHubConfig
	Scheduler          *SchedulerConfig
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	for _, name := range append([]string{".env"}, filenames...) {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	gh, err := loadGitHubConfig()
	if err != nil {
		return nil, err
	}

	sched, err := loadSchedulerConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		CheckpointBackend:  getEnv("CHECKPOINT_BACKEND", BackendFile),
		CheckpointDir:      getEnv("CHECKPOINT_DIR", DefaultCheckpointDir()),
		GitHub:             gh,
		Scheduler:          sched,
	}

	switch cfg.CheckpointBackend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if cfg.DBConnectionString == "" {
			return nil, fmt.Errorf("DB_CONNECTION_STRING must be set for the %s checkpoint backend", BackendPostgres)
		}
	default:
		return nil, fmt.Errorf("unknown CHECKPOINT_BACKEND %q", cfg.CheckpointBackend)
	}

	return cfg, nil
}

// DefaultCheckpointDir returns ~/.commit-painter/checkpoints.
func DefaultCheckpointDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".commit-painter", "checkpoints")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func getEnvSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := getEnvInt(key, int(defaultValue/time.Second))
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

package config

import (
	"fmt"
	"time"
)

// Throughput and batching limits
const (
	MinRateLimit        = 1
	MaxRateLimit        = 1000
	MinBatchSize        = 1
	MaxBatchSize        = 100
	PerSecondCeiling    = 666
	DefaultRateLimit    = 100
	DefaultBatchSize    = 10
	DefaultCheckpointN  = 20
)

// SchedulerConfig holds commit scheduling defaults
type SchedulerConfig struct {
	BatchSize       int
	RateLimit       int
	CheckpointEvery int
	Location        *time.Location
}

// DefaultSchedulerConfig returns the default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		BatchSize:       DefaultBatchSize,
		RateLimit:       DefaultRateLimit,
		CheckpointEvery: DefaultCheckpointN,
		Location:        time.UTC,
	}
}

func loadSchedulerConfig() (*SchedulerConfig, error) {
	cfg := DefaultSchedulerConfig()

	batchSize, err := getEnvInt("DEFAULT_BATCH_SIZE", cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("DEFAULT_RATE_LIMIT", cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	every, err := getEnvInt("CHECKPOINT_EVERY", cfg.CheckpointEvery)
	if err != nil {
		return nil, err
	}
	if every <= 0 {
		return nil, fmt.Errorf("CHECKPOINT_EVERY must be positive, got %d", every)
	}
	loc, err := time.LoadLocation(getEnv("COMMIT_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_TIMEZONE: %w", err)
	}

	cfg.BatchSize = ClampBatchSize(batchSize)
	cfg.RateLimit = ClampRateLimit(rateLimit)
	cfg.CheckpointEvery = every
	cfg.Location = loc
	return cfg, nil
}

// ClampRateLimit bounds a commits-per-minute rate to [1, 1000].
func ClampRateLimit(rate int) int {
	return min(MaxRateLimit, max(MinRateLimit, rate))
}

// ClampBatchSize bounds a batch size to [1, 100].
func ClampBatchSize(size int) int {
	return min(MaxBatchSize, max(MinBatchSize, size))
}

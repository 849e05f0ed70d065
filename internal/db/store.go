package db

import (
	"context"
	"fmt"

	"github.com/Kamar-Folarin/commit-painter/internal/config"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// Store persists one checkpoint per job key
type Store interface {
	// Load returns the checkpoint for key, or nil when none exists.
	Load(ctx context.Context, key models.JobKey) (*models.Job, error)
	// Save creates or replaces the checkpoint for job.Key().
	Save(ctx context.Context, job *models.Job) error
	// Delete removes the checkpoint for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key models.JobKey) error
	// List returns every stored checkpoint.
	List(ctx context.Context) ([]*models.Job, error)
	Close() error
}

// Open returns the backend selected by cfg.CheckpointBackend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.CheckpointBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.CheckpointDir)
	case config.BackendPostgres:
		store, err := NewPostgresStore(cfg.DBConnectionString)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
	}
}

func copyJob(job *models.Job) *models.Job {
	if job == nil {
		return nil
	}
	c := *job
	return &c
}

// Package checkpoint tracks how far each job has durably progressed.
package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/db"
	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// Manager caches checkpoints in front of a db.Store
type Manager struct {
	store  db.Store
	logger *logrus.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[models.JobKey]*models.Job
}

// NewManager creates a new checkpoint manager
func NewManager(store db.Store, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		cache:  make(map[models.JobKey]*models.Job),
	}
}

// Get returns the stored checkpoint for key, or nil.
func (m *Manager) Get(ctx context.Context, key models.JobKey) (*models.Job, error) {
	m.mu.RLock()
	if job, exists := m.cache[key]; exists {
		m.mu.RUnlock()
		c := *job
		return &c, nil
	}
	m.mu.RUnlock()

	job, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	m.mu.Lock()
	m.cache[key] = job
	m.mu.Unlock()

	c := *job
	return &c, nil
}

// Load returns the checkpoint for key when it was written for the same total.
// A checkpoint recorded for a different total is stale and ignored.
func (m *Manager) Load(ctx context.Context, key models.JobKey, total int) (*models.Job, error) {
	job, err := m.Get(ctx, key)
	if err != nil || job == nil {
		return nil, err
	}
	if job.TotalUnits != total {
		m.logger.WithFields(logrus.Fields{
			"job":              key.String(),
			"checkpoint_total": job.TotalUnits,
			"total":            total,
		}).Info("Ignoring stale checkpoint")
		return nil, nil
	}
	if err := job.Validate(); err != nil {
		m.logger.WithError(err).WithField("job", key.String()).Warn("Ignoring invalid checkpoint")
		return nil, nil
	}
	return job, nil
}

// Save validates and persists job, stamping UpdatedAt.
func (m *Manager) Save(ctx context.Context, job *models.Job) error {
	if job == nil {
		return errors.NewValidationError("checkpoint cannot be nil", nil)
	}
	if err := job.Validate(); err != nil {
		return errors.NewValidationError("invalid checkpoint", err)
	}

	c := *job
	c.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, &c); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.mu.Lock()
	m.cache[c.Key()] = &c
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"job":       c.Key().String(),
		"completed": c.CompletedUnits,
		"total":     c.TotalUnits,
	}).Debug("Checkpoint saved")
	return nil
}

// Clear removes the checkpoint for key
func (m *Manager) Clear(ctx context.Context, key models.JobKey) error {
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	return nil
}

// List returns every stored checkpoint and refreshes the cache
func (m *Manager) List(ctx context.Context) ([]*models.Job, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	m.mu.Lock()
	for _, job := range jobs {
		c := *job
		m.cache[job.Key()] = &c
	}
	m.mu.Unlock()

	return jobs, nil
}

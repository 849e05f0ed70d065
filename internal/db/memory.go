package db

import (
	"context"
	"sort"
	"sync"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// MemoryStore keeps checkpoints for the lifetime of the process
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[models.JobKey]*models.Job
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[models.JobKey]*models.Job)}
}

func (s *MemoryStore) Load(ctx context.Context, key models.JobKey) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyJob(s.jobs[key]), nil
}

func (s *MemoryStore) Save(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Key()] = copyJob(job)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key models.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Key().Compare(jobs[j].Key()) < 0
	})
	return jobs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

const (
	dirPerm      = 0o750
	filePerm     = 0o600
	fileExt      = ".json"
	tmpExtension = ".tmp"
	filePrefix   = "commit-progress"
	keySeparator = "+"
)

// FileStore writes one JSON document per job key into a directory.
// Writes go to a temporary file that is renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir if needed and returns a store rooted there
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory cannot be empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the checkpoint files.
func (s *FileStore) Dir() string {
	return s.dir
}

// path names the file commit-progress+<owner>+<repo>+<year>.json. Each part
// is escaped so that '+' only ever appears as the separator.
func (s *FileStore) path(key models.JobKey) string {
	name := strings.Join([]string{
		filePrefix,
		escapeKeyPart(key.OwnerLogin),
		escapeKeyPart(key.RepositoryName),
		escapeKeyPart(key.YearKey),
	}, keySeparator)
	return filepath.Join(s.dir, name+fileExt)
}

// escapeKeyPart keeps letters, digits, '-', '_' and '.' and writes every
// other byte as %XX.
func escapeKeyPart(part string) string {
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		c := part[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func (s *FileStore) Load(ctx context.Context, key models.JobKey) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := readJob(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return job, err
}

func (s *FileStore) Save(ctx context.Context, job *models.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(job.Key())
	tmpPath := path + tmpExtension
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key models.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var jobs []*models.Job
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		job, err := readJob(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Key().Compare(jobs[j].Key()) < 0
	})
	return jobs, nil
}

func (s *FileStore) Close() error {
	return nil
}

func readJob(path string) (*models.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint %s: %w", filepath.Base(path), err)
	}
	return &job, nil
}

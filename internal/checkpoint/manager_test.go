package checkpoint

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/commit-painter/internal/db"
	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

var testKey = models.JobKey{OwnerLogin: "octocat", RepositoryName: "art", YearKey: "2024"}

func newJob(completed, total int) *models.Job {
	return &models.Job{
		OwnerLogin:     testKey.OwnerLogin,
		RepositoryName: testKey.RepositoryName,
		YearKey:        testKey.YearKey,
		CompletedUnits: completed,
		TotalUnits:     total,
	}
}

// MockStore is a mock implementation of db.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, key models.JobKey) (*models.Job, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, job *models.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key models.JobKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStore) List(ctx context.Context) ([]*models.Job, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockStore) Close() error {
	return nil
}

var _ db.Store = (*MockStore)(nil)

func TestManager_LoadMatchingTotal(t *testing.T) {
	ctx := context.Background()
	m := NewManager(db.NewMemoryStore(), logrus.New())
	require.NoError(t, m.Save(ctx, newJob(46, 200)))

	job, err := m.Load(ctx, testKey, 200)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 46, job.CompletedUnits)
	assert.False(t, job.UpdatedAt.IsZero())
}

func TestManager_LoadStaleTotal(t *testing.T) {
	ctx := context.Background()
	m := NewManager(db.NewMemoryStore(), logrus.New())
	require.NoError(t, m.Save(ctx, newJob(46, 200)))

	job, err := m.Load(ctx, testKey, 150)
	require.NoError(t, err)
	assert.Nil(t, job)

	// The stale record is still visible for status queries.
	stored, err := m.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 200, stored.TotalUnits)
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	m := NewManager(db.NewMemoryStore(), logrus.New())

	err := m.Save(context.Background(), newJob(201, 200))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	err = m.Save(context.Background(), nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestManager_CachesReads(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Load", mock.Anything, testKey).Return(newJob(3, 10), nil).Once()

	m := NewManager(store, logrus.New())
	for i := 0; i < 3; i++ {
		job, err := m.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, 3, job.CompletedUnits)
	}
	store.AssertExpectations(t)
}

func TestManager_ClearDropsCache(t *testing.T) {
	ctx := context.Background()
	m := NewManager(db.NewMemoryStore(), logrus.New())
	require.NoError(t, m.Save(ctx, newJob(3, 10)))
	require.NoError(t, m.Clear(ctx, testKey))

	job, err := m.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestManager_StoreErrors(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	boom := stderrors.New("disk full")
	store.On("Save", mock.Anything, mock.Anything).Return(boom)
	store.On("Delete", mock.Anything, testKey).Return(boom)
	store.On("List", mock.Anything).Return([]*models.Job(nil), boom)

	m := NewManager(store, logrus.New())
	assert.ErrorIs(t, m.Save(ctx, newJob(1, 2)), boom)
	assert.ErrorIs(t, m.Clear(ctx, testKey), boom)
	_, err := m.List(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestManager_StampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	m := NewManager(db.NewMemoryStore(), logrus.New())
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	require.NoError(t, m.Save(ctx, newJob(1, 2)))
	jobs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, fixed, jobs[0].UpdatedAt)
}

func TestManager_KeysWithDashesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store, err := db.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store, logrus.New())

	owned := &models.Job{OwnerLogin: "paint-er", RepositoryName: "art", YearKey: "2024", TotalUnits: 40, CompletedUnits: 24}
	other := models.JobKey{OwnerLogin: "paint", RepositoryName: "er-art", YearKey: "2024"}
	require.NoError(t, m.Save(ctx, owned))

	job, err := m.Load(ctx, other, 40)
	require.NoError(t, err)
	assert.Nil(t, job)

	// A fresh manager reads through to the files rather than the cache.
	job, err = NewManager(store, logrus.New()).Load(ctx, other, 40)
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, m.Clear(ctx, other))
	job, err = m.Load(ctx, owned.Key(), 40)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 24, job.CompletedUnits)
}

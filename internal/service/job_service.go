// Package service runs painting jobs in the background for the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/config"
	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/github"
	"github.com/Kamar-Folarin/commit-painter/internal/metrics"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/internal/scheduler"
)

// JobService starts, observes and cancels painting jobs
type JobService interface {
	StartJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error)
	ResumeJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error)
	GetStatus(ctx context.Context, key models.JobKey) (*models.JobStatus, error)
	ListCheckpoints(ctx context.Context) ([]*models.Job, error)
	DiscardCheckpoint(ctx context.Context, key models.JobKey) error
	CancelJob(key models.JobKey) error
	Wait(ctx context.Context, key models.JobKey) (*models.JobResult, error)
	Shutdown(ctx context.Context) error
}

// CheckpointStore is the checkpoint access the service needs
type CheckpointStore interface {
	scheduler.ProgressStore
	Get(ctx context.Context, key models.JobKey) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
}

// ClientFactory builds a Git data client for one token
type ClientFactory func(token string) github.GitDataAPI

// JobServiceImpl implements the JobService interface
type JobServiceImpl struct {
	checkpoints CheckpointStore
	cfg         *config.Config
	logger      *logrus.Logger
	metrics     *metrics.Metrics
	newClient   ClientFactory
	schedOpts   []scheduler.Option

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu   sync.Mutex
	runs map[models.JobKey]*jobRun
}

// Option configures a JobServiceImpl
type Option func(*JobServiceImpl)

// WithClientFactory replaces the GitHub client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(s *JobServiceImpl) {
		if f != nil {
			s.newClient = f
		}
	}
}

// WithMetrics records job metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *JobServiceImpl) {
		s.metrics = m
	}
}

// WithSchedulerOptions passes extra options to every scheduler the service creates.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *JobServiceImpl) {
		s.schedOpts = append(s.schedOpts, opts...)
	}
}

// NewJobService creates a new job service
func NewJobService(checkpoints CheckpointStore, cfg *config.Config, logger *logrus.Logger, opts ...Option) *JobServiceImpl {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.GitHub == nil {
		cfg.GitHub = config.DefaultGitHubConfig()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = config.DefaultSchedulerConfig()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &JobServiceImpl{
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logger,
		baseCtx:     baseCtx,
		cancelBase:  cancel,
		runs:        make(map[models.JobKey]*jobRun),
	}
	s.newClient = func(token string) github.GitDataAPI {
		return github.NewGitHubClient(token, logger,
			github.WithBaseURL(cfg.GitHub.APIBaseURL),
			github.WithTimeout(cfg.GitHub.Timeout))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// jobRun tracks one background execution
type jobRun struct {
	key       models.JobKey
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	mu        sync.Mutex
	state     models.JobState
	lastEvent *models.ProgressEvent
	result    *models.JobResult
	err       error
}

func (r *jobRun) running() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *jobRun) record(ev models.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = ev.State
	r.lastEvent = &ev
}

func (r *jobRun) finish(result *models.JobResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = result
	r.err = err
	if result != nil {
		r.state = result.State
	}
}

// StartJob validates req and runs it in the background.
func (s *JobServiceImpl) StartJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error) {
	return s.launch(ctx, req, false)
}

// ResumeJob runs req in the background from its checkpoint. It fails with a
// not found error when no checkpoint matches the request.
func (s *JobServiceImpl) ResumeJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error) {
	return s.launch(ctx, req, true)
}

func (s *JobServiceImpl) launch(ctx context.Context, req *models.JobRequest, resume bool) (models.JobKey, error) {
	total, err := scheduler.ValidateRequest(req)
	if err != nil {
		return models.JobKey{}, err
	}
	key := req.Key()

	token := req.Token
	if token == "" {
		token = s.cfg.GitHub.Token
	}
	if token == "" {
		return key, errors.NewUnauthorizedError("a GitHub token is required", nil)
	}

	if resume {
		cp, err := s.checkpoints.Load(ctx, key, total)
		if err != nil {
			return key, errors.NewInternalError("failed to load checkpoint", err)
		}
		if cp == nil {
			return key, errors.NewNotFoundError(
				fmt.Sprintf("no checkpoint for %s with %d commits to resume", key, total), nil)
		}
	}

	logger := s.logger.WithFields(logrus.Fields{
		"owner":      key.OwnerLogin,
		"repository": key.RepositoryName,
		"year":       key.YearKey,
		"resume":     resume,
	})

	s.mu.Lock()
	if existing, ok := s.runs[key]; ok && existing.running() {
		s.mu.Unlock()
		logger.Warn("Job already in progress")
		return key, errors.NewJobInProgressError(key.String())
	}
	if s.baseCtx.Err() != nil {
		s.mu.Unlock()
		return key, errors.NewInternalError("job service is shutting down", nil)
	}
	runCtx, cancel := context.WithCancel(s.baseCtx)
	run := &jobRun{
		key:       key,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
		state:     models.StateBootstrapping,
	}
	s.runs[key] = run
	s.mu.Unlock()

	opts := []scheduler.Option{
		scheduler.WithMetrics(s.metrics),
		scheduler.WithAuthor(models.CommitAuthor{
			Name:  s.cfg.GitHub.AuthorName,
			Email: s.cfg.GitHub.AuthorEmail,
		}),
	}
	opts = append(opts, s.schedOpts...)
	sched := scheduler.NewCommitScheduler(s.newClient(token), s.checkpoints, s.cfg.Scheduler, s.logger, opts...)

	logger.WithField("total", total).Info("Starting background job")
	go s.execute(runCtx, run, sched, req, resume, logger)
	return key, nil
}

func (s *JobServiceImpl) execute(ctx context.Context, run *jobRun, sched *scheduler.CommitScheduler, req *models.JobRequest, resume bool, logger *logrus.Entry) {
	defer close(run.done)
	defer run.cancel()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-sched.Events():
				run.record(ev)
			case <-stop:
				return
			}
		}
	}()

	var result *models.JobResult
	var err error
	if resume {
		result, err = sched.Resume(ctx, req)
	} else {
		result, err = sched.Start(ctx, req)
	}

	close(stop)
	wg.Wait()
	select {
	case ev := <-sched.Events():
		run.record(ev)
	default:
	}
	run.finish(result, err)

	if err != nil {
		logger.WithError(err).Error("Background job failed")
		return
	}
	logger.WithField("duration", result.Duration.String()).Info("Background job completed")
}

func (s *JobServiceImpl) lookup(key models.JobKey) (*jobRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[key]
	return run, ok
}

// GetStatus combines the live run, if any, with the stored checkpoint.
func (s *JobServiceImpl) GetStatus(ctx context.Context, key models.JobKey) (*models.JobStatus, error) {
	cp, err := s.checkpoints.Get(ctx, key)
	if err != nil {
		return nil, errors.NewInternalError("failed to get checkpoint", err)
	}

	status := &models.JobStatus{
		JobKey:     key,
		Checkpoint: cp,
	}

	run, ok := s.lookup(key)
	if !ok {
		if cp == nil {
			return nil, errors.NewNotFoundError(fmt.Sprintf("no job or checkpoint for %s", key), nil)
		}
		return status, nil
	}

	status.Running = run.running()
	status.StartedAt = run.startedAt
	run.mu.Lock()
	status.State = run.state
	if run.lastEvent != nil {
		ev := *run.lastEvent
		status.LastEvent = &ev
	}
	if run.result != nil {
		result := *run.result
		status.Result = &result
	}
	run.mu.Unlock()
	return status, nil
}

// ListCheckpoints returns every stored checkpoint.
func (s *JobServiceImpl) ListCheckpoints(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.checkpoints.List(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list checkpoints", err)
	}
	return jobs, nil
}

// DiscardCheckpoint deletes the checkpoint of a job that is not running.
func (s *JobServiceImpl) DiscardCheckpoint(ctx context.Context, key models.JobKey) error {
	if run, ok := s.lookup(key); ok && run.running() {
		return errors.NewJobInProgressError(key.String())
	}

	cp, err := s.checkpoints.Get(ctx, key)
	if err != nil {
		return errors.NewInternalError("failed to get checkpoint", err)
	}
	if cp == nil {
		return errors.NewNotFoundError(fmt.Sprintf("no checkpoint for %s", key), nil)
	}
	if err := s.checkpoints.Clear(ctx, key); err != nil {
		return errors.NewInternalError("failed to discard checkpoint", err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner":      key.OwnerLogin,
		"repository": key.RepositoryName,
		"year":       key.YearKey,
		"completed":  cp.CompletedUnits,
		"total":      cp.TotalUnits,
	}).Info("Discarded checkpoint")
	return nil
}

// CancelJob stops a running job after its current commit. The checkpoint is kept.
func (s *JobServiceImpl) CancelJob(key models.JobKey) error {
	run, ok := s.lookup(key)
	if !ok || !run.running() {
		return errors.NewNotFoundError(fmt.Sprintf("no running job for %s", key), nil)
	}
	run.cancel()
	s.logger.WithField("job", key.String()).Info("Cancellation requested")
	return nil
}

// Wait blocks until the job for key finishes and returns its outcome.
func (s *JobServiceImpl) Wait(ctx context.Context, key models.JobKey) (*models.JobResult, error) {
	run, ok := s.lookup(key)
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no job for %s", key), nil)
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.result, run.err
}

// Shutdown cancels every running job and waits for them to record their checkpoints.
func (s *JobServiceImpl) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancelBase()
	runs := make([]*jobRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.Unlock()

	for _, run := range runs {
		select {
		case <-run.done:
		case <-ctx.Done():
			return fmt.Errorf("jobs still running at shutdown: %w", ctx.Err())
		}
	}
	s.logger.WithField("jobs", len(runs)).Info("Job service stopped")
	return nil
}

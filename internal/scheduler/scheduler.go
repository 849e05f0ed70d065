// Package scheduler turns an intensity map into a chronologically ordered
// chain of commits on a repository's default branch.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/batch"
	"github.com/Kamar-Folarin/commit-painter/internal/config"
	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/github"
	"github.com/Kamar-Folarin/commit-painter/internal/metrics"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/internal/ratelimit"
)

// ProgressStore persists checkpoints of resumable runs
type ProgressStore interface {
	// Load returns the checkpoint for key if it was recorded for total units.
	Load(ctx context.Context, key models.JobKey, total int) (*models.Job, error)
	Save(ctx context.Context, job *models.Job) error
	Clear(ctx context.Context, key models.JobKey) error
}

// Limiter admits units under the throttle windows
type Limiter interface {
	Admit(ctx context.Context, n int) error
	MaxAdmission() int
	PerMinute() int
}

// LimiterFactory builds the limiter of one run. onWait must be called before each suspension.
type LimiterFactory func(perMinute int, onWait ratelimit.WaitFunc) Limiter

// DefaultLimiterFactory returns a wall-clock ratelimit.Limiter.
func DefaultLimiterFactory(perMinute int, onWait ratelimit.WaitFunc) Limiter {
	return ratelimit.NewLimiter(perMinute, ratelimit.WithWaitHook(onWait))
}

// CommitScheduler runs painting jobs against one GitHub API client
type CommitScheduler struct {
	api        github.GitDataAPI
	bootstrap  *github.Bootstrapper
	builder    *github.ObjectBuilder
	progress   ProgressStore
	cfg        *config.SchedulerConfig
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	newLimiter LimiterFactory

	builderOpts []github.BuilderOption
	rand        *rand.Rand

	mu     sync.Mutex
	events chan models.ProgressEvent
}

// Option configures a CommitScheduler
type Option func(*CommitScheduler)

// WithMetrics records run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CommitScheduler) {
		s.metrics = m
	}
}

// WithLimiterFactory replaces the wall-clock limiter.
func WithLimiterFactory(f LimiterFactory) Option {
	return func(s *CommitScheduler) {
		if f != nil {
			s.newLimiter = f
		}
	}
}

// WithAuthor sets the commit identity; the default is the owner's noreply address.
func WithAuthor(author models.CommitAuthor) Option {
	return func(s *CommitScheduler) {
		if author.Name != "" {
			s.builderOpts = append(s.builderOpts, github.WithAuthor(author))
		}
	}
}

// WithSeed makes message choice, commit times and payloads reproducible.
func WithSeed(seed uint64) Option {
	return func(s *CommitScheduler) {
		s.rand = rand.New(rand.NewPCG(seed, 1))
		s.builderOpts = append(s.builderOpts, github.WithRandSource(rand.NewPCG(seed, 2)))
	}
}

// WithBuilderOptions passes extra options to the object builder.
func WithBuilderOptions(opts ...github.BuilderOption) Option {
	return func(s *CommitScheduler) {
		s.builderOpts = append(s.builderOpts, opts...)
	}
}

// NewCommitScheduler creates a scheduler. cfg supplies defaults for requests
// that leave rate or batch size unset.
func NewCommitScheduler(api github.GitDataAPI, progress ProgressStore, cfg *config.SchedulerConfig, logger *logrus.Logger, opts ...Option) *CommitScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg == nil {
		cfg = config.DefaultSchedulerConfig()
	}
	s := &CommitScheduler{
		api:        api,
		progress:   progress,
		cfg:        cfg,
		logger:     logger,
		newLimiter: DefaultLimiterFactory,
		rand:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		events:     make(chan models.ProgressEvent, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.bootstrap = github.NewBootstrapper(api, logger)
	builderOpts := append([]github.BuilderOption{github.WithLocation(cfg.Location)}, s.builderOpts...)
	s.builder = github.NewObjectBuilder(api, logger, builderOpts...)
	return s
}

// Events returns the progress channel. It holds only the most recent event.
func (s *CommitScheduler) Events() <-chan models.ProgressEvent {
	return s.events
}

// Start runs req, continuing from a checkpoint recorded for the same total if one exists.
// The result is always non-nil; err is non-nil exactly when the run did not complete.
func (s *CommitScheduler) Start(ctx context.Context, req *models.JobRequest) (*models.JobResult, error) {
	return s.execute(ctx, req, false)
}

// Resume runs req only if a checkpoint recorded for the same total exists.
func (s *CommitScheduler) Resume(ctx context.Context, req *models.JobRequest) (*models.JobResult, error) {
	return s.execute(ctx, req, true)
}

// run is the mutable state of one execution.
type run struct {
	key     models.JobKey
	total   int
	started time.Time
	logger  *logrus.Entry

	repo *models.RepositoryRef
	tip  string
	// completed counts units appended in memory; durable counts units reachable from the remote ref.
	completed  int
	durable    int
	durableTip string
}

// unitError reports the failure of one commit unit.
type unitError struct {
	unit models.CommitUnit
	err  error
}

func (e *unitError) Error() string {
	return fmt.Sprintf("commit %d of %d (%s): %v", e.unit.Position, e.unit.Total, e.unit.TargetDate.Format(models.DateLayout), e.err)
}

func (e *unitError) Unwrap() error {
	return e.err
}

func (s *CommitScheduler) execute(ctx context.Context, req *models.JobRequest, resume bool) (*models.JobResult, error) {
	total, err := ValidateRequest(req)
	if err != nil {
		s.logger.WithError(err).Warn("Rejected job request")
		return &models.JobResult{
			State:     models.StateFailed,
			Error:     err.Error(),
			ErrorType: string(errors.TypeOf(err)),
		}, err
	}

	key := req.Key()
	r := &run{
		key:     key,
		total:   total,
		started: time.Now(),
		logger: s.logger.WithFields(logrus.Fields{
			"owner":      key.OwnerLogin,
			"repository": key.RepositoryName,
			"year":       key.YearKey,
		}),
	}
	s.metrics.JobStarted()

	cp, err := s.progress.Load(ctx, key, total)
	if err != nil {
		return s.fail(r, errors.NewInternalError("failed to load checkpoint", err))
	}
	if resume && cp == nil {
		return s.fail(r, errors.NewNotFoundError(
			fmt.Sprintf("no checkpoint for %s with %d commits to resume", key, total), nil))
	}
	if cp != nil {
		r.completed = cp.CompletedUnits
		r.durable = cp.CompletedUnits
	}

	// Bootstrapping
	s.emit(r, models.StateBootstrapping, r.completed, fmt.Sprintf("Checking repository %s/%s", key.OwnerLogin, key.RepositoryName))
	repo, err := s.bootstrap.Ensure(ctx, key.OwnerLogin, key.RepositoryName)
	if err != nil {
		return s.fail(r, err)
	}
	r.repo = repo
	r.tip = repo.TipCommitSHA
	r.durableTip = repo.TipCommitSHA
	if repo.Created {
		s.emit(r, models.StateBootstrapping, r.completed, fmt.Sprintf("Initialized repository %s", repo.HTMLURL))
	}

	// Expanding
	units := Expand(req.Cells, req.Messages, s.rand.IntN)
	if cp != nil && cp.CompletedUnits > 0 && cp.TipSHA != "" && cp.TipSHA != repo.TipCommitSHA {
		return s.fail(r, errors.NewConflictError(fmt.Sprintf(
			"branch %s is at %s but the checkpoint was recorded at %s",
			repo.BranchName, shortSHA(repo.TipCommitSHA), shortSHA(cp.TipSHA)), nil))
	}

	rate := req.RateLimit
	if rate == 0 {
		rate = s.cfg.RateLimit
	}
	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = s.cfg.BatchSize
	}
	limiter := s.newLimiter(config.ClampRateLimit(rate), func(window string, wait time.Duration) {
		r.logger.WithFields(logrus.Fields{
			"window": window,
			"wait":   wait.String(),
		}).Warn("Rate limit reached")
		s.metrics.ThrottleWait(window, wait)
		s.emit(r, models.StateRunning, r.completed, fmt.Sprintf("Rate limit reached, waiting %s", wait.Round(time.Second)))
	})
	batchSize = min(config.ClampBatchSize(batchSize), limiter.MaxAdmission())

	remaining := total - r.completed
	s.emit(r, models.StateExpanding, r.completed, fmt.Sprintf("Total commits to generate: %s", humanize.Comma(int64(total))))
	s.emit(r, models.StateExpanding, r.completed, fmt.Sprintf("Estimated time: ~%d minutes at %d commits/minute",
		(remaining+limiter.PerMinute()-1)/limiter.PerMinute(), limiter.PerMinute()))
	s.emit(r, models.StateExpanding, r.completed, fmt.Sprintf("Using branch: %s", repo.BranchName))
	if cp != nil {
		s.emit(r, models.StateExpanding, r.completed, fmt.Sprintf("Resuming from commit #%d/%d", r.completed+1, total))
	}

	// Running
	processor := batch.NewProcessor[models.CommitUnit](batchSize)
	err = processor.ProcessItems(ctx, units[r.completed:], func(ctx context.Context, b []models.CommitUnit, _ int) error {
		if err := limiter.Admit(ctx, len(b)); err != nil {
			return err
		}
		for _, unit := range b {
			if err := ctx.Err(); err != nil {
				return err
			}
			// A started unit runs to completion even if ctx ends meanwhile.
			sha, err := s.builder.AppendCommit(context.WithoutCancel(ctx), repo, r.tip, unit)
			if err != nil {
				return &unitError{unit: unit, err: err}
			}
			r.tip = sha
			r.completed++
			s.metrics.CommitCreated()
		}

		s.emit(r, models.StateRunning, r.completed, fmt.Sprintf("Progress: %d/%d commits (%d%%)",
			r.completed, total, percent(r.completed, total)))

		if r.completed-r.durable >= s.cfg.CheckpointEvery && r.completed < total {
			return s.checkpoint(ctx, r)
		}
		return nil
	})
	select {
	case p := <-processor.GetProgress():
		r.logger.WithFields(logrus.Fields{
			"batches":       p.ProcessedBatches,
			"total_batches": p.TotalBatches,
			"batch_size":    processor.Size(),
		}).Debug("Batch processing stopped")
	default:
	}
	if err != nil {
		return s.abort(ctx, r, err)
	}

	// Finalizing
	s.emit(r, models.StateFinalizing, r.completed, fmt.Sprintf("Updating %s to %s", repo.BranchName, shortSHA(r.tip)))
	if r.tip != r.durableTip {
		if err := s.advanceRef(ctx, r); err != nil {
			s.saveCheckpoint(ctx, r, err.Error())
			return s.fail(r, err)
		}
	}

	// Completed
	if err := s.progress.Clear(context.WithoutCancel(ctx), key); err != nil {
		r.logger.WithError(err).Warn("Failed to clear checkpoint")
	} else {
		s.metrics.CheckpointWritten("clear")
	}

	result := &models.JobResult{
		Success:        true,
		State:          models.StateCompleted,
		TotalCommitted: total,
		RepositoryURL:  repo.HTMLURL,
		Progress:       &models.ProgressCounts{Completed: total, Total: total},
		Duration:       time.Since(r.started),
	}
	s.emit(r, models.StateCompleted, total, fmt.Sprintf("Successfully created %s commits in %s",
		humanize.Comma(int64(total)), result.Duration.Round(time.Second)))
	s.metrics.JobFinished(string(models.StateCompleted), "")
	return result, nil
}

// checkpoint moves the remote ref to the in-memory tip, then records it.
// A failed save stops the run: the branch is already ahead of the stored tip
// and a later resume would otherwise see a conflict.
func (s *CommitScheduler) checkpoint(ctx context.Context, r *run) error {
	if err := s.advanceRef(ctx, r); err != nil {
		return err
	}
	if err := s.saveCheckpoint(ctx, r, ""); err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to save checkpoint at commit %d of %d", r.durable, r.total), err)
	}
	return nil
}

// advanceRef fast-forwards the branch to r.tip and marks everything up to it durable.
func (s *CommitScheduler) advanceRef(ctx context.Context, r *run) error {
	repo := r.repo
	err := s.api.UpdateRef(context.WithoutCancel(ctx), repo.Owner, repo.Name, repo.BranchName, r.tip, false)
	if err != nil {
		if github.IsRefConflict(err) {
			return errors.NewConflictError(fmt.Sprintf(
				"branch %s moved concurrently; refusing to overwrite it with %s", repo.BranchName, shortSHA(r.tip)), err)
		}
		return errors.NewRemoteWriteError(fmt.Sprintf("failed to update branch %s", repo.BranchName), err)
	}
	r.durable = r.completed
	r.durableTip = r.tip
	r.logger.WithFields(logrus.Fields{
		"tip":       shortSHA(r.tip),
		"completed": r.completed,
		"total":     r.total,
	}).Debug("Branch advanced")
	return nil
}

func (s *CommitScheduler) saveCheckpoint(ctx context.Context, r *run, lastError string) error {
	job := &models.Job{
		OwnerLogin:     r.key.OwnerLogin,
		RepositoryName: r.key.RepositoryName,
		YearKey:        r.key.YearKey,
		TotalUnits:     r.total,
		CompletedUnits: r.durable,
		TipSHA:         r.durableTip,
		LastError:      lastError,
	}
	if err := s.progress.Save(context.WithoutCancel(ctx), job); err != nil {
		r.logger.WithError(err).Error("Failed to save checkpoint")
		return err
	}
	s.metrics.CheckpointWritten("save")
	return nil
}

// abort classifies a Running failure, makes finished units durable when
// possible and records the checkpoint before failing the run.
func (s *CommitScheduler) abort(ctx context.Context, r *run, cause error) (*models.JobResult, error) {
	var appErr *errors.AppError
	var ue *unitError
	advance := true
	switch {
	case stderrors.As(cause, &appErr):
		// the ref update or checkpoint save failed
		advance = false
	case stderrors.As(cause, &ue):
		appErr = errors.NewRemoteWriteError(fmt.Sprintf("failed to create commit %d of %d", ue.unit.Position, r.total), ue.err)
	case stderrors.Is(cause, context.Canceled), stderrors.Is(cause, context.DeadlineExceeded):
		appErr = errors.NewCancelledError("run stopped before all commits were created", cause)
	default:
		appErr = errors.NewInternalError("run failed", cause)
	}

	if advance && r.completed > r.durable {
		if err := s.advanceRef(ctx, r); err != nil {
			r.logger.WithError(err).Warn("Could not advance branch after failure")
		}
	}
	s.saveCheckpoint(ctx, r, appErr.Error())
	return s.fail(r, appErr)
}

func (s *CommitScheduler) fail(r *run, err error) (*models.JobResult, error) {
	result := &models.JobResult{
		State:     models.StateFailed,
		Error:     err.Error(),
		ErrorType: string(errors.TypeOf(err)),
		Progress:  &models.ProgressCounts{Completed: r.durable, Total: r.total},
		Duration:  time.Since(r.started),
	}
	if r.repo != nil {
		result.RepositoryURL = r.repo.HTMLURL
	}

	r.logger.WithError(err).WithFields(logrus.Fields{
		"completed": r.durable,
		"total":     r.total,
	}).Error("Job failed")
	s.emit(r, models.StateFailed, r.durable, fmt.Sprintf("Failed after %d/%d commits: %v", r.durable, r.total, err))
	s.metrics.JobFinished(string(models.StateFailed), result.ErrorType)
	return result, err
}

func (s *CommitScheduler) emit(r *run, state models.JobState, completed int, message string) {
	event := models.ProgressEvent{
		JobKey:          r.key.String(),
		State:           state,
		PercentComplete: percent(completed, r.total),
		UnitsCompleted:  completed,
		TotalUnits:      r.total,
		Message:         message,
		Timestamp:       time.Now(),
	}
	if state != models.StateFailed {
		r.logger.WithFields(logrus.Fields{
			"state":     state,
			"completed": completed,
			"total":     r.total,
		}).Info(message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.events <- event:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

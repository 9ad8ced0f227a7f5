package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"
	"fare-crawler-service/pkg/logger"
	"fare-crawler-service/pkg/metrics"

	"github.com/google/uuid"
)

// Scheduler states
const (
	StateIdle       = "IDLE"
	StateRunning    = "RUNNING"
	StateRecovering = "RECOVERING"
)

const (
	shutdownGrace      = 10 * time.Second
	bookkeepingTimeout = 5 * time.Second
)

// CrawlJob is the unit of work the scheduler supervises
type CrawlJob interface {
	Run(ctx context.Context) error
	LastSummary() RunSummary
}

// SchedulerOptions configures when and how long crawls run
type SchedulerOptions struct {
	WindowStartHour int
	WindowMinutes   int
	MaxTaskDuration time.Duration
	PollInterval    time.Duration
	ErrorCooldown   time.Duration
	LockTTL         time.Duration
}

// DefaultSchedulerOptions runs daily between 00:00 and 00:40 with a 5 minute cap
func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		WindowStartHour: 0,
		WindowMinutes:   40,
		MaxTaskDuration: 5 * time.Minute,
		PollInterval:    time.Minute,
		ErrorCooldown:   time.Minute,
		LockTTL:         6 * time.Minute,
	}
}

// SchedulerSnapshot is a point-in-time view of the scheduler
type SchedulerSnapshot struct {
	State           string      `json:"state"`
	FirstRunPending bool        `json:"firstRunPending"`
	RunID           string      `json:"runId,omitempty"`
	RunStartedAt    *time.Time  `json:"runStartedAt,omitempty"`
	CooldownUntil   *time.Time  `json:"cooldownUntil,omitempty"`
	LastOutcome     string      `json:"lastOutcome,omitempty"`
	LastFinishedAt  *time.Time  `json:"lastFinishedAt,omitempty"`
	LastError       string      `json:"lastError,omitempty"`
	LastSummary     *RunSummary `json:"lastSummary,omitempty"`
}

type runResult struct {
	err     error
	summary RunSummary
}

// TaskScheduler polls on a fixed interval and starts at most one crawl at a time:
// once at startup, then inside the daily window. A run that exceeds the maximum
// duration is abandoned and the resources it holds are closed.
type TaskScheduler struct {
	job       CrawlJob
	runs      repository.CrawlRunRepository
	lock      repository.RunLock
	resources []io.Closer
	opts      SchedulerOptions
	now       func() time.Time
	logger    logger.Logger
	metrics   *metrics.Metrics

	mu            sync.Mutex
	state         string
	firstRun      bool
	startTime     time.Time
	runID         string
	run           *entity.CrawlRun
	cancelRun     context.CancelFunc
	done          chan runResult
	lastWindow    string
	cooldownUntil time.Time
	lastOutcome   string
	lastFinished  time.Time
	lastError     string
	lastSummary   *RunSummary
}

// NewTaskScheduler creates a new task scheduler. Resources are closed when a run
// ends, times out or the scheduler stops; they must reopen lazily.
func NewTaskScheduler(
	job CrawlJob,
	runs repository.CrawlRunRepository,
	lock repository.RunLock,
	resources []io.Closer,
	opts SchedulerOptions,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *TaskScheduler {
	return &TaskScheduler{
		job:       job,
		runs:      runs,
		lock:      lock,
		resources: resources,
		opts:      opts,
		now:       time.Now,
		logger:    logger.With("component", "task_scheduler"),
		metrics:   metrics,
		state:     StateIdle,
		firstRun:  true,
	}
}

// Start runs the poll loop until ctx is cancelled. The first check happens immediately.
func (s *TaskScheduler) Start(ctx context.Context) error {
	s.logger.Info("Task scheduler started",
		"windowStartHour", s.opts.WindowStartHour,
		"windowMinutes", s.opts.WindowMinutes,
		"maxTaskDuration", s.opts.MaxTaskDuration,
		"pollInterval", s.opts.PollInterval)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.tick(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// ShouldRunJob reports whether a new run may start at now
func (s *TaskScheduler) ShouldRunJob(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRunJob(now)
}

func (s *TaskScheduler) shouldRunJob(now time.Time) bool {
	if s.firstRun {
		return true
	}
	return now.Hour() == s.opts.WindowStartHour && now.Minute() <= s.opts.WindowMinutes
}

// IsTaskTimeout reports whether the current run has exceeded the maximum duration
func (s *TaskScheduler) IsTaskTimeout(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isTaskTimeout(now)
}

func (s *TaskScheduler) isTaskTimeout(now time.Time) bool {
	if s.startTime.IsZero() {
		return false
	}
	return now.Sub(s.startTime) > s.opts.MaxTaskDuration
}

// Snapshot returns the current scheduler state
func (s *TaskScheduler) Snapshot() SchedulerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SchedulerSnapshot{
		State:           s.state,
		FirstRunPending: s.firstRun,
		RunID:           s.runID,
		LastOutcome:     s.lastOutcome,
		LastError:       s.lastError,
	}
	if !s.startTime.IsZero() {
		started := s.startTime
		snap.RunStartedAt = &started
	}
	if !s.cooldownUntil.IsZero() {
		until := s.cooldownUntil
		snap.CooldownUntil = &until
	}
	if !s.lastFinished.IsZero() {
		finished := s.lastFinished
		snap.LastFinishedAt = &finished
	}
	if s.lastSummary != nil {
		summary := *s.lastSummary
		snap.LastSummary = &summary
	}
	return snap
}

func (s *TaskScheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Recovery finished on the previous tick; only the label was left behind
	if s.state == StateRecovering {
		s.state = StateIdle
	}

	switch s.state {
	case StateIdle:
		if now.Before(s.cooldownUntil) {
			return
		}
		if !s.shouldRunJob(now) {
			return
		}
		if !s.firstRun && s.lastWindow == windowKey(now) {
			return
		}
		s.startRun(ctx, now)

	case StateRunning:
		select {
		case res := <-s.done:
			s.finishRun(now, res)
		default:
			if s.isTaskTimeout(now) {
				s.recoverTimedOut(now)
			}
		}
	}
}

func (s *TaskScheduler) startRun(ctx context.Context, now time.Time) {
	acquired, err := s.lock.Acquire(ctx, s.opts.LockTTL)
	if err != nil {
		s.logger.Error("Failed to acquire run lock", "error", err)
		s.cooldownUntil = now.Add(s.opts.ErrorCooldown)
		return
	}
	if !acquired {
		s.logger.Info("Run lock held by another process, skipping this window")
		s.metrics.RunsTotal.WithLabelValues("skipped").Inc()
		s.firstRun = false
		s.lastWindow = windowKey(now)
		return
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan runResult, 1)

	s.state = StateRunning
	s.firstRun = false
	s.lastWindow = windowKey(now)
	s.startTime = now
	s.runID = runID
	s.cancelRun = cancel
	s.done = done
	s.run = &entity.CrawlRun{
		RunID:     runID,
		Status:    entity.RunStatusRunning,
		StartedAt: now,
	}
	s.recordRun(s.runs.Create)

	s.logger.Info("Scheduled task running", "runId", runID)

	go func() {
		done <- s.execute(runCtx)
	}()
}

// execute turns a panic in the job into an error so the loop survives it
func (s *TaskScheduler) execute(ctx context.Context) (res runResult) {
	defer func() {
		if r := recover(); r != nil {
			res = runResult{err: fmt.Errorf("crawl run panicked: %v", r), summary: s.job.LastSummary()}
		}
	}()

	err := s.job.Run(ctx)
	return runResult{err: err, summary: s.job.LastSummary()}
}

func (s *TaskScheduler) finishRun(now time.Time, res runResult) {
	log := s.logger.With("runId", s.runID)
	elapsed := now.Sub(s.startTime)
	finished := now

	summary := res.summary
	s.lastSummary = &summary
	s.run.FinishedAt = &finished
	s.run.PairsTotal = summary.Pairs
	s.run.PairsFailed = summary.PairsFailed
	s.run.RecordsPersisted = summary.RecordsPersisted

	if res.err != nil {
		log.Error("Scheduled task failed", "error", res.err, "elapsed", elapsed)
		s.metrics.RunsTotal.WithLabelValues("failed").Inc()
		s.run.Status = entity.RunStatusFailed
		s.run.ErrorDetail = res.err.Error()
		s.lastError = res.err.Error()
		s.cooldownUntil = now.Add(s.opts.ErrorCooldown)
		// A failed run may be retried inside the same window once the cooldown passes
		s.lastWindow = ""
	} else {
		log.Info("Scheduled task completed",
			"elapsed", elapsed,
			"pairs", summary.Pairs,
			"persisted", summary.RecordsPersisted)
		s.metrics.RunsTotal.WithLabelValues("completed").Inc()
		s.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
		s.run.Status = entity.RunStatusCompleted
		s.lastError = ""
	}
	s.recordRun(s.runs.Update)

	s.lastOutcome = s.run.Status
	s.lastFinished = now
	s.endRun()
}

func (s *TaskScheduler) recoverTimedOut(now time.Time) {
	log := s.logger.With("runId", s.runID)
	log.Warn("Task exceeded maximum duration, abandoning it",
		"startedAt", s.startTime,
		"maxTaskDuration", s.opts.MaxTaskDuration)
	s.metrics.SchedulerTimeouts.Inc()
	s.metrics.RunsTotal.WithLabelValues("timed_out").Inc()

	finished := now
	s.run.Status = entity.RunStatusTimedOut
	s.run.FinishedAt = &finished
	s.run.ErrorDetail = fmt.Sprintf("exceeded %s", s.opts.MaxTaskDuration)
	s.recordRun(s.runs.Update)

	s.lastOutcome = entity.RunStatusTimedOut
	s.lastFinished = now
	s.lastError = s.run.ErrorDetail
	s.endRun()
	s.state = StateRecovering
}

// endRun cancels the run context, closes shared resources and returns to Idle
// without waiting for the run goroutine. After a timeout the state reads
// Recovering until the next tick.
func (s *TaskScheduler) endRun() {
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.releaseResources()

	ctx, cancel := context.WithTimeout(context.Background(), bookkeepingTimeout)
	defer cancel()
	if err := s.lock.Release(ctx); err != nil {
		s.logger.Warn("Failed to release run lock", "error", err)
	}

	s.state = StateIdle
	s.startTime = time.Time{}
	s.runID = ""
	s.run = nil
	s.cancelRun = nil
	s.done = nil
}

func (s *TaskScheduler) releaseResources() {
	for _, resource := range s.resources {
		if err := resource.Close(); err != nil {
			s.logger.Warn("Failed to release resource", "resource", fmt.Sprintf("%T", resource), "error", err)
		}
	}
}

func (s *TaskScheduler) recordRun(write func(ctx context.Context, run *entity.CrawlRun) error) {
	ctx, cancel := context.WithTimeout(context.Background(), bookkeepingTimeout)
	defer cancel()
	if err := write(ctx, s.run); err != nil {
		s.logger.Warn("Failed to record crawl run", "runId", s.run.RunID, "error", err)
	}
}

// shutdown cancels any active run, waits briefly for it and releases resources
func (s *TaskScheduler) shutdown() {
	s.mu.Lock()
	done := s.done
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.mu.Unlock()

	if done != nil {
		select {
		case res := <-done:
			s.mu.Lock()
			s.finishRun(s.now(), res)
			s.mu.Unlock()
		case <-time.After(shutdownGrace):
			s.logger.Warn("Active run did not stop in time")
			s.mu.Lock()
			s.endRun()
			s.mu.Unlock()
		}
	} else {
		s.mu.Lock()
		s.releaseResources()
		s.state = StateIdle
		s.mu.Unlock()
	}

	s.logger.Info("Task scheduler stopped")
}

func windowKey(t time.Time) string {
	return t.Format(entity.SearchDateLayout)
}

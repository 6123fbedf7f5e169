// Package scheduler runs the in-process job table that drives the publish
// cycle, news ingestion, and news analysis on their configured cadences.
// Grounded in the other_examples scheduler.go pattern (wall-clock aligned
// loops, one goroutine per job, panic containment via recoverAndLog),
// generalized to an arbitrary HH:MM tweet schedule plus fixed-interval jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/messaging"
	"github.com/btcbuzzbot/bot/internal/infrastructure/statuslog"
)

const (
	tweetJobPrefix          = "scheduled_tweet_"
	fetchJobID              = "news_fetch"
	analyzeJobID            = "news_analyze"
	jobLockTTL              = 2 * time.Minute
	shutdownGrace           = 30 * time.Second
	rescheduleCheckInterval = 30 * time.Second
)

// PublishFunc runs one publish cycle for the given "HH:MM" time label.
type PublishFunc func(ctx context.Context, scheduledTimeLabel string) error

// CycleFunc runs one fetch or analyze cycle.
type CycleFunc func(ctx context.Context) error

// Config wires a Scheduler to the components it drives.
type Config struct {
	Store                  repositories.Store
	StatusLogger           *statuslog.Logger
	JobLock                messaging.JobLock
	Logger                 *slog.Logger
	Publish                PublishFunc
	FetchNews              CycleFunc
	AnalyzeNews            CycleFunc
	DefaultSchedule        string
	FetchIntervalMinutes   int
	AnalyzeIntervalMinutes int
}

// job is one entry in the scheduler's job table.
type job struct {
	id      string
	cancel  context.CancelFunc
	running atomic.Bool
}

// Scheduler is an in-process cron-style job runner, UTC wall-clock aligned,
// with a per-job max_instances=1 guarantee and an optional Redis-backed
// cross-replica lock.
type Scheduler struct {
	store       repositories.Store
	statusLog   *statuslog.Logger
	jobLock     messaging.JobLock
	logger      *slog.Logger
	publish     PublishFunc
	fetchNews   CycleFunc
	analyzeNews CycleFunc

	defaultSchedule string
	fetchInterval   time.Duration
	analyzeInterval time.Duration

	mu       sync.Mutex
	jobs     map[string]*job
	wg       sync.WaitGroup
	rootCtx  context.Context
	rootStop context.CancelFunc
}

// New constructs a Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaultSchedule := cfg.DefaultSchedule
	if defaultSchedule == "" {
		defaultSchedule = entities.DefaultSchedule
	}
	fetchMinutes := cfg.FetchIntervalMinutes
	if fetchMinutes <= 0 {
		fetchMinutes = 720
	}
	analyzeMinutes := cfg.AnalyzeIntervalMinutes
	if analyzeMinutes <= 0 {
		analyzeMinutes = 30
	}

	return &Scheduler{
		store:           cfg.Store,
		statusLog:       cfg.StatusLogger,
		jobLock:         cfg.JobLock,
		logger:          logger.With(slog.String("component", "scheduler")),
		publish:         cfg.Publish,
		fetchNews:       cfg.FetchNews,
		analyzeNews:     cfg.AnalyzeNews,
		defaultSchedule: defaultSchedule,
		fetchInterval:   time.Duration(fetchMinutes) * time.Minute,
		analyzeInterval: time.Duration(analyzeMinutes) * time.Minute,
		jobs:            make(map[string]*job),
	}
}

// Start reads the schedule from Store (falling back to the configured
// default), installs tweet jobs plus the fixed-interval fetch/analyze jobs,
// and logs the first "Running" status.
func (s *Scheduler) Start(ctx context.Context) error {
	s.rootCtx, s.rootStop = context.WithCancel(ctx)

	schedule, err := s.store.GetScheduleConfig(s.rootCtx)
	if err != nil || strings.TrimSpace(schedule) == "" {
		schedule = s.defaultSchedule
	}
	times := entities.ParseSchedule(schedule)
	if len(times) == 0 {
		times = entities.ParseSchedule(s.defaultSchedule)
	}

	s.installTweetJobs(times)
	s.installIntervalJob(fetchJobID, s.fetchInterval, s.fetchNews)
	s.installIntervalJob(analyzeJobID, s.analyzeInterval, s.analyzeNews)
	s.wg.Add(1)
	go s.rescheduleWatcher(schedule)

	next := nextFiring(times)
	msg := fmt.Sprintf("scheduler started with %d tweet job(s)", len(times))
	if s.statusLog != nil {
		s.statusLog.Running(s.rootCtx, msg, next)
	}
	s.logger.Info(msg, slog.Any("next_run", next))
	return nil
}

// Stop cancels every job, waits up to a bounded deadline for in-flight runs
// to finish, and records a "Stopped" status.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.rootStop == nil {
		return
	}
	s.rootStop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("scheduler shutdown grace period elapsed with jobs still running")
	}

	if s.statusLog != nil {
		s.statusLog.Stopped(ctx, "scheduler stopped")
	}
}

// Reschedule removes every tweet job and re-adds the job set for newSchedule.
// Interval jobs are untouched.
func (s *Scheduler) Reschedule(newSchedule string) {
	times := entities.ParseSchedule(newSchedule)

	s.mu.Lock()
	for id, j := range s.jobs {
		if strings.HasPrefix(id, tweetJobPrefix) {
			j.cancel()
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	s.installTweetJobs(times)

	next := nextFiring(times)
	s.logger.Info("schedule updated", slog.Any("times", times), slog.Any("next_run", next))
	if s.statusLog != nil {
		s.statusLog.Running(s.rootCtx, fmt.Sprintf("rescheduled to %d tweet job(s)", len(times)), next)
	}
}

// rescheduleWatcher periodically checks SchedulerConfig for a change the
// admin surface made directly in Store, as a fallback to an explicit
// Reschedule call.
func (s *Scheduler) rescheduleWatcher(lastKnown string) {
	defer s.wg.Done()
	defer s.recoverAndLog("rescheduleWatcher")

	ticker := time.NewTicker(rescheduleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.rootCtx.Done():
			return
		case <-ticker.C:
			current, err := s.store.GetScheduleConfig(s.rootCtx)
			if err != nil || current == "" || current == lastKnown {
				continue
			}
			lastKnown = current
			s.Reschedule(current)
		}
	}
}

func (s *Scheduler) installTweetJobs(times []string) {
	for _, label := range times {
		id := tweetJobPrefix + strings.ReplaceAll(label, ":", "")
		s.addJob(id, func(ctx context.Context, j *job) {
			s.runTweetJobLoop(ctx, j, label)
		})
	}
}

func (s *Scheduler) installIntervalJob(id string, interval time.Duration, fn CycleFunc) {
	if fn == nil {
		return
	}
	s.addJob(id, func(ctx context.Context, j *job) {
		s.runIntervalJobLoop(ctx, j, id, interval, fn)
	})
}

func (s *Scheduler) addJob(id string, loop func(ctx context.Context, j *job)) {
	jobCtx, cancel := context.WithCancel(s.rootCtx)
	j := &job{id: id, cancel: cancel}

	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		loop(jobCtx, j)
	}()
}

// runTweetJobLoop sleeps until the next occurrence of "HH:MM" UTC, fires the
// publish callback with the max_instances=1 guard, then repeats.
func (s *Scheduler) runTweetJobLoop(ctx context.Context, j *job, label string) {
	defer s.recoverAndLog(j.id)

	for {
		wait := durationUntilNext(label, time.Now().UTC())
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		s.runGuarded(ctx, j, func(runCtx context.Context) error {
			return s.publish(runCtx, label)
		})
	}
}

// runIntervalJobLoop fires fn every interval, aligned to the interval
// boundary rather than to wall-clock drift from the goroutine's start time.
func (s *Scheduler) runIntervalJobLoop(ctx context.Context, j *job, id string, interval time.Duration, fn CycleFunc) {
	defer s.recoverAndLog(id)

	first := time.Until(time.Now().UTC().Truncate(interval).Add(interval))
	select {
	case <-ctx.Done():
		return
	case <-time.After(first):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.runGuarded(ctx, j, fn)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runGuarded(ctx, j, fn)
		}
	}
}

// runGuarded enforces max_instances=1: in-process via the job's atomic
// "running" flag, and cluster-wide via the optional JobLock.
func (s *Scheduler) runGuarded(ctx context.Context, j *job, fn func(ctx context.Context) error) {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipped run: previous instance still executing", slog.String("job", j.id))
		return
	}
	defer j.running.Store(false)

	if s.jobLock != nil {
		acquired, release, err := s.jobLock.TryAcquire(ctx, j.id, jobLockTTL)
		if err != nil {
			s.logger.Warn("job lock acquisition failed, running locally only", slog.String("job", j.id), slog.String("error", err.Error()))
		} else if !acquired {
			s.logger.Warn("skipped run: another replica holds the job lock", slog.String("job", j.id))
			return
		} else {
			defer release(context.WithoutCancel(ctx))
		}
	}

	if err := fn(ctx); err != nil {
		s.logger.Error("job run failed", slog.String("job", j.id), slog.String("error", err.Error()))
		if s.statusLog != nil {
			s.statusLog.Error(ctx, fmt.Sprintf("job %s failed: %v", j.id, err))
		}
	}
}

func (s *Scheduler) recoverAndLog(jobID string) {
	if r := recover(); r != nil {
		s.logger.Error("panic recovered in scheduler job", slog.String("job", jobID), slog.Any("panic", r))
	}
}

// durationUntilNext returns how long to wait until the next UTC wall-clock
// occurrence of "HH:MM", today if it hasn't passed yet, else tomorrow.
func durationUntilNext(label string, now time.Time) time.Duration {
	hour, minute, ok := parseHHMM(label)
	if !ok {
		return 24 * time.Hour
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func parseHHMM(label string) (hour, minute int, ok bool) {
	parts := strings.Split(label, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// nextFiring returns the nearest upcoming UTC instant among the given "HH:MM"
// labels, or nil if the list is empty.
func nextFiring(times []string) *time.Time {
	if len(times) == 0 {
		return nil
	}
	now := time.Now().UTC()
	var soonest time.Time
	for _, label := range times {
		wait := durationUntilNext(label, now)
		candidate := now.Add(wait)
		if soonest.IsZero() || candidate.Before(soonest) {
			soonest = candidate
		}
	}
	return &soonest
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ErrLocked is returned when another process holds the scheduler lock
var ErrLocked = errors.New("another ingestion run holds the lock")

// Job is a scheduled pipeline run
type Job struct {
	Name    string
	Cron    string
	Stages  []string
	Session int
	Options ImportOptions
}

// Runner runs a list of stages for a session
type Runner interface {
	Run(ctx context.Context, sessionNumber int, kinds []model.StageKind, opts ImportOptions) ([]*model.RunStats, error)
}

// Scheduler runs configured jobs on cron schedules. A file lock keeps two
// processes from ingesting at the same time; a job still running when its
// next tick fires is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	lock     *flock.Flock
	lockPath string
	logger   logrus.FieldLogger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   []Job
}

// NewScheduler validates the jobs and registers them. The location
// controls how cron expressions are read.
func NewScheduler(runner Runner, jobs []Job, lockPath string, loc *time.Location, logger logrus.FieldLogger) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, &ConfigurationError{Msg: "no scheduled jobs configured"}
	}
	if loc == nil {
		loc = time.UTC
	}
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "althingi.lock")
	}

	printf := cron.PrintfLogger(logger)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(printf), cron.SkipIfStillRunning(printf)),
		),
		runner:   runner,
		lock:     flock.New(lockPath),
		lockPath: lockPath,
		logger:   logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if job.Name == "" {
			return nil, &ConfigurationError{Msg: "scheduled job without a name"}
		}
		if seen[job.Name] {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("duplicate scheduled job %q", job.Name)}
		}
		seen[job.Name] = true

		if _, err := ParseStages(job.Stages); err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("job %q", job.Name), Err: err}
		}
		job := job
		if _, err := s.cron.AddFunc(job.Cron, func() { s.runScheduled(job) }); err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("job %q: invalid cron expression %q", job.Name, job.Cron), Err: err}
		}
		s.jobs = append(s.jobs, job)
	}

	return s, nil
}

// Jobs returns the registered jobs
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.logger.WithFields(logrus.Fields{"job": job.Name, "cron": job.Cron, "stages": job.Stages}).Info("Scheduled job")
	}
	s.cron.Start()
	s.logger.WithField("lock", s.lockPath).Info("Scheduler started")
}

// Stop cancels running jobs and waits for them to return or for ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runScheduled(job Job) {
	log := s.logger.WithField("job", job.Name)
	if _, err := s.RunJob(s.ctx, job); err != nil {
		if errors.Is(err, ErrLocked) {
			log.Warn("Skipping run: lock held by another process")
			return
		}
		log.WithError(err).Error("Scheduled run failed")
	}
}

// RunJob runs one job immediately while holding the process lock
func (s *Scheduler) RunJob(ctx context.Context, job Job) ([]*model.RunStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.WithError(err).Warn("Failed to release lock")
		}
	}()

	kinds, err := ParseStages(job.Stages)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"job": job.Name, "session": job.Session})
	log.Info("Job started")
	start := time.Now()
	results, err := s.runner.Run(ctx, job.Session, kinds, job.Options)
	log.WithField("duration", time.Since(start).Round(time.Millisecond).String()).Info("Job finished")
	return results, err
}

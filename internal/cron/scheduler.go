package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SchedulerService is the service name the shared Scheduler is registered
// under. Modules add their jobs to it during Provision.
const SchedulerService = "cron.scheduler"

var tracer = otel.Tracer("github.com/flemzord/warden/internal/cron")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule checks a 5-field cron expression.
func ParseSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("cron: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates schedules in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// Scheduler manages periodic job execution using cron expressions.
// Each job is protected by a per-job mutex to prevent parallel execution
// of the same job (uses TryLock, atomic, no race).
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	jobs     []Job
	names    map[string]struct{}
	locks    map[string]*sync.Mutex
	logger   *slog.Logger
	location *time.Location
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		names:    make(map[string]struct{}),
		locks:    make(map[string]*sync.Mutex),
		logger:   logger,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.names[name] = struct{}{}
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start initializes the cron scheduler and begins executing registered jobs.
// Returns an error if any job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(parser), cron.WithLocation(s.location))

	for _, job := range s.jobs {
		lock := s.locks[job.Name()]
		if _, err := s.cron.AddFunc(job.Schedule(), func() { s.run(ctx, job, lock) }); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs), "location", s.location.String())
	return nil
}

// RunNow executes the named job immediately, outside its schedule. It
// reports false when the job is unknown or already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	s.mu.Lock()
	var job Job
	for _, j := range s.jobs {
		if j.Name() == name {
			job = j
			break
		}
	}
	lock := s.locks[name]
	s.mu.Unlock()
	if job == nil {
		return false
	}
	return s.run(ctx, job, lock)
}

// run executes one tick of job unless the previous tick is still running.
func (s *Scheduler) run(ctx context.Context, job Job, lock *sync.Mutex) bool {
	// TryLock is atomic: no race between check and acquire.
	if !lock.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", job.Name())
		return false
	}
	defer lock.Unlock()

	ctx, span := tracer.Start(ctx, "cron.run", trace.WithAttributes(attribute.String("job", job.Name())))
	defer span.End()

	s.logger.Debug("cron: job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
	} else {
		s.logger.Debug("cron: job completed", "job", job.Name())
	}
	return true
}

// Stop gracefully shuts down the scheduler, waiting for in-flight jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return nil
	}

	// Wait for running jobs to complete.
	select {
	case <-c.Stop().Done():
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for running jobs: %w", ctx.Err())
	}
}

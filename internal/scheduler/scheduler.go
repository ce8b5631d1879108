package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/logging"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule is a parsed six-field cron expression bound to a timezone.
type Schedule struct {
	spec     string
	schedule cron.Schedule
	location *time.Location
}

// ParseSchedule parses spec (with seconds) in loc.
func ParseSchedule(spec string, loc *time.Location) (*Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{spec: spec, schedule: s, location: loc}, nil
}

func (s *Schedule) Spec() string { return s.spec }

// Next returns the first activation strictly after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Job is a unit of scheduled work.
type Job func(ctx context.Context)

// Scheduler runs jobs on cron schedules. A job that is still running when
// its next activation comes is skipped, and a panicking job is recovered.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a scheduler in loc. timeout bounds each job run; zero means no bound.
func New(loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := logging.CronLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			// Recover must sit inside the skip guard so a panic still frees the next run.
			cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("scheduler"),
		timeout: timeout,
	}
}

// Add registers job under name on schedule.
func (s *Scheduler) Add(name string, schedule *Schedule, job Job) error {
	_, err := s.cron.AddFunc(schedule.Spec(), func() {
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		start := time.Now()
		s.logger.Info("job started", zap.String("job", name))
		job(ctx)
		s.logger.Info("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	s.logger.Info("job scheduled", zap.String("job", name), zap.String("cron", schedule.Spec()))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops new activations, cancels running jobs' context and waits for
// them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

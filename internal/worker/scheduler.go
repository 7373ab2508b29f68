package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is one periodic task of the worker process.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs Jobs with gocron. Every job runs once right after Start,
// which doubles as the startup catch-up, and never overlaps with itself.
type Scheduler struct {
	sched gocron.Scheduler
	ctx   context.Context
}

// NewScheduler registers jobs. ctx is passed to every run; cancelling it
// makes running jobs return early, Shutdown stops scheduling new ones.
func NewScheduler(ctx context.Context, jobs ...Job) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, ctx: ctx}

	for _, j := range jobs {
		if j.Interval <= 0 {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("job %s: interval must be positive", j.Name)
		}
		_, err := sched.NewJob(
			gocron.DurationJob(j.Interval),
			gocron.NewTask(s.runner(j)),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule job %s: %w", j.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) runner(j Job) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := j.Run(s.ctx); err != nil {
			slog.ErrorContext(s.ctx, "Scheduled job failed", "job", j.Name, "error", err)
			return
		}
		slog.DebugContext(s.ctx, "Scheduled job finished", "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown waits for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

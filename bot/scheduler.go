package bot

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one recurring bot task. Errors are logged, never fatal: a
// failed cycle must not stop the next one.
type Job interface {
	Run() error
	Name() string
}

// Scheduler drives the bot's periodic jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job on a cron schedule, e.g. "@every 60s" or
// "0 0 * * * *".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	return job.Run()
}

type jobFunc struct {
	name string
	fn   func() error
}

func (j jobFunc) Run() error { return j.fn() }

func (j jobFunc) Name() string { return j.name }

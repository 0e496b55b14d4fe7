/*
Package schedule fires period-boundary work for the integrating layer.

PURPOSE:
  The ledger engine never reads the clock: every operation takes a (month,
  year) supplied by the caller. Something still has to notice that a new
  month has started and invoke materialization/rollover for each venture.
  This package is that something - a thin cron wrapper that derives the
  current period from wall-clock time and hands it to a callback, keeping
  the clock dependency outside the core.

DESIGN:
  - robfig/cron drives the firing ("@monthly" by default)
  - the callback receives a context and the period the job fired in
  - jobs are the integrating layer's code; the scheduler never decides
    business actions (locking a month stays a deliberate admin call)

USAGE:
  s := schedule.New(logger)
  s.OnNewPeriod("@monthly", func(ctx context.Context, p chit.Period) {
      for _, id := range ventures {
          engine.EnsureSummary(ctx, id, p)
      }
  })
  s.Start()
  defer s.Stop()

SEE ALSO:
  - chit/engine.go: the operations a period job typically invokes
*/
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/chit-ledger/chit"
)

// PeriodJob is invoked with the period the schedule fired in.
type PeriodJob func(ctx context.Context, period chit.Period)

// Scheduler runs period jobs on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger

	// Now is the clock used to derive the fired period. Overridable in
	// tests; defaults to time.Now.
	Now func() time.Time
}

// New creates a stopped scheduler. A nil logger disables logging.
func New(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Scheduler{
		cron: cron.New(),
		log:  log,
		Now:  time.Now,
	}
}

// OnNewPeriod registers a job against a cron spec ("@monthly" fires at
// midnight on the first of each month). May be called multiple times.
func (s *Scheduler) OnNewPeriod(spec string, job PeriodJob) error {
	_, err := s.cron.AddFunc(spec, func() {
		period := chit.PeriodOf(s.Now())
		s.log.WithFields(logrus.Fields{
			"period": period.String(),
			"spec":   spec,
		}).Info("period job fired")
		job(context.Background(), period)
	})
	return err
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("period scheduler started")
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("period scheduler stopped")
}

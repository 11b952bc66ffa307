// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/center"
	"github.com/trezcool/darasa/core/fee"
)

const JobGenerateFees = "generate_fees"

type (
	CenterLister interface {
		List(ctx context.Context, activeOnly bool) ([]center.Center, error)
	}

	FeeGenerator interface {
		GenerateMonthly(ctx context.Context, centerID, period string) (fee.GenerateReport, error)
	}

	// JobRecorder counts job runs and their outcome.
	JobRecorder interface {
		JobRun(job string, err error)
		FeesGenerated(n int)
	}
)

type Scheduler struct {
	cron    *cron.Cron
	centers CenterLister
	fees    FeeGenerator
	metrics JobRecorder
	logger  core.Logger
	timeout time.Duration
	now     func() time.Time // mockable
}

// New schedules the monthly fee generation following conf.Scheduler.FeeGenerationSpec (UTC).
func New(
	conf *core.Config,
	centers CenterLister,
	fees FeeGenerator,
	metrics JobRecorder,
	logger core.Logger,
) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		centers: centers,
		fees:    fees,
		metrics: metrics,
		logger:  logger,
		timeout: time.Hour,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(conf.Scheduler.FeeGenerationSpec, s.runGenerateFees); err != nil {
		return nil, errors.Wrapf(err, "scheduling %s with %q", JobGenerateFees, conf.Scheduler.FeeGenerationSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runGenerateFees() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.GenerateFees(ctx, core.CurrentPeriod(s.now()))
}

// GenerateFees generates the monthly fees of every active center for the period.
// A failing center does not stop the others; the first error is returned.
func (s *Scheduler) GenerateFees(ctx context.Context, period string) ([]fee.GenerateReport, error) {
	centers, err := s.centers.List(ctx, true /* activeOnly */)
	if err != nil {
		err = errors.Wrap(err, "listing centers")
		s.logger.Error(err.Error(), err)
		s.metrics.JobRun(JobGenerateFees, err)
		return nil, err
	}

	var firstErr error
	reports := make([]fee.GenerateReport, 0, len(centers))
	for _, c := range centers {
		report, err := s.fees.GenerateMonthly(ctx, c.ID, period)
		if err != nil {
			err = errors.Wrapf(err, "generating %s fees of center %s", period, c.Code)
			s.logger.Error(err.Error(), err, map[string]interface{}{"center_id": c.ID})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.metrics.FeesGenerated(report.Created)
		s.logger.Info(fmt.Sprintf("generated %s fees of center %s", period, c.Code), map[string]interface{}{
			"created":   report.Created,
			"skipped":   report.Skipped,
			"unmatched": report.Unmatched,
		})
		reports = append(reports, report)
	}
	s.metrics.JobRun(JobGenerateFees, firstErr)
	return reports, firstErr
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// cronLogger adapts a logrus logger to cron.Logger
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) fields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(l.fields(keysAndValues)).WithError(err).Error(msg)
}

// Schedule runs a load on every tick of the configured cron expression
// until ctx is canceled. A tick that fires while the previous run is still
// in progress is skipped.
func (s *Service) Schedule(ctx context.Context) error {
	log := s.log.WithField("component", "schedule")
	logger := cronLogger{log: log}

	c := cron.New(cron.WithLogger(logger))

	job := cron.NewChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	).Then(cron.FuncJob(func() {
		s.runScheduled(ctx, log)
	}))

	id, err := c.AddJob(s.config.Schedule.Cron, job)
	if err != nil {
		return fmt.Errorf("failed to schedule %q: %w", s.config.Schedule.Cron, err)
	}

	observability.StartMetricsServer(log, s.config.MetricsAddr)
	s.StartHealthCheck()

	c.Start()

	log.WithFields(logrus.Fields{
		"cron":     s.config.Schedule.Cron,
		"next_run": c.Entry(id).Next,
	}).Info("Scheduler started")

	if s.config.Schedule.RunOnStart {
		go job.Run()
	}

	<-ctx.Done()

	log.Info("Stopping scheduler")

	// Wait for an in-flight run to observe the cancellation
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.stopService(log, "health check server", func() error { return s.StopHealthCheck(shutdownCtx) })
	s.stopService(log, "metrics server", func() error { return observability.StopMetricsServer(shutdownCtx) })

	return nil
}

func (s *Service) runScheduled(ctx context.Context, log logrus.FieldLogger) {
	if ctx.Err() != nil {
		return
	}

	summary, err := s.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled load failed")

		return
	}

	log.WithField("run_id", summary.RunID).Info("Scheduled load finished")
}

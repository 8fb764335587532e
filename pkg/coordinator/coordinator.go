// Package coordinator runs a warehouse load as a graph of stages: cleaning,
// dimension population, the dimension commit, one stage per fact table and
// the run ledger.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/aggregation"
	"github.com/ethpandaops/fleetdw/pkg/cleaning"
	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/records"
	"github.com/ethpandaops/fleetdw/pkg/warehouse"
	"github.com/sirupsen/logrus"
)

// Stage names
const (
	StageClean                  = "clean"
	StageAircraft               = "dimension.aircraft"
	StageDate                   = "dimension.date"
	StageMonth                  = "dimension.month"
	StageReporter               = "dimension.reporter"
	StageCommitDimensions       = "commit.dimensions"
	StageFlightOperationsDaily  = "fact." + aggregation.FactFlightOperationsDaily
	StageAircraftMonthlySummary = "fact." + aggregation.FactAircraftMonthlySummary
	StageLogbooks               = "fact." + aggregation.FactLogbooks
	StageLedger                 = "ledger.record"
)

var (
	// ErrStageAlreadyRun is returned when a stage is started a second time in a run
	ErrStageAlreadyRun = errors.New("stage already run")
	// ErrNoBatch is returned when a load is started without records
	ErrNoBatch = errors.New("no batch to load")
)

// Options configures a coordinator
type Options struct {
	Hierarchy dimension.Hierarchy
	// Clean enables the business rules; when false the clean stage passes records through
	Clean bool
	// Mirror optionally publishes surrogate keys outside the warehouse
	Mirror dimension.Mirror
}

// RunInfo identifies a load
type RunInfo struct {
	ID        string
	StartedAt time.Time
}

// Coordinator loads batches into a warehouse
type Coordinator struct {
	log     logrus.FieldLogger
	sink    warehouse.Warehouse
	cleaner *cleaning.Cleaner
	opts    Options
}

// New creates a coordinator writing into sink
func New(log logrus.FieldLogger, sink warehouse.Warehouse, opts Options) *Coordinator {
	return &Coordinator{
		log:     log.WithField("component", "coordinator"),
		sink:    sink,
		cleaner: cleaning.NewCleaner(log),
		opts:    opts,
	}
}

// Plan returns the stage graph of a load without running it
func (c *Coordinator) Plan() (*Graph, error) {
	l := c.newLoad(RunInfo{}, &records.Batch{})

	return l.graph()
}

// Load runs every stage over batch in dependency order. The first failing
// stage aborts the load.
func (c *Coordinator) Load(ctx context.Context, info RunInfo, batch *records.Batch) (*Summary, error) {
	if batch == nil {
		return nil, ErrNoBatch
	}

	l := c.newLoad(info, batch)

	set, err := dimension.NewSet(c.log, c.opts.Hierarchy, c.sink, c.opts.Mirror)
	if err != nil {
		return l.summary, err
	}

	l.set = set
	l.aggregator = aggregation.NewAggregator(c.log, set)

	g, err := l.graph()
	if err != nil {
		return l.summary, fmt.Errorf("invalid stage graph: %w", err)
	}

	for _, name := range g.Order() {
		stage, _ := g.Stage(name)
		if err := l.runStage(ctx, stage); err != nil {
			return l.summary, err
		}
	}

	return l.summary, nil
}

// load holds the state of a single run
type load struct {
	c          *Coordinator
	log        logrus.FieldLogger
	info       RunInfo
	batch      *records.Batch
	set        *dimension.Set
	aggregator *aggregation.Aggregator
	summary    *Summary
	executed   map[string]bool
}

func (c *Coordinator) newLoad(info RunInfo, batch *records.Batch) *load {
	return &load{
		c:     c,
		log:   c.log.WithField("run_id", info.ID),
		info:  info,
		batch: batch,
		summary: &Summary{
			RunID:      info.ID,
			Extracted:  batch.Counts(),
			Cleaned:    c.opts.Clean,
			Cleaning:   &cleaning.Report{Violations: map[cleaning.Rule]int{}},
			Dimensions: map[string]int{},
			FactRows:   map[string]int{},
			Skipped:    map[string]int{},
		},
		executed: make(map[string]bool),
	}
}

func (l *load) graph() (*Graph, error) {
	dimensions := []string{StageAircraft, StageDate, StageMonth, StageReporter}
	facts := []string{StageFlightOperationsDaily, StageAircraftMonthlySummary, StageLogbooks}

	g := NewGraph()
	err := g.Build([]Stage{
		{Name: StageClean, Run: l.clean},
		{Name: StageAircraft, DependsOn: []string{StageClean}, Run: l.ensureAircraft},
		{Name: StageDate, DependsOn: []string{StageClean}, Run: l.ensureDates},
		{Name: StageMonth, DependsOn: []string{StageClean}, Run: l.ensureMonths},
		{Name: StageReporter, DependsOn: []string{StageClean}, Run: l.ensureReporters},
		{Name: StageCommitDimensions, DependsOn: dimensions, Run: l.commitDimensions},
		{Name: StageFlightOperationsDaily, DependsOn: []string{StageCommitDimensions}, Run: l.loadFlightOperationsDaily},
		{Name: StageAircraftMonthlySummary, DependsOn: []string{StageCommitDimensions}, Run: l.loadAircraftMonthlySummary},
		{Name: StageLogbooks, DependsOn: []string{StageCommitDimensions}, Run: l.loadLogbooks},
		{Name: StageLedger, DependsOn: facts, Run: l.recordRun},
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// runStage runs a stage at most once per load, even when it fails.
func (l *load) runStage(ctx context.Context, stage *Stage) error {
	if l.executed[stage.Name] {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRun, stage.Name)
	}

	l.executed[stage.Name] = true

	start := time.Now()
	err := stage.Run(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}

	observability.RecordStage(stage.Name, status, duration.Seconds())

	log := l.log.WithFields(logrus.Fields{
		"stage":    stage.Name,
		"duration": duration,
	})

	if err != nil {
		log.WithError(err).Error("Stage failed")

		return fmt.Errorf("stage %s failed: %w", stage.Name, err)
	}

	l.summary.Stages = append(l.summary.Stages, stage.Name)
	log.Debug("Stage completed")

	return nil
}

func (l *load) clean(_ context.Context) error {
	if !l.c.opts.Clean {
		l.log.Info("Business rule cleaning disabled")

		return nil
	}

	cleaned, report := l.c.cleaner.Clean(l.batch)
	l.batch = cleaned
	l.summary.Cleaning = report

	return nil
}

func (l *load) ensureAircraft(ctx context.Context) error {
	return l.set.EnsureAircraft(ctx, l.batch.Fleet)
}

func (l *load) ensureDates(ctx context.Context) error {
	return l.set.EnsureDates(ctx, l.batch.Flights)
}

func (l *load) ensureMonths(ctx context.Context) error {
	return l.set.EnsureMonths(ctx, l.batch)
}

func (l *load) ensureReporters(ctx context.Context) error {
	return l.set.EnsureReporters(ctx, l.batch)
}

func (l *load) commitDimensions(ctx context.Context) error {
	if err := l.c.sink.CommitDimensions(ctx); err != nil {
		return err
	}

	l.summary.Dimensions = l.set.Sizes()
	l.set.RecordMetrics()

	l.log.WithFields(toFields(l.summary.Dimensions)).Info("Dimensions committed")

	return nil
}

// sinkFact hands the rows of one fact table to the warehouse as a single batch.
func sinkFact[T any](ctx context.Context, l *load, fact string, rows []T, skips []aggregation.Skip, sink func(context.Context, []T) error) error {
	l.summary.Skipped[fact] = len(skips)

	if err := sink(ctx, rows); err != nil {
		return err
	}

	l.summary.FactRows[fact] = len(rows)
	observability.RecordFactRows(fact, len(rows))

	l.log.WithFields(logrus.Fields{
		"fact":    fact,
		"rows":    len(rows),
		"skipped": len(skips),
	}).Info("Fact table loaded")

	return nil
}

func (l *load) loadFlightOperationsDaily(ctx context.Context) error {
	rows, skips := l.aggregator.FlightOperationsDaily(l.batch.Flights)

	return sinkFact(ctx, l, aggregation.FactFlightOperationsDaily, rows, skips, l.c.sink.LoadFlightOperationsDaily)
}

func (l *load) loadAircraftMonthlySummary(ctx context.Context) error {
	rows, skips := l.aggregator.AircraftMonthlySummary(l.batch.Maintenance)

	return sinkFact(ctx, l, aggregation.FactAircraftMonthlySummary, rows, skips, l.c.sink.LoadAircraftMonthlySummary)
}

func (l *load) loadLogbooks(ctx context.Context) error {
	rows, skips := l.aggregator.Logbooks(l.batch.Reports)

	return sinkFact(ctx, l, aggregation.FactLogbooks, rows, skips, l.c.sink.LoadLogbooks)
}

func (l *load) recordRun(ctx context.Context) error {
	return l.c.sink.RecordRun(ctx, l.summary.Run(l.info, time.Now(), nil))
}

func toFields(m map[string]int) logrus.Fields {
	fields := make(logrus.Fields, len(m))
	for k, v := range m {
		fields[k] = v
	}

	return fields
}

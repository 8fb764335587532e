package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RunsTotal tracks the total number of load runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_runs_total",
			Help: "Total number of warehouse load runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// RunDuration measures full run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetdw_run_duration_seconds",
			Help:    "Warehouse load run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
		[]string{"status"},
	)

	// StageDuration measures stage execution duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetdw_stage_duration_seconds",
			Help:    "Load stage execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"stage", "status"},
	)

	// RecordsExtracted counts records read per source stream
	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_records_extracted_total",
			Help: "Total number of records extracted from the sources",
		},
		[]string{"stream"},
	)

	// RuleViolations counts business rule violations
	RuleViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_rule_violations_total",
			Help: "Total number of business rule violations found while cleaning",
		},
		[]string{"rule"},
	)

	// RecordsSkipped counts records skipped during fact aggregation
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_records_skipped_total",
			Help: "Total number of records skipped during fact aggregation",
		},
		[]string{"fact", "reason"},
	)

	// DimensionSize tracks the number of entries per dimension
	DimensionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetdw_dimension_entries",
			Help: "Number of entries registered per dimension in the current run",
		},
		[]string{"dimension"},
	)

	// FactRowsLoaded counts fact rows handed to the warehouse
	FactRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_fact_rows_loaded_total",
			Help: "Total number of fact rows loaded into the warehouse",
		},
		[]string{"table"},
	)

	// WarehouseQueries counts warehouse statements executed
	WarehouseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_warehouse_queries_total",
			Help: "Total number of warehouse statements executed",
		},
		[]string{"driver", "query_type", "status"}, // query_type: ddl, insert, select; status: success, error
	)

	// WarehouseQueryDuration measures warehouse statement execution time
	WarehouseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetdw_warehouse_query_duration_seconds",
			Help:    "Warehouse statement execution time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"driver", "query_type"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetdw_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordRun records a finished run
func RecordRun(status string, duration float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues(status).Observe(duration)
}

// RecordStage records a finished stage
func RecordStage(stage, status string, duration float64) {
	StageDuration.WithLabelValues(stage, status).Observe(duration)
}

// RecordExtracted records the number of records read from a stream
func RecordExtracted(stream string, count int) {
	RecordsExtracted.WithLabelValues(stream).Add(float64(count))
}

// RecordViolations records rule violations
func RecordViolations(rule string, count int) {
	RuleViolations.WithLabelValues(rule).Add(float64(count))
}

// RecordSkipped records a skipped record
func RecordSkipped(fact, reason string) {
	RecordsSkipped.WithLabelValues(fact, reason).Inc()
}

// RecordDimensionSize records the current size of a dimension
func RecordDimensionSize(dimension string, size int) {
	DimensionSize.WithLabelValues(dimension).Set(float64(size))
}

// RecordFactRows records fact rows loaded
func RecordFactRows(table string, count int) {
	FactRowsLoaded.WithLabelValues(table).Add(float64(count))
}

// RecordWarehouseQuery records warehouse statement metrics
func RecordWarehouseQuery(driver, queryType, status string, duration float64) {
	WarehouseQueries.WithLabelValues(driver, queryType, status).Inc()
	WarehouseQueryDuration.WithLabelValues(driver, queryType).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

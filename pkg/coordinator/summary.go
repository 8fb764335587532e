package coordinator

import (
	"time"

	"github.com/ethpandaops/fleetdw/pkg/cleaning"
	"github.com/ethpandaops/fleetdw/pkg/warehouse"
)

// Summary reports what a load did
type Summary struct {
	RunID      string
	Extracted  map[string]int
	Cleaned    bool
	Cleaning   *cleaning.Report
	Dimensions map[string]int
	FactRows   map[string]int
	Skipped    map[string]int
	// Stages lists the stages that completed, in order
	Stages []string
}

// TotalFactRows returns the number of fact rows loaded
func (s *Summary) TotalFactRows() int {
	return sum(s.FactRows)
}

// TotalSkipped returns the number of records left out of fact tables
func (s *Summary) TotalSkipped() int {
	return sum(s.Skipped)
}

// Run converts the summary into a ledger entry. A non-nil err marks the run failed.
func (s *Summary) Run(info RunInfo, finishedAt time.Time, err error) warehouse.Run {
	run := warehouse.Run{
		RunID:      info.ID,
		StartedAt:  info.StartedAt,
		FinishedAt: finishedAt,
		Status:     warehouse.RunStatusSuccess,
		Cleaned:    s.Cleaned,
		FactRows:   int64(s.TotalFactRows()),
		Skipped:    int64(s.TotalSkipped()),
		Violations: int64(s.Cleaning.Total()),
	}

	if err != nil {
		run.Status = warehouse.RunStatusFailed
		run.Error = err.Error()
	}

	return run
}

func sum(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}

	return total
}

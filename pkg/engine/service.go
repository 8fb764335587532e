package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethpandaops/fleetdw/pkg/coordinator"
	"github.com/ethpandaops/fleetdw/pkg/dimension"
	"github.com/ethpandaops/fleetdw/pkg/keystore"
	"github.com/ethpandaops/fleetdw/pkg/observability"
	"github.com/ethpandaops/fleetdw/pkg/source"
	"github.com/ethpandaops/fleetdw/pkg/warehouse"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service runs loads
type Service struct {
	config *Config
	log    logrus.FieldLogger

	newExtractor func() (source.Extractor, error)
	newWarehouse func() (warehouse.Warehouse, error)
	newKeyStore  func() (*keystore.Store, error)

	healthServer *http.Server
}

// NewService creates a new engine service
func NewService(log logrus.FieldLogger, cfg *Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Service{
		config: cfg,
		log:    log.WithField("service", "engine"),
	}

	s.newExtractor = func() (source.Extractor, error) {
		return source.New(log, &cfg.Source)
	}
	s.newWarehouse = func() (warehouse.Warehouse, error) {
		return warehouse.New(log, &cfg.Warehouse)
	}

	if cfg.Redis.Enabled() {
		s.newKeyStore = func() (*keystore.Store, error) {
			return keystore.New(log, &cfg.Redis)
		}
	}

	return s, nil
}

// Plan returns the stage graph a run executes
func (s *Service) Plan() (*coordinator.Graph, error) {
	return coordinator.New(s.log, nil, s.options(nil)).Plan()
}

func (s *Service) options(mirror dimension.Mirror) coordinator.Options {
	return coordinator.Options{
		Hierarchy: s.config.Warehouse.Hierarchy(),
		Clean:     s.config.Cleaning.Enabled,
		Mirror:    mirror,
	}
}

// stopService stops a dependency, logging instead of returning failures
func (s *Service) stopService(log logrus.FieldLogger, name string, stopFunc func() error) {
	if err := stopFunc(); err != nil {
		log.WithError(err).Errorf("Failed to stop %s", name)
	}
}

// Run performs one complete load. Every dependency it opens is released
// before it returns, whatever the outcome.
func (s *Service) Run(ctx context.Context) (summary *coordinator.Summary, err error) {
	info := coordinator.RunInfo{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := s.log.WithField("run_id", info.ID)

	log.Info("Starting load")

	defer func() {
		status := warehouse.RunStatusSuccess
		if err != nil {
			status = warehouse.RunStatusFailed
			observability.RecordError("engine", "run")
		}

		observability.RecordRun(status, time.Since(info.StartedAt).Seconds())
	}()

	var mirror dimension.Mirror

	if s.newKeyStore != nil {
		store, storeErr := s.acquireKeyStore(ctx, log, info.ID)
		if storeErr != nil {
			return nil, storeErr
		}

		defer func() {
			// Release with a fresh context so a canceled run still frees the lock
			releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			s.stopService(log, "run lock", func() error { return store.ReleaseRunLock(releaseCtx, info.ID) })
			s.stopService(log, "key store", store.Stop)
		}()

		mirror = store
	}

	wh, err := s.newWarehouse()
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}

	if err := wh.Start(ctx); err != nil {
		s.stopService(log, "warehouse", wh.Stop)

		return nil, fmt.Errorf("failed to start warehouse: %w", err)
	}
	defer s.stopService(log, "warehouse", wh.Stop)

	summary, err = s.load(ctx, log, info, wh, mirror)
	if err != nil {
		s.recordFailure(log, wh, info, summary, err)

		return summary, err
	}

	s.logSummary(ctx, log, wh, summary)

	return summary, nil
}

func (s *Service) acquireKeyStore(ctx context.Context, log logrus.FieldLogger, runID string) (*keystore.Store, error) {
	store, err := s.newKeyStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create key store: %w", err)
	}

	if err := store.Start(ctx); err != nil {
		s.stopService(log, "key store", store.Stop)

		return nil, err
	}

	if err := store.AcquireRunLock(ctx, runID); err != nil {
		s.stopService(log, "key store", store.Stop)

		return nil, err
	}

	if err := store.Reset(ctx); err != nil {
		s.stopService(log, "run lock", func() error { return store.ReleaseRunLock(ctx, runID) })
		s.stopService(log, "key store", store.Stop)

		return nil, err
	}

	return store, nil
}

func (s *Service) load(
	ctx context.Context,
	log logrus.FieldLogger,
	info coordinator.RunInfo,
	wh warehouse.Warehouse,
	mirror dimension.Mirror,
) (*coordinator.Summary, error) {
	src, err := s.newExtractor()
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	if err := src.Start(ctx); err != nil {
		s.stopService(log, "source", src.Stop)

		return nil, fmt.Errorf("failed to start source: %w", err)
	}
	defer s.stopService(log, "source", src.Stop)

	batch, err := src.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract records: %w", err)
	}

	return coordinator.New(log, wh, s.options(mirror)).Load(ctx, info, batch)
}

// recordFailure appends a failed run to the ledger when the warehouse still accepts writes.
func (s *Service) recordFailure(log logrus.FieldLogger, wh warehouse.Warehouse, info coordinator.RunInfo, summary *coordinator.Summary, runErr error) {
	if summary == nil {
		summary = &coordinator.Summary{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wh.RecordRun(ctx, summary.Run(info, time.Now().UTC(), runErr)); err != nil {
		log.WithError(err).Warn("Failed to record failed run")
	}
}

func (s *Service) logSummary(ctx context.Context, log logrus.FieldLogger, wh warehouse.Warehouse, summary *coordinator.Summary) {
	fields := logrus.Fields{
		"fact_rows":  summary.TotalFactRows(),
		"skipped":    summary.TotalSkipped(),
		"violations": summary.Cleaning.Total(),
		"cleaned":    summary.Cleaned,
	}

	counts, err := wh.RowCounts(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to count warehouse rows")
	}

	for table, n := range counts {
		fields[table] = n
	}

	log.WithFields(fields).Info("Load completed")
}

// StartHealthCheck serves /health and /ready when an address is configured.
func (s *Service) StartHealthCheck() {
	if s.config.HealthCheckAddr == "" {
		return
	}

	s.log.WithField("addr", s.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.healthServer = &http.Server{
		Addr:              s.config.HealthCheckAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health check server failed")
		}
	}()
}

// StopHealthCheck shuts the health check server down
func (s *Service) StopHealthCheck(ctx context.Context) error {
	if s.healthServer == nil {
		return nil
	}

	return s.healthServer.Shutdown(ctx)
}

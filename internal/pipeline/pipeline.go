package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nikhaldi/mobility-growth/internal/domain"
	"github.com/nikhaldi/mobility-growth/internal/observability"
)

// Publisher delivers a recomputed snapshot to an external sink.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// datasets bundles the two source tables so they swap in atomically.
type datasets struct {
	cases    *domain.CaseTable
	mobility *domain.MobilityTable
}

// Service owns the loaded source tables and recomputes an aggregation
// snapshot per parameter change. Recomputation is synchronous
// request-response: no background work, no caching, every call produces a
// fresh snapshot from the immutable tables.
type Service struct {
	defaults  domain.Params
	publisher Publisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	data      atomic.Pointer[datasets]
}

// NewService creates a Service. Datasets are attached later via SetDatasets
// so the HTTP surface can come up while the startup fetch is in flight.
func NewService(defaults domain.Params, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		defaults:  defaults,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetDatasets installs the fetched source tables and marks the service ready.
func (s *Service) SetDatasets(cases *domain.CaseTable, mobility *domain.MobilityTable) {
	s.data.Store(&datasets{cases: cases, mobility: mobility})
	s.metrics.DatasetRows.WithLabelValues("cases").Set(float64(cases.Len()))
	s.metrics.DatasetRows.WithLabelValues("mobility").Set(float64(mobility.Len()))
	s.metrics.DatasetsLoaded.Set(1)
	s.logger.Info("datasets installed", "case_rows", cases.Len(), "mobility_rows", mobility.Len())
}

// CheckReadiness returns nil once both source datasets are loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.data.Load() == nil {
		return errors.New("source datasets not loaded yet")
	}
	return nil
}

// Defaults returns the configured default parameters.
func (s *Service) Defaults() domain.Params {
	return s.defaults
}

// States returns the sorted intersection of state names present in both
// datasets: the valid values for Params.State.
func (s *Service) States() ([]string, error) {
	d := s.data.Load()
	if d == nil {
		return nil, errors.New("source datasets not loaded yet")
	}
	return domain.CommonStates(d.cases, d.mobility), nil
}

// Recompute builds a fresh snapshot for the given parameters and, when a
// publisher is configured, pushes it to the sink. Publish failures are
// logged and counted but do not fail the recomputation.
func (s *Service) Recompute(ctx context.Context, p domain.Params) (domain.Snapshot, error) {
	d := s.data.Load()
	if d == nil {
		return domain.Snapshot{}, errors.New("source datasets not loaded yet")
	}

	start := time.Now()
	snap, err := domain.BuildSnapshot(d.cases, d.mobility, p)
	if err != nil {
		s.metrics.AggregationErrors.Inc()
		return domain.Snapshot{}, err
	}

	s.metrics.AggregationsTotal.Inc()
	s.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	s.metrics.AggregatedRegions.Observe(float64(len(snap.Rows)))
	if snap.Fit == nil {
		s.metrics.FitSkipped.Inc()
	}

	s.logger.Debug("snapshot recomputed",
		"state", p.State,
		"min_cases", p.MinCases,
		"regions", len(snap.Rows),
		"fit", snap.Fit != nil,
		"duration", time.Since(start),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Error("snapshot publish failed", "error", err, "state", p.State)
		} else {
			s.metrics.SnapshotsPublished.Inc()
		}
	}

	return snap, nil
}

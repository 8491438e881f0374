package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"analogfinder/internal/metrics"
	"analogfinder/internal/modules/climate/analog"
	"analogfinder/internal/modules/climate/repository"
	"analogfinder/internal/modules/climate/sources"
	"analogfinder/internal/modules/climate/types"
)

// ErrInvalidCriteria wraps every validation failure returned by Search.
var ErrInvalidCriteria = errors.New("invalid search criteria")

// DatasetLoader produces a merged dataset; *sources.Loader implements it.
type DatasetLoader interface {
	Load(ctx context.Context) (sources.Dataset, error)
}

type Service struct {
	repository repository.ClimateRepository
	publisher  SummaryPublisher
	metrics    *metrics.Metrics
	clock      clockwork.Clock
	logger     *slog.Logger
}

type Option func(*Service)

func WithPublisher(p SummaryPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repository repository.ClimateRepository, opts ...Option) *Service {
	s := &Service{
		repository: repository,
		metrics:    metrics.NewMetricsForTesting(),
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load runs loader, replaces the stored dataset and publishes its summary.
// A failed publish is logged and does not fail the load.
func (s *Service) Load(ctx context.Context, loader DatasetLoader) (types.DatasetSummary, error) {
	start := s.clock.Now()

	ds, err := loader.Load(ctx)
	if err != nil {
		s.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return types.DatasetSummary{}, fmt.Errorf("load dataset: %w", err)
	}
	if err := s.repository.ReplaceAll(ctx, ds.Records, ds.Reports, ds.LoadedAt); err != nil {
		s.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return types.DatasetSummary{}, fmt.Errorf("store dataset: %w", err)
	}

	summary, err := s.repository.GetSummary(ctx)
	if err != nil {
		s.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return types.DatasetSummary{}, fmt.Errorf("summarize dataset: %w", err)
	}

	elapsed := s.clock.Since(start)
	s.metrics.DatasetLoads.WithLabelValues("success").Inc()
	s.metrics.DatasetLoadDuration.Observe(elapsed.Seconds())
	s.metrics.DatasetLoadedAt.Set(float64(summary.LoadedAt.Unix()))
	s.metrics.DatasetRecords.Set(float64(summary.Records))
	for _, c := range summary.Indices {
		s.metrics.IndexValues.WithLabelValues(string(c.Index)).Set(float64(c.Count))
		s.metrics.IndexSkipped.WithLabelValues(string(c.Index)).Set(float64(c.Skipped))
	}

	s.logger.Info("climate dataset loaded",
		"records", summary.Records,
		"indices", len(summary.Indices),
		"loaded_at", summary.LoadedAt,
		"duration", elapsed,
	)

	s.publishSummary(ctx, summary)
	return summary, nil
}

// Search validates c and ranks the records of c.Month against it.
func (s *Service) Search(ctx context.Context, c types.Criteria) (types.Result, error) {
	if c.Order == "" {
		c.Order = types.OrderScore
	}
	if err := c.Validate(); err != nil {
		s.metrics.Searches.WithLabelValues("invalid").Inc()
		return types.Result{}, fmt.Errorf("%w: %w", ErrInvalidCriteria, err)
	}

	records, err := s.repository.GetMonth(ctx, c.Month)
	if err != nil {
		s.metrics.Searches.WithLabelValues("error").Inc()
		return types.Result{}, fmt.Errorf("get month %d: %w", c.Month, err)
	}

	matches := analog.Search(records, c)
	outcome := "match"
	if len(matches) == 0 {
		outcome = "empty"
	}
	s.metrics.Searches.WithLabelValues(outcome).Inc()
	s.metrics.SearchMatches.Observe(float64(len(matches)))

	s.logger.Debug("analog search",
		"month", c.Month,
		"targets", len(c.Targets),
		"pdo_phase", c.PDOPhase,
		"candidates", len(records),
		"matches", len(matches),
	)
	return types.Result{Criteria: c, Matches: matches}, nil
}

// Series returns every record from fromYear on, in calendar order.
func (s *Service) Series(ctx context.Context, fromYear int) ([]types.Record, error) {
	return s.repository.GetRecords(ctx, fromYear)
}

func (s *Service) Summary(ctx context.Context) (types.DatasetSummary, error) {
	return s.repository.GetSummary(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// Metrics exposes the collectors used by the service so transports can
// record chart and export activity alongside it.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

package service

import (
	"context"

	"analogfinder/internal/modules/climate/types"
)

// SummaryPublisher announces a freshly loaded dataset, e.g. as a retained
// MQTT message.
type SummaryPublisher interface {
	PublishDatasetSummary(ctx context.Context, summary types.DatasetSummary) error
}

func (s *Service) publishSummary(ctx context.Context, summary types.DatasetSummary) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDatasetSummary(ctx, summary); err != nil {
		s.metrics.SummaryPublishes.WithLabelValues("error").Inc()
		s.logger.Error("failed to publish dataset summary", "error", err)
		return
	}
	s.metrics.SummaryPublishes.WithLabelValues("success").Inc()
	s.logger.Debug("published dataset summary", "records", summary.Records)
}

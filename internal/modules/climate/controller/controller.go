package controller

import (
	"context"
	"log/slog"
	"net/http"

	"analogfinder/internal/metrics"
	"analogfinder/internal/modules/climate/chart"
	"analogfinder/internal/modules/climate/types"
)

// ClimateService is the part of service.Service the handlers need.
type ClimateService interface {
	Search(ctx context.Context, c types.Criteria) (types.Result, error)
	Series(ctx context.Context, fromYear int) ([]types.Record, error)
	Summary(ctx context.Context) (types.DatasetSummary, error)
	Metrics() *metrics.Metrics
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
	logger  *slog.Logger
}

func NewClimateController(service ClimateService, logger *slog.Logger) ClimateController {
	if logger == nil {
		logger = slog.Default()
	}
	return &climateControllerImpl{service: service, logger: logger}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleFinder)
	mux.HandleFunc("GET /partials/analogs", c.handleAnalogsPartial)
	mux.HandleFunc("GET /partials/dataset", c.handleDatasetPartial)

	mux.HandleFunc("GET /charts/analogs.svg", c.handleAnalogsChart(chart.SVG))
	mux.HandleFunc("GET /charts/analogs.png", c.handleAnalogsChart(chart.PNG))
	mux.HandleFunc("GET /charts/recent.svg", c.handleRecentChart(chart.SVG))
	mux.HandleFunc("GET /charts/recent.png", c.handleRecentChart(chart.PNG))

	mux.HandleFunc("GET /api/v1/analogs", c.handleAnalogs)
	mux.HandleFunc("GET /api/v1/analogs.xlsx", c.handleAnalogsExport)
	mux.HandleFunc("GET /api/v1/indices", c.handleIndices)
	mux.HandleFunc("GET /api/v1/dataset", c.handleDataset)
}

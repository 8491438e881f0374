package climate

import (
	"log/slog"
	"net/http"

	"analogfinder/internal/modules/climate/controller"
	"analogfinder/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service, logger *slog.Logger) {
	climateController := controller.NewClimateController(svc, logger)
	climateController.RegisterRoutes(mux)
}

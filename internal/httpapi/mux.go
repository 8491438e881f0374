package httpapi

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux registers the infrastructure routes: /healthz, /metrics and, when
// staticDir exists, /static/. Feature modules add their own routes.
func NewMux(store Pinger, staticDir string, broker ConnectionStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store, broker)
	mux.Handle("GET /metrics", promhttp.Handler())

	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	} else {
		slog.Warn("static directory not found, /static/ disabled", "dir", staticDir)
	}
	return mux
}

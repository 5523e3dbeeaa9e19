package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/middleware"
)

// NewAdminRouter creates the router for the internal listener. gatherer is
// the registry the gateway metrics were registered with.
func NewAdminRouter(adminHandler *handler.AdminHandler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", adminHandler.HealthCheck)
	mux.HandleFunc("GET /internal/phone-numbers/{phone}/tenant", adminHandler.ResolvePhoneNumber)
	mux.HandleFunc("DELETE /internal/phone-numbers/{phone}/tenant", adminHandler.InvalidatePhoneNumber)

	return middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(logger),
	)(mux)
}

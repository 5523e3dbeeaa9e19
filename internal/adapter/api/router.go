// Package api assembles the public and admin HTTP routers.
package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/handler"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/pkg/config"
)

// NewRouter creates the public router with the /auth and /tenant routes and
// the request middleware stack.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.GatewayMetrics,
	guard *middleware.Guard,
	authHandler *handler.AuthHandler,
	tenantHandler *handler.TenantHandler,
) http.Handler {
	mux := http.NewServeMux()

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger, m)
	managers := guard.RoleRequired(domain.RoleOwner, domain.RoleAdmin)

	// Auth
	mux.Handle("POST /auth/signup", limiter.Limit("signup")(http.HandlerFunc(authHandler.Signup)))
	mux.Handle("POST /auth/signin", limiter.Limit("signin")(http.HandlerFunc(authHandler.Signin)))
	mux.HandleFunc("POST /auth/signout", authHandler.Signout)
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("GET /auth/me", authHandler.Me)
	mux.HandleFunc("GET /auth/health", handler.Health("auth"))

	// Tenant
	mux.Handle("GET /tenant/profile", guard.TenantRequired(http.HandlerFunc(tenantHandler.GetProfile)))
	mux.Handle("PUT /tenant/profile", managers(http.HandlerFunc(tenantHandler.UpdateProfile)))
	mux.Handle("GET /tenant/agent-config", guard.TenantRequired(http.HandlerFunc(tenantHandler.GetAgentConfig)))
	mux.Handle("PUT /tenant/agent-config", managers(http.HandlerFunc(tenantHandler.UpdateAgentConfig)))
	mux.Handle("GET /tenant/phone-numbers", guard.TenantRequired(http.HandlerFunc(tenantHandler.ListPhoneNumbers)))
	mux.Handle("GET /tenant/users", guard.TenantRequired(http.HandlerFunc(tenantHandler.ListUsers)))
	mux.Handle("POST /tenant/users", managers(http.HandlerFunc(tenantHandler.InviteUser)))
	mux.HandleFunc("GET /tenant/health", handler.Health("tenant"))

	// Logging wraps the mux directly so it can read the matched pattern.
	return middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.CORS(),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Logging(logger, m),
	)(mux)
}

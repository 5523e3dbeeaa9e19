package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
	"github.com/V4T54L/tenant-gateway/internal/usecase"
)

// DependencyCheck reports whether a backing service is reachable.
type DependencyCheck func(ctx context.Context) error

// AdminHandler serves the internal listener.
type AdminHandler struct {
	phones *usecase.PhoneResolver
	checks map[string]DependencyCheck
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. checks may be nil.
func NewAdminHandler(phones *usecase.PhoneResolver, checks map[string]DependencyCheck, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{phones: phones, checks: checks, logger: logger.With("component", "admin_handler")}
}

type adminHealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck pings every registered dependency.
// GET /health
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := adminHealthResponse{Status: "ok"}
	code := http.StatusOK
	if len(names) > 0 {
		out.Dependencies = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("dependency check failed", "dependency", name, "error", err)
			out.Dependencies[name] = err.Error()
			out.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out.Dependencies[name] = "ok"
	}
	h.respondWithJSON(w, code, out)
}

type phoneTenantResponse struct {
	PhoneNumber string `json:"phone_number"`
	TenantID    string `json:"tenant_id"`
}

// ResolvePhoneNumber returns the tenant owning an active phone number.
// GET /internal/phone-numbers/{phone}/tenant
func (h *AdminHandler) ResolvePhoneNumber(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	tenantID, err := h.phones.ResolveTenant(r.Context(), phone)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, phoneTenantResponse{PhoneNumber: phone, TenantID: tenantID})
}

// InvalidatePhoneNumber evicts a cached lookup after the number was
// deactivated or moved to another tenant.
// DELETE /internal/phone-numbers/{phone}/tenant
func (h *AdminHandler) InvalidatePhoneNumber(w http.ResponseWriter, r *http.Request) {
	if err := h.phones.Invalidate(r.Context(), r.PathValue("phone")); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response.JSON(w, h.logger, code, payload)
}

func (h *AdminHandler) respondWithError(w http.ResponseWriter, err error) {
	response.Error(w, h.logger, err)
}

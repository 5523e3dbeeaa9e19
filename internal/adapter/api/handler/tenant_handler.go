package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/usecase"
)

// TenantHandler serves the /tenant endpoints. Every route is mounted behind
// a Guard, so a principal is always present in the request context.
type TenantHandler struct {
	uc           *usecase.TenantUseCase
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(uc *usecase.TenantUseCase, logger *slog.Logger, maxBodyBytes int64) *TenantHandler {
	return &TenantHandler{
		uc:           uc,
		logger:       logger.With("component", "tenant_handler"),
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *TenantHandler) principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.logger.Error("tenant route served without a guard", "path", r.URL.Path)
		h.respondWithError(w, domain.ErrMissingToken)
	}
	return p, ok
}

type profileResponse struct {
	Tenant   *domain.Tenant `json:"tenant"`
	UserRole domain.Role    `json:"user_role"`
}

// GetProfile handles GET /tenant/profile.
func (h *TenantHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	tenant, err := h.uc.GetProfile(r.Context(), p)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profileResponse{Tenant: tenant, UserRole: p.Role})
}

type tenantUpdatedResponse struct {
	Message string         `json:"message"`
	Tenant  *domain.Tenant `json:"tenant"`
}

// UpdateProfile handles PUT /tenant/profile.
func (h *TenantHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var patch usecase.Patch
	if err := decodeJSON(w, r, h.maxBodyBytes, &patch); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	tenant, err := h.uc.UpdateProfile(r.Context(), p, patch)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, tenantUpdatedResponse{Message: "Tenant updated successfully", Tenant: tenant})
}

// GetAgentConfig handles GET /tenant/agent-config.
func (h *TenantHandler) GetAgentConfig(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	cfg, err := h.uc.GetAgentConfig(r.Context(), p)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, cfg)
}

type configUpdatedResponse struct {
	Message string              `json:"message"`
	Config  *domain.AgentConfig `json:"config"`
}

// UpdateAgentConfig handles PUT /tenant/agent-config.
func (h *TenantHandler) UpdateAgentConfig(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var patch usecase.Patch
	if err := decodeJSON(w, r, h.maxBodyBytes, &patch); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	cfg, err := h.uc.UpdateAgentConfig(r.Context(), p, patch)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, configUpdatedResponse{Message: "Agent config updated successfully", Config: cfg})
}

type phoneNumbersResponse struct {
	PhoneNumbers []domain.PhoneNumber `json:"phone_numbers"`
}

// ListPhoneNumbers handles GET /tenant/phone-numbers.
func (h *TenantHandler) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	numbers, err := h.uc.ListPhoneNumbers(r.Context(), p)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, phoneNumbersResponse{PhoneNumbers: numbers})
}

type memberView struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at,omitzero"`
}

type usersResponse struct {
	Users []memberView `json:"users"`
}

// ListUsers handles GET /tenant/users.
func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	members, err := h.uc.ListUsers(r.Context(), p)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	users := make([]memberView, len(members))
	for i, m := range members {
		users[i] = memberView{ID: m.ID, UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt}
	}
	h.respondWithJSON(w, http.StatusOK, usersResponse{Users: users})
}

type inviteRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type inviteResponse struct {
	Message    string                   `json:"message"`
	TenantUser *domain.TenantMembership `json:"tenant_user"`
}

// InviteUser handles POST /tenant/users.
func (h *TenantHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	membership, err := h.uc.InviteUser(r.Context(), p, req.UserID, req.Role)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, inviteResponse{Message: "User added to tenant successfully", TenantUser: membership})
}

func (h *TenantHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response.JSON(w, h.logger, code, payload)
}

func (h *TenantHandler) respondWithError(w http.ResponseWriter, err error) {
	response.Error(w, h.logger, err)
}

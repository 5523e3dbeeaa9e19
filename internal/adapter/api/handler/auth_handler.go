package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/middleware"
	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/usecase"
)

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	signup       *usecase.SignupUseCase
	sessions     *usecase.SessionUseCase
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(signup *usecase.SignupUseCase, sessions *usecase.SessionUseCase, logger *slog.Logger, maxBodyBytes int64) *AuthHandler {
	return &AuthHandler{
		signup:       signup,
		sessions:     sessions,
		logger:       logger.With("component", "auth_handler"),
		maxBodyBytes: maxBodyBytes,
	}
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// signupSession renders absent tokens as null while email confirmation is pending.
type signupSession struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}

type signupResponse struct {
	Message string               `json:"message"`
	User    userView             `json:"user"`
	Tenant  usecase.SignupTenant `json:"tenant"`
	Session signupSession        `json:"session"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req usecase.SignupRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	res, err := h.signup.Signup(r.Context(), req)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	out := signupResponse{
		Message: "Signup successful",
		User:    userView{ID: res.User.ID, Email: res.User.Email},
		Tenant:  res.Tenant,
	}
	if res.Session != nil {
		out.Session.AccessToken = &res.Session.AccessToken
		out.Session.RefreshToken = &res.Session.RefreshToken
	}
	h.respondWithJSON(w, http.StatusCreated, out)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinResponse struct {
	Message string                `json:"message"`
	User    userView              `json:"user"`
	Tenant  usecase.TenantSummary `json:"tenant"`
	Session *domain.Session       `json:"session"`
}

// Signin handles POST /auth/signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	res, err := h.sessions.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, signinResponse{
		Message: "Sign in successful",
		User:    userView{ID: res.User.ID, Email: res.User.Email},
		Tenant:  res.Tenant,
		Session: res.Session,
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signout handles POST /auth/signout.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Signout(r.Context(), middleware.BearerToken(r)); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, messageResponse{Message: "Sign out successful"})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Message string          `json:"message"`
	Session *domain.Session `json:"session"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	session, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, refreshResponse{Message: "Token refreshed successfully", Session: session})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		h.respondWithError(w, domain.ErrMissingToken)
		return
	}

	profile, err := h.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response.JSON(w, h.logger, code, payload)
}

func (h *AuthHandler) respondWithError(w http.ResponseWriter, err error) {
	response.Error(w, h.logger, err)
}

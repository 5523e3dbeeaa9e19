package supabase

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/V4T54L/tenant-gateway/internal/adapter/pii"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// gotrueResponse decodes both a session and a bare user: signup returns the
// latter while email confirmation is pending.
type gotrueResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *gotrueUser `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *gotrueResponse) toAuthResult() *domain.AuthResult {
	res := &domain.AuthResult{}
	switch {
	case r.User != nil && r.User.ID != "":
		res.User = &domain.User{ID: r.User.ID, Email: r.User.Email}
	case r.ID != "":
		res.User = &domain.User{ID: r.ID, Email: r.Email}
	}
	if r.AccessToken != "" {
		expiresAt := r.ExpiresAt
		if expiresAt == 0 && r.ExpiresIn > 0 {
			expiresAt = time.Now().Unix() + r.ExpiresIn
		}
		res.Session = &domain.Session{
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			ExpiresAt:    expiresAt,
		}
	}
	return res
}

// AuthClient implements domain.IdentityProvider against the GoTrue API.
type AuthClient struct {
	http     *resty.Client
	redactor *pii.Redactor
	logger   *slog.Logger
}

// NewAuthClient creates a GoTrue client. redactor may be nil.
func NewAuthClient(opts Options, redactor *pii.Redactor, logger *slog.Logger) *AuthClient {
	return &AuthClient{
		http:     newHTTPClient(opts),
		redactor: redactor,
		logger:   logger.With("component", "gotrue"),
	}
}

func (c *AuthClient) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&authErrorBody{})
}

// check turns a transport error or an error status into a ProviderError.
func (c *AuthClient) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("auth request failed", "op", op, "error", err)
		return unavailable(err)
	}
	if !resp.IsError() {
		return nil
	}
	body, _ := resp.Error().(*authErrorBody)
	pe := classifyAuthFailure(resp.StatusCode(), body)
	c.logger.Debug("auth request rejected",
		"op", op,
		"status", resp.StatusCode(),
		"reason", pe.Reason,
		"body", string(c.redactor.RedactJSON(resp.Body())),
	)
	return pe
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *AuthClient) SignUp(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var out gotrueResponse
	resp, err := c.request(ctx).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth/v1/signup")
	if err := c.check("signup", resp, err); err != nil {
		return nil, err
	}
	return out.toAuthResult(), nil
}

func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var out gotrueResponse
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth/v1/token")
	if err := c.check("signin", resp, err); err != nil {
		return nil, err
	}
	return out.toAuthResult(), nil
}

func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	var out gotrueResponse
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&out).
		Post("/auth/v1/token")
	if err := c.check("refresh", resp, err); err != nil {
		return nil, err
	}
	return out.toAuthResult(), nil
}

func (c *AuthClient) GetUser(ctx context.Context, token string) (*domain.User, error) {
	var out gotrueUser
	resp, err := c.request(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/auth/v1/user")
	if err := c.check("get_user", resp, err); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &domain.ProviderError{Reason: domain.ProviderReasonInvalidToken, Status: resp.StatusCode(), Message: "no user for token"}
	}
	return &domain.User{ID: out.ID, Email: out.Email}, nil
}

func (c *AuthClient) SignOut(ctx context.Context, token string) error {
	resp, err := c.request(ctx).
		SetAuthToken(token).
		Post("/auth/v1/logout")
	return c.check("signout", resp, err)
}

func (c *AuthClient) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", userID).
		Delete("/auth/v1/admin/users/{id}")
	if err := c.check("delete_user", resp, err); err != nil {
		return err
	}
	c.logger.Info("identity deleted", "user_id", userID)
	return nil
}

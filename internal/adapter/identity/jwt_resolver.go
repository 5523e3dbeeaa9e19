package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// DefaultAudience is the aud claim GoTrue puts on user access tokens.
const DefaultAudience = "authenticated"

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 access tokens locally with the project's JWT
// secret instead of calling the provider. It cannot see server-side session
// revocation, so a signed-out token stays valid until it expires.
type JWTResolver struct {
	secret   []byte
	audience string
	logger   *slog.Logger
}

// NewJWTResolver creates a resolver for tokens signed with secret. An empty
// audience defaults to DefaultAudience.
func NewJWTResolver(secret, audience string, logger *slog.Logger) *JWTResolver {
	if audience == "" {
		audience = DefaultAudience
	}
	return &JWTResolver{
		secret:   []byte(secret),
		audience: audience,
		logger:   logger.With("component", "jwt_resolver"),
	}
}

func (r *JWTResolver) GetUser(_ context.Context, token string) (*domain.User, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		r.logger.Debug("JWT validation failed", "error", err)
		return nil, invalidToken(fmt.Sprintf("invalid JWT: %v", err), err)
	}
	if claims.Subject == "" {
		return nil, invalidToken("JWT missing sub claim", nil)
	}
	return &domain.User{ID: claims.Subject, Email: claims.Email}, nil
}

func invalidToken(msg string, err error) *domain.ProviderError {
	if err == nil {
		err = errors.New(msg)
	}
	return &domain.ProviderError{
		Reason:  domain.ProviderReasonInvalidToken,
		Status:  http.StatusUnauthorized,
		Message: msg,
		Err:     err,
	}
}

package supabase

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// authErrorBody covers the error shapes GoTrue has used across versions.
type authErrorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b *authErrorBody) message() string {
	if b == nil {
		return ""
	}
	for _, s := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// restErrorBody is the PostgREST error envelope.
type restErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

var authErrorCodes = map[string]domain.ProviderReason{
	"user_already_exists":        domain.ProviderReasonEmailTaken,
	"email_exists":               domain.ProviderReasonEmailTaken,
	"over_email_send_rate_limit": domain.ProviderReasonRateLimited,
	"over_request_rate_limit":    domain.ProviderReasonRateLimited,
	"email_address_invalid":      domain.ProviderReasonInvalidEmail,
	"weak_password":              domain.ProviderReasonWeakPassword,
	"invalid_credentials":        domain.ProviderReasonInvalidCredentials,
	"bad_jwt":                    domain.ProviderReasonInvalidToken,
	"no_authorization":           domain.ProviderReasonInvalidToken,
	"session_not_found":          domain.ProviderReasonInvalidToken,
	"session_expired":            domain.ProviderReasonInvalidToken,
	"user_not_found":             domain.ProviderReasonInvalidToken,
	"refresh_token_not_found":    domain.ProviderReasonInvalidToken,
	"refresh_token_already_used": domain.ProviderReasonInvalidToken,
}

// classifyAuthFailure maps a GoTrue error response to a ProviderError. The
// structured error_code wins, then the HTTP status, then the message text.
func classifyAuthFailure(status int, body *authErrorBody) *domain.ProviderError {
	msg := body.message()
	if msg == "" {
		msg = fmt.Sprintf("auth request failed with status %d", status)
	}
	pe := &domain.ProviderError{Reason: domain.ProviderReasonUnknown, Status: status, Message: msg}

	if body != nil {
		if reason, ok := authErrorCodes[body.ErrorCode]; ok {
			pe.Reason = reason
			return pe
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		pe.Reason = domain.ProviderReasonRateLimited
		return pe
	case status >= http.StatusInternalServerError:
		pe.Reason = domain.ProviderReasonUnavailable
		return pe
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "already registered"), strings.Contains(lower, "already exists"):
		pe.Reason = domain.ProviderReasonEmailTaken
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "rate_limit"):
		pe.Reason = domain.ProviderReasonRateLimited
	case strings.Contains(lower, "invalid") && strings.Contains(lower, "email"):
		pe.Reason = domain.ProviderReasonInvalidEmail
	case strings.Contains(lower, "password") && (strings.Contains(lower, "weak") || strings.Contains(lower, "short") || strings.Contains(lower, "at least")):
		pe.Reason = domain.ProviderReasonWeakPassword
	case strings.Contains(lower, "credentials"), body != nil && body.Error == "invalid_grant":
		pe.Reason = domain.ProviderReasonInvalidCredentials
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		strings.Contains(lower, "jwt"), strings.Contains(lower, "token"):
		pe.Reason = domain.ProviderReasonInvalidToken
	}
	return pe
}

// classifyRestFailure maps a PostgREST error response to a DirectoryError.
func classifyRestFailure(status int, body *restErrorBody) *domain.DirectoryError {
	de := &domain.DirectoryError{Reason: domain.DirectoryReasonUnknown}
	if body != nil {
		de.Code = body.Code
		de.Message = body.Message
		if body.Details != "" {
			de.Message = body.Message + ": " + body.Details
		}
	}
	if de.Message == "" {
		de.Message = fmt.Sprintf("postgrest request failed with status %d", status)
	}

	de.Reason = domain.DirectoryReasonForSQLState(de.Code)
	if de.Reason == domain.DirectoryReasonUnknown {
		switch {
		case strings.Contains(strings.ToLower(de.Message), "row-level security"):
			de.Reason = domain.DirectoryReasonRowSecurity
		case status >= http.StatusInternalServerError:
			de.Reason = domain.DirectoryReasonUnavailable
		}
	}
	return de
}

func unavailable(err error) *domain.ProviderError {
	return &domain.ProviderError{Reason: domain.ProviderReasonUnavailable, Message: err.Error(), Err: err}
}

// Package supabase talks to a Supabase project over HTTP: GoTrue for
// identities and sessions, PostgREST for the tenant tables.
package supabase

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures the HTTP clients.
type Options struct {
	URL string
	// ServiceKey is the service_role key. It is sent as apikey on every call
	// and as the bearer token on privileged calls.
	ServiceKey string
	Timeout    time.Duration
}

func newHTTPClient(opts Options) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return resty.New().
		SetBaseURL(opts.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", opts.ServiceKey).
		SetAuthToken(opts.ServiceKey)
}

// Package httpapi implements the HTTP ingestion endpoint that accepts raw
// messages and hands them to a Backend.
package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	errMissingKey = errors.New("missing API key")
	errInvalidKey = errors.New("invalid API key")
)

// Authenticator checks request API keys against the configured key.
type Authenticator struct {
	key string
}

// NewAuthenticator creates an Authenticator for key. An empty key disables
// authentication.
func NewAuthenticator(key string) *Authenticator {
	return &Authenticator{key: key}
}

// Enabled returns true if an API key is configured.
func (a *Authenticator) Enabled() bool {
	return a.key != ""
}

// Verify accepts the key from X-Api-Key or an "Authorization: Bearer" header.
// Returns nil on success or when authentication is disabled.
func (a *Authenticator) Verify(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}

	got := requestKey(r)
	if got == "" {
		return errMissingKey
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.key)) != 1 {
		return errInvalidKey
	}
	return nil
}

func requestKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-Api-Key")); k != "" {
		return k
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

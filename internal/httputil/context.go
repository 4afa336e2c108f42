package httputil

import (
	"context"
	"net/http"

	"lorebook/internal/domain/models/wiki"
)

// Context key type to avoid collisions
type contextKey string

const (
	principalKey contextKey = "principal"
)

// WithPrincipal adds the resolved principal to the request context
func WithPrincipal(r *http.Request, principal wiki.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, principal)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the principal from the request context.
// Requests that never passed through the auth middleware are anonymous.
func GetPrincipal(r *http.Request) wiki.Principal {
	principal, ok := r.Context().Value(principalKey).(wiki.Principal)
	if !ok {
		return wiki.Anonymous()
	}
	return principal
}

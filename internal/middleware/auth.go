package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"lorebook/internal/auth"
	"lorebook/internal/domain/models/wiki"
	wikiRepo "lorebook/internal/domain/repositories/wiki"
	"lorebook/internal/httputil"
)

// Auth resolves the request principal from the Authorization header.
// A missing or invalid bearer token resolves to the anonymous principal
// rather than rejecting the request; public content must stay reachable
// without credentials, and handlers decide per operation whether
// anonymous access suffices.
//
// On the first request from each authenticated user the user row is
// upserted and, when no system owner exists yet, the user claims the
// owner slot.
func Auth(verifier auth.JWTVerifier, identity wikiRepo.IdentityRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	var seen sync.Map // userID -> struct{}, provisioned once per process

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, httputil.WithPrincipal(r, wiki.Anonymous()))
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				// Invalid token degrades to anonymous, same as no token
				logger.Debug("bearer token rejected", "path", r.URL.Path)
				next.ServeHTTP(w, httputil.WithPrincipal(r, wiki.Anonymous()))
				return
			}

			userID := claims.GetUserID()
			if _, ok := seen.Load(userID); !ok {
				if err := identity.EnsureUser(r.Context(), userID, claims.Email); err != nil {
					logger.Error("failed to provision user", "user_id", userID, "error", err)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				claimed, err := identity.SetSystemOwnerIfUnset(r.Context(), userID)
				if err != nil {
					logger.Error("failed to check system owner", "user_id", userID, "error", err)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if claimed {
					logger.Info("system owner bootstrapped", "user_id", userID)
				}
				seen.Store(userID, struct{}{})
			}

			next.ServeHTTP(w, httputil.WithPrincipal(r, wiki.UserPrincipal(userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

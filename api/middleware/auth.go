package middleware

import (
	"net/http"
	"strings"

	"github.com/platterly/platterly-backend/api/responses"
	pkgAuth "github.com/platterly/platterly-backend/pkg/auth"
	"github.com/platterly/platterly-backend/pkg/config"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
	"github.com/platterly/platterly-backend/pkg/logger"
)

// legacyCookieName is the pre-token session cookie older clients still send.
const legacyCookieName = "pl_session"

// Auth validates a bearer token and seeds the request context with the
// resolved actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActor(r.Context(), claims.ActorID, claims.ActorKind)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"actor_id":   claims.ActorID.String(),
					"actor_kind": string(claims.ActorKind),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth seeds whatever credentials the request happens to carry: a
// bearer token, a legacy session cookie, or nothing. It never rejects; the
// aggregator's authorization chain decides downstream.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				if claims, err := pkgAuth.ParseSessionToken(cfg, token); err == nil {
					ctx = WithActor(ctx, claims.ActorID, claims.ActorKind)
				}
			}

			if cookie, err := r.Cookie(legacyCookieName); err == nil && cookie.Value != "" {
				if claims, err := pkgAuth.ParseSessionToken(cfg, cookie.Value); err == nil {
					ctx = WithLegacyActorID(ctx, claims.ActorID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

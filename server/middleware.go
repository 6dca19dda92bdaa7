package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the resolved session
	ContextKeySession ContextKey = "session"
	// ContextKeyTenantID stores the effective tenant id
	ContextKeyTenantID ContextKey = "tenant_id"
)

const sessionCookieName = "session_token"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the default chain for JSON routes.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
	return append(chained, mw...)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panic")
				writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next(w, r)
	}
}

// RequireSession resolves the caller's session and effective tenant id, and
// hydrates the tenant working set before the handler runs. The tenant id is
// always derived from the session, never from request input: this is the
// multi-tenant isolation boundary. Hydration failures fail soft (slightly
// stale data beats a dead request); session failures fail closed.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			session, err := s.deps.Sessions.Resolve(r.Context(), token)
			if err != nil {
				// Absent, expired and store-outage all read the same to the
				// caller.
				if !apperrors.Is(err, apperrors.ErrSessionAbsent) {
					s.log.Warn().Err(err).Msg("session resolution failed")
				}
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			tenantID := s.deps.Sessions.EffectiveTenantID(session)
			if err := s.deps.Hydrator.EnsureHydrated(r.Context(), tenantID, session.GroupID); err != nil {
				s.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("hydration failed; serving cached state")
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			ctx = context.WithValue(ctx, ContextKeyTenantID, tenantID)
			next(w, r.WithContext(ctx))
		}
	}
}

// requestToken pulls the session token from the Authorization header or the
// session cookie.
func requestToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func sessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}

func tenantIDFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(ContextKeyTenantID).(string)
	return tenantID
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/auth"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	ActorContextKey contextKey = "actor"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authService *auth.Service
	logger      *logrus.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service, logger *logrus.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate validates bearer tokens and adds the actor to the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication for certain endpoints
		if shouldSkipAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, errs.AuthRequired())
			return
		}

		token, err := m.authService.ExtractTokenFromHeader(authHeader)
		if err == nil {
			var actor *models.Actor
			if actor, err = m.authService.ValidateToken(token); err == nil {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}
		}

		m.logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
		msg := "invalid token"
		if errors.Is(err, auth.ErrExpiredToken) {
			msg = "token expired"
		}
		e := errs.AuthRequired()
		e.Message = msg
		writeError(w, e)
	})
}

// RequireRole lets the request through when the actor holds one of roles. Admins always pass.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, errs.AuthRequired())
				return
			}
			if actor.Status == models.UserSuspended {
				writeError(w, errs.Forbidden("account is suspended"))
				return
			}
			if !actor.IsAdmin() && !actor.HasRole(roles...) {
				writeError(w, errs.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff admits agents, managers and admins.
func (m *AuthMiddleware) RequireStaff() func(http.Handler) http.Handler {
	return m.RequireRole(models.RoleAgent, models.RoleManager)
}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// ActorFromContext extracts the authenticated actor from the request context
func ActorFromContext(ctx context.Context) (*models.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(*models.Actor)
	return actor, ok && actor != nil
}

// shouldSkipAuth determines if authentication should be skipped for a given path
func shouldSkipAuth(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
	}

	for _, skipPath := range skipPaths {
		if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
			return true
		}
	}
	return false
}

// writeError writes the error envelope for requests rejected before reaching a handler.
func writeError(w http.ResponseWriter, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Internal(err, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	})
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/auth"
	"github.com/ukydev/fleet-rental/internal/models"
)

const testSecret = "test-secret"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	svc := auth.NewService(testSecret, time.Hour)
	m := NewAuthMiddleware(svc, quietLogger())
	agent := &models.Actor{ID: "u1", Roles: []models.Role{models.RoleAgent}, Status: models.UserActive, BranchIDs: []string{"B1"}}

	var seen *models.Actor
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		seen = nil
		token, err := svc.GenerateToken(agent)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, agent.ID, seen.ID)
		assert.Equal(t, []string{"B1"}, seen.BranchIDs)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "AUTH_REQUIRED", body["code"])
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid token", decodeEnvelope(t, w)["message"])
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "u1",
			"roles":   []string{"agent"},
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token expired", decodeEnvelope(t, w)["message"])
	})

	t.Run("health skips auth", func(t *testing.T) {
		for _, path := range []string{"/health", "/metrics"} {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	m := NewAuthMiddleware(auth.NewService(testSecret, time.Hour), quietLogger())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		actor  *models.Actor
		guard  func(http.Handler) http.Handler
		status int
	}{
		{"admin passes any role", &models.Actor{ID: "a", Roles: []models.Role{models.RoleAdmin}}, m.RequireRole(models.RoleManager), http.StatusNoContent},
		{"manager passes manager", &models.Actor{ID: "m", Roles: []models.Role{models.RoleManager}}, m.RequireRole(models.RoleManager), http.StatusNoContent},
		{"agent is staff", &models.Actor{ID: "g", Roles: []models.Role{models.RoleAgent}}, m.RequireStaff(), http.StatusNoContent},
		{"customer is not staff", &models.Actor{ID: "c", Roles: []models.Role{models.RoleCustomer}}, m.RequireStaff(), http.StatusForbidden},
		{"manager denied admin", &models.Actor{ID: "m", Roles: []models.Role{models.RoleManager}}, m.RequireRole(models.RoleAdmin), http.StatusForbidden},
		{"suspended admin", &models.Actor{ID: "a", Roles: []models.Role{models.RoleAdmin}, Status: models.UserSuspended}, m.RequireRole(models.RoleAdmin), http.StatusForbidden},
		{"no actor", nil, m.RequireStaff(), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/branches", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), tt.actor))
			}
			w := httptest.NewRecorder()
			tt.guard(ok).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestActorFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ActorFromContext(req.Context())
	assert.False(t, ok)

	var nilActor *models.Actor
	_, ok = ActorFromContext(WithActor(req.Context(), nilActor))
	assert.False(t, ok)

	actor, ok := ActorFromContext(WithActor(req.Context(), &models.Actor{ID: "u1"}))
	assert.True(t, ok)
	assert.Equal(t, "u1", actor.ID)
}

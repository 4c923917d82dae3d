package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-rental/internal/models"
)

func TestNewService(t *testing.T) {
	service := NewService("", 0)
	assert.NotNil(t, service)
	assert.NotEmpty(t, service.jwtSecret)
	assert.True(t, service.UsesDefaultSecret())
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	service = NewService("s3cret", time.Hour)
	assert.False(t, service.UsesDefaultSecret())
	assert.Equal(t, time.Hour, service.tokenExp)
}

func TestService_GenerateAndValidateToken(t *testing.T) {
	service := NewService("s3cret", time.Hour)

	actor := &models.Actor{
		ID:        "mgr-1",
		Roles:     []models.Role{models.RoleManager},
		Status:    models.UserActive,
		BranchIDs: []string{"B1", "B2"},
	}
	token, err := service.GenerateToken(actor)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)

	// Test token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	// Test token signed with another secret
	_, err = NewService("other", time.Hour).ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)

	_, err = service.GenerateToken(&models.Actor{})
	assert.Error(t, err)
}

func TestService_GenerateUserToken(t *testing.T) {
	service := NewService("s3cret", time.Hour)
	user := &models.User{
		ID:             "agent-1",
		Roles:          []models.Role{models.RoleAgent},
		Status:         models.UserActive,
		AgentBranchIDs: []string{"B7"},
	}
	token, err := service.GenerateUserToken(user)
	require.NoError(t, err)

	got, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"B7"}, got.BranchIDs)
	assert.True(t, got.IsStaff())
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	return token
}

func TestService_ValidateTokenClaims(t *testing.T) {
	service := NewService("s3cret", time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
		err    error
	}{
		{"expired", jwt.MapClaims{"user_id": "u1", "roles": []string{"customer"}, "exp": time.Now().Add(-time.Minute).Unix()}, ErrExpiredToken},
		{"missing user", jwt.MapClaims{"roles": []string{"customer"}, "exp": exp}, ErrInvalidToken},
		{"missing roles", jwt.MapClaims{"user_id": "u1", "exp": exp}, ErrInvalidToken},
		{"unknown role", jwt.MapClaims{"user_id": "u1", "roles": []string{"root"}, "exp": exp}, ErrInvalidToken},
		{"roles not a list", jwt.MapClaims{"user_id": "u1", "roles": "admin", "exp": exp}, ErrInvalidToken},
		{"branch ids not strings", jwt.MapClaims{"user_id": "u1", "roles": []string{"agent"}, "branch_ids": []int{1}, "exp": exp}, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(sign(t, tt.claims))
			assert.Equal(t, tt.err, err)
		})
	}

	got, err := service.ValidateToken(sign(t, jwt.MapClaims{"user_id": "u1", "roles": []string{"customer"}, "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, got.Status, "a missing status means active")
	assert.Empty(t, got.BranchIDs)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := NewService("", 0)

	// Test valid header
	token := "valid-token"
	extracted, err := service.ExtractTokenFromHeader("Bearer " + token)
	assert.NoError(t, err)
	assert.Equal(t, token, extracted)

	// Test empty header
	_, err = service.ExtractTokenFromHeader("")
	assert.Equal(t, ErrInvalidToken, err)

	// Test invalid format
	_, err = service.ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	// Test missing token
	_, err = service.ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)
}

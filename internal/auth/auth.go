// Package auth issues and validates the bearer tokens that carry an Actor.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/fleet-rental/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const defaultSecret = "default-secret-key-change-in-production"

// Service handles token operations
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
}

// NewService creates a token service. An empty secret falls back to a development default and
// a non-positive expiry to 24h.
func NewService(secret string, expiry time.Duration) *Service {
	if secret == "" {
		secret = defaultSecret
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  expiry,
	}
}

// UsesDefaultSecret reports whether the service signs with the development secret.
func (s *Service) UsesDefaultSecret() bool {
	return string(s.jwtSecret) == defaultSecret
}

// GenerateToken signs a token for an actor
func (s *Service) GenerateToken(actor *models.Actor) (string, error) {
	if actor == nil || actor.ID == "" {
		return "", errors.New("actor id is required")
	}
	roles := make([]string, 0, len(actor.Roles))
	for _, r := range actor.Roles {
		roles = append(roles, string(r))
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    actor.ID,
		"roles":      roles,
		"status":     string(actor.Status),
		"branch_ids": actor.BranchIDs,
		"exp":        now.Add(s.tokenExp).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// GenerateUserToken signs a token for a stored user, resolving their branch assignment.
func (s *Service) GenerateUserToken(user *models.User) (string, error) {
	return s.GenerateToken(models.ActorFor(user))
}

// ValidateToken validates a JWT token and returns the actor it carries
func (s *Service) ValidateToken(tokenString string) (*models.Actor, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	roles, err := stringList(claims["roles"])
	if err != nil || len(roles) == 0 {
		return nil, ErrInvalidToken
	}

	branches, err := stringList(claims["branch_ids"])
	if err != nil {
		return nil, ErrInvalidToken
	}

	status, _ := claims["status"].(string)
	if status == "" {
		status = string(models.UserActive)
	}

	actor := &models.Actor{ID: userID, Status: models.UserStatus(status), BranchIDs: branches}
	for _, r := range roles {
		if !models.IsValidRole(models.Role(r)) {
			return nil, ErrInvalidToken
		}
		actor.Roles = append(actor.Roles, models.Role(r))
	}
	return actor, nil
}

// stringList reads a JSON array of strings. A missing claim is an empty list.
func stringList(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, ErrInvalidToken
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, ErrInvalidToken
		}
		out = append(out, s)
	}
	return out, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

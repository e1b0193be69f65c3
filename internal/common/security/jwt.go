package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and verifies the access tokens handed out at login.
type JWTManager struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewJWTManager(key []byte, ttl time.Duration) *JWTManager {
	return &JWTManager{
		auth: jwtauth.New("HS256", key, nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Auth exposes the underlying jwtauth instance for the verifier middleware.
func (m *JWTManager) Auth() *jwtauth.JWTAuth {
	return m.auth
}

func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

func (m *JWTManager) GenerateToken(userID, role string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(m.ttl).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := m.auth.Encode(claims)
	return tokenString, err
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

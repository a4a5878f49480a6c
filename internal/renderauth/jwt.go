// Package renderauth issues and verifies the short-lived bearer tokens the
// submission service presents to the rendering endpoint.
package renderauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/transaction-desk/internal/config"
)

const audience = "txdesk-render"

// Claims identifies the record a render request is for.
type Claims struct {
	RecordID string `json:"record_id"`
	jwt.RegisteredClaims
}

// GetRecordID returns the record id from the claims.
func (c *Claims) GetRecordID() string {
	return c.RecordID
}

// Service provides token generation and validation with a shared secret.
type Service struct {
	config *config.RenderAuthConfig
	now    func() time.Time
}

// NewService creates a new token service with the given configuration.
func NewService(cfg *config.RenderAuthConfig) *Service {
	return &Service{config: cfg, now: time.Now}
}

// GenerateToken signs a token scoped to recordID.
func (s *Service) GenerateToken(recordID string) (string, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.config.TTLMinutes) * time.Minute)

	claims := &Claims{
		RecordID: recordID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithAudience(audience), jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}

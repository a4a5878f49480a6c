// Package middleware provides HTTP middleware for authenticating calls to
// the rendering endpoint.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/transaction-desk/internal/renderauth"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// recordIDKey is the context key for the record id a token was issued for.
const recordIDKey ContextKey = "recordID"

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (RecordIDGetter, error)
}

// RecordIDGetter exposes the record id carried by validated claims.
type RecordIDGetter interface {
	GetRecordID() string
}

// ValidatorFunc adapts a function to TokenValidator.
type ValidatorFunc func(tokenString string) (RecordIDGetter, error)

// ValidateToken calls f.
func (f ValidatorFunc) ValidateToken(tokenString string) (RecordIDGetter, error) {
	return f(tokenString)
}

// RenderTokens adapts a render token service to TokenValidator.
func RenderTokens(svc *renderauth.Service) TokenValidator {
	return ValidatorFunc(func(tokenString string) (RecordIDGetter, error) {
		claims, err := svc.ValidateToken(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token's record id in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil || claims == nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), recordIDKey, claims.GetRecordID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from a case-insensitive "Bearer" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}

// GetRecordID returns the record id bound to the request by AuthMiddleware.
func GetRecordID(r *http.Request) (string, error) {
	recordID, ok := r.Context().Value(recordIDKey).(string)
	if !ok {
		return "", fmt.Errorf("record ID not found in request context")
	}
	return recordID, nil
}

// RecordIDKey returns the context key for the record id (for testing purposes).
func RecordIDKey() ContextKey {
	return recordIDKey
}

// Package jwtauth issues and checks the HS256 bearer tokens used by the task
// service. The client side only ever inspects expiry; signing and
// verification back the in-process test service.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"taskboard/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned when a signer is built without key material.
var ErrEmptySecret = errors.New("signing secret is required")

// Claims is the token payload: the account id plus standard claims.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Signer signs and verifies tokens with a shared secret.
type Signer struct {
	mu     sync.RWMutex
	secret []byte
}

// NewSigner creates a signer for secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: secret}, nil
}

// Sign issues a token for userID that expires at exp.
func (s *Signer) Sign(userID string, exp time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	s.mu.RLock()
	secret := s.secret
	s.mu.RUnlock()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// Rotate replaces the secret. Tokens signed before the call stop verifying.
func (s *Signer) Rotate(secret []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = secret
}

// Middleware rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (s *Signer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.ExtractBearerToken(r)
		if err != nil {
			auth.WriteUnauthorized(w)
			return
		}

		claims, err := s.Verify(raw)
		if err != nil {
			log.Printf("JWT verification failed: %v", err)
			auth.WriteJSONError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const ClaimsContextKey contextKey = "jwtclaims"

// GetClaims retrieves verified claims from the request context.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// ExpiresAt reads the exp claim without verifying the signature. ok is
// false for strings that are not JWTs and for tokens without exp.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Expired reports whether token carries an exp before now. Opaque tokens
// never expire client-side.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && exp.Before(now)
}

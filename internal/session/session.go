// Package session holds the one authenticated session of the process: the
// bearer token and the identity it belongs to. Both are persisted through a
// storage.Store under the keys "token" and "user", always written and
// cleared together, so a session is either complete or absent.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"taskboard/internal/api"
	"taskboard/internal/jwtauth"
	"taskboard/internal/storage"
)

// Storage keys.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrMissingToken = errors.New("authentication response carried no token")
)

// Authenticator is the slice of the API client the session drives.
type Authenticator interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.Identity, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.Identity, error)
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*api.Identity, error)
}

// Store is the session store. It implements api.TokenSource.
type Store struct {
	kv   storage.Store
	auth Authenticator
	now  func() time.Time

	mu       sync.RWMutex
	ready    bool
	token    string
	identity *api.Identity
}

// New creates an anonymous, not-yet-ready session. Call Bootstrap before
// making access decisions.
func New(kv storage.Store, auth Authenticator) *Store {
	return &Store{kv: kv, auth: auth, now: time.Now}
}

// Bootstrap restores a persisted session. A half-written, undecodable,
// unreadable or expired session is cleared from storage. The store is ready
// afterwards whatever the outcome; a storage error is returned but leaves
// the session anonymous.
func (s *Store) Bootstrap(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	}()

	token, tokenErr := s.kv.Get(ctx, TokenKey)
	if errors.Is(tokenErr, storage.ErrCorrupt) {
		log.Printf("discarding unreadable session: %v", tokenErr)
		if err := s.kv.Clear(ctx, TokenKey, UserKey); err != nil {
			return fmt.Errorf("failed to clear stale session: %w", err)
		}
		return nil
	}
	if tokenErr != nil && !errors.Is(tokenErr, storage.ErrNotFound) {
		return fmt.Errorf("failed to read session token: %w", tokenErr)
	}
	raw, userErr := s.kv.Get(ctx, UserKey)
	if userErr != nil && !errors.Is(userErr, storage.ErrNotFound) {
		return fmt.Errorf("failed to read session identity: %w", userErr)
	}

	hasToken := tokenErr == nil && token != ""
	hasUser := userErr == nil && raw != ""
	if !hasToken && !hasUser {
		return nil
	}

	identity, err := decodeIdentity(raw)
	switch {
	case !hasToken || !hasUser:
		log.Printf("discarding incomplete session (token=%t, user=%t)", hasToken, hasUser)
	case err != nil:
		log.Printf("discarding session with unreadable identity: %v", err)
	case expired(token, s.now()):
		log.Printf("discarding expired session for %s", identity.Email)
	default:
		s.mu.Lock()
		s.token = token
		s.identity = identity
		s.mu.Unlock()
		return nil
	}

	if err := s.kv.Clear(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to clear stale session: %w", err)
	}
	return nil
}

// Ready reports whether Bootstrap has finished.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Current returns a copy of the signed-in identity, or nil.
func (s *Store) Current() *api.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a session exists.
func (s *Store) Authenticated() bool {
	return s.Current() != nil
}

// Register creates an account and signs it in. An empty role defaults to
// user.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*api.Identity, error) {
	if req.Role == "" {
		req.Role = api.RoleUser
	}
	identity, err := s.auth.Register(ctx, req)
	if err != nil {
		return nil, newAuthError(err, "Registration failed")
	}
	return s.establish(ctx, identity, "Registration failed")
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, req api.LoginRequest) (*api.Identity, error) {
	identity, err := s.auth.Login(ctx, req)
	if err != nil {
		return nil, newAuthError(err, "Login failed")
	}
	return s.establish(ctx, identity, "Login failed")
}

// establish persists token and identity as one write, then publishes them
// in memory. Nothing changes if the write fails.
func (s *Store) establish(ctx context.Context, identity *api.Identity, fallback string) (*api.Identity, error) {
	if identity == nil || identity.Token == "" {
		return nil, &AuthError{Message: fallback, Err: ErrMissingToken}
	}
	token := identity.Token
	stored := *identity
	stored.Token = ""

	encoded, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, map[string]string{TokenKey: token, UserKey: string(encoded)}); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.token = token
	s.identity = &stored

	out := stored
	return &out, nil
}

// Logout forgets the session. Logging out twice is fine. The in-memory
// session is only dropped once storage has been cleared.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Clear(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.token = ""
	s.identity = nil
	return nil
}

// UpdateProfile sends the profile change and adopts the returned identity.
// A blank password is omitted from the request.
func (s *Store) UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*api.Identity, error) {
	if !s.Authenticated() {
		return nil, ErrNoSession
	}
	identity, err := s.auth.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateIdentity(ctx, *identity); err != nil {
		return nil, err
	}
	return s.Current(), nil
}

// UpdateIdentity replaces the stored identity and keeps the token.
func (s *Store) UpdateIdentity(ctx context.Context, identity api.Identity) error {
	identity.Token = ""
	encoded, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return ErrNoSession
	}
	if err := s.kv.Set(ctx, map[string]string{UserKey: string(encoded)}); err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}
	s.identity = &identity
	return nil
}

func decodeIdentity(raw string) (*api.Identity, error) {
	var id api.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, err
	}
	if id.ID == "" {
		return nil, errors.New("identity has no id")
	}
	id.Token = ""
	return &id, nil
}

func expired(token string, now time.Time) bool {
	return jwtauth.Expired(token, now)
}

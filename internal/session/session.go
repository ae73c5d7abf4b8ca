// Package session holds the client's authentication state: the access and
// refresh token pair plus the authenticated user id. It is the only
// client-local mutable state shared across concurrent backend requests.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// Tokens is the access/refresh credential pair.
type Tokens struct {
	Access  string
	Refresh string
}

// Session is an explicit credential cell passed to the backend gateway at
// construction. Concurrent 401 handling may trigger independent reissue
// attempts; reissue is idempotent server-side, so they are not coalesced.
type Session struct {
	mu     sync.RWMutex
	tokens Tokens
	userID int64

	store storage.StateStore
	log   *logger.Logger
}

// New creates a session persisted through the given store. A nil store keeps
// the session purely in memory.
func New(store storage.StateStore, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Session{store: store, log: log}
}

// Restore loads persisted credentials, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	creds, err := s.store.LoadCredentials(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tokens = Tokens{Access: creds.Access, Refresh: creds.Refresh}
	s.userID = creds.UserID
	s.mu.Unlock()
	s.log.WithField("user_id", creds.UserID).Debug("session restored")
	return nil
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != ""
}

// Tokens returns the current credential pair.
func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// UserID returns the authenticated user id, zero when logged out.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SetIdentity records the authenticated user id.
func (s *Session) SetIdentity(ctx context.Context, userID int64) error {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	return s.persist(ctx)
}

// Update replaces the access token, and the refresh token when non-empty.
// Called after login and after a successful reissue.
func (s *Session) Update(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	if access != "" {
		s.tokens.Access = access
	}
	if refresh != "" {
		s.tokens.Refresh = refresh
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

// Clear drops all credentials, forcing re-authentication.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.userID = 0
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.ClearCredentials(ctx)
}

// AccessExpiresAt peeks at the access token's exp claim without verifying
// the signature. Verification is the backend's job; this only informs
// logging and proactive reissue decisions.
func (s *Session) AccessExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	access := s.tokens.Access
	s.mu.RUnlock()
	if access == "" {
		return time.Time{}, false
	}
	token, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.RLock()
	creds := storage.Credentials{
		Access:  s.tokens.Access,
		Refresh: s.tokens.Refresh,
		UserID:  s.userID,
	}
	s.mu.RUnlock()
	return s.store.SaveCredentials(ctx, creds)
}

// Package auth wraps the backend authentication endpoints.
package auth

import (
	"context"
	"strings"

	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// BackendGateway is the REST surface the service needs.
type BackendGateway interface {
	Login(ctx context.Context, username, password string) (int64, error)
	Register(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// Service handles login, registration and logout.
type Service struct {
	backend BackendGateway
	wallet  *wallet.Connector
	log     *logger.Logger
}

// New constructs the auth service. The connector may be nil when no wallet
// is configured.
func New(bg BackendGateway, connector *wallet.Connector, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{backend: bg, wallet: connector, log: log}
}

// Login authenticates and returns the user id.
func (s *Service) Login(ctx context.Context, username, password string) (int64, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return 0, errors.Validation("username and password are required")
	}
	userID, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return 0, err
	}
	s.log.WithField("user_id", userID).Info("logged in")
	return userID, nil
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.Validation("username and password are required")
	}
	return s.backend.Register(ctx, username, password)
}

// Logout clears the session and drops any cached wallet connection.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return err
	}
	if s.wallet != nil {
		if err := s.wallet.Disconnect(ctx); err != nil {
			s.log.WithError(err).Warn("failed to drop wallet session")
		}
	}
	return nil
}

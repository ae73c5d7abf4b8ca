package backend

import (
	"context"
	"net/http"

	"github.com/brickvest/coinvest_layer/internal/errors"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and stores the issued tokens plus the user identity
// in the session. Returns the authenticated user id.
func (c *Client) Login(ctx context.Context, username, password string) (int64, error) {
	raw, header, err := c.do(ctx, http.MethodPost, "/login", credentialsRequest{username, password}, false)
	if err != nil {
		return 0, err
	}

	access := header.Get(accessHeader)
	if access == "" {
		return 0, errors.Backend("login response missing access token", nil)
	}
	if err := c.session.Update(ctx, access, header.Get(refreshHeader)); err != nil {
		return 0, errors.Backend("store login tokens", err)
	}

	var payload struct {
		UserID int64 `json:"userId"`
	}
	if err := decodeInto(raw, &payload); err != nil {
		return 0, err
	}
	if err := c.session.SetIdentity(ctx, payload.UserID); err != nil {
		return 0, errors.Backend("store identity", err)
	}
	return payload.UserID, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	_, _, err := c.do(ctx, http.MethodPost, "/register", credentialsRequest{username, password}, false)
	return err
}

// Logout clears the local session. The backend keeps no server-side session
// to invalidate.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Clear(ctx)
}

// Package backend is the typed REST gateway to the platform backend. Every
// response is wrapped in the {isSuccess, code, message, response} envelope;
// authenticated requests carry the access token and are replayed once after
// a silent token reissue when the backend answers 401.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/session"
	"github.com/brickvest/coinvest_layer/pkg/logger"
)

// Token header names used by the backend.
const (
	accessHeader  = "access"
	refreshHeader = "refresh"
)

const maxBodyBytes = 8 << 20

// Client is the REST gateway. It holds no request state beyond the session
// it was constructed with.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Session
	log        *logger.Logger
}

// NewClient creates a gateway rooted at baseURL (including the /api prefix).
func NewClient(baseURL string, timeout time.Duration, sess *session.Session, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("backend")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    sess,
		log:        log,
	}
}

// Session exposes the session the client authenticates with.
func (c *Client) Session() *session.Session { return c.session }

type envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Response  json.RawMessage `json:"response"`
}

// do executes one request against the backend. On a 401 it attempts exactly
// one silent token reissue and replays the original request once; a failed
// reissue clears credentials and surfaces an auth error.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, requiresAuth bool) (json.RawMessage, http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, payload, requiresAuth)
	if err != nil {
		return nil, nil, errors.Backend("backend unreachable", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && requiresAuth {
		resp.Body.Close()
		if err := c.reissue(ctx); err != nil {
			if clearErr := c.session.Clear(ctx); clearErr != nil {
				c.log.WithError(clearErr).Warn("failed to clear credentials")
			}
			return nil, nil, errors.Wrap(errors.KindAuth, "session expired and token reissue failed", err)
		}
		resp, err = c.send(ctx, method, path, payload, requiresAuth)
		if err != nil {
			return nil, nil, errors.Backend("backend unreachable", err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if clearErr := c.session.Clear(ctx); clearErr != nil {
				c.log.WithError(clearErr).Warn("failed to clear credentials")
			}
			return nil, nil, errors.Unauthorized("authentication rejected after token reissue")
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, errors.Backend("read response", err)
	}

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, nil, errors.Backend(fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, msg), nil)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, nil, errors.Backend("decode response envelope", err)
		}
		if !env.IsSuccess {
			return nil, nil, errors.Backend(fmt.Sprintf("%s (%s)", env.Message, env.Code), nil)
		}
	}
	return env.Response, resp.Header, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, requiresAuth bool) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if requiresAuth {
		if tokens := c.session.Tokens(); tokens.Access != "" {
			req.Header.Set(accessHeader, tokens.Access)
		}
	}
	return c.httpClient.Do(req)
}

// reissue exchanges the refresh token for a fresh access token. Concurrent
// callers may each reissue independently; the backend treats reissue as
// idempotent per refresh token.
func (c *Client) reissue(ctx context.Context) error {
	tokens := c.session.Tokens()
	if tokens.Access == "" || tokens.Refresh == "" {
		return fmt.Errorf("no refresh credentials held")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reissue", nil)
	if err != nil {
		return err
	}
	req.Header.Set(accessHeader, tokens.Access)
	req.Header.Set(refreshHeader, tokens.Refresh)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reissue request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reissue rejected with status %d", resp.StatusCode)
	}

	newAccess := resp.Header.Get(accessHeader)
	if newAccess == "" {
		return fmt.Errorf("reissue response missing access token")
	}
	if err := c.session.Update(ctx, newAccess, resp.Header.Get(refreshHeader)); err != nil {
		return fmt.Errorf("store reissued tokens: %w", err)
	}
	c.log.Debug("access token reissued")
	return nil
}

// decodeInto unmarshals an envelope payload into out when both are present.
func decodeInto(raw json.RawMessage, out interface{}) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Backend("decode response payload", err)
	}
	return nil
}

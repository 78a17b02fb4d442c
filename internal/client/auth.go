package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victorivanov/permcast/internal/models"
)

// refreshSkew renews the access token this long before its exp claim.
const refreshSkew = 30 * time.Second

// tokenSource holds the session tokens. Access tokens are platform JWTs;
// the expiry is read from the unverified exp claim so the client can
// refresh proactively instead of waiting for a 401.
type tokenSource struct {
	mu           sync.Mutex
	access       string
	refreshToken string
	expiresAt    time.Time
	static       bool
}

// UseToken installs a pre-issued access token. No refresh is possible;
// the token is sent as-is until it stops working.
func (c *Client) UseToken(token string) {
	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()
	c.tokens.access = token
	c.tokens.static = true
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// Login authenticates with username and password and stores the session
// tokens for subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var resp authResponse
	if err := c.postUnauthenticated(ctx, "/api/v1/auth/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}

	c.tokens.mu.Lock()
	defer c.tokens.mu.Unlock()
	c.tokens.access = resp.AccessToken
	c.tokens.refreshToken = resp.RefreshToken
	c.tokens.expiresAt = tokenExpiry(resp.AccessToken)
	c.tokens.static = false
	return &resp.User, nil
}

func (ts *tokenSource) canRefresh() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return !ts.static && ts.refreshToken != ""
}

// accessToken returns a token valid for at least refreshSkew, refreshing
// it first when the exp claim says it is about to lapse.
func (ts *tokenSource) accessToken(ctx context.Context, c *Client) (string, error) {
	ts.mu.Lock()
	needsRefresh := !ts.static && ts.refreshToken != "" &&
		!ts.expiresAt.IsZero() && time.Until(ts.expiresAt) < refreshSkew
	ts.mu.Unlock()

	if needsRefresh {
		if err := ts.refresh(ctx, c); err != nil {
			return "", err
		}
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.access, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (ts *tokenSource) refresh(ctx context.Context, c *Client) error {
	ts.mu.Lock()
	token := ts.refreshToken
	ts.mu.Unlock()
	if token == "" {
		return fmt.Errorf("no refresh token held; log in again")
	}

	var resp refreshResponse
	if err := c.postUnauthenticated(ctx, "/api/v1/auth/refresh", refreshRequest{RefreshToken: token}, &resp); err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.access = resp.AccessToken
	ts.refreshToken = resp.RefreshToken
	ts.expiresAt = tokenExpiry(resp.AccessToken)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client has no signing secret and only needs the timestamp.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// postUnauthenticated sends a request without the Authorization header,
// used by the auth endpoints themselves.
func (c *Client) postUnauthenticated(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN"}
		var envelope errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

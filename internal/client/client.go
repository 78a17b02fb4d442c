package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

const requestTimeout = 15 * time.Second

// Client talks to the platform's REST API. All methods suspend the
// caller until the round trip completes and surface remote rejections
// as *APIError.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
}

// New creates a Client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		tokens:  &tokenSource{},
	}
}

// APIError is a remote-side rejection decoded from the platform's
// error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one authenticated request and decodes the response body
// into out (when out is non-nil). A 401 triggers a single token refresh
// and retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	retried := false
	for {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encoding request: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		token, err := c.tokens.accessToken(ctx, c)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !retried && c.tokens.canRefresh() {
			resp.Body.Close()
			if err := c.tokens.refresh(ctx, c); err != nil {
				return err
			}
			retried = true
			continue
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
}

// Health checks the platform's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListGuilds returns the guilds the authenticated user belongs to.
func (c *Client) ListGuilds(ctx context.Context) ([]models.Guild, error) {
	var resp struct {
		Data []models.Guild `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/@me/guilds", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListRoles returns all roles in a guild.
func (c *Client) ListRoles(ctx context.Context, guildID snowflake.ID) ([]models.Role, error) {
	var resp struct {
		Data []models.Role `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/guilds/%s/roles", guildID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListChannels returns all channels in a guild.
func (c *Client) ListChannels(ctx context.Context, guildID snowflake.ID) ([]models.Channel, error) {
	var resp struct {
		Data []models.Channel `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/guilds/%s/channels", guildID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetChannel returns a single channel by ID.
func (c *Client) GetChannel(ctx context.Context, channelID snowflake.ID) (*models.Channel, error) {
	var resp struct {
		Data models.Channel `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/channels/%s", channelID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetRole returns a single role by ID. The platform exposes no
// role-by-id endpoint, so this resolves against the guild listing.
func (c *Client) GetRole(ctx context.Context, guildID, roleID snowflake.ID) (*models.Role, error) {
	roles, err := c.ListRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].ID == roleID {
			return &roles[i], nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound, Code: "ROLE_NOT_FOUND", Message: fmt.Sprintf("no role %s in guild %s", roleID, guildID)}
}

// GetChannelOverrides fetches the channel's full overwrite map.
func (c *Client) GetChannelOverrides(ctx context.Context, channelID snowflake.ID) (permissions.OverwriteMap, error) {
	var resp struct {
		Data []models.ChannelOverride `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/channels/%s/permissions", channelID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	m := permissions.OverwriteMap{}
	for _, o := range resp.Data {
		m[o.RoleID] = permissions.Overwrite{
			Allow: permissions.Permission(o.Allow),
			Deny:  permissions.Permission(o.Deny),
		}
	}
	return m, nil
}

// SetChannelOverrides replaces the channel's entire overwrite map.
// Zero records are omitted, which deletes them remotely.
func (c *Client) SetChannelOverrides(ctx context.Context, channelID snowflake.ID, m permissions.OverwriteMap) error {
	overrides := make([]models.ChannelOverride, 0, len(m))
	for roleID, o := range m {
		if o.IsZero() {
			continue
		}
		overrides = append(overrides, models.ChannelOverride{
			ChannelID: channelID,
			RoleID:    roleID,
			Allow:     int64(o.Allow),
			Deny:      int64(o.Deny),
		})
	}
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].RoleID < overrides[j].RoleID })

	body := map[string]any{"overrides": overrides}
	path := fmt.Sprintf("/api/v1/channels/%s/permissions", channelID)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/victorivanov/permcast/internal/models"
	"github.com/victorivanov/permcast/internal/permissions"
	"github.com/victorivanov/permcast/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Fake platform server
// ---------------------------------------------------------------------------

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

type fakePlatform struct {
	t            *testing.T
	accessToken  string
	refreshToken string
	refreshes    atomic.Int64

	overrides map[snowflake.ID][]models.ChannelOverride
}

func (f *fakePlatform) routes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/api/v1/auth/login", func(c echo.Context) error {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Username != "alice" || req.Password != "password123" {
			return errorJSON(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"access_token":  f.accessToken,
			"refresh_token": f.refreshToken,
			"user":          models.User{ID: 1, Username: "alice"},
		})
	})

	e.POST("/api/v1/auth/refresh", func(c echo.Context) error {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.RefreshToken != f.refreshToken {
			return errorJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "unknown refresh token")
		}
		f.refreshes.Add(1)
		f.accessToken = signedToken(f.t, time.Hour)
		return c.JSON(http.StatusOK, map[string]any{
			"access_token":  f.accessToken,
			"refresh_token": f.refreshToken,
		})
	})

	authed := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "Bearer "+f.accessToken {
				return errorJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token")
			}
			return next(c)
		}
	})

	authed.GET("/api/v1/users/@me/guilds", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"data": []models.Guild{
			{ID: 100, Name: "Demo Server", OwnerID: 1},
		}})
	})

	authed.GET("/api/v1/guilds/:id/roles", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"data": []models.Role{
			{ID: 200, GuildID: 100, Name: "@everyone", IsDefault: true},
			{ID: 201, GuildID: 100, Name: "Moderators", Position: 1},
		}})
	})

	authed.GET("/api/v1/channels/:id/permissions", func(c echo.Context) error {
		id, err := snowflake.Parse(c.Param("id"))
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
		}
		data := f.overrides[id]
		if data == nil {
			data = []models.ChannelOverride{}
		}
		return c.JSON(http.StatusOK, map[string]any{"data": data})
	})

	authed.PUT("/api/v1/channels/:id/permissions", func(c echo.Context) error {
		id, err := snowflake.Parse(c.Param("id"))
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
		}
		var req struct {
			Overrides []models.ChannelOverride `json:"overrides"`
		}
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		f.overrides[id] = req.Overrides
		return c.JSON(http.StatusOK, map[string]any{"data": req.Overrides})
	})
}

func newFakePlatform(t *testing.T) (*fakePlatform, *Client) {
	t.Helper()
	f := &fakePlatform{
		t:            t,
		accessToken:  signedToken(t, time.Hour),
		refreshToken: "refresh-token-1",
		overrides:    map[snowflake.ID][]models.ChannelOverride{},
	}
	e := echo.New()
	f.routes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return f, New(srv.URL)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestLoginStoresTokens(t *testing.T) {
	_, c := newFakePlatform(t)

	user, err := c.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected user alice, got %q", user.Username)
	}

	guilds, err := c.ListGuilds(context.Background())
	if err != nil {
		t.Fatalf("list guilds: %v", err)
	}
	if len(guilds) != 1 || guilds[0].Name != "Demo Server" {
		t.Errorf("unexpected guilds: %+v", guilds)
	}
}

func TestLoginRejectedIsAPIError(t *testing.T) {
	_, c := newFakePlatform(t)

	_, err := c.Login(context.Background(), "alice", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "INVALID_CREDENTIALS" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	f, c := newFakePlatform(t)
	// Issue a token that is already inside the refresh window.
	f.accessToken = signedToken(t, 5*time.Second)

	if _, err := c.Login(context.Background(), "alice", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := c.ListGuilds(context.Background()); err != nil {
		t.Fatalf("list guilds: %v", err)
	}
	if f.refreshes.Load() == 0 {
		t.Error("expected client to refresh a near-expiry token before the request")
	}
}

func TestRetryOnceAfter401(t *testing.T) {
	f, c := newFakePlatform(t)

	if _, err := c.Login(context.Background(), "alice", "password123"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Invalidate the server-side token without telling the client. The
	// client's copy still looks fresh, so only the 401 path can save it.
	// Use a different expiry: JWT timestamps have one-second precision,
	// so an identical duration signed in the same second would yield the
	// exact same token and rotate nothing.
	f.accessToken = signedToken(t, 2*time.Hour)

	if _, err := c.ListGuilds(context.Background()); err != nil {
		t.Fatalf("expected retry after 401 to succeed, got %v", err)
	}
	if f.refreshes.Load() != 1 {
		t.Errorf("expected exactly one refresh, got %d", f.refreshes.Load())
	}
}

func TestStaticTokenNeverRefreshes(t *testing.T) {
	f, c := newFakePlatform(t)
	c.UseToken(f.accessToken)

	if _, err := c.ListGuilds(context.Background()); err != nil {
		t.Fatalf("list guilds with static token: %v", err)
	}

	f.accessToken = "rotated"
	_, err := c.ListGuilds(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without refresh, got %v", err)
	}
	if f.refreshes.Load() != 0 {
		t.Error("static token must not trigger refresh")
	}
}

func TestOverrideRoundTrip(t *testing.T) {
	f, c := newFakePlatform(t)
	c.UseToken(f.accessToken)
	ctx := context.Background()
	channelID := snowflake.ID(300)

	want := permissions.OverwriteMap{
		snowflake.ID(200): {Allow: permissions.PermViewChannel, Deny: permissions.PermSendMessages},
		snowflake.ID(201): {Deny: permissions.PermConnect},
	}
	if err := c.SetChannelOverrides(ctx, channelID, want); err != nil {
		t.Fatalf("set overrides: %v", err)
	}

	got, err := c.GetChannelOverrides(ctx, channelID)
	if err != nil {
		t.Fatalf("get overrides: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("round trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestSetOverridesOmitsZeroRecords(t *testing.T) {
	f, c := newFakePlatform(t)
	c.UseToken(f.accessToken)
	ctx := context.Background()
	channelID := snowflake.ID(301)

	m := permissions.OverwriteMap{
		snowflake.ID(200): {Allow: permissions.PermViewChannel},
		snowflake.ID(201): {},
	}
	if err := c.SetChannelOverrides(ctx, channelID, m); err != nil {
		t.Fatalf("set overrides: %v", err)
	}
	if len(f.overrides[channelID]) != 1 {
		t.Errorf("expected zero record to be omitted, got %+v", f.overrides[channelID])
	}
}

func TestGetOverridesEmptyChannel(t *testing.T) {
	f, c := newFakePlatform(t)
	c.UseToken(f.accessToken)

	got, err := c.GetChannelOverrides(context.Background(), snowflake.ID(999))
	if err != nil {
		t.Fatalf("get overrides: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %+v", got)
	}
}

func TestHealth(t *testing.T) {
	_, c := newFakePlatform(t)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestGetRoleResolvesFromListing(t *testing.T) {
	f, c := newFakePlatform(t)
	c.UseToken(f.accessToken)

	role, err := c.GetRole(context.Background(), snowflake.ID(100), snowflake.ID(201))
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role.Name != "Moderators" {
		t.Errorf("role name = %q, want Moderators", role.Name)
	}

	_, err = c.GetRole(context.Background(), snowflake.ID(100), snowflake.ID(999))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "ROLE_NOT_FOUND" {
		t.Errorf("expected ROLE_NOT_FOUND, got %v", err)
	}
}

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"quill/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	users map[uint]*models.User
}

func (s *stubUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *stubUsers) GetByEmail(_ context.Context, _ string) (*models.User, error) {
	return nil, nil
}

func (s *stubUsers) GetByUsername(_ context.Context, _ string) (*models.User, error) {
	return nil, nil
}

func (s *stubUsers) Create(_ context.Context, _ *models.User) error { return nil }
func (s *stubUsers) Update(_ context.Context, _ *models.User) error { return nil }
func (s *stubUsers) Delete(_ context.Context, _ uint) error         { return nil }

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	sess := &Session{ID: "abc", UserID: 7, Flash: []Flash{{Category: "success", Message: "hi"}}}
	require.NoError(t, store.Save(ctx, sess))

	// Sessions carry a TTL so idle ones expire server-side.
	assert.Greater(t, mr.TTL("sess:abc").Seconds(), 0.0)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(7), got.UserID)
	require.Len(t, got.Flash, 1)
	assert.Equal(t, "hi", got.Flash[0].Message)

	require.NoError(t, store.Delete(ctx, "abc"))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "short", UserID: 1}))
	mr.FastForward(TTL + 1)

	got, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreIsolatesFlashCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "x", Flash: []Flash{{Category: "success", Message: "one"}}}))

	first, err := store.Get(ctx, "x")
	require.NoError(t, err)
	first.Flash[0].Message = "mutated"

	second, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "one", second.Flash[0].Message)

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRememberTokenRoundTrip(t *testing.T) {
	m := NewManager(NewMemoryStore(), &stubUsers{}, "test-secret", false)

	token, err := m.signRememberToken(42)
	require.NoError(t, err)

	userID, ok := m.parseRememberToken(token)
	assert.True(t, ok)
	assert.Equal(t, uint(42), userID)

	// Wrong key, garbage, and empty tokens all fail closed.
	other := NewManager(NewMemoryStore(), &stubUsers{}, "other-secret", false)
	_, ok = other.parseRememberToken(token)
	assert.False(t, ok)
	_, ok = m.parseRememberToken("not-a-token")
	assert.False(t, ok)
	_, ok = m.parseRememberToken("")
	assert.False(t, ok)
}

func newSessionTestApp(t *testing.T, m *Manager, user *models.User) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Post("/login", func(c *fiber.Ctx) error {
		remember := c.Query("remember") == "1"
		if err := m.Login(c, user, remember); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		current := CurrentUser(c)
		if current == nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(current.Username)
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		if err := m.Logout(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func cookieValue(t *testing.T, resp *http.Response, name string) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestLoginLogoutFlow(t *testing.T) {
	user := &models.User{ID: 5, Username: "alice"}
	m := NewManager(NewMemoryStore(), &stubUsers{users: map[uint]*models.User{5: user}}, "test-secret", false)
	app := newSessionTestApp(t, m, user)

	// Anonymous request has no user.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Login sets the session cookie.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	sessionID := cookieValue(t, resp, CookieName)
	require.NotEmpty(t, sessionID)
	assert.Empty(t, cookieValue(t, resp, RememberCookieName))

	// The cookie resolves back to the user.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sessionID})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout destroys the server-side session; replaying the old cookie no
	// longer authenticates.
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sessionID})
	_, err = app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sessionID})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRememberTokenRestoresSession(t *testing.T) {
	user := &models.User{ID: 9, Username: "bob"}
	m := NewManager(NewMemoryStore(), &stubUsers{users: map[uint]*models.User{9: user}}, "test-secret", false)
	app := newSessionTestApp(t, m, user)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login?remember=1", nil))
	require.NoError(t, err)
	rememberToken := cookieValue(t, resp, RememberCookieName)
	require.NotEmpty(t, rememberToken)

	// Only the remember cookie survives a client restart; a new session is
	// minted from it.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: RememberCookieName, Value: rememberToken})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, cookieValue(t, resp, CookieName))
}

func TestFlashShowsExactlyOnce(t *testing.T) {
	user := &models.User{ID: 3, Username: "carol"}
	m := NewManager(NewMemoryStore(), &stubUsers{users: map[uint]*models.User{3: user}}, "test-secret", false)

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/add", func(c *fiber.Ctx) error {
		m.AddFlash(c, "success", "saved")
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/pop", func(c *fiber.Ctx) error {
		flashes := m.PopFlashes(c)
		return c.JSON(flashes)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/add", nil))
	require.NoError(t, err)
	sessionID := cookieValue(t, resp, CookieName)
	require.NotEmpty(t, sessionID, "flashing without a session should create one")

	req := httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sessionID})
	resp, err = app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 256)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "saved")

	// Second read comes back empty.
	req = httptest.NewRequest(http.MethodGet, "/pop", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sessionID})
	resp, err = app.Test(req)
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.NotContains(t, string(body[:n]), "saved")
}

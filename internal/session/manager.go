package session

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName carries the session ID.
	CookieName = "quill_session"
	// RememberCookieName carries the long-lived remember-me token.
	RememberCookieName = "quill_remember"

	rememberTTL = 30 * 24 * time.Hour
	issuer      = "quill"

	localsSession = "session"
	localsUser    = "currentUser"
)

// Manager binds requests to sessions and resolves the current user.
type Manager struct {
	store  Store
	users  repository.UserRepository
	secret []byte
	secure bool
}

// NewManager creates a session manager. secure controls the cookie Secure flag.
func NewManager(store Store, users repository.UserRepository, secret string, secure bool) *Manager {
	return &Manager{store: store, users: users, secret: []byte(secret), secure: secure}
}

// Middleware resolves the session cookie (or, failing that, the remember-me
// token) into the current user. The bound user ID is re-resolved against the
// user store on every request; an ID that no longer resolves is treated as
// anonymous and the stale session is destroyed.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := m.loadSession(c)
		if sess == nil {
			if userID, ok := m.parseRememberToken(c.Cookies(RememberCookieName)); ok {
				var err error
				sess, err = m.startSession(c, userID)
				if err != nil {
					middleware.Logger.ErrorContext(c.UserContext(), "failed to restore remembered session",
						slog.String("error", err.Error()))
					sess = nil
				}
			}
		}

		if sess != nil {
			c.Locals(localsSession, sess)
			if sess.UserID != 0 {
				user, err := m.users.GetByID(c.Context(), sess.UserID)
				if err != nil {
					if models.IsCode(err, models.ErrCodeNotFound) {
						// Bound user vanished; drop the binding.
						_ = m.Logout(c)
					} else {
						return err
					}
				} else {
					c.Locals(localsUser, user)
					c.Locals("userID", user.ID)
				}
			}
		}

		return c.Next()
	}
}

// CurrentUser returns the resolved user for this request, or nil when anonymous.
func CurrentUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(localsUser).(*models.User); ok {
		return user
	}
	return nil
}

// Login binds the session to the user. With remember set, a signed long-lived
// token cookie re-establishes the session across client restarts.
func (m *Manager) Login(c *fiber.Ctx, user *models.User, remember bool) error {
	// Fresh session ID on privilege change.
	if old := m.loadSession(c); old != nil {
		_ = m.store.Delete(c.Context(), old.ID)
	}

	sess, err := m.startSession(c, user.ID)
	if err != nil {
		return err
	}
	c.Locals(localsSession, sess)
	c.Locals(localsUser, user)
	c.Locals("userID", user.ID)

	if remember {
		token, err := m.signRememberToken(user.ID)
		if err != nil {
			return err
		}
		m.setCookie(c, RememberCookieName, token, time.Now().Add(rememberTTL))
	}
	return nil
}

// Logout destroys the session and clears both cookies.
func (m *Manager) Logout(c *fiber.Ctx) error {
	if sess := m.loadSession(c); sess != nil {
		if err := m.store.Delete(c.Context(), sess.ID); err != nil {
			return err
		}
	}
	c.Locals(localsSession, nil)
	c.Locals(localsUser, nil)
	m.clearCookie(c, CookieName)
	m.clearCookie(c, RememberCookieName)
	return nil
}

// AddFlash queues a one-shot notice for the next rendered page. A session is
// created on demand so anonymous visitors can receive notices too.
func (m *Manager) AddFlash(c *fiber.Ctx, category, message string) {
	sess := m.currentSession(c)
	if sess == nil {
		var err error
		sess, err = m.startSession(c, 0)
		if err != nil {
			middleware.Logger.ErrorContext(c.UserContext(), "failed to create flash session",
				slog.String("error", err.Error()))
			return
		}
		c.Locals(localsSession, sess)
	}
	sess.Flash = append(sess.Flash, Flash{Category: category, Message: message})
	if err := m.store.Save(c.Context(), sess); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to save flash",
			slog.String("error", err.Error()))
	}
}

// PopFlashes drains queued notices for rendering.
func (m *Manager) PopFlashes(c *fiber.Ctx) []Flash {
	sess := m.currentSession(c)
	if sess == nil || len(sess.Flash) == 0 {
		return nil
	}
	flashes := sess.Flash
	sess.Flash = nil
	if err := m.store.Save(c.Context(), sess); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to clear flashes",
			slog.String("error", err.Error()))
	}
	return flashes
}

func (m *Manager) currentSession(c *fiber.Ctx) *Session {
	if sess, ok := c.Locals(localsSession).(*Session); ok {
		return sess
	}
	return m.loadSession(c)
}

func (m *Manager) loadSession(c *fiber.Ctx) *Session {
	id := c.Cookies(CookieName)
	if id == "" {
		return nil
	}
	sess, err := m.store.Get(c.Context(), id)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "session store read failed",
			slog.String("error", err.Error()))
		return nil
	}
	return sess
}

func (m *Manager) startSession(c *fiber.Ctx, userID uint) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), UserID: userID}
	if err := m.store.Save(c.Context(), sess); err != nil {
		return nil, err
	}
	// Session-scoped cookie: no Expires, cleared when the client context ends.
	m.setCookie(c, CookieName, sess.ID, time.Time{})
	return sess, nil
}

func (m *Manager) signRememberToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": issuer,
		"iat": now.Unix(),
		"exp": now.Add(rememberTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parseRememberToken(tokenString string) (uint, bool) {
	if tokenString == "" {
		return 0, false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

func (m *Manager) setCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

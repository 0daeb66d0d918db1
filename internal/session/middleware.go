package session

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"shopagg/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CookieName is the session cookie.
const CookieName = "sessionid"

const localsKey = "session"

// Options configure the session cookie.
type Options struct {
	TTL    time.Duration
	Secure bool
}

// Middleware loads the session named by the cookie (or starts a new one),
// exposes it through FromContext, and saves it after the handler if it changed.
// A store outage degrades to a throwaway session for the request.
func Middleware(store Store, opts Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		// Cookies aliases the pooled request buffer; the ID outlives the request.
		cookieID := strings.Clone(c.Cookies(CookieName))
		s := load(c, store, cookieID)

		c.Locals(localsKey, s)
		c.Locals("sessionID", s.ID)

		err := c.Next()

		saved := false
		if s.Dirty() {
			if saveErr := store.Save(ctx, s); saveErr != nil {
				middleware.Logger.ErrorContext(ctx, "Failed to save session",
					slog.String("session_id", s.ID), slog.String("error", saveErr.Error()))
			} else {
				saved = true
			}
		}
		if s.stored && (saved || s.ID != cookieID) {
			setCookie(c, s.ID, opts)
		}
		return err
	}
}

func load(c *fiber.Ctx, store Store, id string) *Session {
	if id == "" {
		return New()
	}
	if _, err := uuid.Parse(id); err != nil {
		return New()
	}

	s, err := store.Load(c.UserContext(), id)
	switch {
	case err == nil:
		return s
	case errors.Is(err, ErrNotFound):
		return New()
	default:
		middleware.Logger.WarnContext(c.UserContext(), "Session store unavailable",
			slog.String("error", err.Error()))
		return New()
	}
}

func setCookie(c *fiber.Ctx, id string, opts Options) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(opts.TTL),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromContext returns the request session. Outside Middleware it returns a
// detached empty session so callers never handle nil.
func FromContext(c *fiber.Ctx) *Session {
	if s, ok := c.Locals(localsKey).(*Session); ok {
		return s
	}
	s := New()
	c.Locals(localsKey, s)
	return s
}

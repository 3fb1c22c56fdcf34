package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const sessionLocal = "session"

// RequireAuth validates the bearer token and stores the session in Locals.
// WebSocket upgrades may pass the token as the "token" query parameter.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return errUnauthorized(c, "missing bearer token")
		}

		s, err := deps.Auth.Authenticate(token)
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}
		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

// RequireRole rejects authenticated sessions that lack role.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := currentSession(c)
		if s == nil {
			return errUnauthorized(c, "not authenticated")
		}
		if s.Role != role {
			return errForbidden(c, "requires "+string(role)+" privileges")
		}
		return c.Next()
	}
}

func currentSession(c *fiber.Ctx) *domain.Session {
	s, _ := c.Locals(sessionLocal).(*domain.Session)
	return s
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

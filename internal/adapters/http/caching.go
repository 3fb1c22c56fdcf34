package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRules maps path prefixes to Cache-Control values, first match wins.
// Everything behind authentication is private.
var cacheRules = []struct {
	prefix string
	value  string
}{
	{"/v1/health", "no-cache"},
	{"/v1/ready", "no-cache"},
	{"/metrics", "no-cache"},
	{"/v1/sessions", "no-store"},
	{"/v1/control", "no-store"},
	{"/v1/robot", "no-store"},
	{"/v1/auth", "no-store"},
	{"/v1/admin", "no-store"},
	{"/v1/statistics", "private, max-age=30"},
	{"/docs", "public, max-age=3600"},
	{"/v1/", "private, max-age=0, must-revalidate"},
}

// CachingMiddleware applies a default Cache-Control header to GET responses
// that did not set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		for _, r := range cacheRules {
			if strings.HasPrefix(path, r.prefix) {
				c.Set(fiber.HeaderCacheControl, r.value)
				break
			}
		}
		return err
	}
}

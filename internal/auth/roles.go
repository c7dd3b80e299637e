package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireAuthenticated ensures the caller holds a valid session. Action
// authorization stays with the lifecycle engine; routes only gate on having
// an identity at all.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireLevel ensures the caller's directory approval level is at least
// minLevel. Used for administrative surfaces (assignee listings), never for
// lifecycle actions.
func RequireLevel(minLevel int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.Employee.ApprovalLevel < minLevel {
			return fiber.NewError(http.StatusForbidden, "insufficient approval level")
		}
		return c.Next()
	}
}

package middleware

import (
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// PrincipalKey is the Locals key holding the *services.Principal of an
// admin request.
const PrincipalKey = "principal"

// AdminRequired runs after JWTProtected and resolves the token to an admin
// principal.
func AdminRequired(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c)
		}

		// Same checks as the moderation path: expiry is mandatory and the
		// allowlist applies.
		principal, err := auth.VerifyToken(token.Raw)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(PrincipalKey, principal)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

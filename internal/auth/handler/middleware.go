package handler

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	"github.com/nuvemautoma/hot-class/pkg/constant"
)

// RequireAuth verifies the bearer access token and stores its claims in the
// request locals.
func RequireAuth(tokens service.TokenGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(authHeader, constant.DefaultTokenType+" ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed token"})
		}

		claims, err := tokens.VerifyAccessToken(strings.TrimSpace(token))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(constant.ClaimsLocalKey, claims)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed token"})
		}
		if !slices.Contains(roles, claims.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}

func ClaimsFrom(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals(constant.ClaimsLocalKey).(*service.JWTCustomClaims)
	return claims
}

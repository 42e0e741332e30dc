package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/VolunteerHub/pkg/utils"
)

const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

var errMissingToken = errors.New("missing token")

func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		if err := authenticate(c, tokenString, secret); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		return c.Next()
	}
}

// QueryOrHeaderAuth accepts the token from the "token" query parameter,
// falling back to the Authorization header. Browsers cannot set headers on
// websocket upgrades.
func QueryOrHeaderAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := strings.TrimSpace(c.Query("token"))
		if tokenString == "" {
			tokenString, _ = bearerToken(c.Get("Authorization"))
		}

		err := errMissingToken
		if tokenString != "" {
			err = authenticate(c, tokenString, secret)
		}
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(header), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *fiber.Ctx, tokenString, secret string) error {
	claims, err := utils.ValidateToken(tokenString, secret)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return errors.New("invalid user id claim")
	}

	c.Locals(LocalUserID, userID)
	c.Locals(LocalRole, claims.Role)
	return nil
}

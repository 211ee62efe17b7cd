package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/storeit/internal/service"
)

// Context keys for storing session info
const (
	UserIDKey    = "userID"
	EmailKey     = "email"
	AccountIDKey = "accountID"
)

// RequireSession validates the access token and stores its claims in the request locals
func RequireSession(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "missing authorization token",
			})
		}

		claims, err := service.ParseAccessToken(tokenString, jwtSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid or expired token",
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(EmailKey, claims.Email)
		c.Locals(AccountIDKey, claims.AccountID)

		return c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}

// GetUserID extracts the user ID from Fiber context
// Should only be called after RequireSession
func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(UserIDKey).(string)
	return userID
}

// GetEmail returns the signed-in user's email
func GetEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(EmailKey).(string)
	return email
}

func GetAccountID(c *fiber.Ctx) string {
	accountID, _ := c.Locals(AccountIDKey).(string)
	return accountID
}

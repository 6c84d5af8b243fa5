package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"freesend/utils"
)

// APIKeyAuth requires a valid frs_ sending credential and stores the resolved
// key record in the request context.
func APIKeyAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key required",
			})
		}

		key, err := utils.VerifyAPIKey(db, token)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify API key",
			})
		}
		if key == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		c.Locals("apiKey", key)
		return c.Next()
	}
}

// EmailLogAuth accepts either a sending API key or a user session token, for
// endpoints serving both audiences. An API key scopes the request to its one
// domain; a user token scopes it to all owned domains.
func EmailLogAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		if strings.HasPrefix(token, utils.APIKeyPrefix+"_") {
			key, err := utils.VerifyAPIKey(db, token)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to verify API key",
				})
			}
			if key == nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
			c.Locals("apiKey", key)
			return c.Next()
		}

		user, err := resolveUser(db, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

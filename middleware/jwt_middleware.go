package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/utils"
)

// Protected requires a valid user session token and loads the user into the
// request context.
func Protected(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		user, err := resolveUser(db, token)
		if err != nil {
			code := fiber.StatusUnauthorized
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		c.Locals("user", user)
		c.Locals("userID", user.ID)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", false
	}
	return tokenParts[1], true
}

func resolveUser(db *gorm.DB, token string) (*models.User, error) {
	claims, err := utils.ParseJWTToken(token)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found")
	}

	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "Account is not active")
	}
	return &user, nil
}

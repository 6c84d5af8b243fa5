package utils

import (
	"github.com/gofiber/fiber/v2"

	"freesend/config"
)

// ErrorResponse creates a standardized error response. Underlying error
// details are attached only outside production; unclassified server errors
// are also reported to Sentry.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	if status >= fiber.StatusInternalServerError && err != nil {
		LogError("request_failed", err, map[string]interface{}{
			"path":   c.Path(),
			"status": status,
		})
	}

	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil && !config.IsProduction() {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

const maxPageLimit = 100

// NormalizePagination clamps page/limit query values: page defaults to 1,
// limit defaults to 20 and is capped at 100.
func NormalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// TotalPages computes the page count for a result set.
func TotalPages(total int64, limit int) int64 {
	if total == 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return pages
}

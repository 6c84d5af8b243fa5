package controller

import (
	"github.com/gofiber/fiber/v2"

	"freesend/models"
	"freesend/utils"
)

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ListEmailLogs serves both audiences: an API key sees only its own domain's
// logs, a user token sees logs across every domain the user owns.
func (ec *EmailController) ListEmailLogs(c *fiber.Ctx) error {
	page, limit := utils.NormalizePagination(c.QueryInt("page", 1), c.QueryInt("limit", 20))

	query := ec.DB.Model(&models.EmailLog{})

	if key, ok := c.Locals("apiKey").(*models.APIKey); ok {
		query = query.Where("domain_id = ?", key.DomainID)
	} else {
		user := c.Locals("user").(*models.User)
		query = query.Where("domain_id IN (?)",
			ec.DB.Model(&models.Domain{}).Select("id").Where("user_id = ?", user.ID))

		if domainID := c.QueryInt("domain_id", 0); domainID > 0 {
			query = query.Where("domain_id = ?", domainID)
		}
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count email logs", err)
	}

	var logs []models.EmailLog
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch email logs", err)
	}

	if logs == nil {
		logs = []models.EmailLog{}
	}

	return c.JSON(fiber.Map{
		"emails": logs,
		"pagination": PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: utils.TotalPages(total, limit),
		},
	})
}

// GetEmailLog returns one log row. Ownership is enforced through the domain
// linkage; a log the caller does not own is a plain 404.
func (ec *EmailController) GetEmailLog(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var emailLog models.EmailLog
	err := ec.DB.
		Joins("JOIN domains ON domains.id = email_logs.domain_id").
		Where("email_logs.id = ? AND domains.user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&emailLog).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Email not found", nil)
	}

	return c.JSON(fiber.Map{"email": emailLog})
}

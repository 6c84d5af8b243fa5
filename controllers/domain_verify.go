package controller

import (
	"github.com/gofiber/fiber/v2"

	"freesend/models"
	"freesend/utils"
)

// VerifyDomain asks the delivery provider for the domain's current
// verification state and persists a change if there is one. Verification is
// pull-based; the provider never pushes status to us.
func (dc *DomainController) VerifyDomain(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	domain, err := dc.findOwnedDomain(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Domain not found", nil)
	}

	checker := utils.NewDomainChecker(dc.DB, dc.Mailer, dc.Logger)
	status, err := checker.CheckDomain(c.Context(), domain)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check verification status", err)
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"verified": status == models.DomainStatusVerified,
	})
}

package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/provider"
	"freesend/utils"
)

type DomainController struct {
	DB     *gorm.DB
	Mailer provider.DeliveryProvider
	DNS    *provider.DNSManager // nil when no DNS provider credential is configured
	Region string
	Logger *logrus.Logger
}

func NewDomainController(db *gorm.DB, mailer provider.DeliveryProvider, dns *provider.DNSManager, region string, logger *logrus.Logger) *DomainController {
	return &DomainController{
		DB:     db,
		Mailer: mailer,
		DNS:    dns,
		Region: region,
		Logger: logger,
	}
}

func (dc *DomainController) ListDomains(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var domains []models.Domain
	if err := dc.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&domains).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch domains", err)
	}

	return c.JSON(fiber.Map{"domains": domains})
}

func (dc *DomainController) GetDomain(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	domain, err := dc.findOwnedDomain(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Domain not found", nil)
	}

	return c.JSON(fiber.Map{"domain": domain})
}

func (dc *DomainController) DeleteDomain(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	domain, err := dc.findOwnedDomain(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Domain not found", nil)
	}

	// Best-effort provider cleanup before the row (and its keys) go away
	dc.Mailer.DeleteDomain(c.Context(), domain.Name, domain.SESConfigurationSet)

	if err := dc.DB.Delete(domain).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete domain", err)
	}

	dc.Logger.WithField("domain", domain.Name).Info("domain deleted")

	return c.JSON(fiber.Map{"message": "Domain deleted"})
}

// findOwnedDomain resolves a domain id to a row owned by the caller. Not
// found and not owned are indistinguishable on purpose.
func (dc *DomainController) findOwnedDomain(id string, userID uint) (*models.Domain, error) {
	var domain models.Domain
	if err := dc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(id), userID).First(&domain).Error; err != nil {
		return nil, err
	}
	return &domain, nil
}

package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/provider"
	"freesend/utils"
)

type CreateDomainRequest struct {
	Name string `json:"name" validate:"required,max=253"`
}

type CreateDomainResponse struct {
	Domain              *models.Domain            `json:"domain"`
	DNSRecords          []models.DNSRecord        `json:"dnsRecords"`
	SESConfigurationSet string                    `json:"sesConfigurationSet"`
	DigitalOceanRecords *provider.ReconcileResult `json:"digitalOceanRecords,omitempty"`
	SetupInstructions   []string                  `json:"setupInstructions"`
}

// CreateDomain runs the provisioning workflow: validate, register the
// identity with the delivery provider (fatal on failure), enable DKIM
// (non-fatal), create the event configuration set, generate the record set,
// optionally auto-create records on the DNS provider, persist the domain as
// pending. Only the provider verification call can abort the whole operation.
func (dc *DomainController) CreateDomain(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateDomainRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !utils.IsValidDomainName(req.Name) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid domain name", nil)
	}

	// Domain names are unique system-wide, not per user
	var existing models.Domain
	if err := dc.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Domain already registered", nil)
	}

	verificationToken, err := dc.Mailer.VerifyDomain(c.Context(), req.Name)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to register domain with delivery provider", err)
	}

	// DKIM is deferred to manual setup when the provider call fails
	dkimTokens, err := dc.Mailer.EnableDKIM(c.Context(), req.Name)
	if err != nil {
		dc.Logger.WithError(err).WithField("domain", req.Name).Warn("DKIM enablement failed, continuing without DKIM")
		dkimTokens = nil
	}

	configSet := ConfigurationSetName(req.Name)
	if err := dc.Mailer.CreateConfigurationSet(c.Context(), configSet); err != nil {
		// Non-fatal, but event routing is broken until an operator intervenes
		utils.LogError("configuration_set_failed", err, map[string]interface{}{
			"domain":            req.Name,
			"configuration_set": configSet,
		})
	}

	records := utils.GenerateDNSRecords(req.Name, verificationToken, dc.Region, dkimTokens)

	var (
		reconcile *provider.ReconcileResult
		doManaged bool
	)
	if dc.DNS != nil {
		managed, err := dc.DNS.IsManaged(c.Context(), req.Name)
		if err != nil {
			dc.Logger.WithError(err).WithField("domain", req.Name).Warn("DNS provider lookup failed, falling back to manual setup")
		} else if managed {
			doManaged = true
			reconcile, err = dc.DNS.EnsureRecords(c.Context(), req.Name, records)
			if err != nil {
				dc.Logger.WithError(err).WithField("domain", req.Name).Warn("DNS record reconciliation failed, falling back to manual setup")
				doManaged = false
				reconcile = nil
			}
		}
	}

	var instructions []string
	if doManaged {
		instructions = []string{"DNS records were created automatically. Verification usually completes within a few minutes."}
	} else {
		instructions = utils.ManualSetupInstructions(records)
	}

	domain := models.Domain{
		UserID:              user.ID,
		Name:                req.Name,
		Status:              models.DomainStatusPending,
		SESIdentity:         req.Name,
		SESConfigurationSet: configSet,
		VerificationToken:   verificationToken,
		DOManaged:           doManaged,
		DNSRecords:          records,
	}
	if doManaged {
		domain.DODomainName = utils.Pointer(req.Name)
	}

	if err := dc.DB.Create(&domain).Error; err != nil {
		// Two concurrent registrations can both pass the lookup above; the
		// unique index on name decides the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Domain already registered", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save domain", err)
	}

	dc.Logger.WithFields(logrus.Fields{
		"domain":     domain.Name,
		"dkim":       len(dkimTokens) > 0,
		"do_managed": doManaged,
	}).Info("domain provisioned")

	return c.Status(fiber.StatusCreated).JSON(CreateDomainResponse{
		Domain:              &domain,
		DNSRecords:          records,
		SESConfigurationSet: configSet,
		DigitalOceanRecords: reconcile,
		SetupInstructions:   instructions,
	})
}

// ConfigurationSetName derives the per-domain configuration set name used to
// route delivery events back to the owning domain.
func ConfigurationSetName(domain string) string {
	return "freesend-" + strings.ReplaceAll(domain, ".", "-")
}

package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/utils"
)

type APIKeyController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAPIKeyController(db *gorm.DB, logger *logrus.Logger) *APIKeyController {
	return &APIKeyController{DB: db, Logger: logger}
}

type CreateAPIKeyRequest struct {
	DomainID    uint     `json:"domain_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=100"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,oneof=send"`
}

type UpdateAPIKeyRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,oneof=send"`
}

func (kc *APIKeyController) ListAPIKeys(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var keys []models.APIKey
	if err := kc.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&keys).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch API keys", err)
	}

	return c.JSON(fiber.Map{"api_keys": keys})
}

// CreateAPIKey mints a new sending credential for one verified domain. The
// plaintext key appears in this response and nowhere else.
func (kc *APIKeyController) CreateAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var domain models.Domain
	if err := kc.DB.Where("id = ? AND user_id = ?", req.DomainID, user.ID).First(&domain).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Domain not found", nil)
	}

	if domain.Status != models.DomainStatusVerified {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Domain must be verified before creating API keys", nil)
	}

	generated, err := utils.GenerateAPIKey()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate API key", err)
	}

	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = []string{models.PermissionSend}
	}

	key := models.APIKey{
		UserID:      user.ID,
		DomainID:    domain.ID,
		Name:        req.Name,
		KeyPrefix:   generated.Prefix,
		KeyHash:     generated.Hash,
		Permissions: permissions,
	}

	if err := kc.DB.Create(&key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save API key", err)
	}

	kc.Logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"domain":  domain.Name,
		"prefix":  key.KeyPrefix,
	}).Info("API key created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key": key,
		// Returned exactly once; only the hash persists
		"key": generated.Plaintext,
	})
}

func (kc *APIKeyController) UpdateAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	key, err := kc.findOwnedKey(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "API key not found", nil)
	}

	if req.Name != nil {
		key.Name = *req.Name
	}
	if req.Permissions != nil {
		key.Permissions = req.Permissions
	}

	if err := kc.DB.Save(key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update API key", err)
	}

	return c.JSON(fiber.Map{"api_key": key})
}

func (kc *APIKeyController) DeleteAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	key, err := kc.findOwnedKey(c.Params("id"), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "API key not found", nil)
	}

	if err := kc.DB.Delete(key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to revoke API key", err)
	}

	kc.Logger.WithField("prefix", key.KeyPrefix).Info("API key revoked")

	return c.JSON(fiber.Map{"message": "API key revoked"})
}

// findOwnedKey scopes every mutation to the (key id, owning user) pair.
func (kc *APIKeyController) findOwnedKey(id string, userID uint) (*models.APIKey, error) {
	var key models.APIKey
	if err := kc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(id), userID).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

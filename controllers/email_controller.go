package controller

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/provider"
	"freesend/utils"
)

type EmailController struct {
	DB     *gorm.DB
	Mailer provider.DeliveryProvider
	Logger *logrus.Logger
}

func NewEmailController(db *gorm.DB, mailer provider.DeliveryProvider, logger *logrus.Logger) *EmailController {
	return &EmailController{DB: db, Mailer: mailer, Logger: logger}
}

type AttachmentRequest struct {
	Filename    string `json:"filename" validate:"required"`
	Content     string `json:"content" validate:"required"` // base64
	ContentType string `json:"content_type"`
}

type SendEmailRequest struct {
	From        string              `json:"from" validate:"required"`
	To          []string            `json:"to" validate:"required,min=1,dive,required"`
	CC          []string            `json:"cc" validate:"omitempty,dive,required"`
	BCC         []string            `json:"bcc" validate:"omitempty,dive,required"`
	Subject     string              `json:"subject" validate:"required"`
	HTML        string              `json:"html"`
	Text        string              `json:"text"`
	ReplyTo     string              `json:"reply_to"`
	Tags        map[string]string   `json:"tags"`
	Attachments []AttachmentRequest `json:"attachments" validate:"omitempty,dive"`
}

type SendEmailResponse struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// SendEmail relays one message through the delivery provider. The
// authorization chain is checked in a fixed order: the key's domain exists,
// the domain is verified, the from address belongs to that exact domain, the
// key carries the send permission. Every attempt is logged; a failed log
// insert never masks the send outcome.
func (ec *EmailController) SendEmail(c *fiber.Ctx) error {
	key := c.Locals("apiKey").(*models.APIKey)

	var req SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if req.HTML == "" && req.Text == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Either html or text content is required", nil)
	}
	if err := checkmail.ValidateFormat(req.From); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid from address", nil)
	}
	for _, addr := range allAddresses(req) {
		if err := checkmail.ValidateFormat(addr); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient address: "+addr, nil)
		}
	}

	var domain models.Domain
	if err := ec.DB.First(&domain, key.DomainID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Domain not found", nil)
	}

	if authErr := AuthorizeSend(key, &domain, req.From); authErr != nil {
		return utils.ErrorResponse(c, authErr.Code, authErr.Message, nil)
	}

	attachments, meta, err := decodeAttachments(req.Attachments)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid attachment content", err)
	}

	msg := &provider.OutboundEmail{
		From:             req.From,
		To:               req.To,
		CC:               req.CC,
		BCC:              req.BCC,
		Subject:          req.Subject,
		HTMLBody:         req.HTML,
		TextBody:         req.Text,
		ReplyTo:          req.ReplyTo,
		Attachments:      attachments,
		ConfigurationSet: domain.SESConfigurationSet,
		Tags:             req.Tags,
	}

	emailLog := models.EmailLog{
		APIKeyID:    utils.Pointer(key.ID),
		DomainID:    domain.ID,
		FromEmail:   req.From,
		To:          req.To,
		CC:          req.CC,
		BCC:         req.BCC,
		Subject:     req.Subject,
		HTMLBody:    req.HTML,
		TextBody:    req.Text,
		Attachments: meta,
	}

	messageID, sendErr := ec.Mailer.Send(c.Context(), msg)
	if sendErr != nil {
		emailLog.Status = models.EmailStatusFailed
		emailLog.ErrorMessage = sendErr.Error()
		if err := ec.DB.Create(&emailLog).Error; err != nil {
			ec.Logger.WithError(err).Warn("failed to record failed send attempt")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send email", sendErr)
	}

	emailLog.Status = models.EmailStatusSent
	emailLog.SESMessageID = messageID

	id := messageID
	if err := ec.DB.Create(&emailLog).Error; err != nil {
		// The message is already on its way; surface success, alert the operator
		utils.LogError("email_log_insert_failed", err, map[string]interface{}{
			"ses_message_id": messageID,
			"domain":         domain.Name,
		})
	} else {
		id = strconv.FormatUint(uint64(emailLog.ID), 10)
	}

	ec.Logger.WithFields(logrus.Fields{
		"domain":         domain.Name,
		"ses_message_id": messageID,
		"recipients":     len(req.To),
	}).Info("email sent")

	return c.Status(fiber.StatusCreated).JSON(SendEmailResponse{
		ID:        id,
		From:      req.From,
		To:        req.To,
		CreatedAt: time.Now().UTC(),
	})
}

// AuthorizeSend applies the send authorization chain in its fixed order and
// returns the first failure.
func AuthorizeSend(key *models.APIKey, domain *models.Domain, from string) *fiber.Error {
	if domain == nil || domain.ID == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Domain not found")
	}
	if domain.Status != models.DomainStatusVerified {
		return fiber.NewError(fiber.StatusBadRequest, "Domain is not verified")
	}
	if !strings.EqualFold(fromDomain(from), domain.Name) {
		return fiber.NewError(fiber.StatusBadRequest, "From address does not match the API key's domain")
	}
	if !key.HasPermission(models.PermissionSend) {
		return fiber.NewError(fiber.StatusForbidden, "API key does not have send permission")
	}
	return nil
}

// fromDomain extracts the domain part of an email address.
func fromDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return addr[at+1:]
}

func decodeAttachments(reqs []AttachmentRequest) ([]provider.OutboundAttachment, []models.Attachment, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}

	attachments := make([]provider.OutboundAttachment, 0, len(reqs))
	meta := make([]models.Attachment, 0, len(reqs))
	for _, a := range reqs {
		content, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, nil, err
		}
		attachments = append(attachments, provider.OutboundAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     content,
		})
		meta = append(meta, models.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        len(content),
		})
	}
	return attachments, meta, nil
}

func allAddresses(req SendEmailRequest) []string {
	addrs := make([]string, 0, len(req.To)+len(req.CC)+len(req.BCC))
	addrs = append(addrs, req.To...)
	addrs = append(addrs, req.CC...)
	addrs = append(addrs, req.BCC...)
	return addrs
}

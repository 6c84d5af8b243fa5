package controller

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/utils"
)

type WebhookController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewWebhookController(db *gorm.DB, logger *logrus.Logger) *WebhookController {
	return &WebhookController{DB: db, Logger: logger}
}

// snsEnvelope is the outer SNS notification wrapper.
type snsEnvelope struct {
	Type         string `json:"Type"`
	MessageId    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

// sesEvent is the inner SES delivery-status event. Event notifications carry
// eventType; older notification configurations carry notificationType.
type sesEvent struct {
	EventType        string `json:"eventType"`
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID string `json:"messageId"`
	} `json:"mail"`
	Bounce *struct {
		BouncedRecipients []struct {
			EmailAddress   string `json:"emailAddress"`
			DiagnosticCode string `json:"diagnosticCode"`
		} `json:"bouncedRecipients"`
	} `json:"bounce"`
	Complaint *struct {
		ComplainedRecipients []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"complainedRecipients"`
	} `json:"complaint"`
}

// HandleSESWebhook ingests asynchronous delivery-status notifications. The
// endpoint always answers 200: a failure while processing one event must not
// trigger provider-side redelivery storms.
func (wc *WebhookController) HandleSESWebhook(c *fiber.Ctx) error {
	var envelope snsEnvelope
	if err := json.Unmarshal(c.Body(), &envelope); err != nil {
		wc.Logger.WithError(err).Warn("unparseable webhook envelope")
		return c.JSON(fiber.Map{"message": "ignored"})
	}

	switch envelope.Type {
	case "SubscriptionConfirmation":
		wc.Logger.WithField("subscribe_url", envelope.SubscribeURL).Info("SNS subscription confirmation received")
		return c.JSON(fiber.Map{"message": "subscription noted"})
	case "Notification":
		wc.processNotification(envelope.Message)
		return c.JSON(fiber.Map{"message": "ok"})
	default:
		wc.Logger.WithField("type", envelope.Type).Warn("unknown webhook envelope type")
		return c.JSON(fiber.Map{"message": "ignored"})
	}
}

func (wc *WebhookController) processNotification(payload string) {
	var event sesEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		wc.Logger.WithError(err).Warn("unparseable SES event payload")
		wc.recordUnprocessed(nil, "", payload)
		return
	}

	status, errorMessage, terminal := MapSESEvent(&event)
	if !terminal {
		// Send, Open, Click and friends carry no status transition
		return
	}

	var emailLog models.EmailLog
	if err := wc.DB.Where("ses_message_id = ?", event.Mail.MessageID).First(&emailLog).Error; err != nil {
		// Never fabricate a log; keep the event for manual triage
		wc.recordUnprocessed(nil, eventTypeOf(&event), payload)
		wc.Logger.WithField("ses_message_id", event.Mail.MessageID).Warn("webhook event matched no email log")
		return
	}

	// A failed send never becomes delivered; everything else is
	// last-write-wins since the provider does not guarantee ordering.
	if emailLog.Status == models.EmailStatusFailed && status == models.EmailStatusDelivered {
		wc.Logger.WithField("email_log_id", emailLog.ID).Warn("ignoring delivery event for failed log")
		return
	}

	updates := map[string]interface{}{
		"status":               status,
		"error_message":        errorMessage,
		"last_webhook_payload": payload,
	}
	if err := wc.DB.Model(&emailLog).Updates(updates).Error; err != nil {
		wc.Logger.WithError(err).WithField("email_log_id", emailLog.ID).Error("failed to update email log from webhook")
		wc.recordUnprocessed(utils.Pointer(emailLog.ID), eventTypeOf(&event), payload)
		return
	}

	processed := models.WebhookEvent{
		EmailLogID: utils.Pointer(emailLog.ID),
		EventType:  eventTypeOf(&event),
		RawPayload: payload,
		Processed:  true,
	}
	if err := wc.DB.Create(&processed).Error; err != nil {
		wc.Logger.WithError(err).Warn("failed to append webhook event row")
	}

	wc.Logger.WithFields(logrus.Fields{
		"email_log_id": emailLog.ID,
		"event_type":   eventTypeOf(&event),
		"status":       status,
	}).Info("email status updated from webhook")
}

// recordUnprocessed keeps an event that could not be applied, so nothing the
// provider delivered is ever silently dropped.
func (wc *WebhookController) recordUnprocessed(emailLogID *uint, eventType, payload string) {
	row := models.WebhookEvent{
		EmailLogID: emailLogID,
		EventType:  eventType,
		RawPayload: payload,
		Processed:  false,
	}
	if err := wc.DB.Create(&row).Error; err != nil {
		wc.Logger.WithError(err).Error("failed to record unprocessed webhook event")
	}
}

// MapSESEvent maps a provider event onto the email log's status field. The
// third return is false for nonterminal event types, which are ignored.
func MapSESEvent(event *sesEvent) (status, errorMessage string, terminal bool) {
	switch strings.ToLower(eventTypeOf(event)) {
	case "delivery":
		return models.EmailStatusDelivered, "", true
	case "bounce":
		return models.EmailStatusBounced, bounceMessage(event), true
	case "complaint":
		return models.EmailStatusComplained, complaintMessage(event), true
	case "reject":
		return models.EmailStatusFailed, "Rejected by delivery provider", true
	default:
		return "", "", false
	}
}

func eventTypeOf(event *sesEvent) string {
	if event.EventType != "" {
		return event.EventType
	}
	return event.NotificationType
}

// bounceMessage concatenates every bounced recipient with its diagnostic code.
func bounceMessage(event *sesEvent) string {
	if event.Bounce == nil || len(event.Bounce.BouncedRecipients) == 0 {
		return "Bounced"
	}
	parts := make([]string, 0, len(event.Bounce.BouncedRecipients))
	for _, r := range event.Bounce.BouncedRecipients {
		if r.DiagnosticCode != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", r.EmailAddress, r.DiagnosticCode))
		} else {
			parts = append(parts, r.EmailAddress)
		}
	}
	return "Bounced: " + strings.Join(parts, "; ")
}

func complaintMessage(event *sesEvent) string {
	if event.Complaint == nil || len(event.Complaint.ComplainedRecipients) == 0 {
		return "Complaint received"
	}
	addrs := make([]string, 0, len(event.Complaint.ComplainedRecipients))
	for _, r := range event.Complaint.ComplainedRecipients {
		addrs = append(addrs, r.EmailAddress)
	}
	return "Complaint from: " + strings.Join(addrs, ", ")
}

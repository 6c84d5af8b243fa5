package controller

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"freesend/models"
)

func newWebhookController(t *testing.T) (*WebhookController, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWebhookController(db, logger), db
}

func seedEmailLog(t *testing.T, db *gorm.DB, status, messageID string) *models.EmailLog {
	t.Helper()

	user := models.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	domain := models.Domain{
		UserID: user.ID,
		Name:   "example.com",
		Status: models.DomainStatusVerified,
	}
	require.NoError(t, db.Create(&domain).Error)

	emailLog := models.EmailLog{
		DomainID:     domain.ID,
		FromEmail:    "hello@example.com",
		To:           []string{"rcpt@example.org"},
		Subject:      "hi",
		Status:       status,
		SESMessageID: messageID,
	}
	require.NoError(t, db.Create(&emailLog).Error)
	return &emailLog
}

func webhookEvents(t *testing.T, db *gorm.DB) []models.WebhookEvent {
	t.Helper()
	var events []models.WebhookEvent
	require.NoError(t, db.Find(&events).Error)
	return events
}

func TestProcessNotificationDeliveryUpdatesLog(t *testing.T) {
	wc, db := newWebhookController(t)
	emailLog := seedEmailLog(t, db, models.EmailStatusSent, "msg-1")

	payload := `{"eventType":"Delivery","mail":{"messageId":"msg-1"}}`
	wc.processNotification(payload)

	var got models.EmailLog
	require.NoError(t, db.First(&got, emailLog.ID).Error)
	assert.Equal(t, models.EmailStatusDelivered, got.Status)
	assert.Equal(t, payload, got.LastWebhookPayload)

	events := webhookEvents(t, db)
	require.Len(t, events, 1)
	assert.True(t, events[0].Processed)
	require.NotNil(t, events[0].EmailLogID)
	assert.Equal(t, emailLog.ID, *events[0].EmailLogID)
	assert.Equal(t, "Delivery", events[0].EventType)
}

func TestProcessNotificationBounceRecordsDiagnostics(t *testing.T) {
	wc, db := newWebhookController(t)
	emailLog := seedEmailLog(t, db, models.EmailStatusSent, "msg-2")

	payload := `{"eventType":"Bounce","mail":{"messageId":"msg-2"},` +
		`"bounce":{"bouncedRecipients":[{"emailAddress":"rcpt@example.org","diagnosticCode":"550 mailbox full"}]}}`
	wc.processNotification(payload)

	var got models.EmailLog
	require.NoError(t, db.First(&got, emailLog.ID).Error)
	assert.Equal(t, models.EmailStatusBounced, got.Status)
	assert.Equal(t, "Bounced: rcpt@example.org: 550 mailbox full", got.ErrorMessage)
}

func TestProcessNotificationFailedLogNeverBecomesDelivered(t *testing.T) {
	wc, db := newWebhookController(t)
	emailLog := seedEmailLog(t, db, models.EmailStatusFailed, "msg-3")

	wc.processNotification(`{"eventType":"Delivery","mail":{"messageId":"msg-3"}}`)

	var got models.EmailLog
	require.NoError(t, db.First(&got, emailLog.ID).Error)
	assert.Equal(t, models.EmailStatusFailed, got.Status)
	assert.Empty(t, got.LastWebhookPayload)
}

func TestProcessNotificationUnknownMessageIDKeptForTriage(t *testing.T) {
	wc, db := newWebhookController(t)
	emailLog := seedEmailLog(t, db, models.EmailStatusSent, "msg-4")

	payload := `{"eventType":"Delivery","mail":{"messageId":"no-such-id"}}`
	wc.processNotification(payload)

	var got models.EmailLog
	require.NoError(t, db.First(&got, emailLog.ID).Error)
	assert.Equal(t, models.EmailStatusSent, got.Status)

	events := webhookEvents(t, db)
	require.Len(t, events, 1)
	assert.False(t, events[0].Processed)
	assert.Nil(t, events[0].EmailLogID)
	assert.Equal(t, payload, events[0].RawPayload)
}

func TestProcessNotificationUnparseablePayloadKeptForTriage(t *testing.T) {
	wc, db := newWebhookController(t)

	payload := `{"eventType":`
	wc.processNotification(payload)

	events := webhookEvents(t, db)
	require.Len(t, events, 1)
	assert.False(t, events[0].Processed)
	assert.Equal(t, payload, events[0].RawPayload)
}

func TestProcessNotificationNonterminalLeavesNoTrace(t *testing.T) {
	wc, db := newWebhookController(t)
	emailLog := seedEmailLog(t, db, models.EmailStatusSent, "msg-5")

	wc.processNotification(`{"eventType":"Open","mail":{"messageId":"msg-5"}}`)

	var got models.EmailLog
	require.NoError(t, db.First(&got, emailLog.ID).Error)
	assert.Equal(t, models.EmailStatusSent, got.Status)
	assert.Empty(t, webhookEvents(t, db))
}

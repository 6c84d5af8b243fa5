package controller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freesend/models"
)

func parseEvent(t *testing.T, payload string) *sesEvent {
	t.Helper()
	var event sesEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	return &event
}

func TestMapSESEventDelivery(t *testing.T) {
	event := parseEvent(t, `{"eventType":"Delivery","mail":{"messageId":"m-1"}}`)

	status, errorMessage, terminal := MapSESEvent(event)
	assert.True(t, terminal)
	assert.Equal(t, models.EmailStatusDelivered, status)
	assert.Empty(t, errorMessage)
}

func TestMapSESEventBounceWithDiagnostics(t *testing.T) {
	event := parseEvent(t, `{
		"eventType": "Bounce",
		"mail": {"messageId": "m-2"},
		"bounce": {
			"bouncedRecipients": [
				{"emailAddress": "a@example.com", "diagnosticCode": "550 user unknown"},
				{"emailAddress": "b@example.com", "diagnosticCode": "552 mailbox full"}
			]
		}
	}`)

	status, errorMessage, terminal := MapSESEvent(event)
	assert.True(t, terminal)
	assert.Equal(t, models.EmailStatusBounced, status)
	assert.Contains(t, errorMessage, "a@example.com")
	assert.Contains(t, errorMessage, "550 user unknown")
	assert.Contains(t, errorMessage, "b@example.com")
	assert.Contains(t, errorMessage, "552 mailbox full")
}

func TestMapSESEventComplaint(t *testing.T) {
	event := parseEvent(t, `{
		"notificationType": "Complaint",
		"mail": {"messageId": "m-3"},
		"complaint": {"complainedRecipients": [{"emailAddress": "c@example.com"}]}
	}`)

	status, errorMessage, terminal := MapSESEvent(event)
	assert.True(t, terminal)
	assert.Equal(t, models.EmailStatusComplained, status)
	assert.Contains(t, errorMessage, "c@example.com")
}

func TestMapSESEventReject(t *testing.T) {
	event := parseEvent(t, `{"eventType":"Reject","mail":{"messageId":"m-4"}}`)

	status, errorMessage, terminal := MapSESEvent(event)
	assert.True(t, terminal)
	assert.Equal(t, models.EmailStatusFailed, status)
	assert.Equal(t, "Rejected by delivery provider", errorMessage)
}

func TestMapSESEventIgnoresNonterminalTypes(t *testing.T) {
	for _, eventType := range []string{"Send", "Open", "Click", "RenderingFailure", ""} {
		event := &sesEvent{EventType: eventType}
		_, _, terminal := MapSESEvent(event)
		assert.False(t, terminal, "event type %q should be ignored", eventType)
	}
}

func TestMapSESEventBounceWithoutRecipients(t *testing.T) {
	event := parseEvent(t, `{"eventType":"Bounce","mail":{"messageId":"m-5"}}`)

	status, errorMessage, terminal := MapSESEvent(event)
	assert.True(t, terminal)
	assert.Equal(t, models.EmailStatusBounced, status)
	assert.Equal(t, "Bounced", errorMessage)
}

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRawMessage(t *testing.T) {
	raw, err := buildRawMessage(&OutboundEmail{
		From:     "hello@example.com",
		To:       []string{"to@example.org"},
		CC:       []string{"cc@example.org"},
		BCC:      []string{"bcc@example.org"},
		Subject:  "Greetings",
		TextBody: "plain body",
		HTMLBody: "<p>html body</p>",
		ReplyTo:  "replies@example.com",
	})
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "From: hello@example.com")
	assert.Contains(t, msg, "To: to@example.org")
	assert.Contains(t, msg, "Cc: cc@example.org")
	assert.Contains(t, msg, "Reply-To: replies@example.com")
	assert.Contains(t, msg, "Subject: Greetings")
	assert.Contains(t, msg, "multipart/alternative")
	// BCC recipients go in the SES destination list, never in headers
	assert.NotContains(t, msg, "bcc@example.org")
}

func TestBuildRawMessageWithAttachment(t *testing.T) {
	raw, err := buildRawMessage(&OutboundEmail{
		From:     "hello@example.com",
		To:       []string{"to@example.org"},
		Subject:  "File attached",
		TextBody: "see attachment",
		Attachments: []OutboundAttachment{
			{Filename: "report.csv", ContentType: "text/csv", Content: []byte("a,b\n1,2\n")},
		},
	})
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "report.csv")
	assert.Contains(t, msg, "multipart/mixed")
}

func TestAllRecipients(t *testing.T) {
	recipients := allRecipients(&OutboundEmail{
		To:  []string{"a@x.com"},
		CC:  []string{"b@x.com"},
		BCC: []string{"c@x.com"},
	})
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, recipients)
}

func TestSanitizeTag(t *testing.T) {
	assert.Equal(t, "order_id", sanitizeTag("order_id"))
	assert.Equal(t, "my_tag_value", sanitizeTag("my tag value"))
	assert.Equal(t, "user_example_com", sanitizeTag("user@example.com"))
}

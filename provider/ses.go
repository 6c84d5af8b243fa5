package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"freesend/models"
)

// DeliveryProvider is the surface of the cloud mail service the workflows
// depend on. The SES client implements it; tests substitute fakes.
type DeliveryProvider interface {
	// VerifyDomain registers the domain identity and returns the TXT
	// verification token the owner must publish.
	VerifyDomain(ctx context.Context, domain string) (string, error)

	// EnableDKIM requests DKIM signing for the domain and returns the CNAME
	// tokens to publish.
	EnableDKIM(ctx context.Context, domain string) ([]string, error)

	// CreateConfigurationSet creates the event-routing configuration set the
	// domain's outgoing mail is tagged with.
	CreateConfigurationSet(ctx context.Context, name string) error

	// VerificationStatus maps the provider's verification state onto the
	// domain status enum (pending, verified, failed).
	VerificationStatus(ctx context.Context, domain string) (string, error)

	// DeleteDomain removes the identity and its configuration set. Best
	// effort; failures are logged, not returned.
	DeleteDomain(ctx context.Context, domain, configurationSet string)

	// Send transmits one message and returns the provider message id.
	Send(ctx context.Context, msg *OutboundEmail) (string, error)
}

// OutboundAttachment carries one decoded attachment for sending.
type OutboundAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// OutboundEmail is the fully validated message handed to Send.
type OutboundEmail struct {
	From             string
	To               []string
	CC               []string
	BCC              []string
	Subject          string
	HTMLBody         string
	TextBody         string
	ReplyTo          string
	Attachments      []OutboundAttachment
	ConfigurationSet string
	Tags             map[string]string
}

// SESMailer wraps the AWS SES API for domain verification, DKIM enablement
// and raw sending.
type SESMailer struct {
	client *ses.Client
	region string
	logger *logrus.Logger
}

func NewSESMailer(ctx context.Context, region, accessKeyID, secretAccessKey string, logger *logrus.Logger) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client: ses.NewFromConfig(cfg),
		region: region,
		logger: logger,
	}, nil
}

// Region returns the AWS region the mailer operates in. The DNS record set
// depends on it for the inbound MX host.
func (m *SESMailer) Region() string {
	return m.region
}

func (m *SESMailer) VerifyDomain(ctx context.Context, domain string) (string, error) {
	out, err := m.client.VerifyDomainIdentity(ctx, &ses.VerifyDomainIdentityInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		return "", fmt.Errorf("SES domain verification failed for %s: %w", domain, err)
	}
	return aws.ToString(out.VerificationToken), nil
}

func (m *SESMailer) EnableDKIM(ctx context.Context, domain string) ([]string, error) {
	out, err := m.client.VerifyDomainDkim(ctx, &ses.VerifyDomainDkimInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		return nil, fmt.Errorf("SES DKIM enablement failed for %s: %w", domain, err)
	}
	return out.DkimTokens, nil
}

func (m *SESMailer) CreateConfigurationSet(ctx context.Context, name string) error {
	_, err := m.client.CreateConfigurationSet(ctx, &ses.CreateConfigurationSetInput{
		ConfigurationSet: &types.ConfigurationSet{
			Name: aws.String(name),
		},
	})
	if err != nil {
		var exists *types.ConfigurationSetAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create configuration set %s: %w", name, err)
	}
	return nil
}

func (m *SESMailer) VerificationStatus(ctx context.Context, domain string) (string, error) {
	out, err := m.client.GetIdentityVerificationAttributes(ctx, &ses.GetIdentityVerificationAttributesInput{
		Identities: []string{domain},
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch verification attributes for %s: %w", domain, err)
	}

	attrs, ok := out.VerificationAttributes[domain]
	if !ok {
		return models.DomainStatusPending, nil
	}

	switch attrs.VerificationStatus {
	case types.VerificationStatusSuccess:
		return models.DomainStatusVerified, nil
	case types.VerificationStatusFailed:
		return models.DomainStatusFailed, nil
	default:
		// Pending, TemporaryFailure, NotStarted
		return models.DomainStatusPending, nil
	}
}

func (m *SESMailer) DeleteDomain(ctx context.Context, domain, configurationSet string) {
	if _, err := m.client.DeleteIdentity(ctx, &ses.DeleteIdentityInput{
		Identity: aws.String(domain),
	}); err != nil {
		m.logger.WithError(err).WithField("domain", domain).Warn("failed to delete SES identity")
	}

	if configurationSet == "" {
		return
	}
	if _, err := m.client.DeleteConfigurationSet(ctx, &ses.DeleteConfigurationSetInput{
		ConfigurationSetName: aws.String(configurationSet),
	}); err != nil {
		m.logger.WithError(err).WithField("configuration_set", configurationSet).Warn("failed to delete SES configuration set")
	}
}

func (m *SESMailer) Send(ctx context.Context, msg *OutboundEmail) (string, error) {
	raw, err := buildRawMessage(msg)
	if err != nil {
		return "", fmt.Errorf("failed to build MIME message: %w", err)
	}

	input := &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Source:       aws.String(msg.From),
		Destinations: allRecipients(msg),
	}
	if msg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(msg.ConfigurationSet)
	}
	for name, value := range msg.Tags {
		input.Tags = append(input.Tags, types.MessageTag{
			Name:  aws.String(sanitizeTag(name)),
			Value: aws.String(sanitizeTag(value)),
		})
	}

	out, err := m.client.SendRawEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("SES send failed: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// buildRawMessage renders the RFC 5322 message with gomail. BCC recipients go
// into the SES destination list only, never into headers.
func buildRawMessage(msg *OutboundEmail) ([]byte, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	for _, att := range msg.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func allRecipients(msg *OutboundEmail) []string {
	recipients := make([]string, 0, len(msg.To)+len(msg.CC)+len(msg.BCC))
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.CC...)
	recipients = append(recipients, msg.BCC...)
	return recipients
}

// sanitizeTag maps arbitrary strings onto the character set SES message tags
// allow (alphanumeric, underscore, dash).
func sanitizeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

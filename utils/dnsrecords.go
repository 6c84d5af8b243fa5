package utils

import (
	"fmt"

	"freesend/models"
)

const (
	defaultRecordTTL = 1800

	spfValue   = "v=spf1 include:amazonses.com ~all"
	dmarcValue = "v=DMARC1; p=none;"
)

// GenerateDNSRecords produces the ordered record set a sending domain needs:
// verification TXT, inbound MX, SPF TXT, DMARC TXT, then one CNAME per DKIM
// token. Deterministic for the same inputs; the caller persists the list
// verbatim and also feeds it to the DNS provider adapter.
func GenerateDNSRecords(domain, verificationToken, region string, dkimTokens []string) []models.DNSRecord {
	records := []models.DNSRecord{
		{
			Type:    "TXT",
			Name:    "_amazonses." + domain,
			Value:   verificationToken,
			TTL:     defaultRecordTTL,
			Purpose: "verification",
		},
		{
			Type:     "MX",
			Name:     domain,
			Value:    fmt.Sprintf("10 inbound-smtp.%s.amazonaws.com", region),
			Priority: 10,
			TTL:      defaultRecordTTL,
			Purpose:  "mx",
		},
		{
			Type:    "TXT",
			Name:    domain,
			Value:   spfValue,
			TTL:     defaultRecordTTL,
			Purpose: "spf",
		},
		{
			Type:    "TXT",
			Name:    "_dmarc." + domain,
			Value:   dmarcValue,
			TTL:     defaultRecordTTL,
			Purpose: "dmarc",
		},
	}

	for _, token := range dkimTokens {
		records = append(records, models.DNSRecord{
			Type:    "CNAME",
			Name:    fmt.Sprintf("%s._domainkey.%s", token, domain),
			Value:   fmt.Sprintf("%s.dkim.amazonses.com", token),
			TTL:     defaultRecordTTL,
			Purpose: "dkim",
		})
	}

	return records
}

// ManualSetupInstructions renders the record list as human-readable setup
// steps for users whose DNS is not managed through the configured provider.
func ManualSetupInstructions(records []models.DNSRecord) []string {
	instructions := make([]string, 0, len(records))
	for _, r := range records {
		instructions = append(instructions, fmt.Sprintf(
			"Create a %s record named %q with value %q (TTL %d) for %s",
			r.Type, r.Name, r.Value, r.TTL, r.Purpose,
		))
	}
	return instructions
}

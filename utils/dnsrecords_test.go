package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDNSRecords(t *testing.T) {
	dkim := []string{"tok1", "tok2", "tok3"}
	records := GenerateDNSRecords("example.com", "abc123", "us-east-1", dkim)

	require.Len(t, records, 4+len(dkim))

	assert.Equal(t, "TXT", records[0].Type)
	assert.Equal(t, "_amazonses.example.com", records[0].Name)
	assert.Equal(t, "abc123", records[0].Value)
	assert.Equal(t, "verification", records[0].Purpose)

	assert.Equal(t, "MX", records[1].Type)
	assert.Equal(t, "example.com", records[1].Name)
	assert.Equal(t, "10 inbound-smtp.us-east-1.amazonaws.com", records[1].Value)
	assert.Equal(t, 10, records[1].Priority)

	assert.Equal(t, "TXT", records[2].Type)
	assert.Equal(t, "example.com", records[2].Name)
	assert.Equal(t, "v=spf1 include:amazonses.com ~all", records[2].Value)

	assert.Equal(t, "TXT", records[3].Type)
	assert.Equal(t, "_dmarc.example.com", records[3].Name)

	assert.Equal(t, "CNAME", records[4].Type)
	assert.Equal(t, "tok1._domainkey.example.com", records[4].Name)
	assert.Equal(t, "tok1.dkim.amazonses.com", records[4].Value)
	assert.Equal(t, "tok3._domainkey.example.com", records[6].Name)
}

func TestGenerateDNSRecordsDeterministic(t *testing.T) {
	a := GenerateDNSRecords("example.com", "tok", "eu-west-1", []string{"d1", "d2"})
	b := GenerateDNSRecords("example.com", "tok", "eu-west-1", []string{"d1", "d2"})
	assert.Equal(t, a, b)
}

func TestGenerateDNSRecordsWithoutDKIM(t *testing.T) {
	records := GenerateDNSRecords("example.com", "tok", "us-east-1", nil)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.NotEqual(t, "CNAME", r.Type)
	}
}

func TestManualSetupInstructions(t *testing.T) {
	records := GenerateDNSRecords("example.com", "tok", "us-east-1", []string{"d1"})
	instructions := ManualSetupInstructions(records)

	require.Len(t, instructions, len(records))
	assert.Contains(t, instructions[0], "_amazonses.example.com")
	assert.Contains(t, instructions[0], "verification")
}

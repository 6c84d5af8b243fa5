package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyFormat(t *testing.T) {
	generated, err := GenerateAPIKey()
	require.NoError(t, err)

	parts := strings.SplitN(generated.Plaintext, "_", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, APIKeyPrefix, parts[0])
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 32)

	assert.Equal(t, APIKeyPrefix+"_"+parts[1], generated.Prefix)
	assert.NotContains(t, generated.Hash, parts[2], "hash must not embed the secret")
}

func TestSplitAPIKeyPrefix(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
		ok        bool
	}{
		{"well formed", "frs_abcd1234_secretsecret", "frs_abcd1234", true},
		{"underscores in secret", "frs_abcd1234_sec_ret_with_underscores", "frs_abcd1234", true},
		{"missing secret", "frs_abcd1234", "", false},
		{"empty secret", "frs_abcd1234_", "", false},
		{"no delimiters", "frsabcd1234secret", "", false},
		{"leading delimiter", "_frs_secret", "", false},
		{"empty string", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, ok := SplitAPIKeyPrefix(tt.candidate)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, prefix)
		})
	}
}

func TestCompareAPIKeyRoundTrip(t *testing.T) {
	generated, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, CompareAPIKey(generated.Hash, generated.Plaintext))

	// A single mutated character in the secret must fail verification
	mutated := []byte(generated.Plaintext)
	last := len(mutated) - 1
	if mutated[last] == 'a' {
		mutated[last] = 'b'
	} else {
		mutated[last] = 'a'
	}
	assert.False(t, CompareAPIKey(generated.Hash, string(mutated)))

	// Valid prefix with a wrong secret fails without panicking
	assert.False(t, CompareAPIKey(generated.Hash, generated.Prefix+"_wrongsecret"))
}

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createKeyInput struct {
	DomainID    uint     `json:"domain_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=100"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,oneof=send"`
}

type sendInput struct {
	From  string   `json:"from" validate:"required,email"`
	To    []string `json:"to" validate:"required,min=1,dive,required"`
	Notes string   `json:"notes" validate:"omitempty,max=10"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(createKeyInput{
		DomainID:    1,
		Name:        "production",
		Permissions: []string{"send"},
	})
	assert.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(createKeyInput{Name: "production"})
	require.Error(t, err)
	assert.Equal(t, "domain_id is required", err.Error())
}

func TestValidateStructOneOf(t *testing.T) {
	err := ValidateStruct(createKeyInput{
		DomainID:    1,
		Name:        "production",
		Permissions: []string{"admin"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: send")
}

func TestValidateStructSliceMin(t *testing.T) {
	err := ValidateStruct(sendInput{From: "a@example.com", To: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to must contain at least 1 entries")
}

func TestValidateStructDiveElement(t *testing.T) {
	err := ValidateStruct(sendInput{From: "a@example.com", To: []string{"b@example.com", ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
	assert.Contains(t, err.Error(), "to[1]")
}

func TestValidateStructJoinsMultipleFailures(t *testing.T) {
	err := ValidateStruct(sendInput{
		From:  "not-an-address",
		To:    nil,
		Notes: strings.Repeat("x", 11),
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "from must be a valid email address")
	assert.Contains(t, msg, "to is required")
	assert.Contains(t, msg, "notes must be at most 10 characters")
}

package service

import (
	"strings"
	"testing"

	"leaseguard-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	contract := "Rent is 100% due on the 1st. {\"not\": \"schema\"}"
	prompt := BuildAnalysisPrompt(contract)

	assert.True(t, strings.HasSuffix(prompt, contract))
	assert.Contains(t, prompt, "Residential Tenancy Act")
	assert.Contains(t, prompt, "pure JSON")
	assert.Contains(t, prompt, `"N/A"`)

	for _, c := range models.ClauseCategories {
		assert.Contains(t, prompt, string(c))
	}
	for _, s := range models.Severities {
		assert.Contains(t, prompt, string(s))
	}

	assert.Equal(t, prompt, BuildAnalysisPrompt(contract))
}

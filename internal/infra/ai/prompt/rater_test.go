package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetletters/claims-intake/internal/domain/analysis"
)

const sampleOutput = `{
  "executive_summary": {
    "current_combined_rating": 60,
    "key_findings": ["tinnitus underrated"]
  },
  "current_service_connected_conditions": [
    {"condition_name": "PTSD", "current_rating": 50, "potential_rating": 70}
  ]
}`

func TestParsePlainJSON(t *testing.T) {
	res, err := Parse(sampleOutput)
	require.NoError(t, err)
	assert.Equal(t, 60, res.ExecutiveSummary.CurrentCombinedRating)
	require.Len(t, res.Conditions, 1)
	assert.Equal(t, "PTSD", res.Conditions[0].Name)
}

func TestParseStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + sampleOutput + "\n```"
	res, err := Parse(fenced)
	require.NoError(t, err)
	assert.Equal(t, 60, res.ExecutiveSummary.CurrentCombinedRating)

	bare := "```\n" + sampleOutput + "\n```"
	res, err = Parse(bare)
	require.NoError(t, err)
	assert.Equal(t, "PTSD", res.Conditions[0].Name)
}

func TestParseBadOutput(t *testing.T) {
	_, err := Parse("I am sorry, I cannot produce JSON today.")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrBadOutput)
}

func TestUserPromptTruncatesRecords(t *testing.T) {
	records := strings.Repeat("x", maxRecordChars+500)
	p := GetUserPrompt(records, "John Smith", "VAR-20250823-a1b2c3d4")

	assert.Contains(t, p, "John Smith")
	assert.Contains(t, p, "VAR-20250823-a1b2c3d4")
	assert.Less(t, len(p), maxRecordChars+400)
}

func TestFallbackIsConservative(t *testing.T) {
	res := Fallback("John Smith")
	assert.Equal(t, "true", res.Metadata["fallback"])
	assert.Zero(t, res.ExecutiveSummary.MonthlyIncreasePotential)
	require.NotEmpty(t, res.Conditions)
	assert.Equal(t, "Pending manual review", res.Conditions[0].Name)
}

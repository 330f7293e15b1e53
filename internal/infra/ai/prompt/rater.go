package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vetletters/claims-intake/internal/domain/analysis"
)

// maxRecordChars bounds how much of the medical record goes into the prompt.
const maxRecordChars = 8000

// GetSystemPrompt puts the model in senior-rater mode and pins the output to
// a single JSON object.
func GetSystemPrompt() string {
	return `You are a Senior VA Claims Rater (GS-13) with complete mastery of 38 CFR Part 4 (Schedule for Rating Disabilities) and the M21-1 adjudication manual. Review the Veteran's submissions and present the highest supportable ratings plus any additional benefits the facts may allow. Apply the benefit-of-the-doubt doctrine and maximization principles throughout. Always respond with one valid JSON object only - no markdown, no commentary, no code fences.

Requirements:
- Map each finding to the correct diagnostic code and compensable percentage under 38 CFR, with citations.
- Combined ratings use the official VA combined rating table.
- Include secondary service connection opportunities and evidence gaps.

Schema (example with empty values):
{
  "executive_summary": {
    "current_combined_rating": 0,
    "potential_combined_rating": 0,
    "current_monthly_compensation": 0,
    "potential_monthly_compensation": 0,
    "monthly_increase_potential": 0,
    "annual_increase_potential": 0,
    "total_conditions_analyzed": 0,
    "key_findings": ["<string>"]
  },
  "current_service_connected_conditions": [
    {
      "condition_name": "<string>",
      "current_rating": 0,
      "diagnostic_code": "<string>",
      "potential_rating": 0,
      "cfr_citation": "<string>",
      "evidence_strength": "<High|Moderate|Low>",
      "supporting_evidence": "<string>",
      "action_required": "<string>"
    }
  ],
  "missed_claiming_opportunities": [
    {
      "condition_name": "<string>",
      "connection_type": "<Direct|Secondary|Aggravation>",
      "primary_condition": "<string>",
      "potential_rating": 0,
      "diagnostic_code": "<string>",
      "supporting_evidence": "<string>",
      "recommended_strategy": "<string>",
      "success_probability": "<High|Moderate|Low>"
    }
  ],
  "combined_rating_scenarios": {
    "current_calculation": {"individual_ratings": [0], "combined_rating": 0, "monthly_compensation": 0},
    "conservative_scenario": {"individual_ratings": [0], "combined_rating": 0, "monthly_compensation": 0},
    "realistic_scenario": {"individual_ratings": [0], "combined_rating": 0, "monthly_compensation": 0},
    "optimistic_scenario": {"individual_ratings": [0], "combined_rating": 0, "monthly_compensation": 0}
  },
  "strategic_action_plan": {
    "immediate_actions": [{"priority": "<High|Medium|Low>", "action": "<string>", "timeline": "<string>", "impact": "<string>"}],
    "short_term_actions": [],
    "long_term_actions": []
  },
  "evidence_gaps_analysis": {
    "critical_missing_evidence": ["<string>"],
    "medical_opinions_needed": ["<string>"],
    "lay_statements_recommended": ["<string>"],
    "additional_testing_suggested": ["<string>"]
  }
}`
}

// GetUserPrompt frames the medical records for one claim.
func GetUserPrompt(records, veteranName, claimID string) string {
	if len(records) > maxRecordChars {
		records = records[:maxRecordChars]
	}
	return fmt.Sprintf(`VETERAN INFORMATION:
- Name: %s
- Report ID: %s

MEDICAL RECORDS TO ANALYZE:
%s

Parse every piece of evidence, choose the interpretation that yields the greater benefit where uncertainty exists, and respond with the JSON per schema.`,
		veteranName, claimID, records)
}

// Parse decodes the model output into a Result, stripping markdown code
// fences some models insist on emitting.
func Parse(raw string) (*analysis.Result, error) {
	cleaned := strings.TrimSpace(raw)
	if i := strings.Index(cleaned, "```json"); i >= 0 {
		cleaned = cleaned[i+len("```json"):]
	} else if i := strings.Index(cleaned, "```"); i >= 0 {
		cleaned = cleaned[i+len("```"):]
	}
	if i := strings.Index(cleaned, "```"); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(cleaned)

	var res analysis.Result
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBadOutput, err)
	}
	return &res, nil
}

// Fallback is the conservative analysis used when the model output cannot be
// parsed: a claim should not die because the rater stuttered.
func Fallback(veteranName string) *analysis.Result {
	return &analysis.Result{
		ExecutiveSummary: analysis.ExecutiveSummary{
			ConditionsAnalyzed: 1,
			KeyFindings: []string{
				"Automated analysis could not be completed in full; a manual senior-rater review is recommended",
			},
		},
		Conditions: []analysis.Condition{{
			Name:             "Pending manual review",
			DiagnosticCode:   "TBD",
			EvidenceStrength: "Low",
			Evidence:         "Structured analysis unavailable for this run.",
			ActionRequired:   "Schedule a professional consultation to review the records directly.",
		}},
		EvidenceGaps: analysis.EvidenceGaps{
			CriticalMissing: []string{"Complete structured analysis of submitted records"},
		},
		Metadata: map[string]string{
			"fallback":     "true",
			"veteran_name": veteranName,
		},
	}
}

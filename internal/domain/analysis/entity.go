package analysis

import "time"

// Result is the structured findings document returned by the AI rater.
// It is owned by a single pipeline run and never persisted.
type Result struct {
	ExecutiveSummary ExecutiveSummary  `json:"executive_summary"`
	Conditions       []Condition       `json:"current_service_connected_conditions"`
	Opportunities    []Opportunity     `json:"missed_claiming_opportunities"`
	Scenarios        RatingScenarios   `json:"combined_rating_scenarios"`
	ActionPlan       ActionPlan        `json:"strategic_action_plan"`
	EvidenceGaps     EvidenceGaps      `json:"evidence_gaps_analysis"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type ExecutiveSummary struct {
	CurrentCombinedRating    int      `json:"current_combined_rating"`
	PotentialCombinedRating  int      `json:"potential_combined_rating"`
	CurrentMonthly           int      `json:"current_monthly_compensation"`
	PotentialMonthly         int      `json:"potential_monthly_compensation"`
	MonthlyIncreasePotential int      `json:"monthly_increase_potential"`
	AnnualIncreasePotential  int      `json:"annual_increase_potential"`
	ConditionsAnalyzed       int      `json:"total_conditions_analyzed"`
	KeyFindings              []string `json:"key_findings"`
}

type Condition struct {
	Name             string `json:"condition_name"`
	CurrentRating    int    `json:"current_rating"`
	DiagnosticCode   string `json:"diagnostic_code"`
	PotentialRating  int    `json:"potential_rating"`
	CFRCitation      string `json:"cfr_citation"`
	EvidenceStrength string `json:"evidence_strength"`
	Evidence         string `json:"supporting_evidence"`
	ActionRequired   string `json:"action_required"`
}

type Opportunity struct {
	Name            string `json:"condition_name"`
	ConnectionType  string `json:"connection_type"`
	Primary         string `json:"primary_condition,omitempty"`
	PotentialRating int    `json:"potential_rating"`
	DiagnosticCode  string `json:"diagnostic_code"`
	Evidence        string `json:"supporting_evidence"`
	Strategy        string `json:"recommended_strategy"`
	Probability     string `json:"success_probability"`
}

type Scenario struct {
	IndividualRatings []int `json:"individual_ratings"`
	CombinedRating    int   `json:"combined_rating"`
	MonthlyComp       int   `json:"monthly_compensation"`
}

type RatingScenarios struct {
	Current      Scenario `json:"current_calculation"`
	Conservative Scenario `json:"conservative_scenario"`
	Realistic    Scenario `json:"realistic_scenario"`
	Optimistic   Scenario `json:"optimistic_scenario"`
}

type Action struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Timeline string `json:"timeline,omitempty"`
	Impact   string `json:"impact,omitempty"`
}

type ActionPlan struct {
	Immediate []Action `json:"immediate_actions"`
	ShortTerm []Action `json:"short_term_actions"`
	LongTerm  []Action `json:"long_term_actions"`
}

type EvidenceGaps struct {
	CriticalMissing []string `json:"critical_missing_evidence"`
	OpinionsNeeded  []string `json:"medical_opinions_needed"`
	LayStatements   []string `json:"lay_statements_recommended"`
	TestsSuggested  []string `json:"additional_testing_suggested"`
}

// Enrich recalculates every scenario with the official combined-rating
// formula and rebuilds the executive summary deltas from the corrected
// numbers. The model's arithmetic is never trusted.
func Enrich(r *Result, now time.Time) {
	for _, sc := range []*Scenario{
		&r.Scenarios.Current, &r.Scenarios.Conservative,
		&r.Scenarios.Realistic, &r.Scenarios.Optimistic,
	} {
		if len(sc.IndividualRatings) == 0 {
			continue
		}
		sc.CombinedRating = CombinedRating(sc.IndividualRatings)
		sc.MonthlyComp = MonthlyCompensation(sc.CombinedRating)
	}

	cur := r.Scenarios.Current.CombinedRating
	pot := r.Scenarios.Realistic.CombinedRating
	s := &r.ExecutiveSummary
	s.CurrentCombinedRating = cur
	s.PotentialCombinedRating = pot
	s.CurrentMonthly = MonthlyCompensation(cur)
	s.PotentialMonthly = MonthlyCompensation(pot)
	s.MonthlyIncreasePotential = s.PotentialMonthly - s.CurrentMonthly
	s.AnnualIncreasePotential = s.MonthlyIncreasePotential * 12
	if s.ConditionsAnalyzed == 0 {
		s.ConditionsAnalyzed = len(r.Conditions)
	}

	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	r.Metadata["analysis_date"] = now.Format(time.RFC3339)
	r.Metadata["rater_mode"] = "Senior VA Claims Rater (GS-13)"
}

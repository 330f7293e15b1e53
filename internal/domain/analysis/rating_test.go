package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCombinedRating(t *testing.T) {
	cases := []struct {
		name    string
		ratings []int
		want    int
	}{
		{"empty", nil, 0},
		{"zeros ignored", []int{0, 0}, 0},
		{"single", []int{30}, 30},
		{"fifty thirty ten", []int{50, 30, 10}, 70},
		{"seventy thirty ten", []int{70, 30, 10}, 80},
		{"seventy fifty thirty", []int{70, 50, 30}, 90},
		{"order does not matter", []int{10, 50, 30}, 70},
		// 85 combined sits on the boundary; 38 CFR 4.25 rounds it up
		{"exact half rounds up", []int{50, 50, 40}, 90},
		{"capped at hundred", []int{100, 50, 30}, 100},
		{"many high ratings", []int{90, 90, 90}, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CombinedRating(tc.ratings))
		})
	}
}

func TestMonthlyCompensation(t *testing.T) {
	assert.Equal(t, 0, MonthlyCompensation(0))
	assert.Equal(t, 171, MonthlyCompensation(10))
	assert.Equal(t, 1075, MonthlyCompensation(50))
	assert.Equal(t, 1716, MonthlyCompensation(70))
	assert.Equal(t, 3737, MonthlyCompensation(100))
	// off-table value yields nothing rather than a guess
	assert.Equal(t, 0, MonthlyCompensation(75))
}

func TestEnrichRecomputesScenarios(t *testing.T) {
	res := &Result{}
	res.Scenarios.Current.IndividualRatings = []int{50, 30, 10}
	res.Scenarios.Current.CombinedRating = 999
	res.Scenarios.Realistic.IndividualRatings = []int{70, 50, 30}

	now := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)
	Enrich(res, now)

	assert.Equal(t, 70, res.Scenarios.Current.CombinedRating)
	assert.Equal(t, 1716, res.Scenarios.Current.MonthlyComp)
	assert.Equal(t, 90, res.Scenarios.Realistic.CombinedRating)

	assert.Equal(t, 70, res.ExecutiveSummary.CurrentCombinedRating)
	assert.Equal(t, 90, res.ExecutiveSummary.PotentialCombinedRating)
	assert.Equal(t, 2241-1716, res.ExecutiveSummary.MonthlyIncreasePotential)
	assert.Equal(t, (2241-1716)*12, res.ExecutiveSummary.AnnualIncreasePotential)
	assert.Equal(t, "2025-08-23T12:00:00Z", res.Metadata["analysis_date"])
}

package analysis

import (
	"math"
	"sort"
)

// compensationRates are the 2025 monthly rates for a veteran without
// dependents, keyed by combined rating.
var compensationRates = map[int]int{
	0: 0, 10: 171, 20: 338, 30: 524, 40: 755, 50: 1075, 60: 1361,
	70: 1716, 80: 1995, 90: 2241, 100: 3737,
}

// CombinedRating applies the official VA combined-rating formula: ratings
// are combined highest first, each subsequent rating applies to the
// remaining capacity, then the result rounds to the nearest 10.
func CombinedRating(individual []int) int {
	ratings := make([]int, 0, len(individual))
	for _, r := range individual {
		if r > 0 {
			ratings = append(ratings, r)
		}
	}
	if len(ratings) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ratings)))

	combined := float64(ratings[0])
	for _, r := range ratings[1:] {
		combined += float64(r) * (100 - combined) / 100
	}

	rounded := int(math.Round(combined/10)) * 10
	if rounded > 100 {
		rounded = 100
	}
	return rounded
}

// MonthlyCompensation looks up the monthly rate for a combined rating.
// Unknown ratings (not a multiple of 10) pay nothing rather than guessing.
func MonthlyCompensation(rating int) int {
	return compensationRates[rating]
}

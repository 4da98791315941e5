package scheduler

import (
	"sort"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// CanonicalSort orders scored customers by the deterministic selection
// rules:
//  1. Priority score: higher first
//  2. Urgency score: higher first
//  3. Customer code: lexical ascending (tiebreak for determinism)
func CanonicalSort(customers []domain.ScoredCustomer) {
	sort.SliceStable(customers, func(i, j int) bool {
		a, b := customers[i], customers[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.UrgencyScore != b.UrgencyScore {
			return a.UrgencyScore > b.UrgencyScore
		}
		return a.Code < b.Code
	})
}

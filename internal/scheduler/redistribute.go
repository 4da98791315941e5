package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// Redistribute is the feedback controller closing the loop between plan
// and execution: the analyzed period's gap is spread additively across
// the remaining sub-periods, missed focus areas are unioned into every
// remaining period so they are not forgotten, and missed customers are
// escalated for the next scheduling pass.
//
// When no sub-periods remain the revision carries the gap forward
// instead of absorbing it: it becomes input to the next full-horizon
// generation. Gaps are conserved, never invented or lost.
func Redistribute(plan *domain.Plan, analysis domain.Analysis, now time.Time) domain.PlanRevision {
	rev := domain.PlanRevision{
		PlanID:             plan.ID,
		PeriodIndex:        analysis.PeriodIndex,
		Analysis:           analysis,
		EscalatedCustomers: append([]string(nil), analysis.MissedCustomers...),
		CreatedAt:          now,
	}

	remaining := remainingIndexes(plan, analysis.PeriodIndex)
	if len(remaining) == 0 {
		rev.CarryOverVisits = analysis.VisitGap
		rev.CarryOverRevenue = analysis.RevenueGap
		return rev
	}

	visitShare := ceilDiv(analysis.VisitGap, len(remaining))
	revenueShare := analysis.RevenueGap / float64(len(remaining))

	missedAreas := missedAreaNames(analysis)

	for _, idx := range remaining {
		rev.Deltas = append(rev.Deltas, domain.PeriodDelta{
			Index:         idx,
			VisitDelta:    visitShare,
			RevenueDelta:  revenueShare,
			AddFocusAreas: missedAreas,
		})
	}
	return rev
}

func remainingIndexes(plan *domain.Plan, analyzedIndex int) []int {
	var out []int
	for _, t := range plan.SubTargets {
		if t.Index > analyzedIndex {
			out = append(out, t.Index)
		}
	}
	sort.Ints(out)
	return out
}

func missedAreaNames(a domain.Analysis) []string {
	var areas []string
	for _, r := range a.Areas {
		if r.Verdict == domain.AreaMissed {
			areas = append(areas, r.Area)
		}
	}
	sort.Strings(areas)
	return areas
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return int(math.Ceil(float64(a) / float64(b)))
}

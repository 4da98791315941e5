package domain

import (
	"sort"
	"time"
)

// PeriodDelta is the additive adjustment a revision applies to one
// remaining sub-period.
type PeriodDelta struct {
	Index         int
	VisitDelta    int
	RevenueDelta  float64
	AddFocusAreas []string
}

// PlanRevision is an immutable feedback record appended after one
// sub-period's analysis. The current plan is always the original
// baseline with all revisions replayed in order.
type PlanRevision struct {
	PlanID      string
	Seq         int
	PeriodIndex int
	Analysis    Analysis
	Deltas      []PeriodDelta

	// EscalatedCustomers resurface in the next scheduling pass with
	// high adjusted priority.
	EscalatedCustomers []string

	// CarryOverVisits and CarryOverRevenue report a gap that had no
	// remaining sub-period to absorb it. It feeds the next horizon's
	// plan generation instead of being silently dropped.
	CarryOverVisits  int
	CarryOverRevenue float64

	CreatedAt time.Time
}

// EffectivePlan replays revisions onto a copy of the baseline and
// returns the result. The baseline itself is never modified, so
// adherence to the original plan stays recomputable.
func EffectivePlan(base *Plan, revisions []PlanRevision) *Plan {
	eff := *base
	eff.SubTargets = make([]PeriodTargets, len(base.SubTargets))
	copy(eff.SubTargets, base.SubTargets)
	for i := range eff.SubTargets {
		eff.SubTargets[i].FocusAreas = append([]string(nil), base.SubTargets[i].FocusAreas...)
	}
	eff.FocusAreas = append([]string(nil), base.FocusAreas...)
	eff.PriorityCustomers = append([]string(nil), base.PriorityCustomers...)

	for _, rev := range revisions {
		for _, d := range rev.Deltas {
			for i := range eff.SubTargets {
				if eff.SubTargets[i].Index != d.Index {
					continue
				}
				eff.SubTargets[i].Visits += d.VisitDelta
				eff.SubTargets[i].Revenue += d.RevenueDelta
				eff.SubTargets[i].FocusAreas = unionSorted(eff.SubTargets[i].FocusAreas, d.AddFocusAreas)
			}
		}
		eff.PriorityCustomers = unionSorted(eff.PriorityCustomers, rev.EscalatedCustomers)
	}

	eff.Targets.Visits = eff.TotalSubTargetVisits()
	var rev float64
	for _, t := range eff.SubTargets {
		rev += t.Revenue
	}
	eff.Targets.Revenue = rev
	eff.RevisionCount = base.RevisionCount
	return &eff
}

// unionSorted merges two string sets into a sorted, deduplicated slice.
func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

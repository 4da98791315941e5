package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// AnalyzeParams compares one sub-period of a plan against the actual
// visit events recorded in the same window. The plan passed in is the
// effective plan (baseline plus replayed revisions).
type AnalyzeParams struct {
	Plan        *domain.Plan
	PeriodIndex int
	WindowStart time.Time
	WindowEnd   time.Time // inclusive calendar day
	Events      []domain.VisitEvent

	Bands            config.BandThresholds
	BlendVisitWeight float64

	// NoiseVisits is the minimum actual count before activity in an
	// unplanned area is reported as UNPLANNED_ACTIVITY.
	NoiseVisits int
}

// Analyze aggregates actuals exactly as the plan aggregates projected
// stops and produces achievement percentages, per-area verdicts and the
// performance band. Pure: fixed plan + fixed event window = identical
// output on every call.
func Analyze(p AnalyzeParams) domain.Analysis {
	target := p.Plan.SubTargetFor(p.WindowStart)

	plannedVisits := 0
	plannedRevenue := 0.0
	if target != nil {
		plannedVisits = target.Visits
		plannedRevenue = target.Revenue
	}

	stops := p.Plan.PlannedStops(p.WindowStart, p.WindowEnd)

	plannedByArea := make(map[string]int)
	areaByCustomer := make(map[string]string)
	plannedCustomers := make(map[string]bool)
	for _, s := range stops {
		plannedByArea[s.Customer.Area]++
		areaByCustomer[s.Customer.Code] = s.Customer.Area
		plannedCustomers[s.Customer.Code] = true
	}

	actualVisits := 0
	actualRevenue := 0.0
	actualByArea := make(map[string]int)
	visitedCustomers := make(map[string]bool)
	windowEndExcl := p.WindowEnd.AddDate(0, 0, 1)
	for _, ev := range p.Events {
		if ev.VisitedAt.Before(p.WindowStart) || !ev.VisitedAt.Before(windowEndExcl) {
			continue
		}
		actualVisits++
		actualRevenue += ev.Amount
		visitedCustomers[ev.CustomerCode] = true

		area := ev.Area
		if area == "" {
			area = areaByCustomer[ev.CustomerCode]
		}
		if area != "" {
			actualByArea[area]++
		}
	}

	visitPct := achievementPct(float64(actualVisits), float64(plannedVisits))
	revenuePct := achievementPct(actualRevenue, plannedRevenue)
	blended := p.BlendVisitWeight*visitPct + (1-p.BlendVisitWeight)*revenuePct

	analysis := domain.Analysis{
		PlanID:                p.Plan.ID,
		AgentID:               p.Plan.AgentID,
		PeriodIndex:           p.PeriodIndex,
		WindowStart:           p.WindowStart,
		WindowEnd:             p.WindowEnd,
		PlannedVisits:         plannedVisits,
		ActualVisits:          actualVisits,
		PlannedRevenue:        plannedRevenue,
		ActualRevenue:         actualRevenue,
		VisitAchievementPct:   visitPct,
		RevenueAchievementPct: revenuePct,
		BlendedPct:            blended,
		Areas:                 areaVerdicts(plannedByArea, actualByArea, p.NoiseVisits),
		Band:                  Band(blended, p.Bands),
		MissedCustomers:       missedCustomers(plannedCustomers, visitedCustomers),
		VisitGap:              maxInt(0, plannedVisits-actualVisits),
		RevenueGap:            math.Max(0, plannedRevenue-actualRevenue),
	}
	return analysis
}

// Band maps a blended achievement score onto the documented threshold
// table. Thresholds are configuration, not a black box.
func Band(blendedPct float64, t config.BandThresholds) domain.PerformanceBand {
	switch {
	case blendedPct >= t.Excellent:
		return domain.BandExcellent
	case blendedPct >= t.Good:
		return domain.BandGood
	case blendedPct >= t.Average:
		return domain.BandAverage
	case blendedPct >= t.BelowAverage:
		return domain.BandBelowAverage
	default:
		return domain.BandPoor
	}
}

// achievementPct treats a zero target as fully achieved: there was
// nothing to miss.
func achievementPct(actual, planned float64) float64 {
	if planned <= 0 {
		return 100
	}
	return actual / planned * 100
}

func areaVerdicts(planned, actual map[string]int, noise int) []domain.AreaResult {
	areas := make(map[string]bool, len(planned)+len(actual))
	for a := range planned {
		areas[a] = true
	}
	for a := range actual {
		areas[a] = true
	}

	names := make([]string, 0, len(areas))
	for a := range areas {
		names = append(names, a)
	}
	sort.Strings(names)

	var results []domain.AreaResult
	for _, a := range names {
		r := domain.AreaResult{Area: a, Planned: planned[a], Actual: actual[a]}
		switch {
		case r.Planned > 0 && r.Actual > 0:
			r.Verdict = domain.AreaCovered
		case r.Planned > 0:
			r.Verdict = domain.AreaMissed
		case r.Actual >= noise:
			r.Verdict = domain.AreaUnplanned
		default:
			continue // unplanned activity below the noise threshold
		}
		results = append(results, r)
	}
	return results
}

func missedCustomers(planned, visited map[string]bool) []string {
	var missed []string
	for code := range planned {
		if !visited[code] {
			missed = append(missed, code)
		}
	}
	sort.Strings(missed)
	return missed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

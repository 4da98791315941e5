package domain

import "time"

// AreaResult is the per-area coverage verdict for one analyzed window.
type AreaResult struct {
	Area    string
	Planned int
	Actual  int
	Verdict AreaVerdict
}

// Analysis compares one sub-period's actual visits against the plan's
// targets for the same window. Deterministic for a fixed event window.
type Analysis struct {
	PlanID      string
	AgentID     string
	PeriodIndex int
	WindowStart time.Time
	WindowEnd   time.Time

	PlannedVisits  int
	ActualVisits   int
	PlannedRevenue float64
	ActualRevenue  float64

	VisitAchievementPct   float64
	RevenueAchievementPct float64
	BlendedPct            float64

	Areas []AreaResult
	Band  PerformanceBand

	// MissedCustomers were scheduled in the window but have no actual
	// visit event; revisions escalate them for the next pass.
	MissedCustomers []string

	VisitGap   int
	RevenueGap float64
}

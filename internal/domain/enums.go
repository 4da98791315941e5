package domain

// Tier ranks a customer by commercial value. Tier 1 is the highest.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
)

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	return t >= Tier1 && t <= Tier4
}

// MinVisitMinutes returns the minimum recommended visit duration for the tier.
func (t Tier) MinVisitMinutes() int {
	switch t {
	case Tier1:
		return 30
	case Tier2:
		return 20
	case Tier3:
		return 15
	default:
		return 10
	}
}

type PlanStatus string

const (
	PlanDrafted  PlanStatus = "drafted"
	PlanActive   PlanStatus = "active"
	PlanAnalyzed PlanStatus = "analyzed"
	PlanRevised  PlanStatus = "revised"
	PlanClosed   PlanStatus = "closed"
)

// Analyzable reports whether a plan in this status may be analyzed.
// Only published baselines and their revised successors qualify; drafts
// have no baseline to measure against and closed plans are read-only.
func (s PlanStatus) Analyzable() bool {
	return s == PlanActive || s == PlanRevised || s == PlanAnalyzed
}

type PeriodKind string

const (
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

type PerformanceBand string

const (
	BandExcellent    PerformanceBand = "EXCELLENT"
	BandGood         PerformanceBand = "GOOD"
	BandAverage      PerformanceBand = "AVERAGE"
	BandBelowAverage PerformanceBand = "BELOW_AVERAGE"
	BandPoor         PerformanceBand = "POOR"
)

type AreaVerdict string

const (
	AreaCovered   AreaVerdict = "COVERED"
	AreaMissed    AreaVerdict = "MISSED"
	AreaUnplanned AreaVerdict = "UNPLANNED_ACTIVITY"
)

// CustomerType classifies the relationship stage of a customer.
type CustomerType string

const (
	CustomerExisting CustomerType = "existing"
	CustomerProspect CustomerType = "prospect"
)

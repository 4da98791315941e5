package domain

import (
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// Period is a planning horizon: one ISO week or one calendar month.
type Period struct {
	Kind  PeriodKind
	Start time.Time // first calendar day, midnight UTC
	End   time.Time // last calendar day, midnight UTC (inclusive)
}

// Key returns a stable identifier for the period, e.g. "month:2026-03-01".
func (p Period) Key() string {
	return string(p.Kind) + ":" + p.Start.Format(DateLayout)
}

// Days returns every calendar day in the period, in order.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// PlanTargets are the declared aggregates a plan commits to.
type PlanTargets struct {
	Visits    int
	Revenue   float64
	NBDVisits int
}

// PeriodTargets is the per-sub-period slice of the plan's targets. A
// monthly plan carries one entry per week, a weekly plan one per working
// day. Revisions adjust these, never the original baseline values.
type PeriodTargets struct {
	Index      int
	Start      time.Time
	End        time.Time
	Visits     int
	Revenue    float64
	NBDVisits  int
	FocusAreas []string
}

// DeferredVisit records a due visit that could not be placed within the
// period's capacity. Deferrals are explicit, never silent drops.
type DeferredVisit struct {
	CustomerCode string
	Area         string
	Reason       string
}

// Plan is the persisted baseline for a horizon. Once published it is
// never overwritten; revisions accumulate alongside it.
type Plan struct {
	ID      string
	AgentID string
	Period  Period
	Status  PlanStatus

	// ConfigVersion records the scoring configuration the plan was
	// generated with, so re-scoring under different weights is auditable.
	ConfigVersion string

	// Days maps date (DateLayout) to the built route for that day.
	Days map[string]DailyRoute

	Targets    PlanTargets
	SubTargets []PeriodTargets

	FocusAreas        []string
	PriorityCustomers []string
	Deferred          []DeferredVisit

	Narrative string
	Warnings  []string

	// RevisionCount is maintained by the plan store and used for the
	// optimistic version check on revision appends.
	RevisionCount int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	ClosedAt    *time.Time
}

// PlannedStops returns all stops across the plan's days whose date falls
// in [from, to] inclusive, in date then sequence order.
func (p *Plan) PlannedStops(from, to time.Time) []RouteStop {
	var dates []string
	for d := range p.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var stops []RouteStop
	for _, d := range dates {
		day, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		stops = append(stops, p.Days[d].Stops...)
	}
	return stops
}

// SubTargetsIn returns the sub-target whose window contains the date,
// or nil if none does.
func (p *Plan) SubTargetFor(date time.Time) *PeriodTargets {
	for i := range p.SubTargets {
		t := p.SubTargets[i]
		if !date.Before(t.Start) && !date.After(t.End) {
			return &p.SubTargets[i]
		}
	}
	return nil
}

// TotalSubTargetVisits sums target visits across all sub-periods.
func (p *Plan) TotalSubTargetVisits() int {
	total := 0
	for _, t := range p.SubTargets {
		total += t.Visits
	}
	return total
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodDays(t *testing.T) {
	week := Period{Kind: PeriodWeek, Start: day(2026, 3, 16), End: day(2026, 3, 22)}
	days := week.Days()

	require.Len(t, days, 7)
	assert.Equal(t, day(2026, 3, 16), days[0])
	assert.Equal(t, day(2026, 3, 22), days[6])

	feb := Period{Kind: PeriodMonth, Start: day(2026, 2, 1), End: day(2026, 2, 28)}
	assert.Len(t, feb.Days(), 28)
}

func TestPeriodKey(t *testing.T) {
	p := Period{Kind: PeriodMonth, Start: day(2026, 3, 1), End: day(2026, 3, 31)}
	assert.Equal(t, "month:2026-03-01", p.Key())
}

func stopFor(code string, seq int) RouteStop {
	return RouteStop{Customer: ScoredCustomer{Customer: Customer{Code: code}}, Seq: seq}
}

func TestPlannedStops_WindowAndOrder(t *testing.T) {
	plan := &Plan{
		Days: map[string]DailyRoute{
			"2026-03-18": {Stops: []RouteStop{stopFor("W1", 1), stopFor("W2", 2)}},
			"2026-03-16": {Stops: []RouteStop{stopFor("M1", 1)}},
			"2026-03-23": {Stops: []RouteStop{stopFor("OUT", 1)}},
		},
	}

	stops := plan.PlannedStops(day(2026, 3, 16), day(2026, 3, 22))

	require.Len(t, stops, 3)
	// Date order first, then the stop sequence within the day.
	assert.Equal(t, "M1", stops[0].Customer.Code)
	assert.Equal(t, "W1", stops[1].Customer.Code)
	assert.Equal(t, "W2", stops[2].Customer.Code)
}

func TestSubTargetFor(t *testing.T) {
	plan := &Plan{SubTargets: []PeriodTargets{
		{Index: 0, Start: day(2026, 3, 1), End: day(2026, 3, 7), Visits: 10},
		{Index: 1, Start: day(2026, 3, 8), End: day(2026, 3, 14), Visits: 12},
	}}

	first := plan.SubTargetFor(day(2026, 3, 7))
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Index)

	second := plan.SubTargetFor(day(2026, 3, 8))
	require.NotNil(t, second)
	assert.Equal(t, 1, second.Index)

	assert.Nil(t, plan.SubTargetFor(day(2026, 4, 1)))
}

func TestPlanStatus_Analyzable(t *testing.T) {
	assert.True(t, PlanActive.Analyzable())
	assert.True(t, PlanRevised.Analyzable())
	assert.True(t, PlanAnalyzed.Analyzable())
	assert.False(t, PlanDrafted.Analyzable())
	assert.False(t, PlanClosed.Analyzable())
}

func TestTier_MinVisitMinutes(t *testing.T) {
	assert.Equal(t, 30, Tier1.MinVisitMinutes())
	assert.Equal(t, 20, Tier2.MinVisitMinutes())
	assert.Equal(t, 15, Tier3.MinVisitMinutes())
	assert.Equal(t, 10, Tier4.MinVisitMinutes())
	assert.False(t, Tier(9).Valid())
}

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/testutil"
)

var (
	weekStart = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	weekEnd   = weekStart.AddDate(0, 0, 6)
)

func routeFor(codes []string, area string) domain.DailyRoute {
	var stops []domain.RouteStop
	for i, code := range codes {
		c := testutil.NewTestCustomer(code, testutil.WithArea(area))
		stops = append(stops, domain.RouteStop{
			Customer: domain.ScoredCustomer{Customer: c, PredictedValue: 100},
			Seq:      i + 1,
		})
	}
	return domain.DailyRoute{Stops: stops, TotalCustomers: len(stops)}
}

// analyzedPlan plans 4 visits at 100 revenue each in one week: two in
// NORTH on Monday, two in SOUTH on Tuesday.
func analyzedPlan() *domain.Plan {
	return testutil.NewTestPlan("agent-1", weekStart,
		testutil.WithSubTargets(domain.PeriodTargets{
			Index: 0, Start: weekStart, End: weekEnd, Visits: 4, Revenue: 400,
		}),
		testutil.WithDay(weekStart, routeFor([]string{"N1", "N2"}, "NORTH")),
		testutil.WithDay(weekStart.AddDate(0, 0, 1), routeFor([]string{"S1", "S2"}, "SOUTH")),
	)
}

func analyzeParams(plan *domain.Plan, events []domain.VisitEvent) AnalyzeParams {
	cfg := config.Default()
	return AnalyzeParams{
		Plan:             plan,
		PeriodIndex:      0,
		WindowStart:      weekStart,
		WindowEnd:        weekEnd,
		Events:           events,
		Bands:            cfg.Bands,
		BlendVisitWeight: cfg.BlendVisitWeight,
		NoiseVisits:      cfg.UnplannedNoiseVisits,
	}
}

func TestAnalyze_FullAchievement(t *testing.T) {
	plan := analyzedPlan()
	events := []domain.VisitEvent{
		{CustomerCode: "N1", Area: "NORTH", VisitedAt: weekStart, Amount: 100},
		{CustomerCode: "N2", Area: "NORTH", VisitedAt: weekStart, Amount: 100},
		{CustomerCode: "S1", Area: "SOUTH", VisitedAt: weekStart.AddDate(0, 0, 1), Amount: 100},
		{CustomerCode: "S2", Area: "SOUTH", VisitedAt: weekStart.AddDate(0, 0, 1), Amount: 100},
	}

	a := Analyze(analyzeParams(plan, events))

	assert.InDelta(t, 100.0, a.VisitAchievementPct, 0.001)
	assert.InDelta(t, 100.0, a.RevenueAchievementPct, 0.001)
	assert.Equal(t, domain.BandExcellent, a.Band)
	assert.Empty(t, a.MissedCustomers)
	assert.Equal(t, 0, a.VisitGap)

	require.Len(t, a.Areas, 2)
	for _, ar := range a.Areas {
		assert.Equal(t, domain.AreaCovered, ar.Verdict)
	}
}

func TestAnalyze_MissedAreaAndCustomers(t *testing.T) {
	plan := analyzedPlan()
	// Only NORTH executed; half the visits, half the revenue.
	events := []domain.VisitEvent{
		{CustomerCode: "N1", Area: "NORTH", VisitedAt: weekStart, Amount: 100},
		{CustomerCode: "N2", Area: "NORTH", VisitedAt: weekStart, Amount: 100},
	}

	a := Analyze(analyzeParams(plan, events))

	assert.InDelta(t, 50.0, a.VisitAchievementPct, 0.001)
	assert.InDelta(t, 50.0, a.RevenueAchievementPct, 0.001)
	assert.InDelta(t, 50.0, a.BlendedPct, 0.001)
	assert.Equal(t, domain.BandBelowAverage, a.Band)
	assert.Equal(t, 2, a.VisitGap)
	assert.InDelta(t, 200.0, a.RevenueGap, 0.001)
	assert.Equal(t, []string{"S1", "S2"}, a.MissedCustomers)

	verdicts := map[string]domain.AreaVerdict{}
	for _, ar := range a.Areas {
		verdicts[ar.Area] = ar.Verdict
	}
	assert.Equal(t, domain.AreaCovered, verdicts["NORTH"])
	assert.Equal(t, domain.AreaMissed, verdicts["SOUTH"])
}

func TestAnalyze_UnplannedActivityNoiseThreshold(t *testing.T) {
	plan := analyzedPlan()
	events := []domain.VisitEvent{
		{CustomerCode: "N1", Area: "NORTH", VisitedAt: weekStart, Amount: 100},
		// One stray visit in an unplanned area: below the noise
		// threshold of 2, so it is not reported.
		{CustomerCode: "X1", Area: "EAST", VisitedAt: weekStart, Amount: 50},
	}

	a := Analyze(analyzeParams(plan, events))
	for _, ar := range a.Areas {
		assert.NotEqual(t, "EAST", ar.Area)
	}

	// A second visit crosses the threshold.
	events = append(events, domain.VisitEvent{CustomerCode: "X2", Area: "EAST", VisitedAt: weekStart, Amount: 50})
	a = Analyze(analyzeParams(plan, events))

	found := false
	for _, ar := range a.Areas {
		if ar.Area == "EAST" {
			found = true
			assert.Equal(t, domain.AreaUnplanned, ar.Verdict)
		}
	}
	assert.True(t, found)
}

func TestAnalyze_EventsOutsideWindowIgnored(t *testing.T) {
	plan := analyzedPlan()
	events := []domain.VisitEvent{
		{CustomerCode: "N1", Area: "NORTH", VisitedAt: weekStart.AddDate(0, 0, -1), Amount: 100},
		{CustomerCode: "N2", Area: "NORTH", VisitedAt: weekEnd.AddDate(0, 0, 1), Amount: 100},
	}

	a := Analyze(analyzeParams(plan, events))
	assert.Equal(t, 0, a.ActualVisits)
	assert.InDelta(t, 0.0, a.ActualRevenue, 0.001)
}

func TestAnalyze_ZeroTargetIsFullyAchieved(t *testing.T) {
	plan := testutil.NewTestPlan("agent-1", weekStart,
		testutil.WithSubTargets(domain.PeriodTargets{Index: 0, Start: weekStart, End: weekEnd}),
	)

	a := Analyze(analyzeParams(plan, nil))
	assert.InDelta(t, 100.0, a.VisitAchievementPct, 0.001)
	assert.InDelta(t, 100.0, a.RevenueAchievementPct, 0.001)
}

func TestAnalyze_Deterministic(t *testing.T) {
	plan := analyzedPlan()
	events := []domain.VisitEvent{
		{CustomerCode: "N1", Area: "NORTH", VisitedAt: weekStart, Amount: 80},
		{CustomerCode: "S1", Area: "SOUTH", VisitedAt: weekStart.AddDate(0, 0, 1), Amount: 120},
	}

	first := Analyze(analyzeParams(plan, events))
	second := Analyze(analyzeParams(plan, events))
	assert.Equal(t, first, second)
}

func TestBand_Thresholds(t *testing.T) {
	bands := config.Default().Bands

	tests := []struct {
		pct  float64
		want domain.PerformanceBand
	}{
		{95, domain.BandExcellent},
		{90, domain.BandExcellent},
		{80, domain.BandGood},
		{75, domain.BandGood},
		{60, domain.BandAverage},
		{45, domain.BandBelowAverage},
		{40, domain.BandBelowAverage},
		{10, domain.BandPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.pct, bands), "pct %v", tt.pct)
	}
}

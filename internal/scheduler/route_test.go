package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/testutil"
)

var routeDate = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

func defaultRouteParams() RouteParams {
	cfg := config.Default()
	return RouteParams{
		Capacity: domain.Capacity{
			MaxVisits:    12,
			MaxTravelMin: 240,
			WorkStartMin: 8*60 + 30,
			WorkEndMin:   17*60 + 30,
		},
		Travel:   NewTravelModel(cfg.Travel),
		NBDQuota: cfg.NBDQuota,
	}
}

// scoredStop builds a same-area, coordinate-free candidate so travel
// legs are the 10 minute intra-area constant.
func scoredStop(code string, priority float64, nbd bool) domain.ScoredCustomer {
	return domain.ScoredCustomer{
		Customer:       testutil.NewTestCustomer(code),
		PriorityScore:  priority,
		UrgencyScore:   50,
		PredictedValue: 100,
		NBD:            nbd,
	}
}

func TestBuildDailyRoute_InfeasibleCapacity(t *testing.T) {
	p := defaultRouteParams()
	p.Capacity.MaxVisits = 0
	_, err := BuildDailyRoute(routeDate, []domain.ScoredCustomer{scoredStop("C1", 50, false)}, p)
	require.Error(t, err)
	assert.True(t, contract.IsCode(err, contract.ErrInfeasibleCapacity))

	p = defaultRouteParams()
	p.Capacity.WorkStartMin = p.Capacity.WorkEndMin
	_, err = BuildDailyRoute(routeDate, []domain.ScoredCustomer{scoredStop("C1", 50, false)}, p)
	require.Error(t, err)
	assert.True(t, contract.IsCode(err, contract.ErrInfeasibleCapacity))
}

func TestBuildDailyRoute_EmptyCandidates(t *testing.T) {
	route, err := BuildDailyRoute(routeDate, nil, defaultRouteParams())
	require.NoError(t, err)
	assert.Empty(t, route.Stops)
	assert.Equal(t, 0, route.TotalCustomers)
}

func TestBuildDailyRoute_BudgetEnforced(t *testing.T) {
	// Tier 2 visits are 20 min, intra-area legs 10 min: the first stop
	// costs 20, every further stop 30. 240 min fits exactly 8 stops.
	var candidates []domain.ScoredCustomer
	for i := 0; i < 20; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("C%02d", i), float64(100-i), false))
	}

	route, err := BuildDailyRoute(routeDate, candidates, defaultRouteParams())
	require.NoError(t, err)

	require.Len(t, route.Stops, 8)

	visitMin := 0
	for _, s := range route.Stops {
		visitMin += s.DurationMin
	}
	assert.LessOrEqual(t, route.TotalTravelMin+visitMin, 240)

	// Drops remove the lowest-priority candidates; the strongest stay.
	kept := make(map[string]bool)
	for _, s := range route.Stops {
		kept[s.Customer.Code] = true
	}
	for i := 0; i < 8; i++ {
		assert.True(t, kept[fmt.Sprintf("C%02d", i)], "expected C%02d in route", i)
	}
}

func TestBuildDailyRoute_StopsWithinWorkWindow(t *testing.T) {
	var candidates []domain.ScoredCustomer
	for i := 0; i < 6; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("C%d", i), float64(60-i), false))
	}

	route, err := BuildDailyRoute(routeDate, candidates, defaultRouteParams())
	require.NoError(t, err)
	require.NotEmpty(t, route.Stops)

	dayStart := routeDate.Add(time.Duration(8*60+30) * time.Minute)
	dayEnd := routeDate.Add(time.Duration(17*60+30) * time.Minute)

	prevEnd := dayStart
	for i, s := range route.Stops {
		assert.Equal(t, i+1, s.Seq)
		assert.False(t, s.VisitStart.Before(prevEnd), "stop %d starts before previous ends", i)
		assert.False(t, s.VisitEnd.After(dayEnd), "stop %d ends after the work window", i)
		prevEnd = s.VisitEnd
	}
}

func TestBuildDailyRoute_NBDQuota(t *testing.T) {
	// Five slots, 40% quota -> at least 2 NBD stops even though every
	// NBD candidate ranks below every existing customer.
	p := defaultRouteParams()
	p.Capacity.MaxVisits = 5

	var candidates []domain.ScoredCustomer
	for i := 0; i < 5; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("E%d", i), float64(90-i), false))
	}
	for i := 0; i < 3; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("N%d", i), float64(20-i), true))
	}

	route, err := BuildDailyRoute(routeDate, candidates, p)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, route.NBDStops(), 2)
}

func TestBuildDailyRoute_NBDQuotaBestEffort(t *testing.T) {
	// No NBD candidates at all: the quota cannot be met and the route
	// still builds.
	p := defaultRouteParams()
	p.Capacity.MaxVisits = 5

	var candidates []domain.ScoredCustomer
	for i := 0; i < 5; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("E%d", i), float64(90-i), false))
	}

	route, err := BuildDailyRoute(routeDate, candidates, p)
	require.NoError(t, err)
	assert.Len(t, route.Stops, 5)
	assert.Equal(t, 0, route.NBDStops())
}

func TestBuildDailyRoute_DropProtectsNBDQuota(t *testing.T) {
	// Force drops and check NBD stops survive them while the quota is
	// still satisfiable.
	p := defaultRouteParams()
	p.Capacity.MaxVisits = 8
	p.Capacity.MaxTravelMin = 140 // fits 5 stops (20 + 4*30)

	var candidates []domain.ScoredCustomer
	for i := 0; i < 6; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("E%d", i), float64(90-i), false))
	}
	candidates = append(candidates,
		scoredStop("N0", 10, true),
		scoredStop("N1", 9, true),
	)

	route, err := BuildDailyRoute(routeDate, candidates, p)
	require.NoError(t, err)
	require.Len(t, route.Stops, 5)
	assert.GreaterOrEqual(t, route.NBDStops(), nbdRequired(len(route.Stops), p.NBDQuota))
}

func TestBuildDailyRoute_OverdueTierOnesAndProspectMix(t *testing.T) {
	// A 20-customer portfolio: 3 Tier 1 accounts 45 days overdue, 10
	// never-visited prospects, 7 recently covered Tier 4 accounts. The
	// route must carry all three Tier 1s, keep the NBD mix at or above
	// the quota, and stay inside 12 visits / 240 minutes.
	now := routeDate
	var customers []domain.Customer
	for _, code := range []string{"T1A", "T1B", "T1C"} {
		customers = append(customers, testutil.NewTestCustomer(code,
			testutil.WithTier(domain.Tier1),
			testutil.WithLastVisit(now.AddDate(0, 0, -45)),
		))
	}
	for i := 0; i < 10; i++ {
		customers = append(customers, testutil.NewTestCustomer(fmt.Sprintf("P%02d", i),
			testutil.WithTier(domain.Tier3),
			testutil.WithProspect(),
			testutil.NeverVisited(),
			testutil.WithSales(0, 0),
		))
	}
	for i := 0; i < 7; i++ {
		customers = append(customers, testutil.NewTestCustomer(fmt.Sprintf("E%d", i),
			testutil.WithTier(domain.Tier4),
			testutil.WithLastVisit(now.AddDate(0, 0, -5)),
		))
	}

	scored, rejected := ScorePortfolio("agent-1", customers, now, config.Default().Weights, nil)
	require.Empty(t, rejected)
	require.Len(t, scored, 20)

	p := defaultRouteParams()
	route, err := BuildDailyRoute(now, scored, p)
	require.NoError(t, err)

	// Selection takes the 3 Tier 1s plus 9 prospects; the 240 minute
	// budget (30 min Tier 1 visits, 15 min prospect visits, 10 min
	// intra-area legs) then forces drops down to 8 stops.
	require.Len(t, route.Stops, 8)
	assert.LessOrEqual(t, len(route.Stops), p.Capacity.MaxVisits)

	kept := make(map[string]bool)
	visitMin := 0
	for _, s := range route.Stops {
		kept[s.Customer.Code] = true
		visitMin += s.DurationMin
	}
	for _, code := range []string{"T1A", "T1B", "T1C"} {
		assert.True(t, kept[code], "expected overdue Tier 1 %s in route", code)
	}

	assert.LessOrEqual(t, route.TotalTravelMin+visitMin, p.Capacity.MaxTravelMin)
	assert.GreaterOrEqual(t, route.NBDStops(), 5)
	assert.GreaterOrEqual(t, route.NBDStops(), nbdRequired(len(route.Stops), p.NBDQuota))
}

func TestBuildDailyRoute_Deterministic(t *testing.T) {
	var candidates []domain.ScoredCustomer
	for i := 0; i < 10; i++ {
		candidates = append(candidates, scoredStop(fmt.Sprintf("C%d", i), 50, i%3 == 0))
	}

	first, err := BuildDailyRoute(routeDate, candidates, defaultRouteParams())
	require.NoError(t, err)
	second, err := BuildDailyRoute(routeDate, candidates, defaultRouteParams())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildDailyRoute_HintsDoNotChangeScores(t *testing.T) {
	p := defaultRouteParams()
	p.Capacity.MaxVisits = 2
	p.Hints = RouteHints{PriorityCustomers: map[string]bool{"LOW": true}}

	candidates := []domain.ScoredCustomer{
		scoredStop("HIGH", 50, false),
		scoredStop("MID", 45, false),
		scoredStop("LOW", 44, false),
	}

	route, err := BuildDailyRoute(routeDate, candidates, p)
	require.NoError(t, err)
	require.Len(t, route.Stops, 2)

	// The +10 hint bonus lifts LOW over MID for selection, but the
	// stored score is the one computed by the scorer.
	codes := map[string]float64{}
	for _, s := range route.Stops {
		codes[s.Customer.Code] = s.Customer.PriorityScore
	}
	require.Contains(t, codes, "LOW")
	assert.InDelta(t, 44.0, codes["LOW"], 0.001)
}

func TestSequenceStops_NearestNeighborFromTopPriority(t *testing.T) {
	// B is top priority and anchors the sequence; with coordinates the
	// nearest unvisited stop follows.
	lat := func(v float64) *float64 { return &v }

	mk := func(code string, priority, la, lo float64) domain.ScoredCustomer {
		c := testutil.NewTestCustomer(code)
		c.Lat, c.Lon = lat(la), lat(lo)
		return domain.ScoredCustomer{Customer: c, PriorityScore: priority}
	}

	stops := []domain.ScoredCustomer{
		mk("A", 10, 24.70, 46.70),
		mk("B", 90, 24.80, 46.80),
		mk("C", 50, 24.79, 46.79), // closest to B
	}

	seq := sequenceStops(stops, NewTravelModel(config.Default().Travel))
	require.Len(t, seq, 3)
	assert.Equal(t, "B", seq[0].Code)
	assert.Equal(t, "C", seq[1].Code)
	assert.Equal(t, "A", seq[2].Code)
}

func TestCanonicalSort_Ordering(t *testing.T) {
	stops := []domain.ScoredCustomer{
		scoredStop("B", 50, false),
		scoredStop("A", 50, false),
		scoredStop("C", 70, false),
	}
	stops[0].UrgencyScore = 50
	stops[1].UrgencyScore = 50
	stops[2].UrgencyScore = 10

	CanonicalSort(stops)
	assert.Equal(t, "C", stops[0].Code) // priority wins
	assert.Equal(t, "A", stops[1].Code) // code breaks the tie
	assert.Equal(t, "B", stops[2].Code)
}

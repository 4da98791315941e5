package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/testutil"
)

var weekMonday = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

func storablePlan(agentID string, opts ...testutil.PlanOption) *domain.Plan {
	p := testutil.NewTestPlan(agentID, weekMonday, opts...)
	// Sub-second precision does not survive the RFC3339 round trip.
	p.CreatedAt = time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	return p
}

func TestPlanRepo_CreateAndGetRoundtrip(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	route := domain.DailyRoute{
		Date: weekMonday,
		Stops: []domain.RouteStop{{
			Customer: domain.ScoredCustomer{
				Customer:      testutil.NewTestCustomer("C01", testutil.WithArea("NORTH")),
				PriorityScore: 55,
				NBD:           true,
			},
			Seq:             1,
			DurationMin:     20,
			ExpectedRevenue: 500,
		}},
		TotalCustomers: 1,
		TotalRevenue:   500,
	}
	plan := storablePlan("agent-1",
		testutil.WithSubTargets(domain.PeriodTargets{
			Index: 0, Start: weekMonday, End: weekMonday,
			Visits: 1, Revenue: 500, NBDVisits: 1,
			FocusAreas: []string{"NORTH"},
		}),
		testutil.WithDay(weekMonday, route),
	)
	plan.FocusAreas = []string{"NORTH"}
	plan.PriorityCustomers = []string{"C01"}
	plan.Deferred = []domain.DeferredVisit{{CustomerCode: "C09", Area: "SOUTH", Reason: "period capacity exhausted"}}
	plan.Warnings = []string{"1 due visits deferred for capacity"}
	plan.Narrative = "Short week, focus north."

	require.NoError(t, repo.Create(ctx, plan))

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)

	assert.Equal(t, plan.AgentID, got.AgentID)
	assert.Equal(t, plan.Period, got.Period)
	assert.Equal(t, domain.PlanActive, got.Status)
	assert.Equal(t, plan.Targets, got.Targets)
	assert.Equal(t, plan.SubTargets, got.SubTargets)
	assert.Equal(t, plan.FocusAreas, got.FocusAreas)
	assert.Equal(t, plan.Deferred, got.Deferred)
	assert.Equal(t, plan.Warnings, got.Warnings)
	assert.Equal(t, plan.Narrative, got.Narrative)
	assert.Equal(t, plan.CreatedAt, got.CreatedAt)

	require.Contains(t, got.Days, "2026-03-16")
	stored := got.Days["2026-03-16"]
	require.Len(t, stored.Stops, 1)
	assert.Equal(t, "C01", stored.Stops[0].Customer.Code)
	assert.True(t, stored.Stops[0].Customer.NBD)
}

func TestPlanRepo_GetByIDNotFound(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, contract.IsCode(err, contract.ErrPlanNotFound))
}

func TestPlanRepo_GetByAgentPeriod(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	plan := storablePlan("agent-1")
	require.NoError(t, repo.Create(ctx, plan))

	got, err := repo.GetByAgentPeriod(ctx, "agent-1", domain.PeriodWeek, weekMonday)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)

	_, err = repo.GetByAgentPeriod(ctx, "agent-1", domain.PeriodWeek, weekMonday.AddDate(0, 0, 7))
	assert.True(t, contract.IsCode(err, contract.ErrPlanNotFound))

	_, err = repo.GetByAgentPeriod(ctx, "agent-2", domain.PeriodWeek, weekMonday)
	assert.True(t, contract.IsCode(err, contract.ErrPlanNotFound))
}

func TestPlanRepo_ReplaceDraftOnly(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	draft := storablePlan("agent-1", testutil.WithStatus(domain.PlanDrafted))
	require.NoError(t, repo.Create(ctx, draft))

	draft.Targets.Visits = 42
	require.NoError(t, repo.Replace(ctx, draft))

	got, err := repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Targets.Visits)

	// Published plans are immutable.
	require.NoError(t, repo.UpdateStatus(ctx, draft.ID, domain.PlanActive, time.Now().UTC()))
	err = repo.Replace(ctx, draft)
	assert.True(t, contract.IsCode(err, contract.ErrInvalidPeriodState))
}

func TestPlanRepo_UpdateStatusTimestamps(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	plan := storablePlan("agent-1", testutil.WithStatus(domain.PlanDrafted))
	require.NoError(t, repo.Create(ctx, plan))

	publishedAt := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus(ctx, plan.ID, domain.PlanActive, publishedAt))

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, publishedAt, *got.PublishedAt)
	assert.Nil(t, got.ClosedAt)

	// published_at is written once; later transitions leave it alone.
	closedAt := time.Date(2026, 3, 22, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus(ctx, plan.ID, domain.PlanClosed, closedAt))

	got, err = repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, publishedAt, *got.PublishedAt)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, closedAt, *got.ClosedAt)

	err = repo.UpdateStatus(ctx, "nope", domain.PlanActive, time.Now().UTC())
	assert.True(t, contract.IsCode(err, contract.ErrPlanNotFound))
}

func TestPlanRepo_AppendRevisionRoundtrip(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	plan := storablePlan("agent-1")
	require.NoError(t, repo.Create(ctx, plan))

	rev := domain.PlanRevision{
		PlanID:      plan.ID,
		PeriodIndex: 0,
		Analysis:    domain.Analysis{PlanID: plan.ID, VisitGap: 3, Band: domain.BandPoor},
		Deltas: []domain.PeriodDelta{
			{Index: 1, VisitDelta: 2, RevenueDelta: 150, AddFocusAreas: []string{"NORTH"}},
		},
		EscalatedCustomers: []string{"C01"},
		CreatedAt:          time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AppendRevision(ctx, plan.ID, 0, &rev))
	assert.Equal(t, 1, rev.Seq)

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RevisionCount)
	assert.Equal(t, domain.PlanRevised, got.Status)

	revisions, err := repo.ListRevisions(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, 1, revisions[0].Seq)
	assert.Equal(t, 3, revisions[0].Analysis.VisitGap)
	assert.Equal(t, rev.Deltas, revisions[0].Deltas)
	assert.Equal(t, []string{"C01"}, revisions[0].EscalatedCustomers)
	assert.Equal(t, rev.CreatedAt, revisions[0].CreatedAt)
}

func TestPlanRepo_AppendRevisionStaleCount(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	plan := storablePlan("agent-1")
	require.NoError(t, repo.Create(ctx, plan))

	rev := domain.PlanRevision{PlanID: plan.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.AppendRevision(ctx, plan.ID, 0, &rev))

	stale := domain.PlanRevision{PlanID: plan.ID, CreatedAt: time.Now().UTC()}
	err := repo.AppendRevision(ctx, plan.ID, 0, &stale)
	assert.True(t, contract.IsCode(err, contract.ErrVersionConflict))

	// With the advanced count the append goes through.
	require.NoError(t, repo.AppendRevision(ctx, plan.ID, 1, &stale))
}

func TestPlanRepo_AppendRevisionStateGuards(t *testing.T) {
	repo := NewSQLitePlanRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	draft := storablePlan("agent-1", testutil.WithStatus(domain.PlanDrafted))
	require.NoError(t, repo.Create(ctx, draft))

	rev := domain.PlanRevision{PlanID: draft.ID, CreatedAt: time.Now().UTC()}
	err := repo.AppendRevision(ctx, draft.ID, 0, &rev)
	assert.True(t, contract.IsCode(err, contract.ErrInvalidPeriodState))

	err = repo.AppendRevision(ctx, "nope", 0, &rev)
	assert.True(t, contract.IsCode(err, contract.ErrPlanNotFound))
}

func TestPlanRepo_ConcurrentAppendsSerialize(t *testing.T) {
	// File-backed database: concurrent writers share state.
	repo := NewSQLitePlanRepo(testutil.NewTestFileDB(t))
	ctx := context.Background()

	plan := storablePlan("agent-1")
	require.NoError(t, repo.Create(ctx, plan))

	const writers = 2
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rev := domain.PlanRevision{PlanID: plan.ID, CreatedAt: time.Now().UTC()}
			errs[i] = repo.AppendRevision(ctx, plan.ID, 0, &rev)
		}(i)
	}
	wg.Wait()

	// Exactly one append wins; the other sees the advanced count.
	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, contract.IsCode(err, contract.ErrVersionConflict), "unexpected error: %v", err)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	revisions, err := repo.ListRevisions(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, revisions, 1)

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RevisionCount)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quintalabs/fieldplan/internal/annotate"
	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/repository"
	"github.com/quintalabs/fieldplan/internal/testutil"
)

type stubAnnotator struct {
	narrative *annotate.Narrative
	err       error
	calls     int
}

func (s *stubAnnotator) Annotate(ctx context.Context, plan *domain.Plan) (*annotate.Narrative, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.narrative, nil
}

type planHarness struct {
	svc       PlanService
	portfolio *repository.SQLitePortfolioRepo
	plans     *repository.SQLitePlanRepo
	annotator *stubAnnotator
}

func newPlanHarness(t *testing.T, annotator *stubAnnotator) *planHarness {
	t.Helper()
	database := testutil.NewTestDB(t)
	portfolio := repository.NewSQLitePortfolioRepo(database)
	plans := repository.NewSQLitePlanRepo(database)

	var narr annotate.NarrativeService
	if annotator != nil {
		narr = annotator
	}
	return &planHarness{
		svc:       NewPlanService(config.Default(), portfolio, plans, narr),
		portfolio: portfolio,
		plans:     plans,
		annotator: annotator,
	}
}

func (h *planHarness) seed(t *testing.T, agentID string, customers ...domain.Customer) {
	t.Helper()
	for i := range customers {
		require.NoError(t, h.portfolio.UpsertCustomer(context.Background(), agentID, &customers[i]))
	}
}

func weekRequest(agentID string) contract.GeneratePlanRequest {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	return contract.GeneratePlanRequest{
		AgentID:     agentID,
		PeriodKind:  domain.PeriodWeek,
		PeriodStart: date(2026, 3, 18),
		Now:         &now,
	}
}

func TestPlanService_GenerateWeeklyDraft(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1",
		testutil.NewTestCustomer("C01"),
		testutil.NewTestCustomer("C02", testutil.WithArea("NORTH")),
		testutil.NewTestCustomer("C03", testutil.WithArea("NORTH")),
		testutil.NewTestCustomer("C04", testutil.WithProspect(), testutil.NeverVisited()),
		testutil.NewTestCustomer("C05"),
		testutil.NewTestCustomer("C06"),
	)

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	plan := resp.Plan
	assert.Equal(t, domain.PlanDrafted, plan.Status)
	assert.Equal(t, date(2026, 3, 16), plan.Period.Start)
	assert.Equal(t, date(2026, 3, 22), plan.Period.End)
	assert.Equal(t, "v1", plan.ConfigVersion)

	// One analyzable window per working day.
	require.Len(t, plan.SubTargets, 6)
	assert.Equal(t, plan.Targets.Visits, plan.TotalSubTargetVisits())
	assert.Positive(t, plan.Targets.Visits)
	assert.NotEmpty(t, plan.Days)
	assert.NotEmpty(t, plan.FocusAreas)
	assert.NotEmpty(t, plan.PriorityCustomers)
	assert.Empty(t, resp.Skipped)

	// Persisted and retrievable.
	stored, err := h.svc.Get(context.Background(), plan.ID, false)
	require.NoError(t, err)
	assert.Equal(t, plan.Targets.Visits, stored.Targets.Visits)
}

func TestPlanService_RegenerateDraftKeepsIdentity(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"), testutil.NewTestCustomer("C02"))

	first, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	second, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	assert.Equal(t, first.Plan.ID, second.Plan.ID)
	assert.Equal(t, domain.PlanDrafted, second.Plan.Status)

	// Unchanged portfolio and pinned Now: the re-plan is a no-op beyond
	// identity. Same targets, same per-day assignments.
	assert.Equal(t, first.Plan.Targets, second.Plan.Targets)
	assert.Equal(t, first.Plan.SubTargets, second.Plan.SubTargets)
	assert.Equal(t, first.Plan.Days, second.Plan.Days)
	assert.Equal(t, first.Plan.FocusAreas, second.Plan.FocusAreas)
	assert.Equal(t, first.Plan.Deferred, second.Plan.Deferred)
}

func TestPlanService_PublishedPlanBlocksRegeneration(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"))

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	_, err = h.svc.Publish(context.Background(), resp.Plan.ID)
	require.NoError(t, err)

	_, err = h.svc.Generate(context.Background(), weekRequest("agent-1"))
	assert.True(t, contract.IsCode(err, contract.ErrPlanExists))
}

func TestPlanService_EmptyPortfolio(t *testing.T) {
	h := newPlanHarness(t, nil)

	_, err := h.svc.Generate(context.Background(), weekRequest("agent-none"))
	assert.True(t, contract.IsCode(err, contract.ErrEmptyPortfolio))
}

func TestPlanService_SkipsInvalidRecords(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1",
		testutil.NewTestCustomer("C01"),
		testutil.NewTestCustomer("C02"),
		testutil.NewTestCustomer("BAD", testutil.WithTier(domain.Tier(9))),
	)

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "BAD", resp.Skipped[0].CustomerCode)
	assert.Contains(t, strings.Join(resp.Warnings, "\n"), "skipped")

	// The bad record never reaches a route.
	for _, route := range resp.Plan.Days {
		for _, stop := range route.Stops {
			assert.NotEqual(t, "BAD", stop.Customer.Code)
		}
	}
}

func TestPlanService_CarryOverAddedToTargets(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1",
		testutil.NewTestCustomer("C01"),
		testutil.NewTestCustomer("C02"),
		testutil.NewTestCustomer("C03"),
	)

	req := weekRequest("agent-1")
	req.CarryOverVisits = 7
	req.CarryOverRevenue = 600

	resp, err := h.svc.Generate(context.Background(), req)
	require.NoError(t, err)

	planned := 0
	plannedRevenue := 0.0
	for _, route := range resp.Plan.Days {
		planned += route.TotalCustomers
		plannedRevenue += route.TotalRevenue
	}

	// The carried gap lands on top of what the routes produce, exactly.
	assert.Equal(t, planned+7, resp.Plan.Targets.Visits)
	assert.InDelta(t, plannedRevenue+600, resp.Plan.Targets.Revenue, 0.001)
}

func TestPlanService_NarrativeAnnotation(t *testing.T) {
	annotator := &stubAnnotator{narrative: &annotate.Narrative{
		Summary:    "Focus on the north this week.",
		Objectives: []string{"Recover churning accounts", "Open two prospects"},
	}}
	h := newPlanHarness(t, annotator)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"))

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	assert.Equal(t, 1, annotator.calls)
	assert.Equal(t,
		"Focus on the north this week.\n- Recover churning accounts\n- Open two prospects",
		resp.Plan.Narrative)
}

func TestPlanService_NarrativeFailureDegrades(t *testing.T) {
	annotator := &stubAnnotator{err: errors.New("connection refused")}
	h := newPlanHarness(t, annotator)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"))

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	assert.Empty(t, resp.Plan.Narrative)
	joined := strings.Join(resp.Warnings, "\n")
	assert.Contains(t, joined, string(contract.ErrCollaboratorUnavailable))
	assert.Contains(t, joined, "narrative annotation failed")
}

func TestPlanService_SkipNarrative(t *testing.T) {
	annotator := &stubAnnotator{narrative: &annotate.Narrative{Summary: "s", Objectives: []string{"o"}}}
	h := newPlanHarness(t, annotator)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"))

	req := weekRequest("agent-1")
	req.SkipNarrative = true

	resp, err := h.svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, annotator.calls)
	assert.Empty(t, resp.Plan.Narrative)
}

func TestPlanService_PublishLifecycle(t *testing.T) {
	h := newPlanHarness(t, nil)
	h.seed(t, "agent-1", testutil.NewTestCustomer("C01"))

	resp, err := h.svc.Generate(context.Background(), weekRequest("agent-1"))
	require.NoError(t, err)

	published, err := h.svc.Publish(context.Background(), resp.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanActive, published.Status)
	require.NotNil(t, published.PublishedAt)

	// Publishing twice is rejected.
	_, err = h.svc.Publish(context.Background(), resp.Plan.ID)
	assert.True(t, contract.IsCode(err, contract.ErrInvalidPeriodState))
}

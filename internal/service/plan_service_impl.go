package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quintalabs/fieldplan/internal/annotate"
	"github.com/quintalabs/fieldplan/internal/cache"
	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/repository"
	"github.com/quintalabs/fieldplan/internal/scheduler"
)

const (
	maxFocusAreas        = 3
	maxPriorityCustomers = 10
)

type planService struct {
	cfg       *config.Config
	portfolio repository.PortfolioRepo
	plans     repository.PlanRepo
	annotator annotate.NarrativeService
	snapshots *cache.TTL[string, []domain.Customer]
	observer  UseCaseObserver
}

// NewPlanService wires the generation pipeline. The annotator is
// optional; nil disables narrative enrichment entirely.
func NewPlanService(
	cfg *config.Config,
	portfolio repository.PortfolioRepo,
	plans repository.PlanRepo,
	annotator annotate.NarrativeService,
	observers ...UseCaseObserver,
) PlanService {
	return &planService{
		cfg:       cfg,
		portfolio: portfolio,
		plans:     plans,
		annotator: annotator,
		snapshots: cache.NewTTL[string, []domain.Customer](cfg.PortfolioTTL),
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *planService) Generate(ctx context.Context, req contract.GeneratePlanRequest) (resp *contract.GeneratePlanResponse, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "plan_generate", start, err, map[string]any{"agent_id": req.AgentID})
	}()

	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	period := NormalizePeriod(req.PeriodKind, req.PeriodStart)

	// Regeneration is allowed only while the plan is still a draft. A
	// published baseline is immutable; revisions are the only way to
	// adjust it.
	existing, err := s.plans.GetByAgentPeriod(ctx, req.AgentID, period.Kind, period.Start)
	if err != nil && !contract.IsCode(err, contract.ErrPlanNotFound) {
		return nil, fmt.Errorf("loading existing plan: %w", err)
	}
	if existing != nil && existing.Status != domain.PlanDrafted {
		return nil, &contract.PlanError{
			Code:    contract.ErrPlanExists,
			AgentID: req.AgentID,
			PlanID:  existing.ID,
			Period:  period.Key(),
			State:   existing.Status,
			Message: "a published plan already exists for this period",
		}
	}

	customers, err := s.loadPortfolio(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, &contract.PlanError{
			Code:    contract.ErrEmptyPortfolio,
			AgentID: req.AgentID,
			Message: "agent has no active customers",
		}
	}

	escalated, err := s.priorEscalations(ctx, req.AgentID, period)
	if err != nil {
		return nil, err
	}

	scored, rejected := scheduler.ScorePortfolio(req.AgentID, customers, now, s.cfg.Weights, escalated)
	if len(scored) == 0 {
		return nil, &contract.PlanError{
			Code:    contract.ErrEmptyPortfolio,
			AgentID: req.AgentID,
			Message: "every customer record failed integrity validation",
		}
	}

	capacity := s.capacityDefaults()
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	days := WorkingDays(period, s.cfg.NonWorkingWeekdays)
	if len(days) == 0 {
		return nil, &contract.PlanError{
			Code:    contract.ErrInfeasibleCapacity,
			AgentID: req.AgentID,
			Period:  period.Key(),
			Message: "period has no working days",
		}
	}

	focusAreas := topAreas(scored, maxFocusAreas)
	priorityCustomers := topCustomers(scored, maxPriorityCustomers)

	hints := scheduler.RouteHints{
		FocusAreas:        toSet(focusAreas),
		PriorityCustomers: toSet(priorityCustomers),
	}

	dist, err := scheduler.DistributePeriod(scored, scheduler.DistributeParams{
		Days:           days,
		PeriodDays:     len(period.Days()),
		Capacity:       capacity,
		Travel:         scheduler.NewTravelModel(s.cfg.Travel),
		NBDQuota:       s.cfg.NBDQuota,
		FairnessFactor: s.cfg.FairnessFactor,
		Hints:          hints,
	})
	if err != nil {
		return nil, err
	}

	plan := &domain.Plan{
		ID:                uuid.NewString(),
		AgentID:           req.AgentID,
		Period:            period,
		Status:            domain.PlanDrafted,
		ConfigVersion:     s.cfg.Version,
		Days:              dist.Routes,
		FocusAreas:        focusAreas,
		PriorityCustomers: priorityCustomers,
		Deferred:          dist.Deferred,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if existing != nil {
		plan.ID = existing.ID
		plan.CreatedAt = existing.CreatedAt
	}

	plan.SubTargets = buildSubTargets(period, days, dist.Routes, req.CarryOverVisits, req.CarryOverRevenue)
	plan.Targets = rollUpTargets(plan.SubTargets)

	var warnings []string
	if n := len(dist.Deferred); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d due visits deferred for capacity", n))
	}
	if n := len(rejected); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d customer records skipped for integrity violations", n))
	}

	if s.annotator != nil && !req.SkipNarrative {
		narrative, nerr := s.annotator.Annotate(ctx, plan)
		if nerr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: narrative annotation failed: %v", contract.ErrCollaboratorUnavailable, nerr))
		} else {
			plan.Narrative = formatNarrative(narrative)
		}
	}
	plan.Warnings = warnings

	if existing != nil {
		err = s.plans.Replace(ctx, plan)
	} else {
		err = s.plans.Create(ctx, plan)
	}
	if err != nil {
		return nil, fmt.Errorf("persisting plan: %w", err)
	}

	resp = &contract.GeneratePlanResponse{Plan: plan, Warnings: warnings}
	for _, pe := range rejected {
		resp.Skipped = append(resp.Skipped, contract.SkippedRecord{
			CustomerCode: pe.RecordID,
			Reason:       pe.Message,
		})
	}
	return resp, nil
}

func (s *planService) Publish(ctx context.Context, planID string) (plan *domain.Plan, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "plan_publish", start, err, map[string]any{"plan_id": planID})
	}()

	plan, err = s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanDrafted {
		return nil, contract.NewInvalidPeriodState(planID, plan.Status, "publish")
	}

	now := time.Now().UTC()
	if err = s.plans.UpdateStatus(ctx, planID, domain.PlanActive, now); err != nil {
		return nil, err
	}
	plan.Status = domain.PlanActive
	plan.PublishedAt = &now
	plan.UpdatedAt = now
	return plan, nil
}

func (s *planService) Get(ctx context.Context, planID string, effective bool) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !effective {
		return plan, nil
	}
	revisions, err := s.plans.ListRevisions(ctx, planID)
	if err != nil {
		return nil, err
	}
	return domain.EffectivePlan(plan, revisions), nil
}

func (s *planService) loadPortfolio(ctx context.Context, agentID string) ([]domain.Customer, error) {
	if cached, ok := s.snapshots.Get(agentID); ok {
		return cached, nil
	}
	customers, err := s.portfolio.ListCustomers(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading portfolio: %w", err)
	}
	s.snapshots.Put(agentID, customers)
	return customers, nil
}

// priorEscalations collects customers the previous horizon's revisions
// flagged as missed, so they resurface with boosted priority.
func (s *planService) priorEscalations(ctx context.Context, agentID string, period domain.Period) (map[string]bool, error) {
	prevStart := period.Start.AddDate(0, 0, -7)
	if period.Kind == domain.PeriodMonth {
		prevStart = period.Start.AddDate(0, -1, 0)
	}

	prev, err := s.plans.GetByAgentPeriod(ctx, agentID, period.Kind, prevStart)
	if err != nil {
		if contract.IsCode(err, contract.ErrPlanNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading prior plan: %w", err)
	}

	revisions, err := s.plans.ListRevisions(ctx, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("loading prior revisions: %w", err)
	}

	escalated := make(map[string]bool)
	for _, rev := range revisions {
		for _, code := range rev.EscalatedCustomers {
			escalated[code] = true
		}
	}
	return escalated, nil
}

func (s *planService) capacityDefaults() domain.Capacity {
	startMin, _ := config.ParseClock(s.cfg.Capacity.WorkStart)
	endMin, _ := config.ParseClock(s.cfg.Capacity.WorkEnd)
	return domain.Capacity{
		MaxVisits:    s.cfg.Capacity.MaxVisits,
		MaxTravelMin: s.cfg.Capacity.MaxTravelMin,
		WorkStartMin: startMin,
		WorkEndMin:   endMin,
	}
}

// buildSubTargets aggregates the built routes into per-sub-period
// targets and folds the carried-over gap from the previous horizon in,
// remainder going to the earliest windows so totals stay exact.
func buildSubTargets(period domain.Period, workingDays []time.Time, routes map[string]domain.DailyRoute, carryVisits int, carryRevenue float64) []domain.PeriodTargets {
	windows := subWindows(period, workingDays)
	targets := make([]domain.PeriodTargets, len(windows))

	for i, w := range windows {
		t := domain.PeriodTargets{Index: i, Start: w.start, End: w.end}
		areas := make(map[string]bool)
		for d := w.start; !d.After(w.end); d = d.AddDate(0, 0, 1) {
			route, ok := routes[d.Format(domain.DateLayout)]
			if !ok {
				continue
			}
			t.Visits += route.TotalCustomers
			t.Revenue += route.TotalRevenue
			t.NBDVisits += route.NBDStops()
			for _, s := range route.Stops {
				areas[s.Customer.Area] = true
			}
		}
		t.FocusAreas = sortedKeys(areas)
		targets[i] = t
	}

	if n := len(targets); n > 0 && (carryVisits > 0 || carryRevenue > 0) {
		base := carryVisits / n
		rem := carryVisits % n
		for i := range targets {
			targets[i].Visits += base
			if i < rem {
				targets[i].Visits++
			}
			targets[i].Revenue += carryRevenue / float64(n)
		}
	}
	return targets
}

func rollUpTargets(subTargets []domain.PeriodTargets) domain.PlanTargets {
	var t domain.PlanTargets
	for _, st := range subTargets {
		t.Visits += st.Visits
		t.Revenue += st.Revenue
		t.NBDVisits += st.NBDVisits
	}
	return t
}

// topAreas ranks areas by summed priority of their customers.
func topAreas(scored []domain.ScoredCustomer, limit int) []string {
	weight := make(map[string]float64)
	for _, c := range scored {
		weight[c.Area] += c.PriorityScore
	}

	areas := sortedKeys(toBoolMap(weight))
	sort.SliceStable(areas, func(i, j int) bool {
		return weight[areas[i]] > weight[areas[j]]
	})
	if len(areas) > limit {
		areas = areas[:limit]
	}
	sort.Strings(areas)
	return areas
}

func topCustomers(scored []domain.ScoredCustomer, limit int) []string {
	ordered := make([]domain.ScoredCustomer, len(scored))
	copy(ordered, scored)
	scheduler.CanonicalSort(ordered)

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	codes := make([]string, 0, len(ordered))
	for _, c := range ordered {
		codes = append(codes, c.Code)
	}
	sort.Strings(codes)
	return codes
}

func formatNarrative(n *annotate.Narrative) string {
	out := n.Summary
	for _, obj := range n.Objectives {
		out += "\n- " + obj
	}
	return out
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}

func toBoolMap(m map[string]float64) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
	"github.com/quintalabs/fieldplan/internal/repository"
	"github.com/quintalabs/fieldplan/internal/scheduler"
)

type reviewService struct {
	cfg       *config.Config
	portfolio repository.PortfolioRepo
	plans     repository.PlanRepo
	observer  UseCaseObserver
}

// NewReviewService wires the analysis and revision pipeline.
func NewReviewService(
	cfg *config.Config,
	portfolio repository.PortfolioRepo,
	plans repository.PlanRepo,
	observers ...UseCaseObserver,
) ReviewService {
	return &reviewService{
		cfg:       cfg,
		portfolio: portfolio,
		plans:     plans,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *reviewService) Analyze(ctx context.Context, req contract.AnalyzeRequest) (resp *contract.AnalyzeResponse, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "review_analyze", start, err, map[string]any{"plan_id": req.PlanID})
	}()

	plan, revisions, err := s.loadAnalyzable(ctx, req.PlanID, "analyze")
	if err != nil {
		return nil, err
	}

	effective := domain.EffectivePlan(plan, revisions)
	if req.PeriodIndex < 0 || req.PeriodIndex >= len(effective.SubTargets) {
		return nil, &contract.PlanError{
			Code:    contract.ErrInvalidPeriodState,
			PlanID:  req.PlanID,
			Message: fmt.Sprintf("period index %d outside plan's %d sub-periods", req.PeriodIndex, len(effective.SubTargets)),
		}
	}

	target := effective.SubTargets[req.PeriodIndex]
	windowStart, windowEnd := target.Start, target.End
	if req.WindowStart != nil {
		windowStart = *req.WindowStart
	}
	if req.WindowEnd != nil {
		windowEnd = *req.WindowEnd
	}

	// Events are read over a half-open window; the inclusive calendar
	// end day converts to an exclusive midnight bound.
	events, err := s.portfolio.GetVisitEvents(ctx, plan.AgentID, windowStart, windowEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("loading visit events: %w", err)
	}

	analysis := scheduler.Analyze(scheduler.AnalyzeParams{
		Plan:             effective,
		PeriodIndex:      req.PeriodIndex,
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		Events:           events,
		Bands:            s.cfg.Bands,
		BlendVisitWeight: s.cfg.BlendVisitWeight,
		NoiseVisits:      s.cfg.UnplannedNoiseVisits,
	})

	if plan.Status != domain.PlanAnalyzed {
		if err = s.plans.UpdateStatus(ctx, plan.ID, domain.PlanAnalyzed, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	return &contract.AnalyzeResponse{
		Analysis:      analysis,
		RevisionCount: plan.RevisionCount,
	}, nil
}

func (s *reviewService) Revise(ctx context.Context, req contract.ReviseRequest) (resp *contract.ReviseResponse, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "review_revise", start, err, map[string]any{"plan_id": req.PlanID})
	}()

	plan, _, err := s.loadAnalyzable(ctx, req.PlanID, "revise")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	revision := scheduler.Redistribute(plan, req.Analysis, now)

	// The append is guarded by the revision count read at analysis
	// time; a concurrent revision since then surfaces as a conflict,
	// never as silently merged targets.
	if err = s.plans.AppendRevision(ctx, plan.ID, req.ExpectedRevisionCount, &revision); err != nil {
		return nil, err
	}

	if err = s.plans.UpdateStatus(ctx, plan.ID, domain.PlanRevised, now); err != nil {
		return nil, err
	}

	revisions, err := s.plans.ListRevisions(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.RevisionCount = req.ExpectedRevisionCount + 1
	plan.Status = domain.PlanRevised

	return &contract.ReviseResponse{
		Revision:  revision,
		Effective: domain.EffectivePlan(plan, revisions),
	}, nil
}

func (s *reviewService) Close(ctx context.Context, planID string) (report *contract.CloseReport, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "review_close", start, err, map[string]any{"plan_id": planID})
	}()

	plan, revisions, err := s.loadAnalyzable(ctx, planID, "close")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.plans.UpdateStatus(ctx, planID, domain.PlanClosed, now); err != nil {
		return nil, err
	}

	report = &contract.CloseReport{
		PlanID:        plan.ID,
		AgentID:       plan.AgentID,
		Period:        plan.Period,
		PlannedVisits: plan.Targets.Visits,
		TargetRevenue: plan.Targets.Revenue,
		Revisions:     len(revisions),
		ClosedAt:      now,
	}
	for _, rev := range revisions {
		report.CarryOverVisits += rev.CarryOverVisits
		report.CarryOverRevenue += rev.CarryOverRevenue
	}
	return report, nil
}

// loadAnalyzable fetches the plan and its revision chain, rejecting
// drafts and closed plans for review operations.
func (s *reviewService) loadAnalyzable(ctx context.Context, planID, operation string) (*domain.Plan, []domain.PlanRevision, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if !plan.Status.Analyzable() {
		return nil, nil, contract.NewInvalidPeriodState(planID, plan.Status, operation)
	}
	revisions, err := s.plans.ListRevisions(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading revisions: %w", err)
	}
	return plan, revisions, nil
}

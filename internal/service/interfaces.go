package service

import (
	"context"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// PlanService owns the baseline lifecycle: drafting a plan for a
// horizon, regenerating the draft, and publishing it.
type PlanService interface {
	Generate(ctx context.Context, req contract.GeneratePlanRequest) (*contract.GeneratePlanResponse, error)
	Publish(ctx context.Context, planID string) (*domain.Plan, error)

	// Get returns the plan by id. With effective set, all appended
	// revisions are replayed onto the baseline before returning.
	Get(ctx context.Context, planID string, effective bool) (*domain.Plan, error)
}

// ReviewService closes the loop on an active plan: analyze one
// sub-period against actuals, redistribute the gap, close the horizon.
type ReviewService interface {
	Analyze(ctx context.Context, req contract.AnalyzeRequest) (*contract.AnalyzeResponse, error)
	Revise(ctx context.Context, req contract.ReviseRequest) (*contract.ReviseResponse, error)
	Close(ctx context.Context, planID string) (*contract.CloseReport, error)
}

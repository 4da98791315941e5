package repository

import (
	"context"
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// PortfolioRepo is the read side of the customer store. It returns only
// active records; staleness is the store's concern, not the engine's.
// The write methods exist for seeding and for the import boundary.
type PortfolioRepo interface {
	ListCustomers(ctx context.Context, agentID string) ([]domain.Customer, error)
	UpsertCustomer(ctx context.Context, agentID string, c *domain.Customer) error
	DeactivateCustomer(ctx context.Context, agentID, code string) error

	GetVisitEvents(ctx context.Context, agentID string, from, to time.Time) ([]domain.VisitEvent, error)
	RecordVisit(ctx context.Context, ev *domain.VisitEvent) error
}

// PlanRepo persists baselines and their append-only revision chains.
// Only the plan service creates baselines and only the review service
// appends revisions; AppendRevision enforces the optimistic version
// check that serializes concurrent revision attempts.
type PlanRepo interface {
	Create(ctx context.Context, p *domain.Plan) error
	// Replace swaps an unpublished draft atomically; regenerating
	// before publication must never leave partial writes visible.
	Replace(ctx context.Context, p *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	GetByAgentPeriod(ctx context.Context, agentID string, kind domain.PeriodKind, periodStart time.Time) (*domain.Plan, error)
	UpdateStatus(ctx context.Context, id string, status domain.PlanStatus, at time.Time) error

	// AppendRevision appends rev iff the stored revision count still
	// equals expectedRevisionCount, returning ErrVersionConflict
	// otherwise. The count increment and the insert are one transaction.
	AppendRevision(ctx context.Context, planID string, expectedRevisionCount int, rev *domain.PlanRevision) error
	ListRevisions(ctx context.Context, planID string) ([]domain.PlanRevision, error)
}

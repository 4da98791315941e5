package contract

import (
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// AnalyzeRequest closes one sub-period of an active plan against the
// recorded visit events for that window.
type AnalyzeRequest struct {
	PlanID      string
	PeriodIndex int

	// Window overrides the sub-period bounds when set; by default the
	// sub-target's own start/end is used.
	WindowStart *time.Time
	WindowEnd   *time.Time
}

type AnalyzeResponse struct {
	Analysis domain.Analysis

	// RevisionCount is the plan's revision count at read time; pass it
	// to Revise as the expected count for the optimistic version check.
	RevisionCount int
}

// ReviseRequest redistributes an analyzed period's gap across the
// remaining sub-periods.
type ReviseRequest struct {
	PlanID                string
	Analysis              domain.Analysis
	ExpectedRevisionCount int
}

type ReviseResponse struct {
	Revision  domain.PlanRevision
	Effective *domain.Plan
}

// CloseReport is the final report generated when a horizon is closed.
type CloseReport struct {
	PlanID  string
	AgentID string
	Period  domain.Period

	PlannedVisits int
	TargetRevenue float64
	Revisions     int

	// Unabsorbed gap carried into the next horizon's generation.
	CarryOverVisits  int
	CarryOverRevenue float64

	ClosedAt time.Time
}

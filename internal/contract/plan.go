package contract

import (
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// GeneratePlanRequest asks for a full horizon plan for one agent.
type GeneratePlanRequest struct {
	AgentID    string
	PeriodKind domain.PeriodKind
	// PeriodStart is any date inside the intended period; the service
	// normalizes it to the period boundary.
	PeriodStart time.Time

	// Now pins the scoring snapshot time. Nil means wall clock; tests
	// and idempotent re-runs pass a fixed value.
	Now *time.Time

	// Capacity overrides the configured day-level defaults when set.
	Capacity *domain.Capacity

	// CarryOverVisits from a closed prior horizon are added to targets.
	CarryOverVisits  int
	CarryOverRevenue float64

	// SkipNarrative suppresses the annotator call even when configured.
	SkipNarrative bool
}

// GeneratePlanResponse returns the drafted plan plus per-record warnings
// from skip-and-continue scoring.
type GeneratePlanResponse struct {
	Plan     *domain.Plan
	Skipped  []SkippedRecord
	Warnings []string
}

// SkippedRecord reports one customer excluded from the run for a data
// integrity violation.
type SkippedRecord struct {
	CustomerCode string
	Reason       string
}

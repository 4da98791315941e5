package contract

import (
	"errors"
	"fmt"

	"github.com/quintalabs/fieldplan/internal/domain"
)

type ErrorCode string

const (
	// ErrInfeasibleCapacity: the capacity parameters contradict each
	// other (zero max visits, non-positive work window). Fatal to one
	// route build, recoverable by adjusting parameters.
	ErrInfeasibleCapacity ErrorCode = "INFEASIBLE_CAPACITY"

	// ErrVersionConflict: a concurrent revision advanced the plan's
	// revision count since it was read. Re-read and retry.
	ErrVersionConflict ErrorCode = "VERSION_CONFLICT"

	// ErrCollaboratorUnavailable: the narrative annotator failed.
	// Degraded, non-fatal; surfaced as a warning.
	ErrCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"

	// ErrDataIntegrity: a single store record has contradictory fields.
	// The record is skipped; the batch continues.
	ErrDataIntegrity ErrorCode = "DATA_INTEGRITY"

	// ErrInvalidPeriodState: analyze/redistribute called against a plan
	// that is not ACTIVE/REVISED. Fatal to that call.
	ErrInvalidPeriodState ErrorCode = "INVALID_PERIOD_STATE"

	ErrPlanNotFound   ErrorCode = "PLAN_NOT_FOUND"
	ErrPlanExists     ErrorCode = "PLAN_EXISTS"
	ErrEmptyPortfolio ErrorCode = "EMPTY_PORTFOLIO"
)

// PlanError carries enough context (agent, period, record) to be
// actionable at the boundary without consulting internal logs.
type PlanError struct {
	Code     ErrorCode
	Message  string
	AgentID  string
	PlanID   string
	Period   string
	RecordID string
	State    domain.PlanStatus
}

func (e *PlanError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.AgentID != "" {
		msg += fmt.Sprintf(" (agent=%s", e.AgentID)
		if e.Period != "" {
			msg += fmt.Sprintf(" period=%s", e.Period)
		}
		if e.RecordID != "" {
			msg += fmt.Sprintf(" record=%s", e.RecordID)
		}
		msg += ")"
	}
	return msg
}

// IsCode reports whether err is a *PlanError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// NewVersionConflict builds the mandatory conflict error for a stale
// optimistic version check.
func NewVersionConflict(planID string, expected, actual int) *PlanError {
	return &PlanError{
		Code:    ErrVersionConflict,
		PlanID:  planID,
		Message: fmt.Sprintf("plan revision count advanced: expected %d, found %d", expected, actual),
	}
}

// NewDataIntegrity flags one contradictory customer record.
func NewDataIntegrity(agentID, customerCode, reason string) *PlanError {
	return &PlanError{
		Code:     ErrDataIntegrity,
		AgentID:  agentID,
		RecordID: customerCode,
		Message:  reason,
	}
}

// NewInvalidPeriodState reports the plan's actual state so the caller
// can decide what to do.
func NewInvalidPeriodState(planID string, state domain.PlanStatus, operation string) *PlanError {
	return &PlanError{
		Code:    ErrInvalidPeriodState,
		PlanID:  planID,
		State:   state,
		Message: fmt.Sprintf("cannot %s plan in state %q", operation, state),
	}
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// SQLitePlanRepo implements PlanRepo on SQLite. Route and target detail
// is stored as JSON columns; the identity, status and revision-count
// columns the store itself reasons about stay relational.
type SQLitePlanRepo struct {
	db *sql.DB
}

func NewSQLitePlanRepo(db *sql.DB) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: db}
}

const planCols = `id, agent_id, period_kind, period_start, period_end, status, config_version,
	target_visits, target_revenue, target_nbd_visits,
	days_json, sub_targets_json, focus_areas_json, priority_customers_json,
	deferred_json, warnings_json, narrative, revision_count,
	created_at, updated_at, published_at, closed_at`

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	args, err := planArgs(p)
	if err != nil {
		return err
	}
	query := `INSERT INTO plans (` + planCols + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

// Replace atomically overwrites an unpublished draft. Re-generating a
// plan before the baseline is published must be safe: either the whole
// new draft is visible or the old one still is.
func (r *SQLitePlanRepo) Replace(ctx context.Context, p *domain.Plan) error {
	args, err := planArgs(p)
	if err != nil {
		return err
	}
	// Shift id to the WHERE clause.
	query := `UPDATE plans SET
		id = ?, agent_id = ?, period_kind = ?, period_start = ?, period_end = ?, status = ?, config_version = ?,
		target_visits = ?, target_revenue = ?, target_nbd_visits = ?,
		days_json = ?, sub_targets_json = ?, focus_areas_json = ?, priority_customers_json = ?,
		deferred_json = ?, warnings_json = ?, narrative = ?, revision_count = ?,
		created_at = ?, updated_at = ?, published_at = ?, closed_at = ?
		WHERE id = ? AND status = 'drafted'`
	res, err := r.db.ExecContext(ctx, query, append(args, p.ID)...)
	if err != nil {
		return fmt.Errorf("replacing draft plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replacing draft plan: %w", err)
	}
	if n == 0 {
		return &contract.PlanError{
			Code:    contract.ErrInvalidPeriodState,
			PlanID:  p.ID,
			Message: "only drafted plans may be replaced",
		}
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planCols + ` FROM plans WHERE id = ?`
	return r.scanPlanRow(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *SQLitePlanRepo) GetByAgentPeriod(ctx context.Context, agentID string, kind domain.PeriodKind, periodStart time.Time) (*domain.Plan, error) {
	query := `SELECT ` + planCols + ` FROM plans
		WHERE agent_id = ? AND period_kind = ? AND period_start = ?`
	row := r.db.QueryRowContext(ctx, query, agentID, string(kind), periodStart.Format(dateLayout))
	return r.scanPlanRow(row, agentID+"/"+string(kind)+":"+periodStart.Format(dateLayout))
}

func (r *SQLitePlanRepo) UpdateStatus(ctx context.Context, id string, status domain.PlanStatus, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	query := `UPDATE plans SET status = ?, updated_at = ?,
		published_at = CASE WHEN ? = 'active' AND published_at IS NULL THEN ? ELSE published_at END,
		closed_at = CASE WHEN ? = 'closed' THEN ? ELSE closed_at END
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), ts, string(status), ts, string(status), ts, id)
	if err != nil {
		return fmt.Errorf("updating plan status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating plan status: %w", err)
	}
	if n == 0 {
		return &contract.PlanError{Code: contract.ErrPlanNotFound, PlanID: id, Message: "plan not found"}
	}
	return nil
}

func (r *SQLitePlanRepo) AppendRevision(ctx context.Context, planID string, expectedRevisionCount int, rev *domain.PlanRevision) error {
	analysisJSON, err := json.Marshal(rev.Analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}
	deltasJSON, err := json.Marshal(rev.Deltas)
	if err != nil {
		return fmt.Errorf("marshaling deltas: %w", err)
	}
	escalatedJSON, err := json.Marshal(rev.EscalatedCustomers)
	if err != nil {
		return fmt.Errorf("marshaling escalated customers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning revision transaction: %w", err)
	}
	defer tx.Rollback()

	ts := rev.CreatedAt.UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx,
		`UPDATE plans SET revision_count = revision_count + 1, status = 'revised', updated_at = ?
		 WHERE id = ? AND revision_count = ? AND status IN ('active', 'revised', 'analyzed')`,
		ts, planID, expectedRevisionCount,
	)
	if err != nil {
		return fmt.Errorf("advancing revision count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advancing revision count: %w", err)
	}
	if n == 0 {
		return r.classifyAppendFailure(ctx, tx, planID, expectedRevisionCount)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plan_revisions (plan_id, seq, period_index, analysis_json, deltas_json,
			escalated_json, carry_over_visits, carry_over_revenue, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		planID, expectedRevisionCount+1, rev.PeriodIndex,
		string(analysisJSON), string(deltasJSON), string(escalatedJSON),
		rev.CarryOverVisits, rev.CarryOverRevenue, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revision: %w", err)
	}
	rev.Seq = expectedRevisionCount + 1
	return nil
}

// classifyAppendFailure distinguishes a missing plan, a wrong state and
// a stale expected count so the caller gets the mandated error kind.
// It reads through the open transaction: a pooled connection outside it
// may not see the same database (":memory:" is per-connection).
func (r *SQLitePlanRepo) classifyAppendFailure(ctx context.Context, tx *sql.Tx, planID string, expected int) error {
	var actual int
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT revision_count, status FROM plans WHERE id = ?`, planID,
	).Scan(&actual, &status)
	if err == sql.ErrNoRows {
		return &contract.PlanError{Code: contract.ErrPlanNotFound, PlanID: planID, Message: "plan not found"}
	}
	if err != nil {
		return fmt.Errorf("inspecting plan after failed append: %w", err)
	}
	st := domain.PlanStatus(status)
	if !st.Analyzable() {
		return contract.NewInvalidPeriodState(planID, st, "revise")
	}
	return contract.NewVersionConflict(planID, expected, actual)
}

func (r *SQLitePlanRepo) ListRevisions(ctx context.Context, planID string) ([]domain.PlanRevision, error) {
	query := `SELECT plan_id, seq, period_index, analysis_json, deltas_json, escalated_json,
		carry_over_visits, carry_over_revenue, created_at
		FROM plan_revisions WHERE plan_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	defer rows.Close()

	var revisions []domain.PlanRevision
	for rows.Next() {
		var rev domain.PlanRevision
		var analysisJSON, deltasJSON, escalatedJSON, createdAt string
		if err := rows.Scan(&rev.PlanID, &rev.Seq, &rev.PeriodIndex,
			&analysisJSON, &deltasJSON, &escalatedJSON,
			&rev.CarryOverVisits, &rev.CarryOverRevenue, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		if err := json.Unmarshal([]byte(analysisJSON), &rev.Analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(deltasJSON), &rev.Deltas); err != nil {
			return nil, fmt.Errorf("decoding deltas: %w", err)
		}
		if err := json.Unmarshal([]byte(escalatedJSON), &rev.EscalatedCustomers); err != nil {
			return nil, fmt.Errorf("decoding escalated customers: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing revision created_at: %w", err)
		}
		rev.CreatedAt = t
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revisions: %w", err)
	}
	return revisions, nil
}

func planArgs(p *domain.Plan) ([]interface{}, error) {
	daysJSON, err := json.Marshal(p.Days)
	if err != nil {
		return nil, fmt.Errorf("marshaling plan days: %w", err)
	}
	subTargetsJSON, err := json.Marshal(p.SubTargets)
	if err != nil {
		return nil, fmt.Errorf("marshaling sub targets: %w", err)
	}
	focusJSON, err := json.Marshal(p.FocusAreas)
	if err != nil {
		return nil, fmt.Errorf("marshaling focus areas: %w", err)
	}
	priorityJSON, err := json.Marshal(p.PriorityCustomers)
	if err != nil {
		return nil, fmt.Errorf("marshaling priority customers: %w", err)
	}
	deferredJSON, err := json.Marshal(p.Deferred)
	if err != nil {
		return nil, fmt.Errorf("marshaling deferred visits: %w", err)
	}
	warningsJSON, err := json.Marshal(p.Warnings)
	if err != nil {
		return nil, fmt.Errorf("marshaling warnings: %w", err)
	}

	return []interface{}{
		p.ID, p.AgentID, string(p.Period.Kind),
		p.Period.Start.Format(dateLayout), p.Period.End.Format(dateLayout),
		string(p.Status), p.ConfigVersion,
		p.Targets.Visits, p.Targets.Revenue, p.Targets.NBDVisits,
		string(daysJSON), string(subTargetsJSON), string(focusJSON), string(priorityJSON),
		string(deferredJSON), string(warningsJSON), p.Narrative, p.RevisionCount,
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
		nullableTimeToString(p.PublishedAt, time.RFC3339),
		nullableTimeToString(p.ClosedAt, time.RFC3339),
	}, nil
}

func (r *SQLitePlanRepo) scanPlanRow(row *sql.Row, key string) (*domain.Plan, error) {
	var p domain.Plan
	var kind, periodStart, periodEnd, status string
	var daysJSON, subTargetsJSON, focusJSON, priorityJSON, deferredJSON, warningsJSON string
	var createdAt, updatedAt string
	var publishedAt, closedAt sql.NullString

	err := row.Scan(
		&p.ID, &p.AgentID, &kind, &periodStart, &periodEnd, &status, &p.ConfigVersion,
		&p.Targets.Visits, &p.Targets.Revenue, &p.Targets.NBDVisits,
		&daysJSON, &subTargetsJSON, &focusJSON, &priorityJSON,
		&deferredJSON, &warningsJSON, &p.Narrative, &p.RevisionCount,
		&createdAt, &updatedAt, &publishedAt, &closedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &contract.PlanError{Code: contract.ErrPlanNotFound, PlanID: key, Message: "plan not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning plan: %w", err)
	}

	p.Period.Kind = domain.PeriodKind(kind)
	p.Status = domain.PlanStatus(status)
	if p.Period.Start, err = time.Parse(dateLayout, periodStart); err != nil {
		return nil, fmt.Errorf("parsing period_start: %w", err)
	}
	if p.Period.End, err = time.Parse(dateLayout, periodEnd); err != nil {
		return nil, fmt.Errorf("parsing period_end: %w", err)
	}
	if err := json.Unmarshal([]byte(daysJSON), &p.Days); err != nil {
		return nil, fmt.Errorf("decoding plan days: %w", err)
	}
	if err := json.Unmarshal([]byte(subTargetsJSON), &p.SubTargets); err != nil {
		return nil, fmt.Errorf("decoding sub targets: %w", err)
	}
	if err := json.Unmarshal([]byte(focusJSON), &p.FocusAreas); err != nil {
		return nil, fmt.Errorf("decoding focus areas: %w", err)
	}
	if err := json.Unmarshal([]byte(priorityJSON), &p.PriorityCustomers); err != nil {
		return nil, fmt.Errorf("decoding priority customers: %w", err)
	}
	if err := json.Unmarshal([]byte(deferredJSON), &p.Deferred); err != nil {
		return nil, fmt.Errorf("decoding deferred visits: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &p.Warnings); err != nil {
		return nil, fmt.Errorf("decoding warnings: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	p.PublishedAt = parseNullableTime(publishedAt, time.RFC3339)
	p.ClosedAt = parseNullableTime(closedAt, time.RFC3339)
	return &p, nil
}

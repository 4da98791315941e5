package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/quintalabs/fieldplan/internal/db"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// SQLitePortfolioRepo implements PortfolioRepo on SQLite. It accepts a
// DBTX so bulk imports can run tx-scoped copies of the repo.
type SQLitePortfolioRepo struct {
	db dbpkg.DBTX
}

func NewSQLitePortfolioRepo(db dbpkg.DBTX) *SQLitePortfolioRepo {
	return &SQLitePortfolioRepo{db: db}
}

const customerCols = `agent_id, code, name, type, area, lat, lon, tier, last_visit_at,
	orders_count, sales_amount, conversion_rate, visit_frequency, visit_duration_min`

func (r *SQLitePortfolioRepo) ListCustomers(ctx context.Context, agentID string) ([]domain.Customer, error) {
	query := `SELECT ` + customerCols + ` FROM customers
		WHERE agent_id = ? AND active = 1 ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customers: %w", err)
	}
	return customers, nil
}

func (r *SQLitePortfolioRepo) UpsertCustomer(ctx context.Context, agentID string, c *domain.Customer) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `INSERT INTO customers (` + customerCols + `, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (agent_id, code) DO UPDATE SET
			name = excluded.name, type = excluded.type, area = excluded.area,
			lat = excluded.lat, lon = excluded.lon, tier = excluded.tier,
			last_visit_at = excluded.last_visit_at,
			orders_count = excluded.orders_count, sales_amount = excluded.sales_amount,
			conversion_rate = excluded.conversion_rate,
			visit_frequency = excluded.visit_frequency,
			visit_duration_min = excluded.visit_duration_min,
			active = 1, updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		agentID, c.Code, c.Name, string(c.Type), c.Area,
		nullableFloat(c.Lat), nullableFloat(c.Lon), int(c.Tier),
		nullableTimeToString(c.LastVisitAt, time.RFC3339),
		c.OrdersCount, c.SalesAmount, c.ConversionRate,
		c.VisitFrequency, c.VisitDurationMin,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting customer %s: %w", c.Code, err)
	}
	return nil
}

func (r *SQLitePortfolioRepo) DeactivateCustomer(ctx context.Context, agentID, code string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `UPDATE customers SET active = 0, updated_at = ? WHERE agent_id = ? AND code = ?`
	if _, err := r.db.ExecContext(ctx, query, now, agentID, code); err != nil {
		return fmt.Errorf("deactivating customer %s: %w", code, err)
	}
	return nil
}

func (r *SQLitePortfolioRepo) GetVisitEvents(ctx context.Context, agentID string, from, to time.Time) ([]domain.VisitEvent, error) {
	query := `SELECT id, agent_id, customer_code, area, visited_at, amount, duration_min
		FROM visit_events
		WHERE agent_id = ? AND visited_at >= ? AND visited_at < ?
		ORDER BY visited_at, id`
	rows, err := r.db.QueryContext(ctx, query, agentID,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing visit events: %w", err)
	}
	defer rows.Close()

	var events []domain.VisitEvent
	for rows.Next() {
		var ev domain.VisitEvent
		var visitedAt string
		if err := rows.Scan(&ev.ID, &ev.AgentID, &ev.CustomerCode, &ev.Area, &visitedAt, &ev.Amount, &ev.DurationMin); err != nil {
			return nil, fmt.Errorf("scanning visit event: %w", err)
		}
		t, err := time.Parse(time.RFC3339, visitedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing visited_at: %w", err)
		}
		ev.VisitedAt = t
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visit events: %w", err)
	}
	return events, nil
}

func (r *SQLitePortfolioRepo) RecordVisit(ctx context.Context, ev *domain.VisitEvent) error {
	query := `INSERT INTO visit_events (id, agent_id, customer_code, area, visited_at, amount, duration_min)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.AgentID, ev.CustomerCode, ev.Area,
		ev.VisitedAt.UTC().Format(time.RFC3339), ev.Amount, ev.DurationMin,
	)
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

func scanCustomer(rows *sql.Rows) (*domain.Customer, error) {
	var c domain.Customer
	var agentID, typeStr string
	var lat, lon sql.NullFloat64
	var lastVisit sql.NullString
	var tier int

	err := rows.Scan(
		&agentID, &c.Code, &c.Name, &typeStr, &c.Area,
		&lat, &lon, &tier, &lastVisit,
		&c.OrdersCount, &c.SalesAmount, &c.ConversionRate,
		&c.VisitFrequency, &c.VisitDurationMin,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning customer row: %w", err)
	}

	c.Type = domain.CustomerType(typeStr)
	c.Tier = domain.Tier(tier)
	c.Lat = floatPtr(lat)
	c.Lon = floatPtr(lon)
	c.LastVisitAt = parseNullableTime(lastVisit, time.RFC3339)
	return &c, nil
}

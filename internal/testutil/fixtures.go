package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// Customer options
type CustomerOption func(*domain.Customer)

func WithTier(t domain.Tier) CustomerOption {
	return func(c *domain.Customer) {
		c.Tier = t
	}
}

func WithArea(area string) CustomerOption {
	return func(c *domain.Customer) {
		c.Area = area
	}
}

func WithCoords(lat, lon float64) CustomerOption {
	return func(c *domain.Customer) {
		c.Lat = &lat
		c.Lon = &lon
	}
}

func WithLastVisit(t time.Time) CustomerOption {
	return func(c *domain.Customer) {
		c.LastVisitAt = &t
	}
}

func NeverVisited() CustomerOption {
	return func(c *domain.Customer) {
		c.LastVisitAt = nil
	}
}

func WithProspect() CustomerOption {
	return func(c *domain.Customer) {
		c.Type = domain.CustomerProspect
	}
}

func WithSales(orders int, amount float64) CustomerOption {
	return func(c *domain.Customer) {
		c.OrdersCount = orders
		c.SalesAmount = amount
	}
}

func WithConversion(rate float64) CustomerOption {
	return func(c *domain.Customer) {
		c.ConversionRate = rate
	}
}

func WithFrequency(perMonth int) CustomerOption {
	return func(c *domain.Customer) {
		c.VisitFrequency = perMonth
	}
}

func WithVisitDuration(min int) CustomerOption {
	return func(c *domain.Customer) {
		c.VisitDurationMin = min
	}
}

// NewTestCustomer builds a well-formed Tier 2 existing customer visited
// ten days ago. Options override any field.
func NewTestCustomer(code string, opts ...CustomerOption) domain.Customer {
	lastVisit := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := domain.Customer{
		Code:           code,
		Name:           "Customer " + code,
		Type:           domain.CustomerExisting,
		Area:           "CENTRAL",
		Tier:           domain.Tier2,
		LastVisitAt:    &lastVisit,
		OrdersCount:    10,
		SalesAmount:    5000,
		ConversionRate: 0.5,
		VisitFrequency: 2,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewTestEvent records one executed visit.
func NewTestEvent(agentID, customerCode string, at time.Time, amount float64) domain.VisitEvent {
	return domain.VisitEvent{
		ID:           uuid.NewString(),
		AgentID:      agentID,
		CustomerCode: customerCode,
		Area:         "CENTRAL",
		VisitedAt:    at,
		Amount:       amount,
		DurationMin:  30,
	}
}

// Plan options
type PlanOption func(*domain.Plan)

func WithStatus(s domain.PlanStatus) PlanOption {
	return func(p *domain.Plan) {
		p.Status = s
	}
}

func WithSubTargets(targets ...domain.PeriodTargets) PlanOption {
	return func(p *domain.Plan) {
		p.SubTargets = targets
		p.Targets = domain.PlanTargets{}
		for _, t := range targets {
			p.Targets.Visits += t.Visits
			p.Targets.Revenue += t.Revenue
			p.Targets.NBDVisits += t.NBDVisits
		}
	}
}

func WithDay(date time.Time, route domain.DailyRoute) PlanOption {
	return func(p *domain.Plan) {
		if p.Days == nil {
			p.Days = make(map[string]domain.DailyRoute)
		}
		p.Days[date.Format(domain.DateLayout)] = route
	}
}

// NewTestPlan builds an active weekly plan starting on the given Monday.
func NewTestPlan(agentID string, weekStart time.Time, opts ...PlanOption) *domain.Plan {
	now := time.Now().UTC()
	p := &domain.Plan{
		ID:      uuid.NewString(),
		AgentID: agentID,
		Period: domain.Period{
			Kind:  domain.PeriodWeek,
			Start: weekStart,
			End:   weekStart.AddDate(0, 0, 6),
		},
		Status:        domain.PlanActive,
		ConfigVersion: "v1",
		Days:          make(map[string]domain.DailyRoute),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

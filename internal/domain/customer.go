package domain

import "time"

// Customer is the portfolio record as read from the store. Tier and the
// derived scores on ScoredCustomer are recomputed on every scoring pass;
// the rolling-window metrics are the source of truth, never the scores.
type Customer struct {
	Code string
	Name string
	Type CustomerType
	Area string

	// Coordinates are optional. When nil the travel model falls back to
	// the area-bucket estimate.
	Lat *float64
	Lon *float64

	Tier Tier

	// LastVisitAt is nil for a customer that has never been visited.
	LastVisitAt *time.Time

	// Rolling-window metrics over the configured lookback (default 90 days).
	OrdersCount    int
	SalesAmount    float64
	ConversionRate float64

	// Recommended cadence.
	VisitFrequency   int // visits per month
	VisitDurationMin int // 0 means use the tier minimum
}

// HasCoords reports whether both coordinates are present.
func (c *Customer) HasCoords() bool {
	return c.Lat != nil && c.Lon != nil
}

// IntervalDays returns the recommended days between visits.
func (c *Customer) IntervalDays() float64 {
	if c.VisitFrequency <= 0 {
		return 30
	}
	return 30.0 / float64(c.VisitFrequency)
}

// DaysSinceVisit returns whole days since the last visit, or -1 if the
// customer has never been visited.
func (c *Customer) DaysSinceVisit(now time.Time) int {
	if c.LastVisitAt == nil {
		return -1
	}
	d := int(now.Sub(*c.LastVisitAt).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d
}

// ScoredCustomer is a Customer plus the scores derived from a single
// snapshot. All fields are pure functions of (Customer, now, weights).
type ScoredCustomer struct {
	Customer

	UrgencyScore   float64 // 0..100
	PriorityScore  float64
	ChurnRisk      float64 // 0..1
	PredictedValue float64

	// NBD marks a new-business-development candidate: a prospect,
	// a never-visited customer, or one flagged by churn risk.
	NBD bool

	// Overdue is true when the snapshot's days-since-visit exceeds the
	// recommended interval (always true for never-visited customers).
	Overdue bool

	// Escalated is set when a prior revision marked the customer as
	// missed; it biases selection in the next scheduling pass.
	Escalated bool
}

// VisitEvent is an actually-executed visit recorded by field execution.
// The engine consumes these read-only within a bounded window.
type VisitEvent struct {
	ID           string
	AgentID      string
	CustomerCode string
	Area         string
	VisitedAt    time.Time
	Amount       float64
	DurationMin  int
}

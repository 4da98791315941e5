package domain

import "time"

// Capacity bounds a single day's route. Work window bounds are minutes
// from midnight so slot arithmetic stays integral.
type Capacity struct {
	MaxVisits    int
	MaxTravelMin int
	WorkStartMin int
	WorkEndMin   int
}

// WindowMin returns the length of the work window in minutes.
func (c Capacity) WindowMin() int {
	return c.WorkEndMin - c.WorkStartMin
}

// RouteStop binds a scored customer to a sequence position with concrete
// time slots. Stops are strictly time-ordered within the work window.
type RouteStop struct {
	Customer ScoredCustomer
	Seq      int

	TravelFromPrevMin int
	TravelFromPrevKm  float64

	VisitStart  time.Time
	VisitEnd    time.Time
	DurationMin int

	ExpectedRevenue float64
}

// DailyRoute is an immutable, ordered visit sequence for one calendar
// date. Re-optimization produces a new DailyRoute, never mutates one.
type DailyRoute struct {
	Date  time.Time
	Stops []RouteStop

	TotalCustomers int
	TotalRevenue   float64
	TotalTravelMin int
	TotalTravelKm  float64

	// Efficiency is expected revenue per elapsed hour, 0 for an empty route.
	Efficiency float64
}

// NBDStops counts the NBD-flagged stops in the route.
func (r *DailyRoute) NBDStops() int {
	n := 0
	for _, s := range r.Stops {
		if s.Customer.NBD {
			n++
		}
	}
	return n
}

// ElapsedMin returns minutes from the first stop's start to the last
// stop's end, 0 for an empty route.
func (r *DailyRoute) ElapsedMin() int {
	if len(r.Stops) == 0 {
		return 0
	}
	first := r.Stops[0].VisitStart
	last := r.Stops[len(r.Stops)-1].VisitEnd
	return int(last.Sub(first).Minutes())
}

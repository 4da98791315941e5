package scheduler

import (
	"math"
	"time"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// areaAffinity is the load discount that steers a customer toward a day
// already visiting the same area, reducing cross-day travel
// fragmentation. A soft preference, not a constraint.
const areaAffinity = 15.0

// DistributeParams bundles the knobs for one period distribution.
type DistributeParams struct {
	// Days are the working days of the period. Sundays and configured
	// non-working days are excluded before the call; exclusion is hard.
	Days []time.Time

	// PeriodDays is the calendar length of the period, for the
	// frequency -> due-visit conversion.
	PeriodDays int

	Capacity       domain.Capacity
	Travel         TravelModel
	NBDQuota       float64
	FairnessFactor float64
	Hints          RouteHints
}

// DistributeResult carries the built routes plus every due visit that
// could not be placed. Deferrals are explicit; nothing vanishes.
type DistributeResult struct {
	Routes   map[string]domain.DailyRoute
	Deferred []domain.DeferredVisit
}

// DistributePeriod partitions each customer's due visits across the
// working days, balancing priority-weighted daily load with a same-area
// preference, then builds the finalized route per day.
func DistributePeriod(customers []domain.ScoredCustomer, p DistributeParams) (DistributeResult, error) {
	if len(p.Days) == 0 {
		return DistributeResult{}, &contract.PlanError{
			Code:    contract.ErrInfeasibleCapacity,
			Message: "period has no working days",
		}
	}

	ordered := make([]domain.ScoredCustomer, len(customers))
	copy(ordered, customers)
	CanonicalSort(ordered)

	totalDue := 0
	dueByCustomer := make([]int, len(ordered))
	for i := range ordered {
		n := dueVisits(&ordered[i], p.PeriodDays, len(p.Days))
		dueByCustomer[i] = n
		totalDue += n
	}

	// Fairness cap: no day takes more than ceil(avg * factor) visits
	// unless the whole set cannot fit, in which case excess defers.
	avg := float64(totalDue) / float64(len(p.Days))
	fairCap := int(math.Ceil(avg * p.FairnessFactor))
	if fairCap < 1 {
		fairCap = 1
	}
	dayCap := fairCap
	if p.Capacity.MaxVisits < dayCap {
		dayCap = p.Capacity.MaxVisits
	}

	assigned := make([][]domain.ScoredCustomer, len(p.Days))
	loads := make([]float64, len(p.Days))
	counts := make([]int, len(p.Days))
	areaOnDay := make([]map[string]bool, len(p.Days))
	for i := range areaOnDay {
		areaOnDay[i] = make(map[string]bool)
	}

	var deferred []domain.DeferredVisit

	for i := range ordered {
		c := ordered[i]
		for visit := 0; visit < dueByCustomer[i]; visit++ {
			day := pickDay(&c, p.Days, counts, loads, areaOnDay, assigned, dayCap)
			if day < 0 {
				deferred = append(deferred, domain.DeferredVisit{
					CustomerCode: c.Code,
					Area:         c.Area,
					Reason:       "period capacity exhausted",
				})
				continue
			}
			assigned[day] = append(assigned[day], c)
			loads[day] += c.PriorityScore
			counts[day]++
			areaOnDay[day][c.Area] = true
		}
	}

	routes := make(map[string]domain.DailyRoute, len(p.Days))
	for i, date := range p.Days {
		route, err := BuildDailyRoute(date, assigned[i], RouteParams{
			Capacity: p.Capacity,
			Travel:   p.Travel,
			NBDQuota: p.NBDQuota,
			Hints:    p.Hints,
		})
		if err != nil {
			return DistributeResult{}, err
		}
		routes[date.Format(domain.DateLayout)] = route

		// Anything assigned to the day but dropped by the capacity fit
		// loop is deferred explicitly rather than silently lost.
		inRoute := make(map[string]bool, len(route.Stops))
		for _, s := range route.Stops {
			inRoute[s.Customer.Code] = true
		}
		for _, c := range assigned[i] {
			if !inRoute[c.Code] {
				deferred = append(deferred, domain.DeferredVisit{
					CustomerCode: c.Code,
					Area:         c.Area,
					Reason:       "day capacity exceeded",
				})
			}
		}
	}

	return DistributeResult{Routes: routes, Deferred: deferred}, nil
}

// dueVisits converts recommended monthly frequency into this period's
// due count: frequency * period_length / 30, rounded, with a floor of
// one visit for an overdue customer. Capped at one visit per working
// day since a customer never appears twice on the same day.
func dueVisits(c *domain.ScoredCustomer, periodDays, workingDays int) int {
	n := int(math.Round(float64(c.VisitFrequency) * float64(periodDays) / 30.0))
	if n < 1 && c.Overdue {
		n = 1
	}
	if n > workingDays {
		n = workingDays
	}
	if n < 0 {
		n = 0
	}
	return n
}

// pickDay chooses the working day with the lowest priority-weighted
// load, discounted by the same-area preference. Days at the fairness or
// capacity cap, and days already holding this customer, are skipped.
// Ties resolve to the earliest day for determinism.
func pickDay(
	c *domain.ScoredCustomer,
	days []time.Time,
	counts []int,
	loads []float64,
	areaOnDay []map[string]bool,
	assigned [][]domain.ScoredCustomer,
	dayCap int,
) int {
	best := -1
	var bestScore float64

	for i := range days {
		if counts[i] >= dayCap {
			continue
		}
		if hasCustomer(assigned[i], c.Code) {
			continue
		}
		score := loads[i]
		if areaOnDay[i][c.Area] {
			score -= areaAffinity
		}
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func hasCustomer(list []domain.ScoredCustomer, code string) bool {
	for _, c := range list {
		if c.Code == code {
			return true
		}
	}
	return false
}

package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// RouteHints are soft preferences from the plan level (focus areas,
// priority customers). They bias selection order, they are never hard
// constraints.
type RouteHints struct {
	FocusAreas        map[string]bool
	PriorityCustomers map[string]bool
}

const (
	focusAreaBonus    = 5.0
	priorityCustBonus = 10.0
)

// RouteParams bundles the knobs for one route build.
type RouteParams struct {
	Capacity domain.Capacity
	Travel   TravelModel
	NBDQuota float64
	Hints    RouteHints
}

// BuildDailyRoute selects and sequences a subset of the scored
// candidates into a single day's route. Two phases: selection (priority
// ranking with an NBD-mix quota) and sequencing (nearest-neighbor from
// the highest-priority stop plus a bounded 2-opt pass). The returned
// route never violates MaxVisits, the travel+visit budget, or the work
// window; when the budget would be exceeded the lowest-priority stop is
// dropped and the sequence rebuilt, never silently over capacity.
//
// The sequencing heuristic is a TSP approximation and is best effort on
// revenue per hour, not provably optimal.
func BuildDailyRoute(date time.Time, candidates []domain.ScoredCustomer, p RouteParams) (domain.DailyRoute, error) {
	if p.Capacity.MaxVisits < 1 {
		return domain.DailyRoute{}, &contract.PlanError{
			Code:    contract.ErrInfeasibleCapacity,
			Message: fmt.Sprintf("max visits must be >= 1, got %d", p.Capacity.MaxVisits),
		}
	}
	if p.Capacity.WindowMin() <= 0 {
		return domain.DailyRoute{}, &contract.PlanError{
			Code:    contract.ErrInfeasibleCapacity,
			Message: fmt.Sprintf("work window is non-positive (%d min)", p.Capacity.WindowMin()),
		}
	}

	selected := selectStops(candidates, p)

	// Fit loop: sequence, then shrink until the schedule fits.
	for len(selected) > 0 {
		seq := sequenceStops(selected, p.Travel)
		route, ok := scheduleStops(date, seq, p)
		if ok {
			return route, nil
		}
		selected = dropOne(selected, p.NBDQuota)
	}

	return emptyRoute(date), nil
}

// selectStops ranks candidates (with soft hint bonuses) and takes the
// top MaxVisits, then enforces the NBD-mix quota by swapping in the
// highest-priority qualifying candidate while any remain outside.
func selectStops(candidates []domain.ScoredCustomer, p RouteParams) []domain.ScoredCustomer {
	original := make(map[string]float64, len(candidates))
	for i := range candidates {
		original[candidates[i].Code] = candidates[i].PriorityScore
	}

	ranked := make([]domain.ScoredCustomer, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].PriorityScore += hintBonus(&ranked[i], p.Hints)
	}
	CanonicalSort(ranked)

	n := p.Capacity.MaxVisits
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := ranked[:n]
	rest := ranked[n:]

	required := nbdRequired(len(selected), p.NBDQuota)
	for countNBD(selected) < required {
		swapIn := -1
		for i, c := range rest {
			if c.NBD {
				swapIn = i
				break
			}
		}
		if swapIn < 0 {
			break // quota cannot be met: every eligible candidate is in
		}
		swapOut := lowestPriorityIndex(selected, func(c *domain.ScoredCustomer) bool { return !c.NBD })
		if swapOut < 0 {
			break
		}
		selected[swapOut], rest[swapIn] = rest[swapIn], selected[swapOut]
	}

	out := make([]domain.ScoredCustomer, len(selected))
	copy(out, selected)
	// Hint bonuses bias ordering only; the stored scores stay as scored.
	for i := range out {
		out[i].PriorityScore = original[out[i].Code]
	}
	CanonicalSort(out)
	return out
}

func hintBonus(c *domain.ScoredCustomer, h RouteHints) float64 {
	var bonus float64
	if h.FocusAreas[c.Area] {
		bonus += focusAreaBonus
	}
	if h.PriorityCustomers[c.Code] {
		bonus += priorityCustBonus
	}
	return bonus
}

func nbdRequired(stops int, quota float64) int {
	return int(math.Ceil(quota * float64(stops)))
}

func countNBD(customers []domain.ScoredCustomer) int {
	n := 0
	for _, c := range customers {
		if c.NBD {
			n++
		}
	}
	return n
}

// lowestPriorityIndex finds the lowest-ranked element matching the
// filter, or -1. Ties resolve toward the later customer code so the
// choice stays deterministic.
func lowestPriorityIndex(customers []domain.ScoredCustomer, match func(*domain.ScoredCustomer) bool) int {
	idx := -1
	for i := range customers {
		if !match(&customers[i]) {
			continue
		}
		if idx < 0 || lessRanked(&customers[i], &customers[idx]) {
			idx = i
		}
	}
	return idx
}

func lessRanked(a, b *domain.ScoredCustomer) bool {
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore < b.PriorityScore
	}
	if a.UrgencyScore != b.UrgencyScore {
		return a.UrgencyScore < b.UrgencyScore
	}
	return a.Code > b.Code
}

// dropOne removes the lowest-priority stop, preferring a non-NBD stop
// when removing an NBD one would break the quota for the shrunk set.
func dropOne(selected []domain.ScoredCustomer, quota float64) []domain.ScoredCustomer {
	required := nbdRequired(len(selected)-1, quota)
	protectNBD := countNBD(selected) <= required

	var idx int
	if protectNBD {
		idx = lowestPriorityIndex(selected, func(c *domain.ScoredCustomer) bool { return !c.NBD })
		if idx < 0 {
			idx = lowestPriorityIndex(selected, func(*domain.ScoredCustomer) bool { return true })
		}
	} else {
		idx = lowestPriorityIndex(selected, func(*domain.ScoredCustomer) bool { return true })
	}

	out := make([]domain.ScoredCustomer, 0, len(selected)-1)
	out = append(out, selected[:idx]...)
	out = append(out, selected[idx+1:]...)
	return out
}

// sequenceStops orders the selected set: nearest neighbor starting from
// the highest-priority stop, then a bounded 2-opt improvement pass.
func sequenceStops(selected []domain.ScoredCustomer, travel TravelModel) []domain.ScoredCustomer {
	if len(selected) <= 1 {
		return selected
	}

	remaining := make([]domain.ScoredCustomer, len(selected))
	copy(remaining, selected)
	CanonicalSort(remaining)

	seq := []domain.ScoredCustomer{remaining[0]}
	remaining = remaining[1:]

	for len(remaining) > 0 {
		cur := &seq[len(seq)-1]
		best := 0
		bestLeg := travel.Between(&cur.Customer, &remaining[0].Customer)
		for i := 1; i < len(remaining); i++ {
			leg := travel.Between(&cur.Customer, &remaining[i].Customer)
			if leg.Minutes < bestLeg.Minutes ||
				(leg.Minutes == bestLeg.Minutes && remaining[i].Code < remaining[best].Code) {
				best, bestLeg = i, leg
			}
		}
		seq = append(seq, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return twoOpt(seq, travel)
}

// twoOpt runs segment-reversal improvement passes, bounded so a large
// day cannot spin. The first stop stays anchored on the priority start.
func twoOpt(seq []domain.ScoredCustomer, travel TravelModel) []domain.ScoredCustomer {
	maxPasses := 3
	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 1; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				if reversalGain(seq, i, j, travel) > 0 {
					reverse(seq, i, j)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return seq
}

// reversalGain is the travel-minute saving from reversing seq[i..j].
func reversalGain(seq []domain.ScoredCustomer, i, j int, travel TravelModel) int {
	before := travel.Between(&seq[i-1].Customer, &seq[i].Customer).Minutes
	after := travel.Between(&seq[i-1].Customer, &seq[j].Customer).Minutes
	if j < len(seq)-1 {
		before += travel.Between(&seq[j].Customer, &seq[j+1].Customer).Minutes
		after += travel.Between(&seq[i].Customer, &seq[j+1].Customer).Minutes
	}
	return before - after
}

func reverse(seq []domain.ScoredCustomer, i, j int) {
	for i < j {
		seq[i], seq[j] = seq[j], seq[i]
		i++
		j--
	}
}

// scheduleStops walks the sequence from work start assigning concrete
// time slots. Returns ok=false when the travel+visit budget or the work
// window would be exceeded.
func scheduleStops(date time.Time, seq []domain.ScoredCustomer, p RouteParams) (domain.DailyRoute, bool) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	cursor := day.Add(time.Duration(p.Capacity.WorkStartMin) * time.Minute)
	workEnd := day.Add(time.Duration(p.Capacity.WorkEndMin) * time.Minute)

	var stops []domain.RouteStop
	var travelMin int
	var travelKm float64
	var visitMin int
	var revenue float64

	for i := range seq {
		var leg TravelLeg
		if i > 0 {
			leg = p.Travel.Between(&seq[i-1].Customer, &seq[i].Customer)
		}
		dur := visitDuration(&seq[i].Customer)

		if travelMin+leg.Minutes+visitMin+dur > p.Capacity.MaxTravelMin {
			return domain.DailyRoute{}, false
		}

		cursor = cursor.Add(time.Duration(leg.Minutes) * time.Minute)
		start := cursor
		end := start.Add(time.Duration(dur) * time.Minute)
		if end.After(workEnd) {
			return domain.DailyRoute{}, false
		}
		cursor = end

		travelMin += leg.Minutes
		travelKm += leg.Km
		visitMin += dur
		revenue += seq[i].PredictedValue

		stops = append(stops, domain.RouteStop{
			Customer:          seq[i],
			Seq:               i + 1,
			TravelFromPrevMin: leg.Minutes,
			TravelFromPrevKm:  leg.Km,
			VisitStart:        start,
			VisitEnd:          end,
			DurationMin:       dur,
			ExpectedRevenue:   seq[i].PredictedValue,
		})
	}

	route := domain.DailyRoute{
		Date:           day,
		Stops:          stops,
		TotalCustomers: len(stops),
		TotalRevenue:   revenue,
		TotalTravelMin: travelMin,
		TotalTravelKm:  travelKm,
	}
	if elapsed := route.ElapsedMin(); elapsed > 0 {
		route.Efficiency = revenue / (float64(elapsed) / 60.0)
	}
	return route, true
}

func visitDuration(c *domain.Customer) int {
	min := c.Tier.MinVisitMinutes()
	if c.VisitDurationMin > min {
		return c.VisitDurationMin
	}
	return min
}

func emptyRoute(date time.Time) domain.DailyRoute {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return domain.DailyRoute{Date: day}
}

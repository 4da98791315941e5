package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/quintalabs/fieldplan/internal/config"
	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// ScoringInput carries everything scoring needs for one customer. Scores
// are pure functions of this input: same snapshot, same output.
type ScoringInput struct {
	Customer domain.Customer
	Now      time.Time
	Weights  config.ScoringWeights

	// Escalated marks a customer a prior revision flagged as missed.
	Escalated bool
}

// ValidateCustomer rejects a record with contradictory fields. One bad
// record is skipped by the caller, never aborting the whole portfolio.
func ValidateCustomer(agentID string, c *domain.Customer, now time.Time) error {
	switch {
	case c.Code == "":
		return contract.NewDataIntegrity(agentID, c.Code, "customer code is empty")
	case !c.Tier.Valid():
		return contract.NewDataIntegrity(agentID, c.Code, fmt.Sprintf("tier %d out of range 1..4", c.Tier))
	case c.LastVisitAt != nil && c.LastVisitAt.After(now):
		return contract.NewDataIntegrity(agentID, c.Code, "last visit recorded in the future (negative recency)")
	case c.OrdersCount < 0:
		return contract.NewDataIntegrity(agentID, c.Code, "negative orders count")
	case c.SalesAmount < 0:
		return contract.NewDataIntegrity(agentID, c.Code, "negative sales amount")
	case c.ConversionRate < 0 || c.ConversionRate > 1:
		return contract.NewDataIntegrity(agentID, c.Code, fmt.Sprintf("conversion rate %v outside [0,1]", c.ConversionRate))
	case c.VisitFrequency < 0:
		return contract.NewDataIntegrity(agentID, c.Code, "negative visit frequency")
	}
	return nil
}

// ScoreCustomer derives all scores for one well-formed customer. Missing
// metrics default to neutral values rather than erroring; a brand-new
// customer (no visit history) is treated as maximally overdue so NBD
// candidates always get a defined, finite score.
func ScoreCustomer(in ScoringInput) domain.ScoredCustomer {
	c := in.Customer
	w := in.Weights

	days := effectiveDaysSince(&c, in.Now, w.RiskMultiplier)

	urgency := urgencyScore(&c, days, w)
	churn := churnRisk(&c, days, w.RiskMultiplier)
	predicted := predictedValue(&c)
	priority := priorityScore(&c, churn, predicted, days, w, in.Escalated)

	sc := domain.ScoredCustomer{
		Customer:       c,
		UrgencyScore:   urgency,
		PriorityScore:  priority,
		ChurnRisk:      churn,
		PredictedValue: predicted,
		Escalated:      in.Escalated,
	}
	sc.NBD = c.Type == domain.CustomerProspect ||
		c.LastVisitAt == nil ||
		churn >= w.ChurnFlagThreshold
	sc.Overdue = c.LastVisitAt == nil || days > c.IntervalDays()
	return sc
}

// ScorePortfolio scores every well-formed customer and collects a typed
// error per rejected record (skip-and-continue semantics).
func ScorePortfolio(
	agentID string,
	customers []domain.Customer,
	now time.Time,
	weights config.ScoringWeights,
	escalated map[string]bool,
) ([]domain.ScoredCustomer, []*contract.PlanError) {
	var scored []domain.ScoredCustomer
	var rejected []*contract.PlanError

	for i := range customers {
		c := customers[i]
		if err := ValidateCustomer(agentID, &c, now); err != nil {
			if pe, ok := err.(*contract.PlanError); ok {
				rejected = append(rejected, pe)
			} else {
				rejected = append(rejected, contract.NewDataIntegrity(agentID, c.Code, err.Error()))
			}
			continue
		}
		scored = append(scored, ScoreCustomer(ScoringInput{
			Customer:  c,
			Now:       now,
			Weights:   weights,
			Escalated: escalated[c.Code],
		}))
	}
	return scored, rejected
}

// effectiveDaysSince maps "never visited" onto the maximally-overdue
// horizon (interval * risk multiplier) so new customers score finite.
func effectiveDaysSince(c *domain.Customer, now time.Time, riskMultiplier float64) float64 {
	days := c.DaysSinceVisit(now)
	if days < 0 {
		return math.Ceil(c.IntervalDays() * riskMultiplier)
	}
	return float64(days)
}

// urgencyScore: base_by_tier + k1*days - k2*frequency, clamped to [0,100].
// Higher tiers get a higher base so a high-value customer overdue by the
// same number of days outranks a low-value one.
func urgencyScore(c *domain.Customer, days float64, w config.ScoringWeights) float64 {
	base := w.TierBase[int(c.Tier)-1]
	raw := base + w.UrgencyPerDay*days - w.FrequencyRelief*float64(c.VisitFrequency)
	return clampF(raw, 0, 100)
}

// churnRisk: days relative to the recommended interval stretched by the
// risk multiplier, clamped to [0,1].
func churnRisk(c *domain.Customer, days float64, riskMultiplier float64) float64 {
	horizon := c.IntervalDays() * riskMultiplier
	if horizon <= 0 {
		return 1
	}
	return clampF(days/horizon, 0, 1)
}

// predictedValue: average order value over the lookback window, adjusted
// by conversion rate (0.5 conversion is neutral).
func predictedValue(c *domain.Customer) float64 {
	if c.OrdersCount <= 0 {
		return 0
	}
	avg := c.SalesAmount / float64(c.OrdersCount)
	return avg * (0.5 + c.ConversionRate)
}

// priorityScore blends tier, normalized predicted value and conversion,
// and discounts customers whose churn risk was already handled by a
// visit inside the recommended interval.
func priorityScore(c *domain.Customer, churn, predicted, days float64, w config.ScoringWeights, escalated bool) float64 {
	tierScore := float64(5 - int(c.Tier)) // tier 1 -> 4, tier 4 -> 1
	valueNorm := predicted / w.ValueNormalizer
	if valueNorm > 1 {
		valueNorm = 1
	}

	score := w.TierWeight*tierScore + w.ValueWeight*valueNorm + w.ConversionWeight*c.ConversionRate

	// Recently handled: visited inside the recommended interval means
	// the churn risk is covered, so its residual weight is a penalty.
	if c.LastVisitAt != nil && days < c.IntervalDays() {
		score -= w.ChurnPenalty * (1 - churn)
	}

	if escalated {
		score += w.EscalationBonus
	}
	return score
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

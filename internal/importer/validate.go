package importer

import (
	"fmt"
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// ValidatePortfolioFile checks the whole file and returns every
// violation found, not just the first, so one pass fixes one file.
func ValidatePortfolioFile(pf *PortfolioFile) []error {
	var errs []error

	if pf.AgentID == "" {
		errs = append(errs, fmt.Errorf("agent_id is required"))
	}
	if len(pf.Customers) == 0 {
		errs = append(errs, fmt.Errorf("file contains no customers"))
	}

	seen := make(map[string]bool, len(pf.Customers))
	for i := range pf.Customers {
		prefix := fmt.Sprintf("customers[%d]", i)
		errs = append(errs, validateCustomer(prefix, &pf.Customers[i])...)

		code := pf.Customers[i].Code
		if code != "" && seen[code] {
			errs = append(errs, fmt.Errorf("%s: duplicate customer code %q", prefix, code))
		}
		seen[code] = true
	}
	return errs
}

func validateCustomer(prefix string, c *CustomerImport) []error {
	var errs []error

	if c.Code == "" {
		errs = append(errs, fmt.Errorf("%s.code is required", prefix))
	}
	if c.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	}
	switch domain.CustomerType(c.Type) {
	case domain.CustomerExisting, domain.CustomerProspect:
	default:
		errs = append(errs, fmt.Errorf("%s.type must be %q or %q, got %q",
			prefix, domain.CustomerExisting, domain.CustomerProspect, c.Type))
	}
	if !domain.Tier(c.Tier).Valid() {
		errs = append(errs, fmt.Errorf("%s.tier %d out of range 1..4", prefix, c.Tier))
	}
	if (c.Lat == nil) != (c.Lon == nil) {
		errs = append(errs, fmt.Errorf("%s: lat and lon must be set together", prefix))
	}
	if c.LastVisitAt != nil {
		if _, err := time.Parse(domain.DateLayout, *c.LastVisitAt); err != nil {
			if _, err := time.Parse(time.RFC3339, *c.LastVisitAt); err != nil {
				errs = append(errs, fmt.Errorf("%s.last_visit_at %q is not a date", prefix, *c.LastVisitAt))
			}
		}
	}
	if c.OrdersCount < 0 {
		errs = append(errs, fmt.Errorf("%s.orders_count must not be negative", prefix))
	}
	if c.SalesAmount < 0 {
		errs = append(errs, fmt.Errorf("%s.sales_amount must not be negative", prefix))
	}
	if c.ConversionRate < 0 || c.ConversionRate > 1 {
		errs = append(errs, fmt.Errorf("%s.conversion_rate must be in [0,1]", prefix))
	}
	if c.VisitFrequency < 0 {
		errs = append(errs, fmt.Errorf("%s.visit_frequency must not be negative", prefix))
	}
	if c.VisitDurationMin < 0 {
		errs = append(errs, fmt.Errorf("%s.visit_duration_min must not be negative", prefix))
	}
	return errs
}

// ToDomain converts a validated import row into the domain record.
func (c *CustomerImport) ToDomain() (*domain.Customer, error) {
	cust := &domain.Customer{
		Code:             c.Code,
		Name:             c.Name,
		Type:             domain.CustomerType(c.Type),
		Area:             c.Area,
		Lat:              c.Lat,
		Lon:              c.Lon,
		Tier:             domain.Tier(c.Tier),
		OrdersCount:      c.OrdersCount,
		SalesAmount:      c.SalesAmount,
		ConversionRate:   c.ConversionRate,
		VisitFrequency:   c.VisitFrequency,
		VisitDurationMin: c.VisitDurationMin,
	}
	if c.LastVisitAt != nil {
		t, err := time.Parse(domain.DateLayout, *c.LastVisitAt)
		if err != nil {
			t, err = time.Parse(time.RFC3339, *c.LastVisitAt)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing last_visit_at: %w", err)
		}
		t = t.UTC()
		cust.LastVisitAt = &t
	}
	return cust, nil
}

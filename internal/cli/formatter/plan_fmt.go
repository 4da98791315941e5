package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// RenderPlan renders a full plan: header, targets, per-day routes,
// deferrals and warnings.
func RenderPlan(p *domain.Plan) string {
	var b strings.Builder

	b.WriteString(StyleBold.Render(fmt.Sprintf("Plan %s", p.ID)))
	b.WriteString("  ")
	b.WriteString(StatusStyle(p.Status).Render(strings.ToUpper(string(p.Status))))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("agent %s  period %s  config %s  revisions %d",
		p.AgentID, p.Period.Key(), p.ConfigVersion, p.RevisionCount)))
	b.WriteString("\n\n")

	b.WriteString(StyleHeader.Render("TARGETS"))
	b.WriteString(fmt.Sprintf("\n  visits %d  revenue %.2f  nbd %d\n",
		p.Targets.Visits, p.Targets.Revenue, p.Targets.NBDVisits))
	if len(p.FocusAreas) > 0 {
		b.WriteString(fmt.Sprintf("  focus areas: %s\n", strings.Join(p.FocusAreas, ", ")))
	}
	if len(p.PriorityCustomers) > 0 {
		b.WriteString(fmt.Sprintf("  priority customers: %s\n", strings.Join(p.PriorityCustomers, ", ")))
	}
	b.WriteString("\n")

	if len(p.SubTargets) > 0 {
		rows := make([][]string, 0, len(p.SubTargets))
		for _, t := range p.SubTargets {
			rows = append(rows, []string{
				fmt.Sprintf("%d", t.Index),
				t.Start.Format(domain.DateLayout),
				t.End.Format(domain.DateLayout),
				fmt.Sprintf("%d", t.Visits),
				fmt.Sprintf("%.2f", t.Revenue),
				fmt.Sprintf("%d", t.NBDVisits),
			})
		}
		b.WriteString(RenderTable(
			[]string{"PERIOD", "FROM", "TO", "VISITS", "REVENUE", "NBD"}, rows))
		b.WriteString("\n")
	}

	var dates []string
	for d := range p.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		b.WriteString(RenderRoute(d, p.Days[d]))
	}

	if len(p.Deferred) > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("%d deferred visits", len(p.Deferred))))
		b.WriteString("\n")
		for _, dv := range p.Deferred {
			b.WriteString(StyleDim.Render(fmt.Sprintf("  %s (%s): %s\n", dv.CustomerCode, dv.Area, dv.Reason)))
		}
	}
	for _, w := range p.Warnings {
		b.WriteString(StyleYellow.Render("! " + w))
		b.WriteString("\n")
	}
	if p.Narrative != "" {
		b.WriteString("\n")
		b.WriteString(StyleHeader.Render("NARRATIVE"))
		b.WriteString("\n" + p.Narrative + "\n")
	}

	return b.String()
}

// RenderRoute renders one day's stop sequence.
func RenderRoute(date string, r domain.DailyRoute) string {
	var b strings.Builder

	b.WriteString(StyleBlue.Render(date))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d stops, %d min travel, %.2f revenue\n",
		r.TotalCustomers, r.TotalTravelMin, r.TotalRevenue)))

	for _, s := range r.Stops {
		marker := " "
		if s.Customer.NBD {
			marker = StyleGreen.Render("N")
		}
		b.WriteString(fmt.Sprintf("  %2d. %s-%s  %-10s %s %s\n",
			s.Seq,
			s.VisitStart.Format("15:04"),
			s.VisitEnd.Format("15:04"),
			s.Customer.Code,
			marker,
			StyleDim.Render(s.Customer.Area)))
	}
	return b.String()
}

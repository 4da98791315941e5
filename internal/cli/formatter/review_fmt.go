package formatter

import (
	"fmt"
	"strings"

	"github.com/quintalabs/fieldplan/internal/contract"
	"github.com/quintalabs/fieldplan/internal/domain"
)

// RenderAnalysis renders one sub-period's achievement report.
func RenderAnalysis(a *domain.Analysis) string {
	var b strings.Builder

	b.WriteString(StyleBold.Render(fmt.Sprintf("Analysis of period %d", a.PeriodIndex)))
	b.WriteString("  ")
	b.WriteString(BandStyle(a.Band).Render(string(a.Band)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("window %s .. %s",
		a.WindowStart.Format(domain.DateLayout), a.WindowEnd.Format(domain.DateLayout))))
	b.WriteString("\n\n")

	rows := [][]string{
		{"visits", fmt.Sprintf("%d", a.PlannedVisits), fmt.Sprintf("%d", a.ActualVisits), fmt.Sprintf("%.1f%%", a.VisitAchievementPct)},
		{"revenue", fmt.Sprintf("%.2f", a.PlannedRevenue), fmt.Sprintf("%.2f", a.ActualRevenue), fmt.Sprintf("%.1f%%", a.RevenueAchievementPct)},
	}
	b.WriteString(RenderTable([]string{"METRIC", "PLANNED", "ACTUAL", "ACHIEVED"}, rows))
	b.WriteString(fmt.Sprintf("\nblended %.1f%%\n", a.BlendedPct))

	if len(a.Areas) > 0 {
		b.WriteString("\n")
		for _, ar := range a.Areas {
			b.WriteString(fmt.Sprintf("  %-12s planned %d actual %d  %s\n",
				ar.Area, ar.Planned, ar.Actual, VerdictIndicator(ar.Verdict)))
		}
	}
	if len(a.MissedCustomers) > 0 {
		b.WriteString(StyleRed.Render(fmt.Sprintf("\nmissed customers: %s\n", strings.Join(a.MissedCustomers, ", "))))
	}
	return b.String()
}

// RenderRevision renders the redistribution outcome.
func RenderRevision(rev *domain.PlanRevision) string {
	var b strings.Builder

	b.WriteString(StyleBold.Render(fmt.Sprintf("Revision %d", rev.Seq)))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  after period %d\n", rev.PeriodIndex)))

	if len(rev.Deltas) == 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf(
			"no remaining periods; carrying over %d visits, %.2f revenue\n",
			rev.CarryOverVisits, rev.CarryOverRevenue)))
		return b.String()
	}

	for _, d := range rev.Deltas {
		line := fmt.Sprintf("  period %d: +%d visits, +%.2f revenue", d.Index, d.VisitDelta, d.RevenueDelta)
		if len(d.AddFocusAreas) > 0 {
			line += "  focus +" + strings.Join(d.AddFocusAreas, ",")
		}
		b.WriteString(line + "\n")
	}
	if len(rev.EscalatedCustomers) > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("escalated: %s\n", strings.Join(rev.EscalatedCustomers, ", "))))
	}
	return b.String()
}

// RenderCloseReport renders the final horizon summary.
func RenderCloseReport(r *contract.CloseReport) string {
	var b strings.Builder

	b.WriteString(StyleBold.Render(fmt.Sprintf("Closed plan %s", r.PlanID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  period %s, %d planned visits, %.2f target revenue, %d revisions\n",
		r.Period.Key(), r.PlannedVisits, r.TargetRevenue, r.Revisions))
	if r.CarryOverVisits > 0 || r.CarryOverRevenue > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf(
			"  carry-over into next horizon: %d visits, %.2f revenue\n",
			r.CarryOverVisits, r.CarryOverRevenue)))
	}
	return b.String()
}

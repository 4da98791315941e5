package service

import (
	"strings"
	"time"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// NormalizePeriod snaps any date inside a horizon onto the horizon's
// canonical bounds: Monday..Sunday for a week, first..last calendar day
// for a month. All bounds are midnight UTC.
func NormalizePeriod(kind domain.PeriodKind, date time.Time) domain.Period {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	switch kind {
	case domain.PeriodWeek:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		start := d.AddDate(0, 0, -offset)
		return domain.Period{Kind: kind, Start: start, End: start.AddDate(0, 0, 6)}
	default:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return domain.Period{Kind: domain.PeriodMonth, Start: start, End: start.AddDate(0, 1, -1)}
	}
}

// WorkingDays filters the period's calendar days down to assignable
// ones. Sundays are always excluded; further weekdays come from
// configuration (e.g. "saturday").
func WorkingDays(p domain.Period, nonWorking []string) []time.Time {
	excluded := map[time.Weekday]bool{time.Sunday: true}
	for _, name := range nonWorking {
		if wd, ok := weekdayByName(name); ok {
			excluded[wd] = true
		}
	}

	var days []time.Time
	for _, d := range p.Days() {
		if excluded[d.Weekday()] {
			continue
		}
		days = append(days, d)
	}
	return days
}

func weekdayByName(name string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	case "sunday":
		return time.Sunday, true
	}
	return time.Sunday, false
}

// subWindow is one analyzable slice of a horizon.
type subWindow struct {
	start time.Time
	end   time.Time // inclusive
}

// subWindows slices a horizon into its analyzable sub-periods: a month
// splits into calendar weeks clipped to the month, a week splits into
// its individual working days.
func subWindows(p domain.Period, workingDays []time.Time) []subWindow {
	if p.Kind == domain.PeriodWeek {
		windows := make([]subWindow, 0, len(workingDays))
		for _, d := range workingDays {
			windows = append(windows, subWindow{start: d, end: d})
		}
		return windows
	}

	var windows []subWindow
	cursor := p.Start
	for !cursor.After(p.End) {
		end := cursor
		for end.Weekday() != time.Sunday && end.Before(p.End) {
			end = end.AddDate(0, 0, 1)
		}
		windows = append(windows, subWindow{start: cursor, end: end})
		cursor = end.AddDate(0, 0, 1)
	}
	return windows
}

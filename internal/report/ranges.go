package report

import (
	"time"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
)

const dayLayout = "2006-01-02"

var rangeLabels = map[domain.RangeKind]string{
	domain.RangeToday:   "Today",
	domain.RangeWeek:    "Last 7 Days",
	domain.RangeMonth:   "This Month",
	domain.RangeQuarter: "Last 3 Months",
	domain.RangeYear:    "Last 12 Months",
}

// ResolveDateRange turns a range kind into concrete bounds around now, in
// now's location. Month, quarter and year end at the end of today rather than
// at the end of the nominal period, so the current day is always included.
// Unknown kinds resolve as month.
func ResolveDateRange(kind domain.RangeKind, now time.Time) domain.DateRange {
	endOfToday := endOfDay(now)
	loc := now.Location()

	switch kind {
	case domain.RangeToday:
		return domain.DateRange{Kind: kind, StartDate: startOfDay(now), EndDate: endOfToday, Label: rangeLabels[kind]}
	case domain.RangeWeek:
		return domain.DateRange{Kind: kind, StartDate: startOfDay(now.AddDate(0, 0, -7)), EndDate: endOfToday, Label: rangeLabels[kind]}
	case domain.RangeQuarter:
		start := time.Date(now.Year(), now.Month()-3, 1, 0, 0, 0, 0, loc)
		return domain.DateRange{Kind: kind, StartDate: start, EndDate: endOfToday, Label: rangeLabels[kind]}
	case domain.RangeYear:
		start := time.Date(now.Year(), now.Month()-12, 1, 0, 0, 0, 0, loc)
		return domain.DateRange{Kind: kind, StartDate: start, EndDate: endOfToday, Label: rangeLabels[kind]}
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return domain.DateRange{Kind: domain.RangeMonth, StartDate: start, EndDate: endOfToday, Label: rangeLabels[domain.RangeMonth]}
	}
}

// ParseRangeKind maps a query value onto a known kind; anything else is month.
func ParseRangeKind(raw string) domain.RangeKind {
	kind := domain.RangeKind(raw)
	if _, ok := rangeLabels[kind]; ok {
		return kind
	}
	return domain.RangeMonth
}

// DaysInRange counts the calendar days touched by [start, end], at least 1.
func DaysInRange(start time.Time, end time.Time) int {
	days := 0
	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		days++
	}
	if days < 1 {
		return 1
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

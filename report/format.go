package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02/01/2006"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// formatTime trims a database TIME ("15:04:05" or "15:04:05.999") to HH:MM.
func formatTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 && s[2] == ':' {
		return s[:5]
	}
	return s
}

// ActionWindow is what an action row shows in its start, end and date cells.
type ActionWindow struct {
	Start string
	End   string
	Date  string
}

// Window resolves the displayed time range of an action. With action dates
// present the earliest and latest entries win; otherwise the action's own
// fields are used.
func (a Action) Window() ActionWindow {
	if len(a.Dates) == 0 {
		w := ActionWindow{Start: formatTime(a.StartTime), End: formatTime(a.EndTime)}
		if a.ActionDate != nil {
			w.Date = formatDate(*a.ActionDate)
		}
		return w
	}

	dates := make([]ActionDate, len(a.Dates))
	copy(dates, a.Dates)
	sort.SliceStable(dates, func(i, j int) bool { return dates[i].Date.Before(dates[j].Date) })

	first, last := dates[0], dates[len(dates)-1]

	start := first.StartTime
	if strings.TrimSpace(start) == "" {
		start = a.StartTime
	}
	end := a.EndTime
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i].EndTime != nil && strings.TrimSpace(*dates[i].EndTime) != "" {
			end = *dates[i].EndTime
			break
		}
	}

	from, to := formatDate(first.Date), formatDate(last.Date)
	date := from
	if from != to {
		date = from + "-" + to
	}
	return ActionWindow{Start: formatTime(start), End: formatTime(end), Date: date}
}

// quantityCell renders "{quantity} {unit}" as text, or the bare number when
// the part has no unit.
func quantityCell(q decimal.Decimal, unit string) any {
	unit = strings.TrimSpace(unit)
	if unit != "" {
		return q.String() + " " + unit
	}
	if q.IsInteger() {
		return q.IntPart()
	}
	return q.InexactFloat64()
}

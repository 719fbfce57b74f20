package tracking

import (
	"github.com/onedaybetter/tracker/internal/calendar"
)

// Day is one cell of the weekly view.
type Day struct {
	Date        calendar.Date `json:"date"`
	Weekday     int           `json:"weekday"`
	Scheduled   bool          `json:"scheduled"`
	Done        bool          `json:"done"`
	Future      bool          `json:"future"`
	BeforeStart bool          `json:"before_start"`
}

// Week returns the Sunday-to-Saturday week containing ref.
func Week(s Schedule, done Completions, ref, today calendar.Date) []Day {
	start := ref.StartOfWeek()
	week := make([]Day, 7)
	for i := range week {
		d := start.AddDays(i)
		week[i] = Day{
			Date:        d,
			Weekday:     d.Weekday(),
			Scheduled:   s.IsActive(d),
			Done:        s.IsActive(d) && done[d],
			Future:      d.After(today),
			BeforeStart: d.Before(s.Start),
		}
	}
	return week
}

// Item pairs a schedule with its recorded completions.
type Item struct {
	Schedule Schedule
	Done     Completions
}

type DaySummary struct {
	Date      calendar.Date `json:"date"`
	Scheduled int           `json:"scheduled"`
	Done      int           `json:"done"`
}

// Month summarises every day of the month containing ref across items.
// Future days report what is scheduled but never count as done.
func Month(items []Item, ref, today calendar.Date) []DaySummary {
	first := ref.StartOfMonth()
	out := make([]DaySummary, first.DaysInMonth())
	for i := range out {
		d := first.AddDays(i)
		sum := DaySummary{Date: d}
		for _, it := range items {
			if !it.Schedule.IsActive(d) {
				continue
			}
			sum.Scheduled++
			if !d.After(today) && it.Done[d] {
				sum.Done++
			}
		}
		out[i] = sum
	}
	return out
}

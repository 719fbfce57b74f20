package tracking

import (
	"errors"

	"github.com/onedaybetter/tracker/internal/calendar"
)

var (
	ErrFutureDate    = errors.New("cannot record a completion for a future date")
	ErrBeforeStart   = errors.New("date is before the item was created")
	ErrAfterTarget   = errors.New("date is after the target date")
	ErrNotScheduled  = errors.New("item is not scheduled on that weekday")
	ErrInvalidPeriod = errors.New("target date cannot be before the start date")
)

// Schedule describes on which days an item is active. Until is the last day the
// item can ever be active; the zero Date means open-ended.
type Schedule struct {
	Start calendar.Date
	Until calendar.Date
	Days  calendar.WeekdayMask
}

// End returns the last day that counts towards progress as of today.
func (s Schedule) End(today calendar.Date) calendar.Date {
	if s.Until.IsZero() {
		return today
	}
	return calendar.Min(today, s.Until)
}

// Covers reports whether d lies inside the schedule's lifetime, ignoring weekdays.
func (s Schedule) Covers(d calendar.Date) bool {
	if d.Before(s.Start) {
		return false
	}
	return s.Until.IsZero() || !d.After(s.Until)
}

// IsActive reports whether the item is expected to be done on d.
func (s Schedule) IsActive(d calendar.Date) bool {
	return s.Covers(d) && s.Days.Has(d)
}

// ActiveDays lists every active day from Start through End(today), ascending.
func (s Schedule) ActiveDays(today calendar.Date) []calendar.Date {
	var days []calendar.Date
	calendar.Range(s.Start, s.End(today), func(d calendar.Date) bool {
		if s.Days.Has(d) {
			days = append(days, d)
		}
		return true
	})
	return days
}

// CheckRecordable validates that a completion may be written for d.
func (s Schedule) CheckRecordable(d, today calendar.Date) error {
	switch {
	case d.After(today):
		return ErrFutureDate
	case d.Before(s.Start):
		return ErrBeforeStart
	case !s.Until.IsZero() && d.After(s.Until):
		return ErrAfterTarget
	case !s.Days.Has(d):
		return ErrNotScheduled
	}
	return nil
}

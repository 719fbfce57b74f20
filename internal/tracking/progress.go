package tracking

import (
	"github.com/onedaybetter/tracker/internal/calendar"
)

// Completions maps a day to its done flag. Missing days are not done.
type Completions map[calendar.Date]bool

type Stats struct {
	ActiveDays    int           `json:"active_days"`
	CompletedDays int           `json:"completed_days"`
	Percentage    int           `json:"percentage"`
	CurrentStreak int           `json:"current_streak"`
	LongestStreak int           `json:"longest_streak"`
	LastCompleted calendar.Date `json:"last_completed"`
	DoneToday     bool          `json:"done_today"`
}

// Progress walks every active day of s up to today and counts completions.
// Completions recorded on inactive days or outside the schedule are ignored.
func Progress(s Schedule, done Completions, today calendar.Date) Stats {
	days := s.ActiveDays(today)

	stats := Stats{ActiveDays: len(days)}
	run := 0
	for _, d := range days {
		if done[d] {
			stats.CompletedDays++
			stats.LastCompleted = d
			run++
			if run > stats.LongestStreak {
				stats.LongestStreak = run
			}
		} else {
			run = 0
		}
	}
	if stats.ActiveDays > 0 {
		stats.Percentage = stats.CompletedDays * 100 / stats.ActiveDays
	}

	stats.DoneToday = s.IsActive(today) && done[today]
	stats.CurrentStreak = currentStreak(days, done, today)
	return stats
}

// currentStreak counts done days backwards from the most recent active day.
// An active day equal to today that is not done yet is still pending, so it
// does not break the streak.
func currentStreak(days []calendar.Date, done Completions, today calendar.Date) int {
	i := len(days) - 1
	if i >= 0 && days[i].Equal(today) && !done[today] {
		i--
	}
	n := 0
	for ; i >= 0 && done[days[i]]; i-- {
		n++
	}
	return n
}

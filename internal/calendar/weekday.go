package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidWeekdays = errors.New("days must be a non-empty set of weekdays between 1 (Monday) and 7 (Sunday)")

// WeekdayMask is a set of ISO weekdays. Bit (n-1) is set when weekday n is included.
type WeekdayMask uint8

const EveryDay WeekdayMask = 0x7f

// NewWeekdayMask builds a mask from ISO weekday numbers. Duplicates are ignored.
func NewWeekdayMask(days ...int) (WeekdayMask, error) {
	var m WeekdayMask
	for _, d := range days {
		if d < 1 || d > 7 {
			return 0, fmt.Errorf("%w: got %d", ErrInvalidWeekdays, d)
		}
		m |= 1 << uint(d-1)
	}
	if m == 0 {
		return 0, ErrInvalidWeekdays
	}
	return m, nil
}

func (m WeekdayMask) Valid() bool {
	return m != 0 && m&^EveryDay == 0
}

func (m WeekdayMask) HasWeekday(wd int) bool {
	if wd < 1 || wd > 7 {
		return false
	}
	return m&(1<<uint(wd-1)) != 0
}

// Has reports whether d falls on one of the mask's weekdays.
func (m WeekdayMask) Has(d Date) bool {
	return m.HasWeekday(d.Weekday())
}

// Days returns the included weekdays in ascending order.
func (m WeekdayMask) Days() []int {
	days := make([]int, 0, 7)
	for wd := 1; wd <= 7; wd++ {
		if m.HasWeekday(wd) {
			days = append(days, wd)
		}
	}
	return days
}

func (m WeekdayMask) Len() int {
	return len(m.Days())
}

func (m WeekdayMask) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Days())
}

func (m *WeekdayMask) UnmarshalJSON(b []byte) error {
	var days []int
	if err := json.Unmarshal(b, &days); err != nil {
		return ErrInvalidWeekdays
	}
	mask, err := NewWeekdayMask(days...)
	if err != nil {
		return err
	}
	*m = mask
	return nil
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package schedule

import (
	"errors"
	"fmt"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
)

var ErrInvalidSchedule = errors.New("invalid schedule metadata")

// Schedule decides which calendar days are due for a challenge.
type Schedule struct {
	StartDate    calendar.Date
	DurationDays *int
	DueWeekdays  calendar.WeekdaySet
}

// Validate rejects schedules the evaluator must not guess around.
func (s Schedule) Validate() error {
	if s.DurationDays != nil && *s.DurationDays <= 0 {
		return fmt.Errorf("%w: durationDays must be positive, got %d", ErrInvalidSchedule, *s.DurationDays)
	}
	if err := s.DueWeekdays.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return nil
}

// EndDate returns the last active day (inclusive) and whether the schedule has one.
func (s Schedule) EndDate() (calendar.Date, bool) {
	if s.DurationDays == nil {
		return 0, false
	}
	return s.StartDate.AddDays(*s.DurationDays - 1), true
}

// InRange reports whether d falls inside the active date range.
func (s Schedule) InRange(d calendar.Date) bool {
	if d.Before(s.StartDate) {
		return false
	}
	if end, ok := s.EndDate(); ok && d.After(end) {
		return false
	}
	return true
}

// IsDueDay reports whether d requires activity.
func (s Schedule) IsDueDay(d calendar.Date) bool {
	return IsDueDay(d, s.StartDate, s.end(), s.DueWeekdays)
}

// DueDaysBetween counts due days in [from, to].
func (s Schedule) DueDaysBetween(from, to calendar.Date) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if s.IsDueDay(d) {
			n++
		}
	}
	return n
}

func (s Schedule) end() *calendar.Date {
	if end, ok := s.EndDate(); ok {
		return &end
	}
	return nil
}

// IsDueDay is the evaluator: false outside [startDate, endDate], otherwise true for an
// empty weekday set or when the weekday of d is in the set.
func IsDueDay(d, startDate calendar.Date, endDate *calendar.Date, dueWeekdays calendar.WeekdaySet) bool {
	if d.Before(startDate) {
		return false
	}
	if endDate != nil && d.After(*endDate) {
		return false
	}
	if len(dueWeekdays) == 0 {
		return true
	}
	return dueWeekdays.Contains(d.Weekday())
}

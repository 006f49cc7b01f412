// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package schedule

import (
	"testing"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
)

func intPtr(v int) *int { return &v }

func TestIsDueDay(t *testing.T) {
	start := calendar.MustParseDate("2024-01-01") // Monday
	mwf := calendar.WeekdaySet{calendar.Monday, calendar.Wednesday, calendar.Friday}

	tests := []struct {
		name     string
		schedule Schedule
		day      string
		expected bool
	}{
		{"before start", Schedule{StartDate: start}, "2023-12-31", false},
		{"start day, every day", Schedule{StartDate: start}, "2024-01-01", true},
		{"open ended far future", Schedule{StartDate: start}, "2030-06-01", true},
		{"last day of duration", Schedule{StartDate: start, DurationDays: intPtr(14)}, "2024-01-14", true},
		{"after end", Schedule{StartDate: start, DurationDays: intPtr(14)}, "2024-01-15", false},
		{"due weekday", Schedule{StartDate: start, DueWeekdays: mwf}, "2024-01-03", true},
		{"not a due weekday", Schedule{StartDate: start, DueWeekdays: mwf}, "2024-01-02", false},
		{"weekend", Schedule{StartDate: start, DueWeekdays: mwf}, "2024-01-06", false},
		{"one day challenge", Schedule{StartDate: start, DurationDays: intPtr(1)}, "2024-01-01", true},
		{"one day challenge next day", Schedule{StartDate: start, DurationDays: intPtr(1)}, "2024-01-02", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.IsDueDay(calendar.MustParseDate(tt.day))
			if got != tt.expected {
				t.Errorf("IsDueDay(%s) = %v, expected %v", tt.day, got, tt.expected)
			}
		})
	}
}

func TestEndDate(t *testing.T) {
	s := Schedule{StartDate: calendar.MustParseDate("2024-01-01"), DurationDays: intPtr(14)}

	end, ok := s.EndDate()
	if !ok {
		t.Fatal("EndDate() reported no end for a fixed duration")
	}
	if end.String() != "2024-01-14" {
		t.Errorf("EndDate() = %s, expected 2024-01-14", end)
	}

	if _, ok := (Schedule{}).EndDate(); ok {
		t.Error("EndDate() reported an end for an open schedule")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{"valid open schedule", Schedule{}, false},
		{"valid with duration", Schedule{DurationDays: intPtr(30)}, false},
		{"zero duration", Schedule{DurationDays: intPtr(0)}, true},
		{"negative duration", Schedule{DurationDays: intPtr(-3)}, true},
		{"bad weekday", Schedule{DueWeekdays: calendar.WeekdaySet{9}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDueDaysBetween(t *testing.T) {
	s := Schedule{
		StartDate:    calendar.MustParseDate("2024-01-01"),
		DurationDays: intPtr(14),
		DueWeekdays:  calendar.WeekdaySet{calendar.Monday, calendar.Wednesday, calendar.Friday},
	}

	got := s.DueDaysBetween(calendar.MustParseDate("2023-12-25"), calendar.MustParseDate("2024-01-31"))
	if got != 6 {
		t.Errorf("DueDaysBetween() = %d, expected 6", got)
	}
}

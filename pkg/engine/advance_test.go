// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"testing"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/schedule"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
)

func datePtr(s string) *calendar.Date {
	d := calendar.MustParseDate(s)
	return &d
}

func TestAdvance(t *testing.T) {
	everyDay := Rules{Schedule: schedule.Schedule{StartDate: calendar.MustParseDate("2024-01-01")}}
	blockAtOne := everyDay
	blockAtOne.AllowedFailures = intPtr(1)

	tests := []struct {
		name           string
		stats          stats.ParticipantStats
		rules          Rules
		confirmed      []string
		asOf           string
		expectEval     bool
		expectState    stats.LifecycleState
		expectCounters [4]int
		expectCounted  string
	}{
		{
			name:           "unset watermark evaluates yesterday only",
			rules:          everyDay,
			confirmed:      []string{"2024-01-04"},
			asOf:           "2024-01-05",
			expectEval:     true,
			expectCounters: [4]int{1, 0, 1, 0},
			expectCounted:  "2024-01-04",
		},
		{
			name:           "watermark equal to asOf is a no-op",
			stats:          stats.ParticipantStats{ConfirmedCount: 3, Streak: 3, LastEvaluatedDate: datePtr("2024-01-05")},
			rules:          everyDay,
			asOf:           "2024-01-05",
			expectCounters: [4]int{3, 0, 3, 0},
		},
		{
			name:           "catch-up walks every missed day",
			stats:          stats.ParticipantStats{LastEvaluatedDate: datePtr("2024-01-02")},
			rules:          everyDay,
			confirmed:      []string{"2024-01-02", "2024-01-04"},
			asOf:           "2024-01-06",
			expectEval:     true,
			expectCounters: [4]int{2, 2, 0, 1},
			expectCounted:  "2024-01-05",
		},
		{
			name:           "catch-up stops at the blocking day",
			stats:          stats.ParticipantStats{LastEvaluatedDate: datePtr("2024-01-02")},
			rules:          blockAtOne,
			asOf:           "2024-01-10",
			expectEval:     true,
			expectState:    stats.Blocked,
			expectCounters: [4]int{0, 1, 0, 1},
			expectCounted:  "2024-01-02",
		},
		{
			name:           "days before start are not due",
			rules:          everyDay,
			asOf:           "2024-01-01",
			expectEval:     true,
			expectCounters: [4]int{0, 0, 0, 0},
		},
		{
			name:           "already counted day is skipped",
			stats:          stats.ParticipantStats{ConfirmedCount: 1, Streak: 1, LastCountedDate: datePtr("2024-01-04")},
			rules:          everyDay,
			confirmed:      []string{"2024-01-04"},
			asOf:           "2024-01-05",
			expectEval:     true,
			expectCounters: [4]int{1, 0, 1, 0},
			expectCounted:  "2024-01-04",
		},
		{
			name:           "terminal participant is frozen",
			stats:          stats.ParticipantStats{LifecycleState: stats.Completed, ConfirmedCount: 5},
			rules:          everyDay,
			asOf:           "2024-01-20",
			expectState:    stats.Completed,
			expectCounters: [4]int{5, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.stats
			days := DaySet{}
			for _, d := range tt.confirmed {
				days[calendar.MustParseDate(d)] = true
			}

			out := Advance(&s, tt.rules, days, calendar.MustParseDate(tt.asOf))

			if out.Evaluated != tt.expectEval {
				t.Errorf("Evaluated = %v, expected %v", out.Evaluated, tt.expectEval)
			}
			if s.LifecycleState != tt.expectState {
				t.Errorf("LifecycleState = %s, expected %s", s.LifecycleState, tt.expectState)
			}
			got := [4]int{s.ConfirmedCount, s.FailCount, s.Streak, s.NegativeStreak}
			if got != tt.expectCounters {
				t.Errorf("counters = %v, expected %v", got, tt.expectCounters)
			}
			if tt.expectCounted != "" {
				if s.LastCountedDate == nil || s.LastCountedDate.String() != tt.expectCounted {
					t.Errorf("LastCountedDate = %v, expected %s", s.LastCountedDate, tt.expectCounted)
				}
			}
			if s.Today.Date.String() != tt.asOf {
				t.Errorf("Today.Date = %s, expected %s", s.Today.Date, tt.asOf)
			}
		})
	}
}

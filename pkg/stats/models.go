// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package stats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
)

// LifecycleState is the participant's position in the Active -> Blocked|Completed machine.
type LifecycleState int

const (
	Active LifecycleState = iota
	Blocked
	Completed
)

var lifecycleNames = map[LifecycleState]string{
	Active:    "active",
	Blocked:   "blocked",
	Completed: "completed",
}

func (l LifecycleState) String() string {
	if name, ok := lifecycleNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LifecycleState(%d)", int(l))
}

// IsTerminal reports whether no further transition can leave l.
func (l LifecycleState) IsTerminal() bool {
	return l == Blocked || l == Completed
}

// ParseLifecycleState is the inverse of String.
func ParseLifecycleState(s string) (LifecycleState, error) {
	for state, name := range lifecycleNames {
		if name == s {
			return state, nil
		}
	}
	return Active, fmt.Errorf("unknown lifecycle state %q", s)
}

func (l LifecycleState) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LifecycleState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLifecycleState(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// TodayStatus classifies the as-of day for a participant.
type TodayStatus int

const (
	NotApplicable TodayStatus = iota
	Pending
	Done
)

var todayNames = map[TodayStatus]string{
	NotApplicable: "not_applicable",
	Pending:       "pending",
	Done:          "done",
}

func (s TodayStatus) String() string {
	if name, ok := todayNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TodayStatus(%d)", int(s))
}

// ParseTodayStatus is the inverse of String.
func ParseTodayStatus(s string) (TodayStatus, error) {
	for status, name := range todayNames {
		if name == s {
			return status, nil
		}
	}
	return NotApplicable, fmt.Errorf("unknown today status %q", s)
}

func (s TodayStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TodayStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseTodayStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Today is the transient snapshot of the as-of day. It is recomputed on every read.
type Today struct {
	Date     calendar.Date `json:"date"`
	DueToday bool          `json:"dueToday"`
	Status   TodayStatus   `json:"status"`
}

// ParticipantStats is the derived per challenge and participant record.
type ParticipantStats struct {
	ChallengeID    string         `json:"challengeId"`
	ParticipantID  string         `json:"participantId"`
	ConfirmedCount int            `json:"confirmedCount"`
	FailCount      int            `json:"failCount"`
	Streak         int            `json:"streak"`
	NegativeStreak int            `json:"negativeStreak"`
	LifecycleState LifecycleState `json:"lifecycleState"`

	// LastEvaluatedDate is the watermark: days before it have been evaluated.
	LastEvaluatedDate *calendar.Date `json:"lastEvaluatedDate,omitempty"`
	// LastCountedDate is the latest day whose counters were applied. It survives re-initialization.
	LastCountedDate *calendar.Date `json:"lastCountedDate,omitempty"`

	Today     Today     `json:"today"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (s *ParticipantStats) Clone() *ParticipantStats {
	if s == nil {
		return nil
	}
	out := *s
	if s.LastEvaluatedDate != nil {
		d := *s.LastEvaluatedDate
		out.LastEvaluatedDate = &d
	}
	if s.LastCountedDate != nil {
		d := *s.LastCountedDate
		out.LastCountedDate = &d
	}
	return &out
}

// ChallengeStats is the read model returned for a whole challenge.
type ChallengeStats struct {
	ChallengeID     string                       `json:"challengeId"`
	StartDate       calendar.Date                `json:"startDate"`
	EndDate         *calendar.Date               `json:"endDate,omitempty"`
	DurationDays    *int                         `json:"durationDays,omitempty"`
	AllowedFailures *int                         `json:"allowedFailures,omitempty"`
	DueWeekdays     calendar.WeekdaySet          `json:"dueWeekdays"`
	Today           TodayStatus                  `json:"today"`
	PerParticipant  map[string]*ParticipantStats `json:"perParticipant"`
}

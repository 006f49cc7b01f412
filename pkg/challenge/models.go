// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/schedule"
	"github.com/google/uuid"
)

// Challenge holds the schedule metadata the engine reads.
// StartDate is derived once at creation and never recomputed from StartAt.
type Challenge struct {
	ID                   string              `json:"id"`
	OwnerID              string              `json:"ownerId"`
	Name                 string              `json:"name"`
	Description          string              `json:"description,omitempty"`
	StartAt              int64               `json:"startAt"`
	StartTZOffsetMinutes int                 `json:"startTzOffsetMinutes"`
	StartDate            *calendar.Date      `json:"startDate"`
	DueWeekdays          calendar.WeekdaySet `json:"dueWeekdays"`
	DurationDays         *int                `json:"durationDays,omitempty"`
	AllowedFailures      *int                `json:"allowedFailures,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// NewChallengeInput is what a caller supplies to create a challenge.
type NewChallengeInput struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	StartAt         int64
	TZOffsetMinutes int
	DueWeekdays     calendar.WeekdaySet
	DurationDays    *int
	AllowedFailures *int
}

// New validates the input and derives the start date from StartAt in the creator's timezone.
func New(in NewChallengeInput, now time.Time) (*Challenge, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: ownerId is required", ErrInvalidChallenge)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidChallenge)
	}
	if err := calendar.ValidateOffset(in.TZOffsetMinutes); err != nil {
		return nil, err
	}

	startAt := in.StartAt
	if startAt == 0 {
		startAt = now.Unix()
	}
	startDate, err := calendar.LocalDate(startAt, in.TZOffsetMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: startAt: %v", ErrInvalidSchedule, err)
	}

	if in.AllowedFailures != nil && *in.AllowedFailures < 0 {
		return nil, fmt.Errorf("%w: allowedFailures must not be negative", ErrInvalidSchedule)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	c := &Challenge{
		ID:                   id,
		OwnerID:              in.OwnerID,
		Name:                 in.Name,
		Description:          in.Description,
		StartAt:              startAt,
		StartTZOffsetMinutes: in.TZOffsetMinutes,
		StartDate:            &startDate,
		DueWeekdays:          in.DueWeekdays,
		DurationDays:         in.DurationDays,
		AllowedFailures:      in.AllowedFailures,
		CreatedAt:            now.UTC(),
	}
	if c.DueWeekdays == nil {
		c.DueWeekdays = calendar.WeekdaySet{}
	}
	if _, err := c.Schedule(); err != nil {
		return nil, err
	}
	return c, nil
}

// Schedule returns the validated schedule, refusing to guess a missing start date.
func (c *Challenge) Schedule() (schedule.Schedule, error) {
	if c.StartDate == nil {
		return schedule.Schedule{}, fmt.Errorf("%w: challenge %s has no start date", ErrInvalidSchedule, c.ID)
	}
	s := schedule.Schedule{
		StartDate:    *c.StartDate,
		DurationDays: c.DurationDays,
		DueWeekdays:  c.DueWeekdays,
	}
	if err := s.Validate(); err != nil {
		return schedule.Schedule{}, fmt.Errorf("challenge %s: %w", c.ID, err)
	}
	if c.AllowedFailures != nil && *c.AllowedFailures < 0 {
		return schedule.Schedule{}, fmt.Errorf("%w: challenge %s has negative allowedFailures", ErrInvalidSchedule, c.ID)
	}
	return s, nil
}

// Evidence is opaque metadata attached to a confirmation.
type Evidence struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Confirmation is an immutable entry in a challenge's confirmation log.
type Confirmation struct {
	ID            string    `json:"id"`
	ChallengeID   string    `json:"challengeId"`
	ParticipantID string    `json:"participantId"`
	Timestamp     int64     `json:"timestamp"`
	Evidence      *Evidence `json:"evidence,omitempty"`
}

// NewConfirmation builds a log entry, defaulting the timestamp to now.
func NewConfirmation(challengeID, participantID string, timestamp int64, evidence *Evidence, now time.Time) (*Confirmation, error) {
	if timestamp == 0 {
		timestamp = now.Unix()
	}
	if _, err := calendar.NormalizeTimestamp(timestamp); err != nil {
		return nil, err
	}
	return &Confirmation{
		ID:            uuid.NewString(),
		ChallengeID:   challengeID,
		ParticipantID: participantID,
		Timestamp:     timestamp,
		Evidence:      evidence,
	}, nil
}

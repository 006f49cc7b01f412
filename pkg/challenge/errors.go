// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"errors"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/schedule"
)

var (
	// ErrChallengeNotFound is returned when a challenge id has no metadata.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrInvalidSchedule is returned for missing or malformed schedule metadata.
	ErrInvalidSchedule = schedule.ErrInvalidSchedule
	// ErrInvalidTimestamp is returned for timestamps outside the accepted range.
	ErrInvalidTimestamp = calendar.ErrInvalidTimestamp
	// ErrInvalidTimezoneOffset is returned for offsets outside UTC-12:00..UTC+14:00.
	ErrInvalidTimezoneOffset = calendar.ErrInvalidOffset
	// ErrNotMember is returned when a user acts on a challenge they do not belong to.
	ErrNotMember = errors.New("user is not a member of the challenge")
	// ErrInvalidChallenge is returned when a create request is incomplete.
	ErrInvalidChallenge = errors.New("invalid challenge")
)

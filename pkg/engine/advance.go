// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/schedule"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/sirupsen/logrus"
)

// Rules is the challenge metadata Advance needs.
type Rules struct {
	Schedule        schedule.Schedule
	AllowedFailures *int
}

// DaySet holds the local days on which a participant has at least one confirmation.
type DaySet map[calendar.Date]bool

// Outcome reports what a single Advance did.
type Outcome struct {
	// Evaluated is false when the watermark guard or a terminal state skipped counter mutation.
	Evaluated bool
	Confirmed int
	Missed    int
	// Transition holds the new lifecycle state when one was entered.
	Transition *stats.LifecycleState
}

// Advance moves s to asOf and refreshes its today snapshot.
//
// Counters only move for an Active participant whose watermark is not already asOf.
// Every elapsed day from the watermark (or asOf-1 when unset) up to asOf-1 is evaluated
// in order. Days at or before LastCountedDate are never counted again. Evaluation stops
// as soon as the participant leaves Active.
func Advance(s *stats.ParticipantStats, rules Rules, confirmed DaySet, asOf calendar.Date) Outcome {
	var out Outcome
	defer Snapshot(s, rules.Schedule, confirmed, asOf)

	if s.LifecycleState != stats.Active {
		return out
	}
	if s.LastEvaluatedDate != nil && !s.LastEvaluatedDate.Before(asOf) {
		// Already advanced for asOf, or asked about an earlier day.
		return out
	}

	out.Evaluated = true
	yesterday := asOf.Prev()
	from := yesterday
	if s.LastEvaluatedDate != nil {
		from = *s.LastEvaluatedDate
	}

	for d := from; !d.After(yesterday); d = d.AddDays(1) {
		if s.LastCountedDate != nil && !d.After(*s.LastCountedDate) {
			continue
		}
		if !rules.Schedule.IsDueDay(d) {
			continue
		}

		day := d
		hit := confirmed[day]
		stats.ApplyDay(s, hit)
		s.LastCountedDate = &day
		if hit {
			out.Confirmed++
		} else {
			out.Missed++
		}
		logrus.Debugf("challenge %s participant %s day %s confirmed=%v", s.ChallengeID, s.ParticipantID, day, hit)

		if stats.CheckTransition(s, rules.AllowedFailures, rules.Schedule.DurationDays) {
			state := s.LifecycleState
			out.Transition = &state
			break
		}
	}

	if out.Transition == nil && stats.CheckTransition(s, rules.AllowedFailures, rules.Schedule.DurationDays) {
		state := s.LifecycleState
		out.Transition = &state
	}

	watermark := asOf
	s.LastEvaluatedDate = &watermark
	return out
}

// Snapshot recomputes the transient today view for asOf. It never touches counters.
func Snapshot(s *stats.ParticipantStats, sched schedule.Schedule, confirmed DaySet, asOf calendar.Date) {
	due, status := stats.ComputeToday(sched.IsDueDay(asOf), confirmed[asOf])
	s.Today = stats.Today{Date: asOf, DueToday: due, Status: status}
}

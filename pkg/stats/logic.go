// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package stats

import (
	"github.com/sirupsen/logrus"
)

// New creates the record a participant gets on join: Active with zeroed counters.
func New(challengeID, participantID string) *ParticipantStats {
	return &ParticipantStats{
		ChallengeID:    challengeID,
		ParticipantID:  participantID,
		LifecycleState: Active,
	}
}

// Resume re-activates a participant and clears the watermark while keeping counters,
// so the next recompute evaluates the prior day again.
func Resume(s *ParticipantStats) {
	if s.LifecycleState != Active {
		logrus.Infof("resuming participant %s in challenge %s from %s",
			s.ParticipantID, s.ChallengeID, s.LifecycleState)
	}
	s.LifecycleState = Active
	s.LastEvaluatedDate = nil
}

// ApplyDay advances counters for one elapsed due day.
func ApplyDay(s *ParticipantStats, confirmed bool) {
	if confirmed {
		s.ConfirmedCount++
		s.Streak++
		s.NegativeStreak = 0
		return
	}
	s.FailCount++
	s.Streak = 0
	s.NegativeStreak++
}

// CheckTransition moves an Active participant to Blocked or Completed.
// Blocked wins when both thresholds are met. Returns true if the state changed.
func CheckTransition(s *ParticipantStats, allowedFailures, durationDays *int) bool {
	if s.LifecycleState != Active {
		return false
	}

	if allowedFailures != nil && s.FailCount >= *allowedFailures {
		s.LifecycleState = Blocked
		logrus.Infof("participant %s blocked in challenge %s: failCount=%d allowed=%d",
			s.ParticipantID, s.ChallengeID, s.FailCount, *allowedFailures)
		return true
	}

	if durationDays != nil && s.ConfirmedCount >= *durationDays {
		s.LifecycleState = Completed
		logrus.Infof("participant %s completed challenge %s: confirmedCount=%d duration=%d",
			s.ParticipantID, s.ChallengeID, s.ConfirmedCount, *durationDays)
		return true
	}

	return false
}

// ComputeToday classifies the as-of day.
func ComputeToday(due, confirmed bool) (bool, TodayStatus) {
	switch {
	case !due:
		return false, NotApplicable
	case confirmed:
		return true, Done
	default:
		return true, Pending
	}
}

// Aggregate summarises a challenge's today status: Pending if any Active participant
// is pending, else Done if anyone is done, else NotApplicable.
func Aggregate(participants []*ParticipantStats) TodayStatus {
	anyDone := false
	for _, p := range participants {
		if p == nil {
			continue
		}
		if p.LifecycleState == Active && p.Today.Status == Pending {
			return Pending
		}
		if p.Today.Status == Done {
			anyDone = true
		}
	}
	if anyDone {
		return Done
	}
	return NotApplicable
}

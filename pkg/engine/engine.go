// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/common"
	"github.com/AccelByte/extend-habit-challenge/pkg/metrics"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/sirupsen/logrus"
)

const (
	opInit      = "init"
	opRecompute = "recompute"
)

// Engine turns a challenge's confirmation log and schedule into participant stats.
// It has no goroutines of its own; callers drive it per request or from a batch.
type Engine struct {
	challenges    service.ChallengeStore
	confirmations service.ConfirmationLog
	stats         service.StatsStore
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over the given stores.
func New(challenges service.ChallengeStore, confirmations service.ConfirmationLog, statsStore service.StatsStore, opts ...Option) *Engine {
	e := &Engine{
		challenges:    challenges,
		confirmations: confirmations,
		stats:         statsStore,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the caller's local date for tzOffsetMinutes.
func (e *Engine) Today(tzOffsetMinutes int) (calendar.Date, error) {
	if err := calendar.ValidateOffset(tzOffsetMinutes); err != nil {
		return 0, err
	}
	return calendar.Today(e.now(), tzOffsetMinutes), nil
}

// InitParticipant creates or resumes a participant: Active, counters kept, watermark cleared,
// today snapshot computed.
func (e *Engine) InitParticipant(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error) {
	scope := common.StartScope(ctx, "Engine.InitParticipant").Participant(challengeID, participantID)
	defer scope.Finish()

	start := time.Now()
	result, err := e.initParticipant(scope.Ctx, challengeID, participantID, tzOffsetMinutes)
	observe(opInit, start, err)
	if err != nil {
		scope.TraceError(err)
		return nil, err
	}

	scope.Log.Debug("initialized participant")
	return result, nil
}

func (e *Engine) initParticipant(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error) {
	asOf, err := e.Today(tzOffsetMinutes)
	if err != nil {
		return nil, err
	}
	rules, err := e.loadRules(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	days, err := e.confirmedDays(ctx, challengeID, participantID, tzOffsetMinutes)
	if err != nil {
		return nil, err
	}

	return e.stats.UpdateStats(ctx, challengeID, participantID, func(current *stats.ParticipantStats) (*stats.ParticipantStats, error) {
		s := current
		if s == nil {
			s = stats.New(challengeID, participantID)
		} else {
			stats.Resume(s)
		}
		Snapshot(s, rules.Schedule, days, asOf)
		s.UpdatedAt = e.now().UTC()
		return s, nil
	})
}

// Recompute advances a participant's counters to the caller's local today.
// Calling it again on the same local date changes nothing but the today snapshot.
func (e *Engine) Recompute(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error) {
	scope := common.StartScope(ctx, "Engine.Recompute").Participant(challengeID, participantID)
	defer scope.Finish()

	start := time.Now()
	result, err := e.recompute(scope, challengeID, participantID, tzOffsetMinutes)
	observe(opRecompute, start, err)
	if err != nil {
		scope.TraceError(err)
		return nil, err
	}
	return result, nil
}

func (e *Engine) recompute(scope *common.Scope, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error) {
	ctx := scope.Ctx
	asOf, err := e.Today(tzOffsetMinutes)
	if err != nil {
		return nil, err
	}
	rules, err := e.loadRules(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	days, err := e.confirmedDays(ctx, challengeID, participantID, tzOffsetMinutes)
	if err != nil {
		return nil, err
	}

	var outcome Outcome
	result, err := e.stats.UpdateStats(ctx, challengeID, participantID, func(current *stats.ParticipantStats) (*stats.ParticipantStats, error) {
		s := current
		if s == nil {
			s = stats.New(challengeID, participantID)
		}
		// fn may run more than once under optimistic stores; keep only the last outcome.
		outcome = Advance(s, rules, days, asOf)
		s.UpdatedAt = e.now().UTC()
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DaysEvaluatedTotal.WithLabelValues("confirmed").Add(float64(outcome.Confirmed))
	metrics.DaysEvaluatedTotal.WithLabelValues("missed").Add(float64(outcome.Missed))
	if outcome.Transition != nil {
		metrics.TransitionsTotal.WithLabelValues(outcome.Transition.String()).Inc()
		scope.TraceTransition(stats.Active.String(), outcome.Transition.String(), asOf.String())
	}
	if outcome.Evaluated {
		scope.Log.Debugf("recomputed as of %s: confirmed=%d missed=%d", asOf, outcome.Confirmed, outcome.Missed)
	}
	return result, nil
}

// RecomputeAll recomputes every current member of a challenge.
func (e *Engine) RecomputeAll(ctx context.Context, challengeID string, tzOffsetMinutes int) (map[string]*stats.ParticipantStats, error) {
	return e.forEachMember(ctx, "Engine.RecomputeAll", challengeID, func(ctx context.Context, uid string) (*stats.ParticipantStats, error) {
		return e.Recompute(ctx, challengeID, uid, tzOffsetMinutes)
	})
}

// InitChallenge initializes every current member of a challenge.
func (e *Engine) InitChallenge(ctx context.Context, challengeID string, tzOffsetMinutes int) (map[string]*stats.ParticipantStats, error) {
	return e.forEachMember(ctx, "Engine.InitChallenge", challengeID, func(ctx context.Context, uid string) (*stats.ParticipantStats, error) {
		return e.InitParticipant(ctx, challengeID, uid, tzOffsetMinutes)
	})
}

func (e *Engine) forEachMember(
	ctx context.Context,
	name string,
	challengeID string,
	fn func(ctx context.Context, uid string) (*stats.ParticipantStats, error),
) (map[string]*stats.ParticipantStats, error) {
	scope := common.StartScope(ctx, name).Challenge(challengeID)
	defer scope.Finish()

	if _, err := e.loadRules(scope.Ctx, challengeID); err != nil {
		scope.TraceError(err)
		return nil, err
	}
	members, err := e.challenges.ListMembers(scope.Ctx, challengeID)
	if err != nil {
		scope.TraceError(err)
		return nil, fmt.Errorf("failed to list members of %s: %w", challengeID, err)
	}

	out := make(map[string]*stats.ParticipantStats, len(members))
	for _, uid := range members {
		s, err := fn(scope.Ctx, uid)
		if err != nil {
			scope.TraceError(err)
			return nil, fmt.Errorf("participant %s: %w", uid, err)
		}
		out[uid] = s
	}
	scope.SetCount("participants", len(members))
	return out, nil
}

// GetStats returns schedule metadata and stats for every current member.
// Today snapshots are refreshed for the caller's offset in the returned view only.
func (e *Engine) GetStats(ctx context.Context, challengeID string, tzOffsetMinutes int) (*stats.ChallengeStats, error) {
	scope := common.StartScope(ctx, "Engine.GetStats").Challenge(challengeID)
	defer scope.Finish()

	asOf, err := e.Today(tzOffsetMinutes)
	if err != nil {
		return nil, err
	}
	rules, err := e.loadRules(scope.Ctx, challengeID)
	if err != nil {
		scope.TraceError(err)
		return nil, err
	}
	members, err := e.challenges.ListMembers(scope.Ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", challengeID, err)
	}
	stored, err := e.stats.ListStats(scope.Ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats of %s: %w", challengeID, err)
	}
	entries, err := e.confirmations.ListConfirmations(scope.Ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmations of %s: %w", challengeID, err)
	}

	byUser := make(map[string]*stats.ParticipantStats, len(stored))
	for _, s := range stored {
		byUser[s.ParticipantID] = s
	}

	result := &stats.ChallengeStats{
		ChallengeID:     challengeID,
		StartDate:       rules.Schedule.StartDate,
		DurationDays:    rules.Schedule.DurationDays,
		AllowedFailures: rules.AllowedFailures,
		DueWeekdays:     rules.Schedule.DueWeekdays,
		PerParticipant:  make(map[string]*stats.ParticipantStats, len(members)),
	}
	if end, ok := rules.Schedule.EndDate(); ok {
		result.EndDate = &end
	}

	list := make([]*stats.ParticipantStats, 0, len(members))
	for _, uid := range members {
		s, ok := byUser[uid]
		if !ok {
			s = stats.New(challengeID, uid)
		}
		Snapshot(s, rules.Schedule, confirmedDaysFrom(entries, challengeID, uid, tzOffsetMinutes), asOf)
		result.PerParticipant[uid] = s
		list = append(list, s)
	}
	result.Today = stats.Aggregate(list)
	return result, nil
}

// BatchResult summarises a run over many challenges.
type BatchResult struct {
	Challenges   int               `json:"challenges"`
	Participants int               `json:"participants"`
	Failed       map[string]string `json:"failed,omitempty"`
}

// RecomputeEverything recomputes every challenge. A failing challenge is logged and skipped.
func (e *Engine) RecomputeEverything(ctx context.Context, tzOffsetMinutes int) (*BatchResult, error) {
	return e.batch(ctx, "Engine.RecomputeEverything", tzOffsetMinutes, false, func(ctx context.Context, cid string) (map[string]*stats.ParticipantStats, error) {
		return e.RecomputeAll(ctx, cid, tzOffsetMinutes)
	})
}

// InitAll initializes every challenge that has members.
func (e *Engine) InitAll(ctx context.Context, tzOffsetMinutes int) (*BatchResult, error) {
	return e.batch(ctx, "Engine.InitAll", tzOffsetMinutes, true, func(ctx context.Context, cid string) (map[string]*stats.ParticipantStats, error) {
		return e.InitChallenge(ctx, cid, tzOffsetMinutes)
	})
}

func (e *Engine) batch(
	ctx context.Context,
	name string,
	tzOffsetMinutes int,
	skipEmpty bool,
	fn func(ctx context.Context, cid string) (map[string]*stats.ParticipantStats, error),
) (*BatchResult, error) {
	scope := common.StartScope(ctx, name)
	defer scope.Finish()

	if err := calendar.ValidateOffset(tzOffsetMinutes); err != nil {
		return nil, err
	}
	ids, err := e.challenges.ListChallengeIDs(scope.Ctx)
	if err != nil {
		scope.TraceError(err)
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	result := &BatchResult{Failed: map[string]string{}}
	for _, cid := range ids {
		if err := scope.Ctx.Err(); err != nil {
			return result, err
		}
		if skipEmpty {
			members, err := e.challenges.ListMembers(scope.Ctx, cid)
			if err != nil {
				scope.Log.Warnf("skipping challenge %s: %v", cid, err)
				result.Failed[cid] = err.Error()
				continue
			}
			if len(members) == 0 {
				continue
			}
		}

		updated, err := fn(scope.Ctx, cid)
		if err != nil {
			scope.Log.Warnf("skipping challenge %s: %v", cid, err)
			result.Failed[cid] = err.Error()
			continue
		}
		result.Challenges++
		result.Participants += len(updated)
	}

	scope.Log.Infof("%s finished: challenges=%d participants=%d failed=%d",
		name, result.Challenges, result.Participants, len(result.Failed))
	return result, nil
}

func (e *Engine) loadRules(ctx context.Context, challengeID string) (Rules, error) {
	c, err := e.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return Rules{}, err
	}
	sched, err := c.Schedule()
	if err != nil {
		return Rules{}, err
	}
	return Rules{Schedule: sched, AllowedFailures: c.AllowedFailures}, nil
}

func (e *Engine) confirmedDays(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (DaySet, error) {
	entries, err := e.confirmations.ListConfirmations(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmations of %s: %w", challengeID, err)
	}
	return confirmedDaysFrom(entries, challengeID, participantID, tzOffsetMinutes), nil
}

// confirmedDaysFrom maps a participant's log entries to local days.
// Entries with unusable timestamps count as no confirmation.
func confirmedDaysFrom(entries []*challenge.Confirmation, challengeID, participantID string, tzOffsetMinutes int) DaySet {
	days := make(DaySet)
	for _, entry := range entries {
		if entry == nil || entry.ParticipantID != participantID {
			continue
		}
		d, err := calendar.LocalDate(entry.Timestamp, tzOffsetMinutes)
		if err != nil {
			logrus.Warnf("skipping confirmation %s of %s in challenge %s: %v",
				entry.ID, participantID, challengeID, err)
			metrics.SkippedConfirmationsTotal.WithLabelValues("timestamp").Inc()
			continue
		}
		days[d] = true
	}
	return days
}

func observe(operation string, start time.Time, err error) {
	metrics.RecomputeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, challenge.ErrChallengeNotFound):
		outcome = "not_found"
	case errors.Is(err, challenge.ErrInvalidSchedule):
		outcome = "invalid_schedule"
	default:
		outcome = "error"
	}
	metrics.RecomputeTotal.WithLabelValues(operation, outcome).Inc()
}

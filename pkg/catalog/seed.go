// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/sirupsen/logrus"
)

// Initializer starts stats for a new member.
type Initializer interface {
	InitParticipant(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error)
}

// SeedResult counts what Seed changed.
type SeedResult struct {
	Created     int
	Existing    int
	Initialized int
}

// Seed creates missing challenges, adds members and initializes members that have no stats yet.
// Existing challenges are never overwritten, so their derived start date stays fixed.
func Seed(
	ctx context.Context,
	cfg *Config,
	challenges service.ChallengeStore,
	statsStore service.StatsStore,
	init Initializer,
	now time.Time,
) (*SeedResult, error) {
	result := &SeedResult{}

	for _, entry := range cfg.Challenges {
		_, err := challenges.GetChallenge(ctx, entry.ID)
		switch {
		case err == nil:
			result.Existing++
		case errors.Is(err, challenge.ErrChallengeNotFound):
			if err := create(ctx, challenges, entry, now); err != nil {
				return result, err
			}
			result.Created++
		default:
			return result, fmt.Errorf("failed to look up challenge %s: %w", entry.ID, err)
		}

		for _, member := range entry.Members {
			if err := challenges.AddMember(ctx, entry.ID, member); err != nil {
				return result, fmt.Errorf("failed to add %s to %s: %w", member, entry.ID, err)
			}

			_, err := statsStore.GetStats(ctx, entry.ID, member)
			if err == nil {
				continue
			}
			if !errors.Is(err, service.ErrStatsNotFound) {
				return result, fmt.Errorf("failed to read stats of %s in %s: %w", member, entry.ID, err)
			}
			if _, err := init.InitParticipant(ctx, entry.ID, member, entry.TZOffsetMinutes); err != nil {
				return result, fmt.Errorf("failed to init %s in %s: %w", member, entry.ID, err)
			}
			result.Initialized++
		}
	}

	logrus.Infof("catalog seeded: created=%d existing=%d initialized=%d",
		result.Created, result.Existing, result.Initialized)
	return result, nil
}

func create(ctx context.Context, challenges service.ChallengeStore, entry ChallengeConfig, now time.Time) error {
	startAt, err := entry.ResolveStartAt()
	if err != nil {
		return fmt.Errorf("challenge %s: %w", entry.ID, err)
	}

	name := entry.Name
	if name == "" {
		name = entry.ID
	}

	c, err := challenge.New(challenge.NewChallengeInput{
		ID:              entry.ID,
		OwnerID:         entry.OwnerID,
		Name:            name,
		Description:     entry.Description,
		StartAt:         startAt,
		TZOffsetMinutes: entry.TZOffsetMinutes,
		DueWeekdays:     entry.DueWeekdays,
		DurationDays:    entry.DurationDays,
		AllowedFailures: entry.AllowedFailures,
	}, now)
	if err != nil {
		return fmt.Errorf("challenge %s: %w", entry.ID, err)
	}

	if err := challenges.SaveChallenge(ctx, c); err != nil {
		return err
	}
	logrus.Infof("created challenge %s starting %s", c.ID, c.StartDate)
	return nil
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
)

// Store interfaces the engine and the HTTP layer depend on.
// Every backend (memory, Redis, Postgres) implements all three.

var ErrStatsNotFound = errors.New("participant stats not found")

// ChallengeStore owns challenge metadata and membership.
type ChallengeStore interface {
	// GetChallenge returns challenge.ErrChallengeNotFound for unknown ids.
	GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error)
	SaveChallenge(ctx context.Context, c *challenge.Challenge) error
	ListChallengeIDs(ctx context.Context) ([]string, error)

	AddMember(ctx context.Context, challengeID, userID string) error
	RemoveMember(ctx context.Context, challengeID, userID string) error
	ListMembers(ctx context.Context, challengeID string) ([]string, error)
	IsMember(ctx context.Context, challengeID, userID string) (bool, error)
}

// ConfirmationLog is the append-only per-challenge log of confirmation events.
type ConfirmationLog interface {
	AppendConfirmation(ctx context.Context, c *challenge.Confirmation) error
	// ListConfirmations returns entries in append order. Undecodable entries are skipped.
	ListConfirmations(ctx context.Context, challengeID string) ([]*challenge.Confirmation, error)
}

// UpdateStatsFunc computes the next record from the current one (nil when none exists).
// Returning an error aborts the update without writing.
type UpdateStatsFunc func(current *stats.ParticipantStats) (*stats.ParticipantStats, error)

// StatsStore holds derived participant stats.
type StatsStore interface {
	// GetStats returns ErrStatsNotFound when no record exists.
	GetStats(ctx context.Context, challengeID, participantID string) (*stats.ParticipantStats, error)
	ListStats(ctx context.Context, challengeID string) ([]*stats.ParticipantStats, error)
	// UpdateStats runs fn as an atomic read-modify-write for one (challenge, participant) key.
	UpdateStats(ctx context.Context, challengeID, participantID string, fn UpdateStatsFunc) (*stats.ParticipantStats, error)
}

// Store bundles the three stores a backend provides.
type Store interface {
	ChallengeStore
	ConfirmationLog
	StatsStore
	Ping(ctx context.Context) error
	Close() error
}

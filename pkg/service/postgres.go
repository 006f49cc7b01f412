// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/metrics"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS challenges (
	id                      TEXT PRIMARY KEY,
	owner_id                TEXT NOT NULL,
	name                    TEXT NOT NULL,
	description             TEXT NOT NULL DEFAULT '',
	start_at                BIGINT NOT NULL,
	start_tz_offset_minutes INTEGER NOT NULL DEFAULT 0,
	start_date              DATE,
	due_weekdays            INTEGER[] NOT NULL DEFAULT '{}',
	duration_days           INTEGER,
	allowed_failures        INTEGER,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS challenge_members (
	challenge_id TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	user_id      TEXT NOT NULL,
	joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (challenge_id, user_id)
);

CREATE TABLE IF NOT EXISTS challenge_confirmations (
	seq            BIGSERIAL PRIMARY KEY,
	id             TEXT NOT NULL UNIQUE,
	challenge_id   TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	ts             BIGINT NOT NULL,
	evidence       JSONB
);

CREATE INDEX IF NOT EXISTS idx_challenge_confirmations_challenge
	ON challenge_confirmations (challenge_id, seq);

CREATE TABLE IF NOT EXISTS participant_stats (
	challenge_id   TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	data           JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (challenge_id, participant_id)
);
`

// PostgresStore implements Store on PostgreSQL through a pgx pool.
// Stats updates lock the participant row with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresPool opens and pings a pool with the service's pool limits.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	var (
		c         challenge.Challenge
		startDate *time.Time
		weekdays  []int32
	)
	err := p.db.QueryRow(ctx, `
		SELECT id, owner_id, name, description, start_at, start_tz_offset_minutes,
		       start_date, due_weekdays, duration_days, allowed_failures, created_at
		FROM challenges WHERE id = $1`, challengeID).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.StartAt, &c.StartTZOffsetMinutes,
		&startDate, &weekdays, &c.DurationDays, &c.AllowedFailures, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", challenge.ErrChallengeNotFound, challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if startDate != nil {
		d := calendar.FromTime(startDate.UTC())
		c.StartDate = &d
	}
	c.DueWeekdays = make(calendar.WeekdaySet, 0, len(weekdays))
	for _, w := range weekdays {
		c.DueWeekdays = append(c.DueWeekdays, int(w))
	}
	return &c, nil
}

func (p *PostgresStore) SaveChallenge(ctx context.Context, c *challenge.Challenge) error {
	var startDate *time.Time
	if c.StartDate != nil {
		t := c.StartDate.Time()
		startDate = &t
	}
	weekdays := make([]int32, 0, len(c.DueWeekdays))
	for _, w := range c.DueWeekdays {
		weekdays = append(weekdays, int32(w))
	}

	_, err := p.db.Exec(ctx, `
		INSERT INTO challenges (id, owner_id, name, description, start_at, start_tz_offset_minutes,
		                        start_date, due_weekdays, duration_days, allowed_failures, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			due_weekdays = EXCLUDED.due_weekdays,
			duration_days = EXCLUDED.duration_days,
			allowed_failures = EXCLUDED.allowed_failures`,
		c.ID, c.OwnerID, c.Name, c.Description, c.StartAt, c.StartTZOffsetMinutes,
		startDate, weekdays, c.DurationDays, c.AllowedFailures, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListChallengeIDs(ctx context.Context) ([]string, error) {
	return p.queryStrings(ctx, `SELECT id FROM challenges ORDER BY id`)
}

func (p *PostgresStore) AddMember(ctx context.Context, challengeID, userID string) error {
	tag, err := p.db.Exec(ctx, `
		INSERT INTO challenge_members (challenge_id, user_id)
		SELECT id, $2 FROM challenges WHERE id = $1
		ON CONFLICT DO NOTHING`, challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already a member or the challenge does not exist.
		if _, err := p.GetChallenge(ctx, challengeID); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) RemoveMember(ctx context.Context, challengeID, userID string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM challenge_members WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListMembers(ctx context.Context, challengeID string) ([]string, error) {
	return p.queryStrings(ctx, `SELECT user_id FROM challenge_members WHERE challenge_id = $1 ORDER BY user_id`, challengeID)
}

func (p *PostgresStore) IsMember(ctx context.Context, challengeID, userID string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM challenge_members WHERE challenge_id = $1 AND user_id = $2)`,
		challengeID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (p *PostgresStore) AppendConfirmation(ctx context.Context, c *challenge.Confirmation) error {
	var evidence []byte
	if c.Evidence != nil {
		var err error
		if evidence, err = json.Marshal(c.Evidence); err != nil {
			return fmt.Errorf("failed to marshal evidence: %w", err)
		}
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO challenge_confirmations (id, challenge_id, participant_id, ts, evidence)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ChallengeID, c.ParticipantID, c.Timestamp, evidence)
	if err != nil {
		return fmt.Errorf("failed to append confirmation: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListConfirmations(ctx context.Context, challengeID string) ([]*challenge.Confirmation, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, challenge_id, participant_id, ts, evidence
		FROM challenge_confirmations WHERE challenge_id = $1 ORDER BY seq`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	defer rows.Close()

	var out []*challenge.Confirmation
	for rows.Next() {
		var (
			c        challenge.Confirmation
			evidence []byte
		)
		if err := rows.Scan(&c.ID, &c.ChallengeID, &c.ParticipantID, &c.Timestamp, &evidence); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		if len(evidence) > 0 {
			var e challenge.Evidence
			if err := json.Unmarshal(evidence, &e); err != nil {
				logrus.Warnf("ignoring undecodable evidence on confirmation %s: %v", c.ID, err)
				metrics.SkippedConfirmationsTotal.WithLabelValues("evidence").Inc()
			} else {
				c.Evidence = &e
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetStats(ctx context.Context, challengeID, participantID string) (*stats.ParticipantStats, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `
		SELECT data FROM participant_stats
		WHERE challenge_id = $1 AND participant_id = $2 AND data <> 'null'::jsonb`,
		challengeID, participantID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return decodeStats(data)
}

func (p *PostgresStore) ListStats(ctx context.Context, challengeID string) ([]*stats.ParticipantStats, error) {
	rows, err := p.db.Query(ctx, `
		SELECT data FROM participant_stats
		WHERE challenge_id = $1 AND data <> 'null'::jsonb
		ORDER BY participant_id`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	defer rows.Close()

	out := []*stats.ParticipantStats{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s, err := decodeStats(data)
		if err != nil {
			logrus.Errorf("skipping stats row in challenge %s: %v", challengeID, err)
			continue
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateStats locks the participant's row for the duration of fn.
// A placeholder row is inserted first so two writers creating the record also serialise.
func (p *PostgresStore) UpdateStats(ctx context.Context, challengeID, participantID string, fn UpdateStatsFunc) (*stats.ParticipantStats, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO participant_stats (challenge_id, participant_id, data)
		VALUES ($1, $2, 'null'::jsonb)
		ON CONFLICT DO NOTHING`, challengeID, participantID); err != nil {
		return nil, fmt.Errorf("failed to reserve stats row: %w", err)
	}

	var data []byte
	if err := tx.QueryRow(ctx, `
		SELECT data FROM participant_stats
		WHERE challenge_id = $1 AND participant_id = $2
		FOR UPDATE`, challengeID, participantID).Scan(&data); err != nil {
		return nil, fmt.Errorf("failed to lock stats: %w", err)
	}

	var current *stats.ParticipantStats
	if len(data) > 0 && string(data) != "null" {
		if current, err = decodeStats(data); err != nil {
			return nil, err
		}
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE participant_stats SET data = $3, updated_at = NOW()
		WHERE challenge_id = $1 AND participant_id = $2`,
		challengeID, participantID, encoded); err != nil {
		return nil, fmt.Errorf("failed to write stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stats: %w", err)
	}
	return next, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}

func (p *PostgresStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

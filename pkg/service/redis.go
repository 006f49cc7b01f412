// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/metrics"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// redisStoreDefaultKeyPrefix is the prefix for all habit challenge keys
	redisStoreDefaultKeyPrefix = "habit_challenge:"
	// redisStoreMaxConflictRetries bounds optimistic retries on a contended stats key
	redisStoreMaxConflictRetries = 10
)

// RedisStore implements Store on Redis.
//
// Layout:
//
//	{prefix}challenges                set of challenge ids
//	{prefix}challenge:{id}            challenge JSON
//	{prefix}members:{id}              set of member ids
//	{prefix}confirmations:{id}        list of confirmation JSON, append order
//	{prefix}stats:{id}:{userId}       participant stats JSON
//	{prefix}participants:{id}         set of user ids with a stats record
type RedisStore struct {
	client *redis.Client
	cfg    RedisStoreConfig
}

type RedisStoreConfig struct {
	KeyPrefix string
	// LeftStatsTTL expires the stats record of a participant once they leave the challenge.
	// Rejoining before expiry keeps the record. Zero keeps it forever.
	LeftStatsTTL time.Duration
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = redisStoreDefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		cfg:    cfg,
	}
}

func (r *RedisStore) key(parts ...string) string {
	k := r.cfg.KeyPrefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (r *RedisStore) GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	data, err := r.client.Get(ctx, r.key("challenge", challengeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", challenge.ErrChallengeNotFound, challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	var c challenge.Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		logrus.Errorf("failed to unmarshal challenge %s: %v", challengeID, err)
		return nil, fmt.Errorf("%w: challenge %s: %v", challenge.ErrInvalidSchedule, challengeID, err)
	}
	return &c, nil
}

func (r *RedisStore) SaveChallenge(ctx context.Context, c *challenge.Challenge) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key("challenge", c.ID), data, 0)
		pipe.SAdd(ctx, r.key("challenges"), c.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}

	logrus.Debugf("saved challenge %s", c.ID)
	return nil
}

func (r *RedisStore) ListChallengeIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key("challenges")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisStore) AddMember(ctx context.Context, challengeID, userID string) error {
	exists, err := r.client.Exists(ctx, r.key("challenge", challengeID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check challenge: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", challenge.ErrChallengeNotFound, challengeID)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.key("members", challengeID), userID)
		pipe.Persist(ctx, r.key("stats", challengeID, userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *RedisStore) RemoveMember(ctx context.Context, challengeID, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, r.key("members", challengeID), userID)
		if r.cfg.LeftStatsTTL > 0 {
			pipe.Expire(ctx, r.key("stats", challengeID, userID), r.cfg.LeftStatsTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (r *RedisStore) ListMembers(ctx context.Context, challengeID string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key("members", challengeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

func (r *RedisStore) IsMember(ctx context.Context, challengeID, userID string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key("members", challengeID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) AppendConfirmation(ctx context.Context, c *challenge.Confirmation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}
	if err := r.client.RPush(ctx, r.key("confirmations", c.ChallengeID), data).Err(); err != nil {
		return fmt.Errorf("failed to append confirmation: %w", err)
	}
	return nil
}

func (r *RedisStore) ListConfirmations(ctx context.Context, challengeID string) ([]*challenge.Confirmation, error) {
	raw, err := r.client.LRange(ctx, r.key("confirmations", challengeID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}

	out := make([]*challenge.Confirmation, 0, len(raw))
	for i, entry := range raw {
		var c challenge.Confirmation
		if err := json.Unmarshal([]byte(entry), &c); err != nil {
			// Skip invalid entries
			logrus.Warnf("skipping undecodable confirmation %d in challenge %s: %v", i, challengeID, err)
			metrics.SkippedConfirmationsTotal.WithLabelValues("decode").Inc()
			continue
		}
		out = append(out, &c)
	}
	return out, nil
}

func (r *RedisStore) GetStats(ctx context.Context, challengeID, participantID string) (*stats.ParticipantStats, error) {
	data, err := r.client.Get(ctx, r.key("stats", challengeID, participantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStatsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return decodeStats(data)
}

func (r *RedisStore) ListStats(ctx context.Context, challengeID string) ([]*stats.ParticipantStats, error) {
	ids, err := r.client.SMembers(ctx, r.key("participants", challengeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if len(ids) == 0 {
		return []*stats.ParticipantStats{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key("stats", challengeID, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	out := make([]*stats.ParticipantStats, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// expired or removed since SMEMBERS
			continue
		}
		s, err := decodeStats([]byte(str))
		if err != nil {
			logrus.Errorf("skipping stats of %s in challenge %s: %v", ids[i], challengeID, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateStats performs a WATCH/MULTI compare-and-swap on the participant's stats key,
// retrying with backoff when a concurrent writer wins.
func (r *RedisStore) UpdateStats(ctx context.Context, challengeID, participantID string, fn UpdateStatsFunc) (*stats.ParticipantStats, error) {
	key := r.key("stats", challengeID, participantID)
	var result *stats.ParticipantStats

	txf := func(tx *redis.Tx) error {
		var current *stats.ParticipantStats
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to get stats: %w", err)
		default:
			if current, err = decodeStats(data); err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			pipe.SAdd(ctx, r.key("participants", challengeID), participantID)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(conflictBackOff(), redisStoreMaxConflictRetries),
		ctx,
	)
	err := backoff.Retry(func() error {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			logrus.Debugf("stats write conflict on %s, retrying", key)
			metrics.StoreConflictsTotal.WithLabelValues("redis").Inc()
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, b)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("updated stats for user %s in challenge %s", participantID, challengeID)
	return result, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func conflictBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

func decodeStats(data []byte) (*stats.ParticipantStats, error) {
	var s stats.ParticipantStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &s, nil
}

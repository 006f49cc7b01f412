// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
)

// MemoryStore is an in-process Store for tests and local runs.
// A per-key mutex serialises stats updates, so different participants proceed in parallel.
type MemoryStore struct {
	mu            sync.RWMutex
	challenges    map[string]*challenge.Challenge
	members       map[string]map[string]bool
	confirmations map[string][]*challenge.Confirmation
	stats         map[string]map[string]*stats.ParticipantStats

	keyLocks sync.Map
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges:    make(map[string]*challenge.Challenge),
		members:       make(map[string]map[string]bool),
		confirmations: make(map[string][]*challenge.Confirmation),
		stats:         make(map[string]map[string]*stats.ParticipantStats),
	}
}

func (m *MemoryStore) GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.challenges[challengeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", challenge.ErrChallengeNotFound, challengeID)
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) SaveChallenge(ctx context.Context, c *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *c
	m.challenges[c.ID] = &stored
	return nil
}

func (m *MemoryStore) ListChallengeIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.challenges))
	for id := range m.challenges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) AddMember(ctx context.Context, challengeID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.challenges[challengeID]; !ok {
		return fmt.Errorf("%w: %s", challenge.ErrChallengeNotFound, challengeID)
	}
	if m.members[challengeID] == nil {
		m.members[challengeID] = make(map[string]bool)
	}
	m.members[challengeID][userID] = true
	return nil
}

func (m *MemoryStore) RemoveMember(ctx context.Context, challengeID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.members[challengeID], userID)
	return nil
}

func (m *MemoryStore) ListMembers(ctx context.Context, challengeID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.members[challengeID]))
	for uid := range m.members[challengeID] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) IsMember(ctx context.Context, challengeID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.members[challengeID][userID], nil
}

func (m *MemoryStore) AppendConfirmation(ctx context.Context, c *challenge.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *c
	m.confirmations[c.ChallengeID] = append(m.confirmations[c.ChallengeID], &stored)
	return nil
}

func (m *MemoryStore) ListConfirmations(ctx context.Context, challengeID string) ([]*challenge.Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.confirmations[challengeID]
	out := make([]*challenge.Confirmation, 0, len(entries))
	for _, e := range entries {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryStore) GetStats(ctx context.Context, challengeID, participantID string) (*stats.ParticipantStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[challengeID][participantID]
	if !ok {
		return nil, ErrStatsNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) ListStats(ctx context.Context, challengeID string) ([]*stats.ParticipantStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*stats.ParticipantStats, 0, len(m.stats[challengeID]))
	for _, s := range m.stats[challengeID] {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

func (m *MemoryStore) UpdateStats(ctx context.Context, challengeID, participantID string, fn UpdateStatsFunc) (*stats.ParticipantStats, error) {
	lock := m.keyLock(challengeID, participantID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	current := m.stats[challengeID][participantID].Clone()
	m.mu.RUnlock()

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.stats[challengeID] == nil {
		m.stats[challengeID] = make(map[string]*stats.ParticipantStats)
	}
	m.stats[challengeID][participantID] = next.Clone()
	m.mu.Unlock()

	return next.Clone(), nil
}

func (m *MemoryStore) keyLock(challengeID, participantID string) *sync.Mutex {
	lock, _ := m.keyLocks.LoadOrStore(challengeID+"/"+participantID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister []string

func (l staticLister) ListChallengeIDs(ctx context.Context) ([]string, error) {
	return l, nil
}

// fakeRecomputer tracks concurrency and fails for selected ids.
type fakeRecomputer struct {
	fail map[string]bool

	mu       sync.Mutex
	calls    []string
	inFlight int32
	peak     int32
}

func (f *fakeRecomputer) RecomputeAll(ctx context.Context, challengeID string, tz int) (map[string]*stats.ParticipantStats, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.calls = append(f.calls, challengeID)
	f.mu.Unlock()

	if f.fail[challengeID] {
		return nil, errors.New("boom")
	}
	return map[string]*stats.ParticipantStats{"u1": {}, "u2": {}}, nil
}

func TestRunOnce_BoundedWorkers(t *testing.T) {
	rec := &fakeRecomputer{fail: map[string]bool{"c3": true}}
	s := New(staticLister{"c1", "c2", "c3", "c4", "c5", "c6"}, rec, Config{Workers: 2})

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Challenges)
	assert.Equal(t, 10, result.Participants)
	assert.Equal(t, map[string]string{"c3": "boom"}, result.Failed)
	assert.Len(t, rec.calls, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&rec.peak), int32(2))
}

func TestRunOnce_Engine(t *testing.T) {
	ctx := context.Background()
	store := service.NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	eng := engine.New(store, store, store, engine.WithClock(clock))

	c, err := challenge.New(challenge.NewChallengeInput{ID: "run", OwnerID: "alice", Name: "run"}, now)
	require.NoError(t, err)
	require.NoError(t, store.SaveChallenge(ctx, c))
	require.NoError(t, store.AddMember(ctx, "run", "alice"))
	_, err = eng.InitParticipant(ctx, "run", "alice", 0)
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	s := New(store, eng, Config{Workers: 4})
	result, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Participants)

	got, err := store.GetStats(ctx, "run", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailCount)

	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	got, err = store.GetStats(ctx, "run", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailCount, "a second run on the same day changes nothing")
}

func TestStartStop(t *testing.T) {
	rec := &fakeRecomputer{}
	s := New(staticLister{"c1"}, rec, Config{Interval: 10 * time.Millisecond, Workers: 1})

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	rec.mu.Lock()
	calls := len(rec.calls)
	rec.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, calls, len(rec.calls), "no runs after Stop")
}

func TestStart_DisabledWithoutInterval(t *testing.T) {
	rec := &fakeRecomputer{}
	s := New(staticLister{"c1"}, rec, Config{})

	s.Start(context.Background())
	s.Stop()
	assert.Empty(t, rec.calls)
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/metrics"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ChallengeLister lists every challenge id.
type ChallengeLister interface {
	ListChallengeIDs(ctx context.Context) ([]string, error)
}

// Recomputer advances every member of one challenge.
type Recomputer interface {
	RecomputeAll(ctx context.Context, challengeID string, tzOffsetMinutes int) (map[string]*stats.ParticipantStats, error)
}

// Config controls the periodic batch.
type Config struct {
	Interval        time.Duration
	Workers         int
	TZOffsetMinutes int
}

// Scheduler periodically recomputes all challenges with a bounded number of workers.
// The engine stays passive; this is the only component that drives it on a timer.
type Scheduler struct {
	challenges ChallengeLister
	engine     Recomputer
	cfg        Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a scheduler. Workers defaults to 1.
func New(challenges ChallengeLister, eng Recomputer, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		challenges: challenges,
		engine:     eng,
		cfg:        cfg,
	}
}

// RunOnce recomputes every challenge. Failing challenges are logged and reported, not fatal.
func (s *Scheduler) RunOnce(ctx context.Context) (*engine.BatchResult, error) {
	start := time.Now()

	ids, err := s.challenges.ListChallengeIDs(ctx)
	if err != nil {
		metrics.BatchRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	var (
		mu     sync.Mutex
		result = &engine.BatchResult{Failed: map[string]string{}}
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)

	for _, cid := range ids {
		cid := cid
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			updated, err := s.engine.RecomputeAll(ctx, cid, s.cfg.TZOffsetMinutes)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logrus.Warnf("scheduled recompute of challenge %s failed: %v", cid, err)
				result.Failed[cid] = err.Error()
				return nil
			}
			result.Challenges++
			result.Participants += len(updated)
			return nil
		})
	}
	_ = g.Wait()

	outcome := "ok"
	switch {
	case ctx.Err() != nil:
		outcome = "canceled"
	case len(result.Failed) > 0:
		outcome = "partial"
	}
	metrics.BatchRunsTotal.WithLabelValues(outcome).Inc()

	logrus.Infof("scheduled recompute finished in %s: challenges=%d participants=%d failed=%d",
		time.Since(start).Round(time.Millisecond), result.Challenges, result.Participants, len(result.Failed))
	return result, ctx.Err()
}

// Start runs RunOnce every Interval until Stop or ctx is done. A zero interval disables it.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		logrus.Info("scheduled recompute disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	logrus.Infof("scheduled recompute every %s with %d workers", s.cfg.Interval, s.cfg.Workers)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logrus.Errorf("scheduled recompute failed: %v", err)
			}
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	logrus.Info("scheduled recompute stopped")
}

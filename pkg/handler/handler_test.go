// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01T00:00:00Z, a Monday.
const startAt = int64(1704067200)

type testServer struct {
	t      *testing.T
	store  service.Store
	router *mux.Router

	mu  sync.Mutex
	now time.Time
}

func newTestServer(t *testing.T, store service.Store) *testServer {
	t.Helper()

	ts := &testServer{
		t:     t,
		store: store,
		now:   time.Unix(startAt, 0).UTC().Add(12 * time.Hour),
	}
	eng := engine.New(store, store, store, engine.WithClock(ts.clock))
	h := NewChallengeHandler(eng, store, store, service.NewHealthChecker("test", store), Config{
		RequestTimeout: 5 * time.Second,
		Clock:          ts.clock,
	})
	ts.router = mux.NewRouter()
	h.RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) clock() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.now
}

func (ts *testServer) advanceDays(n int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.now = ts.now.Add(time.Duration(n) * 24 * time.Hour)
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createChallenge(body map[string]interface{}) {
	ts.t.Helper()
	rec := ts.do("POST", "/api/v1/challenges", body)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCreateChallenge(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())

	rec := ts.do("POST", "/api/v1/challenges", map[string]interface{}{
		"id":              "run",
		"ownerId":         "alice",
		"name":            "Morning run",
		"startAt":         startAt,
		"dueWeekdays":     []interface{}{"mon", 2, "fri"},
		"durationDays":    14,
		"allowedFailures": 2,
		"members":         []string{"bob", "alice"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createChallengeResponse
	decode(t, rec, &resp)
	assert.Equal(t, "run", resp.Challenge.ID)
	require.NotNil(t, resp.Challenge.StartDate)
	assert.Equal(t, "2024-01-01", resp.Challenge.StartDate.String())
	assert.Len(t, resp.Participants, 2)
	assert.Equal(t, stats.Pending, resp.Participants["bob"].Today.Status)

	members, err := ts.store.ListMembers(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)

	rec = ts.do("GET", "/api/v1/challenges/run", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("GET", "/api/v1/challenges", nil)
	assert.JSONEq(t, `{"challenges":["run"]}`, rec.Body.String())
}

func TestCreateChallenge_Rejections(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run"})

	tests := []struct {
		name   string
		path   string
		body   map[string]interface{}
		status int
	}{
		{"missing owner", "/api/v1/challenges", map[string]interface{}{"name": "x"}, http.StatusBadRequest},
		{"unknown weekday", "/api/v1/challenges", map[string]interface{}{"ownerId": "a", "name": "x", "dueWeekdays": []string{"funday"}}, http.StatusBadRequest},
		{"zero duration", "/api/v1/challenges", map[string]interface{}{"ownerId": "a", "name": "x", "durationDays": 0}, http.StatusBadRequest},
		{"negative allowed failures", "/api/v1/challenges", map[string]interface{}{"ownerId": "a", "name": "x", "allowedFailures": -1}, http.StatusBadRequest},
		{"offset out of range", "/api/v1/challenges?tzOffsetMinutes=900", map[string]interface{}{"ownerId": "a", "name": "x"}, http.StatusBadRequest},
		{"duplicate id", "/api/v1/challenges", map[string]interface{}{"id": "run", "ownerId": "a", "name": "x"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("POST", tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGetChallenge_NotFound(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())

	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/v1/challenges/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/v1/challenges/missing/stats", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("POST", "/api/v1/challenges/missing/participants/u/recalc", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("POST", "/api/v1/challenges/missing/members", memberRequest{UserID: "u"}).Code)
}

func TestConfirm_CountsAfterTheDayElapses(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run", "startAt": startAt})

	rec := ts.do("POST", "/api/v1/challenges/run/confirm", confirmRequest{UserID: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp confirmResponse
	decode(t, rec, &resp)
	assert.Equal(t, stats.Done, resp.Stats.Today.Status)
	assert.Equal(t, 0, resp.Stats.ConfirmedCount, "same-day confirm only updates today")

	ts.advanceDays(1)
	rec = ts.do("POST", "/api/v1/challenges/run/participants/alice/recalc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var s stats.ParticipantStats
	decode(t, rec, &s)
	assert.Equal(t, 1, s.ConfirmedCount)
	assert.Equal(t, 1, s.Streak)
	assert.Equal(t, stats.Pending, s.Today.Status)
}

func TestConfirm_Rejections(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run"})

	assert.Equal(t, http.StatusForbidden, ts.do("POST", "/api/v1/challenges/run/confirm", confirmRequest{UserID: "mallory"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("POST", "/api/v1/challenges/run/confirm", confirmRequest{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("POST", "/api/v1/challenges/run/confirm", confirmRequest{UserID: "alice", Timestamp: -5}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do("POST", "/api/v1/challenges/nope/confirm", confirmRequest{UserID: "alice"}).Code)

	entries, err := ts.store.ListConfirmations(context.Background(), "run")
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected confirms are not logged")
}

func TestConfirm_InvalidOffsetIsNotLogged(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run"})

	for _, tz := range []string{"5000", "-721", "abc"} {
		rec := ts.do("POST", "/api/v1/challenges/run/confirm?tzOffsetMinutes="+tz, confirmRequest{UserID: "alice"})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "tzOffsetMinutes=%s", tz)
	}

	entries, err := ts.store.ListConfirmations(context.Background(), "run")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfirm_AcceptsMillisecondsAndEvidence(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run", "startAt": startAt})

	rec := ts.do("POST", "/api/v1/challenges/run/confirm", map[string]interface{}{
		"userId":    "alice",
		"timestamp": (startAt + 3600) * 1000,
		"evidence":  map[string]string{"imageUrl": "https://example.com/a.jpg"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp confirmResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.Confirmation.Evidence)
	assert.Equal(t, "https://example.com/a.jpg", resp.Confirmation.Evidence.ImageURL)
	assert.Equal(t, stats.Done, resp.Stats.Today.Status)
}

func TestLeaveChallenge_KeepsStats(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run", "members": []string{"bob"}})

	rec := ts.do("DELETE", "/api/v1/challenges/run/members/bob", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ts.do("GET", "/api/v1/challenges/run/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cs stats.ChallengeStats
	decode(t, rec, &cs)
	assert.Contains(t, cs.PerParticipant, "alice")
	assert.NotContains(t, cs.PerParticipant, "bob")

	_, err := ts.store.GetStats(context.Background(), "run", "bob")
	assert.NoError(t, err, "stats survive leaving")

	assert.Equal(t, http.StatusForbidden, ts.do("DELETE", "/api/v1/challenges/run/members/bob", nil).Code)
}

func TestRecalcParticipant_RequiresMembership(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run"})

	rec := ts.do("POST", "/api/v1/challenges/run/participants/mallory/recalc", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	_, err := ts.store.GetStats(context.Background(), "run", "mallory")
	assert.ErrorIs(t, err, service.ErrStatsNotFound)

	list, err := ts.store.ListStats(context.Background(), "run")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusOK, ts.do("POST", "/api/v1/challenges/run/participants/alice/recalc", nil).Code)
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{
		"id": "run", "ownerId": "alice", "name": "run", "startAt": startAt,
		"durationDays": 14, "allowedFailures": 3, "members": []string{"bob"},
	})
	ts.do("POST", "/api/v1/challenges/run/confirm", confirmRequest{UserID: "alice"})

	rec := ts.do("GET", "/api/v1/challenges/run/stats?tzOffsetMinutes=60", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cs stats.ChallengeStats
	decode(t, rec, &cs)
	assert.Equal(t, "2024-01-01", cs.StartDate.String())
	require.NotNil(t, cs.EndDate)
	assert.Equal(t, "2024-01-14", cs.EndDate.String())
	assert.Equal(t, 3, *cs.AllowedFailures)
	assert.Equal(t, stats.Done, cs.PerParticipant["alice"].Today.Status)
	assert.Equal(t, stats.Pending, cs.PerParticipant["bob"].Today.Status)
	assert.Equal(t, stats.Pending, cs.Today)
}

func TestTZOffsetParameter(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run"})

	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/v1/challenges/run/stats?tzOffsetMinutes=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/v1/challenges/run/stats?tzOffsetMinutes=-800", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/v1/challenges/run/stats?tzOffsetMinutes=-720", nil).Code)
}

func TestBulkOperations(t *testing.T) {
	ts := newTestServer(t, service.NewMemoryStore())
	ts.createChallenge(map[string]interface{}{"id": "a", "ownerId": "alice", "name": "a", "members": []string{"bob"}})
	ts.createChallenge(map[string]interface{}{"id": "b", "ownerId": "carol", "name": "b"})
	ts.advanceDays(1)

	rec := ts.do("POST", "/api/v1/challenges/a/stats/recalc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var perChallenge struct {
		Participants map[string]*stats.ParticipantStats `json:"participants"`
	}
	decode(t, rec, &perChallenge)
	assert.Len(t, perChallenge.Participants, 2)
	assert.Equal(t, 1, perChallenge.Participants["bob"].FailCount)

	rec = ts.do("POST", "/api/v1/challenges/stats/recalc_all", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch engine.BatchResult
	decode(t, rec, &batch)
	assert.Equal(t, 2, batch.Challenges)
	assert.Equal(t, 3, batch.Participants)

	rec = ts.do("POST", "/api/v1/challenges/init_all", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &batch)
	assert.Equal(t, 2, batch.Challenges)

	rec = ts.do("POST", "/api/v1/challenges/a/init", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &perChallenge)
	assert.Nil(t, perChallenge.Participants["bob"].LastEvaluatedDate)
	assert.Equal(t, 1, perChallenge.Participants["bob"].FailCount, "init keeps counters")
}

func TestHandlers_RedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ts := newTestServer(t, service.NewRedisStore(client, service.RedisStoreConfig{}))
	ts.createChallenge(map[string]interface{}{"id": "run", "ownerId": "alice", "name": "run", "startAt": startAt, "allowedFailures": 1})

	ts.advanceDays(1)
	rec := ts.do("POST", "/api/v1/challenges/run/participants/alice/recalc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var s stats.ParticipantStats
	decode(t, rec, &s)
	assert.Equal(t, 1, s.FailCount)
	assert.Equal(t, stats.Blocked, s.LifecycleState)

	assert.Equal(t, http.StatusOK, ts.do("GET", "/health", nil).Code)
	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, ts.do("GET", "/health", nil).Code)
}

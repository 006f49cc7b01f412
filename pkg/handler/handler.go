// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/engine"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const tzOffsetParam = "tzOffsetMinutes"

// Engine is the recompute surface the handlers drive.
type Engine interface {
	InitParticipant(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error)
	Recompute(ctx context.Context, challengeID, participantID string, tzOffsetMinutes int) (*stats.ParticipantStats, error)
	RecomputeAll(ctx context.Context, challengeID string, tzOffsetMinutes int) (map[string]*stats.ParticipantStats, error)
	InitChallenge(ctx context.Context, challengeID string, tzOffsetMinutes int) (map[string]*stats.ParticipantStats, error)
	GetStats(ctx context.Context, challengeID string, tzOffsetMinutes int) (*stats.ChallengeStats, error)
	RecomputeEverything(ctx context.Context, tzOffsetMinutes int) (*engine.BatchResult, error)
	InitAll(ctx context.Context, tzOffsetMinutes int) (*engine.BatchResult, error)
}

// Config tunes request handling.
type Config struct {
	DefaultTZOffsetMinutes int
	RequestTimeout         time.Duration
	Clock                  func() time.Time
}

// ChallengeHandler serves the challenge API.
type ChallengeHandler struct {
	engine        Engine
	challenges    service.ChallengeStore
	confirmations service.ConfirmationLog
	health        *service.HealthChecker
	cfg           Config
}

// NewChallengeHandler creates a handler over the engine and stores.
func NewChallengeHandler(
	eng Engine,
	challenges service.ChallengeStore,
	confirmations service.ConfirmationLog,
	health *service.HealthChecker,
	cfg Config,
) *ChallengeHandler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &ChallengeHandler{
		engine:        eng,
		challenges:    challenges,
		confirmations: confirmations,
		health:        health,
		cfg:           cfg,
	}
}

// RegisterRoutes mounts the API on r. Fixed paths are registered before {id} patterns.
func (h *ChallengeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/challenges/stats/recalc_all", h.RecalcEverything).Methods("POST")
	api.HandleFunc("/challenges/init_all", h.InitAll).Methods("POST")

	api.HandleFunc("/challenges", h.CreateChallenge).Methods("POST")
	api.HandleFunc("/challenges", h.ListChallenges).Methods("GET")
	api.HandleFunc("/challenges/{id}", h.GetChallenge).Methods("GET")
	api.HandleFunc("/challenges/{id}/members", h.JoinChallenge).Methods("POST")
	api.HandleFunc("/challenges/{id}/members/{userId}", h.LeaveChallenge).Methods("DELETE")
	api.HandleFunc("/challenges/{id}/confirm", h.Confirm).Methods("POST")
	api.HandleFunc("/challenges/{id}/participants/{userId}/recalc", h.RecalcParticipant).Methods("POST")
	api.HandleFunc("/challenges/{id}/stats/recalc", h.RecalcChallenge).Methods("POST")
	api.HandleFunc("/challenges/{id}/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/challenges/{id}/init", h.InitChallenge).Methods("POST")
}

func (h *ChallengeHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
}

// tzOffset reads the caller's offset, falling back to the configured default.
func (h *ChallengeHandler) tzOffset(r *http.Request) (int, error) {
	raw := r.URL.Query().Get(tzOffsetParam)
	if raw == "" {
		return h.cfg.DefaultTZOffsetMinutes, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadRequest("tzOffsetMinutes must be an integer")
	}
	if err := calendar.ValidateOffset(v); err != nil {
		return 0, err
	}
	return v, nil
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequestError{msg: msg} }

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errBadRequest("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, challenge.ErrChallengeNotFound), errors.Is(err, service.ErrStatsNotFound):
		return http.StatusNotFound
	case errors.Is(err, challenge.ErrInvalidSchedule),
		errors.Is(err, challenge.ErrInvalidTimestamp),
		errors.Is(err, challenge.ErrInvalidTimezoneOffset),
		errors.Is(err, challenge.ErrInvalidChallenge):
		return http.StatusBadRequest
	case errors.Is(err, challenge.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, errChallengeExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logrus.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		respondWithError(w, code, "internal server error")
		return
	}
	logrus.Debugf("%s %s rejected (%d): %v", r.Method, r.URL.Path, code, err)
	respondWithError(w, code, err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RecalcParticipant recomputes one participant.
func (h *ChallengeHandler) RecalcParticipant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	if err := h.requireMember(ctx, vars["id"], vars["userId"]); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	s, err := h.engine.Recompute(ctx, vars["id"], vars["userId"], tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// RecalcChallenge recomputes every member of a challenge.
func (h *ChallengeHandler) RecalcChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	result, err := h.engine.RecomputeAll(ctx, mux.Vars(r)["id"], tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"participants": result})
}

// RecalcEverything recomputes every challenge, skipping the ones that fail.
func (h *ChallengeHandler) RecalcEverything(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	result, err := h.engine.RecomputeEverything(ctx, tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetStats returns schedule metadata, per-participant stats and the aggregate today status.
func (h *ChallengeHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	result, err := h.engine.GetStats(ctx, mux.Vars(r)["id"], tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// InitChallenge initializes every member of a challenge.
func (h *ChallengeHandler) InitChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	result, err := h.engine.InitChallenge(ctx, mux.Vars(r)["id"], tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"participants": result})
}

// InitAll initializes every challenge that has members.
func (h *ChallengeHandler) InitAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	result, err := h.engine.InitAll(ctx, tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Health reports whether the store backend is reachable.
func (h *ChallengeHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := h.health.Check(r.Context()); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"backend": h.health.Backend(),
			"error":   err.Error(),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.health.Backend()})
}

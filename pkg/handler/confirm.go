// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/gorilla/mux"
)

type confirmRequest struct {
	UserID    string              `json:"userId"`
	Timestamp int64               `json:"timestamp"`
	Evidence  *challenge.Evidence `json:"evidence"`
}

type confirmResponse struct {
	Confirmation *challenge.Confirmation `json:"confirmation"`
	Stats        *stats.ParticipantStats `json:"stats"`
}

// Confirm appends a confirmation for a member and recomputes their stats.
// Counters only move through the recompute, so a same-day confirm shows up in today's
// status and is counted once the day has elapsed.
func (h *ChallengeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	challengeID := mux.Vars(r)["id"]

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondWithDomainError(w, r, errBadRequest("userId is required"))
		return
	}

	if err := h.requireMember(ctx, challengeID, req.UserID); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	entry, err := challenge.NewConfirmation(challengeID, req.UserID, req.Timestamp, req.Evidence, h.cfg.Clock())
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	if err := h.confirmations.AppendConfirmation(ctx, entry); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	s, err := h.engine.Recompute(ctx, challengeID, req.UserID, tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, confirmResponse{Confirmation: entry, Stats: s})
}

// requireMember fails with ErrChallengeNotFound or ErrNotMember before anything is written.
func (h *ChallengeHandler) requireMember(ctx context.Context, challengeID, userID string) error {
	if _, err := h.challenges.GetChallenge(ctx, challengeID); err != nil {
		return err
	}
	member, err := h.challenges.IsMember(ctx, challengeID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: %s", challenge.ErrNotMember, userID)
	}
	return nil
}

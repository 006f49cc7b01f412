// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/AccelByte/extend-habit-challenge/pkg/challenge"
	"github.com/AccelByte/extend-habit-challenge/pkg/stats"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var errChallengeExists = errors.New("challenge already exists")

type createChallengeRequest struct {
	ID              string              `json:"id"`
	OwnerID         string              `json:"ownerId"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	StartAt         int64               `json:"startAt"`
	DueWeekdays     calendar.WeekdaySet `json:"dueWeekdays"`
	DurationDays    *int                `json:"durationDays"`
	AllowedFailures *int                `json:"allowedFailures"`
	Members         []string            `json:"members"`
}

type createChallengeResponse struct {
	Challenge    *challenge.Challenge               `json:"challenge"`
	Participants map[string]*stats.ParticipantStats `json:"participants"`
}

type memberRequest struct {
	UserID string `json:"userId"`
}

// CreateChallenge stores a challenge, joins the owner and listed members and initializes them.
// The start date is derived once here from startAt in the creator's offset.
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	var req createChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	c, err := challenge.New(challenge.NewChallengeInput{
		ID:              req.ID,
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Description:     req.Description,
		StartAt:         req.StartAt,
		TZOffsetMinutes: tz,
		DueWeekdays:     req.DueWeekdays,
		DurationDays:    req.DurationDays,
		AllowedFailures: req.AllowedFailures,
	}, h.cfg.Clock())
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	if req.ID != "" {
		if _, err := h.challenges.GetChallenge(ctx, req.ID); err == nil {
			respondWithDomainError(w, r, fmt.Errorf("%w: %s", errChallengeExists, req.ID))
			return
		} else if !errors.Is(err, challenge.ErrChallengeNotFound) {
			respondWithDomainError(w, r, err)
			return
		}
	}

	if err := h.challenges.SaveChallenge(ctx, c); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	members := []string{c.OwnerID}
	for _, m := range req.Members {
		m = strings.TrimSpace(m)
		if m != "" && m != c.OwnerID {
			members = append(members, m)
		}
	}

	participants := make(map[string]*stats.ParticipantStats, len(members))
	for _, uid := range members {
		s, err := h.join(r, c.ID, uid, tz)
		if err != nil {
			respondWithDomainError(w, r, err)
			return
		}
		participants[uid] = s
	}

	logrus.Infof("created challenge %s (%s) with %d members", c.ID, c.Name, len(members))
	respondWithJSON(w, http.StatusCreated, createChallengeResponse{Challenge: c, Participants: participants})
}

// ListChallenges returns every known challenge id.
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	ids, err := h.challenges.ListChallengeIDs(ctx)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"challenges": ids})
}

// GetChallenge returns challenge metadata.
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	c, err := h.challenges.GetChallenge(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// JoinChallenge adds a member and initializes (or resumes) their stats.
func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	tz, err := h.tzOffset(r)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondWithDomainError(w, r, errBadRequest("userId is required"))
		return
	}

	s, err := h.join(r, mux.Vars(r)["id"], req.UserID, tz)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *ChallengeHandler) join(r *http.Request, challengeID, userID string, tz int) (*stats.ParticipantStats, error) {
	ctx, cancel := h.context(r)
	defer cancel()

	if _, err := h.challenges.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	if err := h.challenges.AddMember(ctx, challengeID, userID); err != nil {
		return nil, err
	}
	return h.engine.InitParticipant(ctx, challengeID, userID, tz)
}

// LeaveChallenge removes membership. The stats record is kept.
func (h *ChallengeHandler) LeaveChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	vars := mux.Vars(r)
	challengeID, userID := vars["id"], vars["userId"]

	if _, err := h.challenges.GetChallenge(ctx, challengeID); err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	member, err := h.challenges.IsMember(ctx, challengeID, userID)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	if !member {
		respondWithDomainError(w, r, fmt.Errorf("%w: %s", challenge.ErrNotMember, userID))
		return
	}
	if err := h.challenges.RemoveMember(ctx, challengeID, userID); err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	logrus.Infof("user %s left challenge %s", userID, challengeID)
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"flashkids/internal/models"
	"flashkids/internal/session"
)

// ProfileHandler serves the child profile endpoints.
type ProfileHandler struct {
	tracker *session.Tracker
	log     *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(tracker *session.Tracker, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{tracker: tracker, log: log}
}

type profileResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AvatarIndex     int    `json:"avatar_index"`
	BackgroundIndex int    `json:"background_index"`
	TotalStars      int    `json:"total_stars"`
	StreakDays      int    `json:"streak_days"`
	IsActive        bool   `json:"is_active"`
	SortOrder       int    `json:"sort_order"`
}

func toProfileResponse(p models.Profile) profileResponse {
	return profileResponse{
		ID:              p.ID,
		Name:            p.Name,
		AvatarIndex:     p.AvatarIndex,
		BackgroundIndex: p.BackgroundIndex,
		TotalStars:      p.TotalStars,
		StreakDays:      p.StreakDays,
		IsActive:        p.IsActive,
		SortOrder:       p.SortOrder,
	}
}

// List returns all profiles in sort order.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles := h.tracker.Profiles()
	out := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = toProfileResponse(p)
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

// Create adds a new profile.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		AvatarIndex     int    `json:"avatar_index"`
		BackgroundIndex int    `json:"background_index"`
		MakeActive      bool   `json:"make_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "Profile name must not be empty", "", nil)
		return
	}

	p := h.tracker.CreateProfile(req.Name, req.AvatarIndex, req.BackgroundIndex, req.MakeActive)
	writeJSON(w, h.log, http.StatusCreated, toProfileResponse(p))
}

// Update overwrites the display fields of a profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		AvatarIndex     int    `json:"avatar_index"`
		BackgroundIndex int    `json:"background_index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "Profile name must not be empty", "", nil)
		return
	}

	h.tracker.UpdateProfile(models.Profile{
		ID:              r.PathValue("id"),
		Name:            req.Name,
		AvatarIndex:     req.AvatarIndex,
		BackgroundIndex: req.BackgroundIndex,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a profile. The last remaining profile cannot be deleted.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.tracker.DeleteProfile(r.PathValue("id"))
	if errors.Is(err, session.ErrLastProfile) {
		respondWithError(w, h.log, http.StatusConflict, "Cannot delete the last profile", "", nil)
		return
	}
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "profile delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select makes a profile the active one.
func (h *ProfileHandler) Select(w http.ResponseWriter, r *http.Request) {
	h.tracker.SelectProfile(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// Reorder moves profiles to a new position in the sort order.
func (h *ProfileHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromIndices []int `json:"from_indices"`
		ToIndex     int   `json:"to_index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	h.tracker.ReorderProfiles(req.FromIndices, req.ToIndex)
	w.WriteHeader(http.StatusNoContent)
}

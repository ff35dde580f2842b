package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"flashkids/internal/models"
	"flashkids/internal/session"
)

// SessionHandler serves navigation, lesson and screen-time endpoints.
type SessionHandler struct {
	tracker *session.Tracker
	log     *zap.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(tracker *session.Tracker, log *zap.Logger) *SessionHandler {
	return &SessionHandler{tracker: tracker, log: log}
}

type stateResponse struct {
	Screen        models.Screen    `json:"screen"`
	ActiveProfile *profileResponse `json:"active_profile,omitempty"`
	UsageSeconds  int              `json:"usage_seconds"`
	SyncFailures  int              `json:"sync_failures"`
}

// State returns the current screen, active profile and usage counters.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Screen:       h.tracker.Screen(),
		UsageSeconds: h.tracker.UsageSeconds(),
		SyncFailures: h.tracker.SyncFailures(),
	}
	if p, ok := h.tracker.ActiveProfile(); ok {
		pr := toProfileResponse(p)
		resp.ActiveProfile = &pr
	}
	writeJSON(w, h.log, http.StatusOK, resp)
}

// Levels returns the active profile's progress for one subject.
func (h *SessionHandler) Levels(w http.ResponseWriter, r *http.Request) {
	subject := models.Subject(r.PathValue("subject"))
	if !subject.Valid() {
		respondWithError(w, h.log, http.StatusNotFound, "Unknown subject", "", nil)
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.tracker.Levels(subject))
}

// Navigate switches the current screen by name.
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Screen  string `json:"screen"`
		Subject string `json:"subject,omitempty"`
		Level   int    `json:"level,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	var err error
	switch models.ScreenKind(req.Screen) {
	case models.ScreenHome:
		h.tracker.GoHome()
	case models.ScreenProgress:
		h.tracker.ShowProgress()
	case models.ScreenSettings:
		h.tracker.ShowSettings()
	case models.ScreenProfileSelection:
		h.tracker.ShowProfileSelection()
	case models.ScreenProfileManagement:
		h.tracker.ShowProfileManagement()
	case models.ScreenSubjectSelection:
		err = h.tracker.SelectSubject(models.Subject(req.Subject))
	case models.ScreenLesson:
		err = h.tracker.StartLesson(models.Subject(req.Subject), req.Level)
	default:
		respondWithError(w, h.log, http.StatusBadRequest, "Unknown screen", "", nil)
		return
	}

	switch {
	case errors.Is(err, session.ErrUnknownSubject), errors.Is(err, session.ErrUnknownLevel):
		respondWithError(w, h.log, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, session.ErrLevelLocked):
		respondWithError(w, h.log, http.StatusConflict, "Level is still locked", "", nil)
	case err != nil:
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "navigation failed", err)
	default:
		writeJSON(w, h.log, http.StatusOK, map[string]models.Screen{"screen": h.tracker.Screen()})
	}
}

// CompleteLesson records a finished lesson and its earned stars.
func (h *SessionHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Level   int    `json:"level"`
		Stars   int    `json:"stars"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	err := h.tracker.CompleteLesson(models.Subject(req.Subject), req.Level, req.Stars)
	switch {
	case errors.Is(err, session.ErrUnknownSubject), errors.Is(err, session.ErrUnknownLevel):
		respondWithError(w, h.log, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, session.ErrNoActiveProfile):
		respondWithError(w, h.log, http.StatusConflict, "No active profile", "", nil)
	case err != nil:
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "lesson completion failed", err)
	default:
		writeJSON(w, h.log, http.StatusOK, map[string]models.Screen{"screen": h.tracker.Screen()})
	}
}

// StartTracking begins the daily screen-time counter.
func (h *SessionHandler) StartTracking(w http.ResponseWriter, r *http.Request) {
	h.tracker.StartTimeTracking()
	w.WriteHeader(http.StatusNoContent)
}

// StopTracking halts the counter and flushes it to storage.
func (h *SessionHandler) StopTracking(w http.ResponseWriter, r *http.Request) {
	h.tracker.StopTimeTracking()
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"flashkids/internal/models"
	"flashkids/internal/session"
)

// SettingsHandler serves the app settings and the parent PIN gate.
type SettingsHandler struct {
	tracker *session.Tracker
	mw      *Middleware
	log     *zap.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(tracker *session.Tracker, mw *Middleware, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{tracker: tracker, mw: mw, log: log}
}

type settingsPayload struct {
	TimeLimitEnabled bool   `json:"time_limit_enabled"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	PINRequired      bool   `json:"pin_required"`
	SoundEnabled     bool   `json:"sound_enabled"`
	HapticsEnabled   bool   `json:"haptics_enabled"`
	LastSyncAt       string `json:"last_sync_at,omitempty"`
}

// Get returns the current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.tracker.Settings()
	payload := settingsPayload{
		TimeLimitEnabled: cfg.TimeLimitEnabled,
		TimeLimitMinutes: cfg.TimeLimitMinutes,
		PINRequired:      cfg.PINRequired,
		SoundEnabled:     cfg.SoundEnabled,
		HapticsEnabled:   cfg.HapticsEnabled,
	}
	if !cfg.LastSyncAt.IsZero() {
		payload.LastSyncAt = cfg.LastSyncAt.Format(time.RFC3339)
	}
	writeJSON(w, h.log, http.StatusOK, payload)
}

// Update validates and applies new settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	err := h.tracker.UpdateSettings(models.Settings{
		TimeLimitEnabled: req.TimeLimitEnabled,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PINRequired:      req.PINRequired,
		SoundEnabled:     req.SoundEnabled,
		HapticsEnabled:   req.HapticsEnabled,
	})
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPIN stores a new parent PIN and turns the PIN requirement on.
func (h *SettingsHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}
	if len(req.PIN) < 4 {
		respondWithError(w, h.log, http.StatusBadRequest, "PIN must be at least 4 digits", "", nil)
		return
	}

	if err := h.tracker.SetPIN(req.PIN); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "pin store failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyPIN checks the PIN and, on success, issues a parent-session cookie.
func (h *SettingsHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}

	if !h.tracker.VerifyPIN(req.PIN) {
		respondWithError(w, h.log, http.StatusUnauthorized, "Incorrect PIN", "", nil)
		return
	}
	if err := h.mw.IssueParentSession(w); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "parent session issue failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPIN removes the parent PIN and ends the parent session.
func (h *SettingsHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ClearPIN(); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "pin clear failed", err)
		return
	}
	h.mw.ClearParentSession(w)
	w.WriteHeader(http.StatusNoContent)
}

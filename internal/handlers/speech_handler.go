package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"flashkids/internal/speech"
)

// SpeechHandler serves text-to-speech synthesis and speech key management.
type SpeechHandler struct {
	client *speech.Client
	log    *zap.Logger
}

// NewSpeechHandler creates a new speech handler.
func NewSpeechHandler(client *speech.Client, log *zap.Logger) *SpeechHandler {
	return &SpeechHandler{client: client, log: log}
}

// Generate synthesizes text and streams back MP3 audio.
func (h *SpeechHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text            string   `json:"text"`
		Voice           string   `json:"voice,omitempty"`
		Model           string   `json:"model,omitempty"`
		Stability       *float64 `json:"stability"`
		SimilarityBoost *float64 `json:"similarity_boost"`
		Style           *float64 `json:"style"`
		UseSpeakerBoost *bool    `json:"use_speaker_boost"`
		Speed           *float64 `json:"speed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}
	if req.Text == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "Text must not be empty", "", nil)
		return
	}

	// Each tunable the caller omits keeps its default
	settings := speech.DefaultVoiceSettings()
	if req.Stability != nil {
		settings.Stability = *req.Stability
	}
	if req.SimilarityBoost != nil {
		settings.SimilarityBoost = *req.SimilarityBoost
	}
	if req.Style != nil {
		settings.Style = *req.Style
	}
	if req.UseSpeakerBoost != nil {
		settings.UseSpeakerBoost = *req.UseSpeakerBoost
	}
	if req.Speed != nil {
		settings.Speed = *req.Speed
	}

	audio, err := h.client.GenerateSpeech(r.Context(), req.Text, speech.Voice(req.Voice), speech.Model(req.Model), settings)
	if err != nil {
		h.respondSpeechError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.log.Error("failed to write audio response", zap.Error(err))
	}
}

// Voices lists the provider voices available to the stored key.
func (h *SpeechHandler) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.client.FetchVoices(r.Context())
	if err != nil {
		h.respondSpeechError(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, voices)
}

// SaveKey stores the speech provider API key.
func (h *SpeechHandler) SaveKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrMsgInvalidJSON, "", err)
		return
	}
	if req.APIKey == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "API key must not be empty", "", nil)
		return
	}

	if err := h.client.SaveAPIKey(req.APIKey); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "speech key store failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteKey removes the stored speech provider API key.
func (h *SpeechHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.client.DeleteAPIKey(); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrMsgInternalServerError, "speech key delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateKey probes the provider and classifies the stored key.
func (h *SpeechHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.ValidateAPIKey(r.Context())
	if err != nil && status == speech.KeyNetworkError {
		h.log.Warn("speech key validation could not reach provider", zap.Error(err))
	}
	writeJSON(w, h.log, http.StatusOK, map[string]speech.KeyStatus{"status": status})
}

// respondSpeechError maps the speech client's error taxonomy onto HTTP.
func (h *SpeechHandler) respondSpeechError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, speech.ErrNoAPIKey):
		respondWithError(w, h.log, http.StatusPreconditionFailed, "No speech API key configured", "", nil)
	case errors.Is(err, speech.ErrUnauthorized):
		respondWithError(w, h.log, http.StatusBadGateway, "Speech API key was rejected", "", nil)
	case errors.Is(err, speech.ErrRateLimited):
		respondWithError(w, h.log, http.StatusTooManyRequests, "Speech provider rate limit reached", "", nil)
	case errors.Is(err, speech.ErrInsufficientCredits):
		respondWithError(w, h.log, http.StatusPaymentRequired, "Speech account is out of credits", "", nil)
	case errors.Is(err, speech.ErrNoAudioData):
		respondWithError(w, h.log, http.StatusBadGateway, "Speech provider returned no audio", "", nil)
	default:
		respondWithError(w, h.log, http.StatusBadGateway, "Speech request failed", "speech request failed", err)
	}
}

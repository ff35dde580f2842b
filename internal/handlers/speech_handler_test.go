package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flashkids/internal/credentials"
	"flashkids/internal/speech"
)

type wireSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

func newTestSpeechHandler(t *testing.T, provider http.Handler) *SpeechHandler {
	t.Helper()

	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	client := speech.NewClient(srv.URL, credentials.NewMemory())
	require.NoError(t, client.SaveAPIKey("test-key"))
	return NewSpeechHandler(client, zap.NewNop())
}

func TestGenerateHonorsPartialSettings(t *testing.T) {
	var gotBody struct {
		VoiceSettings wireSettings `json:"voice_settings"`
	}
	h := newTestSpeechHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte("mp3-bytes"))
	}))

	// Only stability is supplied; every other tunable keeps its default
	req := httptest.NewRequest("POST", "/api/speech/generate",
		strings.NewReader(`{"text":"The letter A","stability":0.9}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
	assert.InDelta(t, 0.9, gotBody.VoiceSettings.Stability, 1e-9)
	assert.InDelta(t, 0.75, gotBody.VoiceSettings.SimilarityBoost, 1e-9)
	assert.InDelta(t, 1.0, gotBody.VoiceSettings.Speed, 1e-9)
	assert.True(t, gotBody.VoiceSettings.UseSpeakerBoost)
}

func TestGenerateExplicitFalseOverridesDefault(t *testing.T) {
	var gotBody struct {
		VoiceSettings wireSettings `json:"voice_settings"`
	}
	h := newTestSpeechHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte("ok"))
	}))

	// An explicit false is distinct from leaving the field out
	req := httptest.NewRequest("POST", "/api/speech/generate",
		strings.NewReader(`{"text":"hi","use_speaker_boost":false}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotBody.VoiceSettings.UseSpeakerBoost)
}

func TestGenerateRejectsEmptyText(t *testing.T) {
	h := newTestSpeechHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider should not be called")
	}))

	req := httptest.NewRequest("POST", "/api/speech/generate", strings.NewReader(`{"text":""}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

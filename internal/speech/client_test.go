package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashkids/internal/credentials"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *credentials.Memory) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := credentials.NewMemory()
	return NewClient(srv.URL, creds), creds
}

func withKey(t *testing.T, c *Client) {
	t.Helper()
	require.NoError(t, c.SaveAPIKey("test-key"))
}

func TestGenerateSpeechSendsRequest(t *testing.T) {
	var gotPath, gotKey, gotAccept string
	var gotBody synthesisRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotAccept = r.Header.Get("Accept")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte("mp3-bytes"))
	}))
	withKey(t, client)

	audio, err := client.GenerateSpeech(context.Background(), "The letter A", VoiceBella, ModelTurboV2, DefaultVoiceSettings())
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "/text-to-speech/"+string(VoiceBella), gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "audio/mpeg", gotAccept)
	assert.Equal(t, "The letter A", gotBody.Text)
	assert.Equal(t, string(ModelTurboV2), gotBody.ModelID)
	assert.InDelta(t, 0.5, gotBody.VoiceSettings.Stability, 1e-9)
	assert.True(t, gotBody.VoiceSettings.UseSpeakerBoost)
}

func TestGenerateSpeechClampsSettings(t *testing.T) {
	var gotBody synthesisRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte("ok"))
	}))
	withKey(t, client)

	settings := VoiceSettings{Stability: 1.5, SimilarityBoost: -0.2, Style: 2, Speed: 2.0}
	_, err := client.GenerateSpeech(context.Background(), "hi", "", "", settings)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, gotBody.VoiceSettings.Stability, 1e-9)
	assert.InDelta(t, 0.0, gotBody.VoiceSettings.SimilarityBoost, 1e-9)
	assert.InDelta(t, 1.0, gotBody.VoiceSettings.Style, 1e-9)
	assert.InDelta(t, 1.2, gotBody.VoiceSettings.Speed, 1e-9)

	settings.Speed = 0.1
	_, err = client.GenerateSpeech(context.Background(), "hi", "", "", settings)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, gotBody.VoiceSettings.Speed, 1e-9)
}

func TestGenerateSpeechWithoutKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := client.GenerateSpeech(context.Background(), "hi", VoiceBella, ModelTurboV2, DefaultVoiceSettings())
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGenerateSpeechStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"out of credits", http.StatusPaymentRequired, ErrInsufficientCredits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			withKey(t, client)

			_, err := client.GenerateSpeech(context.Background(), "hi", VoiceBella, ModelTurboV2, DefaultVoiceSettings())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateSpeechOtherStatusReturnsHTTPError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"text too long"}`))
	}))
	withKey(t, client)

	_, err := client.GenerateSpeech(context.Background(), "hi", VoiceBella, ModelTurboV2, DefaultVoiceSettings())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
	assert.Contains(t, httpErr.Body, "text too long")
}

func TestGenerateSpeechEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	withKey(t, client)

	_, err := client.GenerateSpeech(context.Background(), "hi", VoiceBella, ModelTurboV2, DefaultVoiceSettings())
	assert.ErrorIs(t, err, ErrNoAudioData)
}

func TestGenerateSpeechRejectsEmptyText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	withKey(t, client)

	_, err := client.GenerateSpeech(context.Background(), "", VoiceBella, ModelTurboV2, DefaultVoiceSettings())
	assert.Error(t, err)
}

func TestFetchVoices(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voices", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))
		json.NewEncoder(w).Encode(map[string]any{
			"voices": []VoiceInfo{
				{ID: string(VoiceBella), Name: "Bella", Category: "premade"},
				{ID: string(VoiceJosh), Name: "Josh", Category: "premade"},
			},
		})
	}))
	withKey(t, client)

	voices, err := client.FetchVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, "Bella", voices[0].Name)
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		hasKey  bool
		want    KeyStatus
		wantErr bool
	}{
		{"valid", http.StatusOK, true, KeyValid, false},
		{"rejected", http.StatusUnauthorized, true, KeyInvalid, false},
		{"rate limited", http.StatusTooManyRequests, true, KeyRateLimited, false},
		{"no credits", http.StatusPaymentRequired, true, KeyNoCredits, false},
		{"no key stored", http.StatusOK, false, KeyInvalid, false},
		{"provider outage", http.StatusServiceUnavailable, true, KeyNetworkError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.status == http.StatusOK {
					w.Write([]byte(`{"voices":[]}`))
				}
			}))
			if tt.hasKey {
				withKey(t, client)
			}

			status, err := client.ValidateAPIKey(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestValidateAPIKeyNetworkError(t *testing.T) {
	creds := credentials.NewMemory()
	client := NewClient("http://127.0.0.1:1", creds)
	require.NoError(t, client.SaveAPIKey("test-key"))

	status, err := client.ValidateAPIKey(context.Background())
	assert.Equal(t, KeyNetworkError, status)
	assert.Error(t, err)
}

func TestAPIKeyLifecycle(t *testing.T) {
	creds := credentials.NewMemory()
	client := NewClient("", creds)

	assert.False(t, client.HasAPIKey())
	require.NoError(t, client.SaveAPIKey("first"))
	require.NoError(t, client.SaveAPIKey("second"))

	key, err := client.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "second", key)

	require.NoError(t, client.DeleteAPIKey())
	assert.False(t, client.HasAPIKey())

	// Deleting again is a no-op
	require.NoError(t, client.DeleteAPIKey())
	assert.Error(t, client.SaveAPIKey(""))
}

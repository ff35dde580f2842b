// Package speech talks to the hosted text-to-speech provider that narrates
// flashcards and lesson prompts. The API key is held in the credential
// store, never in configuration files.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flashkids/internal/credentials"
)

// DefaultBaseURL is the provider's production endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io/v1"

const (
	credService = "flashkids.speech"
	credAccount = "elevenlabs"
)

// KeyStatus is the outcome of a credential validation probe.
type KeyStatus string

const (
	KeyValid        KeyStatus = "valid"
	KeyInvalid      KeyStatus = "invalid"
	KeyRateLimited  KeyStatus = "rate_limited"
	KeyNoCredits    KeyStatus = "no_credits"
	KeyNetworkError KeyStatus = "network_error"
)

// Client calls the speech provider's REST API.
type Client struct {
	baseURL string
	http    *http.Client
	creds   credentials.Store
}

// NewClient builds a client against baseURL (empty means DefaultBaseURL),
// reading the API key from creds on each request.
func NewClient(baseURL string, creds credentials.Store) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
	}
}

// APIKey returns the stored provider key, or ErrNoAPIKey if none is set.
func (c *Client) APIKey() (string, error) {
	key, err := c.creds.Get(credService, credAccount)
	if errors.Is(err, credentials.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("reading speech api key: %w", err)
	}
	return key, nil
}

// SaveAPIKey replaces the stored provider key.
func (c *Client) SaveAPIKey(key string) error {
	if key == "" {
		return errors.New("api key must not be empty")
	}
	// Remove any prior key first so a partial write cannot leave both
	if err := c.creds.Delete(credService, credAccount); err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return fmt.Errorf("clearing previous speech api key: %w", err)
	}
	if err := c.creds.Set(credService, credAccount, key); err != nil {
		return fmt.Errorf("storing speech api key: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored provider key. Deleting an absent key is
// not an error.
func (c *Client) DeleteAPIKey() error {
	err := c.creds.Delete(credService, credAccount)
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return fmt.Errorf("deleting speech api key: %w", err)
	}
	return nil
}

// HasAPIKey reports whether a provider key is stored.
func (c *Client) HasAPIKey() bool {
	_, err := c.APIKey()
	return err == nil
}

type synthesisRequest struct {
	Text          string            `json:"text"`
	ModelID       string            `json:"model_id"`
	VoiceSettings wireVoiceSettings `json:"voice_settings"`
}

type wireVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// GenerateSpeech synthesizes text with the given voice and model and returns
// MP3 audio. Settings are clamped to the provider's accepted ranges before
// transmission. Without a stored key it fails with ErrNoAPIKey and never
// touches the network.
func (c *Client) GenerateSpeech(ctx context.Context, text string, voice Voice, model Model, settings VoiceSettings) ([]byte, error) {
	key, err := c.APIKey()
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("text must not be empty")
	}
	if voice == "" {
		voice = DefaultVoice
	}
	if model == "" {
		model = DefaultModel
	}

	s := settings.clamped()
	payload := synthesisRequest{
		Text:    text,
		ModelID: string(model),
		VoiceSettings: wireVoiceSettings{
			Stability:       s.Stability,
			SimilarityBoost: s.SimilarityBoost,
			Style:           s.Style,
			UseSpeakerBoost: s.UseSpeakerBoost,
			Speed:           s.Speed,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding synthesis request: %w", err)
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voice))
	if err != nil {
		return nil, fmt.Errorf("invalid speech endpoint: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}
	if len(data) == 0 {
		return nil, ErrNoAudioData
	}
	return data, nil
}

// FetchVoices lists the voices available to the stored key.
func (c *Client) FetchVoices(ctx context.Context) ([]VoiceInfo, error) {
	key, err := c.APIKey()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("building voices request: %w", err)
	}
	req.Header.Set("xi-api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, body)
	}

	var out struct {
		Voices []VoiceInfo `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding voices response: %w", err)
	}
	return out.Voices, nil
}

// ValidateAPIKey probes the provider with a minimal request and classifies
// the stored key. Provider-side 5xx responses count as network errors, not
// key problems; a working key must never look invalid during an outage.
func (c *Client) ValidateAPIKey(ctx context.Context) (KeyStatus, error) {
	_, err := c.FetchVoices(ctx)
	switch {
	case err == nil:
		return KeyValid, nil
	case errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrUnauthorized):
		return KeyInvalid, nil
	case errors.Is(err, ErrRateLimited):
		return KeyRateLimited, nil
	case errors.Is(err, ErrInsufficientCredits):
		return KeyNoCredits, nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status >= http.StatusInternalServerError {
			return KeyNetworkError, err
		}
		return KeyInvalid, nil
	}
	return KeyNetworkError, err
}

package speech

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoAPIKey means no provider credential is stored. The request is
	// not attempted.
	ErrNoAPIKey = errors.New("no speech api key stored")

	// ErrNoAudioData means the provider returned HTTP 200 with an empty body.
	ErrNoAudioData = errors.New("no audio data in response")

	// ErrUnauthorized maps HTTP 401: the stored credential is invalid.
	ErrUnauthorized = errors.New("speech api key rejected")

	// ErrRateLimited maps HTTP 429.
	ErrRateLimited = errors.New("speech api rate limited")

	// ErrInsufficientCredits maps HTTP 402.
	ErrInsufficientCredits = errors.New("speech account out of credits")
)

// HTTPError is returned for any other non-2xx response, carrying the status
// and a snippet of the body so callers can decide how to react.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("speech api returned status %d: %s", e.Status, e.Body)
}

const bodySnippetLimit = 200

// statusError maps a non-200 response to the client's error taxonomy.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	snippet := string(body)
	if len(snippet) > bodySnippetLimit {
		snippet = snippet[:bodySnippetLimit]
	}
	return &HTTPError{Status: status, Body: snippet}
}

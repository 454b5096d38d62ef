package services

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/vibelist/internal/shared"
	"golang.org/x/oauth2"
)

// TokenProvider supplies the bearer token for each Spotify request.
//
// Any [oauth2.TokenSource] satisfies it; refresh is the provider's concern.
type TokenProvider interface {
	Token() (*oauth2.Token, error)
}

// StructuredPrompt is a single structured-output request to a language model.
type StructuredPrompt struct {
	Name         string         // schema name, e.g. "vibe_analysis"
	Instructions string         // system prompt
	Input        string         // user message
	Schema       map[string]any // JSON schema the output must satisfy
}

// APIError is a non-2xx response from an HTTP API.
//
// It unwraps to the shared sentinel matching its status so callers can use [errors.Is].
type APIError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, shared.Truncate(e.Body, 200))
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case e.Status == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case e.Status >= 500:
		return shared.ErrServiceUnavailable
	case e.Status == http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// Transient reports whether retrying the request may succeed.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

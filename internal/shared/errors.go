package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Generation pipeline errors
	ErrInvalidRequest       = fmt.Errorf("invalid generation request")
	ErrQuotaExceeded        = fmt.Errorf("quota exceeded")
	ErrMalformedModelOutput = fmt.Errorf("malformed model output")
	ErrResolution           = fmt.Errorf("track resolution failed")
	ErrNoCatalogMatch       = fmt.Errorf("no catalog match")
	ErrPublish              = fmt.Errorf("playlist publish failed")
	ErrArtworkFailed        = fmt.Errorf("artwork generation failed")
	ErrGenerationFailed     = fmt.Errorf("generation failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

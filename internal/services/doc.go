// Package services wraps the external HTTP APIs vibelist depends on.
//
// # Spotify
//
// [SpotifyService] is a thin client over the Spotify Web API. It reads the bearer token from a
// [TokenProvider] on every request, paces calls with a token-bucket limiter, and converts
// non-2xx responses into [APIError], which unwraps to the shared sentinels:
//   - 401: [shared.ErrTokenExpired]
//   - 429: [shared.ErrRateLimited]
//   - 5xx: [shared.ErrServiceUnavailable]
//   - 404: [shared.ErrNotFound]
//   - other: [shared.ErrAPIRequest]
//
// The client never retries. Retry policy belongs to the caller.
//
// # Spotify OAuth
//
// [SpotifyAuth] holds the OAuth2 configuration used by the login flow. [StoredTokenSource]
// refreshes expired tokens through the OAuth2 token endpoint and writes refreshed tokens back to
// a [TokenStore], so the pipeline itself never refreshes.
//
// # OpenAI
//
// [OpenAIService] implements structured completions through the Responses API with a strict JSON
// schema text format, and cover image generation through the Images API.
package services

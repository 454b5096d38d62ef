// Package server provides HTTP routing, middleware and handlers for the local endpoints of vibelist.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux]. [Router.Handle] registers method patterns
// ("GET /metrics"); [Router.Handler] registers a [Handler] on every route it reports.
// Middleware is applied with the first added outermost. [NewDefaultRouter] installs
// [Recoverer] and [RequestLogger].
//
// # OAuth Callback
//
// [OAuthHandler] completes the Spotify authorization code flow for `vibelist auth login`.
// It checks the state parameter, exchanges the code, and delivers a single [OAuthResult].
// Later callbacks are rejected.
//
// # Health and Metrics
//
// `vibelist serve` mounts [HealthHandler] on /healthz and the pipeline's Prometheus
// registry on /metrics, next to the OAuth callback.
package server

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const exchangeTimeout = 30 * time.Second

// OAuthResult is the outcome of one authorization code callback.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// Exchanger trades an authorization code for a token. [*oauth2.Config] satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// OAuthHandler handles the Spotify authorization code callback.
//
// Only the first callback is processed. Its result is delivered once on [OAuthHandler.Result].
type OAuthHandler struct {
	exchanger Exchanger
	state     string
	path      string

	results chan OAuthResult
	once    sync.Once
	mu      sync.Mutex
	hit     bool
}

// NewOAuthHandler creates a handler for path (default "/callback") that accepts only state.
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		path:      path,
		results:   make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(OAuthResult{Err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("authorization denied: %s %s", q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := h.exchanger.Exchange(ctx, code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Cancel delivers err as the result if no callback has arrived yet.
func (h *OAuthHandler) Cancel(err error) {
	h.send(OAuthResult{Err: err})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>vibelist: connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #faf5ff; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 12px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
        h1 { color: #9333ea; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Spotify connected</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

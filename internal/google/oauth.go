package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tasklight/tasklight/internal/apierr"
	"github.com/tasklight/tasklight/internal/logging"
)

const (
	// callbackTimeout bounds how long the loopback listener waits for the
	// user to complete the consent step in the browser.
	callbackTimeout = 5 * time.Minute

	// exchangeTimeout bounds the authorization-code exchange round trip.
	exchangeTimeout = 30 * time.Second

	// expiryLeeway treats tokens this close to expiry as already expired,
	// so a token returned to a caller outlives the call that follows.
	expiryLeeway = 30 * time.Second
)

// Options configures an Authenticator.
type Options struct {
	// ClientConfigPath is the OAuth client credentials file (the JSON
	// downloaded from the Google Cloud console for a desktop app).
	ClientConfigPath string

	// TokenPath is where the acquired token is persisted.
	TokenPath string

	// CallbackPort is the local port for the interactive consent callback.
	CallbackPort int

	// Scopes is the scope set requested during authorization. A persisted
	// token whose granted scopes do not cover this set is treated as absent.
	Scopes []string
}

// MetricsRecorder receives OAuth lifecycle outcomes. Implemented by
// instrumentation.Metrics; nil disables recording.
type MetricsRecorder interface {
	RecordOAuthAuth(ctx context.Context, result string)
	RecordOAuthTokenRefresh(ctx context.Context, result string)
}

// Authenticator acquires and owns a valid delegated credential.
//
// The zero value is not usable; construct with New.
type Authenticator struct {
	opts    Options
	metrics MetricsRecorder

	mu     sync.Mutex
	client *http.Client

	// authorize runs the interactive consent flow. Overridable in tests.
	authorize func(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)

	// now is the clock used for expiry checks. Overridable in tests.
	now func() time.Time
}

// New creates an Authenticator with the given options.
func New(opts Options) *Authenticator {
	a := &Authenticator{
		opts: opts,
		now:  time.Now,
	}
	a.authorize = a.runLoopbackFlow
	return a
}

// SetMetricsRecorder installs a recorder for OAuth lifecycle outcomes.
// Must be called before the first HTTPClient call.
func (a *Authenticator) SetMetricsRecorder(m MetricsRecorder) {
	a.metrics = m
}

// storedToken is the on-disk token format: the oauth2 token fields plus the
// scopes that were granted with it, so later runs can verify coverage.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// HTTPClient returns an HTTP client whose requests carry a valid credential.
//
// The first call performs the acquisition sequence (load, refresh, or
// interactive consent) and caches the client for the process lifetime.
// Concurrent first calls share one acquisition. A failed acquisition is not
// cached; every subsequent call retries from scratch.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	client, err := a.obtain(ctx)
	if err != nil {
		return nil, err
	}

	a.client = client
	return client, nil
}

// obtain runs the acquisition sequence. Caller holds a.mu.
func (a *Authenticator) obtain(ctx context.Context) (*http.Client, error) {
	clientJSON, err := os.ReadFile(a.opts.ClientConfigPath)
	if err != nil {
		return nil, apierr.Configuration(
			fmt.Sprintf("OAuth client credentials not readable at %s", a.opts.ClientConfigPath), err)
	}

	conf, err := google.ConfigFromJSON(clientJSON, a.opts.Scopes...)
	if err != nil {
		return nil, apierr.Configuration(
			fmt.Sprintf("invalid OAuth client credentials at %s", a.opts.ClientConfigPath), err)
	}

	tok := a.loadToken()

	switch {
	case tok != nil && a.valid(tok):
		// Unexpired and scope-sufficient: no network call needed.
		slog.Debug("using persisted credential",
			logging.Operation("load_token"),
			slog.String("token", logging.SanitizeToken(tok.AccessToken)))

	case tok != nil && tok.RefreshToken != "":
		refreshed, err := a.refresh(ctx, conf, tok)
		if err != nil {
			slog.Warn("token refresh failed, falling back to interactive authorization",
				logging.Operation("refresh_token"), logging.Err(err))
			a.recordRefresh(ctx, "failure")
			tok = nil
		} else {
			a.recordRefresh(ctx, "success")
			tok = refreshed
			a.persist(tok)
		}

	default:
		tok = nil
	}

	if tok == nil {
		tok, err = a.authorize(ctx, conf)
		if err != nil {
			a.recordAuth(ctx, "failure")
			return nil, apierr.Authorization("interactive authorization failed", err)
		}
		a.recordAuth(ctx, "success")
		a.persist(tok)
	}

	// The token source refreshes transparently once the access token ages
	// out mid-process; persist each refreshed token so the next process
	// start skips re-authorization.
	src := &persistingTokenSource{
		base: conf.TokenSource(ctx, tok),
		auth: a,
		last: tok.AccessToken,
	}

	return oauth2.NewClient(ctx, src), nil
}

// loadToken reads the persisted token. Missing, malformed, or
// scope-insufficient tokens are all treated as absent, never as errors:
// the acquisition sequence simply falls through to re-authorization.
func (a *Authenticator) loadToken() *oauth2.Token {
	data, err := os.ReadFile(a.opts.TokenPath)
	if err != nil {
		return nil
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("persisted token is malformed, re-authorization required",
			logging.Operation("load_token"), logging.Err(err))
		return nil
	}
	if st.AccessToken == "" {
		return nil
	}
	if !scopesCover(st.Scopes, a.opts.Scopes) {
		slog.Warn("persisted token is missing requested scopes, re-authorization required",
			logging.Operation("load_token"),
			slog.Any("granted", st.Scopes),
			slog.Any("requested", a.opts.Scopes))
		return nil
	}

	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}
}

// valid reports whether tok can be used without a network round trip.
func (a *Authenticator) valid(tok *oauth2.Token) bool {
	if tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return a.now().Add(expiryLeeway).Before(tok.Expiry)
}

// refresh exchanges the refresh token for a fresh access token.
func (a *Authenticator) refresh(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	refreshed, err := conf.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, err
	}
	// The provider may omit the refresh token on renewal; keep the old one.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	return refreshed, nil
}

// persist writes the token to disk with owner-only permissions.
//
// A write failure is surfaced as a warning, not an error: the in-memory
// credential stays usable for this process, but the next start will have to
// re-authorize.
func (a *Authenticator) persist(tok *oauth2.Token) {
	st := storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       a.opts.Scopes,
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		slog.Warn("failed to encode credential for persistence",
			logging.Operation("persist_token"), logging.Err(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(a.opts.TokenPath), 0700); err != nil {
		slog.Warn("failed to create token directory, credential not persisted",
			logging.Operation("persist_token"), logging.Err(err))
		return
	}
	if err := os.WriteFile(a.opts.TokenPath, data, 0600); err != nil {
		slog.Warn("failed to persist credential, re-authorization will be required on next start",
			logging.Operation("persist_token"), logging.Err(err))
	}
}

// runLoopbackFlow performs the interactive consent flow: it opens a local
// listener, prints the consent URL for the user, waits for the redirect
// carrying the authorization code, and exchanges the code for a token.
func (a *Authenticator) runLoopbackFlow(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", a.opts.CallbackPort))
	if err != nil {
		return nil, fmt.Errorf("could not bind local port %d for OAuth callback: %w", a.opts.CallbackPort, err)
	}
	defer listener.Close()

	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", a.opts.CallbackPort)

	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(os.Stderr, "Open this URL in your browser to authorize access to Google Tasks:")
	fmt.Fprintln(os.Stderr, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization callback carried no code")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(callbackTimeout):
		return nil, fmt.Errorf("authorization callback timed out after %s", callbackTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	tok, err := conf.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return tok, nil
}

func (a *Authenticator) recordAuth(ctx context.Context, result string) {
	if a.metrics != nil {
		a.metrics.RecordOAuthAuth(ctx, result)
	}
}

func (a *Authenticator) recordRefresh(ctx context.Context, result string) {
	if a.metrics != nil {
		a.metrics.RecordOAuthTokenRefresh(ctx, result)
	}
}

// scopesCover reports whether every requested scope was granted.
func scopesCover(granted, requested []string) bool {
	set := make(map[string]bool, len(granted))
	for _, s := range granted {
		set[s] = true
	}
	for _, s := range requested {
		if !set[s] {
			return false
		}
	}
	return true
}

// persistingTokenSource wraps a token source and writes each newly refreshed
// token back to disk, so mid-process refreshes survive a restart.
type persistingTokenSource struct {
	base oauth2.TokenSource
	auth *Authenticator

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	if changed {
		s.last = tok.AccessToken
	}
	s.mu.Unlock()

	if changed {
		s.auth.persist(tok)
	}
	return tok, nil
}

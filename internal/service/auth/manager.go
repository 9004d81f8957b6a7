package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/logger"
)

var (
	// ErrNoRefreshToken is returned by Refresh before any refresh token was issued.
	ErrNoRefreshToken = errors.New("no refresh token held")
	// ErrExchangeFailed is returned when the identity endpoint cannot issue tokens.
	ErrExchangeFailed = errors.New("token exchange failed")
)

// Options describes the OAuth client registered at the dispatch service.
type Options struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	AuthorizeURL string
	RedirectURL  string
	// Audience is sent with the authorize request; empty omits it.
	Audience string
	// Scope is a space separated scope list.
	Scope string
	// Timeout bounds each call to the identity endpoint.
	Timeout time.Duration
}

// Manager owns the process-wide TokenPair.
type Manager struct {
	oauth    *oauth2.Config
	audience string
	client   *http.Client
	timeout  time.Duration

	// exchangeMu serializes exchanges so pairs are never interleaved.
	exchangeMu sync.Mutex
	// mu guards pair; it is never held during network calls.
	mu   sync.RWMutex
	pair *domain.TokenPair

	now func() time.Time
}

// NewManager creates a Manager without credentials.
func NewManager(opts Options) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthorizeURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: opts.RedirectURL,
			Scopes:      strings.Fields(opts.Scope),
		},
		audience: opts.Audience,
		client:   &http.Client{Timeout: opts.Timeout},
		timeout:  opts.Timeout,
		now:      time.Now,
	}
}

// AuthorizeURL returns the login address carrying state back to the callback.
func (m *Manager) AuthorizeURL(state string) string {
	var params []oauth2.AuthCodeOption
	if m.audience != "" {
		params = append(params, oauth2.SetAuthURLParam("audience", m.audience))
	}

	return m.oauth.AuthCodeURL(state, params...)
}

// ExchangeAuthorizationCode trades code for a TokenPair and makes it current.
// On failure the previous pair stays in place.
func (m *Manager) ExchangeAuthorizationCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	token, err := m.oauth.Exchange(callCtx, code)
	if err != nil {
		logger.ErrorKV(ctx, "Authorization code exchange failed", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	pair := m.store(token, "")

	logger.Info(ctx, "Dispatch tokens obtained")

	return pair, nil
}

// Refresh trades the held refresh token for a new TokenPair.
func (m *Manager) Refresh(ctx context.Context) (*domain.TokenPair, error) {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	m.mu.RLock()

	var refreshToken string
	if m.pair != nil {
		refreshToken = m.pair.RefreshToken
	}

	m.mu.RUnlock()

	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	callCtx, cancel := m.callContext(ctx)
	defer cancel()

	token, err := m.oauth.TokenSource(callCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		logger.ErrorKV(ctx, "Token refresh failed", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	pair := m.store(token, refreshToken)

	logger.Info(ctx, "Dispatch tokens refreshed")

	return pair, nil
}

// CurrentBearer returns "Bearer <access token>" when a pair is held.
func (m *Manager) CurrentBearer() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pair == nil {
		return "", false
	}

	return m.pair.Bearer(), true
}

// Current returns a copy of the held pair, or nil before login.
func (m *Manager) Current() *domain.TokenPair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair.Clone()
}

// store swaps in the pair built from token. fallbackRefresh is kept when the
// endpoint does not rotate refresh tokens.
func (m *Manager) store(token *oauth2.Token, fallbackRefresh string) *domain.TokenPair {
	pair := &domain.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ObtainedAt:   m.now(),
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = fallbackRefresh
	}

	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	return pair.Clone()
}

// callContext bounds ctx by the configured timeout and routes oauth2 through
// the manager's HTTP client.
func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)

	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, m.timeout)
}

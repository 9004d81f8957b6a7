package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
)

var errTestExchange = errors.New("exchange failed")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// recorder implements every collaborator of the router.
type recorder struct {
	mu sync.Mutex

	events   []chat.InboundEvent
	notified map[string]chat.Response
	codes    []string

	exchangeErr error
	nonces      map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		notified: make(map[string]chat.Response),
		nonces:   map[string]string{"nonce-1": "psid-1"},
	}
}

func (r *recorder) Dispatch(_ context.Context, event chat.InboundEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) Notify(_ context.Context, recipientID string, response chat.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notified[recipientID] = response
}

func (r *recorder) ExchangeAuthorizationCode(_ context.Context, code string) (*domain.TokenPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes = append(r.codes, code)
	if r.exchangeErr != nil {
		return nil, r.exchangeErr
	}

	return &domain.TokenPair{AccessToken: "a"}, nil
}

func (r *recorder) Resolve(state string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.nonces[state]
	delete(r.nonces, state)

	return key, ok
}

func newTestRouter(t *testing.T, rec *recorder) *gin.Engine {
	t.Helper()

	router, err := NewRouter(context.Background(), Options{
		VerifyToken: "verify-me",
		Events:      rec,
		Notifier:    rec,
		Exchanger:   rec,
		Nonces:      rec,
	})
	require.NoError(t, err)

	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

// TestNewRouter_RequiresVerifyToken rejects an empty verify token.
func TestNewRouter_RequiresVerifyToken(t *testing.T) {
	t.Parallel()

	_, err := NewRouter(context.Background(), Options{})
	require.Error(t, err)
}

// TestVerify covers the subscription handshake outcomes.
func TestVerify(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, newRecorder())

	w := serve(router, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "42", w.Body.String())

	w = serve(router, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = serve(router, http.MethodGet, "/webhook", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// TestReceive_ParsesEveryEventKind maps text, quick replies, locations and postbacks.
func TestReceive_ParsesEveryEventKind(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	router := newTestRouter(t, rec)

	body := `{
	  "object": "page",
	  "entry": [
	    {"messaging": [{"sender": {"id": "u1"}, "message": {"text": "help"}}]},
	    {"messaging": [{"sender": {"id": "u2"}, "message": {"text": "Police", "quick_reply": {"payload": "police"}}}]},
	    {"messaging": [{"sender": {"id": "u3"}, "message": {"attachments": [
	      {"type": "location", "payload": {"coordinates": {"lat": 40.5, "long": -75.25}}}
	    ]}}]},
	    {"messaging": [{"sender": {"id": "u4"}, "postback": {"payload": "get_started"}}]},
	    {"messaging": [{"sender": {"id": "u5"}, "message": {"attachments": [{"type": "image", "payload": {}}]}}]}
	  ]
	}`

	w := serve(router, http.MethodPost, "/webhook", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "EVENT_RECEIVED", w.Body.String())

	require.Len(t, rec.events, 4)

	require.Equal(t, chat.KindText, rec.events[0].Kind)
	require.Equal(t, "help", rec.events[0].Text)

	require.Equal(t, "police", rec.events[1].Text)

	require.Equal(t, chat.KindLocation, rec.events[2].Kind)
	require.Equal(t, domain.Location{Latitude: 40.5, Longitude: -75.25}, rec.events[2].Location)
	require.Equal(t, "u3", rec.events[2].CorrelationKey)

	require.Equal(t, chat.KindPostback, rec.events[3].Kind)
	require.Equal(t, "get_started", rec.events[3].Payload)
}

// TestReceive_Rejects covers non-page objects and malformed bodies.
func TestReceive_Rejects(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	router := newTestRouter(t, rec)

	w := serve(router, http.MethodPost, "/webhook", `{"object":"user","entry":[]}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodPost, "/webhook", `{"object":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Empty(t, rec.events)
}

// TestOAuthCallback exchanges the code and notifies the conversation bound to state.
func TestOAuthCallback(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	router := newTestRouter(t, rec)

	w := serve(router, http.MethodGet, "/oauth/callback?code=c1&state=nonce-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"c1"}, rec.codes)
	require.Equal(t, chat.PlainText{Body: textLoggedIn}, rec.notified["psid-1"])

	// A state is consumed by its first use.
	w = serve(router, http.MethodGet, "/oauth/callback?code=c2&state=nonce-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, []string{"c1"}, rec.codes)
}

// TestOAuthCallback_UnknownStateKeepsTokens rejects callbacks not started from
// a conversation before any exchange.
func TestOAuthCallback_UnknownStateKeepsTokens(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	router := newTestRouter(t, rec)

	w := serve(router, http.MethodGet, "/oauth/callback?code=c1&state=forged", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodGet, "/oauth/callback?code=c1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Empty(t, rec.codes)
	require.Empty(t, rec.notified)
}

// TestOAuthCallback_Failures covers missing code and exchange failure.
func TestOAuthCallback_Failures(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.exchangeErr = errTestExchange
	router := newTestRouter(t, rec)

	w := serve(router, http.MethodGet, "/oauth/callback?error=access_denied", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodGet, "/oauth/callback?code=c1&state=nonce-1", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Empty(t, rec.notified)
}

// TestHealthz answers the liveness probe.
func TestHealthz(t *testing.T) {
	t.Parallel()

	w := serve(newTestRouter(t, newRecorder()), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

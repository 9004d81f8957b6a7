package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-dispatch/internal/config"
	"github.com/oshokin/alarm-dispatch/internal/service/server"
)

const (
	verifyToken = "verify-me"
	senderID    = "u1"
)

// dispatchFake plays both the identity endpoint and the alarm API.
type dispatchFake struct {
	mu       sync.Mutex
	requests []string
	bearers  []string
}

func (f *dispatchFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bearers = append(f.bearers, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/oauth/token":
		_, _ = fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/alarms":
		_, _ = fmt.Fprint(w, `{"id":"alarm-1"}`)
	case r.Method == http.MethodPut && r.URL.Path == "/v1/alarms/alarm-1/status":
		_, _ = fmt.Fprint(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *dispatchFake) seen(request string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.requests {
		if r == request {
			return f.bearers[i], true
		}
	}

	return "", false
}

type sentMessage struct {
	Text       string `json:"text"`
	Attachment *struct {
		Payload struct {
			Text    string `json:"text"`
			Buttons []struct {
				URL string `json:"url"`
			} `json:"buttons"`
		} `json:"payload"`
	} `json:"attachment"`
}

// graphFake records the messages sent through the Send API.
type graphFake struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (f *graphFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message *sentMessage `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	if body.Message != nil {
		f.mu.Lock()
		f.messages = append(f.messages, *body.Message)
		f.mu.Unlock()
	}

	_, _ = fmt.Fprint(w, `{}`)
}

// waitFor returns the first message sent after skip whose body contains substr.
func (f *graphFake) waitFor(t *testing.T, skip int, substr string) (sentMessage, int) {
	t.Helper()

	var (
		found sentMessage
		index int
	)

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()

		for i := skip; i < len(f.messages); i++ {
			m := f.messages[i]

			body := m.Text
			if m.Attachment != nil {
				body = m.Attachment.Payload.Text
			}

			if strings.Contains(body, substr) {
				found, index = m, i+1

				return true
			}
		}

		return false
	}, 3*time.Second, 10*time.Millisecond, "no message containing %q", substr)

	return found, index
}

func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

func postDelivery(t *testing.T, base, messaging string) {
	t.Helper()

	body := `{"object":"page","entry":[{"messaging":[` + messaging + `]}]}`

	resp, err := http.Post(base+"/webhook", "application/json", strings.NewReader(body)) //nolint:noctx // Test helper.
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func textFrom(text string) string {
	return fmt.Sprintf(`{"sender":{"id":%q},"message":{"text":%q}}`, senderID, text)
}

func locationFrom(lat, lng float64) string {
	return fmt.Sprintf(
		`{"sender":{"id":%q},"message":{"attachments":[{"type":"location","payload":{"coordinates":{"lat":%v,"long":%v}}}]}}`,
		senderID, lat, lng)
}

// TestBot_LoginRaiseAndCancel drives a whole conversation through the real
// process: a login prompt, the OAuth callback, an alarm and its cancellation.
func TestBot_LoginRaiseAndCancel(t *testing.T) {
	t.Parallel()

	dispatch := &dispatchFake{}
	dispatchSrv := httptest.NewServer(dispatch)
	t.Cleanup(dispatchSrv.Close)

	graph := &graphFake{}
	graphSrv := httptest.NewServer(graph)
	t.Cleanup(graphSrv.Close)

	addr := reservePort(t)
	base := "http://" + addr

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		ListenAddress: addr,
		Timeout:       2 * time.Second,
		Dispatch: config.Dispatch{
			APIURL:       dispatchSrv.URL,
			TokenURL:     dispatchSrv.URL + "/oauth/token",
			AuthorizeURL: dispatchSrv.URL + "/authorize",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			RedirectURL:  base + "/oauth/callback",
		},
		Messenger: config.Messenger{
			GraphURL:        graphSrv.URL,
			PageAccessToken: "page-token",
			VerifyToken:     verifyToken,
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz") //nolint:noctx // Test helper.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	// Choosing a service needs no credentials.
	postDelivery(t, base, textFrom("medical"))
	_, next := graph.waitFor(t, 0, "medical selected")

	// Sharing a location before login asks to log in.
	postDelivery(t, base, locationFrom(40.7, -74.0))
	prompt, next := graph.waitFor(t, next, "log in")
	require.NotNil(t, prompt.Attachment)
	require.Len(t, prompt.Attachment.Payload.Buttons, 1)

	authorizeURL, err := url.Parse(prompt.Attachment.Payload.Buttons[0].URL)
	require.NoError(t, err)

	state := authorizeURL.Query().Get("state")
	require.NotEmpty(t, state)

	// The OAuth callback completes the login and tells the conversation.
	resp, err := http.Get(base + "/oauth/callback?code=abc&state=" + url.QueryEscape(state)) //nolint:noctx // Test helper.
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, next = graph.waitFor(t, next, "logged in")

	// The pending service survives the failed attempt.
	postDelivery(t, base, locationFrom(40.7, -74.0))
	_, next = graph.waitFor(t, next, "We are sending medical")

	bearer, ok := dispatch.seen("POST /v1/alarms")
	require.True(t, ok)
	require.Equal(t, "Bearer at-1", bearer)

	postDelivery(t, base, textFrom("cancel"))
	graph.waitFor(t, next, "canceled")

	_, ok = dispatch.seen("PUT /v1/alarms/alarm-1/status")
	require.True(t, ok)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestBot_WebhookVerification checks the subscription handshake end to end.
func TestBot_WebhookVerification(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)
	base := "http://" + addr

	cfg := config.Template()
	cfg.ListenAddress = addr
	cfg.Dispatch.RefreshSchedule = ""
	cfg.Messenger.VerifyToken = verifyToken
	require.NoError(t, config.Validate(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Serve(ctx, cfg)
	}()

	var challenge string

	require.Eventually(t, func() bool {
		query := url.Values{
			"hub.mode":         {"subscribe"},
			"hub.verify_token": {verifyToken},
			"hub.challenge":    {"42"},
		}

		resp, err := http.Get(base + "/webhook?" + query.Encode()) //nolint:noctx // Test helper.
		if err != nil {
			return false
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}

		challenge = string(body)

		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	require.Equal(t, "42", challenge)

	cancel()
	require.NoError(t, <-done)
}

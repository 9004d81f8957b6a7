package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/logger"
)

// Replies of the HTTP endpoints.
const (
	replyEventReceived = "EVENT_RECEIVED"
	replyLoginDone     = "Login complete. You can return to the conversation."
	replyLoginFailed   = "Login failed. Please try again from the conversation."
	textLoggedIn       = "You are logged in to emergency dispatch. Type \"help\" whenever you need assistance."
)

// EventDispatcher accepts events for background processing.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event chat.InboundEvent)
}

// Notifier sends a reply outside of event processing.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, response chat.Response)
}

// CodeExchanger completes an OAuth authorization-code login.
type CodeExchanger interface {
	ExchangeAuthorizationCode(ctx context.Context, code string) (*domain.TokenPair, error)
}

// NonceResolver maps an OAuth state value back to its conversation.
type NonceResolver interface {
	Resolve(state string) (string, bool)
}

// Options holds the collaborators of the router.
type Options struct {
	VerifyToken string
	Events      EventDispatcher
	Notifier    Notifier
	Exchanger   CodeExchanger
	Nonces      NonceResolver
}

var errVerifyTokenRequired = errors.New("verify token is required")

type handler struct {
	opts Options
}

// NewRouter builds the gin engine serving the webhook, the OAuth callback and
// a liveness probe. Request contexts carry the logger of ctx.
func NewRouter(ctx context.Context, opts Options) (*gin.Engine, error) {
	if opts.VerifyToken == "" {
		return nil, errVerifyTokenRequired
	}

	h := &handler{opts: opts}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.WithName(ctx, "webhook")))

	router.GET("/webhook", h.verify)
	router.POST("/webhook", h.receive)
	router.GET("/oauth/callback", h.oauthCallback)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return router, nil
}

// verify answers the subscription handshake.
func (h *handler) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)

		return
	}

	if mode != "subscribe" || token != h.opts.VerifyToken {
		logger.WarnKV(c.Request.Context(), "Webhook verification rejected", "mode", mode)
		c.Status(http.StatusForbidden)

		return
	}

	logger.Info(c.Request.Context(), "Webhook verified")
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// receive parses a delivery and hands each event to the dispatcher.
func (h *handler) receive(c *gin.Context) {
	ctx := c.Request.Context()

	var body deliveryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.WarnKV(ctx, "Malformed webhook delivery", "error", err)
		c.Status(http.StatusBadRequest)

		return
	}

	if body.Object != objectPage {
		c.Status(http.StatusNotFound)

		return
	}

	for _, event := range body.events() {
		h.opts.Events.Dispatch(ctx, event)
	}

	c.String(http.StatusOK, replyEventReceived)
}

// oauthCallback checks that state was issued to a conversation, exchanges the
// authorization code and tells that conversation.
func (h *handler) oauthCallback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	if code == "" {
		logger.WarnKV(ctx, "OAuth callback without code", "error", c.Query("error"))
		c.String(http.StatusBadRequest, replyLoginFailed)

		return
	}

	// Only logins started from a conversation may replace the shared tokens.
	key, ok := h.opts.Nonces.Resolve(c.Query("state"))
	if !ok {
		logger.WarnKV(ctx, "OAuth callback with unknown state")
		c.String(http.StatusBadRequest, replyLoginFailed)

		return
	}

	if _, err := h.opts.Exchanger.ExchangeAuthorizationCode(ctx, code); err != nil {
		c.String(http.StatusBadGateway, replyLoginFailed)

		return
	}

	h.opts.Notifier.Notify(context.WithoutCancel(ctx), key, chat.PlainText{Body: textLoggedIn})

	c.String(http.StatusOK, replyLoginDone)
}

// requestLogger puts the base logger into every request context and logs
// the outcome of each request.
func requestLogger(base context.Context) gin.HandlerFunc {
	l := logger.FromContext(base)

	return func(c *gin.Context) {
		started := time.Now()
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), l))

		c.Next()

		logger.DebugKV(c.Request.Context(), "HTTP request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(started),
		)
	}
}

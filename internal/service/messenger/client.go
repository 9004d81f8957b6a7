package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/alarm-dispatch/internal/config"
	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	"github.com/oshokin/alarm-dispatch/internal/logger"
)

// Sender actions understood by the Send API.
const (
	actionMarkSeen  = "mark_seen"
	actionTypingOn  = "typing_on"
	actionTypingOff = "typing_off"
)

// loginButtonTitle labels the web-view login button.
const loginButtonTitle = "Log in"

var (
	// ErrDeliveryFailed is returned when the Send API does not accept a message.
	ErrDeliveryFailed = errors.New("message delivery failed")

	// errUnsupportedResponse is returned for response types without a rendering.
	errUnsupportedResponse = errors.New("unsupported response type")
)

// Client is a NotificationSink backed by the Send API.
type Client struct {
	endpoint   string
	pageToken  string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client for the Graph API at graphURL.
func NewClient(graphURL, pageToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &Client{
		endpoint:   strings.TrimRight(graphURL, "/") + "/me/messages",
		pageToken:  pageToken,
		httpClient: http.DefaultClient,
		timeout:    timeout,
	}
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient    recipient `json:"recipient"`
	Message      *message  `json:"message,omitempty"`
	SenderAction string    `json:"sender_action,omitempty"`
}

type message struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
	Attachment   *attachment  `json:"attachment,omitempty"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title,omitempty"`
	Payload     string `json:"payload,omitempty"`
}

type attachment struct {
	Type    string          `json:"type"`
	Payload templatePayload `json:"payload"`
}

type templatePayload struct {
	TemplateType string   `json:"template_type"`
	Text         string   `json:"text"`
	Buttons      []button `json:"buttons"`
}

type button struct {
	Type               string `json:"type"`
	URL                string `json:"url"`
	Title              string `json:"title"`
	WebviewHeightRatio string `json:"webview_height_ratio"`
}

// Deliver renders response and sends it to recipientID.
func (c *Client) Deliver(ctx context.Context, recipientID string, response chat.Response) error {
	msg, err := render(response)
	if err != nil {
		return err
	}

	return c.send(ctx, &sendRequest{Recipient: recipient{ID: recipientID}, Message: msg})
}

// MarkSeen shows the last message as read.
func (c *Client) MarkSeen(ctx context.Context, recipientID string) error {
	return c.action(ctx, recipientID, actionMarkSeen)
}

// TypingOn shows the typing indicator.
func (c *Client) TypingOn(ctx context.Context, recipientID string) error {
	return c.action(ctx, recipientID, actionTypingOn)
}

// TypingOff hides the typing indicator.
func (c *Client) TypingOff(ctx context.Context, recipientID string) error {
	return c.action(ctx, recipientID, actionTypingOff)
}

func (c *Client) action(ctx context.Context, recipientID, action string) error {
	return c.send(ctx, &sendRequest{Recipient: recipient{ID: recipientID}, SenderAction: action})
}

func (c *Client) send(ctx context.Context, request *sendRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.endpoint + "?" + url.Values{"access_token": {c.pageToken}}.Encode()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrDeliveryFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse.

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	logger.DebugKV(ctx, "Message sent", "recipient", request.Recipient.ID, "action", request.SenderAction)

	return nil
}

// render converts a response descriptor to the Send API message shape.
func render(response chat.Response) (*message, error) {
	switch r := response.(type) {
	case chat.PlainText:
		return &message{Text: r.Body}, nil
	case chat.QuickReplyPrompt:
		replies := make([]quickReply, 0, len(r.Options))
		for _, o := range r.Options {
			replies = append(replies, renderQuickReply(o))
		}

		return &message{Text: r.Body, QuickReplies: replies}, nil
	case chat.LoginPrompt:
		return &message{
			Attachment: &attachment{
				Type: "template",
				Payload: templatePayload{
					TemplateType: "button",
					Text:         r.Body,
					Buttons: []button{{
						Type:               "web_url",
						URL:                r.AuthorizeURL,
						Title:              loginButtonTitle,
						WebviewHeightRatio: "tall",
					}},
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedResponse, response)
	}
}

func renderQuickReply(o chat.QuickReply) quickReply {
	switch o.Kind {
	case chat.QuickReplyLocation:
		return quickReply{ContentType: "location"}
	case chat.QuickReplyPhoneNumber:
		return quickReply{ContentType: "user_phone_number"}
	case chat.QuickReplyText:
		return quickReply{ContentType: "text", Title: o.Title, Payload: o.Payload}
	default:
		return quickReply{ContentType: "text", Title: o.Title, Payload: o.Payload}
	}
}

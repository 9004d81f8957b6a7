package dispatch

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
	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/logger"
)

var (
	// ErrUnauthenticated is returned without a network call when no credential is held.
	ErrUnauthenticated = errors.New("not authenticated with dispatch")
	// ErrRequestFailed is returned on transport errors, timeouts, non-2xx answers
	// and requests that cannot be built, such as an empty alarm id.
	ErrRequestFailed = errors.New("dispatch request failed")

	// errAlarmIDRequired is returned when an alarm operation gets an empty id.
	errAlarmIDRequired = errors.New("alarm id must be provided")
	// errMissingAlarmID is returned when dispatch accepts an alarm without naming it.
	errMissingAlarmID = errors.New("response has no alarm id")
)

// statusCanceled is the alarm status set by Cancel.
const statusCanceled = "CANCELED"

// maxErrorBody limits how much of an error answer is logged.
const maxErrorBody = 512

// Credentials yields the Authorization header value for dispatch calls.
type Credentials interface {
	CurrentBearer() (string, bool)
}

// Client wraps the dispatch alarm endpoints.
type Client struct {
	// baseURL is the API root, e.g. https://api.dispatch.test.
	baseURL string
	// credentials provides the bearer token.
	credentials Credentials
	// httpClient performs the requests.
	httpClient *http.Client

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for alarm calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, credentials Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		httpClient:  http.DefaultClient,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type coordinates struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy int     `json:"accuracy"`
}

type servicesBody struct {
	Police  bool `json:"police"`
	Fire    bool `json:"fire"`
	Medical bool `json:"medical"`
}

type createAlarmRequest struct {
	Services    servicesBody `json:"services"`
	Coordinates coordinates  `json:"location.coordinates"`
}

type createAlarmResponse struct {
	ID string `json:"id"`
}

type updateLocationRequest struct {
	Coordinates coordinates `json:"coordinates"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Create raises an alarm for services at loc and returns its id.
func (c *Client) Create(ctx context.Context, services domain.ServiceSet, loc domain.Location) (string, error) {
	request := &createAlarmRequest{
		Services: servicesBody{
			Police:  services.Has(domain.Police),
			Fire:    services.Has(domain.Fire),
			Medical: services.Has(domain.Medical),
		},
		Coordinates: toCoordinates(loc),
	}

	var response createAlarmResponse
	if err := c.do(ctx, http.MethodPost, "/v1/alarms", request, &response); err != nil {
		return "", fmt.Errorf("create alarm: %w", err)
	}

	if response.ID == "" {
		return "", fmt.Errorf("create alarm: %w: %w", ErrRequestFailed, errMissingAlarmID)
	}

	logger.InfoKV(ctx, "Alarm created", "alarm_id", response.ID, "services", services.String())

	return response.ID, nil
}

// UpdateLocation reports a new location for the alarm. Repeating a call is safe.
func (c *Client) UpdateLocation(ctx context.Context, alarmID string, loc domain.Location) error {
	if alarmID == "" {
		return fmt.Errorf("%w: %w", ErrRequestFailed, errAlarmIDRequired)
	}

	request := &updateLocationRequest{Coordinates: toCoordinates(loc)}
	path := "/v1/alarms/" + url.PathEscape(alarmID) + "/locations"

	if err := c.do(ctx, http.MethodPost, path, request, nil); err != nil {
		return fmt.Errorf("update alarm location: %w", err)
	}

	logger.InfoKV(ctx, "Alarm location updated", "alarm_id", alarmID)

	return nil
}

// Cancel sets the alarm status to canceled.
func (c *Client) Cancel(ctx context.Context, alarmID string) error {
	if alarmID == "" {
		return fmt.Errorf("%w: %w", ErrRequestFailed, errAlarmIDRequired)
	}

	request := &updateStatusRequest{Status: statusCanceled}
	path := "/v1/alarms/" + url.PathEscape(alarmID) + "/status"

	if err := c.do(ctx, http.MethodPut, path, request, nil); err != nil {
		return fmt.Errorf("cancel alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm canceled", "alarm_id", alarmID)

	return nil
}

// do sends body as JSON and decodes a 2xx answer into out when out is set.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	bearer, ok := c.credentials.CurrentBearer()
	if !ok {
		return ErrUnauthenticated
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrRequestFailed, err)
	}

	req.Header.Set("Authorization", bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Best-effort diagnostics.
		logger.WarnKV(ctx, "Dispatch API rejected request",
			"method", method, "path", path, "status", resp.StatusCode, "body", string(snippet))

		return fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRequestFailed, err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

func toCoordinates(loc domain.Location) coordinates {
	return coordinates{
		Lat:      loc.Latitude,
		Lng:      loc.Longitude,
		Accuracy: domain.AccuracyRadius,
	}
}

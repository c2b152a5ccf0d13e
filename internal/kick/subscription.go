package kick

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/AnthonyMosley/OpenStreamKit/internal/metrics"
)

const defaultAPIHost = "https://api.kick.com"

// subscribedEvents is the fixed set of event types this tool registers.
var subscribedEvents = []subscriptionEvent{
	{Name: "chat.message.sent", Version: 1},
	{Name: "channel.followed", Version: 1},
	{Name: "channel.subscription.created", Version: 1},
	{Name: "channel.subscription.gifted", Version: 1},
}

type subscriptionEvent struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type subscriptionRequest struct {
	Events []subscriptionEvent `json:"events"`
	Method string              `json:"method"`
}

// SubscriptionResult is the raw outcome of a subscription attempt.
// It is diagnostic data: JSON is nil unless the upstream responded
// with an application/json content type.
type SubscriptionResult struct {
	StatusCode int            `json:"status_code"`
	Text       string         `json:"text"`
	JSON       map[string]any `json:"json,omitempty"`
}

// OK reports whether the upstream accepted the subscription request.
func (r *SubscriptionResult) OK() bool {
	return r.StatusCode < 400
}

// SubscriptionClient registers webhook event subscriptions against the
// Kick events API.
type SubscriptionClient struct {
	apiHost    string // configurable for testing
	httpClient *http.Client
}

func NewSubscriptionClient() *SubscriptionClient {
	return &SubscriptionClient{
		apiHost:    defaultAPIHost,
		httpClient: &http.Client{Timeout: httpCallTimeout},
	}
}

// Subscribe registers the fixed event set with webhook delivery. Unlike
// ExchangeCode it never treats a non-success HTTP status as an error:
// the caller inspects the result and decides. Only transport-level
// failures return an error.
func (c *SubscriptionClient) Subscribe(ctx context.Context, accessToken string) (*SubscriptionResult, error) {
	body, err := json.Marshal(subscriptionRequest{Events: subscribedEvents, Method: "webhook"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode subscription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+"/public/v1/events/subscriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SubscriptionAttemptsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("failed to execute subscription request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription response: %w", err)
	}

	result := &SubscriptionResult{
		StatusCode: resp.StatusCode,
		Text:       string(raw),
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			result.JSON = parsed
		}
	}

	metrics.SubscriptionAttemptsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()
	return result, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

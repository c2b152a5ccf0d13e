package kick

import (
	"context"
	"log/slog"
	"sort"

	"github.com/AnthonyMosley/OpenStreamKit/internal/metrics"
)

// EventKind labels the shape of an inbound webhook payload.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventChat
	EventFollow
)

func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "chat"
	case EventFollow:
		return "follow"
	default:
		return "unknown"
	}
}

// Classify labels a payload by key shape. The order matters: the chat
// predicate runs first, so a payload satisfying both is a chat message.
// No other fields are inspected; unrecognized keys are ignored.
func Classify(payload map[string]any) EventKind {
	if hasKeys(payload, "message_id", "sender", "content") {
		return EventChat
	}
	if _, ok := payload["follower"]; ok {
		return EventFollow
	}
	return EventUnknown
}

func hasKeys(payload map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := payload[k]; !ok {
			return false
		}
	}
	return true
}

// PayloadDumper persists raw payload snapshots for debugging.
type PayloadDumper interface {
	DumpPayload(name string, payload map[string]any) error
}

// EventHandler classifies inbound webhook payloads and dispatches them.
// When a dumper is set, every payload (and per-kind snapshots) are
// persisted for schema inspection.
type EventHandler struct {
	logger *slog.Logger
	dumper PayloadDumper // nil unless debug payload dumps are enabled
}

func NewEventHandler(logger *slog.Logger, dumper PayloadDumper) *EventHandler {
	return &EventHandler{logger: logger, dumper: dumper}
}

// Handle classifies and dispatches a payload. It never fails: unknown
// shapes are logged so the webhook endpoint can always acknowledge.
func (h *EventHandler) Handle(ctx context.Context, payload map[string]any) EventKind {
	h.dump("last_webhook.json", payload)

	kind := Classify(payload)
	metrics.WebhookEventsTotal.WithLabelValues(kind.String()).Inc()

	switch kind {
	case EventChat:
		h.handleChat(ctx, payload)
	case EventFollow:
		h.handleFollow(ctx, payload)
	default:
		h.handleUnknown(ctx, payload)
	}
	return kind
}

func (h *EventHandler) handleChat(ctx context.Context, payload map[string]any) {
	sender := nestedString(payload, "sender", "username", "unknown")
	content, _ := payload["content"].(string)
	h.logger.InfoContext(ctx, "chat message received", "sender", sender, "content", content)
	h.dump("last_chat.json", payload)
}

func (h *EventHandler) handleFollow(ctx context.Context, payload map[string]any) {
	follower := nestedString(payload, "follower", "username", "unknown")
	h.logger.InfoContext(ctx, "new follower", "follower", follower)
	h.dump("last_follow.json", payload)
}

func (h *EventHandler) handleUnknown(ctx context.Context, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h.logger.ErrorContext(ctx, "unknown webhook payload shape", "keys", keys)
}

func (h *EventHandler) dump(name string, payload map[string]any) {
	if h.dumper == nil {
		return
	}
	if err := h.dumper.DumpPayload(name, payload); err != nil {
		h.logger.Warn("failed to persist payload snapshot", "file", name, "error", err)
	}
}

// nestedString extracts payload[key][field] as a string, falling back
// when either level is absent or the wrong type.
func nestedString(payload map[string]any, key, field, fallback string) string {
	obj, ok := payload[key].(map[string]any)
	if !ok {
		return fallback
	}
	s, ok := obj[field].(string)
	if !ok {
		return fallback
	}
	return s
}

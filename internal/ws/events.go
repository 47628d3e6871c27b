package ws

import (
	"context"
	"time"

	"message-service/internal/observability"
)

const (
	kindConversation = "conversation"
	kindInbox        = "inbox"
)

func wsRoutingKey(kind string) string {
	if kind == kindInbox {
		return "ws_events.inbox"
	}
	return "ws_events.chats"
}

// publishLifecycle counts and publishes a connect/disconnect/error event.
func publishLifecycle(ctx context.Context, kind, group, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)

	var durationMS int64
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"group":       group,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

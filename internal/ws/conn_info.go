package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"message-service/internal/auth"
	"message-service/internal/observability"
)

type ConnInfo struct {
	ConnID      string
	UserID      int64
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(ctx context.Context, r *http.Request, id auth.Identity) ConnInfo {
	meta := observability.ClientMetaFromRequest(r)
	requestID := observability.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = meta.RequestID
	}
	return ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      id.UserID,
		Username:    id.Username,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   requestID,
		TraceID:     observability.TraceIDFromContext(ctx),
		ConnectedAt: time.Now(),
	}
}

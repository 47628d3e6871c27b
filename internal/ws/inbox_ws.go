package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"message-service/internal/models"
)

// HandleInbox upgrades /ws/chat_list/ into the caller's own inbox group.
// The group is taken from the token, never from the request.
func (g *Gateway) HandleInbox(c *gin.Context) {
	ctx, span := otel.Tracer("message-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", kindInbox))
	c.Request = c.Request.WithContext(ctx)

	id, err := g.authenticate(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Inbox connections are push-only; inbound frames are read and ignored.
	connCtx := context.WithoutCancel(ctx)
	g.serve(connCtx, kindInbox, models.InboxGroup(id.UserID), conn, newConnInfo(connCtx, c.Request, id), nil)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"message-service/internal/auth"
	"message-service/internal/models"
)

// HandleChat upgrades /ws/chat/:chat_hash/ for a participant of the chat.
func (g *Gateway) HandleChat(c *gin.Context) {
	chatHash := c.Param("chat_hash")

	ctx, span := otel.Tracer("message-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", kindConversation), attribute.String("chat.hash", chatHash))
	c.Request = c.Request.WithContext(ctx)

	id, err := g.authenticate(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	chat, err := g.chats.GetChatForParticipant(ctx, chatHash, id.UserID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	case errors.Is(err, models.ErrForbiddenParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	case err != nil:
		g.logger.Error("chat lookup failed", zap.String("chat_hash", chatHash), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	connCtx := context.WithoutCancel(ctx)
	info := newConnInfo(connCtx, c.Request, id)
	g.serve(connCtx, kindConversation, models.ConversationGroup(chat.Hash), conn, info, func(ctx context.Context, client *Client, data []byte) {
		g.handleInbound(ctx, client, chat.Hash, id, data)
	})
}

// handleInbound processes one send event. Rejections are acknowledged to
// the sending client only.
func (g *Gateway) handleInbound(ctx context.Context, client *Client, chatHash string, id auth.Identity, data []byte) {
	var in models.ChatInbound
	if err := json.Unmarshal(data, &in); err != nil {
		client.SendJSON(models.ErrorAck{Error: "invalid payload", Code: "invalid_payload"})
		return
	}
	if strings.TrimSpace(in.Message) == "" {
		client.SendJSON(models.ErrorAck{Error: models.ErrEmptyMessage.Error(), Code: "empty_message"})
		return
	}
	if strings.TrimSpace(in.Sender) == "" {
		client.SendJSON(models.ErrorAck{Error: "sender is required", Code: "missing_sender"})
		return
	}
	if !senderMatches(in.Sender, id) {
		client.SendJSON(models.ErrorAck{Error: "sender does not match connection", Code: "sender_mismatch"})
		return
	}

	if _, err := g.chats.SendMessage(ctx, chatHash, id.UserID, in.Message); err != nil {
		code := errorCode(err)
		if code == "internal" {
			g.logger.Error("send failed", zap.String("chat_hash", chatHash), zap.Int64("sender_id", id.UserID), zap.Error(err))
			client.SendJSON(models.ErrorAck{Error: "failed to send message", Code: code})
			return
		}
		client.SendJSON(models.ErrorAck{Error: err.Error(), Code: code})
	}
}

func senderMatches(sender string, id auth.Identity) bool {
	if id.Username != "" && sender == id.Username {
		return true
	}
	return sender == strconv.FormatInt(id.UserID, 10)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, models.ErrForbiddenParticipant):
		return "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

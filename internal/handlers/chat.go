package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"message-service/internal/models"
	"message-service/internal/services"
)

const maxPageSize = 200

// ChatHandler exposes the synchronous chat API.
type ChatHandler struct {
	svc    *services.ChatService
	logger *zap.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc *services.ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{svc: svc, logger: logger}
}

// Register wires the chat routes behind auth.
func (h *ChatHandler) Register(r gin.IRoutes, auth gin.HandlerFunc) {
	r.GET("/chats", auth, h.ListChats)
	r.POST("/chats/start", auth, h.StartChat)
	r.GET("/chats/:chat_hash", auth, h.GetChat)
	r.GET("/chats/:chat_hash/messages", auth, h.GetChatMessages)
	r.POST("/chats/:chat_hash/messages", auth, h.PostChatMessage)
	r.POST("/chats/:chat_hash/read", auth, h.MarkRead)
	r.DELETE("/chats/:chat_hash/messages/:message_id/me", auth, h.DeleteMessageForMe)
	r.DELETE("/chats/:chat_hash/me", auth, h.DeleteChatForMe)
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.svc.ListChats(c.Request.Context(), c.GetInt64("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat creates or returns the private chat with partner_id.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		PartnerID int64 `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.svc.StartChat(c.Request.Context(), c.GetInt64("userID"), req.PartnerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID, "chat_hash": chat.Hash})
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, err := h.svc.GetChatForParticipant(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

// GetChatMessages returns the caller's visible messages, oldest first.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	var q models.MessageQuery
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = min(limit, maxPageSize)
	}
	if raw := c.Query("before_id"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || before <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before_id"})
			return
		}
		q.BeforeID = before
	}

	msgs, err := h.svc.ListMessages(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID"), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage sends a message through the same path as the websocket.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID"), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DeleteMessageForMe hides one message for the caller.
func (h *ChatHandler) DeleteMessageForMe(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.svc.HideMessage(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID"), messageID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteChatForMe hides the whole chat for the caller.
func (h *ChatHandler) DeleteChatForMe(c *gin.Context) {
	if _, err := h.svc.HideChat(c.Request.Context(), c.Param("chat_hash"), c.GetInt64("userID")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbiddenParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEmptyMessage), errors.Is(err, models.ErrInvalidConversation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDuplicateConversation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", requestIDFromContext(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

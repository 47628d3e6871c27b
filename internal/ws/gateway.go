package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"message-service/internal/auth"
	"message-service/internal/models"
	"message-service/internal/observability"
)

// ChatSender is the part of the chat service the gateway drives.
type ChatSender interface {
	GetChatForParticipant(ctx context.Context, chatHash string, userID int64) (models.Chat, error)
	SendMessage(ctx context.Context, chatHash string, senderID int64, content string) (models.Message, error)
}

type Options struct {
	AllowedOrigins []string
	SendBuffer     int
}

// Gateway serves the conversation and inbox websocket channels.
type Gateway struct {
	hub        *Hub
	chats      ChatSender
	verifier   *auth.Verifier
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.Logger
}

func NewGateway(hub *Hub, chats ChatSender, verifier *auth.Verifier, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		hub:        hub,
		chats:      chats,
		verifier:   verifier,
		upgrader:   newUpgrader(opts.AllowedOrigins),
		sendBuffer: opts.SendBuffer,
		logger:     logger.With(zap.String("component", "ws")),
	}
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

func (g *Gateway) authenticate(r *http.Request) (auth.Identity, error) {
	return g.verifier.ParseToken(auth.TokenFromRequest(r))
}

type messageHandler func(ctx context.Context, c *Client, data []byte)

// serve registers the connection in group and runs its reader and writer
// until the peer disconnects.
func (g *Gateway) serve(ctx context.Context, kind, group string, conn *websocket.Conn, info ConnInfo, onMessage messageHandler) {
	client := NewClient(conn, info, g.sendBuffer)
	g.hub.Join(group, client)
	observability.IncWSActive(kind)
	publishLifecycle(ctx, kind, group, "ws_connect", info, "")
	g.logger.Debug("client joined", zap.String("group", group), zap.String("conn_id", info.ConnID), zap.Int64("user_id", info.UserID))

	go client.WritePump()
	go func() {
		var closeReason string
		defer func() {
			g.hub.Leave(group, client)
			client.Close()
			observability.DecWSActive(kind)
			publishLifecycle(ctx, kind, group, "ws_disconnect", info, closeReason)
			g.logger.Debug("client left", zap.String("group", group), zap.String("conn_id", info.ConnID), zap.String("reason", closeReason))
		}()

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishLifecycle(ctx, kind, group, "ws_error", info, closeReason)
				}
				return
			}
			if onMessage != nil {
				onMessage(ctx, client, data)
			}
		}
	}()
}

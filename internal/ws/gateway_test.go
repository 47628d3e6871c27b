package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"message-service/internal/auth"
	"message-service/internal/chathash"
	"message-service/internal/models"
)

// fakeChats echoes sends to the conversation group the way the chat service does.
type fakeChats struct {
	hub  *Hub
	chat models.Chat

	mu    sync.Mutex
	sends []string
}

func (f *fakeChats) GetChatForParticipant(_ context.Context, chatHash string, userID int64) (models.Chat, error) {
	if chatHash != f.chat.Hash {
		return models.Chat{}, models.ErrChatNotFound
	}
	if !f.chat.HasParticipant(userID) {
		return models.Chat{}, models.ErrForbiddenParticipant
	}
	return f.chat, nil
}

func (f *fakeChats) SendMessage(ctx context.Context, chatHash string, senderID int64, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, models.ErrEmptyMessage
	}
	f.mu.Lock()
	f.sends = append(f.sends, content)
	id := int64(len(f.sends))
	f.mu.Unlock()

	payload, _ := json.Marshal(models.ChatEvent{Message: content, Sender: "anna", MessageID: id})
	_ = f.hub.Publish(ctx, models.ConversationGroup(chatHash), payload)
	return models.Message{ID: id, Content: content, SenderID: senderID}, nil
}

type gatewayEnv struct {
	server   *httptest.Server
	hub      *Hub
	chats    *fakeChats
	verifier *auth.Verifier
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	gin.SetMode(gin.TestMode)
	hash, err := chathash.Derive(5, 9)
	require.NoError(t, err)

	hub := NewHub(zaptest.NewLogger(t))
	chats := &fakeChats{hub: hub, chat: models.Chat{ID: 1, Hash: hash, ParticipantA: 5, ParticipantB: 9}}
	verifier := auth.NewVerifier("secret")
	gw := NewGateway(hub, chats, verifier, Options{SendBuffer: 8}, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/ws/chat/:chat_hash/", gw.HandleChat)
	r.GET("/ws/chat_list/", gw.HandleInbox)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &gatewayEnv{server: server, hub: hub, chats: chats, verifier: verifier}
}

func (e *gatewayEnv) url(t *testing.T, path string, userID int64, username string) string {
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + path
	if userID == 0 {
		return u
	}
	token, err := e.verifier.GenerateToken(userID, username, time.Hour)
	require.NoError(t, err)
	return u + "?token=" + token
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestChatChannelEchoesToEveryMember(t *testing.T) {
	env := newGatewayEnv(t)
	path := "/ws/chat/" + env.chats.chat.Hash + "/"
	sender := dial(t, env.url(t, path, 5, "anna"))
	other := dial(t, env.url(t, path, 9, "acme"))
	require.Eventually(t, func() bool { return env.hub.GroupSize("conversation_"+env.chats.chat.Hash) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteJSON(models.ChatInbound{Message: "hello", Sender: "anna"}))

	for _, conn := range []*websocket.Conn{sender, other} {
		var ev models.ChatEvent
		readJSON(t, conn, &ev)
		assert.Equal(t, models.ChatEvent{Message: "hello", Sender: "anna", MessageID: 1}, ev)
	}
}

func TestChatChannelAcknowledgesRejectedSends(t *testing.T) {
	env := newGatewayEnv(t)
	conn := dial(t, env.url(t, "/ws/chat/"+env.chats.chat.Hash+"/", 5, "anna"))

	cases := []struct {
		payload string
		code    string
	}{
		{`not json`, "invalid_payload"},
		{`{"message":"   ","sender":"anna"}`, "empty_message"},
		{`{"message":"hi"}`, "missing_sender"},
		{`{"message":"hi","sender":"acme"}`, "sender_mismatch"},
	}
	for _, tc := range cases {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tc.payload)))
		var ack models.ErrorAck
		readJSON(t, conn, &ack)
		assert.Equal(t, tc.code, ack.Code, tc.payload)
		assert.NotEmpty(t, ack.Error)
	}

	env.chats.mu.Lock()
	defer env.chats.mu.Unlock()
	assert.Empty(t, env.chats.sends)
}

func TestChatChannelAcceptsNumericSender(t *testing.T) {
	env := newGatewayEnv(t)
	conn := dial(t, env.url(t, "/ws/chat/"+env.chats.chat.Hash+"/", 5, "anna"))

	require.NoError(t, conn.WriteJSON(models.ChatInbound{Message: "hi", Sender: "5"}))
	var ev models.ChatEvent
	readJSON(t, conn, &ev)
	assert.Equal(t, "hi", ev.Message)
}

func TestChatChannelHandshakeAuthorization(t *testing.T) {
	env := newGatewayEnv(t)
	path := "/ws/chat/" + env.chats.chat.Hash + "/"
	other, err := chathash.Derive(1, 2)
	require.NoError(t, err)

	cases := []struct {
		name   string
		url    string
		status int
	}{
		{"no token", env.url(t, path, 0, ""), http.StatusUnauthorized},
		{"not a participant", env.url(t, path, 7, "eve"), http.StatusForbidden},
		{"unknown chat", env.url(t, "/ws/chat/"+other+"/", 5, "anna"), http.StatusNotFound},
	}
	for _, tc := range cases {
		_, resp, err := websocket.DefaultDialer.Dial(tc.url, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake, tc.name)
		require.NotNil(t, resp, tc.name)
		assert.Equal(t, tc.status, resp.StatusCode, tc.name)
		resp.Body.Close()
	}
}

func TestChatChannelLeavesGroupOnDisconnect(t *testing.T) {
	env := newGatewayEnv(t)
	group := "conversation_" + env.chats.chat.Hash
	conn := dial(t, env.url(t, "/ws/chat/"+env.chats.chat.Hash+"/", 9, "acme"))
	require.Eventually(t, func() bool { return env.hub.GroupSize(group) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return env.hub.GroupSize(group) == 0 }, time.Second, 10*time.Millisecond)
	_, exists := env.hub.Groups()[group]
	assert.False(t, exists)
}

func TestInboxChannelReceivesOwnGroupOnly(t *testing.T) {
	env := newGatewayEnv(t)
	conn := dial(t, env.url(t, "/ws/chat_list/", 9, "acme"))
	require.Eventually(t, func() bool { return env.hub.GroupSize("inbox_9") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, env.hub.Publish(context.Background(), "inbox_5", []byte(`{"chat_hash":"other"}`)))
	require.NoError(t, env.hub.Publish(context.Background(), "inbox_9", []byte(`{"chat_hash":"mine"}`)))

	var ev models.InboxEvent
	readJSON(t, conn, &ev)
	assert.Equal(t, "mine", ev.ChatHash)
}

func TestInboxChannelRequiresAuthentication(t *testing.T) {
	env := newGatewayEnv(t)

	_, resp, err := websocket.DefaultDialer.Dial(env.url(t, "/ws/chat_list/", 0, ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, env.hub.Groups())
}

func TestUpgraderOriginCheck(t *testing.T) {
	up := newUpgrader([]string{"https://app.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws/chat_list/", nil)
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://app.example")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(req))
}

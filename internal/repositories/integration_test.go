//go:build integration

package repositories

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"message-service/internal/db"
	"message-service/internal/models"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "chat",
				"POSTGRES_PASSWORD": "chat",
				"POSTGRES_DB":       "chat",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://chat:chat@%s:%s/chat?sslmode=disable", host, port.Port())
	testDB, err = db.Connect(dsn, nil)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	code := m.Run()

	_ = testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestIntegrationHideOnlyAffectsOneSide(t *testing.T) {
	ctx := context.Background()
	chats := NewChatRepo(testDB)
	messages := NewMessageRepo(testDB)
	visibility := NewVisibilityRepo(testDB)

	chat, err := chats.CreateChat(ctx, 9, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), chat.ParticipantA)

	_, err = chats.CreateChat(ctx, 5, 9)
	require.ErrorIs(t, err, models.ErrDuplicateConversation)

	msg, err := messages.AppendMessage(ctx, chat, 5, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.RecipientID)

	for _, user := range []int64{5, 9} {
		v, err := visibility.GetVisibility(ctx, user, msg.ID)
		require.NoError(t, err)
		assert.True(t, v.IsVisible)
	}

	require.NoError(t, visibility.HideMessage(ctx, 5, msg.ID))
	require.NoError(t, visibility.HideMessage(ctx, 5, msg.ID))

	forSender, err := messages.ListVisibleMessages(ctx, chat.ID, 5, models.MessageQuery{})
	require.NoError(t, err)
	assert.Empty(t, forSender)

	forRecipient, err := messages.ListVisibleMessages(ctx, chat.ID, 9, models.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, forRecipient, 1)
	assert.Equal(t, "hello", forRecipient[0].Content)
}

func TestIntegrationAlternatingSendsStayOrdered(t *testing.T) {
	ctx := context.Background()
	chats := NewChatRepo(testDB)
	messages := NewMessageRepo(testDB)

	chat, err := chats.CreateChat(ctx, 11, 12)
	require.NoError(t, err)

	senders := []int64{11, 12, 11}
	for i, sender := range senders {
		_, err := messages.AppendMessage(ctx, chat, sender, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	got, err := messages.ListVisibleMessages(ctx, chat.ID, 12, models.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Content)
		assert.Equal(t, senders[i], msg.SenderID)
		if i > 0 {
			assert.False(t, msg.SendTime.Before(got[i-1].SendTime))
		}
	}

	page, err := messages.ListVisibleMessages(ctx, chat.ID, 12, models.MessageQuery{BeforeID: got[2].ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].Content)
}

func TestIntegrationHideChatAndReadState(t *testing.T) {
	ctx := context.Background()
	chats := NewChatRepo(testDB)
	messages := NewMessageRepo(testDB)
	visibility := NewVisibilityRepo(testDB)

	chat, err := chats.CreateChat(ctx, 21, 22)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := messages.AppendMessage(ctx, chat, 21, "ping")
		require.NoError(t, err)
	}

	list, err := chats.ListChats(ctx, 22)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].UnreadCount)

	n, err := messages.MarkRead(ctx, chat.ID, 22)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	hidden, err := visibility.HideChat(ctx, 22, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hidden)

	list, err = chats.ListChats(ctx, 22)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = messages.AppendMessage(ctx, chat, 21, "back")
	require.NoError(t, err)
	visible, err := messages.ListVisibleMessages(ctx, chat.ID, 22, models.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "back", visible[0].Content)
}

func TestIntegrationUserDirectory(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(testDB)

	var providerID int64
	require.NoError(t, testDB.GetContext(ctx, &providerID,
		`INSERT INTO users (username, full_name, role) VALUES ('acme', 'Acme Ltd', 'training_provider') RETURNING id`))
	_, err := testDB.ExecContext(ctx, `INSERT INTO provider_profiles (user_id, name) VALUES ($1, 'Acme Academy')`, providerID)
	require.NoError(t, err)

	user, err := users.GetUser(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainingProvider, user.Role)

	org, err := users.OrganizationFor(ctx, providerID)
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "Acme Academy", models.DisplayName(user, org))

	_, err = users.GetUser(ctx, providerID+1000)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

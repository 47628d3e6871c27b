package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"message-service/internal/models"
	"message-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, userID int64, partnerID int64) (models.Chat, error) {
	args := m.Called(ctx, userID, partnerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChatByHash(ctx context.Context, chatHash string) (models.Chat, error) {
	args := m.Called(ctx, chatHash)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, chat models.Chat, senderID int64, content string) (models.Message, error) {
	args := m.Called(ctx, chat, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListVisibleMessages(ctx context.Context, chatID int64, userID int64, q models.MessageQuery) ([]models.Message, error) {
	args := m.Called(ctx, chatID, userID, q)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, chatID int64, readerID int64) (int64, error) {
	args := m.Called(ctx, chatID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

type VisibilityRepositoryMock struct {
	mock.Mock
}

func (m *VisibilityRepositoryMock) HideMessage(ctx context.Context, userID int64, messageID int64) error {
	args := m.Called(ctx, userID, messageID)
	return args.Error(0)
}

func (m *VisibilityRepositoryMock) HideChat(ctx context.Context, userID int64, chatID int64) (int64, error) {
	args := m.Called(ctx, userID, chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *VisibilityRepositoryMock) GetVisibility(ctx context.Context, userID int64, messageID int64) (models.MessageVisibility, error) {
	args := m.Called(ctx, userID, messageID)
	var v models.MessageVisibility
	if val := args.Get(0); val != nil {
		v = val.(models.MessageVisibility)
	}
	return v, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) GetUser(ctx context.Context, userID int64) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserDirectoryMock) OrganizationFor(ctx context.Context, userID int64) (*models.Organization, error) {
	args := m.Called(ctx, userID)
	var org *models.Organization
	if val := args.Get(0); val != nil {
		org = val.(*models.Organization)
	}
	return org, args.Error(1)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.VisibilityRepository = (*VisibilityRepositoryMock)(nil)
var _ repositories.UserDirectory = (*UserDirectoryMock)(nil)

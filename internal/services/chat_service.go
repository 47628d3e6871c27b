package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"message-service/internal/chathash"
	"message-service/internal/models"
	"message-service/internal/observability"
	"message-service/internal/repositories"
	"message-service/internal/telemetry"
)

const messageCreatedRoutingKey = "chat.message.created"

var tracer = otel.Tracer("message-service/services")

// Fanout delivers a payload to every connection registered in a named group.
type Fanout interface {
	Publish(ctx context.Context, group string, payload []byte) error
}

// ChatListEntry is one row of a user's chat list.
type ChatListEntry struct {
	models.ChatSummary
	PartnerID          int64       `json:"partner_id"`
	PartnerUsername    string      `json:"partner_username"`
	PartnerDisplayName string      `json:"partner_display_name"`
	PartnerRole        models.Role `json:"partner_role,omitempty"`
}

// ChatService coordinates conversations, sends and visibility changes.
type ChatService struct {
	chats      repositories.ChatRepository
	messages   repositories.MessageRepository
	visibility repositories.VisibilityRepository
	profiles   *ProfileResolver
	fanout     Fanout
	audit      *telemetry.AuditEmitter
	logger     *zap.Logger
}

func NewChatService(
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	visibility repositories.VisibilityRepository,
	profiles *ProfileResolver,
	fanout Fanout,
	audit *telemetry.AuditEmitter,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		chats:      chats,
		messages:   messages,
		visibility: visibility,
		profiles:   profiles,
		fanout:     fanout,
		audit:      audit,
		logger:     logger.With(zap.String("component", "chat_service")),
	}
}

// StartChat returns the chat between userID and partnerID, creating it on
// first use. A lost creation race resolves to the winner's row.
func (s *ChatService) StartChat(ctx context.Context, userID, partnerID int64) (models.Chat, error) {
	ctx, span := tracer.Start(ctx, "chat.start")
	defer span.End()

	hash, err := chathash.Derive(userID, partnerID)
	if err != nil {
		return models.Chat{}, err
	}
	if _, err := s.profiles.Profile(ctx, partnerID); err != nil {
		return models.Chat{}, err
	}

	chat, err := s.chats.GetChatByHash(ctx, hash)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Chat{}, err
	}

	chat, err = s.chats.CreateChat(ctx, userID, partnerID)
	if errors.Is(err, models.ErrDuplicateConversation) {
		s.logger.Debug("chat created concurrently, reloading", zap.String("chat_hash", hash))
		return s.chats.GetChatByHash(ctx, hash)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Chat{}, err
	}
	s.logger.Info("chat created", zap.String("chat_hash", chat.Hash), zap.Int64("participant_a", chat.ParticipantA), zap.Int64("participant_b", chat.ParticipantB))
	return chat, nil
}

// GetChatForParticipant loads a chat and checks that userID belongs to it.
func (s *ChatService) GetChatForParticipant(ctx context.Context, chatHash string, userID int64) (models.Chat, error) {
	if !chathash.Valid(chatHash) {
		return models.Chat{}, models.ErrChatNotFound
	}
	chat, err := s.chats.GetChatByHash(ctx, chatHash)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(userID) {
		return models.Chat{}, models.ErrForbiddenParticipant
	}
	return chat, nil
}

// SendMessage persists a message and then fans it out to the conversation
// group and both participants' inbox groups. Fan-out never fails the send.
func (s *ChatService) SendMessage(ctx context.Context, chatHash string, senderID int64, content string) (models.Message, error) {
	ctx, span := tracer.Start(ctx, "chat.send_message", trace.WithAttributes(
		attribute.String("chat.hash", chatHash),
		attribute.Int64("chat.sender_id", senderID),
	))
	defer span.End()

	if !chathash.Valid(chatHash) {
		return models.Message{}, models.ErrChatNotFound
	}
	chat, err := s.chats.GetChatByHash(ctx, chatHash)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.AppendMessage(ctx, chat, senderID, content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Message{}, err
	}
	observability.IncMessageSent()
	span.SetAttributes(attribute.Int64("chat.message_id", msg.ID))

	// Committed: the caller going away must not stop delivery.
	s.broadcast(context.WithoutCancel(ctx), chat, msg)
	return msg, nil
}

func (s *ChatService) broadcast(ctx context.Context, chat models.Chat, msg models.Message) {
	sender := s.senderProfile(ctx, msg.SenderID)

	convPayload, err := json.Marshal(models.ChatEvent{
		Message:   msg.Content,
		Sender:    sender.User.Username,
		MessageID: msg.ID,
	})
	if err == nil {
		s.deliver(ctx, "conversation", models.ConversationGroup(chat.Hash), convPayload)
	}

	inboxPayload, err := json.Marshal(models.InboxEvent{
		ChatHash:          chat.Hash,
		Timestamp:         msg.SendTime.UTC().Format(time.RFC3339Nano),
		LastMessage:       msg.Content,
		SenderUsername:    sender.User.Username,
		SenderFullName:    sender.User.FullName,
		SenderRole:        string(sender.User.Role),
		SenderDisplayName: models.DisplayName(sender.User, sender.Organization),
	})
	if err == nil {
		for _, participant := range chat.Participants() {
			s.deliver(ctx, "inbox", models.InboxGroup(participant), inboxPayload)
		}
	}

	err = observability.PublishEvent(ctx, messageCreatedRoutingKey, observability.EventEnvelope{
		EventType: "chat",
		EventName: "message_created",
		Payload: map[string]interface{}{
			"chat_hash":    chat.Hash,
			"message_id":   msg.ID,
			"sender_id":    msg.SenderID,
			"recipient_id": msg.RecipientID,
			"send_time":    msg.SendTime.UTC().Format(time.RFC3339Nano),
		},
	}, observability.BuildHeaders(observability.RequestIDFromContext(ctx), observability.TraceIDFromContext(ctx)))
	if err != nil {
		s.logger.Warn("message event publish failed", zap.Int64("message_id", msg.ID), zap.Error(err))
	}
}

func (s *ChatService) deliver(ctx context.Context, kind, group string, payload []byte) {
	if s.fanout == nil {
		return
	}
	if err := s.fanout.Publish(ctx, group, payload); err != nil {
		observability.IncFanout(kind, "failed")
		s.logger.Warn("fanout failed", zap.String("group", group), zap.Error(err))
		return
	}
	observability.IncFanout(kind, "ok")
}

// senderProfile falls back to the bare id when the directory lookup fails.
func (s *ChatService) senderProfile(ctx context.Context, senderID int64) models.Profile {
	p, err := s.profiles.Profile(ctx, senderID)
	if err != nil {
		s.logger.Warn("sender lookup failed", zap.Int64("sender_id", senderID), zap.Error(err))
		return models.Profile{User: models.User{ID: senderID, Username: strconv.FormatInt(senderID, 10)}}
	}
	return p
}

// ListMessages returns the messages userID can still see, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, chatHash string, userID int64, q models.MessageQuery) ([]models.Message, error) {
	chat, err := s.GetChatForParticipant(ctx, chatHash, userID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListVisibleMessages(ctx, chat.ID, userID, q)
}

// HideMessage hides one message for userID only.
func (s *ChatService) HideMessage(ctx context.Context, chatHash string, userID, messageID int64) error {
	chat, err := s.GetChatForParticipant(ctx, chatHash, userID)
	if err != nil {
		return err
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != chat.ID {
		return models.ErrMessageNotFound
	}
	if err := s.visibility.HideMessage(ctx, userID, messageID); err != nil {
		return err
	}

	s.audit.Emit(ctx, "INFO", "message hidden", observability.RequestIDFromContext(ctx), &userID, map[string]any{
		"chat_hash":  chat.Hash,
		"message_id": messageID,
	})
	return nil
}

// HideChat hides every message of the chat for userID only.
func (s *ChatService) HideChat(ctx context.Context, chatHash string, userID int64) (int64, error) {
	chat, err := s.GetChatForParticipant(ctx, chatHash, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.visibility.HideChat(ctx, userID, chat.ID)
	if err != nil {
		return 0, err
	}

	s.audit.Emit(ctx, "INFO", "chat hidden", observability.RequestIDFromContext(ctx), &userID, map[string]any{
		"chat_hash": chat.Hash,
		"hidden":    n,
	})
	return n, nil
}

// MarkRead stamps the read time on messages addressed to userID.
func (s *ChatService) MarkRead(ctx context.Context, chatHash string, userID int64) (int64, error) {
	chat, err := s.GetChatForParticipant(ctx, chatHash, userID)
	if err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, chat.ID, userID)
}

// ListChats returns the user's chats with the partner's display name.
func (s *ChatService) ListChats(ctx context.Context, userID int64) ([]ChatListEntry, error) {
	summaries, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]ChatListEntry, 0, len(summaries))
	for _, summary := range summaries {
		partnerID := summary.ParticipantA
		if partnerID == userID {
			partnerID = summary.ParticipantB
		}
		entry := ChatListEntry{ChatSummary: summary, PartnerID: partnerID}

		p, err := s.profiles.Profile(ctx, partnerID)
		if err != nil {
			s.logger.Warn("partner lookup failed", zap.Int64("partner_id", partnerID), zap.Error(err))
			entry.PartnerUsername = strconv.FormatInt(partnerID, 10)
			entry.PartnerDisplayName = entry.PartnerUsername
		} else {
			entry.PartnerUsername = p.User.Username
			entry.PartnerDisplayName = models.DisplayName(p.User, p.Organization)
			entry.PartnerRole = p.User.Role
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

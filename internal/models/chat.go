package models

import (
	"strconv"
	"time"
)

// Chat represents a private chat between exactly two users.
// ParticipantA always holds the smaller user id.
type Chat struct {
	ID           int64     `db:"id" json:"id"`
	Hash         string    `db:"chat_hash" json:"chat_hash"`
	ParticipantA int64     `db:"participant_a" json:"participant_a"`
	ParticipantB int64     `db:"participant_b" json:"participant_b"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID is one of the two chat members.
func (c Chat) HasParticipant(userID int64) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the participant that is not userID.
func (c Chat) Other(userID int64) (int64, error) {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB, nil
	case c.ParticipantB:
		return c.ParticipantA, nil
	}
	return 0, ErrForbiddenParticipant
}

// Participants returns both members in canonical order.
func (c Chat) Participants() [2]int64 {
	return [2]int64{c.ParticipantA, c.ParticipantB}
}

// ChatSummary provides the chat-list view of a chat for one user.
type ChatSummary struct {
	ChatID        int64      `db:"id" json:"chat_id"`
	Hash          string     `db:"chat_hash" json:"chat_hash"`
	ParticipantA  int64      `db:"participant_a" json:"-"`
	ParticipantB  int64      `db:"participant_b" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageID *int64     `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastSenderID  *int64     `db:"last_sender_id" json:"last_sender_id,omitempty"`
	LastSendTime  *time.Time `db:"last_send_time" json:"last_send_time,omitempty"`
	UnreadCount   int        `db:"unread_count" json:"unread_count"`
}

// ConversationGroup names the broadcast group of a chat's open viewers.
func ConversationGroup(chatHash string) string {
	return "conversation_" + chatHash
}

// InboxGroup names the broadcast group of a user's chat-list connections.
func InboxGroup(userID int64) string {
	return "inbox_" + strconv.FormatInt(userID, 10)
}

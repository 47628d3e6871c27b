package models

import "time"

// Message represents a chat message. It never changes after creation
// except for ReadTime.
type Message struct {
	ID          int64      `db:"id" json:"id"`
	ChatID      int64      `db:"chat_id" json:"chat_id"`
	SenderID    int64      `db:"sender_id" json:"sender_id"`
	RecipientID int64      `db:"recipient_id" json:"recipient_id"`
	Content     string     `db:"content" json:"content"`
	SendTime    time.Time  `db:"send_time" json:"send_time"`
	ReadTime    *time.Time `db:"read_time" json:"read_time,omitempty"`
}

// MessageVisibility models per-user message visibility state.
type MessageVisibility struct {
	UserID    int64 `db:"user_id" json:"user_id"`
	MessageID int64 `db:"message_id" json:"message_id"`
	IsVisible bool  `db:"is_visible" json:"is_visible"`
}

// MessageQuery narrows a visible-message listing. Zero values mean no limit.
type MessageQuery struct {
	BeforeID int64
	Limit    int
}

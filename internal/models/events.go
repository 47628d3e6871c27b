package models

// ChatInbound is what a client sends on a conversation channel.
type ChatInbound struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// ChatEvent is broadcast to every connection of a conversation group.
type ChatEvent struct {
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	MessageID int64  `json:"message_id"`
}

// InboxEvent is pushed to a participant's inbox group after each send.
type InboxEvent struct {
	ChatHash          string `json:"chat_hash"`
	Timestamp         string `json:"timestamp"`
	LastMessage       string `json:"last_message"`
	SenderUsername    string `json:"sender_username"`
	SenderFullName    string `json:"sender_full_name"`
	SenderRole        string `json:"sender_role"`
	SenderDisplayName string `json:"sender_display_name"`
}

// ErrorAck is returned to the originating connection when a send is rejected.
type ErrorAck struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

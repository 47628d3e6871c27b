package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConversation is returned when both participants are the same user.
	ErrInvalidConversation = errors.New("a chat must be between two distinct users")
	// ErrDuplicateConversation is returned when a chat for the pair already exists.
	// Callers should fall back to a lookup by hash.
	ErrDuplicateConversation = errors.New("chat already exists for participants")
	ErrEmptyMessage          = errors.New("message content is empty")
	ErrForbiddenParticipant  = errors.New("user is not a participant of this chat")
	ErrNotFound              = errors.New("not found")

	ErrChatNotFound    = fmt.Errorf("chat %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)

package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// PostMessageRequest appends a message to a grievance thread.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// ChatMessageResponse is the wire shape of one thread message.
type ChatMessageResponse struct {
	ID          string    `json:"id"`
	GrievanceID string    `json:"grievance_id"`
	SenderKind  string    `json:"sender_kind"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ThreadResponse is the full message history plus the reader's badge count.
type ThreadResponse struct {
	Messages    []ChatMessageResponse `json:"messages"`
	UnreadCount int64                 `json:"unread_count"`
}

// FromChatMessage maps a thread message.
func FromChatMessage(msg *domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:          msg.ID,
		GrievanceID: msg.GrievanceID,
		SenderKind:  string(msg.Sender.Kind),
		SenderID:    msg.Sender.ID,
		Content:     msg.Content,
		Read:        msg.Read,
		CreatedAt:   msg.CreatedAt,
	}
}

// FromChatMessages maps a thread.
func FromChatMessages(msgs []domain.ChatMessage) []ChatMessageResponse {
	result := make([]ChatMessageResponse, 0, len(msgs))
	for i := range msgs {
		result = append(result, FromChatMessage(&msgs[i]))
	}
	return result
}

package events

import (
	"fmt"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventGrievanceCreated    EventType = "grievance_created"
	EventGrievanceAssigned   EventType = "grievance_assigned"
	EventGrievanceReassigned EventType = "grievance_reassigned"
	EventStatusChanged       EventType = "status_changed"
	EventNewMessage          EventType = "new_message"
	EventMessageRead         EventType = "message_read"
	EventTypingStart         EventType = "typing_start"
	EventTypingEnd           EventType = "typing_end"
	EventUnreadIncrement     EventType = "unread_increment"
)

// Audience keys address one of three logical rooms.
func UserAudience(userID string) string {
	return "user:" + userID
}

func DepartmentAudience(dept domain.Department) string {
	return fmt.Sprintf("department:%s", dept)
}

func GrievanceAudience(grievanceID string) string {
	return "grievance:" + grievanceID
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type         domain.SubjectType `json:"type"`
	PetitionerID *string            `json:"petitioner_id,omitempty"`
	StaffID      *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	GrievanceID string      `json:"grievance_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// GrievanceCreatedPayload payload.
type GrievanceCreatedPayload struct {
	Department   domain.Department        `json:"department"`
	PetitionerID string                   `json:"petitioner_id"`
	Subject      string                   `json:"subject"`
	Priority     domain.GrievancePriority `json:"priority"`
}

// GrievanceAssignedPayload payload. Shared by assigned and reassigned events;
// the event type tells the two apart.
type GrievanceAssignedPayload struct {
	Department   domain.Department `json:"department"`
	PetitionerID string            `json:"petitioner_id"`
	OfficerID    string            `json:"officer_id"`
	OfficerName  string            `json:"officer_name,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	Department   domain.Department      `json:"department"`
	PetitionerID string                 `json:"petitioner_id"`
	OldStatus    domain.GrievanceStatus `json:"old_status"`
	NewStatus    domain.GrievanceStatus `json:"new_status"`
	Comment      string                 `json:"comment,omitempty"`
}

// NewMessagePayload payload.
type NewMessagePayload struct {
	MessageID      string            `json:"message_id"`
	Sender         domain.SenderRef  `json:"sender"`
	RecipientID    string            `json:"recipient_id"`
	ContentPreview string            `json:"content_preview"`
	Department     domain.Department `json:"department"`
}

// MessageReadPayload payload.
type MessageReadPayload struct {
	MessageID string `json:"message_id"`
	ReaderID  string `json:"reader_id"`
}

// TypingPayload payload for the transient typing indicators.
type TypingPayload struct {
	Sender domain.SenderRef `json:"sender"`
}

// UnreadIncrementPayload payload for personal-room badge updates.
type UnreadIncrementPayload struct {
	RecipientID string `json:"recipient_id"`
	UnreadCount int64  `json:"unread_count"`
}

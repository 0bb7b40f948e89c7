package domain

import "time"

// SenderKind indicates which side of a grievance thread authored a message.
type SenderKind string

const (
	SenderKindPetitioner SenderKind = "PETITIONER"
	SenderKindStaff      SenderKind = "STAFF"
)

// SenderRef is a tagged reference to a thread participant.
type SenderRef struct {
	Kind SenderKind
	ID   string
}

// ChatMessage captures one entry of a grievance thread. Messages are
// immutable once stored; only the read flag may flip.
type ChatMessage struct {
	ID          string
	GrievanceID string
	Sender      SenderRef
	Content     string
	Read        bool
	CreatedAt   time.Time
}

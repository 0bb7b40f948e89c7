package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/pkg/keylock"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

const previewLength = 120

// ChatService runs the per-grievance message thread between the petitioner
// and the assigned officer.
type ChatService struct {
	grievances repository.GrievanceRepository
	messages   repository.ChatMessageRepository
	unread     repository.UnreadStore
	dispatcher events.Dispatcher
	locks      *keylock.KeyedMutex
	logger     *zap.Logger
}

// ChatDependencies bundles collaborators.
type ChatDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	MessageRepo   repository.ChatMessageRepository
	UnreadStore   repository.UnreadStore
	Dispatcher    events.Dispatcher
	Locks         *keylock.KeyedMutex
	Logger        *zap.Logger
}

// NewChatService creates the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		grievances: deps.GrievanceRepo,
		messages:   deps.MessageRepo,
		unread:     deps.UnreadStore,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
		logger:     deps.Logger,
	}
}

// PostMessage appends a message to the thread. The thread exists only while
// the grievance has an assigned officer; only the petitioner who filed the
// grievance and that officer may write to it.
func (s *ChatService) PostMessage(ctx context.Context, sender domain.SenderRef, grievanceID, content string) (*domain.ChatMessage, error) {
	unlock := s.locks.Lock(grievanceID)
	defer unlock()

	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if grievance.AssignedOfficerID == nil {
		return nil, apperrors.NewNoActiveAssignment(grievanceID)
	}
	if !isParticipant(grievance, sender) {
		return nil, apperrors.NewForbidden("only the petitioner and the assigned officer may post")
	}

	msg := &domain.ChatMessage{
		GrievanceID: grievanceID,
		Sender:      sender,
		Content:     content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	recipientID := otherParticipant(grievance, sender)
	count, err := s.unread.Increment(ctx, recipientID, grievanceID)
	if err != nil {
		// Badge counters are advisory; delivery of the message itself
		// must not depend on Redis being reachable. The badge event
		// still goes out with a zero count, which tells the client to
		// refetch rather than trust the number.
		s.logger.Warn("unread increment failed",
			zap.String("grievance_id", grievanceID),
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		count = 0
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventNewMessage,
		GrievanceID: grievanceID,
		Actor:       senderActor(sender),
		Payload: events.NewMessagePayload{
			MessageID:      msg.ID,
			Sender:         sender,
			RecipientID:    recipientID,
			ContentPreview: preview(content),
			Department:     grievance.Department,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:        events.EventUnreadIncrement,
		GrievanceID: grievanceID,
		Actor:       senderActor(sender),
		Payload: events.UnreadIncrementPayload{
			RecipientID: recipientID,
			UnreadCount: count,
		},
	})
	return msg, nil
}

// MarkRead flags a message as read by its recipient and resets the reader's
// unread counter for the thread. Marking an already-read message is a no-op
// that still succeeds.
func (s *ChatService) MarkRead(ctx context.Context, reader domain.SenderRef, grievanceID, messageID string) error {
	unlock := s.locks.Lock(grievanceID)
	defer unlock()

	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return err
	}
	if !isParticipant(grievance, reader) {
		return apperrors.NewForbidden("only thread participants may mark messages read")
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
		}
		return apperrors.MapError(err)
	}
	if msg.GrievanceID != grievanceID {
		return apperrors.NewNotFound("message", map[string]any{"message_id": messageID})
	}
	if msg.Sender.Kind == reader.Kind && msg.Sender.ID == reader.ID {
		return apperrors.NewForbidden("sender cannot mark own message read")
	}

	if !msg.Read {
		if err := s.messages.MarkRead(ctx, messageID); err != nil {
			return apperrors.MapError(err)
		}
	}
	if err := s.unread.Clear(ctx, reader.ID, grievanceID); err != nil {
		s.logger.Warn("unread clear failed",
			zap.String("grievance_id", grievanceID),
			zap.String("reader_id", reader.ID),
			zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventMessageRead,
		GrievanceID: grievanceID,
		Actor:       senderActor(reader),
		Payload: events.MessageReadPayload{
			MessageID: messageID,
			ReaderID:  reader.ID,
		},
	})
	return nil
}

// Typing broadcasts a transient typing indicator. Indicators are never
// persisted and skip the exclusive section; a stale one expires client-side.
func (s *ChatService) Typing(ctx context.Context, sender domain.SenderRef, grievanceID string, active bool) error {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return err
	}
	if !isParticipant(grievance, sender) {
		return apperrors.NewForbidden("only thread participants may send typing indicators")
	}

	eventType := events.EventTypingStart
	if !active {
		eventType = events.EventTypingEnd
	}
	s.publishEvent(ctx, events.Event{
		Type:        eventType,
		GrievanceID: grievanceID,
		Actor:       senderActor(sender),
		Payload: events.TypingPayload{
			Sender: sender,
		},
	})
	return nil
}

// ListThread returns the full message history, oldest first.
func (s *ChatService) ListThread(ctx context.Context, reader domain.SenderRef, grievanceID string) ([]domain.ChatMessage, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(grievance, reader) {
		return nil, apperrors.NewForbidden("only thread participants may read the thread")
	}
	msgs, err := s.messages.ListByGrievance(ctx, grievanceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// UnreadCount returns the reader's outstanding badge count for a thread.
func (s *ChatService) UnreadCount(ctx context.Context, reader domain.SenderRef, grievanceID string) (int64, error) {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return 0, err
	}
	if !isParticipant(grievance, reader) {
		return 0, apperrors.NewForbidden("only thread participants may read counters")
	}
	count, err := s.unread.Get(ctx, reader.ID, grievanceID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// CanAccess reports whether a subject may join a grievance's realtime room.
// Petitioners get their own grievances; officers get grievances of their
// department; admins get everything.
func (s *ChatService) CanAccess(ctx context.Context, subjectType domain.SubjectType, subjectID string, department *domain.Department, isAdmin bool, grievanceID string) bool {
	grievance, err := s.loadGrievance(ctx, grievanceID)
	if err != nil {
		return false
	}
	switch subjectType {
	case domain.SubjectTypePetitioner:
		return grievance.PetitionerID == subjectID
	case domain.SubjectTypeStaff:
		if isAdmin {
			return true
		}
		return department != nil && *department == grievance.Department
	}
	return false
}

func (s *ChatService) loadGrievance(ctx context.Context, grievanceID string) (*domain.Grievance, error) {
	grievance, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
		}
		return nil, apperrors.MapError(err)
	}
	return grievance, nil
}

func isParticipant(grievance *domain.Grievance, ref domain.SenderRef) bool {
	switch ref.Kind {
	case domain.SenderKindPetitioner:
		return grievance.PetitionerID == ref.ID
	case domain.SenderKindStaff:
		return grievance.AssignedOfficerID != nil && *grievance.AssignedOfficerID == ref.ID
	}
	return false
}

func otherParticipant(grievance *domain.Grievance, sender domain.SenderRef) string {
	if sender.Kind == domain.SenderKindPetitioner {
		return *grievance.AssignedOfficerID
	}
	return grievance.PetitionerID
}

func preview(content string) string {
	if len(content) <= previewLength {
		return content
	}
	// Back off to a rune boundary so the cut never mangles a multi-byte
	// character.
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func senderActor(ref domain.SenderRef) events.Actor {
	if ref.Kind == domain.SenderKindStaff {
		return staffActor(ref.ID)
	}
	return petitionerActor(ref.ID)
}

func (s *ChatService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

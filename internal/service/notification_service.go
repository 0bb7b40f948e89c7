package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/realtime"
)

// NotificationService translates domain events into realtime fan-out. It maps
// each event type to the audiences that should hear about it and hands the
// event to the registry; delivery past that point is fire-and-forget.
type NotificationService struct {
	publisher realtime.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(publisher realtime.Publisher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterHandlers subscribes the routing table on the dispatcher.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventGrievanceCreated, s.onGrievanceCreated)
	dispatcher.Subscribe(events.EventGrievanceAssigned, s.onGrievanceAssigned)
	dispatcher.Subscribe(events.EventGrievanceReassigned, s.onGrievanceAssigned)
	dispatcher.Subscribe(events.EventStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventNewMessage, s.onNewMessage)
	dispatcher.Subscribe(events.EventMessageRead, s.onThreadEvent)
	dispatcher.Subscribe(events.EventTypingStart, s.onThreadEvent)
	dispatcher.Subscribe(events.EventTypingEnd, s.onThreadEvent)
	dispatcher.Subscribe(events.EventUnreadIncrement, s.onUnreadIncrement)
}

func (s *NotificationService) onGrievanceCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.GrievanceCreatedPayload)
	if !ok {
		return nil
	}
	s.fanOut(event,
		events.DepartmentAudience(payload.Department),
		events.UserAudience(payload.PetitionerID),
	)
	return nil
}

func (s *NotificationService) onGrievanceAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.GrievanceAssignedPayload)
	if !ok {
		return nil
	}
	s.fanOut(event,
		events.DepartmentAudience(payload.Department),
		events.GrievanceAudience(event.GrievanceID),
		events.UserAudience(payload.PetitionerID),
		events.UserAudience(payload.OfficerID),
	)
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StatusChangedPayload)
	if !ok {
		return nil
	}
	s.fanOut(event,
		events.DepartmentAudience(payload.Department),
		events.GrievanceAudience(event.GrievanceID),
		events.UserAudience(payload.PetitionerID),
	)
	return nil
}

func (s *NotificationService) onNewMessage(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NewMessagePayload)
	if !ok {
		return nil
	}
	// The thread room covers anyone watching the conversation; the personal
	// room reaches the recipient even when their thread view is closed.
	s.fanOut(event,
		events.GrievanceAudience(event.GrievanceID),
		events.UserAudience(payload.RecipientID),
	)
	return nil
}

// onThreadEvent routes read receipts and typing indicators, which matter only
// to participants currently watching the thread.
func (s *NotificationService) onThreadEvent(ctx context.Context, event events.Event) error {
	s.fanOut(event, events.GrievanceAudience(event.GrievanceID))
	return nil
}

func (s *NotificationService) onUnreadIncrement(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UnreadIncrementPayload)
	if !ok {
		return nil
	}
	s.fanOut(event, events.UserAudience(payload.RecipientID))
	return nil
}

func (s *NotificationService) fanOut(event events.Event, audienceKeys ...string) {
	for _, key := range audienceKeys {
		delivered := s.publisher.Publish(key, event)
		if s.metrics != nil {
			s.metrics.RecordEventDelivery(audienceKind(key), delivered)
		}
		s.logger.Debug("event fanned out",
			zap.String("event_type", string(event.Type)),
			zap.String("audience", key),
			zap.Int("delivered", delivered))
	}
}

func audienceKind(key string) string {
	kind, _, _ := strings.Cut(key, ":")
	return kind
}

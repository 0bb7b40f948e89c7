package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
)

// fakePublisher records which audience keys each event was fanned out to.
type fakePublisher struct {
	mu      sync.Mutex
	byEvent map[string][]string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{byEvent: make(map[string][]string)}
}

func (p *fakePublisher) Publish(audienceKey string, event events.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byEvent[event.ID] = append(p.byEvent[event.ID], audienceKey)
	return 1
}

func (p *fakePublisher) audiences(eventID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.byEvent[eventID]...)
}

func newNotificationEnv() (*fakePublisher, events.Dispatcher) {
	publisher := newFakePublisher()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(publisher, observability.NewMetrics(), zap.NewNop())
	svc.RegisterHandlers(dispatcher)
	return publisher, dispatcher
}

func TestCreatedEventRouting(t *testing.T) {
	req := require.New(t)
	publisher, dispatcher := newNotificationEnv()

	req.NoError(dispatcher.Publish(context.Background(), events.Event{
		ID:          "e-1",
		Type:        events.EventGrievanceCreated,
		GrievanceID: "g-1",
		Payload: events.GrievanceCreatedPayload{
			Department:   domain.DepartmentWater,
			PetitionerID: "p-1",
		},
	}))

	req.ElementsMatch([]string{"department:WATER", "user:p-1"}, publisher.audiences("e-1"))
}

func TestAssignedEventRouting(t *testing.T) {
	req := require.New(t)
	publisher, dispatcher := newNotificationEnv()

	req.NoError(dispatcher.Publish(context.Background(), events.Event{
		ID:          "e-1",
		Type:        events.EventGrievanceAssigned,
		GrievanceID: "g-1",
		Payload: events.GrievanceAssignedPayload{
			Department:   domain.DepartmentWater,
			PetitionerID: "p-1",
			OfficerID:    "s-1",
		},
	}))

	req.ElementsMatch(
		[]string{"department:WATER", "grievance:g-1", "user:p-1", "user:s-1"},
		publisher.audiences("e-1"),
	)
}

func TestNewMessageRouting(t *testing.T) {
	req := require.New(t)
	publisher, dispatcher := newNotificationEnv()

	req.NoError(dispatcher.Publish(context.Background(), events.Event{
		ID:          "e-1",
		Type:        events.EventNewMessage,
		GrievanceID: "g-1",
		Payload: events.NewMessagePayload{
			RecipientID: "s-1",
			Department:  domain.DepartmentWater,
		},
	}))

	// Thread watchers plus the recipient's personal room; the department
	// room stays quiet for chat traffic.
	req.ElementsMatch([]string{"grievance:g-1", "user:s-1"}, publisher.audiences("e-1"))
}

func TestTypingStaysInThreadRoom(t *testing.T) {
	req := require.New(t)
	publisher, dispatcher := newNotificationEnv()

	req.NoError(dispatcher.Publish(context.Background(), events.Event{
		ID:          "e-1",
		Type:        events.EventTypingStart,
		GrievanceID: "g-1",
		Payload:     events.TypingPayload{},
	}))

	req.Equal([]string{"grievance:g-1"}, publisher.audiences("e-1"))
}

func TestUnreadIncrementRouting(t *testing.T) {
	req := require.New(t)
	publisher, dispatcher := newNotificationEnv()

	req.NoError(dispatcher.Publish(context.Background(), events.Event{
		ID:          "e-1",
		Type:        events.EventUnreadIncrement,
		GrievanceID: "g-1",
		Payload: events.UnreadIncrementPayload{
			RecipientID: "s-1",
			UnreadCount: 3,
		},
	}))

	req.Equal([]string{"user:s-1"}, publisher.audiences("e-1"))
}

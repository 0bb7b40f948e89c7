package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/pkg/keylock"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// allowedTransitions is the single source of truth for legal status moves.
// Pending -> Assigned happens only through the assignment engine's accept
// path, never through AdvanceStatus.
var allowedTransitions = map[domain.GrievanceStatus][]domain.GrievanceStatus{
	domain.GrievanceStatusPending:    {domain.GrievanceStatusRejected},
	domain.GrievanceStatusAssigned:   {domain.GrievanceStatusInProgress, domain.GrievanceStatusRejected},
	domain.GrievanceStatusInProgress: {domain.GrievanceStatusResolved, domain.GrievanceStatusRejected},
	domain.GrievanceStatusResolved:   {domain.GrievanceStatusClosed},
	domain.GrievanceStatusRejected:   {},
	domain.GrievanceStatusClosed:     {},
}

func isValidTransition(current, next domain.GrievanceStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// transitionOutcomes maps each entered status to the history outcome recorded
// for it, so every transition appends exactly one audit entry.
var transitionOutcomes = map[domain.GrievanceStatus]domain.AssignmentOutcome{
	domain.GrievanceStatusInProgress: domain.OutcomeStarted,
	domain.GrievanceStatusResolved:   domain.OutcomeCompleted,
	domain.GrievanceStatusClosed:     domain.OutcomeCompleted,
	domain.GrievanceStatusRejected:   domain.OutcomeRejected,
}

// LifecycleService owns status transitions and their timestamps.
type LifecycleService struct {
	grievances repository.GrievanceRepository
	staff      repository.StaffRepository
	history    repository.AssignmentHistoryRepository
	dispatcher events.Dispatcher
	locks      *keylock.KeyedMutex
}

// LifecycleDependencies bundles collaborators.
type LifecycleDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	StaffRepo     repository.StaffRepository
	HistoryRepo   repository.AssignmentHistoryRepository
	Dispatcher    events.Dispatcher
	Locks         *keylock.KeyedMutex
}

// NewLifecycleService creates the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		grievances: deps.GrievanceRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
	}
}

// AdvanceStatus moves a grievance along the lifecycle on behalf of actor.
// Only the currently assigned officer may advance Assigned/InProgress/
// Resolved; rejecting a Pending grievance (which has no officer) and closing
// on a citizen's behalf additionally require the admin role.
func (s *LifecycleService) AdvanceStatus(ctx context.Context, actor *domain.StaffMember, grievanceID string, newStatus domain.GrievanceStatus, resolution *string) (*domain.Grievance, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}

	unlock := s.locks.Lock(grievanceID)
	defer unlock()

	grievance, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
		}
		return nil, apperrors.MapError(err)
	}

	if !isValidTransition(grievance.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(grievance.Status), string(newStatus))
	}
	if err := s.authorizeTransition(actor, grievance); err != nil {
		return nil, err
	}

	oldStatus := grievance.Status
	grievance.Status = newStatus

	now := time.Now()
	switch newStatus {
	case domain.GrievanceStatusResolved:
		if grievance.ResolutionDate == nil {
			grievance.ResolutionDate = &now
		}
		if resolution != nil {
			grievance.Resolution = resolution
		}
	case domain.GrievanceStatusClosed:
		if grievance.ResolutionDate == nil {
			grievance.ResolutionDate = &now
		}
		if grievance.AssignedOfficerID != nil {
			if err := s.staff.AdjustActiveCases(ctx, *grievance.AssignedOfficerID, -1); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
	case domain.GrievanceStatusRejected:
		// Terminal without an officer: clear assignment state so the
		// assigned-iff-active invariant keeps holding.
		if grievance.AssignedOfficerID != nil {
			if err := s.staff.AdjustActiveCases(ctx, *grievance.AssignedOfficerID, -1); err != nil {
				return nil, apperrors.MapError(err)
			}
		}
		grievance.AssignedOfficerID = nil
		grievance.ProposedOfficerID = nil
	}

	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}

	record := &domain.AssignmentRecord{
		GrievanceID: grievance.ID,
		StaffID:     actor.ID,
		Outcome:     transitionOutcomes[newStatus],
		Reason:      resolution,
	}
	if err := s.history.Create(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	comment := ""
	if resolution != nil {
		comment = *resolution
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventStatusChanged,
		GrievanceID: grievance.ID,
		Actor:       staffActor(actor.ID),
		Payload: events.StatusChangedPayload{
			Department:   grievance.Department,
			PetitionerID: grievance.PetitionerID,
			OldStatus:    oldStatus,
			NewStatus:    newStatus,
			Comment:      comment,
		},
	})
	return grievance, nil
}

func (s *LifecycleService) authorizeTransition(actor *domain.StaffMember, grievance *domain.Grievance) error {
	isAdmin := actor.Role == domain.StaffRoleAdmin
	isAssigned := grievance.AssignedOfficerID != nil && *grievance.AssignedOfficerID == actor.ID

	switch grievance.Status {
	case domain.GrievanceStatusPending:
		// No officer yet; only an admin can reject a queued grievance.
		if !isAdmin {
			return apperrors.NewForbidden("only an admin may act on an unassigned grievance")
		}
	case domain.GrievanceStatusResolved:
		if !isAssigned && !isAdmin {
			return apperrors.NewForbidden("only the assigned officer or an admin may close")
		}
	default:
		if !isAssigned {
			return apperrors.NewForbidden("only the assigned officer may advance this grievance")
		}
	}
	return nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
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

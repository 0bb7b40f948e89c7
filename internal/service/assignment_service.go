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

// AssignmentService drives the proposal/accept/decline protocol. Every
// mutating path runs inside the per-grievance exclusive section, which is
// what makes two racing accepts resolve to exactly one winner.
type AssignmentService struct {
	grievances repository.GrievanceRepository
	staff      repository.StaffRepository
	history    repository.AssignmentHistoryRepository
	directory  *DirectoryService
	dispatcher events.Dispatcher
	locks      *keylock.KeyedMutex
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	StaffRepo     repository.StaffRepository
	HistoryRepo   repository.AssignmentHistoryRepository
	Directory     *DirectoryService
	Dispatcher    events.Dispatcher
	Locks         *keylock.KeyedMutex
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		grievances: deps.GrievanceRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		locks:      deps.Locks,
	}
}

// Assign proposes the lowest-loaded eligible official for a Pending
// grievance. The proposal is not a commitment: status stays Pending until the
// official accepts. Officials who already declined this grievance are never
// re-proposed.
func (s *AssignmentService) Assign(ctx context.Context, grievanceID string) (*domain.Grievance, *domain.StaffMember, error) {
	unlock := s.locks.Lock(grievanceID)
	defer unlock()
	return s.assignLocked(ctx, grievanceID)
}

func (s *AssignmentService) assignLocked(ctx context.Context, grievanceID string) (*domain.Grievance, *domain.StaffMember, error) {
	grievance, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if grievance.Status != domain.GrievanceStatusPending {
		return nil, nil, apperrors.NewInvalidTransition(string(grievance.Status), string(domain.GrievanceStatusPending))
	}
	if grievance.ProposedOfficerID != nil {
		return nil, nil, apperrors.NewStaleAssignment("proposal already outstanding", map[string]any{
			"grievance_id": grievanceID,
			"officer_id":   *grievance.ProposedOfficerID,
		})
	}

	declined, err := s.history.DeclinedStaffIDs(ctx, grievanceID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	excluded := make(map[string]struct{}, len(declined))
	for _, id := range declined {
		excluded[id] = struct{}{}
	}

	candidates, err := s.directory.CandidatesFor(ctx, grievance.Department)
	if err != nil {
		return nil, nil, err
	}

	var officer *domain.StaffMember
	for i := range candidates {
		if _, skip := excluded[candidates[i].ID]; skip {
			continue
		}
		officer = &candidates[i]
		break
	}
	if officer == nil {
		return nil, nil, apperrors.NewNoCapacity(string(grievance.Department))
	}

	grievance.ProposedOfficerID = &officer.ID
	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if err := s.staff.TouchLastAssignment(ctx, officer.ID); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if err := s.appendHistory(ctx, grievance.ID, officer.ID, domain.OutcomeAssigned, nil); err != nil {
		return nil, nil, err
	}

	eventType := events.EventGrievanceAssigned
	if len(declined) > 0 {
		eventType = events.EventGrievanceReassigned
	}
	s.publishEvent(ctx, events.Event{
		Type:        eventType,
		GrievanceID: grievance.ID,
		Actor:       staffActor(officer.ID),
		Payload: events.GrievanceAssignedPayload{
			Department:   grievance.Department,
			PetitionerID: grievance.PetitionerID,
			OfficerID:    officer.ID,
			OfficerName:  officer.Name,
		},
	})
	return grievance, officer, nil
}

// RespondToAssignment records the proposed official's accept or decline.
// Accept commits the assignment and moves the grievance to Assigned; decline
// appends the refusal and immediately re-runs selection excluding every
// official who has declined this grievance. A decline that finds no alternate
// returns NoCapacity with the grievance left Pending and unproposed.
func (s *AssignmentService) RespondToAssignment(ctx context.Context, grievanceID, staffID string, accept bool, reason *string) (*domain.Grievance, error) {
	unlock := s.locks.Lock(grievanceID)
	defer unlock()

	grievance, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
		}
		return nil, apperrors.MapError(err)
	}
	if grievance.Status != domain.GrievanceStatusPending || grievance.ProposedOfficerID == nil {
		return nil, apperrors.NewStaleAssignment("no outstanding proposal", map[string]any{
			"grievance_id":   grievanceID,
			"current_status": grievance.Status,
		})
	}
	if *grievance.ProposedOfficerID != staffID {
		// A caller with a prior history entry held a proposal that has
		// since been superseded: that is a lost race, not a permission
		// problem. Forbidden is reserved for staff never proposed.
		records, err := s.history.ListByGrievance(ctx, grievanceID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, record := range records {
			if record.StaffID == staffID {
				return nil, apperrors.NewStaleAssignment("proposal superseded", map[string]any{
					"grievance_id":       grievanceID,
					"current_officer_id": *grievance.ProposedOfficerID,
				})
			}
		}
		return nil, apperrors.NewForbidden("only the proposed officer may respond")
	}

	if accept {
		return s.acceptLocked(ctx, grievance, staffID)
	}
	return s.declineLocked(ctx, grievance, staffID, reason)
}

func (s *AssignmentService) acceptLocked(ctx context.Context, grievance *domain.Grievance, staffID string) (*domain.Grievance, error) {
	oldStatus := grievance.Status
	grievance.AssignedOfficerID = grievance.ProposedOfficerID
	grievance.ProposedOfficerID = nil
	grievance.Status = domain.GrievanceStatusAssigned
	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.appendHistory(ctx, grievance.ID, staffID, domain.OutcomeAccepted, nil); err != nil {
		return nil, err
	}
	if err := s.staff.AdjustActiveCases(ctx, staffID, 1); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventStatusChanged,
		GrievanceID: grievance.ID,
		Actor:       staffActor(staffID),
		Payload: events.StatusChangedPayload{
			Department:   grievance.Department,
			PetitionerID: grievance.PetitionerID,
			OldStatus:    oldStatus,
			NewStatus:    grievance.Status,
			Comment:      "assignment accepted",
		},
	})
	return grievance, nil
}

func (s *AssignmentService) declineLocked(ctx context.Context, grievance *domain.Grievance, staffID string, reason *string) (*domain.Grievance, error) {
	if err := s.appendHistory(ctx, grievance.ID, staffID, domain.OutcomeDeclined, reason); err != nil {
		return nil, err
	}
	grievance.ProposedOfficerID = nil
	if err := s.grievances.Update(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}

	// Reassignment runs under the lock already held, so an accept cannot
	// interleave between the decline and the next proposal. A NoCapacity
	// result propagates to the caller; the grievance stays Pending and
	// unproposed for a later sweep.
	reassigned, _, err := s.assignLocked(ctx, grievance.ID)
	if err != nil {
		return nil, err
	}
	return reassigned, nil
}

func (s *AssignmentService) appendHistory(ctx context.Context, grievanceID, staffID string, outcome domain.AssignmentOutcome, reason *string) error {
	if err := s.history.Create(ctx, &domain.AssignmentRecord{
		GrievanceID: grievanceID,
		StaffID:     staffID,
		Outcome:     outcome,
		Reason:      reason,
	}); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
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

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

func petitionerActor(petitionerID string) events.Actor {
	return events.Actor{
		Type:         domain.SubjectTypePetitioner,
		PetitionerID: &petitionerID,
	}
}

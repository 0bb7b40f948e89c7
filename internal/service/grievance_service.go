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
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// CreateGrievanceInput carries validated creation parameters.
type CreateGrievanceInput struct {
	PetitionerID       string
	Department         domain.Department
	Subject            string
	Description        string
	Priority           *domain.GrievancePriority
	ExpectedResolution time.Time
}

// GrievanceDetail aggregates a grievance with its assignment trail and
// thread for detail views.
type GrievanceDetail struct {
	Grievance domain.Grievance
	History   []domain.AssignmentRecord
	Messages  []domain.ChatMessage
}

// DepartmentStats is the queue snapshot for one department.
type DepartmentStats struct {
	Department domain.Department `json:"department"`
	Total      int64             `json:"total"`
	ByStatus   map[string]int64  `json:"by_status"`
}

// GrievanceService handles filing and read paths.
type GrievanceService struct {
	grievances repository.GrievanceRepository
	history    repository.AssignmentHistoryRepository
	messages   repository.ChatMessageRepository
	dispatcher events.Dispatcher
}

// GrievanceDependencies bundles collaborators.
type GrievanceDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	HistoryRepo   repository.AssignmentHistoryRepository
	MessageRepo   repository.ChatMessageRepository
	Dispatcher    events.Dispatcher
}

// NewGrievanceService creates the service.
func NewGrievanceService(deps GrievanceDependencies) *GrievanceService {
	return &GrievanceService{
		grievances: deps.GrievanceRepo,
		history:    deps.HistoryRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateGrievance files a new grievance in the Pending queue.
func (s *GrievanceService) CreateGrievance(ctx context.Context, input CreateGrievanceInput) (*domain.Grievance, error) {
	if !input.Department.Valid() {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": input.Department})
	}
	if !input.ExpectedResolution.After(time.Now()) {
		return nil, apperrors.NewValidationError("expected resolution must be in the future", nil)
	}

	priority := domain.GrievancePriorityMedium
	if input.Priority != nil {
		priority = *input.Priority
	}

	grievance := &domain.Grievance{
		PetitionerID:       input.PetitionerID,
		Department:         input.Department,
		Subject:            input.Subject,
		Description:        input.Description,
		Status:             domain.GrievanceStatusPending,
		Priority:           priority,
		ExpectedResolution: input.ExpectedResolution,
	}
	if err := s.grievances.Create(ctx, grievance); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventGrievanceCreated,
		GrievanceID: grievance.ID,
		Actor:       petitionerActor(input.PetitionerID),
		Payload: events.GrievanceCreatedPayload{
			Department:   grievance.Department,
			PetitionerID: grievance.PetitionerID,
			Subject:      grievance.Subject,
			Priority:     grievance.Priority,
		},
	})
	return grievance, nil
}

// GetForPetitioner returns the detail view, restricted to the filer.
func (s *GrievanceService) GetForPetitioner(ctx context.Context, petitionerID, grievanceID string) (*GrievanceDetail, error) {
	detail, err := s.getDetail(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if detail.Grievance.PetitionerID != petitionerID {
		return nil, apperrors.NewForbidden("grievance belongs to another petitioner")
	}
	return detail, nil
}

// GetForStaff returns the detail view for staff. Officers see their
// department's grievances; admins see everything.
func (s *GrievanceService) GetForStaff(ctx context.Context, staff *domain.StaffMember, grievanceID string) (*GrievanceDetail, error) {
	detail, err := s.getDetail(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if staff.Role != domain.StaffRoleAdmin && detail.Grievance.Department != staff.Department {
		return nil, apperrors.NewForbidden("grievance belongs to another department")
	}
	return detail, nil
}

// ListForPetitioner pages through the caller's own grievances.
func (s *GrievanceService) ListForPetitioner(ctx context.Context, petitionerID string, filter repository.GrievanceFilter) ([]domain.Grievance, error) {
	filter.PetitionerID = &petitionerID
	list, err := s.grievances.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ListForStaff pages through grievances visible to a staff member. Non-admins
// are pinned to their own department regardless of the requested filter.
func (s *GrievanceService) ListForStaff(ctx context.Context, staff *domain.StaffMember, filter repository.GrievanceFilter) ([]domain.Grievance, error) {
	if staff.Role != domain.StaffRoleAdmin {
		dept := staff.Department
		filter.Department = &dept
	}
	list, err := s.grievances.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Stats returns the per-department queue breakdown.
func (s *GrievanceService) Stats(ctx context.Context) ([]DepartmentStats, error) {
	rows, err := s.grievances.CountByDepartmentStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	index := make(map[domain.Department]*DepartmentStats)
	var order []domain.Department
	for _, row := range rows {
		stats, ok := index[row.Department]
		if !ok {
			stats = &DepartmentStats{
				Department: row.Department,
				ByStatus:   make(map[string]int64),
			}
			index[row.Department] = stats
			order = append(order, row.Department)
		}
		stats.ByStatus[string(row.Status)] = row.Count
		stats.Total += row.Count
	}

	result := make([]DepartmentStats, 0, len(order))
	for _, dept := range order {
		result = append(result, *index[dept])
	}
	return result, nil
}

func (s *GrievanceService) getDetail(ctx context.Context, grievanceID string) (*GrievanceDetail, error) {
	grievance, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
		}
		return nil, apperrors.MapError(err)
	}
	history, err := s.history.ListByGrievance(ctx, grievanceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	messages, err := s.messages.ListByGrievance(ctx, grievanceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &GrievanceDetail{
		Grievance: *grievance,
		History:   history,
		Messages:  messages,
	}, nil
}

func (s *GrievanceService) publishEvent(ctx context.Context, event events.Event) {
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

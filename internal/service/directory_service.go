package service

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// DirectoryService provides the read-only staff roster per department.
// It never emits events; only the assignment engine consults it for
// candidate selection.
type DirectoryService struct {
	staff repository.StaffRepository
}

// NewDirectoryService creates the service.
func NewDirectoryService(staff repository.StaffRepository) *DirectoryService {
	return &DirectoryService{staff: staff}
}

// CandidatesFor returns the available officials of a department ordered
// ascending by active case count, ties broken by the most stale last
// assignment so no official starves. A department with zero staff fails
// NotFound; a department whose staff are all unavailable returns an empty
// slice and the engine reports NoCapacity.
func (s *DirectoryService) CandidatesFor(ctx context.Context, dept domain.Department) ([]domain.StaffMember, error) {
	if !dept.Valid() {
		return nil, apperrors.NewNotFound("department", map[string]any{"department": dept})
	}

	available := true
	candidates, err := s.staff.List(ctx, repository.StaffFilter{
		Department: &dept,
		Available:  &available,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		total, err := s.staff.CountByDepartment(ctx, dept)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if total == 0 {
			return nil, apperrors.NewNotFound("department staff", map[string]any{"department": dept})
		}
	}
	return candidates, nil
}

// RosterFor returns every official of a department regardless of
// availability, for the directory listing endpoint.
func (s *DirectoryService) RosterFor(ctx context.Context, dept domain.Department) ([]domain.StaffMember, error) {
	if !dept.Valid() {
		return nil, apperrors.NewNotFound("department", map[string]any{"department": dept})
	}
	roster, err := s.staff.List(ctx, repository.StaffFilter{Department: &dept})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(roster) == 0 {
		return nil, apperrors.NewNotFound("department staff", map[string]any{"department": dept})
	}
	return roster, nil
}

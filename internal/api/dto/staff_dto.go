package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CreateStaffRequest registers a department official.
type CreateStaffRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required,oneof=WATER ELECTRICITY RTO MUNICIPAL REVENUE"`
	Role       string `json:"role" validate:"required,oneof=OFFICER ADMIN"`
}

// UpdateAvailabilityRequest toggles an official in or out of the candidate
// pool. It never touches their already-accepted caseload.
type UpdateAvailabilityRequest struct {
	Available bool `json:"available"`
}

// StaffResponse is the wire shape of a roster entry.
type StaffResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Department       string     `json:"department"`
	Role             string     `json:"role"`
	Available        bool       `json:"available"`
	ActiveCaseCount  int        `json:"active_case_count"`
	LastAssignmentAt *time.Time `json:"last_assignment_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// FromStaff maps a roster entry.
func FromStaff(s *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:               s.ID,
		Name:             s.Name,
		Email:            s.Email,
		Department:       string(s.Department),
		Role:             string(s.Role),
		Available:        s.Available,
		ActiveCaseCount:  s.ActiveCaseCount,
		LastAssignmentAt: s.LastAssignmentAt,
		CreatedAt:        s.CreatedAt,
	}
}

// FromStaffList maps a roster.
func FromStaffList(list []domain.StaffMember) []StaffResponse {
	result := make([]StaffResponse, 0, len(list))
	for i := range list {
		result = append(result, FromStaff(&list[i]))
	}
	return result
}

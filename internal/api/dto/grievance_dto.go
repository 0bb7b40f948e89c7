package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
)

// CreateGrievanceRequest is the filing payload.
type CreateGrievanceRequest struct {
	Department         string    `json:"department" validate:"required,oneof=WATER ELECTRICITY RTO MUNICIPAL REVENUE"`
	Subject            string    `json:"subject" validate:"required,min=5,max=200"`
	Description        string    `json:"description" validate:"required,min=50"`
	Priority           *string   `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	ExpectedResolution time.Time `json:"expected_resolution" validate:"required"`
}

// AssignmentResponseRequest is the proposed officer's accept/decline payload.
type AssignmentResponseRequest struct {
	Accept bool    `json:"accept"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// UpdateStatusRequest moves a grievance along the lifecycle.
type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=IN_PROGRESS RESOLVED REJECTED CLOSED"`
	Resolution *string `json:"resolution,omitempty" validate:"omitempty,max=2000"`
}

// GrievanceResponse is the wire shape of a grievance.
type GrievanceResponse struct {
	ID                 string     `json:"id"`
	PetitionerID       string     `json:"petitioner_id"`
	Department         string     `json:"department"`
	Subject            string     `json:"subject"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	ExpectedResolution time.Time  `json:"expected_resolution"`
	ProposedOfficerID  *string    `json:"proposed_officer_id,omitempty"`
	AssignedOfficerID  *string    `json:"assigned_officer_id,omitempty"`
	Resolution         *string    `json:"resolution,omitempty"`
	ResolutionDate     *time.Time `json:"resolution_date,omitempty"`
	DateFiled          time.Time  `json:"date_filed"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// AssignmentRecordResponse is one audit trail entry.
type AssignmentRecordResponse struct {
	ID          string    `json:"id"`
	GrievanceID string    `json:"grievance_id"`
	StaffID     string    `json:"staff_id"`
	Outcome     string    `json:"outcome"`
	Reason      *string   `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GrievanceDetailResponse is the aggregate detail view.
type GrievanceDetailResponse struct {
	Grievance GrievanceResponse          `json:"grievance"`
	History   []AssignmentRecordResponse `json:"history"`
	Messages  []ChatMessageResponse      `json:"messages"`
}

// FromGrievance maps the domain aggregate to its response shape.
func FromGrievance(g *domain.Grievance) GrievanceResponse {
	return GrievanceResponse{
		ID:                 g.ID,
		PetitionerID:       g.PetitionerID,
		Department:         string(g.Department),
		Subject:            g.Subject,
		Description:        g.Description,
		Status:             string(g.Status),
		Priority:           string(g.Priority),
		ExpectedResolution: g.ExpectedResolution,
		ProposedOfficerID:  g.ProposedOfficerID,
		AssignedOfficerID:  g.AssignedOfficerID,
		Resolution:         g.Resolution,
		ResolutionDate:     g.ResolutionDate,
		DateFiled:          g.DateFiled,
		UpdatedAt:          g.UpdatedAt,
	}
}

// FromGrievances maps a listing page.
func FromGrievances(list []domain.Grievance) []GrievanceResponse {
	result := make([]GrievanceResponse, 0, len(list))
	for i := range list {
		result = append(result, FromGrievance(&list[i]))
	}
	return result
}

// FromAssignmentRecord maps one history entry.
func FromAssignmentRecord(r *domain.AssignmentRecord) AssignmentRecordResponse {
	return AssignmentRecordResponse{
		ID:          r.ID,
		GrievanceID: r.GrievanceID,
		StaffID:     r.StaffID,
		Outcome:     string(r.Outcome),
		Reason:      r.Reason,
		CreatedAt:   r.CreatedAt,
	}
}

// FromGrievanceDetail maps the aggregate detail view.
func FromGrievanceDetail(detail *service.GrievanceDetail) GrievanceDetailResponse {
	history := make([]AssignmentRecordResponse, 0, len(detail.History))
	for i := range detail.History {
		history = append(history, FromAssignmentRecord(&detail.History[i]))
	}
	messages := make([]ChatMessageResponse, 0, len(detail.Messages))
	for i := range detail.Messages {
		messages = append(messages, FromChatMessage(&detail.Messages[i]))
	}
	return GrievanceDetailResponse{
		Grievance: FromGrievance(&detail.Grievance),
		History:   history,
		Messages:  messages,
	}
}

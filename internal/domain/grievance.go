package domain

import "time"

// GrievanceStatus enumerates lifecycle states for grievances.
type GrievanceStatus string

const (
	GrievanceStatusPending    GrievanceStatus = "PENDING"
	GrievanceStatusAssigned   GrievanceStatus = "ASSIGNED"
	GrievanceStatusInProgress GrievanceStatus = "IN_PROGRESS"
	GrievanceStatusResolved   GrievanceStatus = "RESOLVED"
	GrievanceStatusRejected   GrievanceStatus = "REJECTED"
	GrievanceStatusClosed     GrievanceStatus = "CLOSED"
)

// Terminal reports whether no further transitions are possible.
func (s GrievanceStatus) Terminal() bool {
	return s == GrievanceStatusClosed || s == GrievanceStatusRejected
}

// GrievancePriority enumerates urgency levels.
type GrievancePriority string

const (
	GrievancePriorityLow    GrievancePriority = "LOW"
	GrievancePriorityMedium GrievancePriority = "MEDIUM"
	GrievancePriorityHigh   GrievancePriority = "HIGH"
	GrievancePriorityUrgent GrievancePriority = "URGENT"
)

// Grievance is the aggregate for citizen-filed complaints.
//
// ProposedOfficerID carries an outstanding assignment proposal while the
// grievance is still Pending; AssignedOfficerID is set only once the officer
// accepts. Exactly one of the two may be non-nil at any time.
type Grievance struct {
	ID                 string
	PetitionerID       string
	Department         Department
	Subject            string
	Description        string
	Status             GrievanceStatus
	Priority           GrievancePriority
	ExpectedResolution time.Time
	ProposedOfficerID  *string
	AssignedOfficerID  *string
	Resolution         *string
	ResolutionDate     *time.Time
	DateFiled          time.Time
	UpdatedAt          time.Time
}

// HasActiveAssignment reports whether an officer has accepted the grievance.
func (g *Grievance) HasActiveAssignment() bool {
	return g.AssignedOfficerID != nil
}

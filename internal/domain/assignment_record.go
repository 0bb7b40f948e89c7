package domain

import "time"

// AssignmentOutcome captures what happened in an assignment history entry.
type AssignmentOutcome string

const (
	OutcomeAssigned  AssignmentOutcome = "ASSIGNED"
	OutcomeAccepted  AssignmentOutcome = "ACCEPTED"
	OutcomeDeclined  AssignmentOutcome = "DECLINED"
	OutcomeStarted   AssignmentOutcome = "STARTED"
	OutcomeCompleted AssignmentOutcome = "COMPLETED"
	OutcomeRejected  AssignmentOutcome = "REJECTED"
)

// AssignmentRecord is an immutable audit trail entry. Records are only ever
// appended; the engine reads DECLINED entries back when excluding officials
// from reassignment.
type AssignmentRecord struct {
	ID          string
	GrievanceID string
	StaffID     string
	Outcome     AssignmentOutcome
	Reason      *string
	CreatedAt   time.Time
}

package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleOfficer StaffRole = "OFFICER"
	StaffRoleAdmin   StaffRole = "ADMIN"
)

// StaffMember models a department official eligible for grievance assignment.
//
// ActiveCaseCount is maintained incrementally by the assignment engine and is
// never recomputed from a scan on the hot path. Department is fixed at
// creation; officials do not move departments.
type StaffMember struct {
	ID               string
	Name             string
	Email            string
	Department       Department
	Role             StaffRole
	Available        bool
	ActiveCaseCount  int
	LastAssignmentAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

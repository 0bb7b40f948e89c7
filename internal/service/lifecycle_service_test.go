package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/pkg/keylock"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type lifecycleEnv struct {
	grievances *fakeGrievanceRepo
	staff      *fakeStaffRepo
	history    *fakeHistoryRepo
	dispatcher *captureDispatcher
	svc        *LifecycleService
	assigner   *AssignmentService
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	env := &lifecycleEnv{
		grievances: newFakeGrievanceRepo(),
		staff:      newFakeStaffRepo(),
		history:    newFakeHistoryRepo(),
		dispatcher: newCaptureDispatcher(),
	}
	locks := keylock.New()
	env.svc = NewLifecycleService(LifecycleDependencies{
		GrievanceRepo: env.grievances,
		StaffRepo:     env.staff,
		HistoryRepo:   env.history,
		Dispatcher:    env.dispatcher,
		Locks:         locks,
	})
	env.assigner = NewAssignmentService(AssignmentDependencies{
		GrievanceRepo: env.grievances,
		StaffRepo:     env.staff,
		HistoryRepo:   env.history,
		Directory:     NewDirectoryService(env.staff),
		Dispatcher:    env.dispatcher,
		Locks:         locks,
	})
	return env
}

// acceptedGrievance seeds a grievance that has gone through propose+accept.
func (e *lifecycleEnv) acceptedGrievance(t *testing.T) (*domain.Grievance, *domain.StaffMember) {
	t.Helper()
	ctx := context.Background()

	officer := &domain.StaffMember{
		Name:       "officer",
		Email:      "officer@gov.example",
		Department: domain.DepartmentWater,
		Role:       domain.StaffRoleOfficer,
		Available:  true,
	}
	require.NoError(t, e.staff.Create(ctx, officer))

	grievance := &domain.Grievance{
		PetitionerID:       "p-1",
		Department:         domain.DepartmentWater,
		Subject:            "No water supply",
		Description:        "The supply has been interrupted for a week with no communication from the board.",
		Status:             domain.GrievanceStatusPending,
		Priority:           domain.GrievancePriorityHigh,
		ExpectedResolution: time.Now().Add(72 * time.Hour),
	}
	require.NoError(t, e.grievances.Create(ctx, grievance))

	_, _, err := e.assigner.Assign(ctx, grievance.ID)
	require.NoError(t, err)
	accepted, err := e.assigner.RespondToAssignment(ctx, grievance.ID, officer.ID, true, nil)
	require.NoError(t, err)
	return accepted, officer
}

func TestAdvanceFullLifecycle(t *testing.T) {
	req := require.New(t)
	env := newLifecycleEnv(t)
	ctx := context.Background()

	grievance, officer := env.acceptedGrievance(t)

	updated, err := env.svc.AdvanceStatus(ctx, officer, grievance.ID, domain.GrievanceStatusInProgress, nil)
	req.NoError(err)
	req.Equal(domain.GrievanceStatusInProgress, updated.Status)

	resolution := "Pipeline valve replaced and supply restored."
	updated, err = env.svc.AdvanceStatus(ctx, officer, grievance.ID, domain.GrievanceStatusResolved, &resolution)
	req.NoError(err)
	req.Equal(domain.GrievanceStatusResolved, updated.Status)
	req.NotNil(updated.ResolutionDate)
	req.Equal(resolution, *updated.Resolution)
	resolvedAt := *updated.ResolutionDate

	// The officer still carries the case while it awaits closure.
	stored, err := env.staff.GetByID(ctx, officer.ID)
	req.NoError(err)
	req.Equal(1, stored.ActiveCaseCount)

	updated, err = env.svc.AdvanceStatus(ctx, officer, grievance.ID, domain.GrievanceStatusClosed, nil)
	req.NoError(err)
	req.Equal(domain.GrievanceStatusClosed, updated.Status)
	// Closing keeps the first resolution timestamp.
	req.True(updated.ResolutionDate.Equal(resolvedAt))

	stored, err = env.staff.GetByID(ctx, officer.ID)
	req.NoError(err)
	req.Equal(0, stored.ActiveCaseCount)

	req.Len(env.dispatcher.byType(events.EventStatusChanged), 4)
}

func TestCloseFromPendingRejected(t *testing.T) {
	req := require.New(t)
	env := newLifecycleEnv(t)
	ctx := context.Background()

	admin := &domain.StaffMember{
		Name:       "admin",
		Email:      "admin@gov.example",
		Department: domain.DepartmentWater,
		Role:       domain.StaffRoleAdmin,
		Available:  true,
	}
	require.NoError(t, env.staff.Create(ctx, admin))

	grievance := &domain.Grievance{
		PetitionerID:       "p-1",
		Department:         domain.DepartmentWater,
		Subject:            "Billing error",
		Description:        "The latest bill charges for twice the metered consumption without an explanation.",
		Status:             domain.GrievanceStatusPending,
		Priority:           domain.GrievancePriorityLow,
		ExpectedResolution: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, env.grievances.Create(ctx, grievance))

	_, err := env.svc.AdvanceStatus(ctx, admin, grievance.ID, domain.GrievanceStatusClosed, nil)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	// The state did not change.
	stored, err := env.grievances.GetByID(ctx, grievance.ID)
	req.NoError(err)
	req.Equal(domain.GrievanceStatusPending, stored.Status)
}

func TestTransitionMatrix(t *testing.T) {
	cases := []struct {
		from    domain.GrievanceStatus
		to      domain.GrievanceStatus
		allowed bool
	}{
		{domain.GrievanceStatusPending, domain.GrievanceStatusRejected, true},
		{domain.GrievanceStatusPending, domain.GrievanceStatusInProgress, false},
		{domain.GrievanceStatusPending, domain.GrievanceStatusResolved, false},
		{domain.GrievanceStatusPending, domain.GrievanceStatusClosed, false},
		{domain.GrievanceStatusAssigned, domain.GrievanceStatusInProgress, true},
		{domain.GrievanceStatusAssigned, domain.GrievanceStatusRejected, true},
		{domain.GrievanceStatusAssigned, domain.GrievanceStatusClosed, false},
		{domain.GrievanceStatusInProgress, domain.GrievanceStatusResolved, true},
		{domain.GrievanceStatusInProgress, domain.GrievanceStatusRejected, true},
		{domain.GrievanceStatusInProgress, domain.GrievanceStatusClosed, false},
		{domain.GrievanceStatusResolved, domain.GrievanceStatusClosed, true},
		{domain.GrievanceStatusResolved, domain.GrievanceStatusRejected, false},
		{domain.GrievanceStatusClosed, domain.GrievanceStatusRejected, false},
		{domain.GrievanceStatusRejected, domain.GrievanceStatusClosed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, isValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRejectClearsAssignment(t *testing.T) {
	req := require.New(t)
	env := newLifecycleEnv(t)
	ctx := context.Background()

	grievance, officer := env.acceptedGrievance(t)

	reason := "duplicate of an existing case"
	updated, err := env.svc.AdvanceStatus(ctx, officer, grievance.ID, domain.GrievanceStatusRejected, &reason)
	req.NoError(err)
	req.Equal(domain.GrievanceStatusRejected, updated.Status)
	req.Nil(updated.AssignedOfficerID)
	req.Nil(updated.ProposedOfficerID)

	stored, err := env.staff.GetByID(ctx, officer.ID)
	req.NoError(err)
	req.Equal(0, stored.ActiveCaseCount)

	history, err := env.history.ListByGrievance(ctx, grievance.ID)
	req.NoError(err)
	last := history[len(history)-1]
	req.Equal(domain.OutcomeRejected, last.Outcome)
	req.Equal(reason, *last.Reason)
}

func TestAdvanceByUnassignedOfficerForbidden(t *testing.T) {
	req := require.New(t)
	env := newLifecycleEnv(t)
	ctx := context.Background()

	grievance, _ := env.acceptedGrievance(t)

	stranger := &domain.StaffMember{
		Name:       "stranger",
		Email:      "stranger@gov.example",
		Department: domain.DepartmentWater,
		Role:       domain.StaffRoleOfficer,
		Available:  true,
	}
	require.NoError(t, env.staff.Create(ctx, stranger))

	_, err := env.svc.AdvanceStatus(ctx, stranger, grievance.ID, domain.GrievanceStatusInProgress, nil)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAdvanceUnknownGrievance(t *testing.T) {
	req := require.New(t)
	env := newLifecycleEnv(t)

	actor := &domain.StaffMember{ID: "s-1", Role: domain.StaffRoleAdmin}
	_, err := env.svc.AdvanceStatus(context.Background(), actor, "missing", domain.GrievanceStatusRejected, nil)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

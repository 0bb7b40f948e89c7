package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type grievanceEnv struct {
	grievances *fakeGrievanceRepo
	history    *fakeHistoryRepo
	messages   *fakeMessageRepo
	dispatcher *captureDispatcher
	svc        *GrievanceService
}

func newGrievanceEnv(t *testing.T) *grievanceEnv {
	t.Helper()
	env := &grievanceEnv{
		grievances: newFakeGrievanceRepo(),
		history:    newFakeHistoryRepo(),
		messages:   newFakeMessageRepo(),
		dispatcher: newCaptureDispatcher(),
	}
	env.svc = NewGrievanceService(GrievanceDependencies{
		GrievanceRepo: env.grievances,
		HistoryRepo:   env.history,
		MessageRepo:   env.messages,
		Dispatcher:    env.dispatcher,
	})
	return env
}

func validInput() CreateGrievanceInput {
	return CreateGrievanceInput{
		PetitionerID:       "p-1",
		Department:         domain.DepartmentWater,
		Subject:            "No water supply",
		Description:        "The supply has been interrupted for a week with no communication from the board.",
		ExpectedResolution: time.Now().Add(72 * time.Hour),
	}
}

func TestCreateGrievanceDefaults(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)

	grievance, err := env.svc.CreateGrievance(context.Background(), validInput())
	req.NoError(err)
	req.Equal(domain.GrievanceStatusPending, grievance.Status)
	req.Equal(domain.GrievancePriorityMedium, grievance.Priority)
	req.Nil(grievance.AssignedOfficerID)
	req.Nil(grievance.ProposedOfficerID)
	req.NotEmpty(grievance.ID)

	req.Len(env.dispatcher.byType(events.EventGrievanceCreated), 1)
}

func TestCreateGrievanceExplicitPriority(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)

	input := validInput()
	urgent := domain.GrievancePriorityUrgent
	input.Priority = &urgent

	grievance, err := env.svc.CreateGrievance(context.Background(), input)
	req.NoError(err)
	req.Equal(domain.GrievancePriorityUrgent, grievance.Priority)
}

func TestCreateGrievanceRejectsPastDeadline(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)

	input := validInput()
	input.ExpectedResolution = time.Now().Add(-time.Hour)

	_, err := env.svc.CreateGrievance(context.Background(), input)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestCreateGrievanceRejectsUnknownDepartment(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)

	input := validInput()
	input.Department = "SANITATION"

	_, err := env.svc.CreateGrievance(context.Background(), input)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestGetForPetitionerOwnershipEnforced(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)
	ctx := context.Background()

	grievance, err := env.svc.CreateGrievance(ctx, validInput())
	req.NoError(err)

	detail, err := env.svc.GetForPetitioner(ctx, "p-1", grievance.ID)
	req.NoError(err)
	req.Equal(grievance.ID, detail.Grievance.ID)

	_, err = env.svc.GetForPetitioner(ctx, "p-2", grievance.ID)
	req.Error(err)
	req.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestGetForStaffDepartmentScoped(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)
	ctx := context.Background()

	grievance, err := env.svc.CreateGrievance(ctx, validInput())
	req.NoError(err)

	officer := &domain.StaffMember{ID: "s-1", Role: domain.StaffRoleOfficer, Department: domain.DepartmentWater}
	outsider := &domain.StaffMember{ID: "s-2", Role: domain.StaffRoleOfficer, Department: domain.DepartmentRevenue}
	admin := &domain.StaffMember{ID: "s-3", Role: domain.StaffRoleAdmin, Department: domain.DepartmentRevenue}

	_, err = env.svc.GetForStaff(ctx, officer, grievance.ID)
	req.NoError(err)

	_, err = env.svc.GetForStaff(ctx, outsider, grievance.ID)
	req.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = env.svc.GetForStaff(ctx, admin, grievance.ID)
	req.NoError(err)
}

func TestListForStaffPinsDepartment(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateGrievance(ctx, validInput())
	req.NoError(err)

	other := validInput()
	other.Department = domain.DepartmentRevenue
	_, err = env.svc.CreateGrievance(ctx, other)
	req.NoError(err)

	officer := &domain.StaffMember{ID: "s-1", Role: domain.StaffRoleOfficer, Department: domain.DepartmentWater}
	revenue := domain.DepartmentRevenue

	// The requested foreign department is overridden for non-admins.
	list, err := env.svc.ListForStaff(ctx, officer, repository.GrievanceFilter{Department: &revenue})
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(domain.DepartmentWater, list[0].Department)

	admin := &domain.StaffMember{ID: "s-2", Role: domain.StaffRoleAdmin, Department: domain.DepartmentWater}
	list, err = env.svc.ListForStaff(ctx, admin, repository.GrievanceFilter{Department: &revenue})
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(domain.DepartmentRevenue, list[0].Department)
}

func TestStatsAggregation(t *testing.T) {
	req := require.New(t)
	env := newGrievanceEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.CreateGrievance(ctx, validInput())
		req.NoError(err)
	}
	other := validInput()
	other.Department = domain.DepartmentRevenue
	_, err := env.svc.CreateGrievance(ctx, other)
	req.NoError(err)

	stats, err := env.svc.Stats(ctx)
	req.NoError(err)
	req.Len(stats, 2)

	byDept := make(map[domain.Department]DepartmentStats)
	for _, s := range stats {
		byDept[s.Department] = s
	}
	req.Equal(int64(3), byDept[domain.DepartmentWater].Total)
	req.Equal(int64(3), byDept[domain.DepartmentWater].ByStatus["PENDING"])
	req.Equal(int64(1), byDept[domain.DepartmentRevenue].Total)
}

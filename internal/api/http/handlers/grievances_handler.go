package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// GrievancesHandler serves the grievance surface: filing, reads, the
// assignment protocol and lifecycle transitions.
type GrievancesHandler struct {
	grievances *service.GrievanceService
	assigner   *service.AssignmentService
	lifecycle  *service.LifecycleService
}

// NewGrievancesHandler creates the handler.
func NewGrievancesHandler(grievances *service.GrievanceService, assigner *service.AssignmentService, lifecycle *service.LifecycleService) *GrievancesHandler {
	return &GrievancesHandler{
		grievances: grievances,
		assigner:   assigner,
		lifecycle:  lifecycle,
	}
}

// Create files a new grievance for the authenticated petitioner.
func (h *GrievancesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateGrievanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	var priority *domain.GrievancePriority
	if req.Priority != nil {
		p := domain.GrievancePriority(*req.Priority)
		priority = &p
	}

	grievance, err := h.grievances.CreateGrievance(c.UserContext(), service.CreateGrievanceInput{
		PetitionerID:       principal.SubjectID,
		Department:         domain.Department(req.Department),
		Subject:            req.Subject,
		Description:        req.Description,
		Priority:           priority,
		ExpectedResolution: req.ExpectedResolution,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromGrievance(grievance))
}

// Get returns the detail view for the caller.
func (h *GrievancesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	grievanceID := c.Params("id")

	var detail *service.GrievanceDetail
	var err error
	if principal.SubjectType == domain.SubjectTypePetitioner {
		detail, err = h.grievances.GetForPetitioner(c.UserContext(), principal.SubjectID, grievanceID)
	} else {
		detail, err = h.grievances.GetForStaff(c.UserContext(), staffFromPrincipal(principal), grievanceID)
	}
	if err != nil {
		return err
	}
	return c.JSON(dto.FromGrievanceDetail(detail))
}

// List pages through grievances visible to the caller.
func (h *GrievancesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.GrievanceFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.GrievanceStatus{domain.GrievanceStatus(status)}
	}
	if priority := c.Query("priority"); priority != "" {
		filter.Priorities = []domain.GrievancePriority{domain.GrievancePriority(priority)}
	}

	var list []domain.Grievance
	var err error
	if principal.SubjectType == domain.SubjectTypePetitioner {
		list, err = h.grievances.ListForPetitioner(c.UserContext(), principal.SubjectID, filter)
	} else {
		if dept := c.Query("department"); dept != "" {
			d := domain.Department(dept)
			filter.Department = &d
		}
		list, err = h.grievances.ListForStaff(c.UserContext(), staffFromPrincipal(principal), filter)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": dto.FromGrievances(list)})
}

// Assign triggers proposal of the lowest-loaded eligible official.
func (h *GrievancesHandler) Assign(c *fiber.Ctx) error {
	grievance, officer, err := h.assigner.Assign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"grievance":        dto.FromGrievance(grievance),
		"proposed_officer": dto.FromStaff(officer),
	})
}

// Respond records the proposed officer's accept or decline.
func (h *GrievancesHandler) Respond(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AssignmentResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	grievance, err := h.assigner.RespondToAssignment(c.UserContext(), c.Params("id"), principal.SubjectID, req.Accept, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromGrievance(grievance))
}

// UpdateStatus moves a grievance along the lifecycle.
func (h *GrievancesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	grievance, err := h.lifecycle.AdvanceStatus(
		c.UserContext(),
		staffFromPrincipal(principal),
		c.Params("id"),
		domain.GrievanceStatus(req.Status),
		req.Resolution,
	)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromGrievance(grievance))
}

// Stats returns the per-department queue breakdown.
func (h *GrievancesHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.grievances.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"departments": stats})
}

// staffFromPrincipal materializes the verified staff claims. Role and
// department come straight from the token; route middleware has already
// ensured the caller is staff.
func staffFromPrincipal(principal *auth.Principal) *domain.StaffMember {
	staff := &domain.StaffMember{ID: principal.SubjectID}
	if principal.Role != nil {
		staff.Role = *principal.Role
	}
	if principal.Department != nil {
		staff.Department = *principal.Department
	}
	return staff
}

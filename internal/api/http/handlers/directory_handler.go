package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// DirectoryHandler serves the staff roster.
type DirectoryHandler struct {
	directory *service.DirectoryService
	staff     repository.StaffRepository
}

// NewDirectoryHandler creates the handler.
func NewDirectoryHandler(directory *service.DirectoryService, staff repository.StaffRepository) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, staff: staff}
}

// Departments lists the known departments.
func (h *DirectoryHandler) Departments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"departments": domain.Departments()})
}

// Roster lists every official of a department in assignment order.
func (h *DirectoryHandler) Roster(c *fiber.Ctx) error {
	roster, err := h.directory.RosterFor(c.UserContext(), domain.Department(c.Params("department")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"staff": dto.FromStaffList(roster)})
}

// CreateStaff registers a department official. Admin only.
func (h *DirectoryHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	staff := &domain.StaffMember{
		Name:       req.Name,
		Email:      req.Email,
		Department: domain.Department(req.Department),
		Role:       domain.StaffRole(req.Role),
		Available:  true,
	}
	if err := h.staff.Create(c.UserContext(), staff); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.FromStaff(staff))
}

// UpdateAvailability toggles an official in or out of the candidate pool.
func (h *DirectoryHandler) UpdateAvailability(c *fiber.Ctx) error {
	var req dto.UpdateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}

	staffID := c.Params("id")
	staff, err := h.staff.GetByID(c.UserContext(), staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff member", map[string]any{"staff_id": staffID})
		}
		return apperrors.MapError(err)
	}

	staff.Available = req.Available
	if err := h.staff.Update(c.UserContext(), staff); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.FromStaff(staff))
}

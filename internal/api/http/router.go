package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/realtime"
)

// RouterDependencies bundles everything the route table needs.
type RouterDependencies struct {
	Health     *handlers.HealthHandler
	Grievances *handlers.GrievancesHandler
	Chat       *handlers.ChatHandler
	Directory  *handlers.DirectoryHandler
	Auth       *auth.AuthMiddleware
	Hub        *realtime.Hub
}

// RegisterRoutes builds the route table.
func RegisterRoutes(app *fiber.App, deps RouterDependencies) {
	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)

	app.Get("/ws", deps.Auth.HandleWebsocket, realtime.Upgrade(), deps.Hub.Handler())

	api := app.Group("/api/v1", deps.Auth.Handle)

	grievances := api.Group("/grievances")
	grievances.Post("/", auth.RequirePetitioner(), deps.Grievances.Create)
	grievances.Get("/", auth.RequireAnyRole(), deps.Grievances.List)
	grievances.Get("/stats", auth.RequireStaffRole(), deps.Grievances.Stats)
	grievances.Get("/:id", auth.RequireAnyRole(), deps.Grievances.Get)
	grievances.Post("/:id/assign", auth.RequireStaffRole(domain.StaffRoleAdmin), deps.Grievances.Assign)
	grievances.Post("/:id/respond", auth.RequireStaffRole(), deps.Grievances.Respond)
	grievances.Patch("/:id/status", auth.RequireStaffRole(), deps.Grievances.UpdateStatus)

	grievances.Get("/:id/messages", auth.RequireAnyRole(), deps.Chat.List)
	grievances.Post("/:id/messages", auth.RequireAnyRole(), deps.Chat.Post)
	grievances.Post("/:id/messages/:messageId/read", auth.RequireAnyRole(), deps.Chat.MarkRead)

	directory := api.Group("/directory")
	directory.Get("/departments", auth.RequireAnyRole(), deps.Directory.Departments)
	directory.Get("/departments/:department/staff", auth.RequireStaffRole(), deps.Directory.Roster)
	directory.Post("/staff", auth.RequireStaffRole(domain.StaffRoleAdmin), deps.Directory.CreateStaff)
	directory.Patch("/staff/:id/availability", auth.RequireStaffRole(), deps.Directory.UpdateAvailability)
}

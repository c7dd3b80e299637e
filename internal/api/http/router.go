package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plantops/finding-service/internal/api/http/handlers"
	"github.com/plantops/finding-service/internal/auth"
	"github.com/plantops/finding-service/internal/domain"
)

// RouterDependencies groups everything route registration needs.
type RouterDependencies struct {
	AuthMiddleware *auth.AuthMiddleware
	Findings       *handlers.FindingsHandler
	Employees      *handlers.EmployeesHandler
	Health         *handlers.HealthHandler
}

// RegisterRoutes wires the HTTP surface. Route guards only establish
// identity; per-action authorization lives in the lifecycle engine.
func RegisterRoutes(app *fiber.App, deps RouterDependencies) {
	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", deps.Employees.Register)
	authGroup.Post("/login", deps.Employees.Login)
	authGroup.Post("/password/reset/request", deps.Employees.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", deps.Employees.ConfirmPasswordReset)
	authGroup.Get("/me", deps.AuthMiddleware.Handle, deps.Employees.Me)
	authGroup.Post("/password/change", deps.AuthMiddleware.Handle, deps.Employees.ChangePassword)

	findings := v1.Group("/findings", deps.AuthMiddleware.Handle, auth.RequireAuthenticated())
	findings.Post("/", deps.Findings.Report)
	findings.Get("/", deps.Findings.List)
	findings.Get("/:id", deps.Findings.Get)
	findings.Post("/:id/actions", deps.Findings.ApplyAction)
	findings.Get("/:id/history", deps.Findings.History)
	findings.Get("/:id/comments", deps.Findings.ListComments)
	findings.Post("/:id/comments", deps.Findings.CreateComment)
	findings.Get("/:id/evidence", deps.Findings.ListEvidence)
	findings.Post("/:id/evidence", deps.Findings.RegisterEvidence)

	v1.Get("/assignees",
		deps.AuthMiddleware.Handle,
		auth.RequireLevel(domain.LevelEngineer),
		deps.Findings.ListAssignees)
}

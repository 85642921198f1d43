package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicworks/issue-service/internal/api/http/handlers"
	"github.com/civicworks/issue-service/internal/auth"
	"github.com/civicworks/issue-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	StaffIssues    *handlers.StaffIssuesHandler
	Admin          *handlers.AdminHandler
	Payments       *handlers.PaymentsHandler
	Applications   *handlers.ApplicationsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("/me", cfg.Users.GetProfile)
	users.Patch("/me", cfg.Users.UpdateProfile)

	issues := app.Group("/issues", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	issues.Post("", cfg.Issues.CreateIssue)
	issues.Get("", cfg.Issues.ListIssues)
	issues.Get("/dashboard", cfg.Issues.Dashboard)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Delete("/:id", cfg.Issues.DeleteIssue)
	issues.Post("/:id/upvote", cfg.Issues.Upvote)
	issues.Post("/:id/status", auth.RequireRole(domain.RoleStaff, domain.RoleAdmin), cfg.Issues.Transition)

	staffIssues := app.Group("/staff/issues", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleStaff, domain.RoleAdmin))
	staffIssues.Get("", cfg.StaffIssues.ListWorkQueue)
	staffIssues.Post("/:id/claim", cfg.StaffIssues.ClaimIssue)

	applications := app.Group("/applications", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleCitizen))
	applications.Post("", cfg.Applications.Submit)

	payments := app.Group("/payments", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	payments.Post("/subscription/checkout", cfg.Payments.CreateSubscriptionCheckout)
	payments.Post("/issues/:id/boost/checkout", cfg.Payments.CreateBoostCheckout)
	payments.Post("/reconcile", cfg.Payments.Reconcile)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/issues/:id/assign", cfg.Admin.AssignIssue)
	admin.Post("/issues/:id/reject", cfg.Admin.RejectIssue)
	admin.Patch("/users/:email/role", cfg.Admin.UpdateRole)
	admin.Patch("/users/:email/block", cfg.Admin.SetBlocked)
	admin.Get("/applications", cfg.Applications.List)
	admin.Get("/applications/:id", cfg.Applications.Get)
	admin.Post("/applications/:id/accept", cfg.Applications.Accept)
	admin.Post("/applications/:id/reject", cfg.Applications.Reject)
}

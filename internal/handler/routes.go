package handler

import (
	"go-pos-access/internal/middleware"
	"go-pos-access/internal/permission"
	"go-pos-access/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth       *AuthHandler
	Roles      *RoleHandler
	Permission *PermissionHandler
	Users      *UserHandler
	Hub        *ws.Hub
}

// RegisterRoutes mounts the REST API under /api/v1. Every protected route
// passes RequireAuth, which reloads the caller's roles, before its guard.
func RegisterRoutes(app *fiber.App, h Handlers, auth middleware.Authenticator) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	authGroup := api.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/reset-password", h.Auth.ResetPassword)
	authGroup.Post("/validate-token", h.Auth.ValidateToken)
	authGroup.Post("/heartbeat", middleware.RequireAuth(auth), h.Auth.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(auth))
	protected.Get("/me", h.Auth.Me)

	canReadRoles := middleware.RequireAnyPermission(permission.ViewRoles, permission.ManageRoles)
	canManageRoles := middleware.RequirePermission(permission.ManageRoles)

	// Permission registry
	protected.Get("/permissions", canReadRoles, h.Permission.GetPermissions)
	protected.Get("/permissions/matrix", canReadRoles, h.Permission.GetMatrix)

	// Roles
	protected.Get("/roles", canReadRoles, h.Roles.GetRoles)
	protected.Get("/roles/:id", canReadRoles, h.Roles.GetRole)
	protected.Post("/roles", canManageRoles, h.Roles.CreateRole)
	protected.Put("/roles/:id", canManageRoles, h.Roles.UpdateRole)
	protected.Delete("/roles/:id", canManageRoles, h.Roles.DeleteRole)

	// Users
	protected.Get("/users", middleware.RequirePermission(permission.ViewUsers), h.Users.GetUsers)
	protected.Get("/users/:id", middleware.RequirePermission(permission.ViewUsers), h.Users.GetUser)
	protected.Post("/users", middleware.RequirePermission(permission.CreateUser), h.Users.CreateUser)
	protected.Put("/users/:id", middleware.RequirePermission(permission.UpdateUser), h.Users.UpdateUser)
	protected.Put("/users/:id/roles", middleware.RequireAnyPermission(permission.UpdateUser, permission.ManageRoles), h.Users.AssignRoles)
	protected.Delete("/users/:id", middleware.RequirePermission(permission.DeleteUser), h.Users.DeleteUser)

	// ============ WEBSOCKET ============
	// Role and user events reach only callers who can see roles or users.
	if h.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws",
			middleware.RequireAuth(auth),
			middleware.RequireAnyPermission(permission.ViewRoles, permission.ManageRoles, permission.ViewUsers),
			h.Hub.Serve(),
		)
	}
}

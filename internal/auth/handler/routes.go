package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	"github.com/nuvemautoma/hot-class/pkg/constant"
)

// RegisterRoutes mounts the account, device and admin routes. It returns the
// authenticated member group and the admin group so other modules can mount
// their routes behind the same middleware.
func RegisterRoutes(app *fiber.App, tokens service.TokenGenerator, h *AuthHandler, d *DeviceHandler,
	a *AdminHandler) (member fiber.Router, admin fiber.Router) {
	api := app.Group("/api/v1")
	api.Post("/register", h.Register)
	api.Post("/login", h.Login)
	api.Post("/refresh", h.Refresh)
	api.Delete("/session", h.Logout)
	api.Post("/password/reset", h.ResetPassword)

	member = api.Group("", RequireAuth(tokens))
	member.Get("/me", h.Me)
	member.Patch("/me", h.UpdateMe)
	member.Put("/me/password", h.UpdatePassword)
	member.Get("/devices", d.List)
	member.Post("/devices/unlock", d.UnlockLimiter(), d.Unlock)
	member.Get("/devices/events", d.Events)

	admin = member.Group("/admin", RequireRole(constant.RoleOwner, constant.RoleAdmin))
	admin.Get("/users", a.GetAllUsers)
	admin.Put("/users/:id/admin", a.UpdateUserAdmin)
	admin.Put("/users/:id/password", a.UpdateUserPassword)
	admin.Get("/users/:id/sessions", a.GetUserSessions)
	admin.Delete("/users/:id/sessions", a.ForceLogout)
	admin.Get("/users/:id/devices", a.GetUserDevices)
	admin.Delete("/users/:id/devices/:deviceId", a.RemoveUserDevice)
	admin.Post("/users/:id/extra-slots", a.GrantExtraSlot)
	admin.Post("/users/:id/reset-code", a.IssueResetCode)
	admin.Get("/logs", a.GetActionLogs)

	return member, admin
}

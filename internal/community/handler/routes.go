package handler

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the community routes on groups that already carry the
// authentication and role middleware.
func RegisterRoutes(member, admin fiber.Router, h *CommunityHandler) {
	member.Get("/dashboard", h.Dashboard)
	member.Get("/groups", h.ListGroups)
	member.Get("/groups/:id", h.GetGroup)
	member.Get("/groups/:id/join", h.JoinGroup)
	member.Get("/notifications", h.ListNotifications)
	member.Post("/notifications/:id/read", h.MarkNotificationRead)

	admin.Post("/groups", h.CreateGroup)
	admin.Put("/groups/:id", h.UpdateGroup)
	admin.Delete("/groups/:id", h.DeleteGroup)
	admin.Post("/notifications", h.SendNotification)
	admin.Delete("/notifications/:id", h.DeleteNotification)
}

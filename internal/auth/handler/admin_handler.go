package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.adminService.ListUsers(c.UserContext(), c.Query("q"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(users)
}

func (h *AdminHandler) UpdateUserAdmin(c *fiber.Ctx) error {
	var input dto.UpdateAdminInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	if err := h.adminService.SetAdmin(c.UserContext(), ClaimsFrom(c), c.Params("id"), input.IsAdmin); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "role updated"})
}

func (h *AdminHandler) UpdateUserPassword(c *fiber.Ctx) error {
	var input dto.UpdatePasswordInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	if err := h.adminService.UpdateUserPassword(c.UserContext(), ClaimsFrom(c), c.Params("id"), input.NewPassword); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

func (h *AdminHandler) GetUserSessions(c *fiber.Ctx) error {
	sessions, err := h.adminService.GetUserSessions(c.UserContext(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(sessions)
}

func (h *AdminHandler) ForceLogout(c *fiber.Ctx) error {
	if err := h.adminService.ForceLogout(c.UserContext(), ClaimsFrom(c), c.Params("id")); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "all sessions revoked"})
}

func (h *AdminHandler) GetUserDevices(c *fiber.Ctx) error {
	devices, err := h.adminService.ListUserDevices(c.UserContext(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(devices)
}

func (h *AdminHandler) RemoveUserDevice(c *fiber.Ctx) error {
	if err := h.adminService.RemoveUserDevice(c.UserContext(), ClaimsFrom(c), c.Params("id"), c.Params("deviceId")); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) GrantExtraSlot(c *fiber.Ctx) error {
	usage, err := h.adminService.GrantExtraSlot(c.UserContext(), ClaimsFrom(c), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"slots": usage})
}

func (h *AdminHandler) IssueResetCode(c *fiber.Ctx) error {
	code, err := h.adminService.IssueResetCode(c.UserContext(), ClaimsFrom(c), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(code)
}

func (h *AdminHandler) GetActionLogs(c *fiber.Ctx) error {
	logs, err := h.adminService.ListActions(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(logs)
}

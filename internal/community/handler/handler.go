package handler

import (
	"github.com/gofiber/fiber/v2"
	authhandler "github.com/nuvemautoma/hot-class/internal/auth/handler"
	"github.com/nuvemautoma/hot-class/internal/community/dto"
	"github.com/nuvemautoma/hot-class/internal/community/service"
)

type CommunityHandler struct {
	groups        *service.GroupService
	notifications *service.NotificationService
	dashboard     *service.DashboardService
}

func NewCommunityHandler(groups *service.GroupService, notifications *service.NotificationService,
	dashboard *service.DashboardService) *CommunityHandler {
	return &CommunityHandler{
		groups:        groups,
		notifications: notifications,
		dashboard:     dashboard,
	}
}

func (h *CommunityHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.dashboard.Get(c.UserContext(), authhandler.ClaimsFrom(c).UserID)
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(out)
}

func (h *CommunityHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.groups.List(c.UserContext(), c.Query("platform"), c.Query("q"))
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(groups)
}

func (h *CommunityHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.groups.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(group)
}

func (h *CommunityHandler) JoinGroup(c *fiber.Ctx) error {
	link, err := h.groups.JoinLink(c.UserContext(), c.Params("id"))
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(dto.JoinOutput{Link: link})
}

func (h *CommunityHandler) ListNotifications(c *fiber.Ctx) error {
	out, err := h.notifications.List(c.UserContext(), authhandler.ClaimsFrom(c).UserID, c.QueryInt("limit", 0))
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(out)
}

func (h *CommunityHandler) MarkNotificationRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkRead(c.UserContext(), authhandler.ClaimsFrom(c).UserID, c.Params("id")); err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CommunityHandler) CreateGroup(c *fiber.Ctx) error {
	var input dto.GroupInput
	if err := authhandler.ParseBody(c, &input); err != nil {
		return err
	}

	group, err := h.groups.Create(c.UserContext(), authhandler.ClaimsFrom(c).UserID, input)
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *CommunityHandler) UpdateGroup(c *fiber.Ctx) error {
	var input dto.GroupInput
	if err := authhandler.ParseBody(c, &input); err != nil {
		return err
	}

	group, err := h.groups.Update(c.UserContext(), authhandler.ClaimsFrom(c).UserID, c.Params("id"), input)
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.JSON(group)
}

func (h *CommunityHandler) DeleteGroup(c *fiber.Ctx) error {
	if err := h.groups.Delete(c.UserContext(), authhandler.ClaimsFrom(c).UserID, c.Params("id")); err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CommunityHandler) SendNotification(c *fiber.Ctx) error {
	var input dto.NotificationInput
	if err := authhandler.ParseBody(c, &input); err != nil {
		return err
	}

	out, err := h.notifications.Send(c.UserContext(), authhandler.ClaimsFrom(c).UserID, input)
	if err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *CommunityHandler) DeleteNotification(c *fiber.Ctx) error {
	if err := h.notifications.Delete(c.UserContext(), authhandler.ClaimsFrom(c).UserID, c.Params("id")); err != nil {
		return authhandler.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

const fingerprintHeader = "X-Device-Fingerprint"

type AuthHandler struct {
	userService  *service.UserService
	adminService *service.AdminService
	supportURL   string
}

func NewAuthHandler(userService *service.UserService, adminService *service.AdminService, supportURL string) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		adminService: adminService,
		supportURL:   supportURL,
	}
}

// sessionError renders a blocked sign-in distinctly from a credential failure.
func (h *AuthHandler) sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, autherror.ErrDeviceLimitReached) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":       err.Error(),
			"code":        CodeDeviceLimitReached,
			"state":       StateBlocked,
			"support_url": h.supportURL,
		})
	}
	return RespondError(c, err)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	input.IPAddress = ClientIP(c)
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.Fingerprint = c.Get(fingerprintHeader)

	tokenPair, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return h.sessionError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

// Refresh restores a persisted session after re-checking the caller's IP.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	input.Fingerprint = c.Get(fingerprintHeader)
	input.IPAddress = ClientIP(c)
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.userService.Refresh(c.UserContext(), input)
	if err != nil {
		return h.sessionError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	if err := h.userService.Logout(c.UserContext(), input.RefreshToken); err != nil {
		return RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	if err := h.adminService.ResetPassword(c.UserContext(), input); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := h.userService.GetProfile(c.UserContext(), ClaimsFrom(c).UserID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(profile)
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	var input dto.UpdateProfileInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	profile, err := h.userService.UpdateProfile(c.UserContext(), ClaimsFrom(c).UserID, input)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(profile)
}

func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	var input dto.UpdatePasswordInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	if err := h.userService.UpdatePassword(c.UserContext(), ClaimsFrom(c).UserID, input.NewPassword); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

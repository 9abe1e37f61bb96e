package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

const (
	CodeDeviceLimitReached = "device_limit_reached"
	StateBlocked           = "blocked"
)

var validate = validator.New()

// ParseBody decodes the request body into out and validates its struct tags.
// A non-nil error has already been written to the response.
func ParseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid input",
				"field": verrs[0].Field(),
				"rule":  verrs[0].Tag(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, autherror.ErrInvalidCredentials),
		errors.Is(err, autherror.ErrInvalidAccessToken),
		errors.Is(err, autherror.ErrRefreshTokenNotFound),
		errors.Is(err, autherror.ErrRefreshTokenRevoked),
		errors.Is(err, autherror.ErrRefreshTokenExpired),
		errors.Is(err, autherror.ErrDeviceFingerprintMismatch):
		return fiber.StatusUnauthorized
	case errors.Is(err, autherror.ErrTooManyLoginAttempts):
		return fiber.StatusTooManyRequests
	case errors.Is(err, autherror.ErrDeviceLimitReached),
		errors.Is(err, autherror.ErrUnlockRejected),
		errors.Is(err, autherror.ErrForbidden),
		errors.Is(err, autherror.ErrOwnerPasswordProtected),
		errors.Is(err, autherror.ErrOwnerRoleImmutable):
		return fiber.StatusForbidden
	case errors.Is(err, autherror.ErrWeakPassword),
		errors.Is(err, autherror.ErrResetCodeInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, autherror.ErrEmailAlreadyInUse),
		errors.Is(err, autherror.ErrEmailAlreadyChanged),
		errors.Is(err, autherror.ErrOwnerEmailReserved):
		return fiber.StatusConflict
	case errors.Is(err, autherror.ErrUserNotFound),
		errors.Is(err, autherror.ErrDeviceNotFound),
		errors.Is(err, autherror.ErrGroupNotFound),
		errors.Is(err, autherror.ErrGroupLinkMissing),
		errors.Is(err, autherror.ErrNotificationNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// RespondError maps a service error onto an HTTP status with a {"error": msg}
// body. Unrecognized errors are logged and hidden behind a generic message.
func RespondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

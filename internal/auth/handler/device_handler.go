package handler

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/internal/auth/dto"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	"github.com/nuvemautoma/hot-class/internal/realtime"
	"github.com/valyala/fasthttp"
)

const (
	DefaultKeepAlive = 25 * time.Second
	deviceEventName  = "authorized_ip"
)

type DeviceHandler struct {
	devices      *service.DeviceService
	users        *service.UserService
	hub          *realtime.Hub
	unlockMax    int
	unlockWindow time.Duration
	keepAlive    time.Duration
}

func NewDeviceHandler(devices *service.DeviceService, users *service.UserService, hub *realtime.Hub, cfg *config.Config) *DeviceHandler {
	unlockMax := cfg.UnlockMaxAttempts
	if unlockMax <= 0 {
		unlockMax = config.DefaultUnlockMaxAttempts
	}
	window := time.Duration(cfg.UnlockWindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Duration(config.DefaultUnlockWindowMinutes) * time.Minute
	}

	return &DeviceHandler{
		devices:      devices,
		users:        users,
		hub:          hub,
		unlockMax:    unlockMax,
		unlockWindow: window,
		keepAlive:    DefaultKeepAlive,
	}
}

func (h *DeviceHandler) List(c *fiber.Ctx) error {
	current := h.users.ResolveIP(c.UserContext(), ClientIP(c))

	devices, err := h.devices.ListDevices(c.UserContext(), ClaimsFrom(c).UserID, current)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(devices)
}

// UnlockLimiter caps failed unlock attempts per user. Successful unlocks are not counted.
func (h *DeviceHandler) UnlockLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        h.unlockMax,
		Expiration: h.unlockWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims := ClaimsFrom(c); claims != nil {
				return "unlock:" + claims.UserID
			}
			return "unlock:" + ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many unlock attempts"})
		},
		SkipSuccessfulRequests: true,
	})
}

func (h *DeviceHandler) Unlock(c *fiber.Ctx) error {
	var input dto.UnlockInput
	if err := ParseBody(c, &input); err != nil {
		return err
	}

	usage, err := h.devices.UnlockExtraSlot(c.UserContext(), ClaimsFrom(c).UserID, input.Password)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"slots": usage})
}

// Events streams the caller's authorized-IP changes as server-sent events.
func (h *DeviceHandler) Events(c *fiber.Ctx) error {
	events, unsubscribe := h.hub.Subscribe(ClaimsFrom(c).UserID)
	encode := c.App().Config().JSONEncoder

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		streamEvents(w, events, h.keepAlive, encode)
	}))
	return nil
}

// streamEvents writes events until the channel closes or the client goes away.
func streamEvents(w *bufio.Writer, events <-chan realtime.Event, keepAlive time.Duration, encode utils.JSONMarshal) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := encode(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", deviceEventName, payload)
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

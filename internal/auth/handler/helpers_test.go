package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/internal/auth/handler"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	"github.com/nuvemautoma/hot-class/internal/iplookup"
	"github.com/nuvemautoma/hot-class/internal/mocks"
	"github.com/nuvemautoma/hot-class/internal/realtime"
	"github.com/nuvemautoma/hot-class/pkg/constant"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	clientIP       = "203.0.113.7"
	testProxy      = "0.0.0.0"
	memberPassword = "Senha@123"
	unlockPassword = "Desbloqueio#2024"
	supportURL     = "https://wa.me/5511999999999"
)

type testEnv struct {
	app     *fiber.App
	users   *mocks.MockUserRepository
	devices *mocks.MockDeviceRepository
	admins  *mocks.MockAdminRepository
	tokens  *mocks.MockTokenGenerator
	hub     *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	unlockHash, err := bcrypt.GenerateFromPassword([]byte(unlockPassword), bcrypt.MinCost)
	require.NoError(t, err)

	env := &testEnv{
		users:   mocks.NewMockUserRepository(ctrl),
		devices: mocks.NewMockDeviceRepository(ctrl),
		admins:  mocks.NewMockAdminRepository(ctrl),
		tokens:  mocks.NewMockTokenGenerator(ctrl),
		hub:     realtime.NewHub("authorized_ips_changes"),
	}
	cfg := &config.Config{
		LoginMaxAttempts:    5,
		LoginWindowMinutes:  15,
		OwnerEmail:          "hotclass@dono.com",
		BaseDeviceSlots:     3,
		UnlockPasswordHash:  string(unlockHash),
		UnlockMaxAttempts:   2,
		UnlockWindowMinutes: 15,
		UnknownIPPolicy:     config.UnknownIPAllow,
		SupportURL:          supportURL,
		ResetCodeTTLMinutes: 30,
	}

	devices := service.NewDeviceService(env.devices, cfg)
	users := service.NewUserService(env.users, env.tokens, devices, iplookup.NewResolver(nil, 0), cfg)
	admin := service.NewAdminService(env.users, env.admins, devices, cfg)

	// app.Test connects from 0.0.0.0, which is listed as the trusted proxy.
	env.app = fiber.New(fiber.Config{
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{testProxy, "10.0.0.0/8"},
		EnableIPValidation:      true,
	})
	handler.RegisterRoutes(env.app, env.tokens,
		handler.NewAuthHandler(users, admin, cfg.SupportURL),
		handler.NewDeviceHandler(devices, users, env.hub, cfg),
		handler.NewAdminHandler(admin))
	return env
}

// signIn makes token verify as the given identity and returns the header value.
func (env *testEnv) signIn(userID, role string) string {
	token := role + "-" + userID
	env.tokens.EXPECT().VerifyAccessToken(token).
		Return(&service.JWTCustomClaims{UserID: userID, Role: role}, nil).AnyTimes()
	return constant.DefaultTokenType + " " + token
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderXForwardedFor, clientIP)
	return req
}

func (env *testEnv) do(t *testing.T, req *http.Request) (*http.Response, fiber.Map) {
	t.Helper()
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	body := fiber.Map{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp, body
}

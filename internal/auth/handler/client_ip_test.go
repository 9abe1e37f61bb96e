package handler_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/nuvemautoma/hot-class/internal/auth/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		config fiber.Config
		header string
		want   string
	}{
		{
			name:   "no proxy header configured",
			config: fiber.Config{},
			header: "198.51.100.99",
			want:   testProxy,
		},
		{
			name:   "proxy check disabled ignores the header",
			config: fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor},
			header: "198.51.100.99",
			want:   testProxy,
		},
		{
			name: "untrusted peer",
			config: fiber.Config{
				ProxyHeader:             fiber.HeaderXForwardedFor,
				EnableTrustedProxyCheck: true,
				TrustedProxies:          []string{"10.0.0.1"},
			},
			header: "198.51.100.99",
			want:   testProxy,
		},
		{
			name:   "single entry from a trusted peer",
			config: trustedConfig(),
			header: "198.51.100.99",
			want:   "198.51.100.99",
		},
		{
			name:   "spoofed left entries are skipped",
			config: trustedConfig(),
			header: "203.0.113.1, 198.51.100.99, 10.1.2.3",
			want:   "198.51.100.99",
		},
		{
			name:   "every hop trusted falls back to the left-most",
			config: trustedConfig(),
			header: "10.0.0.9, 10.0.0.8",
			want:   "10.0.0.9",
		},
		{
			name:   "ipv4-mapped ipv6 entry",
			config: trustedConfig(),
			header: "::ffff:198.51.100.99",
			want:   "198.51.100.99",
		},
		{
			name:   "garbage is passed through",
			config: trustedConfig(),
			header: "198.51.100.1, not-an-address",
			want:   "not-an-address",
		},
		{
			name:   "missing header",
			config: trustedConfig(),
			want:   testProxy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(tt.config)
			app.Get("/ip", func(c *fiber.Ctx) error { return c.SendString(handler.ClientIP(c)) })

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderXForwardedFor, tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func trustedConfig() fiber.Config {
	return fiber.Config{
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{testProxy, "10.0.0.0/8"},
	}
}

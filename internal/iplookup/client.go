// Package iplookup resolves the public IP address a client signs in from.
package iplookup

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Lookup fetches the public address of the host it runs on.
type Lookup interface {
	Lookup(ctx context.Context) (netip.Addr, error)
}

type lookupResponse struct {
	IP string `json:"ip"`
}

// Client queries a "what is my IP" service that answers {"ip": "..."}.
type Client struct {
	url     string
	timeout time.Duration
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, timeout: timeout}
}

type lookupResult struct {
	addr netip.Addr
	err  error
}

// Lookup returns as soon as ctx is done. The agent request itself is bounded
// by the client timeout.
func (c *Client) Lookup(ctx context.Context) (netip.Addr, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, err
	}

	done := make(chan lookupResult, 1)
	go func() {
		addr, err := c.fetch()
		done <- lookupResult{addr: addr, err: err}
	}()

	select {
	case res := <-done:
		return res.addr, res.err
	case <-ctx.Done():
		return netip.Addr{}, ctx.Err()
	}
}

func (c *Client) fetch() (netip.Addr, error) {
	agent := fiber.Get(c.url)
	if c.timeout > 0 {
		agent.Timeout(c.timeout)
	}

	var resp lookupResponse
	code, _, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return netip.Addr{}, fmt.Errorf("ip lookup failed: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return netip.Addr{}, fmt.Errorf("ip lookup returned status %d", code)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(resp.IP))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("ip lookup returned invalid address %q: %w", resp.IP, err)
	}
	return addr.Unmap(), nil
}

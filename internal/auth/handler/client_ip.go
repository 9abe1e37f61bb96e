package handler

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP returns the address the device check runs against. The proxy
// header is read only when the peer is a configured trusted proxy. In that
// case the result is the right-most header entry that is not itself a
// trusted proxy. A malformed entry comes back verbatim and the resolver
// rejects it.
func ClientIP(c *fiber.Ctx) string {
	cfg := c.App().Config()
	remote := c.Context().RemoteIP().String()
	if cfg.ProxyHeader == "" || !cfg.EnableTrustedProxyCheck || !c.IsProxyTrusted() {
		return remote
	}

	header := c.Get(cfg.ProxyHeader)
	if strings.TrimSpace(header) == "" {
		return remote
	}

	trusted := trustedPrefixes(cfg.TrustedProxies)
	entries := strings.Split(header, ",")
	for i := len(entries) - 1; i >= 0; i-- {
		entry := strings.TrimSpace(entries[i])
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return entry
		}
		addr = addr.Unmap()
		if i == 0 || !containsAddr(trusted, addr) {
			return addr.String()
		}
	}
	return remote
}

func trustedPrefixes(proxies []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(proxies))
	for _, proxy := range proxies {
		if strings.Contains(proxy, "/") {
			if prefix, err := netip.ParsePrefix(proxy); err == nil {
				prefixes = append(prefixes, prefix.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(proxy); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

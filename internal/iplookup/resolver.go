package iplookup

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidClientIP means the request carried an address that is not a
// single IP. Unlike a failed lookup it is never treated as "unknown".
var ErrInvalidClientIP = errors.New("invalid client ip")

// Resolver maps a request's remote address to the client's public IP.
//
// A public remote address is used as is. A loopback, private or link-local
// remote address means the client shares the server's network, so the
// server's own public address (from Lookup) stands in for it. Lookup results
// are cached for ttl; failures are not cached.
type Resolver struct {
	lookup Lookup
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	mu        sync.Mutex
	cached    netip.Addr
	fetchedAt time.Time
}

func NewResolver(lookup Lookup, ttl time.Duration) *Resolver {
	return &Resolver{lookup: lookup, ttl: ttl, now: time.Now}
}

// Resolve returns the zero netip.Addr with a nil error when the public
// address cannot be looked up, and ErrInvalidClientIP when remoteIP itself
// does not parse.
func (r *Resolver) Resolve(ctx context.Context, remoteIP string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(remoteIP))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidClientIP, remoteIP)
	}
	addr = addr.Unmap()
	if IsPublic(addr) {
		return addr, nil
	}
	if r.lookup == nil {
		return netip.Addr{}, nil
	}
	return r.publicIP(ctx), nil
}

func (r *Resolver) cachedIP() (netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached.IsValid() && (r.ttl <= 0 || r.now().Sub(r.fetchedAt) < r.ttl) {
		return r.cached, true
	}
	return netip.Addr{}, false
}

// publicIP shares one in-flight lookup between concurrent callers. The cache
// lock is never held across the network call.
func (r *Resolver) publicIP(ctx context.Context) netip.Addr {
	if addr, ok := r.cachedIP(); ok {
		return addr
	}

	ch := r.group.DoChan("public-ip", func() (interface{}, error) {
		addr, err := r.lookup.Lookup(context.WithoutCancel(ctx))
		if err != nil {
			return netip.Addr{}, err
		}
		r.mu.Lock()
		r.cached = addr
		r.fetchedAt = r.now()
		r.mu.Unlock()
		return addr, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			log.Warnf("public ip lookup failed: %v", res.Err)
			return netip.Addr{}
		}
		return res.Val.(netip.Addr)
	case <-ctx.Done():
		log.Warnf("public ip lookup abandoned: %v", ctx.Err())
		return netip.Addr{}
	}
}

// IsPublic reports whether addr is a globally routable unicast address.
func IsPublic(addr netip.Addr) bool {
	return addr.IsValid() &&
		addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast()
}

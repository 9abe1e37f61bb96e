// Package realtime fans authorized-IP change notifications from PostgreSQL
// out to per-user subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events are dropped.
const subscriberBuffer = 16

// Event mirrors the JSON payload sent by the authorized_ips trigger.
type Event struct {
	Op          string    `json:"op"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	IPAddress   string    `json:"ip_address"`
	IsExtraSlot bool      `json:"is_extra_slot"`
	CreatedAt   time.Time `json:"created_at"`
}

// Listener is the part of *pgx.Conn the hub needs.
type Listener interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
}

type Hub struct {
	channel string

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

func NewHub(channel string) *Hub {
	return &Hub{
		channel: channel,
		subs:    make(map[string]map[int]chan Event),
	}
}

// Subscribe registers for events about userID. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Event)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to the subscribers of ev.UserID without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			log.Warnf("dropping %s event for user %s: subscriber is not keeping up", ev.Op, ev.UserID)
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Run listens on the hub's channel until ctx is done or the connection fails.
func (h *Hub) Run(ctx context.Context, conn Listener) error {
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{h.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.channel, err)
	}
	log.Infof("listening for notifications on %s", h.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}
		if n.Channel != h.channel {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			log.Warnf("ignoring malformed %s payload: %v", h.channel, err)
			continue
		}
		h.Publish(ev)
	}
}

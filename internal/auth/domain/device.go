package domain

import "time"

// AuthorizedIP is one (user, IP) pairing that has been granted a slot.
// Records are never updated; only operators delete them.
type AuthorizedIP struct {
	ID          string
	UserID      string
	IPAddress   string
	IsExtraSlot bool
	CreatedAt   time.Time
}

// ExtraSlotGrant raises a user's slot quota by one.
type ExtraSlotGrant struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

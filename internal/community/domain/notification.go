package domain

import "time"

// Notification is a broadcast when UserID is nil, otherwise addressed to one user.
type Notification struct {
	ID        string
	Title     string
	Message   string
	Icon      string
	UserID    *string
	CreatedAt time.Time
	Read      bool
}

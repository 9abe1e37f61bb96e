package dto

import "time"

type NotificationInput struct {
	Title   string `json:"title" validate:"required,max=160"`
	Message string `json:"message" validate:"max=2000"`
	Icon    string `json:"icon" validate:"max=64"`
	// UserID addresses one member. Empty broadcasts to everyone.
	UserID string `json:"user_id" validate:"omitempty,uuid"`
}

type NotificationOutput struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	Broadcast bool      `json:"broadcast"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationListOutput struct {
	Notifications []NotificationOutput `json:"notifications"`
	Unread        int                  `json:"unread"`
}

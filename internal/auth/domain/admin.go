package domain

import "time"

type AdminActionLog struct {
	ID           string
	ActorID      string
	Action       string
	TargetUserID string
	Details      string
	CreatedAt    time.Time
}

type PasswordResetCode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

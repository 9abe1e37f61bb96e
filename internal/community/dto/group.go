package dto

import "time"

type GroupInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=64"`
	Link        string `json:"link" validate:"omitempty,url"`
	Platform    string `json:"platform" validate:"required,oneof=whatsapp telegram"`
}

type GroupOutput struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Platform    string    `json:"platform"`
	HasLink     bool      `json:"has_link"`
	CreatedAt   time.Time `json:"created_at"`
}

type JoinOutput struct {
	Link string `json:"link"`
}

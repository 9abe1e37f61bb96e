package dto

import authdto "github.com/nuvemautoma/hot-class/internal/auth/dto"

type DashboardOutput struct {
	Profile             *authdto.ProfileOutput `json:"profile"`
	Devices             authdto.SlotUsage      `json:"devices"`
	Groups              int                    `json:"groups"`
	UnreadNotifications int                    `json:"unread_notifications"`
	Recent              []NotificationOutput   `json:"recent_notifications"`
}

package dto

import "time"

type SlotUsage struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

type DeviceOutput struct {
	ID          string    `json:"id"`
	IPAddress   string    `json:"ip_address"`
	IsExtraSlot bool      `json:"is_extra_slot"`
	Current     bool      `json:"current"`
	CreatedAt   time.Time `json:"created_at"`
}

type DeviceListOutput struct {
	Devices []DeviceOutput `json:"devices"`
	Slots   SlotUsage      `json:"slots"`
}

type UnlockInput struct {
	Password string `json:"password" validate:"required"`
}

type AdminActionOutput struct {
	ID           string    `json:"id"`
	ActorID      string    `json:"actor_id"`
	Action       string    `json:"action"`
	TargetUserID string    `json:"target_user_id"`
	Details      string    `json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

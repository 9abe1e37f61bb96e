package constant

const (
	DefaultTokenType = "Bearer"

	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"

	// BaseDeviceSlots is the number of IP slots every account gets before extra grants.
	BaseDeviceSlots = 3

	PlatformWhatsApp = "whatsapp"
	PlatformTelegram = "telegram"

	ClaimsLocalKey = "claims"
)

// Admin action names written to admin_action_logs.
const (
	ActionGrantAdmin     = "grant_admin"
	ActionRevokeAdmin    = "revoke_admin"
	ActionUpdatePassword = "update_password"
	ActionForceLogout    = "force_logout"
	ActionRemoveDevice   = "remove_device"
	ActionGrantExtraSlot = "grant_extra_slot"
	ActionIssueResetCode = "issue_reset_code"
	ActionCreateGroup    = "create_group"
	ActionUpdateGroup    = "update_group"
	ActionDeleteGroup    = "delete_group"
	ActionSendNotice     = "send_notification"
	ActionDeleteNotice   = "delete_notification"
)

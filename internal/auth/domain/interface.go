package domain

//go:generate mockgen -destination=../../mocks/mock_repositories.go -package=mocks github.com/nuvemautoma/hot-class/internal/auth/domain UserRepository,DeviceRepository,AdminRepository

import "context"

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDWithRole(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error
	GetActiveSessionsByUserID(ctx context.Context, userID string) ([]RefreshToken, error)
	GetActiveCountByUserID(ctx context.Context, userID string) (int, error)
	DeleteOldestByUserID(ctx context.Context, userID string) error

	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error
	CountRecentFailedAttempts(ctx context.Context, email, ip string, minutes int) (int, error)
}

type DeviceRepository interface {
	// ListAuthorizedIPs returns the user's records ordered by created_at ascending.
	ListAuthorizedIPs(ctx context.Context, userID string) ([]AuthorizedIP, error)
	CountExtraSlotGrants(ctx context.Context, userID string) (int, error)
	// InsertAuthorizedIP reports false when the (user, ip) pair already existed.
	InsertAuthorizedIP(ctx context.Context, ip *AuthorizedIP) (bool, error)
	InsertExtraSlotGrant(ctx context.Context, grant *ExtraSlotGrant) error
	DeleteAuthorizedIP(ctx context.Context, userID, id string) error
}

type AdminRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	SetAdmin(ctx context.Context, userID string, admin bool) error
	RecordAction(ctx context.Context, entry *AdminActionLog) error
	ListActions(ctx context.Context, limit int) ([]AdminActionLog, error)

	CreateResetCode(ctx context.Context, code *PasswordResetCode) error
	GetActiveResetCodes(ctx context.Context, userID string) ([]PasswordResetCode, error)
	ConsumeResetCode(ctx context.Context, id string) error
}

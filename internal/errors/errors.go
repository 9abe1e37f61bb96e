package errors

import (
	"errors"
)

var (
	ErrTooManyLoginAttempts      = errors.New("too many failed login attempts")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrEmailAlreadyInUse         = errors.New("email already in use")
	ErrEmailAlreadyChanged       = errors.New("email can only be changed once")
	ErrOwnerEmailReserved        = errors.New("email is reserved for the owner account")
	ErrInvalidAccessToken        = errors.New("invalid or expired access token")
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrRefreshTokenRevoked       = errors.New("refresh token revoked")
	ErrRefreshTokenExpired       = errors.New("refresh token expired")
	ErrDeviceFingerprintMismatch = errors.New("device fingerprint mismatch")
	ErrUserNotFound              = errors.New("user not found")
	ErrWeakPassword              = errors.New("password must be 6-72 characters with at least one uppercase letter and one special character")

	ErrDeviceLimitReached = errors.New("device limit reached")
	ErrUnlockRejected     = errors.New("unlock password rejected")
	ErrDeviceNotFound     = errors.New("authorized device not found")

	ErrForbidden              = errors.New("access denied")
	ErrOwnerPasswordProtected = errors.New("cannot change owner password")
	ErrOwnerRoleImmutable     = errors.New("owner role cannot be changed")
	ErrResetCodeInvalid       = errors.New("invalid or expired reset code")

	ErrGroupNotFound        = errors.New("group not found")
	ErrGroupLinkMissing     = errors.New("group has no invite link")
	ErrNotificationNotFound = errors.New("notification not found")
)
